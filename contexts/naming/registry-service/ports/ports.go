package ports

import (
	"context"
	"time"

	contractsv1 "tessera/contracts/gen/events/v1"
	"tessera/contexts/naming/registry-service/domain/entities"
	"tessera/internal/shared/outbox"
)

// RegisterUserInput binds a username to an address under the root
// namespace.
type RegisterUserInput struct {
	Username string
	Owner    string
}

// BindPolicyInput registers a policy instance under the owner's node.
type BindPolicyInput struct {
	Owner  string
	Label  string
	Target string
}

// Repository persists bindings and the registrar set. ReplaceBinding must
// release the old node and claim the new one atomically.
type Repository interface {
	CreateBinding(ctx context.Context, binding entities.Binding) error
	GetBinding(ctx context.Context, node string) (entities.Binding, error)
	GetBindingByOwner(ctx context.Context, parentNode string, owner string) (entities.Binding, error)
	ReplaceBinding(ctx context.Context, oldNode string, binding entities.Binding) error
	DeleteBinding(ctx context.Context, node string) error
	ListChildren(ctx context.Context, parentNode string) ([]entities.Binding, error)

	AddRegistrar(ctx context.Context, registrar string) error
	RemoveRegistrar(ctx context.Context, registrar string) error
	IsRegistrar(ctx context.Context, registrar string) (bool, error)
	ListRegistrars(ctx context.Context) ([]string, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage = outbox.Message

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
