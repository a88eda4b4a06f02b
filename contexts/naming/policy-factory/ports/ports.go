package ports

import (
	"context"
	"encoding/json"
	"time"

	contractsv1 "tessera/contracts/gen/events/v1"
	"tessera/contexts/naming/policy-factory/domain/entities"
	"tessera/internal/shared/outbox"
)

// CreatePolicyInput instantiates a policy template for a registered caller.
type CreatePolicyInput struct {
	Caller string
	Type   string
	Label  string
	Init   json.RawMessage
}

// CreatePolicyForInput instantiates a policy template for a registered
// beneficiary with the sponsor footing the creation fee.
type CreatePolicyForInput struct {
	Sponsor     string
	Beneficiary string
	Type        string
	Label       string
	Init        json.RawMessage
}

// Registry is the slice of the naming context the factory needs: binding
// checks, sub-binding registration and node precomputation.
type Registry interface {
	HasUserBinding(ctx context.Context, owner string) (bool, error)
	PolicyNode(ctx context.Context, owner string, label string) (string, error)
	BindPolicy(ctx context.Context, owner string, label string, target string) (string, error)
	ReleasePolicy(ctx context.Context, owner string, node string) error
}

// PolicyCreator initializes one policy template kind and returns the new
// instance's ID.
type PolicyCreator interface {
	CreatePolicy(ctx context.Context, owner string, node string, init json.RawMessage) (string, error)
}

// Repository persists the append-only creation record.
type Repository interface {
	AppendRecord(ctx context.Context, record entities.Record) error
	ListRecords(ctx context.Context, owner string) ([]entities.Record, error)
}

// AssetTransfer moves the creation fee into the treasury.
type AssetTransfer interface {
	Transfer(ctx context.Context, asset string, from string, to string, amount int64) error
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
