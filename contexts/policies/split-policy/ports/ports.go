package ports

import (
	"context"
	"time"

	contractsv1 "tessera/contracts/gen/events/v1"
	"tessera/contexts/policies/split-policy/domain/entities"
	"tessera/internal/shared/outbox"
)

// CreateInstanceInput seeds a new policy instance. The factory context is
// the usual caller.
type CreateInstanceInput struct {
	Node                  string
	Owner                 string
	FundingAccount        string
	FallbackRecipient     string
	AcceptedAssets        []string
	AutoDistribute        bool
	RequireFullAllocation bool
}

// AddRuleInput carries one new split rule.
type AddRuleInput struct {
	Recipient     string
	PercentageBps int64
	FixedAmount   int64
	MinAmount     int64
	MaxAmount     int64
	Label         string
}

// UpdateRuleInput mutates an existing rule in place.
type UpdateRuleInput struct {
	Recipient     string
	PercentageBps int64
	FixedAmount   int64
	MinAmount     int64
	MaxAmount     int64
	Label         string
	Active        bool
}

// AddTierInput appends one tier; tiers keep insertion order.
type AddTierInput struct {
	Threshold     int64
	PercentageBps int64
}

// MakePaymentInput records one incoming payment.
type MakePaymentInput struct {
	Payer     string
	Asset     string
	Amount    int64
	SplitType string
	Memo      string
}

// Repository persists policy instances and their append-only ledgers.
type Repository interface {
	CreateInstance(ctx context.Context, instance entities.Instance) error
	GetInstance(ctx context.Context, instanceID string) (entities.Instance, error)
	UpdateInstance(ctx context.Context, instance entities.Instance) error

	AppendPayment(ctx context.Context, payment entities.Payment) (int, error)
	GetPayment(ctx context.Context, instanceID string, index int) (entities.Payment, error)
	ListPayments(ctx context.Context, instanceID string, limit int, offset int) ([]entities.Payment, error)
	SetPaymentSplitCount(ctx context.Context, instanceID string, index int, splitCount int) error

	AppendDistributions(ctx context.Context, legs []entities.Distribution) error
	ListDistributions(ctx context.Context, instanceID string, limit int, offset int) ([]entities.Distribution, error)

	AddToRecipientBalance(ctx context.Context, instanceID string, recipient string, asset string, amount int64) error
	GetRecipientBalance(ctx context.Context, instanceID string, recipient string, asset string) (entities.RecipientBalance, error)
	ListRecipientBalances(ctx context.Context, instanceID string) ([]entities.RecipientBalance, error)
}

// AssetTransfer is the opaque asset-movement capability. A returned error
// wrapping ErrUnrecoverable (see platform ledger) aborts the whole
// surrounding operation; any other error fails only the leg in question.
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
