package ports

import (
	"context"
	"time"

	contractsv1 "tessera/contracts/gen/events/v1"
	"tessera/contexts/policies/savings-policy/domain/entities"
	"tessera/internal/shared/outbox"
)

// CreateInstanceInput seeds a new savings policy instance.
type CreateInstanceInput struct {
	Node            string
	Owner           string
	Guardian        string
	VaultAccount    string
	FeeRecipient    string
	EmergencyFeeBps int64
	TimeLockDelay   time.Duration
}

// CreateGoalInput opens a goal under an instance.
type CreateGoalInput struct {
	Label          string
	Asset          string
	TargetAmount   int64
	Deadline       *time.Time
	WithdrawalType string
}

// ContributeInput funds a goal.
type ContributeInput struct {
	GoalID      string
	Contributor string
	Amount      int64
}

// WithdrawInput drains part of a goal. Emergency marks the withdrawal as
// emergency regardless of the goal's restriction kind; EmergencyOnly goals
// are always emergency withdrawals.
type WithdrawInput struct {
	GoalID    string
	Actor     string
	Amount    int64
	Emergency bool
}

// AutoDepositInput configures the recurring contribution for a goal.
type AutoDepositInput struct {
	GoalID   string
	Amount   int64
	Interval time.Duration
}

// Repository persists instances, goals and their append-only histories.
type Repository interface {
	CreateInstance(ctx context.Context, instance entities.Instance) error
	GetInstance(ctx context.Context, instanceID string) (entities.Instance, error)
	UpdateInstance(ctx context.Context, instance entities.Instance) error

	CreateGoal(ctx context.Context, goal entities.SavingsGoal) error
	GetGoal(ctx context.Context, instanceID string, goalID string) (entities.SavingsGoal, error)
	UpdateGoal(ctx context.Context, goal entities.SavingsGoal) error
	ListGoals(ctx context.Context, instanceID string) ([]entities.SavingsGoal, error)
	ListAutoDepositGoals(ctx context.Context, now time.Time, limit int) ([]entities.SavingsGoal, error)

	AppendContribution(ctx context.Context, contribution entities.Contribution) error
	ListContributions(ctx context.Context, instanceID string, goalID string, limit int, offset int) ([]entities.Contribution, error)
	AppendWithdrawal(ctx context.Context, withdrawal entities.Withdrawal) error
	ListWithdrawals(ctx context.Context, instanceID string, goalID string, limit int, offset int) ([]entities.Withdrawal, error)
}

// AssetTransfer is the opaque asset-movement capability shared with the
// other policy engines.
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
