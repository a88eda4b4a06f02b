package ports

import (
	"context"
	"time"

	contractsv1 "tessera/contracts/gen/events/v1"
	"tessera/contexts/policies/fee-policy/domain/entities"
	"tessera/internal/shared/outbox"
)

// CreateInstanceInput seeds a new fee policy instance.
type CreateInstanceInput struct {
	Node              string
	Owner             string
	CollectionAccount string
}

// CreateScheduleInput opens an installment schedule under an instance.
type CreateScheduleInput struct {
	Payer            string
	Label            string
	Asset            string
	TotalAmount      int64
	InstallmentCount int
	DueDate          time.Time
	GracePeriod      time.Duration
	LateFeeBps       int64
}

// PayInstallmentInput pays part of a schedule.
type PayInstallmentInput struct {
	ScheduleID string
	Payer      string
	Amount     int64
}

// Repository persists instances, schedules and the append-only installment
// history.
type Repository interface {
	CreateInstance(ctx context.Context, instance entities.Instance) error
	GetInstance(ctx context.Context, instanceID string) (entities.Instance, error)

	CreateSchedule(ctx context.Context, schedule entities.FeeSchedule) error
	GetSchedule(ctx context.Context, instanceID string, scheduleID string) (entities.FeeSchedule, error)
	UpdateSchedule(ctx context.Context, schedule entities.FeeSchedule) error
	ListSchedules(ctx context.Context, instanceID string) ([]entities.FeeSchedule, error)
	ListOverdueCandidates(ctx context.Context, now time.Time, limit int) ([]entities.FeeSchedule, error)

	AppendInstallment(ctx context.Context, installment entities.Installment) error
	ListInstallments(ctx context.Context, instanceID string, scheduleID string, limit int, offset int) ([]entities.Installment, error)
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
