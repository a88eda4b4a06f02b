package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"tessera/contexts/policies/fee-policy/domain/entities"
	domainerrors "tessera/contexts/policies/fee-policy/domain/errors"
	"tessera/contexts/policies/fee-policy/ports"
	"tessera/internal/shared/money"
)

type Service struct {
	Repo     ports.Repository
	Transfer ports.AssetTransfer
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Guard    *EntryGuard
	Logger   *slog.Logger
}

func (s Service) CreateInstance(ctx context.Context, input ports.CreateInstanceInput) (entities.Instance, error) {
	if strings.TrimSpace(input.Owner) == "" || strings.TrimSpace(input.CollectionAccount) == "" {
		return entities.Instance{}, domainerrors.ErrInvalidInput
	}

	instanceID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Instance{}, err
	}
	now := s.now()
	instance := entities.Instance{
		ID:                strings.TrimSpace(instanceID),
		Node:              strings.TrimSpace(input.Node),
		Owner:             strings.TrimSpace(input.Owner),
		CollectionAccount: strings.TrimSpace(input.CollectionAccount),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.CreateInstance(ctx, instance); err != nil {
		return entities.Instance{}, err
	}
	return instance, nil
}

// CreateSchedule opens an installment obligation. InstallmentAmount is the
// suggested per-installment payment; payers may pay any positive amount up
// to the remaining total.
func (s Service) CreateSchedule(ctx context.Context, instanceID string, actor string, input ports.CreateScheduleInput) (entities.FeeSchedule, error) {
	instance, err := s.requireOwner(ctx, instanceID, actor)
	if err != nil {
		return entities.FeeSchedule{}, err
	}
	if strings.TrimSpace(input.Payer) == "" || strings.TrimSpace(input.Asset) == "" {
		return entities.FeeSchedule{}, domainerrors.ErrInvalidInput
	}
	if input.TotalAmount <= 0 || input.InstallmentCount <= 0 {
		return entities.FeeSchedule{}, domainerrors.ErrInvalidInput
	}
	if err := money.ValidateAmount(input.TotalAmount); err != nil {
		return entities.FeeSchedule{}, domainerrors.ErrInvalidInput
	}
	if !money.ValidBasisPoints(input.LateFeeBps) {
		return entities.FeeSchedule{}, domainerrors.ErrInvalidFeeRate
	}
	if input.DueDate.IsZero() || input.GracePeriod < 0 {
		return entities.FeeSchedule{}, domainerrors.ErrInvalidInput
	}

	scheduleID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.FeeSchedule{}, err
	}
	now := s.now()
	schedule := entities.FeeSchedule{
		ID:                strings.TrimSpace(scheduleID),
		InstanceID:        instance.ID,
		Payer:             strings.TrimSpace(input.Payer),
		Label:             strings.TrimSpace(input.Label),
		Asset:             strings.TrimSpace(input.Asset),
		TotalAmount:       input.TotalAmount,
		InstallmentCount:  input.InstallmentCount,
		InstallmentAmount: input.TotalAmount / int64(input.InstallmentCount),
		DueDate:           input.DueDate.UTC(),
		GracePeriod:       input.GracePeriod,
		LateFeeBps:        input.LateFeeBps,
		Status:            entities.ScheduleStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.CreateSchedule(ctx, schedule); err != nil {
		return entities.FeeSchedule{}, err
	}
	return schedule, nil
}

// PayInstallment settles part of a schedule into the collection account.
// The first non-full payment moves Pending to Partial; paying the total in
// full completes the schedule from any open status.
func (s Service) PayInstallment(ctx context.Context, instanceID string, input ports.PayInstallmentInput) (entities.FeeSchedule, error) {
	instance, err := s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return entities.FeeSchedule{}, err
	}
	if !s.Guard.Enter(instance.ID) {
		return entities.FeeSchedule{}, domainerrors.ErrReentrantCall
	}
	defer s.Guard.Exit(instance.ID)

	if input.Amount <= 0 {
		return entities.FeeSchedule{}, domainerrors.ErrZeroAmount
	}
	payer := strings.TrimSpace(input.Payer)
	if payer == "" {
		return entities.FeeSchedule{}, domainerrors.ErrInvalidInput
	}

	schedule, err := s.Repo.GetSchedule(ctx, instance.ID, strings.TrimSpace(input.ScheduleID))
	if err != nil {
		return entities.FeeSchedule{}, err
	}
	if !schedule.Open() {
		return entities.FeeSchedule{}, domainerrors.ErrScheduleClosed
	}
	if input.Amount > schedule.Remaining() {
		return entities.FeeSchedule{}, domainerrors.ErrExceedsRemaining
	}

	if err := s.Transfer.Transfer(ctx, schedule.Asset, payer, instance.CollectionAccount, input.Amount); err != nil {
		return entities.FeeSchedule{}, err
	}

	now := s.now()
	schedule.PaidAmount += input.Amount
	switch {
	case schedule.Remaining() == 0:
		schedule.Status = entities.ScheduleStatusCompleted
	case schedule.Status == entities.ScheduleStatusPending:
		schedule.Status = entities.ScheduleStatusPartial
	}
	schedule.UpdatedAt = now
	if err := s.Repo.UpdateSchedule(ctx, schedule); err != nil {
		return entities.FeeSchedule{}, err
	}
	if err := s.Repo.AppendInstallment(ctx, entities.Installment{
		InstanceID: instance.ID,
		ScheduleID: schedule.ID,
		Payer:      payer,
		Amount:     input.Amount,
		PaidAt:     now,
	}); err != nil {
		return entities.FeeSchedule{}, err
	}
	return schedule, nil
}

// ApplyLateFees adds remaining*rate/10000 to the total once the grace
// period has passed and marks the schedule Overdue. There is no cooldown:
// every call past grace re-applies the fee on the then-current remainder.
func (s Service) ApplyLateFees(ctx context.Context, instanceID string, scheduleID string) (entities.FeeSchedule, error) {
	instance, err := s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return entities.FeeSchedule{}, err
	}
	if !s.Guard.Enter(instance.ID) {
		return entities.FeeSchedule{}, domainerrors.ErrReentrantCall
	}
	defer s.Guard.Exit(instance.ID)

	schedule, err := s.Repo.GetSchedule(ctx, instance.ID, strings.TrimSpace(scheduleID))
	if err != nil {
		return entities.FeeSchedule{}, err
	}
	if !schedule.Open() {
		return entities.FeeSchedule{}, domainerrors.ErrScheduleClosed
	}
	now := s.now()
	if !schedule.PastGrace(now) {
		return entities.FeeSchedule{}, domainerrors.ErrNotOverdue
	}

	fee, err := money.ApplyBasisPoints(schedule.Remaining(), schedule.LateFeeBps)
	if err != nil {
		return entities.FeeSchedule{}, domainerrors.ErrInvalidFeeRate
	}
	schedule.TotalAmount += fee
	schedule.Status = entities.ScheduleStatusOverdue
	schedule.UpdatedAt = now
	if err := s.Repo.UpdateSchedule(ctx, schedule); err != nil {
		return entities.FeeSchedule{}, err
	}

	s.emitEvent(ctx, "fees.overdue", instance.ID, map[string]any{
		"instance_id":  instance.ID,
		"schedule_id":  schedule.ID,
		"late_fee":     fee,
		"total_amount": schedule.TotalAmount,
		"remaining":    schedule.Remaining(),
	})

	ResolveLogger(s.Logger).Info("late fee applied",
		"event", "fee_policy_late_fee_applied",
		"module", "policies/fee-policy",
		"layer", "application",
		"instance_id", instance.ID,
		"schedule_id", schedule.ID,
		"late_fee", fee,
	)
	return schedule, nil
}

// CancelSchedule closes an unfinished schedule.
func (s Service) CancelSchedule(ctx context.Context, instanceID string, actor string, scheduleID string) (entities.FeeSchedule, error) {
	instance, err := s.requireOwner(ctx, instanceID, actor)
	if err != nil {
		return entities.FeeSchedule{}, err
	}
	schedule, err := s.Repo.GetSchedule(ctx, instance.ID, strings.TrimSpace(scheduleID))
	if err != nil {
		return entities.FeeSchedule{}, err
	}
	if schedule.Status == entities.ScheduleStatusCompleted {
		return entities.FeeSchedule{}, domainerrors.ErrScheduleCompleted
	}
	if schedule.Status == entities.ScheduleStatusCancelled {
		return schedule, nil
	}
	schedule.Status = entities.ScheduleStatusCancelled
	schedule.UpdatedAt = s.now()
	if err := s.Repo.UpdateSchedule(ctx, schedule); err != nil {
		return entities.FeeSchedule{}, err
	}
	return schedule, nil
}

func (s Service) GetSchedule(ctx context.Context, instanceID string, scheduleID string) (entities.FeeSchedule, error) {
	return s.Repo.GetSchedule(ctx, strings.TrimSpace(instanceID), strings.TrimSpace(scheduleID))
}

func (s Service) ListSchedules(ctx context.Context, instanceID string) ([]entities.FeeSchedule, error) {
	return s.Repo.ListSchedules(ctx, strings.TrimSpace(instanceID))
}

func (s Service) ListInstallments(ctx context.Context, instanceID string, scheduleID string, limit int, offset int) ([]entities.Installment, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListInstallments(ctx, strings.TrimSpace(instanceID), strings.TrimSpace(scheduleID), limit, offset)
}

func (s Service) requireOwner(ctx context.Context, instanceID string, actor string) (entities.Instance, error) {
	instance, err := s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return entities.Instance{}, err
	}
	if !instance.IsOwner(strings.TrimSpace(actor)) {
		return entities.Instance{}, domainerrors.ErrNotOwner
	}
	return instance, nil
}

func (s Service) emitEvent(ctx context.Context, eventType string, instanceID string, payload map[string]any) {
	if s.Outbox == nil {
		return
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = s.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          strings.TrimSpace(eventID),
		EventType:        eventType,
		OccurredAt:       s.now(),
		SourceService:    "fee-policy",
		TraceID:          strings.TrimSpace(eventID),
		SchemaVersion:    1,
		PartitionKeyPath: "instance_id",
		PartitionKey:     instanceID,
		Data:             data,
	})
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
