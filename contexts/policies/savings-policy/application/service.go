package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"tessera/contexts/policies/savings-policy/domain/entities"
	domainerrors "tessera/contexts/policies/savings-policy/domain/errors"
	"tessera/contexts/policies/savings-policy/ports"
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
	if strings.TrimSpace(input.Owner) == "" || strings.TrimSpace(input.VaultAccount) == "" {
		return entities.Instance{}, domainerrors.ErrInvalidInput
	}
	if !money.ValidBasisPoints(input.EmergencyFeeBps) {
		return entities.Instance{}, domainerrors.ErrInvalidFee
	}
	if input.EmergencyFeeBps > 0 && strings.TrimSpace(input.FeeRecipient) == "" {
		return entities.Instance{}, domainerrors.ErrInvalidInput
	}

	instanceID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Instance{}, err
	}
	now := s.now()
	instance := entities.Instance{
		ID:              strings.TrimSpace(instanceID),
		Node:            strings.TrimSpace(input.Node),
		Owner:           strings.TrimSpace(input.Owner),
		Guardian:        strings.TrimSpace(input.Guardian),
		VaultAccount:    strings.TrimSpace(input.VaultAccount),
		FeeRecipient:    strings.TrimSpace(input.FeeRecipient),
		EmergencyFeeBps: input.EmergencyFeeBps,
		TimeLockDelay:   input.TimeLockDelay,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.CreateInstance(ctx, instance); err != nil {
		return entities.Instance{}, err
	}
	return instance, nil
}

func (s Service) CreateGoal(ctx context.Context, instanceID string, actor string, input ports.CreateGoalInput) (entities.SavingsGoal, error) {
	instance, err := s.requireActor(ctx, instanceID, actor)
	if err != nil {
		return entities.SavingsGoal{}, err
	}
	if input.TargetAmount <= 0 || strings.TrimSpace(input.Asset) == "" {
		return entities.SavingsGoal{}, domainerrors.ErrInvalidInput
	}
	if err := money.ValidateAmount(input.TargetAmount); err != nil {
		return entities.SavingsGoal{}, domainerrors.ErrInvalidInput
	}
	withdrawalType := strings.TrimSpace(input.WithdrawalType)
	if withdrawalType == "" {
		withdrawalType = string(entities.WithdrawalUnrestricted)
	}
	if !entities.ValidWithdrawalType(withdrawalType) {
		return entities.SavingsGoal{}, domainerrors.ErrInvalidWithdrawalType
	}

	goalID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.SavingsGoal{}, err
	}
	now := s.now()
	goal := entities.SavingsGoal{
		ID:             strings.TrimSpace(goalID),
		InstanceID:     instance.ID,
		Label:          strings.TrimSpace(input.Label),
		Asset:          strings.TrimSpace(input.Asset),
		TargetAmount:   input.TargetAmount,
		Deadline:       input.Deadline,
		Status:         entities.GoalStatusActive,
		WithdrawalType: entities.WithdrawalType(withdrawalType),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.CreateGoal(ctx, goal); err != nil {
		return entities.SavingsGoal{}, err
	}
	return goal, nil
}

// Contribute funds a goal from the contributor's account. A contribution
// that lifts CurrentAmount to the target completes the goal; completion is
// irreversible on this path.
func (s Service) Contribute(ctx context.Context, instanceID string, input ports.ContributeInput) (entities.SavingsGoal, error) {
	instance, err := s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return entities.SavingsGoal{}, err
	}
	if !s.Guard.Enter(instance.ID) {
		return entities.SavingsGoal{}, domainerrors.ErrReentrantCall
	}
	defer s.Guard.Exit(instance.ID)
	return s.contribute(ctx, instance, input)
}

// contribute is the guard-free inner path shared with the auto-deposit
// worker.
func (s Service) contribute(ctx context.Context, instance entities.Instance, input ports.ContributeInput) (entities.SavingsGoal, error) {
	if input.Amount <= 0 {
		return entities.SavingsGoal{}, domainerrors.ErrZeroAmount
	}
	if err := money.ValidateAmount(input.Amount); err != nil {
		return entities.SavingsGoal{}, domainerrors.ErrInvalidInput
	}
	contributor := strings.TrimSpace(input.Contributor)
	if contributor == "" {
		return entities.SavingsGoal{}, domainerrors.ErrInvalidInput
	}

	goal, err := s.Repo.GetGoal(ctx, instance.ID, strings.TrimSpace(input.GoalID))
	if err != nil {
		return entities.SavingsGoal{}, err
	}
	if goal.Status != entities.GoalStatusActive {
		return entities.SavingsGoal{}, domainerrors.ErrGoalNotActive
	}

	if err := s.Transfer.Transfer(ctx, goal.Asset, contributor, instance.VaultAccount, input.Amount); err != nil {
		return entities.SavingsGoal{}, err
	}

	now := s.now()
	goal.CurrentAmount += input.Amount
	if goal.CurrentAmount >= goal.TargetAmount {
		goal.Status = entities.GoalStatusCompleted
	}
	goal.UpdatedAt = now
	if err := s.Repo.UpdateGoal(ctx, goal); err != nil {
		return entities.SavingsGoal{}, err
	}
	if err := s.Repo.AppendContribution(ctx, entities.Contribution{
		InstanceID:    instance.ID,
		GoalID:        goal.ID,
		Contributor:   contributor,
		Amount:        input.Amount,
		ContributedAt: now,
	}); err != nil {
		return entities.SavingsGoal{}, err
	}

	if goal.Status == entities.GoalStatusCompleted {
		s.emitEvent(ctx, "goal.completed", instance.ID, map[string]any{
			"instance_id":    instance.ID,
			"goal_id":        goal.ID,
			"target_amount":  goal.TargetAmount,
			"current_amount": goal.CurrentAmount,
		})
	}
	return goal, nil
}

// Withdraw drains part of a goal subject to its restriction kind. An
// emergency withdrawal (explicit flag, or any withdrawal from an
// EmergencyOnly goal) pays the configured fee to the fee recipient; all
// other withdrawals are fee-free. Draining an active goal to zero cancels
// it.
func (s Service) Withdraw(ctx context.Context, instanceID string, input ports.WithdrawInput) (entities.SavingsGoal, entities.Withdrawal, error) {
	instance, err := s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return entities.SavingsGoal{}, entities.Withdrawal{}, err
	}
	if !s.Guard.Enter(instance.ID) {
		return entities.SavingsGoal{}, entities.Withdrawal{}, domainerrors.ErrReentrantCall
	}
	defer s.Guard.Exit(instance.ID)

	actor := strings.TrimSpace(input.Actor)
	if !instance.CanAct(actor) {
		return entities.SavingsGoal{}, entities.Withdrawal{}, domainerrors.ErrNotOwnerOrGuardian
	}
	if input.Amount <= 0 {
		return entities.SavingsGoal{}, entities.Withdrawal{}, domainerrors.ErrZeroAmount
	}

	goal, err := s.Repo.GetGoal(ctx, instance.ID, strings.TrimSpace(input.GoalID))
	if err != nil {
		return entities.SavingsGoal{}, entities.Withdrawal{}, err
	}
	if goal.Status == entities.GoalStatusCancelled {
		return entities.SavingsGoal{}, entities.Withdrawal{}, domainerrors.ErrGoalNotFound
	}
	if input.Amount > goal.CurrentAmount {
		return entities.SavingsGoal{}, entities.Withdrawal{}, domainerrors.ErrExceedsGoalFunds
	}

	now := s.now()
	emergency := input.Emergency || goal.WithdrawalType == entities.WithdrawalEmergencyOnly
	if err := s.gateWithdrawal(instance, goal, now); err != nil {
		return entities.SavingsGoal{}, entities.Withdrawal{}, err
	}

	var fee int64
	if emergency && instance.EmergencyFeeBps > 0 {
		fee, err = money.ApplyBasisPoints(input.Amount, instance.EmergencyFeeBps)
		if err != nil {
			return entities.SavingsGoal{}, entities.Withdrawal{}, domainerrors.ErrInvalidFee
		}
	}

	net := input.Amount - fee
	if net > 0 {
		if err := s.Transfer.Transfer(ctx, goal.Asset, instance.VaultAccount, actor, net); err != nil {
			return entities.SavingsGoal{}, entities.Withdrawal{}, err
		}
	}
	if fee > 0 {
		if err := s.Transfer.Transfer(ctx, goal.Asset, instance.VaultAccount, instance.FeeRecipient, fee); err != nil {
			// Unwind the net leg so the vault stays whole.
			_ = s.Transfer.Transfer(ctx, goal.Asset, actor, instance.VaultAccount, net)
			return entities.SavingsGoal{}, entities.Withdrawal{}, err
		}
	}

	goal.CurrentAmount -= input.Amount
	if goal.CurrentAmount == 0 && goal.Status == entities.GoalStatusActive {
		goal.Status = entities.GoalStatusCancelled
	}
	goal.UpdatedAt = now
	if err := s.Repo.UpdateGoal(ctx, goal); err != nil {
		return entities.SavingsGoal{}, entities.Withdrawal{}, err
	}

	withdrawal := entities.Withdrawal{
		InstanceID:  instance.ID,
		GoalID:      goal.ID,
		Actor:       actor,
		Amount:      input.Amount,
		FeeAmount:   fee,
		Emergency:   emergency,
		WithdrawnAt: now,
	}
	if err := s.Repo.AppendWithdrawal(ctx, withdrawal); err != nil {
		return entities.SavingsGoal{}, entities.Withdrawal{}, err
	}

	if goal.Status == entities.GoalStatusCancelled {
		s.emitEvent(ctx, "goal.cancelled", instance.ID, map[string]any{
			"instance_id": instance.ID,
			"goal_id":     goal.ID,
		})
	}

	ResolveLogger(s.Logger).Info("withdrawal settled",
		"event", "savings_policy_withdrawal_settled",
		"module", "policies/savings-policy",
		"layer", "application",
		"instance_id", instance.ID,
		"goal_id", goal.ID,
		"amount", input.Amount,
		"fee", fee,
		"emergency", emergency,
	)
	return goal, withdrawal, nil
}

// gateWithdrawal enforces the goal's restriction kind. The time lock is
// inclusive: a withdrawal exactly at createdAt+delay passes.
func (s Service) gateWithdrawal(instance entities.Instance, goal entities.SavingsGoal, now time.Time) error {
	switch goal.WithdrawalType {
	case entities.WithdrawalTimeLocked:
		if now.Before(goal.CreatedAt.Add(instance.TimeLockDelay)) {
			return domainerrors.ErrTimeLocked
		}
	case entities.WithdrawalGoalBased:
		if goal.Status != entities.GoalStatusCompleted {
			return domainerrors.ErrGoalIncomplete
		}
	case entities.WithdrawalEmergencyOnly:
		if !instance.EmergencyActive {
			return domainerrors.ErrEmergencyRequired
		}
	}
	return nil
}

// PauseGoal and ResumeGoal are the explicit Active <-> Paused toggle.
func (s Service) PauseGoal(ctx context.Context, instanceID string, actor string, goalID string) (entities.SavingsGoal, error) {
	instance, err := s.requireActor(ctx, instanceID, actor)
	if err != nil {
		return entities.SavingsGoal{}, err
	}
	goal, err := s.Repo.GetGoal(ctx, instance.ID, strings.TrimSpace(goalID))
	if err != nil {
		return entities.SavingsGoal{}, err
	}
	if goal.Status != entities.GoalStatusActive {
		return entities.SavingsGoal{}, domainerrors.ErrGoalNotPausable
	}
	goal.Status = entities.GoalStatusPaused
	goal.UpdatedAt = s.now()
	if err := s.Repo.UpdateGoal(ctx, goal); err != nil {
		return entities.SavingsGoal{}, err
	}
	return goal, nil
}

func (s Service) ResumeGoal(ctx context.Context, instanceID string, actor string, goalID string) (entities.SavingsGoal, error) {
	instance, err := s.requireActor(ctx, instanceID, actor)
	if err != nil {
		return entities.SavingsGoal{}, err
	}
	goal, err := s.Repo.GetGoal(ctx, instance.ID, strings.TrimSpace(goalID))
	if err != nil {
		return entities.SavingsGoal{}, err
	}
	if goal.Status != entities.GoalStatusPaused {
		return entities.SavingsGoal{}, domainerrors.ErrGoalNotResumable
	}
	goal.Status = entities.GoalStatusActive
	goal.UpdatedAt = s.now()
	if err := s.Repo.UpdateGoal(ctx, goal); err != nil {
		return entities.SavingsGoal{}, err
	}
	return goal, nil
}

// SetEmergency flips the contract-wide emergency flag.
func (s Service) SetEmergency(ctx context.Context, instanceID string, actor string, active bool) (entities.Instance, error) {
	instance, err := s.requireActor(ctx, instanceID, actor)
	if err != nil {
		return entities.Instance{}, err
	}
	instance.EmergencyActive = active
	instance.UpdatedAt = s.now()
	if err := s.Repo.UpdateInstance(ctx, instance); err != nil {
		return entities.Instance{}, err
	}
	return instance, nil
}

// ConfigureAutoDeposit sets the recurring contribution for a goal. A zero
// amount disables it.
func (s Service) ConfigureAutoDeposit(ctx context.Context, instanceID string, actor string, input ports.AutoDepositInput) (entities.SavingsGoal, error) {
	instance, err := s.requireActor(ctx, instanceID, actor)
	if err != nil {
		return entities.SavingsGoal{}, err
	}
	if input.Amount < 0 || (input.Amount > 0 && input.Interval <= 0) {
		return entities.SavingsGoal{}, domainerrors.ErrInvalidInput
	}
	goal, err := s.Repo.GetGoal(ctx, instance.ID, strings.TrimSpace(input.GoalID))
	if err != nil {
		return entities.SavingsGoal{}, err
	}
	goal.AutoDeposit = entities.AutoDeposit{
		Amount:   input.Amount,
		Interval: input.Interval,
		LastRun:  s.now(),
	}
	goal.UpdatedAt = s.now()
	if err := s.Repo.UpdateGoal(ctx, goal); err != nil {
		return entities.SavingsGoal{}, err
	}
	return goal, nil
}

// RunAutoDeposit executes one due auto-deposit, funding the goal from the
// instance owner's account. The worker calls this per due goal.
func (s Service) RunAutoDeposit(ctx context.Context, goal entities.SavingsGoal, now time.Time) error {
	instance, err := s.Repo.GetInstance(ctx, goal.InstanceID)
	if err != nil {
		return err
	}
	if !s.Guard.Enter(instance.ID) {
		return domainerrors.ErrReentrantCall
	}
	defer s.Guard.Exit(instance.ID)

	if _, err := s.contribute(ctx, instance, ports.ContributeInput{
		GoalID:      goal.ID,
		Contributor: instance.Owner,
		Amount:      goal.AutoDeposit.Amount,
	}); err != nil {
		return err
	}

	updated, err := s.Repo.GetGoal(ctx, instance.ID, goal.ID)
	if err != nil {
		return err
	}
	updated.AutoDeposit.LastRun = now
	updated.UpdatedAt = now
	return s.Repo.UpdateGoal(ctx, updated)
}

func (s Service) GetGoal(ctx context.Context, instanceID string, goalID string) (entities.SavingsGoal, error) {
	return s.Repo.GetGoal(ctx, strings.TrimSpace(instanceID), strings.TrimSpace(goalID))
}

func (s Service) ListGoals(ctx context.Context, instanceID string) ([]entities.SavingsGoal, error) {
	return s.Repo.ListGoals(ctx, strings.TrimSpace(instanceID))
}

func (s Service) ListContributions(ctx context.Context, instanceID string, goalID string, limit int, offset int) ([]entities.Contribution, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListContributions(ctx, strings.TrimSpace(instanceID), strings.TrimSpace(goalID), limit, offset)
}

func (s Service) ListWithdrawals(ctx context.Context, instanceID string, goalID string, limit int, offset int) ([]entities.Withdrawal, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListWithdrawals(ctx, strings.TrimSpace(instanceID), strings.TrimSpace(goalID), limit, offset)
}

func (s Service) requireActor(ctx context.Context, instanceID string, actor string) (entities.Instance, error) {
	instance, err := s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return entities.Instance{}, err
	}
	if !instance.CanAct(strings.TrimSpace(actor)) {
		return entities.Instance{}, domainerrors.ErrNotOwnerOrGuardian
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
		SourceService:    "savings-policy",
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
