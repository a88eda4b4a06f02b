package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"tessera/contexts/policies/split-policy/domain/entities"
	domainerrors "tessera/contexts/policies/split-policy/domain/errors"
	"tessera/contexts/policies/split-policy/domain/services"
	"tessera/contexts/policies/split-policy/ports"
	"tessera/internal/shared/ledger"
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

// CreateInstance provisions a fresh policy instance. Owner and funding
// account are required; everything else has workable defaults.
func (s Service) CreateInstance(ctx context.Context, input ports.CreateInstanceInput) (entities.Instance, error) {
	if strings.TrimSpace(input.Owner) == "" || strings.TrimSpace(input.FundingAccount) == "" {
		return entities.Instance{}, domainerrors.ErrInvalidInput
	}

	instanceID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Instance{}, err
	}
	now := s.now()
	instance := entities.Instance{
		ID:                    strings.TrimSpace(instanceID),
		Node:                  strings.TrimSpace(input.Node),
		Owner:                 strings.TrimSpace(input.Owner),
		FundingAccount:        strings.TrimSpace(input.FundingAccount),
		FallbackRecipient:     strings.TrimSpace(input.FallbackRecipient),
		AcceptedAssets:        trimAll(input.AcceptedAssets),
		AutoDistribute:        input.AutoDistribute,
		RequireFullAllocation: input.RequireFullAllocation,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.Repo.CreateInstance(ctx, instance); err != nil {
		return entities.Instance{}, err
	}
	return instance, nil
}

// AddRule appends a split rule. Each recipient may hold at most one rule.
// Full-allocation instances additionally reject rule sets whose active
// percentages would exceed 10000.
func (s Service) AddRule(ctx context.Context, instanceID string, actor string, input ports.AddRuleInput) (entities.Instance, error) {
	instance, err := s.requireManager(ctx, instanceID, actor)
	if err != nil {
		return entities.Instance{}, err
	}
	if err := validateRuleInput(input.PercentageBps, input.FixedAmount, input.MinAmount, input.MaxAmount); err != nil {
		return entities.Instance{}, err
	}
	recipient := strings.TrimSpace(input.Recipient)
	if recipient == "" {
		return entities.Instance{}, domainerrors.ErrInvalidInput
	}
	for _, rule := range instance.Rules {
		if rule.Recipient == recipient {
			return entities.Instance{}, domainerrors.ErrDuplicateRecipient
		}
	}
	if instance.RequireFullAllocation &&
		instance.ActivePercentageSum()+input.PercentageBps > money.FullAllocation {
		return entities.Instance{}, domainerrors.ErrInvalidPercentage
	}

	instance.Rules = append(instance.Rules, entities.SplitRule{
		Recipient:     recipient,
		PercentageBps: input.PercentageBps,
		FixedAmount:   input.FixedAmount,
		MinAmount:     input.MinAmount,
		MaxAmount:     input.MaxAmount,
		Active:        true,
		Label:         strings.TrimSpace(input.Label),
		AddedAt:       s.now(),
	})
	instance.UpdatedAt = s.now()
	if err := s.Repo.UpdateInstance(ctx, instance); err != nil {
		return entities.Instance{}, err
	}
	return instance, nil
}

// UpdateRule mutates a rule in place. Percentage bounds are re-validated;
// aggregate-sum invariants are not re-checked here, matching the rule
// model's contract.
func (s Service) UpdateRule(ctx context.Context, instanceID string, actor string, input ports.UpdateRuleInput) (entities.Instance, error) {
	instance, err := s.requireManager(ctx, instanceID, actor)
	if err != nil {
		return entities.Instance{}, err
	}
	if err := validateRuleInput(input.PercentageBps, input.FixedAmount, input.MinAmount, input.MaxAmount); err != nil {
		return entities.Instance{}, err
	}
	recipient := strings.TrimSpace(input.Recipient)
	for i := range instance.Rules {
		if instance.Rules[i].Recipient != recipient {
			continue
		}
		instance.Rules[i].PercentageBps = input.PercentageBps
		instance.Rules[i].FixedAmount = input.FixedAmount
		instance.Rules[i].MinAmount = input.MinAmount
		instance.Rules[i].MaxAmount = input.MaxAmount
		instance.Rules[i].Label = strings.TrimSpace(input.Label)
		instance.Rules[i].Active = input.Active
		instance.UpdatedAt = s.now()
		if err := s.Repo.UpdateInstance(ctx, instance); err != nil {
			return entities.Instance{}, err
		}
		return instance, nil
	}
	return entities.Instance{}, domainerrors.ErrRuleNotFound
}

// DeactivateRule flips a rule inactive without removing it.
func (s Service) DeactivateRule(ctx context.Context, instanceID string, actor string, recipient string) (entities.Instance, error) {
	instance, err := s.requireManager(ctx, instanceID, actor)
	if err != nil {
		return entities.Instance{}, err
	}
	recipient = strings.TrimSpace(recipient)
	for i := range instance.Rules {
		if instance.Rules[i].Recipient != recipient {
			continue
		}
		instance.Rules[i].Active = false
		instance.UpdatedAt = s.now()
		if err := s.Repo.UpdateInstance(ctx, instance); err != nil {
			return entities.Instance{}, err
		}
		return instance, nil
	}
	return entities.Instance{}, domainerrors.ErrRuleNotFound
}

// AddTier appends a tier in storage order. Tier selection is last match
// wins over that order, so callers control semantics by append order.
func (s Service) AddTier(ctx context.Context, instanceID string, actor string, input ports.AddTierInput) (entities.Instance, error) {
	instance, err := s.requireManager(ctx, instanceID, actor)
	if err != nil {
		return entities.Instance{}, err
	}
	if !money.ValidBasisPoints(input.PercentageBps) {
		return entities.Instance{}, domainerrors.ErrInvalidPercentage
	}
	if input.Threshold < 0 {
		return entities.Instance{}, domainerrors.ErrInvalidInput
	}
	instance.Tiers = append(instance.Tiers, entities.Tier{
		Threshold:     input.Threshold,
		PercentageBps: input.PercentageBps,
		Active:        true,
	})
	instance.UpdatedAt = s.now()
	if err := s.Repo.UpdateInstance(ctx, instance); err != nil {
		return entities.Instance{}, err
	}
	return instance, nil
}

// SetTierActive toggles a tier by index.
func (s Service) SetTierActive(ctx context.Context, instanceID string, actor string, index int, active bool) (entities.Instance, error) {
	instance, err := s.requireManager(ctx, instanceID, actor)
	if err != nil {
		return entities.Instance{}, err
	}
	if index < 0 || index >= len(instance.Tiers) {
		return entities.Instance{}, domainerrors.ErrTierNotFound
	}
	instance.Tiers[index].Active = active
	instance.UpdatedAt = s.now()
	if err := s.Repo.UpdateInstance(ctx, instance); err != nil {
		return entities.Instance{}, err
	}
	return instance, nil
}

// GrantManager and RevokeManager are owner-only role mutations.
func (s Service) GrantManager(ctx context.Context, instanceID string, actor string, manager string) (entities.Instance, error) {
	instance, err := s.requireOwner(ctx, instanceID, actor)
	if err != nil {
		return entities.Instance{}, err
	}
	manager = strings.TrimSpace(manager)
	if manager == "" {
		return entities.Instance{}, domainerrors.ErrInvalidInput
	}
	for _, m := range instance.Managers {
		if m == manager {
			return instance, nil
		}
	}
	instance.Managers = append(instance.Managers, manager)
	instance.UpdatedAt = s.now()
	if err := s.Repo.UpdateInstance(ctx, instance); err != nil {
		return entities.Instance{}, err
	}
	return instance, nil
}

func (s Service) RevokeManager(ctx context.Context, instanceID string, actor string, manager string) (entities.Instance, error) {
	instance, err := s.requireOwner(ctx, instanceID, actor)
	if err != nil {
		return entities.Instance{}, err
	}
	manager = strings.TrimSpace(manager)
	kept := instance.Managers[:0]
	for _, m := range instance.Managers {
		if m != manager {
			kept = append(kept, m)
		}
	}
	instance.Managers = kept
	instance.UpdatedAt = s.now()
	if err := s.Repo.UpdateInstance(ctx, instance); err != nil {
		return entities.Instance{}, err
	}
	return instance, nil
}

// SetAcceptedAssets replaces the instance's asset allowlist (owner-only).
func (s Service) SetAcceptedAssets(ctx context.Context, instanceID string, actor string, assets []string) (entities.Instance, error) {
	instance, err := s.requireOwner(ctx, instanceID, actor)
	if err != nil {
		return entities.Instance{}, err
	}
	instance.AcceptedAssets = trimAll(assets)
	instance.UpdatedAt = s.now()
	if err := s.Repo.UpdateInstance(ctx, instance); err != nil {
		return entities.Instance{}, err
	}
	return instance, nil
}

// MakePayment records an incoming payment and, when the instance is set to
// auto-distribute, immediately runs the distribution engine on it.
func (s Service) MakePayment(ctx context.Context, instanceID string, input ports.MakePaymentInput) (entities.Payment, *entities.DistributionResult, error) {
	instance, err := s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return entities.Payment{}, nil, err
	}
	if !s.Guard.Enter(instance.ID) {
		return entities.Payment{}, nil, domainerrors.ErrReentrantCall
	}
	defer s.Guard.Exit(instance.ID)

	if input.Amount <= 0 {
		return entities.Payment{}, nil, domainerrors.ErrZeroAmount
	}
	if err := money.ValidateAmount(input.Amount); err != nil {
		return entities.Payment{}, nil, domainerrors.ErrInvalidInput
	}
	asset := strings.TrimSpace(input.Asset)
	payer := strings.TrimSpace(input.Payer)
	if asset == "" || payer == "" {
		return entities.Payment{}, nil, domainerrors.ErrInvalidInput
	}
	if !instance.AcceptsAsset(asset) {
		return entities.Payment{}, nil, domainerrors.ErrAssetNotAccepted
	}

	payment := entities.Payment{
		InstanceID: instance.ID,
		Payer:      payer,
		Asset:      asset,
		Amount:     input.Amount,
		SplitType:  entities.NormalizeSplitType(input.SplitType),
		Memo:       strings.TrimSpace(input.Memo),
		ReceivedAt: s.now(),
	}
	index, err := s.Repo.AppendPayment(ctx, payment)
	if err != nil {
		return entities.Payment{}, nil, err
	}
	payment.Index = index

	s.emitEvent(ctx, "payment.received", instance.ID, map[string]any{
		"instance_id":   instance.ID,
		"payment_index": index,
		"payer":         payment.Payer,
		"asset":         payment.Asset,
		"amount":        payment.Amount,
		"split_type":    string(payment.SplitType),
	})

	if !instance.AutoDistribute {
		return payment, nil, nil
	}
	result, err := s.distribute(ctx, instance, payment)
	if err != nil {
		return payment, nil, err
	}
	payment.SplitCount = countPaidLegs(result.Legs)
	return payment, &result, nil
}

// DistributePayment is the manual trigger used when auto-distribute is off.
func (s Service) DistributePayment(ctx context.Context, instanceID string, paymentIndex int) (entities.DistributionResult, error) {
	instance, err := s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return entities.DistributionResult{}, err
	}
	if !s.Guard.Enter(instance.ID) {
		return entities.DistributionResult{}, domainerrors.ErrReentrantCall
	}
	defer s.Guard.Exit(instance.ID)

	payment, err := s.Repo.GetPayment(ctx, instance.ID, paymentIndex)
	if err != nil {
		return entities.DistributionResult{}, err
	}
	return s.distribute(ctx, instance, payment)
}

// distribute applies the split calculator's output as an ordered sequence
// of individually-fallible transfers. A failed leg is skipped, recorded on
// the result and the engine continues; an unrecoverable host fault aborts
// the whole call with already-applied legs compensated and nothing
// persisted. The remainder goes to the fallback recipient when one is
// configured, and that transfer's failure is fatal.
func (s Service) distribute(ctx context.Context, instance entities.Instance, payment entities.Payment) (entities.DistributionResult, error) {
	if payment.SplitCount > 0 {
		return entities.DistributionResult{}, domainerrors.ErrAlreadyDistributed
	}
	if instance.RequireFullAllocation &&
		payment.SplitType == entities.SplitTypePercentage &&
		instance.ActivePercentageSum() != money.FullAllocation {
		return entities.DistributionResult{}, domainerrors.ErrAllocationIncomplete
	}

	shares, err := services.CalculateSplit(instance, payment.Amount, payment.SplitType)
	if err != nil {
		return entities.DistributionResult{}, err
	}

	now := s.now()
	result := entities.DistributionResult{
		InstanceID:   instance.ID,
		PaymentIndex: payment.Index,
		SplitType:    payment.SplitType,
		Legs:         make([]entities.LegResult, 0, len(shares)),
		CompletedAt:  now,
	}

	var paid []entities.Distribution
	for _, share := range shares {
		if share.Amount <= 0 {
			result.Legs = append(result.Legs, entities.LegResult{
				Recipient: share.Recipient,
				Amount:    share.Amount,
				Status:    entities.LegStatusSkipped,
			})
			continue
		}
		err := s.Transfer.Transfer(ctx, payment.Asset, instance.FundingAccount, share.Recipient, share.Amount)
		if err != nil {
			if !ledger.Recoverable(err) {
				s.compensate(ctx, payment.Asset, instance.FundingAccount, paid)
				return entities.DistributionResult{}, err
			}
			ResolveLogger(s.Logger).Warn("distribution leg failed",
				"event", "split_policy_leg_failed",
				"module", "policies/split-policy",
				"layer", "application",
				"instance_id", instance.ID,
				"payment_index", payment.Index,
				"recipient", share.Recipient,
				"amount", share.Amount,
				"error", err.Error(),
			)
			result.Legs = append(result.Legs, entities.LegResult{
				Recipient: share.Recipient,
				Amount:    share.Amount,
				Status:    entities.LegStatusFailed,
				Error:     err.Error(),
			})
			continue
		}
		paid = append(paid, entities.Distribution{
			InstanceID:    instance.ID,
			PaymentIndex:  payment.Index,
			Recipient:     share.Recipient,
			Asset:         payment.Asset,
			Amount:        share.Amount,
			DistributedAt: now,
		})
		result.Legs = append(result.Legs, entities.LegResult{
			Recipient: share.Recipient,
			Amount:    share.Amount,
			Status:    entities.LegStatusPaid,
		})
		result.TotalDistributed += share.Amount
	}

	result.Remainder = payment.Amount - result.TotalDistributed
	if result.Remainder > 0 && instance.FallbackRecipient != "" {
		err := s.Transfer.Transfer(ctx, payment.Asset, instance.FundingAccount, instance.FallbackRecipient, result.Remainder)
		if err != nil {
			// Remainder routing is not best-effort: its failure fails the
			// whole distribution.
			s.compensate(ctx, payment.Asset, instance.FundingAccount, paid)
			if ledger.Recoverable(err) {
				return entities.DistributionResult{}, domainerrors.ErrRemainderTransferFailed
			}
			return entities.DistributionResult{}, err
		}
		result.RemainderRecipient = instance.FallbackRecipient
		result.RemainderRouted = true
		paid = append(paid, entities.Distribution{
			InstanceID:    instance.ID,
			PaymentIndex:  payment.Index,
			Recipient:     instance.FallbackRecipient,
			Asset:         payment.Asset,
			Amount:        result.Remainder,
			DistributedAt: now,
		})
		result.TotalDistributed += result.Remainder
	}

	if err := s.Repo.AppendDistributions(ctx, paid); err != nil {
		return entities.DistributionResult{}, err
	}
	for _, leg := range paid {
		if err := s.Repo.AddToRecipientBalance(ctx, instance.ID, leg.Recipient, leg.Asset, leg.Amount); err != nil {
			return entities.DistributionResult{}, err
		}
	}
	if err := s.Repo.SetPaymentSplitCount(ctx, instance.ID, payment.Index, countPaidLegs(result.Legs)); err != nil {
		return entities.DistributionResult{}, err
	}

	s.emitEvent(ctx, "distribution.completed", instance.ID, map[string]any{
		"instance_id":       instance.ID,
		"payment_index":     payment.Index,
		"total_distributed": result.TotalDistributed,
		"remainder":         result.Remainder,
		"remainder_routed":  result.RemainderRouted,
		"paid_legs":         countPaidLegs(result.Legs),
	})

	ResolveLogger(s.Logger).Info("distribution completed",
		"event", "split_policy_distribution_completed",
		"module", "policies/split-policy",
		"layer", "application",
		"instance_id", instance.ID,
		"payment_index", payment.Index,
		"total_distributed", result.TotalDistributed,
		"remainder", result.Remainder,
	)
	return result, nil
}

// compensate reverses already-applied legs after an unrecoverable fault so
// the operation unwinds as a unit. Reversal failures are logged, not
// surfaced: the host fault is already the caller's error.
func (s Service) compensate(ctx context.Context, asset string, fundingAccount string, paid []entities.Distribution) {
	for i := len(paid) - 1; i >= 0; i-- {
		leg := paid[i]
		if err := s.Transfer.Transfer(ctx, asset, leg.Recipient, fundingAccount, leg.Amount); err != nil {
			ResolveLogger(s.Logger).Error("leg compensation failed",
				"event", "split_policy_compensation_failed",
				"module", "policies/split-policy",
				"layer", "application",
				"instance_id", leg.InstanceID,
				"payment_index", leg.PaymentIndex,
				"recipient", leg.Recipient,
				"amount", leg.Amount,
				"error", err.Error(),
			)
		}
	}
}

// PreviewSplit is the read-only simulation over current rule state.
func (s Service) PreviewSplit(ctx context.Context, instanceID string, amount int64, splitType string) ([]entities.Share, int64, error) {
	instance, err := s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return nil, 0, err
	}
	shares, err := services.CalculateSplit(instance, amount, entities.NormalizeSplitType(splitType))
	if err != nil {
		return nil, 0, err
	}
	return shares, amount - services.SumShares(shares), nil
}

func (s Service) GetInstance(ctx context.Context, instanceID string) (entities.Instance, error) {
	return s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
}

func (s Service) GetPaymentHistory(ctx context.Context, instanceID string, limit int, offset int) ([]entities.Payment, error) {
	limit, offset = normalizePage(limit, offset)
	return s.Repo.ListPayments(ctx, strings.TrimSpace(instanceID), limit, offset)
}

func (s Service) GetDistributionHistory(ctx context.Context, instanceID string, limit int, offset int) ([]entities.Distribution, error) {
	limit, offset = normalizePage(limit, offset)
	return s.Repo.ListDistributions(ctx, strings.TrimSpace(instanceID), limit, offset)
}

func (s Service) GetRecipientBalance(ctx context.Context, instanceID string, recipient string, asset string) (entities.RecipientBalance, error) {
	return s.Repo.GetRecipientBalance(ctx, strings.TrimSpace(instanceID), strings.TrimSpace(recipient), strings.TrimSpace(asset))
}

func (s Service) ListRecipientBalances(ctx context.Context, instanceID string) ([]entities.RecipientBalance, error) {
	return s.Repo.ListRecipientBalances(ctx, strings.TrimSpace(instanceID))
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

func (s Service) requireManager(ctx context.Context, instanceID string, actor string) (entities.Instance, error) {
	instance, err := s.Repo.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return entities.Instance{}, err
	}
	if !instance.IsManager(strings.TrimSpace(actor)) {
		return entities.Instance{}, domainerrors.ErrNotManager
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
		SourceService:    "split-policy",
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

func validateRuleInput(percentageBps int64, fixedAmount int64, minAmount int64, maxAmount int64) error {
	if !money.ValidBasisPoints(percentageBps) {
		return domainerrors.ErrInvalidPercentage
	}
	if fixedAmount < 0 || minAmount < 0 || maxAmount < 0 {
		return domainerrors.ErrInvalidInput
	}
	if maxAmount > 0 && maxAmount < minAmount {
		return domainerrors.ErrInvalidAmountWindow
	}
	return nil
}

func countPaidLegs(legs []entities.LegResult) int {
	count := 0
	for _, leg := range legs {
		if leg.Status == entities.LegStatusPaid {
			count++
		}
	}
	return count
}

func normalizePage(limit int, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
