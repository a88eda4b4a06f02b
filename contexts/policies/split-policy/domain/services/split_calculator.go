package services

import (
	"tessera/contexts/policies/split-policy/domain/entities"
	domainerrors "tessera/contexts/policies/split-policy/domain/errors"
	"tessera/internal/shared/money"
)

// CalculateSplit maps (amount, rule set, split type) to per-recipient
// shares. It is pure: given the same instance state and amount it returns
// the same recipients in the same order (rule insertion order) with the
// same amounts. The rounding remainder is never folded into a share; the
// distribution engine routes it separately.
func CalculateSplit(
	instance entities.Instance,
	amount int64,
	splitType entities.SplitType,
) ([]entities.Share, error) {
	if amount <= 0 {
		return nil, domainerrors.ErrZeroAmount
	}
	if err := money.ValidateAmount(amount); err != nil {
		return nil, domainerrors.ErrInvalidInput
	}

	switch splitType {
	case entities.SplitTypeFixedAmount:
		return calculateFixedAmount(instance, amount)
	case entities.SplitTypeTiered:
		return calculateTiered(instance, amount)
	default:
		// Percentage is the default for unrecognized types.
		return calculatePercentage(instance, amount)
	}
}

func calculatePercentage(instance entities.Instance, amount int64) ([]entities.Share, error) {
	shares := make([]entities.Share, 0, len(instance.Rules))
	for _, rule := range instance.Rules {
		if !rule.AppliesTo(amount) {
			continue
		}
		share, err := money.ApplyBasisPoints(amount, rule.PercentageBps)
		if err != nil {
			return nil, domainerrors.ErrInvalidPercentage
		}
		shares = append(shares, entities.Share{Recipient: rule.Recipient, Amount: share})
	}
	return shares, nil
}

func calculateFixedAmount(instance entities.Instance, amount int64) ([]entities.Share, error) {
	var fixedSum int64
	applicable := make([]entities.SplitRule, 0, len(instance.Rules))
	for _, rule := range instance.Rules {
		if !rule.AppliesTo(amount) {
			continue
		}
		applicable = append(applicable, rule)
		fixedSum += rule.FixedAmount
	}

	// Over-committed fixed amounts fall back to the percentage algorithm.
	// This is a policy decision, not an error.
	if fixedSum > amount {
		return calculatePercentage(instance, amount)
	}

	shares := make([]entities.Share, 0, len(applicable))
	for _, rule := range applicable {
		shares = append(shares, entities.Share{Recipient: rule.Recipient, Amount: rule.FixedAmount})
	}
	return shares, nil
}

func calculateTiered(instance entities.Instance, amount int64) ([]entities.Share, error) {
	tierBps, found := selectTier(instance.Tiers, amount)
	if !found {
		return calculatePercentage(instance, amount)
	}

	shares := make([]entities.Share, 0, len(instance.Rules))
	for _, rule := range instance.Rules {
		if !rule.AppliesTo(amount) {
			continue
		}
		share, err := money.ApplyTieredBasisPoints(amount, rule.PercentageBps, tierBps)
		if err != nil {
			return nil, domainerrors.ErrInvalidPercentage
		}
		shares = append(shares, entities.Share{Recipient: rule.Recipient, Amount: share})
	}
	return shares, nil
}

// selectTier scans tiers in storage order and keeps the last active tier
// whose threshold the amount reaches. Tiers appended out of threshold
// order therefore select by position, not by highest threshold; callers
// that want highest-threshold semantics must append tiers ascending.
func selectTier(tiers []entities.Tier, amount int64) (int64, bool) {
	var selected int64
	found := false
	for _, tier := range tiers {
		if !tier.Active {
			continue
		}
		if amount >= tier.Threshold {
			selected = tier.PercentageBps
			found = true
		}
	}
	return selected, found
}

// SumShares totals a share list; the distribution engine derives the
// remainder as amount - SumShares.
func SumShares(shares []entities.Share) int64 {
	var sum int64
	for _, s := range shares {
		sum += s.Amount
	}
	return sum
}
