package services

import (
	"errors"
	"testing"

	"tessera/contexts/policies/split-policy/domain/entities"
	domainerrors "tessera/contexts/policies/split-policy/domain/errors"
)

func TestCalculatePercentageExact(t *testing.T) {
	instance := entities.Instance{
		Rules: []entities.SplitRule{
			{Recipient: "alice", PercentageBps: 3000, Active: true},
			{Recipient: "bob", PercentageBps: 7000, Active: true},
		},
	}

	shares, err := CalculateSplit(instance, 100, entities.SplitTypePercentage)
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(shares))
	}
	if shares[0].Recipient != "alice" || shares[0].Amount != 30 {
		t.Fatalf("expected alice to receive 30, got %s=%d", shares[0].Recipient, shares[0].Amount)
	}
	if shares[1].Recipient != "bob" || shares[1].Amount != 70 {
		t.Fatalf("expected bob to receive 70, got %s=%d", shares[1].Recipient, shares[1].Amount)
	}
	if remainder := 100 - SumShares(shares); remainder != 0 {
		t.Fatalf("expected zero remainder on exact split, got %d", remainder)
	}
}

func TestCalculatePercentageFloorsEachShare(t *testing.T) {
	instance := entities.Instance{
		Rules: []entities.SplitRule{
			{Recipient: "a", PercentageBps: 3333, Active: true},
			{Recipient: "b", PercentageBps: 3333, Active: true},
			{Recipient: "c", PercentageBps: 3334, Active: true},
		},
	}

	shares, err := CalculateSplit(instance, 100, entities.SplitTypePercentage)
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	for _, share := range shares {
		if share.Amount != 33 {
			t.Fatalf("expected every share floored to 33, got %s=%d", share.Recipient, share.Amount)
		}
	}
	if remainder := 100 - SumShares(shares); remainder != 1 {
		t.Fatalf("expected remainder of 1 after flooring, got %d", remainder)
	}
}

func TestCalculateFixedAmount(t *testing.T) {
	instance := entities.Instance{
		Rules: []entities.SplitRule{
			{Recipient: "rent", FixedAmount: 600, Active: true},
			{Recipient: "food", FixedAmount: 250, Active: true},
		},
	}

	shares, err := CalculateSplit(instance, 1000, entities.SplitTypeFixedAmount)
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if shares[0].Amount != 600 || shares[1].Amount != 250 {
		t.Fatalf("expected fixed amounts 600 and 250, got %d and %d", shares[0].Amount, shares[1].Amount)
	}
	if remainder := 1000 - SumShares(shares); remainder != 150 {
		t.Fatalf("expected remainder 150, got %d", remainder)
	}
}

func TestCalculateFixedAmountOverCommitFallsBackToPercentage(t *testing.T) {
	instance := entities.Instance{
		Rules: []entities.SplitRule{
			{Recipient: "rent", PercentageBps: 5000, FixedAmount: 600, Active: true},
			{Recipient: "food", PercentageBps: 2500, FixedAmount: 550, Active: true},
		},
	}

	// Fixed commitments total 1150 against a 1000 payment, so the
	// percentage algorithm takes over.
	shares, err := CalculateSplit(instance, 1000, entities.SplitTypeFixedAmount)
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if shares[0].Amount != 500 || shares[1].Amount != 250 {
		t.Fatalf("expected percentage fallback 500 and 250, got %d and %d", shares[0].Amount, shares[1].Amount)
	}
}

func TestCalculateTieredAppliesLastMatchingTier(t *testing.T) {
	instance := entities.Instance{
		Rules: []entities.SplitRule{
			{Recipient: "alice", PercentageBps: 10000, Active: true},
		},
		Tiers: []entities.Tier{
			{Threshold: 0, PercentageBps: 5000, Active: true},
			{Threshold: 100, PercentageBps: 8000, Active: true},
			{Threshold: 150, PercentageBps: 10000, Active: true},
		},
	}

	// Exactly at the top threshold the 100% tier applies: the full rule
	// share pays out.
	shares, err := CalculateSplit(instance, 150, entities.SplitTypeTiered)
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if shares[0].Amount != 150 {
		t.Fatalf("expected full payout at threshold, got %d", shares[0].Amount)
	}

	// One unit below, the middle tier scales the share to 80%.
	shares, err = CalculateSplit(instance, 149, entities.SplitTypeTiered)
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if shares[0].Amount != 119 {
		t.Fatalf("expected 80%% tier share of 119, got %d", shares[0].Amount)
	}
}

func TestCalculateTieredSkipsInactiveTiers(t *testing.T) {
	instance := entities.Instance{
		Rules: []entities.SplitRule{
			{Recipient: "alice", PercentageBps: 10000, Active: true},
		},
		Tiers: []entities.Tier{
			{Threshold: 0, PercentageBps: 5000, Active: true},
			{Threshold: 100, PercentageBps: 10000, Active: false},
		},
	}

	shares, err := CalculateSplit(instance, 200, entities.SplitTypeTiered)
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if shares[0].Amount != 100 {
		t.Fatalf("expected inactive tier skipped, got %d", shares[0].Amount)
	}
}

func TestCalculateTieredWithoutTiersFallsBackToPercentage(t *testing.T) {
	instance := entities.Instance{
		Rules: []entities.SplitRule{
			{Recipient: "alice", PercentageBps: 2500, Active: true},
		},
	}

	shares, err := CalculateSplit(instance, 400, entities.SplitTypeTiered)
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if shares[0].Amount != 100 {
		t.Fatalf("expected percentage fallback of 100, got %d", shares[0].Amount)
	}
}

func TestCalculateHonorsRuleAmountWindows(t *testing.T) {
	instance := entities.Instance{
		Rules: []entities.SplitRule{
			{Recipient: "small", PercentageBps: 5000, MaxAmount: 100, Active: true},
			{Recipient: "large", PercentageBps: 5000, MinAmount: 500, Active: true},
			{Recipient: "off", PercentageBps: 5000, Active: false},
		},
	}

	shares, err := CalculateSplit(instance, 1000, entities.SplitTypePercentage)
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if len(shares) != 1 || shares[0].Recipient != "large" {
		t.Fatalf("expected only the large-window rule to apply, got %+v", shares)
	}
}

func TestCalculateRejectsNonPositiveAmount(t *testing.T) {
	if _, err := CalculateSplit(entities.Instance{}, 0, entities.SplitTypePercentage); !errors.Is(err, domainerrors.ErrZeroAmount) {
		t.Fatalf("expected zero amount error, got %v", err)
	}
	if _, err := CalculateSplit(entities.Instance{}, -5, entities.SplitTypePercentage); !errors.Is(err, domainerrors.ErrZeroAmount) {
		t.Fatalf("expected zero amount error for negative, got %v", err)
	}
}
