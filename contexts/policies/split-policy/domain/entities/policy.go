package entities

import "time"

// SplitType selects the split algorithm applied to an incoming payment.
type SplitType string

const (
	SplitTypePercentage  SplitType = "percentage"
	SplitTypeFixedAmount SplitType = "fixed_amount"
	SplitTypeTiered      SplitType = "tiered"
)

// NormalizeSplitType maps unknown split types to percentage, the default
// algorithm.
func NormalizeSplitType(raw string) SplitType {
	switch SplitType(raw) {
	case SplitTypePercentage, SplitTypeFixedAmount, SplitTypeTiered:
		return SplitType(raw)
	default:
		return SplitTypePercentage
	}
}

// SplitRule is one recipient's standing claim on incoming payments.
// PercentageBps is basis points (0-10000). MinAmount/MaxAmount bound the
// payment amounts the rule participates in; MaxAmount zero means unbounded.
type SplitRule struct {
	Recipient     string
	PercentageBps int64
	FixedAmount   int64
	MinAmount     int64
	MaxAmount     int64
	Active        bool
	Label         string
	AddedAt       time.Time
}

// AppliesTo reports whether the rule participates in a distribution of the
// given amount.
func (r SplitRule) AppliesTo(amount int64) bool {
	if !r.Active {
		return false
	}
	if amount < r.MinAmount {
		return false
	}
	if r.MaxAmount > 0 && amount > r.MaxAmount {
		return false
	}
	return true
}

// Tier scales every rule's percentage when the payment amount reaches its
// threshold. Tiers are kept in insertion order; selection scans that order
// and keeps the last active tier whose threshold the amount reaches.
type Tier struct {
	Threshold     int64
	PercentageBps int64
	Active        bool
}

// Instance is one deployed split-policy configuration: its rule set, tiers,
// role holders and accounting ledgers all hang off it.
type Instance struct {
	ID                    string
	Node                  string
	Owner                 string
	Managers              []string
	FundingAccount        string
	FallbackRecipient     string
	AcceptedAssets        []string
	AutoDistribute        bool
	RequireFullAllocation bool
	Rules                 []SplitRule
	Tiers                 []Tier
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsOwner reports whether the actor owns the instance.
func (i Instance) IsOwner(actor string) bool {
	return actor != "" && actor == i.Owner
}

// IsManager reports whether the actor may mutate rules and tiers.
func (i Instance) IsManager(actor string) bool {
	if i.IsOwner(actor) {
		return true
	}
	for _, m := range i.Managers {
		if m == actor {
			return true
		}
	}
	return false
}

// AcceptsAsset reports whether payments in the asset are allowed. An empty
// allowlist accepts any asset.
func (i Instance) AcceptsAsset(asset string) bool {
	if len(i.AcceptedAssets) == 0 {
		return true
	}
	for _, a := range i.AcceptedAssets {
		if a == asset {
			return true
		}
	}
	return false
}

// ActivePercentageSum is the summed basis points of all active rules,
// ignoring applicability windows. Used only by full-allocation instances.
func (i Instance) ActivePercentageSum() int64 {
	var sum int64
	for _, r := range i.Rules {
		if r.Active {
			sum += r.PercentageBps
		}
	}
	return sum
}
