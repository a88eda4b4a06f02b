package local

import (
	"context"
	"encoding/json"
	"time"

	factoryerrors "tessera/contexts/naming/policy-factory/domain/errors"
	feeapp "tessera/contexts/policies/fee-policy/application"
	feeports "tessera/contexts/policies/fee-policy/ports"
	savingsapp "tessera/contexts/policies/savings-policy/application"
	savingsports "tessera/contexts/policies/savings-policy/ports"
	splitapp "tessera/contexts/policies/split-policy/application"
	splitports "tessera/contexts/policies/split-policy/ports"
)

// SplitCreator initializes split-policy instances. Simple forces the
// exact-allocation variant regardless of the init payload.
type SplitCreator struct {
	Split  splitapp.Service
	Simple bool
}

type splitInit struct {
	FundingAccount        string   `json:"funding_account"`
	FallbackRecipient     string   `json:"fallback_recipient"`
	AcceptedAssets        []string `json:"accepted_assets"`
	AutoDistribute        bool     `json:"auto_distribute"`
	RequireFullAllocation bool     `json:"require_full_allocation"`
}

func (c SplitCreator) CreatePolicy(ctx context.Context, owner string, node string, init json.RawMessage) (string, error) {
	var cfg splitInit
	if len(init) > 0 {
		if err := json.Unmarshal(init, &cfg); err != nil {
			return "", factoryerrors.ErrInvalidInput
		}
	}
	instance, err := c.Split.CreateInstance(ctx, splitports.CreateInstanceInput{
		Node:                  node,
		Owner:                 owner,
		FundingAccount:        cfg.FundingAccount,
		FallbackRecipient:     cfg.FallbackRecipient,
		AcceptedAssets:        cfg.AcceptedAssets,
		AutoDistribute:        cfg.AutoDistribute,
		RequireFullAllocation: cfg.RequireFullAllocation || c.Simple,
	})
	if err != nil {
		return "", err
	}
	return instance.ID, nil
}

// SavingsCreator initializes savings-policy instances.
type SavingsCreator struct {
	Savings savingsapp.Service
}

type savingsInit struct {
	Guardian        string `json:"guardian"`
	VaultAccount    string `json:"vault_account"`
	FeeRecipient    string `json:"fee_recipient"`
	EmergencyFeeBps int64  `json:"emergency_fee_bps"`
	TimeLockSeconds int64  `json:"time_lock_seconds"`
}

func (c SavingsCreator) CreatePolicy(ctx context.Context, owner string, node string, init json.RawMessage) (string, error) {
	var cfg savingsInit
	if len(init) > 0 {
		if err := json.Unmarshal(init, &cfg); err != nil {
			return "", factoryerrors.ErrInvalidInput
		}
	}
	instance, err := c.Savings.CreateInstance(ctx, savingsports.CreateInstanceInput{
		Node:            node,
		Owner:           owner,
		Guardian:        cfg.Guardian,
		VaultAccount:    cfg.VaultAccount,
		FeeRecipient:    cfg.FeeRecipient,
		EmergencyFeeBps: cfg.EmergencyFeeBps,
		TimeLockDelay:   time.Duration(cfg.TimeLockSeconds) * time.Second,
	})
	if err != nil {
		return "", err
	}
	return instance.ID, nil
}

// FeeCreator initializes fee-policy instances.
type FeeCreator struct {
	Fees feeapp.Service
}

type feeInit struct {
	CollectionAccount string `json:"collection_account"`
}

func (c FeeCreator) CreatePolicy(ctx context.Context, owner string, node string, init json.RawMessage) (string, error) {
	var cfg feeInit
	if len(init) > 0 {
		if err := json.Unmarshal(init, &cfg); err != nil {
			return "", factoryerrors.ErrInvalidInput
		}
	}
	instance, err := c.Fees.CreateInstance(ctx, feeports.CreateInstanceInput{
		Node:              node,
		Owner:             owner,
		CollectionAccount: cfg.CollectionAccount,
	})
	if err != nil {
		return "", err
	}
	return instance.ID, nil
}
