package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tessera/contexts/policies/split-policy/adapters/memory"
	"tessera/contexts/policies/split-policy/domain/entities"
	domainerrors "tessera/contexts/policies/split-policy/domain/errors"
	"tessera/contexts/policies/split-policy/ports"
	"tessera/internal/shared/ledger"
)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time { return f.now }

type seqIDGen struct {
	next int
}

func (g *seqIDGen) NewID(context.Context) (string, error) {
	g.next++
	return fmt.Sprintf("id_%03d", g.next), nil
}

type transferCall struct {
	asset  string
	from   string
	to     string
	amount int64
}

// fakeTransfer records every call and fails transfers to configured
// recipients with the configured error.
type fakeTransfer struct {
	calls  []transferCall
	failTo map[string]error
}

func (f *fakeTransfer) Transfer(_ context.Context, asset string, from string, to string, amount int64) error {
	f.calls = append(f.calls, transferCall{asset: asset, from: from, to: to, amount: amount})
	if err, ok := f.failTo[to]; ok {
		return err
	}
	return nil
}

func newTestService(store *memory.Store, transfer ports.AssetTransfer) Service {
	return Service{
		Repo:     store,
		Transfer: transfer,
		Outbox:   store,
		Clock:    fixedClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)},
		IDGen:    &seqIDGen{},
		Guard:    NewEntryGuard(),
	}
}

func seedInstance(t *testing.T, service Service, input ports.CreateInstanceInput) entities.Instance {
	t.Helper()
	instance, err := service.CreateInstance(context.Background(), input)
	if err != nil {
		t.Fatalf("create instance failed: %v", err)
	}
	return instance
}

func TestMakePaymentAutoDistributes(t *testing.T) {
	store := memory.NewStore()
	transfer := &fakeTransfer{}
	service := newTestService(store, transfer)
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{
		Owner:          "owner_1",
		FundingAccount: "vault_1",
		AutoDistribute: true,
	})
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "alice", PercentageBps: 3000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "bob", PercentageBps: 7000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	payment, result, err := service.MakePayment(ctx, instance.ID, ports.MakePaymentInput{
		Payer:  "payer_1",
		Asset:  "usd",
		Amount: 100,
	})
	if err != nil {
		t.Fatalf("make payment failed: %v", err)
	}
	if result == nil {
		t.Fatalf("expected auto-distribution result")
	}
	if payment.SplitCount != 2 {
		t.Fatalf("expected split count 2, got %d", payment.SplitCount)
	}
	if result.TotalDistributed != 100 || result.Remainder != 0 {
		t.Fatalf("expected full distribution, got total=%d remainder=%d", result.TotalDistributed, result.Remainder)
	}
	if len(transfer.calls) != 2 || transfer.calls[0].to != "alice" || transfer.calls[0].amount != 30 {
		t.Fatalf("unexpected transfer calls: %+v", transfer.calls)
	}

	balance, err := service.GetRecipientBalance(ctx, instance.ID, "bob", "usd")
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if balance.Total != 70 {
		t.Fatalf("expected bob balance 70, got %d", balance.Total)
	}
}

func TestDistributePaymentOnlyOnce(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(store, &fakeTransfer{})
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{
		Owner:          "owner_1",
		FundingAccount: "vault_1",
	})
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "alice", PercentageBps: 10000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	payment, result, err := service.MakePayment(ctx, instance.ID, ports.MakePaymentInput{Payer: "p", Asset: "usd", Amount: 50})
	if err != nil {
		t.Fatalf("make payment failed: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no auto distribution")
	}

	if _, err := service.DistributePayment(ctx, instance.ID, payment.Index); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if _, err := service.DistributePayment(ctx, instance.ID, payment.Index); !errors.Is(err, domainerrors.ErrAlreadyDistributed) {
		t.Fatalf("expected already distributed, got %v", err)
	}

	distributions, err := service.GetDistributionHistory(ctx, instance.ID, 10, 0)
	if err != nil {
		t.Fatalf("list distributions failed: %v", err)
	}
	if len(distributions) != 1 {
		t.Fatalf("expected a single distribution leg, got %d", len(distributions))
	}
}

func TestDistributeSkipsFailedLegAndRoutesRemainder(t *testing.T) {
	store := memory.NewStore()
	transfer := &fakeTransfer{failTo: map[string]error{
		"bob": fmt.Errorf("recipient closed: %w", ledger.ErrTransferFailed),
	}}
	service := newTestService(store, transfer)
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{
		Owner:             "owner_1",
		FundingAccount:    "vault_1",
		FallbackRecipient: "treasury",
		AutoDistribute:    true,
	})
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "alice", PercentageBps: 3000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "bob", PercentageBps: 7000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	_, result, err := service.MakePayment(ctx, instance.ID, ports.MakePaymentInput{Payer: "p", Asset: "usd", Amount: 100})
	if err != nil {
		t.Fatalf("make payment failed: %v", err)
	}
	if result.Legs[1].Status != entities.LegStatusFailed {
		t.Fatalf("expected bob leg to fail, got %+v", result.Legs[1])
	}
	// Bob's 70 stays undistributed and rides to the fallback with the
	// rounding remainder.
	if !result.RemainderRouted || result.RemainderRecipient != "treasury" || result.Remainder != 70 {
		t.Fatalf("expected remainder of 70 routed to treasury, got %+v", result)
	}
	if result.TotalDistributed != 100 {
		t.Fatalf("expected 100 distributed including fallback, got %d", result.TotalDistributed)
	}
}

func TestDistributeHostFaultCompensatesAndPersistsNothing(t *testing.T) {
	store := memory.NewStore()
	transfer := &fakeTransfer{failTo: map[string]error{"bob": ledger.ErrHostFault}}
	service := newTestService(store, transfer)
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{
		Owner:          "owner_1",
		FundingAccount: "vault_1",
	})
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "alice", PercentageBps: 3000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "bob", PercentageBps: 7000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	payment, _, err := service.MakePayment(ctx, instance.ID, ports.MakePaymentInput{Payer: "p", Asset: "usd", Amount: 100})
	if err != nil {
		t.Fatalf("make payment failed: %v", err)
	}

	_, err = service.DistributePayment(ctx, instance.ID, payment.Index)
	if !errors.Is(err, ledger.ErrHostFault) {
		t.Fatalf("expected host fault to surface, got %v", err)
	}

	// Alice's paid leg is reversed: the last call sends her 30 back to the
	// funding account.
	last := transfer.calls[len(transfer.calls)-1]
	if last.from != "alice" || last.to != "vault_1" || last.amount != 30 {
		t.Fatalf("expected compensation of alice's leg, got %+v", last)
	}

	distributions, err := service.GetDistributionHistory(ctx, instance.ID, 10, 0)
	if err != nil {
		t.Fatalf("list distributions failed: %v", err)
	}
	if len(distributions) != 0 {
		t.Fatalf("expected no persisted distributions after fault, got %d", len(distributions))
	}
	stored, err := store.GetPayment(ctx, instance.ID, payment.Index)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if stored.SplitCount != 0 {
		t.Fatalf("expected payment to stay undistributed, got split count %d", stored.SplitCount)
	}
}

func TestDistributeRemainderFailureIsFatal(t *testing.T) {
	store := memory.NewStore()
	transfer := &fakeTransfer{failTo: map[string]error{"treasury": ledger.ErrInsufficientFunds}}
	service := newTestService(store, transfer)
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{
		Owner:             "owner_1",
		FundingAccount:    "vault_1",
		FallbackRecipient: "treasury",
		AutoDistribute:    true,
	})
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "alice", PercentageBps: 5000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	_, _, err := service.MakePayment(ctx, instance.ID, ports.MakePaymentInput{Payer: "p", Asset: "usd", Amount: 100})
	if !errors.Is(err, domainerrors.ErrRemainderTransferFailed) {
		t.Fatalf("expected remainder transfer failure, got %v", err)
	}

	distributions, err := service.GetDistributionHistory(ctx, instance.ID, 10, 0)
	if err != nil {
		t.Fatalf("list distributions failed: %v", err)
	}
	if len(distributions) != 0 {
		t.Fatalf("expected compensated distribution to persist nothing, got %d legs", len(distributions))
	}
}

func TestPreviewSplitLeavesStateUntouched(t *testing.T) {
	store := memory.NewStore()
	transfer := &fakeTransfer{}
	service := newTestService(store, transfer)
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{
		Owner:          "owner_1",
		FundingAccount: "vault_1",
	})
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "alice", PercentageBps: 3333}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	shares, remainder, err := service.PreviewSplit(ctx, instance.ID, 100, "percentage")
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if shares[0].Amount != 33 || remainder != 67 {
		t.Fatalf("expected share 33 remainder 67, got %d and %d", shares[0].Amount, remainder)
	}
	if len(transfer.calls) != 0 {
		t.Fatalf("expected preview to move no assets, got %d transfers", len(transfer.calls))
	}
	payments, err := service.GetPaymentHistory(ctx, instance.ID, 10, 0)
	if err != nil {
		t.Fatalf("list payments failed: %v", err)
	}
	if len(payments) != 0 {
		t.Fatalf("expected preview to record no payments, got %d", len(payments))
	}
}

func TestAddRuleRejectsDuplicateRecipient(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(store, &fakeTransfer{})
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{Owner: "owner_1", FundingAccount: "vault_1"})
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "alice", PercentageBps: 1000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	_, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "alice", PercentageBps: 2000})
	if !errors.Is(err, domainerrors.ErrDuplicateRecipient) {
		t.Fatalf("expected duplicate recipient, got %v", err)
	}
}

func TestRuleMutationRequiresManager(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(store, &fakeTransfer{})
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{Owner: "owner_1", FundingAccount: "vault_1"})

	_, err := service.AddRule(ctx, instance.ID, "stranger", ports.AddRuleInput{Recipient: "alice", PercentageBps: 1000})
	if !errors.Is(err, domainerrors.ErrNotManager) {
		t.Fatalf("expected manager check to fail, got %v", err)
	}

	if _, err := service.GrantManager(ctx, instance.ID, "owner_1", "helper"); err != nil {
		t.Fatalf("grant manager failed: %v", err)
	}
	if _, err := service.AddRule(ctx, instance.ID, "helper", ports.AddRuleInput{Recipient: "alice", PercentageBps: 1000}); err != nil {
		t.Fatalf("manager add rule failed: %v", err)
	}

	// Role grants stay owner-only.
	_, err = service.GrantManager(ctx, instance.ID, "helper", "another")
	if !errors.Is(err, domainerrors.ErrNotOwner) {
		t.Fatalf("expected owner check to fail, got %v", err)
	}
}

func TestFullAllocationInstanceEnforcesExactSum(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(store, &fakeTransfer{})
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{
		Owner:                 "owner_1",
		FundingAccount:        "vault_1",
		AutoDistribute:        true,
		RequireFullAllocation: true,
	})
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "alice", PercentageBps: 6000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	// 6000 + 5000 would overshoot 10000.
	_, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "bob", PercentageBps: 5000})
	if !errors.Is(err, domainerrors.ErrInvalidPercentage) {
		t.Fatalf("expected overshoot rejection, got %v", err)
	}

	// At 6000 total the percentage distribution is incomplete.
	_, _, err = service.MakePayment(ctx, instance.ID, ports.MakePaymentInput{Payer: "p", Asset: "usd", Amount: 100})
	if !errors.Is(err, domainerrors.ErrAllocationIncomplete) {
		t.Fatalf("expected incomplete allocation, got %v", err)
	}

	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "bob", PercentageBps: 4000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if _, _, err := service.MakePayment(ctx, instance.ID, ports.MakePaymentInput{Payer: "p", Asset: "usd", Amount: 100}); err != nil {
		t.Fatalf("make payment at full allocation failed: %v", err)
	}
}

func TestMakePaymentRejectsUnlistedAsset(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(store, &fakeTransfer{})
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{
		Owner:          "owner_1",
		FundingAccount: "vault_1",
		AcceptedAssets: []string{"usd"},
	})
	_, _, err := service.MakePayment(ctx, instance.ID, ports.MakePaymentInput{Payer: "p", Asset: "eur", Amount: 100})
	if !errors.Is(err, domainerrors.ErrAssetNotAccepted) {
		t.Fatalf("expected asset rejection, got %v", err)
	}
}

// transferFunc adapts a function to the AssetTransfer port so a test can
// call back into the service from inside a transfer.
type transferFunc func(ctx context.Context, asset string, from string, to string, amount int64) error

func (f transferFunc) Transfer(ctx context.Context, asset string, from string, to string, amount int64) error {
	return f(ctx, asset, from, to, amount)
}

func TestMakePaymentRejectsReentrantCall(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(store, nil)
	ctx := context.Background()

	instance := seedInstance(t, service, ports.CreateInstanceInput{
		Owner:          "owner_1",
		FundingAccount: "vault_1",
		AutoDistribute: true,
	})
	if _, err := service.AddRule(ctx, instance.ID, "owner_1", ports.AddRuleInput{Recipient: "alice", PercentageBps: 10000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	var inner error
	service.Transfer = transferFunc(func(ctx context.Context, _ string, _ string, _ string, _ int64) error {
		_, _, inner = service.MakePayment(ctx, instance.ID, ports.MakePaymentInput{Payer: "payer_2", Asset: "usd", Amount: 10})
		return nil
	})

	if _, _, err := service.MakePayment(ctx, instance.ID, ports.MakePaymentInput{Payer: "payer_1", Asset: "usd", Amount: 100}); err != nil {
		t.Fatalf("outer payment failed: %v", err)
	}
	if !errors.Is(inner, domainerrors.ErrReentrantCall) {
		t.Fatalf("expected reentrant call rejection, got %v", inner)
	}

	payments, err := store.ListPayments(ctx, instance.ID, 10, 0)
	if err != nil {
		t.Fatalf("list payments failed: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected only the outer payment recorded, got %d", len(payments))
	}
}
