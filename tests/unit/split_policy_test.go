package unit

import (
	"context"
	"errors"
	"testing"

	splitpolicy "tessera/contexts/policies/split-policy"
	domainerrors "tessera/contexts/policies/split-policy/domain/errors"
	httptransport "tessera/contexts/policies/split-policy/transport/http"
	"tessera/internal/platform/ledger"
	sharedledger "tessera/internal/shared/ledger"
)

func newSplitInstance(t *testing.T, module splitpolicy.Module, req httptransport.CreateInstanceRequest) string {
	t.Helper()
	created, err := module.Handler.CreateInstanceHandler(context.Background(), req)
	if err != nil {
		t.Fatalf("create instance failed: %v", err)
	}
	return created.Data.InstanceID
}

func TestSplitPolicyPercentageDistribution(t *testing.T) {
	bank := ledger.NewBank(nil)
	module := splitpolicy.NewInMemoryModule(bank, nil)
	ctx := context.Background()

	instanceID := newSplitInstance(t, module, httptransport.CreateInstanceRequest{
		Owner:          "addr_owner",
		FundingAccount: "vault",
		AutoDistribute: true,
	})
	if _, err := module.Handler.AddRuleHandler(ctx, instanceID, "addr_owner", httptransport.AddRuleRequest{Recipient: "alice", PercentageBps: 3000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if _, err := module.Handler.AddRuleHandler(ctx, instanceID, "addr_owner", httptransport.AddRuleRequest{Recipient: "bob", PercentageBps: 7000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	bank.Mint("vault", "usd", 1000)
	resp, err := module.Handler.MakePaymentHandler(ctx, instanceID, httptransport.MakePaymentRequest{
		Payer:  "payer_1",
		Asset:  "usd",
		Amount: 100,
	})
	if err != nil {
		t.Fatalf("make payment failed: %v", err)
	}
	if resp.Distribution == nil {
		t.Fatalf("expected auto distribution result")
	}
	if resp.Distribution.TotalDistributed != 100 || resp.Distribution.Remainder != 0 {
		t.Fatalf("expected exact distribution, got %+v", resp.Distribution)
	}
	if got := bank.Balance("alice", "usd"); got != 30 {
		t.Fatalf("expected alice to hold 30, got %d", got)
	}
	if got := bank.Balance("bob", "usd"); got != 70 {
		t.Fatalf("expected bob to hold 70, got %d", got)
	}
	if got := bank.Balance("vault", "usd"); got != 900 {
		t.Fatalf("expected vault drained by 100, got %d", got)
	}

	balance, err := module.Handler.RecipientBalanceHandler(ctx, instanceID, "bob", "usd")
	if err != nil {
		t.Fatalf("recipient balance failed: %v", err)
	}
	if balance.Data.Total != 70 {
		t.Fatalf("expected tracked balance 70, got %d", balance.Data.Total)
	}
}

func TestSplitPolicyRoundingRemainderToFallback(t *testing.T) {
	bank := ledger.NewBank(nil)
	module := splitpolicy.NewInMemoryModule(bank, nil)
	ctx := context.Background()

	instanceID := newSplitInstance(t, module, httptransport.CreateInstanceRequest{
		Owner:             "addr_owner",
		FundingAccount:    "vault",
		FallbackRecipient: "sink",
		AutoDistribute:    true,
	})
	for _, recipient := range []string{"a", "b", "c"} {
		bps := int64(3333)
		if recipient == "c" {
			bps = 3334
		}
		if _, err := module.Handler.AddRuleHandler(ctx, instanceID, "addr_owner", httptransport.AddRuleRequest{Recipient: recipient, PercentageBps: bps}); err != nil {
			t.Fatalf("add rule failed: %v", err)
		}
	}

	bank.Mint("vault", "usd", 100)
	resp, err := module.Handler.MakePaymentHandler(ctx, instanceID, httptransport.MakePaymentRequest{Payer: "p", Asset: "usd", Amount: 100})
	if err != nil {
		t.Fatalf("make payment failed: %v", err)
	}
	// Each share floors to 33; the leftover unit lands on the fallback.
	if resp.Distribution.Remainder != 1 || !resp.Distribution.RemainderRouted || resp.Distribution.RemainderRecipient != "sink" {
		t.Fatalf("expected remainder 1 routed to sink, got %+v", resp.Distribution)
	}
	if got := bank.Balance("sink", "usd"); got != 1 {
		t.Fatalf("expected sink to hold the remainder, got %d", got)
	}
	if got := bank.Balance("vault", "usd"); got != 0 {
		t.Fatalf("expected vault fully drained, got %d", got)
	}
}

func TestSplitPolicyRedistributionGuard(t *testing.T) {
	bank := ledger.NewBank(nil)
	module := splitpolicy.NewInMemoryModule(bank, nil)
	ctx := context.Background()

	instanceID := newSplitInstance(t, module, httptransport.CreateInstanceRequest{
		Owner:          "addr_owner",
		FundingAccount: "vault",
	})
	if _, err := module.Handler.AddRuleHandler(ctx, instanceID, "addr_owner", httptransport.AddRuleRequest{Recipient: "alice", PercentageBps: 10000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	bank.Mint("vault", "usd", 500)
	resp, err := module.Handler.MakePaymentHandler(ctx, instanceID, httptransport.MakePaymentRequest{Payer: "p", Asset: "usd", Amount: 200})
	if err != nil {
		t.Fatalf("make payment failed: %v", err)
	}
	if resp.Distribution != nil {
		t.Fatalf("expected manual distribution mode")
	}

	if _, err := module.Handler.DistributePaymentHandler(ctx, instanceID, resp.Data.Index); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if got := bank.Balance("alice", "usd"); got != 200 {
		t.Fatalf("expected alice to hold 200, got %d", got)
	}

	_, err = module.Handler.DistributePaymentHandler(ctx, instanceID, resp.Data.Index)
	if !errors.Is(err, domainerrors.ErrAlreadyDistributed) {
		t.Fatalf("expected re-distribution guard, got %v", err)
	}
	if got := bank.Balance("alice", "usd"); got != 200 {
		t.Fatalf("expected balances unchanged after guarded call, got %d", got)
	}
}

func TestSplitPolicyTieredPayout(t *testing.T) {
	bank := ledger.NewBank(nil)
	module := splitpolicy.NewInMemoryModule(bank, nil)
	ctx := context.Background()

	instanceID := newSplitInstance(t, module, httptransport.CreateInstanceRequest{
		Owner:          "addr_owner",
		FundingAccount: "vault",
		AutoDistribute: true,
	})
	if _, err := module.Handler.AddRuleHandler(ctx, instanceID, "addr_owner", httptransport.AddRuleRequest{Recipient: "alice", PercentageBps: 10000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if _, err := module.Handler.AddTierHandler(ctx, instanceID, "addr_owner", httptransport.AddTierRequest{Threshold: 0, PercentageBps: 5000}); err != nil {
		t.Fatalf("add tier failed: %v", err)
	}
	if _, err := module.Handler.AddTierHandler(ctx, instanceID, "addr_owner", httptransport.AddTierRequest{Threshold: 150, PercentageBps: 10000}); err != nil {
		t.Fatalf("add tier failed: %v", err)
	}

	bank.Mint("vault", "usd", 1000)

	// Exactly at the threshold the 100% tier pays the full amount.
	resp, err := module.Handler.MakePaymentHandler(ctx, instanceID, httptransport.MakePaymentRequest{Payer: "p", Asset: "usd", Amount: 150, SplitType: "tiered"})
	if err != nil {
		t.Fatalf("make payment failed: %v", err)
	}
	if resp.Distribution.TotalDistributed != 150 {
		t.Fatalf("expected full payout at threshold, got %+v", resp.Distribution)
	}

	// Below the threshold the 50% tier halves the rule share.
	resp, err = module.Handler.MakePaymentHandler(ctx, instanceID, httptransport.MakePaymentRequest{Payer: "p", Asset: "usd", Amount: 100, SplitType: "tiered"})
	if err != nil {
		t.Fatalf("make payment failed: %v", err)
	}
	if resp.Distribution.TotalDistributed != 50 || resp.Distribution.Remainder != 50 {
		t.Fatalf("expected halved payout below threshold, got %+v", resp.Distribution)
	}
}

func TestSplitPolicyPreviewIsReadOnly(t *testing.T) {
	bank := ledger.NewBank(nil)
	module := splitpolicy.NewInMemoryModule(bank, nil)
	ctx := context.Background()

	instanceID := newSplitInstance(t, module, httptransport.CreateInstanceRequest{
		Owner:          "addr_owner",
		FundingAccount: "vault",
	})
	if _, err := module.Handler.AddRuleHandler(ctx, instanceID, "addr_owner", httptransport.AddRuleRequest{Recipient: "alice", PercentageBps: 2500}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	bank.Mint("vault", "usd", 100)
	first, err := module.Handler.PreviewSplitHandler(ctx, instanceID, httptransport.PreviewSplitRequest{Amount: 100, SplitType: "percentage"})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	second, err := module.Handler.PreviewSplitHandler(ctx, instanceID, httptransport.PreviewSplitRequest{Amount: 100, SplitType: "percentage"})
	if err != nil {
		t.Fatalf("second preview failed: %v", err)
	}
	if len(first.Data) != 1 || first.Data[0].Amount != 25 || first.Remainder != 75 {
		t.Fatalf("unexpected preview: %+v", first)
	}
	if second.Data[0].Amount != first.Data[0].Amount || second.Remainder != first.Remainder {
		t.Fatalf("expected identical repeated previews: %+v vs %+v", first, second)
	}
	if got := bank.Balance("vault", "usd"); got != 100 {
		t.Fatalf("expected preview to move nothing, vault holds %d", got)
	}

	history, err := module.Handler.PaymentHistoryHandler(ctx, instanceID, 10, 0)
	if err != nil {
		t.Fatalf("payment history failed: %v", err)
	}
	if len(history.Data) != 0 {
		t.Fatalf("expected no recorded payments after preview, got %d", len(history.Data))
	}
}

func TestSplitPolicyInsufficientFundsFailsLegOnly(t *testing.T) {
	bank := ledger.NewBank(nil)
	module := splitpolicy.NewInMemoryModule(bank, nil)
	ctx := context.Background()

	instanceID := newSplitInstance(t, module, httptransport.CreateInstanceRequest{
		Owner:          "addr_owner",
		FundingAccount: "vault",
		AutoDistribute: true,
	})
	if _, err := module.Handler.AddRuleHandler(ctx, instanceID, "addr_owner", httptransport.AddRuleRequest{Recipient: "alice", PercentageBps: 5000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if _, err := module.Handler.AddRuleHandler(ctx, instanceID, "addr_owner", httptransport.AddRuleRequest{Recipient: "bob", PercentageBps: 5000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	// Only enough for the first leg.
	bank.Mint("vault", "usd", 60)
	resp, err := module.Handler.MakePaymentHandler(ctx, instanceID, httptransport.MakePaymentRequest{Payer: "p", Asset: "usd", Amount: 100})
	if err != nil {
		t.Fatalf("make payment failed: %v", err)
	}
	legs := resp.Distribution.Legs
	if legs[0].Status != "paid" || legs[1].Status != "failed" {
		t.Fatalf("expected paid then failed legs, got %+v", legs)
	}
	if got := bank.Balance("alice", "usd"); got != 50 {
		t.Fatalf("expected alice paid 50, got %d", got)
	}
	if got := bank.Balance("bob", "usd"); got != 0 {
		t.Fatalf("expected bob unpaid, got %d", got)
	}
}

func TestSplitPolicyHostFaultRollsBack(t *testing.T) {
	bank := ledger.NewBank(nil)
	module := splitpolicy.NewInMemoryModule(bank, nil)
	ctx := context.Background()

	instanceID := newSplitInstance(t, module, httptransport.CreateInstanceRequest{
		Owner:          "addr_owner",
		FundingAccount: "vault",
		AutoDistribute: true,
	})
	if _, err := module.Handler.AddRuleHandler(ctx, instanceID, "addr_owner", httptransport.AddRuleRequest{Recipient: "alice", PercentageBps: 5000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if _, err := module.Handler.AddRuleHandler(ctx, instanceID, "addr_owner", httptransport.AddRuleRequest{Recipient: "faulty", PercentageBps: 5000}); err != nil {
		t.Fatalf("add rule failed: %v", err)
	}

	bank.Mint("vault", "usd", 1000)
	bank.SetHostFault("faulty", true)

	_, err := module.Handler.MakePaymentHandler(ctx, instanceID, httptransport.MakePaymentRequest{Payer: "p", Asset: "usd", Amount: 100})
	if !errors.Is(err, sharedledger.ErrHostFault) {
		t.Fatalf("expected host fault, got %v", err)
	}
	// Alice's leg was compensated: the vault is whole again.
	if got := bank.Balance("vault", "usd"); got != 1000 {
		t.Fatalf("expected vault restored after fault, got %d", got)
	}
	if got := bank.Balance("alice", "usd"); got != 0 {
		t.Fatalf("expected alice's leg reversed, got %d", got)
	}
}
