package unit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	policyfactory "tessera/contexts/naming/policy-factory"
	factorymemory "tessera/contexts/naming/policy-factory/adapters/memory"
	factoryentities "tessera/contexts/naming/policy-factory/domain/entities"
	factoryerrors "tessera/contexts/naming/policy-factory/domain/errors"
	factorytransport "tessera/contexts/naming/policy-factory/transport/http"
	registryservice "tessera/contexts/naming/registry-service"
	registryerrors "tessera/contexts/naming/registry-service/domain/errors"
	registrytransport "tessera/contexts/naming/registry-service/transport/http"
	feepolicy "tessera/contexts/policies/fee-policy"
	savingspolicy "tessera/contexts/policies/savings-policy"
	splitpolicy "tessera/contexts/policies/split-policy"
	"tessera/internal/platform/ledger"
)

type factoryStack struct {
	bank     *ledger.Bank
	registry registryservice.Module
	split    splitpolicy.Module
	savings  savingspolicy.Module
	fees     feepolicy.Module
	factory  policyfactory.Module
}

func newFactoryStack() factoryStack {
	bank := ledger.NewBank(nil)
	registry := registryservice.NewInMemoryModule("admin", nil)
	split := splitpolicy.NewInMemoryModule(bank, nil)
	savings := savingspolicy.NewInMemoryModule(bank, nil)
	fees := feepolicy.NewInMemoryModule(bank, nil)

	store := factorymemory.NewStore()
	factory := policyfactory.NewModule(policyfactory.Dependencies{
		Registry:    registry.Service,
		Split:       split.Service,
		Savings:     savings.Service,
		Fees:        fees.Service,
		Repository:  store,
		Transfer:    bank,
		Outbox:      store,
		Clock:       factorymemory.SystemClock{},
		IDGenerator: factorymemory.UUIDGenerator{},
		CreationFee: map[factoryentities.PolicyType]int64{
			factoryentities.PolicyTypeSplit:   100,
			factoryentities.PolicyTypeSavings: 250,
			factoryentities.PolicyTypeFees:    50,
		},
		FeeAsset: "usd",
		Treasury: "treasury",
	})
	factory.Store = store
	return factoryStack{bank: bank, registry: registry, split: split, savings: savings, fees: fees, factory: factory}
}

func (s factoryStack) register(t *testing.T, username, owner string) {
	t.Helper()
	if _, err := s.registry.Handler.SelfRegisterHandler(context.Background(), registrytransport.SelfRegisterRequest{
		Caller:   owner,
		Username: username,
	}); err != nil {
		t.Fatalf("register %s failed: %v", username, err)
	}
}

func TestPolicyFactoryCreateSplitPolicy(t *testing.T) {
	stack := newFactoryStack()
	ctx := context.Background()
	stack.register(t, "alice", "addr_alice")
	stack.bank.Mint("addr_alice", "usd", 1000)

	init, _ := json.Marshal(map[string]any{
		"funding_account": "vault_alice",
		"accepted_assets": []string{"usd"},
	})
	record, err := stack.factory.Handler.CreatePolicyHandler(ctx, factorytransport.CreatePolicyRequest{
		Caller: "addr_alice",
		Type:   "split",
		Label:  "rent",
		Init:   init,
	})
	if err != nil {
		t.Fatalf("create policy failed: %v", err)
	}

	expected := stack.registry.Handler.PolicyNodeHandler(ctx, "alice", "rent")
	if record.Data.Node != expected.Data.Node {
		t.Fatalf("expected record node %s, got %s", expected.Data.Node, record.Data.Node)
	}
	if record.Data.FeePaid != 100 || record.Data.InstanceID == "" {
		t.Fatalf("unexpected record %+v", record.Data)
	}
	if got := stack.bank.Balance("treasury", "usd"); got != 100 {
		t.Fatalf("expected treasury to hold the fee, got %d", got)
	}
	if got := stack.bank.Balance("addr_alice", "usd"); got != 900 {
		t.Fatalf("expected caller to pay the fee, got %d", got)
	}

	instance, err := stack.split.Handler.GetInstanceHandler(ctx, record.Data.InstanceID)
	if err != nil {
		t.Fatalf("expected split instance to exist: %v", err)
	}
	if instance.Data.Owner != "addr_alice" || instance.Data.FundingAccount != "vault_alice" {
		t.Fatalf("unexpected split instance %+v", instance.Data)
	}

	bindings, err := stack.registry.Handler.ListPoliciesHandler(ctx, "alice")
	if err != nil {
		t.Fatalf("list policies failed: %v", err)
	}
	if len(bindings.Data) != 1 || bindings.Data[0].Target != record.Data.InstanceID {
		t.Fatalf("expected registry binding to target the instance, got %+v", bindings.Data)
	}

	records, err := stack.factory.Handler.ListPoliciesHandler(ctx, "addr_alice")
	if err != nil {
		t.Fatalf("list records failed: %v", err)
	}
	if len(records.Data) != 1 {
		t.Fatalf("expected one creation record, got %d", len(records.Data))
	}
}

func TestPolicyFactoryRequiresRegisteredCaller(t *testing.T) {
	stack := newFactoryStack()
	stack.bank.Mint("addr_ghost", "usd", 1000)

	_, err := stack.factory.Handler.CreatePolicyHandler(context.Background(), factorytransport.CreatePolicyRequest{
		Caller: "addr_ghost",
		Type:   "split",
		Label:  "rent",
	})
	if !errors.Is(err, factoryerrors.ErrNotRegistered) {
		t.Fatalf("expected registration gate, got %v", err)
	}
	if got := stack.bank.Balance("addr_ghost", "usd"); got != 1000 {
		t.Fatalf("expected no fee charged, got %d", got)
	}
}

func TestPolicyFactoryUnknownType(t *testing.T) {
	stack := newFactoryStack()
	stack.register(t, "alice", "addr_alice")

	_, err := stack.factory.Handler.CreatePolicyHandler(context.Background(), factorytransport.CreatePolicyRequest{
		Caller: "addr_alice",
		Type:   "lottery",
		Label:  "rent",
	})
	if !errors.Is(err, factoryerrors.ErrUnknownPolicyType) {
		t.Fatalf("expected unknown type rejection, got %v", err)
	}
}

func TestPolicyFactoryUnfundedCallerCannotPay(t *testing.T) {
	stack := newFactoryStack()
	stack.register(t, "alice", "addr_alice")

	_, err := stack.factory.Handler.CreatePolicyHandler(context.Background(), factorytransport.CreatePolicyRequest{
		Caller: "addr_alice",
		Type:   "split",
		Label:  "rent",
	})
	if !errors.Is(err, factoryerrors.ErrFeeNotPaid) {
		t.Fatalf("expected fee failure, got %v", err)
	}
}

func TestPolicyFactoryDuplicateLabelRefundsFee(t *testing.T) {
	stack := newFactoryStack()
	ctx := context.Background()
	stack.register(t, "alice", "addr_alice")
	stack.bank.Mint("addr_alice", "usd", 1000)

	splitInit, _ := json.Marshal(map[string]any{"funding_account": "vault_alice"})
	first, err := stack.factory.Handler.CreatePolicyHandler(ctx, factorytransport.CreatePolicyRequest{
		Caller: "addr_alice",
		Type:   "split",
		Label:  "rent",
		Init:   splitInit,
	})
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	savingsInit, _ := json.Marshal(map[string]any{"vault_account": "vault_save"})
	_, err = stack.factory.Handler.CreatePolicyHandler(ctx, factorytransport.CreatePolicyRequest{
		Caller: "addr_alice",
		Type:   "savings",
		Label:  "rent",
		Init:   savingsInit,
	})
	if !errors.Is(err, registryerrors.ErrLabelTaken) {
		t.Fatalf("expected label conflict to surface, got %v", err)
	}
	if got := stack.bank.Balance("addr_alice", "usd"); got != 900 {
		t.Fatalf("expected second fee refunded, got %d", got)
	}
	if got := stack.bank.Balance("treasury", "usd"); got != 100 {
		t.Fatalf("expected treasury to keep only the first fee, got %d", got)
	}

	records, err := stack.factory.Handler.ListPoliciesHandler(ctx, "addr_alice")
	if err != nil {
		t.Fatalf("list records failed: %v", err)
	}
	if len(records.Data) != 1 || records.Data[0].InstanceID != first.Data.InstanceID {
		t.Fatalf("expected only the first record, got %+v", records.Data)
	}
}

func TestPolicyFactoryCreatesEachEngine(t *testing.T) {
	stack := newFactoryStack()
	ctx := context.Background()
	stack.register(t, "alice", "addr_alice")
	stack.bank.Mint("addr_alice", "usd", 1000)

	savingsInit, _ := json.Marshal(map[string]any{
		"vault_account": "vault_save",
	})
	record, err := stack.factory.Handler.CreatePolicyHandler(ctx, factorytransport.CreatePolicyRequest{
		Caller: "addr_alice",
		Type:   "savings",
		Label:  "nest-egg",
		Init:   savingsInit,
	})
	if err != nil {
		t.Fatalf("create savings policy failed: %v", err)
	}
	if _, err := stack.savings.Handler.GetInstanceHandler(ctx, record.Data.InstanceID); err != nil {
		t.Fatalf("expected savings instance to exist: %v", err)
	}

	feeInit, _ := json.Marshal(map[string]any{
		"collection_account": "collector",
	})
	record, err = stack.factory.Handler.CreatePolicyHandler(ctx, factorytransport.CreatePolicyRequest{
		Caller: "addr_alice",
		Type:   "fees",
		Label:  "tuition",
		Init:   feeInit,
	})
	if err != nil {
		t.Fatalf("create fee policy failed: %v", err)
	}
	if _, err := stack.fees.Handler.GetInstanceHandler(ctx, record.Data.InstanceID); err != nil {
		t.Fatalf("expected fee instance to exist: %v", err)
	}

	if got := stack.bank.Balance("treasury", "usd"); got != 300 {
		t.Fatalf("expected treasury to hold both fees, got %d", got)
	}
}

func TestPolicyFactorySponsoredCreation(t *testing.T) {
	stack := newFactoryStack()
	ctx := context.Background()
	stack.register(t, "alice", "addr_alice")
	stack.register(t, "bob", "addr_bob")
	stack.bank.Mint("addr_alice", "usd", 1000)

	init, _ := json.Marshal(map[string]any{"funding_account": "vault_bob"})
	record, err := stack.factory.Handler.CreatePolicyForHandler(ctx, factorytransport.CreatePolicyForRequest{
		Sponsor:     "addr_alice",
		Beneficiary: "addr_bob",
		Type:        "split",
		Label:       "rent",
		Init:        init,
	})
	if err != nil {
		t.Fatalf("sponsored creation failed: %v", err)
	}

	expected := stack.registry.Handler.PolicyNodeHandler(ctx, "bob", "rent")
	if record.Data.Node != expected.Data.Node || record.Data.Owner != "addr_bob" {
		t.Fatalf("expected policy under the beneficiary's node, got %+v", record.Data)
	}
	if got := stack.bank.Balance("addr_alice", "usd"); got != 900 {
		t.Fatalf("expected sponsor to pay the fee, got %d", got)
	}
	if got := stack.bank.Balance("addr_bob", "usd"); got != 0 {
		t.Fatalf("expected beneficiary to pay nothing, got %d", got)
	}

	instance, err := stack.split.Handler.GetInstanceHandler(ctx, record.Data.InstanceID)
	if err != nil {
		t.Fatalf("expected split instance to exist: %v", err)
	}
	if instance.Data.Owner != "addr_bob" {
		t.Fatalf("expected beneficiary to own the instance, got %s", instance.Data.Owner)
	}

	bindings, err := stack.registry.Handler.ListPoliciesHandler(ctx, "bob")
	if err != nil {
		t.Fatalf("list policies failed: %v", err)
	}
	if len(bindings.Data) != 1 || bindings.Data[0].Target != record.Data.InstanceID {
		t.Fatalf("expected binding under bob, got %+v", bindings.Data)
	}

	_, err = stack.factory.Handler.CreatePolicyForHandler(ctx, factorytransport.CreatePolicyForRequest{
		Sponsor:     "addr_alice",
		Beneficiary: "addr_ghost",
		Type:        "split",
		Label:       "gift",
		Init:        init,
	})
	if !errors.Is(err, factoryerrors.ErrNotRegistered) {
		t.Fatalf("expected unregistered beneficiary rejection, got %v", err)
	}
	if got := stack.bank.Balance("addr_alice", "usd"); got != 900 {
		t.Fatalf("expected no extra fee charged, got %d", got)
	}
}
