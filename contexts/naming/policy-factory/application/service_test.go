package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"tessera/contexts/naming/policy-factory/adapters/memory"
	"tessera/contexts/naming/policy-factory/domain/entities"
	domainerrors "tessera/contexts/naming/policy-factory/domain/errors"
	"tessera/contexts/naming/policy-factory/ports"
	registryerrors "tessera/contexts/naming/registry-service/domain/errors"
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

type fakeRegistry struct {
	registered map[string]bool
	bound      map[string]string // label -> target
	bindErr    error
}

func (f *fakeRegistry) HasUserBinding(_ context.Context, owner string) (bool, error) {
	return f.registered[owner], nil
}

func (f *fakeRegistry) PolicyNode(_ context.Context, owner string, label string) (string, error) {
	return "node_" + owner + "_" + label, nil
}

func (f *fakeRegistry) BindPolicy(_ context.Context, owner string, label string, target string) (string, error) {
	if f.bindErr != nil {
		return "", f.bindErr
	}
	if f.bound == nil {
		f.bound = make(map[string]string)
	}
	f.bound[label] = target
	return "node_" + owner + "_" + label, nil
}

func (f *fakeRegistry) ReleasePolicy(context.Context, string, string) error { return nil }

type fakeCreator struct {
	instanceID string
	err        error
	calls      int
}

func (f *fakeCreator) CreatePolicy(context.Context, string, string, json.RawMessage) (string, error) {
	f.calls++
	return f.instanceID, f.err
}

type transferCall struct {
	asset  string
	from   string
	to     string
	amount int64
}

type fakeTransfer struct {
	calls   []transferCall
	failFor map[string]error // keyed by from account
}

func (f *fakeTransfer) Transfer(_ context.Context, asset string, from string, to string, amount int64) error {
	f.calls = append(f.calls, transferCall{asset: asset, from: from, to: to, amount: amount})
	if err, ok := f.failFor[from]; ok {
		return err
	}
	return nil
}

func newTestService(registry *fakeRegistry, creator *fakeCreator, transfer *fakeTransfer, store *memory.Store) Service {
	return Service{
		Registry: registry,
		Creators: map[entities.PolicyType]ports.PolicyCreator{
			entities.PolicyTypeSplit: creator,
		},
		Repo:     store,
		Transfer: transfer,
		Outbox:   store,
		Clock:    fixedClock{now: time.Date(2026, time.July, 1, 8, 0, 0, 0, time.UTC)},
		IDGen:    &seqIDGen{},
		Fees:     map[entities.PolicyType]int64{entities.PolicyTypeSplit: 100},
		FeeAsset: "usd",
		Treasury: "treasury",
	}
}

func TestCreatePolicyChargesFeeAndBinds(t *testing.T) {
	registry := &fakeRegistry{registered: map[string]bool{"addr_alice": true}}
	creator := &fakeCreator{instanceID: "inst_1"}
	transfer := &fakeTransfer{}
	store := memory.NewStore()
	service := newTestService(registry, creator, transfer, store)
	ctx := context.Background()

	record, err := service.CreatePolicy(ctx, ports.CreatePolicyInput{
		Caller: "addr_alice",
		Type:   "split",
		Label:  "rent",
	})
	if err != nil {
		t.Fatalf("create policy failed: %v", err)
	}
	if record.InstanceID != "inst_1" || record.Node != "node_addr_alice_rent" || record.FeePaid != 100 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if len(transfer.calls) != 1 || transfer.calls[0].from != "addr_alice" || transfer.calls[0].to != "treasury" || transfer.calls[0].amount != 100 {
		t.Fatalf("expected fee into treasury, got %+v", transfer.calls)
	}
	if registry.bound["rent"] != "inst_1" {
		t.Fatalf("expected label bound to instance, got %+v", registry.bound)
	}

	records, err := service.ListPolicies(ctx, "addr_alice")
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one creation record, got %+v %v", records, err)
	}
}

func TestCreatePolicyRequiresRegisteredCaller(t *testing.T) {
	registry := &fakeRegistry{}
	creator := &fakeCreator{instanceID: "inst_1"}
	transfer := &fakeTransfer{}
	service := newTestService(registry, creator, transfer, memory.NewStore())

	_, err := service.CreatePolicy(context.Background(), ports.CreatePolicyInput{
		Caller: "addr_ghost",
		Type:   "split",
		Label:  "rent",
	})
	if !errors.Is(err, domainerrors.ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}
	if len(transfer.calls) != 0 || creator.calls != 0 {
		t.Fatalf("expected no side effects for unregistered caller")
	}
}

func TestCreatePolicyUnknownType(t *testing.T) {
	registry := &fakeRegistry{registered: map[string]bool{"addr_alice": true}}
	service := newTestService(registry, &fakeCreator{}, &fakeTransfer{}, memory.NewStore())

	_, err := service.CreatePolicy(context.Background(), ports.CreatePolicyInput{
		Caller: "addr_alice",
		Type:   "lottery",
		Label:  "rent",
	})
	if !errors.Is(err, domainerrors.ErrUnknownPolicyType) {
		t.Fatalf("expected unknown type, got %v", err)
	}
}

func TestCreatePolicyFeeFailureStopsCreation(t *testing.T) {
	registry := &fakeRegistry{registered: map[string]bool{"addr_alice": true}}
	creator := &fakeCreator{instanceID: "inst_1"}
	transfer := &fakeTransfer{failFor: map[string]error{"addr_alice": errors.New("insufficient funds")}}
	service := newTestService(registry, creator, transfer, memory.NewStore())

	_, err := service.CreatePolicy(context.Background(), ports.CreatePolicyInput{
		Caller: "addr_alice",
		Type:   "split",
		Label:  "rent",
	})
	if !errors.Is(err, domainerrors.ErrFeeNotPaid) {
		t.Fatalf("expected fee not paid, got %v", err)
	}
	if creator.calls != 0 {
		t.Fatalf("expected creator untouched after fee failure")
	}
}

func TestCreatePolicyInitFailureRefundsFee(t *testing.T) {
	registry := &fakeRegistry{registered: map[string]bool{"addr_alice": true}}
	creator := &fakeCreator{err: errors.New("bad init payload")}
	transfer := &fakeTransfer{}
	store := memory.NewStore()
	service := newTestService(registry, creator, transfer, store)
	ctx := context.Background()

	_, err := service.CreatePolicy(ctx, ports.CreatePolicyInput{
		Caller: "addr_alice",
		Type:   "split",
		Label:  "rent",
	})
	if !errors.Is(err, domainerrors.ErrInitFailed) {
		t.Fatalf("expected init failure, got %v", err)
	}
	if len(transfer.calls) != 2 {
		t.Fatalf("expected fee plus refund, got %+v", transfer.calls)
	}
	refund := transfer.calls[1]
	if refund.from != "treasury" || refund.to != "addr_alice" || refund.amount != 100 {
		t.Fatalf("expected refund from treasury, got %+v", refund)
	}
	records, err := service.ListPolicies(ctx, "addr_alice")
	if err != nil || len(records) != 0 {
		t.Fatalf("expected no record after failed init, got %+v %v", records, err)
	}
}

func TestCreatePolicyBindFailureRefundsFee(t *testing.T) {
	registry := &fakeRegistry{
		registered: map[string]bool{"addr_alice": true},
		bindErr:    registryerrors.ErrLabelTaken,
	}
	creator := &fakeCreator{instanceID: "inst_1"}
	transfer := &fakeTransfer{}
	service := newTestService(registry, creator, transfer, memory.NewStore())

	_, err := service.CreatePolicy(context.Background(), ports.CreatePolicyInput{
		Caller: "addr_alice",
		Type:   "split",
		Label:  "rent",
	})
	if !errors.Is(err, registryerrors.ErrLabelTaken) {
		t.Fatalf("expected label taken to surface, got %v", err)
	}
	if len(transfer.calls) != 2 || transfer.calls[1].from != "treasury" {
		t.Fatalf("expected refund after bind failure, got %+v", transfer.calls)
	}
}

func TestCreatePolicyZeroFeeSkipsTransfer(t *testing.T) {
	registry := &fakeRegistry{registered: map[string]bool{"addr_alice": true}}
	creator := &fakeCreator{instanceID: "inst_1"}
	transfer := &fakeTransfer{}
	service := newTestService(registry, creator, transfer, memory.NewStore())
	service.Fees = map[entities.PolicyType]int64{}

	record, err := service.CreatePolicy(context.Background(), ports.CreatePolicyInput{
		Caller: "addr_alice",
		Type:   "split",
		Label:  "rent",
	})
	if err != nil {
		t.Fatalf("create policy failed: %v", err)
	}
	if record.FeePaid != 0 || len(transfer.calls) != 0 {
		t.Fatalf("expected free creation without transfers, got %+v %+v", record, transfer.calls)
	}
}

func TestCreatePolicyForSponsorPaysBeneficiaryOwns(t *testing.T) {
	registry := &fakeRegistry{registered: map[string]bool{"addr_bob": true}}
	creator := &fakeCreator{instanceID: "inst_1"}
	transfer := &fakeTransfer{}
	store := memory.NewStore()
	service := newTestService(registry, creator, transfer, store)
	ctx := context.Background()

	record, err := service.CreatePolicyFor(ctx, ports.CreatePolicyForInput{
		Sponsor:     "addr_alice",
		Beneficiary: "addr_bob",
		Type:        "split",
		Label:       "rent",
	})
	if err != nil {
		t.Fatalf("sponsored creation failed: %v", err)
	}
	if record.Owner != "addr_bob" || record.Node != "node_addr_bob_rent" {
		t.Fatalf("expected record owned by beneficiary, got %+v", record)
	}
	if len(transfer.calls) != 1 {
		t.Fatalf("expected one fee transfer, got %d", len(transfer.calls))
	}
	fee := transfer.calls[0]
	if fee.from != "addr_alice" || fee.to != "treasury" || fee.amount != 100 {
		t.Fatalf("expected sponsor to pay the fee, got %+v", fee)
	}
	if registry.bound["rent"] != "inst_1" {
		t.Fatalf("expected binding under beneficiary, got %q", registry.bound["rent"])
	}

	records, err := service.ListPolicies(ctx, "addr_bob")
	if err != nil {
		t.Fatalf("list policies failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record for beneficiary, got %d", len(records))
	}
}

func TestCreatePolicyForRequiresRegisteredBeneficiary(t *testing.T) {
	registry := &fakeRegistry{registered: map[string]bool{"addr_alice": true}}
	creator := &fakeCreator{instanceID: "inst_1"}
	transfer := &fakeTransfer{}
	service := newTestService(registry, creator, transfer, memory.NewStore())

	_, err := service.CreatePolicyFor(context.Background(), ports.CreatePolicyForInput{
		Sponsor:     "addr_alice",
		Beneficiary: "addr_ghost",
		Type:        "split",
		Label:       "rent",
	})
	if !errors.Is(err, domainerrors.ErrNotRegistered) {
		t.Fatalf("expected registration gate on beneficiary, got %v", err)
	}
	if len(transfer.calls) != 0 || creator.calls != 0 {
		t.Fatalf("expected no side effects, got %d transfers %d creations", len(transfer.calls), creator.calls)
	}
}

func TestCreatePolicyForBindFailureRefundsSponsor(t *testing.T) {
	registry := &fakeRegistry{
		registered: map[string]bool{"addr_bob": true},
		bindErr:    registryerrors.ErrLabelTaken,
	}
	creator := &fakeCreator{instanceID: "inst_1"}
	transfer := &fakeTransfer{}
	service := newTestService(registry, creator, transfer, memory.NewStore())

	_, err := service.CreatePolicyFor(context.Background(), ports.CreatePolicyForInput{
		Sponsor:     "addr_alice",
		Beneficiary: "addr_bob",
		Type:        "split",
		Label:       "rent",
	})
	if !errors.Is(err, registryerrors.ErrLabelTaken) {
		t.Fatalf("expected label conflict to surface, got %v", err)
	}
	if len(transfer.calls) != 2 {
		t.Fatalf("expected fee and refund transfers, got %d", len(transfer.calls))
	}
	refund := transfer.calls[1]
	if refund.from != "treasury" || refund.to != "addr_alice" || refund.amount != 100 {
		t.Fatalf("expected refund to the sponsor, got %+v", refund)
	}
}
