package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tessera/contexts/naming/registry-service/adapters/memory"
	domainerrors "tessera/contexts/naming/registry-service/domain/errors"
	"tessera/contexts/naming/registry-service/ports"
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

func newTestService(store *memory.Store) Service {
	return Service{
		Repo:   store,
		Outbox: store,
		Clock:  fixedClock{now: time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)},
		IDGen:  &seqIDGen{},
		Admin:  "admin",
	}
}

func TestRegisterUserRegistrarGate(t *testing.T) {
	service := newTestService(memory.NewStore())
	ctx := context.Background()

	_, err := service.RegisterUser(ctx, "stranger", ports.RegisterUserInput{Username: "alice", Owner: "addr_alice"})
	if !errors.Is(err, domainerrors.ErrNotRegistrar) {
		t.Fatalf("expected registrar gate, got %v", err)
	}

	// The admin registers without being on the registrar list.
	if _, err := service.RegisterUser(ctx, "admin", ports.RegisterUserInput{Username: "alice", Owner: "addr_alice"}); err != nil {
		t.Fatalf("admin register failed: %v", err)
	}

	if err := service.AddRegistrar(ctx, "admin", "registrar_1"); err != nil {
		t.Fatalf("add registrar failed: %v", err)
	}
	if _, err := service.RegisterUser(ctx, "registrar_1", ports.RegisterUserInput{Username: "bob", Owner: "addr_bob"}); err != nil {
		t.Fatalf("registrar register failed: %v", err)
	}
}

func TestRegisterUserUniqueness(t *testing.T) {
	service := newTestService(memory.NewStore())
	ctx := context.Background()

	if _, err := service.SelfRegister(ctx, "addr_alice", "alice"); err != nil {
		t.Fatalf("self register failed: %v", err)
	}

	// One address, one username.
	_, err := service.SelfRegister(ctx, "addr_alice", "alice2")
	if !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("expected already registered, got %v", err)
	}

	// One label, one owner.
	_, err = service.SelfRegister(ctx, "addr_other", "alice")
	if !errors.Is(err, domainerrors.ErrLabelTaken) {
		t.Fatalf("expected label taken, got %v", err)
	}

	_, err = service.SelfRegister(ctx, "addr_caps", "Alice")
	if !errors.Is(err, domainerrors.ErrInvalidLabel) {
		t.Fatalf("expected invalid label, got %v", err)
	}
}

func TestLookupMatchesPrecomputedNode(t *testing.T) {
	service := newTestService(memory.NewStore())
	ctx := context.Background()

	available, err := service.Available(ctx, "alice")
	if err != nil || !available {
		t.Fatalf("expected alice available, got %v/%v", available, err)
	}

	binding, err := service.SelfRegister(ctx, "addr_alice", "alice")
	if err != nil {
		t.Fatalf("self register failed: %v", err)
	}
	if binding.Node != service.CalculateUserNode("alice") {
		t.Fatalf("expected binding node to equal precomputed node")
	}

	byNode, err := service.Lookup(ctx, binding.Node)
	if err != nil || byNode.Owner != "addr_alice" {
		t.Fatalf("lookup by node failed: %+v %v", byNode, err)
	}
	byName, err := service.LookupUsername(ctx, "alice")
	if err != nil || byName.Node != binding.Node {
		t.Fatalf("lookup by username failed: %+v %v", byName, err)
	}

	available, err = service.Available(ctx, "alice")
	if err != nil || available {
		t.Fatalf("expected alice taken after registration, got %v/%v", available, err)
	}
}

func TestUpdateUsernameSwapsAtomically(t *testing.T) {
	service := newTestService(memory.NewStore())
	ctx := context.Background()

	if _, err := service.SelfRegister(ctx, "addr_alice", "alice"); err != nil {
		t.Fatalf("self register failed: %v", err)
	}
	if _, err := service.SelfRegister(ctx, "addr_bob", "bob"); err != nil {
		t.Fatalf("self register failed: %v", err)
	}

	_, err := service.UpdateUsername(ctx, "addr_unknown", "ghost")
	if !errors.Is(err, domainerrors.ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}

	// Renaming onto a taken label fails and keeps the old binding.
	_, err = service.UpdateUsername(ctx, "addr_alice", "bob")
	if !errors.Is(err, domainerrors.ErrLabelTaken) {
		t.Fatalf("expected label taken on swap, got %v", err)
	}
	if _, err := service.LookupUsername(ctx, "alice"); err != nil {
		t.Fatalf("expected alice binding to survive failed swap: %v", err)
	}

	updated, err := service.UpdateUsername(ctx, "addr_alice", "alicia")
	if err != nil {
		t.Fatalf("update username failed: %v", err)
	}
	if updated.Node != service.CalculateUserNode("alicia") {
		t.Fatalf("expected new node for alicia")
	}
	if _, err := service.LookupUsername(ctx, "alice"); !errors.Is(err, domainerrors.ErrBindingNotFound) {
		t.Fatalf("expected old username released, got %v", err)
	}

	// The released label is claimable again.
	if _, err := service.SelfRegister(ctx, "addr_new", "alice"); err != nil {
		t.Fatalf("reclaim of released label failed: %v", err)
	}
}

func TestBindPolicyUnderOwnerNode(t *testing.T) {
	service := newTestService(memory.NewStore())
	ctx := context.Background()

	_, err := service.BindPolicy(ctx, ports.BindPolicyInput{Owner: "addr_alice", Label: "rent-split", Target: "inst_1"})
	if !errors.Is(err, domainerrors.ErrNotRegistered) {
		t.Fatalf("expected unregistered owner rejection, got %v", err)
	}

	if _, err := service.SelfRegister(ctx, "addr_alice", "alice"); err != nil {
		t.Fatalf("self register failed: %v", err)
	}

	binding, err := service.BindPolicy(ctx, ports.BindPolicyInput{Owner: "addr_alice", Label: "rent-split", Target: "inst_1"})
	if err != nil {
		t.Fatalf("bind policy failed: %v", err)
	}
	if binding.Node != service.CalculatePolicyNode("alice", "rent-split") {
		t.Fatalf("expected policy node to equal precomputed node")
	}
	if binding.ParentNode != service.CalculateUserNode("alice") {
		t.Fatalf("expected policy to hang under the user node")
	}
	if binding.Target != "inst_1" {
		t.Fatalf("expected target carried, got %q", binding.Target)
	}

	_, err = service.BindPolicy(ctx, ports.BindPolicyInput{Owner: "addr_alice", Label: "rent-split", Target: "inst_2"})
	if !errors.Is(err, domainerrors.ErrLabelTaken) {
		t.Fatalf("expected duplicate policy label rejection, got %v", err)
	}
	_, err = service.BindPolicy(ctx, ports.BindPolicyInput{Owner: "addr_alice", Label: "-bad", Target: "inst_3"})
	if !errors.Is(err, domainerrors.ErrInvalidLabel) {
		t.Fatalf("expected leading hyphen rejection, got %v", err)
	}

	policies, err := service.ListPolicies(ctx, "alice")
	if err != nil {
		t.Fatalf("list policies failed: %v", err)
	}
	if len(policies) != 1 || policies[0].Label != "rent-split" {
		t.Fatalf("expected one policy child, got %+v", policies)
	}
}

func TestReleasePolicyFreesLabel(t *testing.T) {
	service := newTestService(memory.NewStore())
	ctx := context.Background()

	if _, err := service.SelfRegister(ctx, "addr_alice", "alice"); err != nil {
		t.Fatalf("self register failed: %v", err)
	}
	binding, err := service.BindPolicy(ctx, ports.BindPolicyInput{Owner: "addr_alice", Label: "savings", Target: "inst_1"})
	if err != nil {
		t.Fatalf("bind policy failed: %v", err)
	}

	if err := service.ReleasePolicy(ctx, "addr_other", binding.Node); !errors.Is(err, domainerrors.ErrNotOwner) {
		t.Fatalf("expected owner check, got %v", err)
	}
	if err := service.ReleasePolicy(ctx, "addr_alice", binding.Node); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := service.Lookup(ctx, binding.Node); !errors.Is(err, domainerrors.ErrBindingNotFound) {
		t.Fatalf("expected released node gone, got %v", err)
	}
	if _, err := service.BindPolicy(ctx, ports.BindPolicyInput{Owner: "addr_alice", Label: "savings", Target: "inst_2"}); err != nil {
		t.Fatalf("rebinding released label failed: %v", err)
	}
}

func TestRegistrarMutationsAreAdminGated(t *testing.T) {
	service := newTestService(memory.NewStore())
	ctx := context.Background()

	if err := service.AddRegistrar(ctx, "stranger", "registrar_1"); !errors.Is(err, domainerrors.ErrNotAdmin) {
		t.Fatalf("expected admin gate on add, got %v", err)
	}
	if err := service.AddRegistrar(ctx, "admin", "registrar_1"); err != nil {
		t.Fatalf("add registrar failed: %v", err)
	}
	registrars, err := service.ListRegistrars(ctx)
	if err != nil || len(registrars) != 1 || registrars[0] != "registrar_1" {
		t.Fatalf("expected single registrar, got %+v %v", registrars, err)
	}
	if err := service.RemoveRegistrar(ctx, "stranger", "registrar_1"); !errors.Is(err, domainerrors.ErrNotAdmin) {
		t.Fatalf("expected admin gate on remove, got %v", err)
	}
	if err := service.RemoveRegistrar(ctx, "admin", "registrar_1"); err != nil {
		t.Fatalf("remove registrar failed: %v", err)
	}
	registrars, err = service.ListRegistrars(ctx)
	if err != nil || len(registrars) != 0 {
		t.Fatalf("expected empty registrar set, got %+v %v", registrars, err)
	}
}
