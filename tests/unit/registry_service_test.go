package unit

import (
	"context"
	"errors"
	"testing"

	registryservice "tessera/contexts/naming/registry-service"
	domainerrors "tessera/contexts/naming/registry-service/domain/errors"
	httptransport "tessera/contexts/naming/registry-service/transport/http"
)

func TestRegistryServiceRegisterAndLookup(t *testing.T) {
	module := registryservice.NewInMemoryModule("admin", nil)
	ctx := context.Background()

	availability, err := module.Handler.AvailabilityHandler(ctx, "alice")
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if !availability.Data.Available {
		t.Fatalf("expected alice available before registration")
	}

	bound, err := module.Handler.SelfRegisterHandler(ctx, httptransport.SelfRegisterRequest{
		Caller:   "addr_alice",
		Username: "alice",
	})
	if err != nil {
		t.Fatalf("self register failed: %v", err)
	}

	precomputed := module.Handler.UserNodeHandler(ctx, "alice")
	if bound.Data.Node != precomputed.Data.Node {
		t.Fatalf("expected binding node to match precomputed node, got %s and %s", bound.Data.Node, precomputed.Data.Node)
	}

	byNode, err := module.Handler.LookupNodeHandler(ctx, bound.Data.Node)
	if err != nil {
		t.Fatalf("lookup by node failed: %v", err)
	}
	if byNode.Data.Owner != "addr_alice" {
		t.Fatalf("expected owner addr_alice, got %s", byNode.Data.Owner)
	}
	byName, err := module.Handler.LookupUsernameHandler(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup by username failed: %v", err)
	}
	if byName.Data.Node != bound.Data.Node {
		t.Fatalf("expected same node from username lookup")
	}

	availability, err = module.Handler.AvailabilityHandler(ctx, "alice")
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if availability.Data.Available {
		t.Fatalf("expected alice taken after registration")
	}
}

func TestRegistryServiceUniquenessAndLabelRules(t *testing.T) {
	module := registryservice.NewInMemoryModule("admin", nil)
	ctx := context.Background()

	if _, err := module.Handler.SelfRegisterHandler(ctx, httptransport.SelfRegisterRequest{Caller: "addr_alice", Username: "alice"}); err != nil {
		t.Fatalf("self register failed: %v", err)
	}

	_, err := module.Handler.SelfRegisterHandler(ctx, httptransport.SelfRegisterRequest{Caller: "addr_other", Username: "alice"})
	if !errors.Is(err, domainerrors.ErrLabelTaken) {
		t.Fatalf("expected label taken, got %v", err)
	}
	_, err = module.Handler.SelfRegisterHandler(ctx, httptransport.SelfRegisterRequest{Caller: "addr_alice", Username: "second"})
	if !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("expected already registered, got %v", err)
	}
	_, err = module.Handler.SelfRegisterHandler(ctx, httptransport.SelfRegisterRequest{Caller: "addr_caps", Username: "Alice"})
	if !errors.Is(err, domainerrors.ErrInvalidLabel) {
		t.Fatalf("expected invalid label, got %v", err)
	}
}

func TestRegistryServiceRegistrarManagement(t *testing.T) {
	module := registryservice.NewInMemoryModule("admin", nil)
	ctx := context.Background()

	_, err := module.Handler.RegisterUserHandler(ctx, httptransport.RegisterUserRequest{
		Registrar: "stranger",
		Username:  "alice",
		Owner:     "addr_alice",
	})
	if !errors.Is(err, domainerrors.ErrNotRegistrar) {
		t.Fatalf("expected registrar gate, got %v", err)
	}

	if err := module.Handler.AddRegistrarHandler(ctx, httptransport.RegistrarRequest{Caller: "stranger", Registrar: "registrar_1"}); !errors.Is(err, domainerrors.ErrNotAdmin) {
		t.Fatalf("expected admin gate, got %v", err)
	}
	if err := module.Handler.AddRegistrarHandler(ctx, httptransport.RegistrarRequest{Caller: "admin", Registrar: "registrar_1"}); err != nil {
		t.Fatalf("add registrar failed: %v", err)
	}
	if _, err := module.Handler.RegisterUserHandler(ctx, httptransport.RegisterUserRequest{
		Registrar: "registrar_1",
		Username:  "alice",
		Owner:     "addr_alice",
	}); err != nil {
		t.Fatalf("registrar register failed: %v", err)
	}

	registrars, err := module.Handler.ListRegistrarsHandler(ctx)
	if err != nil {
		t.Fatalf("list registrars failed: %v", err)
	}
	if len(registrars.Data) != 1 || registrars.Data[0] != "registrar_1" {
		t.Fatalf("expected one registrar, got %+v", registrars.Data)
	}
	if err := module.Handler.RemoveRegistrarHandler(ctx, httptransport.RegistrarRequest{Caller: "admin", Registrar: "registrar_1"}); err != nil {
		t.Fatalf("remove registrar failed: %v", err)
	}
}

func TestRegistryServiceUpdateUsername(t *testing.T) {
	module := registryservice.NewInMemoryModule("admin", nil)
	ctx := context.Background()

	if _, err := module.Handler.SelfRegisterHandler(ctx, httptransport.SelfRegisterRequest{Caller: "addr_alice", Username: "alice"}); err != nil {
		t.Fatalf("self register failed: %v", err)
	}
	if _, err := module.Handler.SelfRegisterHandler(ctx, httptransport.SelfRegisterRequest{Caller: "addr_bob", Username: "bob"}); err != nil {
		t.Fatalf("self register failed: %v", err)
	}

	_, err := module.Handler.UpdateUsernameHandler(ctx, httptransport.UpdateUsernameRequest{Caller: "addr_alice", NewUsername: "bob"})
	if !errors.Is(err, domainerrors.ErrLabelTaken) {
		t.Fatalf("expected rename onto taken label to fail, got %v", err)
	}
	if _, err := module.Handler.LookupUsernameHandler(ctx, "alice"); err != nil {
		t.Fatalf("expected old binding intact after failed rename: %v", err)
	}

	updated, err := module.Handler.UpdateUsernameHandler(ctx, httptransport.UpdateUsernameRequest{Caller: "addr_alice", NewUsername: "alicia"})
	if err != nil {
		t.Fatalf("update username failed: %v", err)
	}
	if updated.Data.Label != "alicia" {
		t.Fatalf("expected new label alicia, got %s", updated.Data.Label)
	}
	if _, err := module.Handler.LookupUsernameHandler(ctx, "alice"); !errors.Is(err, domainerrors.ErrBindingNotFound) {
		t.Fatalf("expected old username released, got %v", err)
	}
}

func TestRegistryServicePolicyBindings(t *testing.T) {
	module := registryservice.NewInMemoryModule("admin", nil)
	ctx := context.Background()

	_, err := module.Handler.BindPolicyHandler(ctx, httptransport.BindPolicyRequest{Owner: "addr_alice", Label: "rent-split", Target: "inst_1"})
	if !errors.Is(err, domainerrors.ErrNotRegistered) {
		t.Fatalf("expected unregistered owner rejection, got %v", err)
	}

	if _, err := module.Handler.SelfRegisterHandler(ctx, httptransport.SelfRegisterRequest{Caller: "addr_alice", Username: "alice"}); err != nil {
		t.Fatalf("self register failed: %v", err)
	}
	bound, err := module.Handler.BindPolicyHandler(ctx, httptransport.BindPolicyRequest{Owner: "addr_alice", Label: "rent-split", Target: "inst_1"})
	if err != nil {
		t.Fatalf("bind policy failed: %v", err)
	}
	precomputed := module.Handler.PolicyNodeHandler(ctx, "alice", "rent-split")
	if bound.Data.Node != precomputed.Data.Node {
		t.Fatalf("expected policy node to match precomputed node")
	}

	policies, err := module.Handler.ListPoliciesHandler(ctx, "alice")
	if err != nil {
		t.Fatalf("list policies failed: %v", err)
	}
	if len(policies.Data) != 1 || policies.Data[0].Target != "inst_1" {
		t.Fatalf("expected one policy pointing at inst_1, got %+v", policies.Data)
	}

	if err := module.Handler.ReleasePolicyHandler(ctx, bound.Data.Node, httptransport.ReleasePolicyRequest{Caller: "addr_other"}); !errors.Is(err, domainerrors.ErrNotOwner) {
		t.Fatalf("expected owner check on release, got %v", err)
	}
	if err := module.Handler.ReleasePolicyHandler(ctx, bound.Data.Node, httptransport.ReleasePolicyRequest{Caller: "addr_alice"}); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := module.Handler.BindPolicyHandler(ctx, httptransport.BindPolicyRequest{Owner: "addr_alice", Label: "rent-split", Target: "inst_2"}); err != nil {
		t.Fatalf("rebinding released label failed: %v", err)
	}
}
