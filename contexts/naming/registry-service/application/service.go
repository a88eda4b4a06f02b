package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tessera/contexts/naming/registry-service/domain/entities"
	domainerrors "tessera/contexts/naming/registry-service/domain/errors"
	"tessera/contexts/naming/registry-service/domain/services"
	"tessera/contexts/naming/registry-service/ports"
)

// Service owns the name -> owner bookkeeping. Admin is the address allowed
// to mutate the registrar set.
type Service struct {
	Repo   ports.Repository
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Admin  string
	Logger *slog.Logger
}

// RegisterUser binds a username on behalf of an address. Registrar-gated.
func (s Service) RegisterUser(ctx context.Context, registrar string, input ports.RegisterUserInput) (entities.Binding, error) {
	registrar = strings.TrimSpace(registrar)
	ok, err := s.Repo.IsRegistrar(ctx, registrar)
	if err != nil {
		return entities.Binding{}, err
	}
	if !ok && registrar != strings.TrimSpace(s.Admin) {
		return entities.Binding{}, domainerrors.ErrNotRegistrar
	}
	return s.register(ctx, input)
}

// SelfRegister binds a username to the caller's own address.
func (s Service) SelfRegister(ctx context.Context, caller string, username string) (entities.Binding, error) {
	return s.register(ctx, ports.RegisterUserInput{
		Username: username,
		Owner:    caller,
	})
}

func (s Service) register(ctx context.Context, input ports.RegisterUserInput) (entities.Binding, error) {
	username := strings.TrimSpace(input.Username)
	owner := strings.TrimSpace(input.Owner)
	if owner == "" {
		return entities.Binding{}, domainerrors.ErrInvalidInput
	}
	if !services.ValidUserLabel(username) {
		return entities.Binding{}, domainerrors.ErrInvalidLabel
	}
	if _, err := s.Repo.GetBindingByOwner(ctx, services.RootNode, owner); err == nil {
		return entities.Binding{}, domainerrors.ErrAlreadyRegistered
	} else if !errors.Is(err, domainerrors.ErrBindingNotFound) {
		return entities.Binding{}, err
	}

	now := s.now()
	binding := entities.Binding{
		Node:       services.CalculateNode(services.RootNode, username),
		ParentNode: services.RootNode,
		Label:      username,
		Owner:      owner,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.CreateBinding(ctx, binding); err != nil {
		return entities.Binding{}, err
	}

	s.emitEvent(ctx, "registry.bound", binding.Node, map[string]any{
		"node":   binding.Node,
		"parent": binding.ParentNode,
		"label":  binding.Label,
		"owner":  binding.Owner,
	})
	ResolveLogger(s.Logger).Info("username bound",
		"event", "registry_username_bound",
		"module", "naming/registry-service",
		"layer", "application",
		"node", binding.Node,
		"label", binding.Label,
	)
	return binding, nil
}

// UpdateUsername releases the caller's current username and claims the new
// one in a single repository operation. A taken label fails the whole call
// with no partial state.
func (s Service) UpdateUsername(ctx context.Context, caller string, newUsername string) (entities.Binding, error) {
	caller = strings.TrimSpace(caller)
	newUsername = strings.TrimSpace(newUsername)
	if !services.ValidUserLabel(newUsername) {
		return entities.Binding{}, domainerrors.ErrInvalidLabel
	}

	current, err := s.Repo.GetBindingByOwner(ctx, services.RootNode, caller)
	if err != nil {
		if errors.Is(err, domainerrors.ErrBindingNotFound) {
			return entities.Binding{}, domainerrors.ErrNotRegistered
		}
		return entities.Binding{}, err
	}

	now := s.now()
	next := entities.Binding{
		Node:       services.CalculateNode(services.RootNode, newUsername),
		ParentNode: services.RootNode,
		Label:      newUsername,
		Owner:      current.Owner,
		CreatedAt:  current.CreatedAt,
		UpdatedAt:  now,
	}
	if next.Node == current.Node {
		return current, nil
	}
	if err := s.Repo.ReplaceBinding(ctx, current.Node, next); err != nil {
		return entities.Binding{}, err
	}

	s.emitEvent(ctx, "registry.rebound", next.Node, map[string]any{
		"node":      next.Node,
		"old_node":  current.Node,
		"label":     next.Label,
		"old_label": current.Label,
		"owner":     next.Owner,
	})
	return next, nil
}

// BindPolicy registers a policy instance under the owner's own node.
func (s Service) BindPolicy(ctx context.Context, input ports.BindPolicyInput) (entities.Binding, error) {
	owner := strings.TrimSpace(input.Owner)
	label := strings.TrimSpace(input.Label)
	target := strings.TrimSpace(input.Target)
	if owner == "" || target == "" {
		return entities.Binding{}, domainerrors.ErrInvalidInput
	}
	if !services.ValidPolicyLabel(label) {
		return entities.Binding{}, domainerrors.ErrInvalidLabel
	}

	parent, err := s.Repo.GetBindingByOwner(ctx, services.RootNode, owner)
	if err != nil {
		if errors.Is(err, domainerrors.ErrBindingNotFound) {
			return entities.Binding{}, domainerrors.ErrNotRegistered
		}
		return entities.Binding{}, err
	}

	now := s.now()
	binding := entities.Binding{
		Node:       services.CalculateNode(parent.Node, label),
		ParentNode: parent.Node,
		Label:      label,
		Owner:      owner,
		Target:     target,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.CreateBinding(ctx, binding); err != nil {
		return entities.Binding{}, err
	}

	s.emitEvent(ctx, "registry.bound", binding.Node, map[string]any{
		"node":   binding.Node,
		"parent": binding.ParentNode,
		"label":  binding.Label,
		"owner":  binding.Owner,
		"target": binding.Target,
	})
	return binding, nil
}

// ReleasePolicy removes a policy sub-binding so its label can be reused.
func (s Service) ReleasePolicy(ctx context.Context, caller string, node string) error {
	binding, err := s.Repo.GetBinding(ctx, strings.TrimSpace(node))
	if err != nil {
		return err
	}
	if binding.Owner != strings.TrimSpace(caller) {
		return domainerrors.ErrNotOwner
	}
	return s.Repo.DeleteBinding(ctx, binding.Node)
}

// Lookup resolves a node to its binding.
func (s Service) Lookup(ctx context.Context, node string) (entities.Binding, error) {
	return s.Repo.GetBinding(ctx, strings.TrimSpace(node))
}

// LookupUsername resolves a username to its binding.
func (s Service) LookupUsername(ctx context.Context, username string) (entities.Binding, error) {
	return s.Repo.GetBinding(ctx, services.CalculateNode(services.RootNode, strings.TrimSpace(username)))
}

// Available reports whether a username is free to claim.
func (s Service) Available(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if !services.ValidUserLabel(username) {
		return false, domainerrors.ErrInvalidLabel
	}
	_, err := s.Repo.GetBinding(ctx, services.CalculateNode(services.RootNode, username))
	if err == nil {
		return false, nil
	}
	if errors.Is(err, domainerrors.ErrBindingNotFound) {
		return true, nil
	}
	return false, err
}

// ListPolicies lists the sub-bindings under a username's node.
func (s Service) ListPolicies(ctx context.Context, username string) ([]entities.Binding, error) {
	node := services.CalculateNode(services.RootNode, strings.TrimSpace(username))
	return s.Repo.ListChildren(ctx, node)
}

// CalculateUserNode precomputes the node a username would bind to.
func (s Service) CalculateUserNode(username string) string {
	return services.CalculateNode(services.RootNode, strings.TrimSpace(username))
}

// CalculatePolicyNode precomputes the node a policy label would bind to
// under a username.
func (s Service) CalculatePolicyNode(username string, label string) string {
	userNode := services.CalculateNode(services.RootNode, strings.TrimSpace(username))
	return services.CalculateNode(userNode, strings.TrimSpace(label))
}

// AddRegistrar and RemoveRegistrar mutate the authorized registrar set.
// Admin-gated.
func (s Service) AddRegistrar(ctx context.Context, caller string, registrar string) error {
	if strings.TrimSpace(caller) != strings.TrimSpace(s.Admin) {
		return domainerrors.ErrNotAdmin
	}
	registrar = strings.TrimSpace(registrar)
	if registrar == "" {
		return domainerrors.ErrInvalidInput
	}
	return s.Repo.AddRegistrar(ctx, registrar)
}

func (s Service) RemoveRegistrar(ctx context.Context, caller string, registrar string) error {
	if strings.TrimSpace(caller) != strings.TrimSpace(s.Admin) {
		return domainerrors.ErrNotAdmin
	}
	return s.Repo.RemoveRegistrar(ctx, strings.TrimSpace(registrar))
}

func (s Service) ListRegistrars(ctx context.Context) ([]string, error) {
	return s.Repo.ListRegistrars(ctx)
}

func (s Service) emitEvent(ctx context.Context, eventType string, node string, payload map[string]any) {
	if s.Outbox == nil {
		return
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = s.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          strings.TrimSpace(eventID),
		EventType:        eventType,
		OccurredAt:       s.now(),
		SourceService:    "registry-service",
		TraceID:          strings.TrimSpace(eventID),
		SchemaVersion:    1,
		PartitionKeyPath: "node",
		PartitionKey:     node,
		Data:             data,
	})
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
