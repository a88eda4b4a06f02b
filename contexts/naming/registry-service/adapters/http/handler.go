package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"tessera/contexts/naming/registry-service/application"
	"tessera/contexts/naming/registry-service/domain/entities"
	"tessera/contexts/naming/registry-service/ports"
	httptransport "tessera/contexts/naming/registry-service/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) RegisterUserHandler(ctx context.Context, req httptransport.RegisterUserRequest) (httptransport.BindingResponse, error) {
	binding, err := h.Service.RegisterUser(ctx, req.Registrar, ports.RegisterUserInput{
		Username: req.Username,
		Owner:    req.Owner,
	})
	if err != nil {
		return httptransport.BindingResponse{}, err
	}
	return bindingResponse(binding), nil
}

func (h Handler) SelfRegisterHandler(ctx context.Context, req httptransport.SelfRegisterRequest) (httptransport.BindingResponse, error) {
	binding, err := h.Service.SelfRegister(ctx, req.Caller, req.Username)
	if err != nil {
		return httptransport.BindingResponse{}, err
	}
	return bindingResponse(binding), nil
}

func (h Handler) UpdateUsernameHandler(ctx context.Context, req httptransport.UpdateUsernameRequest) (httptransport.BindingResponse, error) {
	binding, err := h.Service.UpdateUsername(ctx, req.Caller, req.NewUsername)
	if err != nil {
		return httptransport.BindingResponse{}, err
	}
	return bindingResponse(binding), nil
}

func (h Handler) BindPolicyHandler(ctx context.Context, req httptransport.BindPolicyRequest) (httptransport.BindingResponse, error) {
	binding, err := h.Service.BindPolicy(ctx, ports.BindPolicyInput{
		Owner:  req.Owner,
		Label:  req.Label,
		Target: req.Target,
	})
	if err != nil {
		return httptransport.BindingResponse{}, err
	}
	return bindingResponse(binding), nil
}

func (h Handler) ReleasePolicyHandler(ctx context.Context, node string, req httptransport.ReleasePolicyRequest) error {
	return h.Service.ReleasePolicy(ctx, req.Caller, node)
}

func (h Handler) LookupNodeHandler(ctx context.Context, node string) (httptransport.BindingResponse, error) {
	binding, err := h.Service.Lookup(ctx, node)
	if err != nil {
		return httptransport.BindingResponse{}, err
	}
	return bindingResponse(binding), nil
}

func (h Handler) LookupUsernameHandler(ctx context.Context, username string) (httptransport.BindingResponse, error) {
	binding, err := h.Service.LookupUsername(ctx, username)
	if err != nil {
		return httptransport.BindingResponse{}, err
	}
	return bindingResponse(binding), nil
}

func (h Handler) AvailabilityHandler(ctx context.Context, username string) (httptransport.AvailabilityResponse, error) {
	available, err := h.Service.Available(ctx, username)
	if err != nil {
		return httptransport.AvailabilityResponse{}, err
	}
	return httptransport.AvailabilityResponse{
		Status: "success",
		Data: httptransport.AvailabilityData{
			Username:  username,
			Node:      h.Service.CalculateUserNode(username),
			Available: available,
		},
	}, nil
}

func (h Handler) UserNodeHandler(_ context.Context, username string) httptransport.NodeResponse {
	return httptransport.NodeResponse{
		Status: "success",
		Data:   httptransport.NodeData{Node: h.Service.CalculateUserNode(username)},
	}
}

func (h Handler) PolicyNodeHandler(_ context.Context, username string, label string) httptransport.NodeResponse {
	return httptransport.NodeResponse{
		Status: "success",
		Data:   httptransport.NodeData{Node: h.Service.CalculatePolicyNode(username, label)},
	}
}

func (h Handler) ListPoliciesHandler(ctx context.Context, username string) (httptransport.BindingsResponse, error) {
	bindings, err := h.Service.ListPolicies(ctx, username)
	if err != nil {
		return httptransport.BindingsResponse{}, err
	}
	out := make([]httptransport.BindingDTO, 0, len(bindings))
	for _, binding := range bindings {
		out = append(out, toBindingDTO(binding))
	}
	return httptransport.BindingsResponse{Status: "success", Data: out}, nil
}

func (h Handler) AddRegistrarHandler(ctx context.Context, req httptransport.RegistrarRequest) error {
	return h.Service.AddRegistrar(ctx, req.Caller, req.Registrar)
}

func (h Handler) RemoveRegistrarHandler(ctx context.Context, req httptransport.RegistrarRequest) error {
	return h.Service.RemoveRegistrar(ctx, req.Caller, req.Registrar)
}

func (h Handler) ListRegistrarsHandler(ctx context.Context) (httptransport.RegistrarsResponse, error) {
	registrars, err := h.Service.ListRegistrars(ctx)
	if err != nil {
		return httptransport.RegistrarsResponse{}, err
	}
	return httptransport.RegistrarsResponse{Status: "success", Data: registrars}, nil
}

func bindingResponse(binding entities.Binding) httptransport.BindingResponse {
	return httptransport.BindingResponse{Status: "success", Data: toBindingDTO(binding)}
}

func toBindingDTO(binding entities.Binding) httptransport.BindingDTO {
	return httptransport.BindingDTO{
		Node:       binding.Node,
		ParentNode: binding.ParentNode,
		Label:      binding.Label,
		Owner:      binding.Owner,
		Target:     binding.Target,
		CreatedAt:  binding.CreatedAt.UTC().Format(time.RFC3339),
	}
}
