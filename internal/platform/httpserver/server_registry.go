package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	registryerrors "tessera/contexts/naming/registry-service/domain/errors"
	registryhttp "tessera/contexts/naming/registry-service/transport/http"
)

func (s *Server) registerRegistryRoutes() {
	s.mux.HandleFunc("POST /api/registry/v1/users", s.handleRegistryRegisterUser)
	s.mux.HandleFunc("POST /api/registry/v1/users/self", s.handleRegistrySelfRegister)
	s.mux.HandleFunc("PUT /api/registry/v1/users/username", s.handleRegistryUpdateUsername)
	s.mux.HandleFunc("GET /api/registry/v1/users/{username}", s.handleRegistryLookupUsername)
	s.mux.HandleFunc("GET /api/registry/v1/users/{username}/availability", s.handleRegistryAvailability)
	s.mux.HandleFunc("GET /api/registry/v1/users/{username}/node", s.handleRegistryUserNode)
	s.mux.HandleFunc("GET /api/registry/v1/users/{username}/policies", s.handleRegistryListPolicies)
	s.mux.HandleFunc("GET /api/registry/v1/users/{username}/policies/{label}/node", s.handleRegistryPolicyNode)
	s.mux.HandleFunc("POST /api/registry/v1/policies", s.handleRegistryBindPolicy)
	s.mux.HandleFunc("POST /api/registry/v1/policies/{node}/release", s.handleRegistryReleasePolicy)
	s.mux.HandleFunc("GET /api/registry/v1/nodes/{node}", s.handleRegistryLookupNode)
	s.mux.HandleFunc("GET /api/registry/v1/registrars", s.handleRegistryListRegistrars)
	s.mux.HandleFunc("POST /api/registry/v1/registrars", s.handleRegistryAddRegistrar)
	s.mux.HandleFunc("POST /api/registry/v1/registrars/remove", s.handleRegistryRemoveRegistrar)
}

func (s *Server) handleRegistryRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Registrar) == "" {
		req.Registrar = resolveActor(r)
	}
	resp, err := s.registry.Handler.RegisterUserHandler(r.Context(), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistrySelfRegister(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.SelfRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.registry.Handler.SelfRegisterHandler(r.Context(), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistryUpdateUsername(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.UpdateUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.registry.Handler.UpdateUsernameHandler(r.Context(), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistryLookupUsername(w http.ResponseWriter, r *http.Request) {
	resp, err := s.registry.Handler.LookupUsernameHandler(r.Context(), r.PathValue("username"))
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistryAvailability(w http.ResponseWriter, r *http.Request) {
	resp, err := s.registry.Handler.AvailabilityHandler(r.Context(), r.PathValue("username"))
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistryUserNode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Handler.UserNodeHandler(r.Context(), r.PathValue("username")))
}

func (s *Server) handleRegistryPolicyNode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Handler.PolicyNodeHandler(
		r.Context(),
		r.PathValue("username"),
		r.PathValue("label"),
	))
}

func (s *Server) handleRegistryListPolicies(w http.ResponseWriter, r *http.Request) {
	resp, err := s.registry.Handler.ListPoliciesHandler(r.Context(), r.PathValue("username"))
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistryBindPolicy(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.BindPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.registry.Handler.BindPolicyHandler(r.Context(), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistryReleasePolicy(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.ReleasePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.registry.Handler.ReleasePolicyHandler(r.Context(), r.PathValue("node"), req); err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleRegistryLookupNode(w http.ResponseWriter, r *http.Request) {
	resp, err := s.registry.Handler.LookupNodeHandler(r.Context(), r.PathValue("node"))
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistryListRegistrars(w http.ResponseWriter, r *http.Request) {
	resp, err := s.registry.Handler.ListRegistrarsHandler(r.Context())
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistryAddRegistrar(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.RegistrarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.registry.Handler.AddRegistrarHandler(r.Context(), req); err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleRegistryRemoveRegistrar(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.RegistrarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.registry.Handler.RemoveRegistrarHandler(r.Context(), req); err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func writeRegistryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registryerrors.ErrInvalidInput),
		errors.Is(err, registryerrors.ErrInvalidLabel):
		writeRegistryError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, registryerrors.ErrBindingNotFound),
		errors.Is(err, registryerrors.ErrNotRegistered):
		writeRegistryError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, registryerrors.ErrLabelTaken),
		errors.Is(err, registryerrors.ErrAlreadyRegistered):
		writeRegistryError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, registryerrors.ErrNotRegistrar),
		errors.Is(err, registryerrors.ErrNotAdmin),
		errors.Is(err, registryerrors.ErrNotOwner):
		writeRegistryError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		writeRegistryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRegistryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, registryhttp.ErrorResponse{Code: code, Message: message})
}
