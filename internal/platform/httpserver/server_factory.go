package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	factoryerrors "tessera/contexts/naming/policy-factory/domain/errors"
	factoryhttp "tessera/contexts/naming/policy-factory/transport/http"
	registryerrors "tessera/contexts/naming/registry-service/domain/errors"
)

func (s *Server) registerFactoryRoutes() {
	s.mux.HandleFunc("POST /api/factory/v1/policies", s.handleFactoryCreatePolicy)
	s.mux.HandleFunc("POST /api/factory/v1/policies/sponsored", s.handleFactoryCreatePolicyFor)
	s.mux.HandleFunc("GET /api/factory/v1/policies", s.handleFactoryListPolicies)
}

func (s *Server) handleFactoryCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req factoryhttp.CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFactoryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.factory.Handler.CreatePolicyHandler(r.Context(), req)
	if err != nil {
		writeFactoryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFactoryCreatePolicyFor(w http.ResponseWriter, r *http.Request) {
	var req factoryhttp.CreatePolicyForRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFactoryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.factory.Handler.CreatePolicyForHandler(r.Context(), req)
	if err != nil {
		writeFactoryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFactoryListPolicies(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = resolveActor(r)
	}
	resp, err := s.factory.Handler.ListPoliciesHandler(r.Context(), owner)
	if err != nil {
		writeFactoryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeFactoryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, factoryerrors.ErrInvalidInput),
		errors.Is(err, factoryerrors.ErrUnknownPolicyType):
		writeFactoryError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, factoryerrors.ErrNotRegistered):
		writeFactoryError(w, http.StatusPreconditionFailed, "not_registered", err.Error())
	case errors.Is(err, factoryerrors.ErrFeeNotPaid):
		writeFactoryError(w, http.StatusPaymentRequired, "fee_not_paid", err.Error())
	case errors.Is(err, factoryerrors.ErrInitFailed):
		writeFactoryError(w, http.StatusUnprocessableEntity, "init_failed", err.Error())
	case errors.Is(err, registryerrors.ErrLabelTaken):
		writeFactoryError(w, http.StatusConflict, "label_taken", err.Error())
	case errors.Is(err, registryerrors.ErrInvalidLabel):
		writeFactoryError(w, http.StatusBadRequest, "invalid_label", err.Error())
	default:
		writeFactoryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeFactoryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, factoryhttp.ErrorResponse{Code: code, Message: message})
}
