package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	spliterrors "tessera/contexts/policies/split-policy/domain/errors"
	splithttp "tessera/contexts/policies/split-policy/transport/http"
	"tessera/internal/shared/ledger"
)

func (s *Server) registerSplitRoutes() {
	s.mux.HandleFunc("POST /api/split/v1/instances", s.handleSplitCreateInstance)
	s.mux.HandleFunc("GET /api/split/v1/instances/{instance_id}", s.handleSplitGetInstance)
	s.mux.HandleFunc("POST /api/split/v1/instances/{instance_id}/rules", s.handleSplitAddRule)
	s.mux.HandleFunc("PUT /api/split/v1/instances/{instance_id}/rules/{recipient}", s.handleSplitUpdateRule)
	s.mux.HandleFunc("POST /api/split/v1/instances/{instance_id}/rules/{recipient}/deactivate", s.handleSplitDeactivateRule)
	s.mux.HandleFunc("POST /api/split/v1/instances/{instance_id}/tiers", s.handleSplitAddTier)
	s.mux.HandleFunc("PUT /api/split/v1/instances/{instance_id}/tiers/{index}", s.handleSplitSetTierActive)
	s.mux.HandleFunc("POST /api/split/v1/instances/{instance_id}/managers", s.handleSplitGrantManager)
	s.mux.HandleFunc("POST /api/split/v1/instances/{instance_id}/managers/revoke", s.handleSplitRevokeManager)
	s.mux.HandleFunc("PUT /api/split/v1/instances/{instance_id}/assets", s.handleSplitSetAcceptedAssets)
	s.mux.HandleFunc("POST /api/split/v1/instances/{instance_id}/payments", s.handleSplitMakePayment)
	s.mux.HandleFunc("POST /api/split/v1/instances/{instance_id}/payments/{index}/distribute", s.handleSplitDistribute)
	s.mux.HandleFunc("POST /api/split/v1/instances/{instance_id}/preview", s.handleSplitPreview)
	s.mux.HandleFunc("GET /api/split/v1/instances/{instance_id}/payments", s.handleSplitPaymentHistory)
	s.mux.HandleFunc("GET /api/split/v1/instances/{instance_id}/distributions", s.handleSplitDistributionHistory)
	s.mux.HandleFunc("GET /api/split/v1/instances/{instance_id}/balances", s.handleSplitListBalances)
	s.mux.HandleFunc("GET /api/split/v1/instances/{instance_id}/balances/{recipient}", s.handleSplitRecipientBalance)
}

func (s *Server) handleSplitCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req splithttp.CreateInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.split.Handler.CreateInstanceHandler(r.Context(), req)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitGetInstance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.split.Handler.GetInstanceHandler(r.Context(), r.PathValue("instance_id"))
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitAddRule(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(r)
	if strings.TrimSpace(actor) == "" {
		writeSplitError(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Id header is required")
		return
	}
	var req splithttp.AddRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.split.Handler.AddRuleHandler(r.Context(), r.PathValue("instance_id"), actor, req)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitUpdateRule(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(r)
	if strings.TrimSpace(actor) == "" {
		writeSplitError(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Id header is required")
		return
	}
	var req splithttp.UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.split.Handler.UpdateRuleHandler(
		r.Context(),
		r.PathValue("instance_id"),
		actor,
		r.PathValue("recipient"),
		req,
	)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitDeactivateRule(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(r)
	if strings.TrimSpace(actor) == "" {
		writeSplitError(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Id header is required")
		return
	}
	resp, err := s.split.Handler.DeactivateRuleHandler(
		r.Context(),
		r.PathValue("instance_id"),
		actor,
		r.PathValue("recipient"),
	)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitAddTier(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(r)
	if strings.TrimSpace(actor) == "" {
		writeSplitError(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Id header is required")
		return
	}
	var req splithttp.AddTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.split.Handler.AddTierHandler(r.Context(), r.PathValue("instance_id"), actor, req)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitSetTierActive(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(r)
	if strings.TrimSpace(actor) == "" {
		writeSplitError(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Id header is required")
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_index", "tier index must be an integer")
		return
	}
	var req splithttp.SetTierActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.split.Handler.SetTierActiveHandler(r.Context(), r.PathValue("instance_id"), actor, index, req)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitGrantManager(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(r)
	if strings.TrimSpace(actor) == "" {
		writeSplitError(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Id header is required")
		return
	}
	var req splithttp.ManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.split.Handler.GrantManagerHandler(r.Context(), r.PathValue("instance_id"), actor, req)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitRevokeManager(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(r)
	if strings.TrimSpace(actor) == "" {
		writeSplitError(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Id header is required")
		return
	}
	var req splithttp.ManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.split.Handler.RevokeManagerHandler(r.Context(), r.PathValue("instance_id"), actor, req)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitSetAcceptedAssets(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(r)
	if strings.TrimSpace(actor) == "" {
		writeSplitError(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Id header is required")
		return
	}
	var req splithttp.SetAcceptedAssetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.split.Handler.SetAcceptedAssetsHandler(r.Context(), r.PathValue("instance_id"), actor, req)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitMakePayment(w http.ResponseWriter, r *http.Request) {
	var req splithttp.MakePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.split.Handler.MakePaymentHandler(r.Context(), r.PathValue("instance_id"), req)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitDistribute(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_index", "payment index must be an integer")
		return
	}
	resp, err := s.split.Handler.DistributePaymentHandler(r.Context(), r.PathValue("instance_id"), index)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitPreview(w http.ResponseWriter, r *http.Request) {
	var req splithttp.PreviewSplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.split.Handler.PreviewSplitHandler(r.Context(), r.PathValue("instance_id"), req)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitPaymentHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePage(r)
	if !ok {
		writeSplitError(w, http.StatusBadRequest, "invalid_page", "limit and offset must be integers")
		return
	}
	resp, err := s.split.Handler.PaymentHistoryHandler(r.Context(), r.PathValue("instance_id"), limit, offset)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitDistributionHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePage(r)
	if !ok {
		writeSplitError(w, http.StatusBadRequest, "invalid_page", "limit and offset must be integers")
		return
	}
	resp, err := s.split.Handler.DistributionHistoryHandler(r.Context(), r.PathValue("instance_id"), limit, offset)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitListBalances(w http.ResponseWriter, r *http.Request) {
	resp, err := s.split.Handler.ListBalancesHandler(r.Context(), r.PathValue("instance_id"))
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSplitRecipientBalance(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	resp, err := s.split.Handler.RecipientBalanceHandler(
		r.Context(),
		r.PathValue("instance_id"),
		r.PathValue("recipient"),
		asset,
	)
	if err != nil {
		writeSplitDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeSplitDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, spliterrors.ErrInvalidInput),
		errors.Is(err, spliterrors.ErrInvalidPercentage),
		errors.Is(err, spliterrors.ErrInvalidAmountWindow),
		errors.Is(err, spliterrors.ErrZeroAmount):
		writeSplitError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, spliterrors.ErrInstanceNotFound),
		errors.Is(err, spliterrors.ErrRuleNotFound),
		errors.Is(err, spliterrors.ErrTierNotFound),
		errors.Is(err, spliterrors.ErrPaymentNotFound):
		writeSplitError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, spliterrors.ErrDuplicateRecipient),
		errors.Is(err, spliterrors.ErrAlreadyDistributed),
		errors.Is(err, spliterrors.ErrReentrantCall):
		writeSplitError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, spliterrors.ErrAssetNotAccepted),
		errors.Is(err, spliterrors.ErrAllocationIncomplete):
		writeSplitError(w, http.StatusUnprocessableEntity, "unprocessable", err.Error())
	case errors.Is(err, spliterrors.ErrNotOwner),
		errors.Is(err, spliterrors.ErrNotManager):
		writeSplitError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, spliterrors.ErrRemainderTransferFailed),
		errors.Is(err, ledger.ErrTransferFailed):
		writeSplitError(w, http.StatusFailedDependency, "transfer_failed", err.Error())
	case errors.Is(err, ledger.ErrHostFault):
		writeSplitError(w, http.StatusBadGateway, "ledger_host_fault", err.Error())
	default:
		writeSplitError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeSplitError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, splithttp.ErrorResponse{Code: code, Message: message})
}
