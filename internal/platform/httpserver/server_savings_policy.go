package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	savingserrors "tessera/contexts/policies/savings-policy/domain/errors"
	savingshttp "tessera/contexts/policies/savings-policy/transport/http"
	"tessera/internal/shared/ledger"
)

func (s *Server) registerSavingsRoutes() {
	s.mux.HandleFunc("POST /api/savings/v1/instances", s.handleSavingsCreateInstance)
	s.mux.HandleFunc("GET /api/savings/v1/instances/{instance_id}", s.handleSavingsGetInstance)
	s.mux.HandleFunc("PUT /api/savings/v1/instances/{instance_id}/emergency", s.handleSavingsSetEmergency)
	s.mux.HandleFunc("POST /api/savings/v1/instances/{instance_id}/goals", s.handleSavingsCreateGoal)
	s.mux.HandleFunc("GET /api/savings/v1/instances/{instance_id}/goals", s.handleSavingsListGoals)
	s.mux.HandleFunc("GET /api/savings/v1/instances/{instance_id}/goals/{goal_id}", s.handleSavingsGetGoal)
	s.mux.HandleFunc("POST /api/savings/v1/instances/{instance_id}/goals/{goal_id}/contribute", s.handleSavingsContribute)
	s.mux.HandleFunc("POST /api/savings/v1/instances/{instance_id}/goals/{goal_id}/withdraw", s.handleSavingsWithdraw)
	s.mux.HandleFunc("POST /api/savings/v1/instances/{instance_id}/goals/{goal_id}/pause", s.handleSavingsPauseGoal)
	s.mux.HandleFunc("POST /api/savings/v1/instances/{instance_id}/goals/{goal_id}/resume", s.handleSavingsResumeGoal)
	s.mux.HandleFunc("PUT /api/savings/v1/instances/{instance_id}/goals/{goal_id}/auto-deposit", s.handleSavingsAutoDeposit)
	s.mux.HandleFunc("GET /api/savings/v1/instances/{instance_id}/goals/{goal_id}/contributions", s.handleSavingsContributionHistory)
	s.mux.HandleFunc("GET /api/savings/v1/instances/{instance_id}/goals/{goal_id}/withdrawals", s.handleSavingsWithdrawalHistory)
}

func (s *Server) handleSavingsCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req savingshttp.CreateInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSavingsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.savings.Handler.CreateInstanceHandler(r.Context(), req)
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsGetInstance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.savings.Handler.GetInstanceHandler(r.Context(), r.PathValue("instance_id"))
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsSetEmergency(w http.ResponseWriter, r *http.Request) {
	var req savingshttp.SetEmergencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSavingsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.savings.Handler.SetEmergencyHandler(r.Context(), r.PathValue("instance_id"), req)
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsCreateGoal(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(r)
	var req savingshttp.CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSavingsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.savings.Handler.CreateGoalHandler(r.Context(), r.PathValue("instance_id"), actor, req)
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsListGoals(w http.ResponseWriter, r *http.Request) {
	resp, err := s.savings.Handler.ListGoalsHandler(r.Context(), r.PathValue("instance_id"))
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsGetGoal(w http.ResponseWriter, r *http.Request) {
	resp, err := s.savings.Handler.GetGoalHandler(r.Context(), r.PathValue("instance_id"), r.PathValue("goal_id"))
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsContribute(w http.ResponseWriter, r *http.Request) {
	var req savingshttp.ContributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSavingsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.savings.Handler.ContributeHandler(r.Context(), r.PathValue("instance_id"), r.PathValue("goal_id"), req)
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsWithdraw(w http.ResponseWriter, r *http.Request) {
	var req savingshttp.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSavingsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.savings.Handler.WithdrawHandler(r.Context(), r.PathValue("instance_id"), r.PathValue("goal_id"), req)
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsPauseGoal(w http.ResponseWriter, r *http.Request) {
	var req savingshttp.GoalActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSavingsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.savings.Handler.PauseGoalHandler(r.Context(), r.PathValue("instance_id"), r.PathValue("goal_id"), req)
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsResumeGoal(w http.ResponseWriter, r *http.Request) {
	var req savingshttp.GoalActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSavingsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.savings.Handler.ResumeGoalHandler(r.Context(), r.PathValue("instance_id"), r.PathValue("goal_id"), req)
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsAutoDeposit(w http.ResponseWriter, r *http.Request) {
	var req savingshttp.AutoDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSavingsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.savings.Handler.ConfigureAutoDepositHandler(r.Context(), r.PathValue("instance_id"), r.PathValue("goal_id"), req)
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsContributionHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePage(r)
	if !ok {
		writeSavingsError(w, http.StatusBadRequest, "invalid_page", "limit and offset must be integers")
		return
	}
	resp, err := s.savings.Handler.ContributionHistoryHandler(
		r.Context(),
		r.PathValue("instance_id"),
		r.PathValue("goal_id"),
		limit,
		offset,
	)
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavingsWithdrawalHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePage(r)
	if !ok {
		writeSavingsError(w, http.StatusBadRequest, "invalid_page", "limit and offset must be integers")
		return
	}
	resp, err := s.savings.Handler.WithdrawalHistoryHandler(
		r.Context(),
		r.PathValue("instance_id"),
		r.PathValue("goal_id"),
		limit,
		offset,
	)
	if err != nil {
		writeSavingsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeSavingsDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, savingserrors.ErrInvalidInput),
		errors.Is(err, savingserrors.ErrZeroAmount),
		errors.Is(err, savingserrors.ErrInvalidWithdrawalType),
		errors.Is(err, savingserrors.ErrInvalidFee):
		writeSavingsError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, savingserrors.ErrInstanceNotFound),
		errors.Is(err, savingserrors.ErrGoalNotFound):
		writeSavingsError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, savingserrors.ErrGoalNotActive),
		errors.Is(err, savingserrors.ErrGoalNotPausable),
		errors.Is(err, savingserrors.ErrGoalNotResumable),
		errors.Is(err, savingserrors.ErrReentrantCall):
		writeSavingsError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, savingserrors.ErrExceedsGoalFunds):
		writeSavingsError(w, http.StatusUnprocessableEntity, "exceeds_goal_funds", err.Error())
	case errors.Is(err, savingserrors.ErrNotOwnerOrGuardian):
		writeSavingsError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, savingserrors.ErrTimeLocked),
		errors.Is(err, savingserrors.ErrGoalIncomplete),
		errors.Is(err, savingserrors.ErrEmergencyRequired):
		writeSavingsError(w, http.StatusForbidden, "withdrawal_gated", err.Error())
	case errors.Is(err, ledger.ErrTransferFailed):
		writeSavingsError(w, http.StatusFailedDependency, "transfer_failed", err.Error())
	case errors.Is(err, ledger.ErrHostFault):
		writeSavingsError(w, http.StatusBadGateway, "ledger_host_fault", err.Error())
	default:
		writeSavingsError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeSavingsError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, savingshttp.ErrorResponse{Code: code, Message: message})
}
