package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	feeerrors "tessera/contexts/policies/fee-policy/domain/errors"
	feehttp "tessera/contexts/policies/fee-policy/transport/http"
	"tessera/internal/shared/ledger"
)

func (s *Server) registerFeeRoutes() {
	s.mux.HandleFunc("POST /api/fees/v1/instances", s.handleFeeCreateInstance)
	s.mux.HandleFunc("GET /api/fees/v1/instances/{instance_id}", s.handleFeeGetInstance)
	s.mux.HandleFunc("POST /api/fees/v1/instances/{instance_id}/schedules", s.handleFeeCreateSchedule)
	s.mux.HandleFunc("GET /api/fees/v1/instances/{instance_id}/schedules", s.handleFeeListSchedules)
	s.mux.HandleFunc("GET /api/fees/v1/instances/{instance_id}/schedules/{schedule_id}", s.handleFeeGetSchedule)
	s.mux.HandleFunc("POST /api/fees/v1/instances/{instance_id}/schedules/{schedule_id}/pay", s.handleFeePayInstallment)
	s.mux.HandleFunc("POST /api/fees/v1/instances/{instance_id}/schedules/{schedule_id}/late-fees", s.handleFeeApplyLateFees)
	s.mux.HandleFunc("POST /api/fees/v1/instances/{instance_id}/schedules/{schedule_id}/cancel", s.handleFeeCancelSchedule)
	s.mux.HandleFunc("GET /api/fees/v1/instances/{instance_id}/schedules/{schedule_id}/installments", s.handleFeeInstallmentHistory)
}

func (s *Server) handleFeeCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req feehttp.CreateInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFeeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.fees.Handler.CreateInstanceHandler(r.Context(), req)
	if err != nil {
		writeFeeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeeGetInstance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.fees.Handler.GetInstanceHandler(r.Context(), r.PathValue("instance_id"))
	if err != nil {
		writeFeeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeeCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req feehttp.CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFeeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.fees.Handler.CreateScheduleHandler(r.Context(), r.PathValue("instance_id"), req)
	if err != nil {
		writeFeeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeeListSchedules(w http.ResponseWriter, r *http.Request) {
	resp, err := s.fees.Handler.ListSchedulesHandler(r.Context(), r.PathValue("instance_id"))
	if err != nil {
		writeFeeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeeGetSchedule(w http.ResponseWriter, r *http.Request) {
	resp, err := s.fees.Handler.GetScheduleHandler(r.Context(), r.PathValue("instance_id"), r.PathValue("schedule_id"))
	if err != nil {
		writeFeeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeePayInstallment(w http.ResponseWriter, r *http.Request) {
	var req feehttp.PayInstallmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFeeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.fees.Handler.PayInstallmentHandler(r.Context(), r.PathValue("instance_id"), r.PathValue("schedule_id"), req)
	if err != nil {
		writeFeeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeeApplyLateFees(w http.ResponseWriter, r *http.Request) {
	resp, err := s.fees.Handler.ApplyLateFeesHandler(r.Context(), r.PathValue("instance_id"), r.PathValue("schedule_id"))
	if err != nil {
		writeFeeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeeCancelSchedule(w http.ResponseWriter, r *http.Request) {
	var req feehttp.ScheduleActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFeeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.fees.Handler.CancelScheduleHandler(r.Context(), r.PathValue("instance_id"), r.PathValue("schedule_id"), req)
	if err != nil {
		writeFeeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeeInstallmentHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePage(r)
	if !ok {
		writeFeeError(w, http.StatusBadRequest, "invalid_page", "limit and offset must be integers")
		return
	}
	resp, err := s.fees.Handler.InstallmentHistoryHandler(
		r.Context(),
		r.PathValue("instance_id"),
		r.PathValue("schedule_id"),
		limit,
		offset,
	)
	if err != nil {
		writeFeeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeFeeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, feeerrors.ErrInvalidInput),
		errors.Is(err, feeerrors.ErrZeroAmount),
		errors.Is(err, feeerrors.ErrInvalidFeeRate):
		writeFeeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, feeerrors.ErrInstanceNotFound),
		errors.Is(err, feeerrors.ErrScheduleNotFound):
		writeFeeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, feeerrors.ErrScheduleClosed),
		errors.Is(err, feeerrors.ErrScheduleCompleted),
		errors.Is(err, feeerrors.ErrReentrantCall):
		writeFeeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, feeerrors.ErrExceedsRemaining),
		errors.Is(err, feeerrors.ErrNotOverdue):
		writeFeeError(w, http.StatusUnprocessableEntity, "unprocessable", err.Error())
	case errors.Is(err, feeerrors.ErrNotOwner):
		writeFeeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ledger.ErrTransferFailed):
		writeFeeError(w, http.StatusFailedDependency, "transfer_failed", err.Error())
	case errors.Is(err, ledger.ErrHostFault):
		writeFeeError(w, http.StatusBadGateway, "ledger_host_fault", err.Error())
	default:
		writeFeeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeFeeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, feehttp.ErrorResponse{Code: code, Message: message})
}
