package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"tessera/contexts/policies/fee-policy/application"
	"tessera/contexts/policies/fee-policy/domain/entities"
	domainerrors "tessera/contexts/policies/fee-policy/domain/errors"
	"tessera/contexts/policies/fee-policy/ports"
	httptransport "tessera/contexts/policies/fee-policy/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) CreateInstanceHandler(ctx context.Context, req httptransport.CreateInstanceRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.CreateInstance(ctx, ports.CreateInstanceInput{
		Node:              req.Node,
		Owner:             req.Owner,
		CollectionAccount: req.CollectionAccount,
	})
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) GetInstanceHandler(ctx context.Context, instanceID string) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.Repo.GetInstance(ctx, instanceID)
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) CreateScheduleHandler(ctx context.Context, instanceID string, req httptransport.CreateScheduleRequest) (httptransport.ScheduleResponse, error) {
	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		return httptransport.ScheduleResponse{}, domainerrors.ErrInvalidInput
	}
	schedule, err := h.Service.CreateSchedule(ctx, instanceID, req.Actor, ports.CreateScheduleInput{
		Payer:            req.Payer,
		Label:            req.Label,
		Asset:            req.Asset,
		TotalAmount:      req.TotalAmount,
		InstallmentCount: req.InstallmentCount,
		DueDate:          dueDate,
		GracePeriod:      time.Duration(req.GracePeriodSeconds) * time.Second,
		LateFeeBps:       req.LateFeeBps,
	})
	if err != nil {
		return httptransport.ScheduleResponse{}, err
	}
	return scheduleResponse(schedule), nil
}

func (h Handler) GetScheduleHandler(ctx context.Context, instanceID string, scheduleID string) (httptransport.ScheduleResponse, error) {
	schedule, err := h.Service.GetSchedule(ctx, instanceID, scheduleID)
	if err != nil {
		return httptransport.ScheduleResponse{}, err
	}
	return scheduleResponse(schedule), nil
}

func (h Handler) ListSchedulesHandler(ctx context.Context, instanceID string) (httptransport.SchedulesResponse, error) {
	schedules, err := h.Service.ListSchedules(ctx, instanceID)
	if err != nil {
		return httptransport.SchedulesResponse{}, err
	}
	out := make([]httptransport.ScheduleDTO, 0, len(schedules))
	for _, schedule := range schedules {
		out = append(out, toScheduleDTO(schedule))
	}
	return httptransport.SchedulesResponse{Status: "success", Data: out}, nil
}

func (h Handler) PayInstallmentHandler(ctx context.Context, instanceID string, scheduleID string, req httptransport.PayInstallmentRequest) (httptransport.ScheduleResponse, error) {
	schedule, err := h.Service.PayInstallment(ctx, instanceID, ports.PayInstallmentInput{
		ScheduleID: scheduleID,
		Payer:      req.Payer,
		Amount:     req.Amount,
	})
	if err != nil {
		return httptransport.ScheduleResponse{}, err
	}
	return scheduleResponse(schedule), nil
}

func (h Handler) ApplyLateFeesHandler(ctx context.Context, instanceID string, scheduleID string) (httptransport.ScheduleResponse, error) {
	schedule, err := h.Service.ApplyLateFees(ctx, instanceID, scheduleID)
	if err != nil {
		return httptransport.ScheduleResponse{}, err
	}
	return scheduleResponse(schedule), nil
}

func (h Handler) CancelScheduleHandler(ctx context.Context, instanceID string, scheduleID string, req httptransport.ScheduleActionRequest) (httptransport.ScheduleResponse, error) {
	schedule, err := h.Service.CancelSchedule(ctx, instanceID, req.Actor, scheduleID)
	if err != nil {
		return httptransport.ScheduleResponse{}, err
	}
	return scheduleResponse(schedule), nil
}

func (h Handler) InstallmentHistoryHandler(ctx context.Context, instanceID string, scheduleID string, limit int, offset int) (httptransport.InstallmentHistoryResponse, error) {
	rows, err := h.Service.ListInstallments(ctx, instanceID, scheduleID, limit, offset)
	if err != nil {
		return httptransport.InstallmentHistoryResponse{}, err
	}
	out := make([]httptransport.InstallmentDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, httptransport.InstallmentDTO{
			ScheduleID: row.ScheduleID,
			Payer:      row.Payer,
			Amount:     row.Amount,
			PaidAt:     row.PaidAt.UTC().Format(time.RFC3339),
		})
	}
	return httptransport.InstallmentHistoryResponse{Status: "success", Data: out}, nil
}

func instanceResponse(instance entities.Instance) httptransport.InstanceResponse {
	return httptransport.InstanceResponse{
		Status: "success",
		Data: httptransport.InstanceDTO{
			InstanceID:        instance.ID,
			Node:              instance.Node,
			Owner:             instance.Owner,
			CollectionAccount: instance.CollectionAccount,
		},
	}
}

func scheduleResponse(schedule entities.FeeSchedule) httptransport.ScheduleResponse {
	return httptransport.ScheduleResponse{Status: "success", Data: toScheduleDTO(schedule)}
}

func toScheduleDTO(schedule entities.FeeSchedule) httptransport.ScheduleDTO {
	return httptransport.ScheduleDTO{
		ScheduleID:         schedule.ID,
		Payer:              schedule.Payer,
		Label:              schedule.Label,
		Asset:              schedule.Asset,
		TotalAmount:        schedule.TotalAmount,
		PaidAmount:         schedule.PaidAmount,
		Remaining:          schedule.Remaining(),
		InstallmentCount:   schedule.InstallmentCount,
		InstallmentAmount:  schedule.InstallmentAmount,
		DueDate:            schedule.DueDate.UTC().Format(time.RFC3339),
		GracePeriodSeconds: int64(schedule.GracePeriod / time.Second),
		LateFeeBps:         schedule.LateFeeBps,
		Status:             string(schedule.Status),
	}
}
