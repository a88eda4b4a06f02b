package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"tessera/contexts/policies/savings-policy/application"
	"tessera/contexts/policies/savings-policy/domain/entities"
	domainerrors "tessera/contexts/policies/savings-policy/domain/errors"
	"tessera/contexts/policies/savings-policy/ports"
	httptransport "tessera/contexts/policies/savings-policy/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) CreateInstanceHandler(ctx context.Context, req httptransport.CreateInstanceRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.CreateInstance(ctx, ports.CreateInstanceInput{
		Node:            req.Node,
		Owner:           req.Owner,
		Guardian:        req.Guardian,
		VaultAccount:    req.VaultAccount,
		FeeRecipient:    req.FeeRecipient,
		EmergencyFeeBps: req.EmergencyFeeBps,
		TimeLockDelay:   time.Duration(req.TimeLockSeconds) * time.Second,
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

func (h Handler) CreateGoalHandler(ctx context.Context, instanceID string, actor string, req httptransport.CreateGoalRequest) (httptransport.GoalResponse, error) {
	var deadline *time.Time
	if req.Deadline != "" {
		parsed, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			return httptransport.GoalResponse{}, domainerrors.ErrInvalidInput
		}
		deadline = &parsed
	}
	goal, err := h.Service.CreateGoal(ctx, instanceID, actor, ports.CreateGoalInput{
		Label:          req.Label,
		Asset:          req.Asset,
		TargetAmount:   req.TargetAmount,
		Deadline:       deadline,
		WithdrawalType: req.WithdrawalType,
	})
	if err != nil {
		return httptransport.GoalResponse{}, err
	}
	return goalResponse(goal), nil
}

func (h Handler) GetGoalHandler(ctx context.Context, instanceID string, goalID string) (httptransport.GoalResponse, error) {
	goal, err := h.Service.GetGoal(ctx, instanceID, goalID)
	if err != nil {
		return httptransport.GoalResponse{}, err
	}
	return goalResponse(goal), nil
}

func (h Handler) ListGoalsHandler(ctx context.Context, instanceID string) (httptransport.GoalsResponse, error) {
	goals, err := h.Service.ListGoals(ctx, instanceID)
	if err != nil {
		return httptransport.GoalsResponse{}, err
	}
	out := make([]httptransport.GoalDTO, 0, len(goals))
	for _, goal := range goals {
		out = append(out, toGoalDTO(goal))
	}
	return httptransport.GoalsResponse{Status: "success", Data: out}, nil
}

func (h Handler) ContributeHandler(ctx context.Context, instanceID string, goalID string, req httptransport.ContributeRequest) (httptransport.GoalResponse, error) {
	goal, err := h.Service.Contribute(ctx, instanceID, ports.ContributeInput{
		GoalID:      goalID,
		Contributor: req.Contributor,
		Amount:      req.Amount,
	})
	if err != nil {
		return httptransport.GoalResponse{}, err
	}
	return goalResponse(goal), nil
}

func (h Handler) WithdrawHandler(ctx context.Context, instanceID string, goalID string, req httptransport.WithdrawRequest) (httptransport.WithdrawResponse, error) {
	goal, withdrawal, err := h.Service.Withdraw(ctx, instanceID, ports.WithdrawInput{
		GoalID:    goalID,
		Actor:     req.Actor,
		Amount:    req.Amount,
		Emergency: req.Emergency,
	})
	if err != nil {
		return httptransport.WithdrawResponse{}, err
	}
	return httptransport.WithdrawResponse{
		Status: "success",
		Data: httptransport.WithdrawData{
			Goal:      toGoalDTO(goal),
			Withdrawn: toWithdrawalDTO(withdrawal),
		},
	}, nil
}

func (h Handler) PauseGoalHandler(ctx context.Context, instanceID string, goalID string, req httptransport.GoalActionRequest) (httptransport.GoalResponse, error) {
	goal, err := h.Service.PauseGoal(ctx, instanceID, req.Actor, goalID)
	if err != nil {
		return httptransport.GoalResponse{}, err
	}
	return goalResponse(goal), nil
}

func (h Handler) ResumeGoalHandler(ctx context.Context, instanceID string, goalID string, req httptransport.GoalActionRequest) (httptransport.GoalResponse, error) {
	goal, err := h.Service.ResumeGoal(ctx, instanceID, req.Actor, goalID)
	if err != nil {
		return httptransport.GoalResponse{}, err
	}
	return goalResponse(goal), nil
}

func (h Handler) SetEmergencyHandler(ctx context.Context, instanceID string, req httptransport.SetEmergencyRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.SetEmergency(ctx, instanceID, req.Actor, req.Active)
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) ConfigureAutoDepositHandler(ctx context.Context, instanceID string, goalID string, req httptransport.AutoDepositRequest) (httptransport.GoalResponse, error) {
	goal, err := h.Service.ConfigureAutoDeposit(ctx, instanceID, req.Actor, ports.AutoDepositInput{
		GoalID:   goalID,
		Amount:   req.Amount,
		Interval: time.Duration(req.IntervalSeconds) * time.Second,
	})
	if err != nil {
		return httptransport.GoalResponse{}, err
	}
	return goalResponse(goal), nil
}

func (h Handler) ContributionHistoryHandler(ctx context.Context, instanceID string, goalID string, limit int, offset int) (httptransport.ContributionHistoryResponse, error) {
	rows, err := h.Service.ListContributions(ctx, instanceID, goalID, limit, offset)
	if err != nil {
		return httptransport.ContributionHistoryResponse{}, err
	}
	out := make([]httptransport.ContributionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, httptransport.ContributionDTO{
			GoalID:        row.GoalID,
			Contributor:   row.Contributor,
			Amount:        row.Amount,
			ContributedAt: row.ContributedAt.UTC().Format(time.RFC3339),
		})
	}
	return httptransport.ContributionHistoryResponse{Status: "success", Data: out}, nil
}

func (h Handler) WithdrawalHistoryHandler(ctx context.Context, instanceID string, goalID string, limit int, offset int) (httptransport.WithdrawalHistoryResponse, error) {
	rows, err := h.Service.ListWithdrawals(ctx, instanceID, goalID, limit, offset)
	if err != nil {
		return httptransport.WithdrawalHistoryResponse{}, err
	}
	out := make([]httptransport.WithdrawalDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toWithdrawalDTO(row))
	}
	return httptransport.WithdrawalHistoryResponse{Status: "success", Data: out}, nil
}

func instanceResponse(instance entities.Instance) httptransport.InstanceResponse {
	return httptransport.InstanceResponse{
		Status: "success",
		Data: httptransport.InstanceDTO{
			InstanceID:      instance.ID,
			Node:            instance.Node,
			Owner:           instance.Owner,
			Guardian:        instance.Guardian,
			VaultAccount:    instance.VaultAccount,
			FeeRecipient:    instance.FeeRecipient,
			EmergencyFeeBps: instance.EmergencyFeeBps,
			TimeLockSeconds: int64(instance.TimeLockDelay / time.Second),
			EmergencyActive: instance.EmergencyActive,
		},
	}
}

func goalResponse(goal entities.SavingsGoal) httptransport.GoalResponse {
	return httptransport.GoalResponse{Status: "success", Data: toGoalDTO(goal)}
}

func toGoalDTO(goal entities.SavingsGoal) httptransport.GoalDTO {
	dto := httptransport.GoalDTO{
		GoalID:         goal.ID,
		Label:          goal.Label,
		Asset:          goal.Asset,
		TargetAmount:   goal.TargetAmount,
		CurrentAmount:  goal.CurrentAmount,
		Status:         string(goal.Status),
		WithdrawalType: string(goal.WithdrawalType),
		CreatedAt:      goal.CreatedAt.UTC().Format(time.RFC3339),
	}
	if goal.Deadline != nil {
		dto.Deadline = goal.Deadline.UTC().Format(time.RFC3339)
	}
	if goal.AutoDeposit.Amount > 0 {
		dto.AutoDeposit = &httptransport.AutoDepositDTO{
			Amount:          goal.AutoDeposit.Amount,
			IntervalSeconds: int64(goal.AutoDeposit.Interval / time.Second),
			LastRun:         goal.AutoDeposit.LastRun.UTC().Format(time.RFC3339),
		}
	}
	return dto
}

func toWithdrawalDTO(withdrawal entities.Withdrawal) httptransport.WithdrawalDTO {
	return httptransport.WithdrawalDTO{
		GoalID:      withdrawal.GoalID,
		Actor:       withdrawal.Actor,
		Amount:      withdrawal.Amount,
		FeeAmount:   withdrawal.FeeAmount,
		Emergency:   withdrawal.Emergency,
		WithdrawnAt: withdrawal.WithdrawnAt.UTC().Format(time.RFC3339),
	}
}
