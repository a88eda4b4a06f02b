package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"tessera/contexts/policies/split-policy/application"
	"tessera/contexts/policies/split-policy/domain/entities"
	"tessera/contexts/policies/split-policy/ports"
	httptransport "tessera/contexts/policies/split-policy/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) CreateInstanceHandler(ctx context.Context, req httptransport.CreateInstanceRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.CreateInstance(ctx, ports.CreateInstanceInput{
		Node:                  req.Node,
		Owner:                 req.Owner,
		FundingAccount:        req.FundingAccount,
		FallbackRecipient:     req.FallbackRecipient,
		AcceptedAssets:        req.AcceptedAssets,
		AutoDistribute:        req.AutoDistribute,
		RequireFullAllocation: req.RequireFullAllocation,
	})
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) GetInstanceHandler(ctx context.Context, instanceID string) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.GetInstance(ctx, instanceID)
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) AddRuleHandler(ctx context.Context, instanceID string, actor string, req httptransport.AddRuleRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.AddRule(ctx, instanceID, actor, ports.AddRuleInput{
		Recipient:     req.Recipient,
		PercentageBps: req.PercentageBps,
		FixedAmount:   req.FixedAmount,
		MinAmount:     req.MinAmount,
		MaxAmount:     req.MaxAmount,
		Label:         req.Label,
	})
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) UpdateRuleHandler(ctx context.Context, instanceID string, actor string, recipient string, req httptransport.UpdateRuleRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.UpdateRule(ctx, instanceID, actor, ports.UpdateRuleInput{
		Recipient:     recipient,
		PercentageBps: req.PercentageBps,
		FixedAmount:   req.FixedAmount,
		MinAmount:     req.MinAmount,
		MaxAmount:     req.MaxAmount,
		Label:         req.Label,
		Active:        req.Active,
	})
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) DeactivateRuleHandler(ctx context.Context, instanceID string, actor string, recipient string) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.DeactivateRule(ctx, instanceID, actor, recipient)
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) AddTierHandler(ctx context.Context, instanceID string, actor string, req httptransport.AddTierRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.AddTier(ctx, instanceID, actor, ports.AddTierInput{
		Threshold:     req.Threshold,
		PercentageBps: req.PercentageBps,
	})
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) SetTierActiveHandler(ctx context.Context, instanceID string, actor string, index int, req httptransport.SetTierActiveRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.SetTierActive(ctx, instanceID, actor, index, req.Active)
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) GrantManagerHandler(ctx context.Context, instanceID string, actor string, req httptransport.ManagerRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.GrantManager(ctx, instanceID, actor, req.Manager)
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) RevokeManagerHandler(ctx context.Context, instanceID string, actor string, req httptransport.ManagerRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.RevokeManager(ctx, instanceID, actor, req.Manager)
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) SetAcceptedAssetsHandler(ctx context.Context, instanceID string, actor string, req httptransport.SetAcceptedAssetsRequest) (httptransport.InstanceResponse, error) {
	instance, err := h.Service.SetAcceptedAssets(ctx, instanceID, actor, req.Assets)
	if err != nil {
		return httptransport.InstanceResponse{}, err
	}
	return instanceResponse(instance), nil
}

func (h Handler) MakePaymentHandler(ctx context.Context, instanceID string, req httptransport.MakePaymentRequest) (httptransport.MakePaymentResponse, error) {
	payment, result, err := h.Service.MakePayment(ctx, instanceID, ports.MakePaymentInput{
		Payer:     req.Payer,
		Asset:     req.Asset,
		Amount:    req.Amount,
		SplitType: req.SplitType,
		Memo:      req.Memo,
	})
	if err != nil {
		return httptransport.MakePaymentResponse{}, err
	}
	resp := httptransport.MakePaymentResponse{
		Status: "success",
		Data:   toPaymentDTO(payment),
	}
	if result != nil {
		dto := toDistributionResultDTO(*result)
		resp.Distribution = &dto
	}
	return resp, nil
}

func (h Handler) DistributePaymentHandler(ctx context.Context, instanceID string, paymentIndex int) (httptransport.DistributeResponse, error) {
	result, err := h.Service.DistributePayment(ctx, instanceID, paymentIndex)
	if err != nil {
		return httptransport.DistributeResponse{}, err
	}
	return httptransport.DistributeResponse{
		Status: "success",
		Data:   toDistributionResultDTO(result),
	}, nil
}

func (h Handler) PreviewSplitHandler(ctx context.Context, instanceID string, req httptransport.PreviewSplitRequest) (httptransport.PreviewSplitResponse, error) {
	shares, remainder, err := h.Service.PreviewSplit(ctx, instanceID, req.Amount, req.SplitType)
	if err != nil {
		return httptransport.PreviewSplitResponse{}, err
	}
	resp := httptransport.PreviewSplitResponse{
		Status:    "success",
		Data:      make([]httptransport.ShareDTO, 0, len(shares)),
		Remainder: remainder,
	}
	for _, share := range shares {
		resp.Data = append(resp.Data, httptransport.ShareDTO{
			Recipient: share.Recipient,
			Amount:    share.Amount,
		})
	}
	return resp, nil
}

func (h Handler) PaymentHistoryHandler(ctx context.Context, instanceID string, limit int, offset int) (httptransport.PaymentHistoryResponse, error) {
	items, err := h.Service.GetPaymentHistory(ctx, instanceID, limit, offset)
	if err != nil {
		return httptransport.PaymentHistoryResponse{}, err
	}
	resp := httptransport.PaymentHistoryResponse{
		Status: "success",
		Data:   make([]httptransport.PaymentDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, toPaymentDTO(item))
	}
	return resp, nil
}

func (h Handler) DistributionHistoryHandler(ctx context.Context, instanceID string, limit int, offset int) (httptransport.DistributionHistoryResponse, error) {
	items, err := h.Service.GetDistributionHistory(ctx, instanceID, limit, offset)
	if err != nil {
		return httptransport.DistributionHistoryResponse{}, err
	}
	resp := httptransport.DistributionHistoryResponse{
		Status: "success",
		Data:   make([]httptransport.DistributionDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, httptransport.DistributionDTO{
			PaymentIndex:  item.PaymentIndex,
			Recipient:     item.Recipient,
			Asset:         item.Asset,
			Amount:        item.Amount,
			DistributedAt: item.DistributedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp, nil
}

func (h Handler) RecipientBalanceHandler(ctx context.Context, instanceID string, recipient string, asset string) (httptransport.BalanceResponse, error) {
	balance, err := h.Service.GetRecipientBalance(ctx, instanceID, recipient, asset)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{
		Status: "success",
		Data:   toBalanceDTO(balance),
	}, nil
}

func (h Handler) ListBalancesHandler(ctx context.Context, instanceID string) (httptransport.BalancesResponse, error) {
	balances, err := h.Service.ListRecipientBalances(ctx, instanceID)
	if err != nil {
		return httptransport.BalancesResponse{}, err
	}
	resp := httptransport.BalancesResponse{
		Status: "success",
		Data:   make([]httptransport.RecipientBalanceDTO, 0, len(balances)),
	}
	for _, balance := range balances {
		resp.Data = append(resp.Data, toBalanceDTO(balance))
	}
	return resp, nil
}

func instanceResponse(instance entities.Instance) httptransport.InstanceResponse {
	return httptransport.InstanceResponse{
		Status: "success",
		Data:   toInstanceDTO(instance),
	}
}

func toInstanceDTO(instance entities.Instance) httptransport.InstanceDTO {
	dto := httptransport.InstanceDTO{
		InstanceID:            instance.ID,
		Node:                  instance.Node,
		Owner:                 instance.Owner,
		Managers:              instance.Managers,
		FundingAccount:        instance.FundingAccount,
		FallbackRecipient:     instance.FallbackRecipient,
		AcceptedAssets:        instance.AcceptedAssets,
		AutoDistribute:        instance.AutoDistribute,
		RequireFullAllocation: instance.RequireFullAllocation,
		Rules:                 make([]httptransport.SplitRuleDTO, 0, len(instance.Rules)),
		Tiers:                 make([]httptransport.TierDTO, 0, len(instance.Tiers)),
	}
	for _, rule := range instance.Rules {
		dto.Rules = append(dto.Rules, httptransport.SplitRuleDTO{
			Recipient:     rule.Recipient,
			PercentageBps: rule.PercentageBps,
			FixedAmount:   rule.FixedAmount,
			MinAmount:     rule.MinAmount,
			MaxAmount:     rule.MaxAmount,
			Active:        rule.Active,
			Label:         rule.Label,
		})
	}
	for _, tier := range instance.Tiers {
		dto.Tiers = append(dto.Tiers, httptransport.TierDTO{
			Threshold:     tier.Threshold,
			PercentageBps: tier.PercentageBps,
			Active:        tier.Active,
		})
	}
	return dto
}

func toPaymentDTO(payment entities.Payment) httptransport.PaymentDTO {
	return httptransport.PaymentDTO{
		Index:      payment.Index,
		Payer:      payment.Payer,
		Asset:      payment.Asset,
		Amount:     payment.Amount,
		SplitType:  string(payment.SplitType),
		Memo:       payment.Memo,
		SplitCount: payment.SplitCount,
		ReceivedAt: payment.ReceivedAt.UTC().Format(time.RFC3339),
	}
}

func toDistributionResultDTO(result entities.DistributionResult) httptransport.DistributionResultDTO {
	dto := httptransport.DistributionResultDTO{
		PaymentIndex:       result.PaymentIndex,
		SplitType:          string(result.SplitType),
		Legs:               make([]httptransport.LegResultDTO, 0, len(result.Legs)),
		TotalDistributed:   result.TotalDistributed,
		Remainder:          result.Remainder,
		RemainderRecipient: result.RemainderRecipient,
		RemainderRouted:    result.RemainderRouted,
	}
	for _, leg := range result.Legs {
		dto.Legs = append(dto.Legs, httptransport.LegResultDTO{
			Recipient: leg.Recipient,
			Amount:    leg.Amount,
			Status:    string(leg.Status),
			Error:     leg.Error,
		})
	}
	return dto
}

func toBalanceDTO(balance entities.RecipientBalance) httptransport.RecipientBalanceDTO {
	return httptransport.RecipientBalanceDTO{
		Recipient: balance.Recipient,
		Asset:     balance.Asset,
		Total:     balance.Total,
	}
}
