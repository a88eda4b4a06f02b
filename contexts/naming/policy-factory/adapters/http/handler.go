package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"tessera/contexts/naming/policy-factory/application"
	"tessera/contexts/naming/policy-factory/domain/entities"
	"tessera/contexts/naming/policy-factory/ports"
	httptransport "tessera/contexts/naming/policy-factory/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) CreatePolicyHandler(ctx context.Context, req httptransport.CreatePolicyRequest) (httptransport.RecordResponse, error) {
	record, err := h.Service.CreatePolicy(ctx, ports.CreatePolicyInput{
		Caller: req.Caller,
		Type:   req.Type,
		Label:  req.Label,
		Init:   req.Init,
	})
	if err != nil {
		return httptransport.RecordResponse{}, err
	}
	return httptransport.RecordResponse{Status: "success", Data: toRecordDTO(record)}, nil
}

func (h Handler) CreatePolicyForHandler(ctx context.Context, req httptransport.CreatePolicyForRequest) (httptransport.RecordResponse, error) {
	record, err := h.Service.CreatePolicyFor(ctx, ports.CreatePolicyForInput{
		Sponsor:     req.Sponsor,
		Beneficiary: req.Beneficiary,
		Type:        req.Type,
		Label:       req.Label,
		Init:        req.Init,
	})
	if err != nil {
		return httptransport.RecordResponse{}, err
	}
	return httptransport.RecordResponse{Status: "success", Data: toRecordDTO(record)}, nil
}

func (h Handler) ListPoliciesHandler(ctx context.Context, owner string) (httptransport.RecordsResponse, error) {
	records, err := h.Service.ListPolicies(ctx, owner)
	if err != nil {
		return httptransport.RecordsResponse{}, err
	}
	out := make([]httptransport.RecordDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordDTO(record))
	}
	return httptransport.RecordsResponse{Status: "success", Data: out}, nil
}

func toRecordDTO(record entities.Record) httptransport.RecordDTO {
	return httptransport.RecordDTO{
		Node:       record.Node,
		Label:      record.Label,
		Type:       string(record.Type),
		Owner:      record.Owner,
		InstanceID: record.InstanceID,
		FeePaid:    record.FeePaid,
		CreatedAt:  record.CreatedAt.UTC().Format(time.RFC3339),
	}
}
