package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"tessera/contexts/naming/policy-factory/domain/entities"
	domainerrors "tessera/contexts/naming/policy-factory/domain/errors"
	"tessera/contexts/naming/policy-factory/ports"
)

// Service instantiates policy templates for registered callers. Creation
// is paid: the per-type fee moves from the caller to the treasury before
// initialization and is refunded when any later step fails.
type Service struct {
	Registry ports.Registry
	Creators map[entities.PolicyType]ports.PolicyCreator
	Repo     ports.Repository
	Transfer ports.AssetTransfer
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Fees     map[entities.PolicyType]int64
	FeeAsset string
	Treasury string
	Logger   *slog.Logger
}

// CreatePolicy runs the whole creation as one logical operation: fee,
// template init, registry sub-binding. A failure after the fee refunds it;
// a failed binding leaves no registered instance behind.
func (s Service) CreatePolicy(ctx context.Context, input ports.CreatePolicyInput) (entities.Record, error) {
	caller := strings.TrimSpace(input.Caller)
	return s.create(ctx, caller, caller, input.Type, input.Label, input.Init)
}

// CreatePolicyFor instantiates a policy for another registered user. The
// sponsor pays the creation fee (and receives any refund); the beneficiary
// owns the instance and the binding under their node.
func (s Service) CreatePolicyFor(ctx context.Context, input ports.CreatePolicyForInput) (entities.Record, error) {
	sponsor := strings.TrimSpace(input.Sponsor)
	beneficiary := strings.TrimSpace(input.Beneficiary)
	if sponsor == "" {
		return entities.Record{}, domainerrors.ErrInvalidInput
	}
	return s.create(ctx, sponsor, beneficiary, input.Type, input.Label, input.Init)
}

func (s Service) create(ctx context.Context, payer string, owner string, rawType string, label string, init json.RawMessage) (entities.Record, error) {
	label = strings.TrimSpace(label)
	rawType = strings.TrimSpace(rawType)
	if payer == "" || owner == "" || label == "" {
		return entities.Record{}, domainerrors.ErrInvalidInput
	}
	if !entities.ValidPolicyType(rawType) {
		return entities.Record{}, domainerrors.ErrUnknownPolicyType
	}
	policyType := entities.PolicyType(rawType)
	creator, ok := s.Creators[policyType]
	if !ok {
		return entities.Record{}, domainerrors.ErrUnknownPolicyType
	}

	registered, err := s.Registry.HasUserBinding(ctx, owner)
	if err != nil {
		return entities.Record{}, err
	}
	if !registered {
		return entities.Record{}, domainerrors.ErrNotRegistered
	}

	node, err := s.Registry.PolicyNode(ctx, owner, label)
	if err != nil {
		return entities.Record{}, err
	}

	fee := s.Fees[policyType]
	if fee > 0 {
		if err := s.Transfer.Transfer(ctx, s.FeeAsset, payer, s.Treasury, fee); err != nil {
			return entities.Record{}, domainerrors.ErrFeeNotPaid
		}
	}

	instanceID, err := creator.CreatePolicy(ctx, owner, node, init)
	if err != nil {
		s.refund(ctx, payer, fee)
		return entities.Record{}, domainerrors.ErrInitFailed
	}

	if _, err := s.Registry.BindPolicy(ctx, owner, label, instanceID); err != nil {
		s.refund(ctx, payer, fee)
		return entities.Record{}, err
	}

	now := s.now()
	record := entities.Record{
		Node:       node,
		Label:      label,
		Type:       policyType,
		Owner:      owner,
		InstanceID: instanceID,
		FeePaid:    fee,
		CreatedAt:  now,
	}
	if err := s.Repo.AppendRecord(ctx, record); err != nil {
		return entities.Record{}, err
	}

	s.emitEvent(ctx, "policy.created", node, map[string]any{
		"node":        node,
		"label":       label,
		"type":        string(policyType),
		"owner":       owner,
		"fee_payer":   payer,
		"instance_id": instanceID,
		"fee_paid":    fee,
	})
	ResolveLogger(s.Logger).Info("policy created",
		"event", "factory_policy_created",
		"module", "naming/policy-factory",
		"layer", "application",
		"node", node,
		"type", string(policyType),
		"instance_id", instanceID,
	)
	return record, nil
}

// ListPolicies returns the caller's creation records.
func (s Service) ListPolicies(ctx context.Context, owner string) ([]entities.Record, error) {
	return s.Repo.ListRecords(ctx, strings.TrimSpace(owner))
}

func (s Service) refund(ctx context.Context, caller string, fee int64) {
	if fee <= 0 {
		return
	}
	if err := s.Transfer.Transfer(ctx, s.FeeAsset, s.Treasury, caller, fee); err != nil {
		ResolveLogger(s.Logger).Error("creation fee refund failed",
			"event", "factory_fee_refund_failed",
			"module", "naming/policy-factory",
			"layer", "application",
			"caller", caller,
			"fee", fee,
			"error", err.Error(),
		)
	}
}

func (s Service) emitEvent(ctx context.Context, eventType string, node string, payload map[string]any) {
	if s.Outbox == nil {
		return
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = s.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          strings.TrimSpace(eventID),
		EventType:        eventType,
		OccurredAt:       s.now(),
		SourceService:    "policy-factory",
		TraceID:          strings.TrimSpace(eventID),
		SchemaVersion:    1,
		PartitionKeyPath: "node",
		PartitionKey:     node,
		Data:             data,
	})
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
