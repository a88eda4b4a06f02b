package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"tessera/contexts/policies/split-policy/domain/entities"
	domainerrors "tessera/contexts/policies/split-policy/domain/errors"
	"tessera/contexts/policies/split-policy/ports"

	"github.com/google/uuid"
)

// Store is the in-memory repository used by tests and by deployments that
// run without postgres. It also provides Clock, IDGenerator and outbox.
type Store struct {
	mu sync.RWMutex

	instances     map[string]entities.Instance
	payments      map[string][]entities.Payment
	distributions map[string][]entities.Distribution
	balances      map[string]map[string]int64 // instanceID -> recipient|asset -> total
	outbox        map[string]outboxRecord
}

type outboxRecord struct {
	Message     ports.OutboxMessage
	Status      string
	PublishedAt *time.Time
}

func NewStore() *Store {
	return &Store{
		instances:     make(map[string]entities.Instance),
		payments:      make(map[string][]entities.Payment),
		distributions: make(map[string][]entities.Distribution),
		balances:      make(map[string]map[string]int64),
		outbox:        make(map[string]outboxRecord),
	}
}

func (s *Store) CreateInstance(_ context.Context, instance entities.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(instance.ID)
	if id == "" {
		return domainerrors.ErrInvalidInput
	}
	s.instances[id] = cloneInstance(instance)
	return nil
}

func (s *Store) GetInstance(_ context.Context, instanceID string) (entities.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instance, ok := s.instances[strings.TrimSpace(instanceID)]
	if !ok {
		return entities.Instance{}, domainerrors.ErrInstanceNotFound
	}
	return cloneInstance(instance), nil
}

func (s *Store) UpdateInstance(_ context.Context, instance entities.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(instance.ID)
	if _, ok := s.instances[id]; !ok {
		return domainerrors.ErrInstanceNotFound
	}
	s.instances[id] = cloneInstance(instance)
	return nil
}

func (s *Store) AppendPayment(_ context.Context, payment entities.Payment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(payment.InstanceID)
	if _, ok := s.instances[id]; !ok {
		return 0, domainerrors.ErrInstanceNotFound
	}
	index := len(s.payments[id])
	payment.Index = index
	s.payments[id] = append(s.payments[id], payment)
	return index, nil
}

func (s *Store) GetPayment(_ context.Context, instanceID string, index int) (entities.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.payments[strings.TrimSpace(instanceID)]
	if index < 0 || index >= len(history) {
		return entities.Payment{}, domainerrors.ErrPaymentNotFound
	}
	return history[index], nil
}

func (s *Store) ListPayments(_ context.Context, instanceID string, limit int, offset int) ([]entities.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.payments[strings.TrimSpace(instanceID)]
	return pagePayments(history, limit, offset), nil
}

func (s *Store) SetPaymentSplitCount(_ context.Context, instanceID string, index int, splitCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(instanceID)
	history := s.payments[id]
	if index < 0 || index >= len(history) {
		return domainerrors.ErrPaymentNotFound
	}
	history[index].SplitCount = splitCount
	return nil
}

func (s *Store) AppendDistributions(_ context.Context, legs []entities.Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, leg := range legs {
		id := strings.TrimSpace(leg.InstanceID)
		s.distributions[id] = append(s.distributions[id], leg)
	}
	return nil
}

func (s *Store) ListDistributions(_ context.Context, instanceID string, limit int, offset int) ([]entities.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.distributions[strings.TrimSpace(instanceID)]
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(history) {
		return []entities.Distribution{}, nil
	}
	end := offset + limit
	if end > len(history) {
		end = len(history)
	}
	out := make([]entities.Distribution, end-offset)
	copy(out, history[offset:end])
	return out, nil
}

func (s *Store) AddToRecipientBalance(_ context.Context, instanceID string, recipient string, asset string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(instanceID)
	if s.balances[id] == nil {
		s.balances[id] = make(map[string]int64)
	}
	s.balances[id][balanceKey(recipient, asset)] += amount
	return nil
}

func (s *Store) GetRecipientBalance(_ context.Context, instanceID string, recipient string, asset string) (entities.RecipientBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := strings.TrimSpace(instanceID)
	total := s.balances[id][balanceKey(recipient, asset)]
	return entities.RecipientBalance{
		InstanceID: id,
		Recipient:  strings.TrimSpace(recipient),
		Asset:      strings.TrimSpace(asset),
		Total:      total,
	}, nil
}

func (s *Store) ListRecipientBalances(_ context.Context, instanceID string) ([]entities.RecipientBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := strings.TrimSpace(instanceID)
	out := make([]entities.RecipientBalance, 0, len(s.balances[id]))
	for key, total := range s.balances[id] {
		recipient, asset := splitBalanceKey(key)
		out = append(out, entities.RecipientBalance{
			InstanceID: id,
			Recipient:  recipient,
			Asset:      asset,
			Total:      total,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Recipient == out[j].Recipient {
			return out[i].Asset < out[j].Asset
		}
		return out[i].Recipient < out[j].Recipient
	})
	return out, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox[envelope.EventID] = outboxRecord{
		Message: ports.OutboxMessage{
			OutboxID:     envelope.EventID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt,
		},
		Status: outboxStatusPending,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	items := make([]ports.OutboxMessage, 0)
	for _, record := range s.outbox {
		if record.Status == outboxStatusPending {
			items = append(items, record.Message)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrInvalidInput
	}
	record.Status = outboxStatusPublished
	record.PublishedAt = &publishedAt
	s.outbox[strings.TrimSpace(outboxID)] = record
	return nil
}

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func balanceKey(recipient string, asset string) string {
	return strings.TrimSpace(recipient) + "|" + strings.TrimSpace(asset)
}

func splitBalanceKey(key string) (string, string) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 {
		return key, ""
	}
	return parts[0], parts[1]
}

func pagePayments(history []entities.Payment, limit int, offset int) []entities.Payment {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(history) {
		return []entities.Payment{}
	}
	end := offset + limit
	if end > len(history) {
		end = len(history)
	}
	out := make([]entities.Payment, end-offset)
	copy(out, history[offset:end])
	return out
}

func cloneInstance(instance entities.Instance) entities.Instance {
	out := instance
	out.Managers = append([]string(nil), instance.Managers...)
	out.AcceptedAssets = append([]string(nil), instance.AcceptedAssets...)
	out.Rules = append([]entities.SplitRule(nil), instance.Rules...)
	out.Tiers = append([]entities.Tier(nil), instance.Tiers...)
	return out
}
