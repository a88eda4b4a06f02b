package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"tessera/contexts/naming/registry-service/domain/entities"
	domainerrors "tessera/contexts/naming/registry-service/domain/errors"
	"tessera/contexts/naming/registry-service/ports"

	"github.com/google/uuid"
)

// Store is the in-memory repository used by tests and by deployments that
// run without postgres. It also provides Clock, IDGenerator and outbox.
type Store struct {
	mu sync.RWMutex

	bindings   map[string]entities.Binding // node -> binding
	registrars map[string]bool
	outbox     map[string]outboxRecord
}

type outboxRecord struct {
	Message     ports.OutboxMessage
	Status      string
	PublishedAt *time.Time
}

func NewStore() *Store {
	return &Store{
		bindings:   make(map[string]entities.Binding),
		registrars: make(map[string]bool),
		outbox:     make(map[string]outboxRecord),
	}
}

func (s *Store) CreateBinding(_ context.Context, binding entities.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := strings.TrimSpace(binding.Node)
	if node == "" {
		return domainerrors.ErrInvalidInput
	}
	if _, ok := s.bindings[node]; ok {
		return domainerrors.ErrLabelTaken
	}
	s.bindings[node] = binding
	return nil
}

func (s *Store) GetBinding(_ context.Context, node string) (entities.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	binding, ok := s.bindings[strings.TrimSpace(node)]
	if !ok {
		return entities.Binding{}, domainerrors.ErrBindingNotFound
	}
	return binding, nil
}

func (s *Store) GetBindingByOwner(_ context.Context, parentNode string, owner string) (entities.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, binding := range s.bindings {
		if binding.ParentNode == parentNode && binding.Owner == strings.TrimSpace(owner) {
			return binding, nil
		}
	}
	return entities.Binding{}, domainerrors.ErrBindingNotFound
}

func (s *Store) ReplaceBinding(_ context.Context, oldNode string, binding entities.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldNode = strings.TrimSpace(oldNode)
	if _, ok := s.bindings[oldNode]; !ok {
		return domainerrors.ErrBindingNotFound
	}
	node := strings.TrimSpace(binding.Node)
	if _, ok := s.bindings[node]; ok {
		return domainerrors.ErrLabelTaken
	}
	delete(s.bindings, oldNode)
	s.bindings[node] = binding
	return nil
}

func (s *Store) DeleteBinding(_ context.Context, node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node = strings.TrimSpace(node)
	if _, ok := s.bindings[node]; !ok {
		return domainerrors.ErrBindingNotFound
	}
	delete(s.bindings, node)
	return nil
}

func (s *Store) ListChildren(_ context.Context, parentNode string) ([]entities.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Binding, 0)
	for _, binding := range s.bindings {
		if binding.ParentNode == strings.TrimSpace(parentNode) {
			out = append(out, binding)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Label < out[j].Label
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) AddRegistrar(_ context.Context, registrar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrars[strings.TrimSpace(registrar)] = true
	return nil
}

func (s *Store) RemoveRegistrar(_ context.Context, registrar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registrars, strings.TrimSpace(registrar))
	return nil
}

func (s *Store) IsRegistrar(_ context.Context, registrar string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registrars[strings.TrimSpace(registrar)], nil
}

func (s *Store) ListRegistrars(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.registrars))
	for registrar := range s.registrars {
		out = append(out, registrar)
	}
	sort.Strings(out)
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
