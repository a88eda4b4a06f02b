package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"tessera/contexts/naming/policy-factory/domain/entities"
	domainerrors "tessera/contexts/naming/policy-factory/domain/errors"
	"tessera/contexts/naming/policy-factory/ports"

	"github.com/google/uuid"
)

// Store is the in-memory creation-record repository. It also provides
// Clock, IDGenerator and outbox.
type Store struct {
	mu sync.RWMutex

	records map[string][]entities.Record // owner -> storage order
	outbox  map[string]outboxRecord
}

type outboxRecord struct {
	Message     ports.OutboxMessage
	Status      string
	PublishedAt *time.Time
}

func NewStore() *Store {
	return &Store{
		records: make(map[string][]entities.Record),
		outbox:  make(map[string]outboxRecord),
	}
}

func (s *Store) AppendRecord(_ context.Context, record entities.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(record.Owner) == "" {
		return domainerrors.ErrInvalidInput
	}
	s.records[record.Owner] = append(s.records[record.Owner], record)
	return nil
}

func (s *Store) ListRecords(_ context.Context, owner string) ([]entities.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[strings.TrimSpace(owner)]
	out := make([]entities.Record, len(records))
	copy(out, records)
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
