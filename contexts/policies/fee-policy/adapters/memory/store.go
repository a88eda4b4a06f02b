package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"tessera/contexts/policies/fee-policy/domain/entities"
	domainerrors "tessera/contexts/policies/fee-policy/domain/errors"
	"tessera/contexts/policies/fee-policy/ports"

	"github.com/google/uuid"
)

// Store is the in-memory repository used by tests and by deployments that
// run without postgres. It also provides Clock, IDGenerator and outbox.
type Store struct {
	mu sync.RWMutex

	instances    map[string]entities.Instance
	schedules    map[string][]entities.FeeSchedule // instanceID -> storage order
	installments map[string][]entities.Installment
	outbox       map[string]outboxRecord
}

type outboxRecord struct {
	Message     ports.OutboxMessage
	Status      string
	PublishedAt *time.Time
}

func NewStore() *Store {
	return &Store{
		instances:    make(map[string]entities.Instance),
		schedules:    make(map[string][]entities.FeeSchedule),
		installments: make(map[string][]entities.Installment),
		outbox:       make(map[string]outboxRecord),
	}
}

func (s *Store) CreateInstance(_ context.Context, instance entities.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(instance.ID)
	if id == "" {
		return domainerrors.ErrInvalidInput
	}
	s.instances[id] = instance
	return nil
}

func (s *Store) GetInstance(_ context.Context, instanceID string) (entities.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instance, ok := s.instances[strings.TrimSpace(instanceID)]
	if !ok {
		return entities.Instance{}, domainerrors.ErrInstanceNotFound
	}
	return instance, nil
}

func (s *Store) CreateSchedule(_ context.Context, schedule entities.FeeSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(schedule.ID) == "" || strings.TrimSpace(schedule.InstanceID) == "" {
		return domainerrors.ErrInvalidInput
	}
	s.schedules[schedule.InstanceID] = append(s.schedules[schedule.InstanceID], schedule)
	return nil
}

func (s *Store) GetSchedule(_ context.Context, instanceID string, scheduleID string) (entities.FeeSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, schedule := range s.schedules[strings.TrimSpace(instanceID)] {
		if schedule.ID == strings.TrimSpace(scheduleID) {
			return schedule, nil
		}
	}
	return entities.FeeSchedule{}, domainerrors.ErrScheduleNotFound
}

func (s *Store) UpdateSchedule(_ context.Context, schedule entities.FeeSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedules := s.schedules[schedule.InstanceID]
	for i := range schedules {
		if schedules[i].ID == schedule.ID {
			schedules[i] = schedule
			return nil
		}
	}
	return domainerrors.ErrScheduleNotFound
}

func (s *Store) ListSchedules(_ context.Context, instanceID string) ([]entities.FeeSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedules := s.schedules[strings.TrimSpace(instanceID)]
	out := make([]entities.FeeSchedule, len(schedules))
	copy(out, schedules)
	return out, nil
}

func (s *Store) ListOverdueCandidates(_ context.Context, now time.Time, limit int) ([]entities.FeeSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]entities.FeeSchedule, 0)
	for _, schedules := range s.schedules {
		for _, schedule := range schedules {
			if schedule.Open() && schedule.PastGrace(now) && schedule.Status != entities.ScheduleStatusOverdue {
				out = append(out, schedule)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AppendInstallment(_ context.Context, installment entities.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.installments[installment.InstanceID] = append(s.installments[installment.InstanceID], installment)
	return nil
}

func (s *Store) ListInstallments(_ context.Context, instanceID string, scheduleID string, limit int, offset int) ([]entities.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entities.Installment, 0)
	for _, row := range s.installments[strings.TrimSpace(instanceID)] {
		if scheduleID == "" || row.ScheduleID == strings.TrimSpace(scheduleID) {
			matched = append(matched, row)
		}
	}
	return pageInstallments(matched, limit, offset), nil
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

func pageInstallments(history []entities.Installment, limit int, offset int) []entities.Installment {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(history) {
		return []entities.Installment{}
	}
	end := offset + limit
	if end > len(history) {
		end = len(history)
	}
	out := make([]entities.Installment, end-offset)
	copy(out, history[offset:end])
	return out
}
