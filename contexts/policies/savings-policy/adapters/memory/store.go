package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"tessera/contexts/policies/savings-policy/domain/entities"
	domainerrors "tessera/contexts/policies/savings-policy/domain/errors"
	"tessera/contexts/policies/savings-policy/ports"

	"github.com/google/uuid"
)

// Store is the in-memory repository used by tests and by deployments that
// run without postgres. It also provides Clock, IDGenerator and outbox.
type Store struct {
	mu sync.RWMutex

	instances     map[string]entities.Instance
	goals         map[string][]entities.SavingsGoal // instanceID -> storage order
	contributions map[string][]entities.Contribution
	withdrawals   map[string][]entities.Withdrawal
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
		goals:         make(map[string][]entities.SavingsGoal),
		contributions: make(map[string][]entities.Contribution),
		withdrawals:   make(map[string][]entities.Withdrawal),
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

func (s *Store) UpdateInstance(_ context.Context, instance entities.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(instance.ID)
	if _, ok := s.instances[id]; !ok {
		return domainerrors.ErrInstanceNotFound
	}
	s.instances[id] = instance
	return nil
}

func (s *Store) CreateGoal(_ context.Context, goal entities.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(goal.ID) == "" || strings.TrimSpace(goal.InstanceID) == "" {
		return domainerrors.ErrInvalidInput
	}
	s.goals[goal.InstanceID] = append(s.goals[goal.InstanceID], goal)
	return nil
}

func (s *Store) GetGoal(_ context.Context, instanceID string, goalID string) (entities.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, goal := range s.goals[strings.TrimSpace(instanceID)] {
		if goal.ID == strings.TrimSpace(goalID) {
			return goal, nil
		}
	}
	return entities.SavingsGoal{}, domainerrors.ErrGoalNotFound
}

func (s *Store) UpdateGoal(_ context.Context, goal entities.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	goals := s.goals[goal.InstanceID]
	for i := range goals {
		if goals[i].ID == goal.ID {
			goals[i] = goal
			return nil
		}
	}
	return domainerrors.ErrGoalNotFound
}

func (s *Store) ListGoals(_ context.Context, instanceID string) ([]entities.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	goals := s.goals[strings.TrimSpace(instanceID)]
	out := make([]entities.SavingsGoal, len(goals))
	copy(out, goals)
	return out, nil
}

func (s *Store) ListAutoDepositGoals(_ context.Context, now time.Time, limit int) ([]entities.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]entities.SavingsGoal, 0)
	for _, goals := range s.goals {
		for _, goal := range goals {
			if goal.Status != entities.GoalStatusActive {
				continue
			}
			if goal.AutoDeposit.Due(now) {
				out = append(out, goal)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AutoDeposit.LastRun.Before(out[j].AutoDeposit.LastRun)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AppendContribution(_ context.Context, contribution entities.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contributions[contribution.InstanceID] = append(s.contributions[contribution.InstanceID], contribution)
	return nil
}

func (s *Store) ListContributions(_ context.Context, instanceID string, goalID string, limit int, offset int) ([]entities.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entities.Contribution, 0)
	for _, row := range s.contributions[strings.TrimSpace(instanceID)] {
		if goalID == "" || row.GoalID == strings.TrimSpace(goalID) {
			matched = append(matched, row)
		}
	}
	return pageContributions(matched, limit, offset), nil
}

func (s *Store) AppendWithdrawal(_ context.Context, withdrawal entities.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.withdrawals[withdrawal.InstanceID] = append(s.withdrawals[withdrawal.InstanceID], withdrawal)
	return nil
}

func (s *Store) ListWithdrawals(_ context.Context, instanceID string, goalID string, limit int, offset int) ([]entities.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entities.Withdrawal, 0)
	for _, row := range s.withdrawals[strings.TrimSpace(instanceID)] {
		if goalID == "" || row.GoalID == strings.TrimSpace(goalID) {
			matched = append(matched, row)
		}
	}
	return pageWithdrawals(matched, limit, offset), nil
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

func pageContributions(history []entities.Contribution, limit int, offset int) []entities.Contribution {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(history) {
		return []entities.Contribution{}
	}
	end := offset + limit
	if end > len(history) {
		end = len(history)
	}
	out := make([]entities.Contribution, end-offset)
	copy(out, history[offset:end])
	return out
}

func pageWithdrawals(history []entities.Withdrawal, limit int, offset int) []entities.Withdrawal {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(history) {
		return []entities.Withdrawal{}
	}
	end := offset + limit
	if end > len(history) {
		end = len(history)
	}
	out := make([]entities.Withdrawal, end-offset)
	copy(out, history[offset:end])
	return out
}
