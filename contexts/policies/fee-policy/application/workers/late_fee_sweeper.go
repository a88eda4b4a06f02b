package workers

import (
	"context"
	"log/slog"
	"time"

	application "tessera/contexts/policies/fee-policy/application"
	"tessera/contexts/policies/fee-policy/ports"
)

// LateFeeSweeper applies late fees to open schedules past their grace
// period. Failed applications are logged and skipped.
type LateFeeSweeper struct {
	Service   application.Service
	Schedules ports.Repository
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (j LateFeeSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}

	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	candidates, err := j.Schedules.ListOverdueCandidates(ctx, now, limit)
	if err != nil {
		logger.Error("late fee sweep failed",
			"event", "fee_policy_late_fee_list_failed",
			"module", "policies/fee-policy",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	var applied int
	for _, schedule := range candidates {
		if _, err := j.Service.ApplyLateFees(ctx, schedule.InstanceID, schedule.ID); err != nil {
			logger.Warn("late fee application skipped",
				"event", "fee_policy_late_fee_skipped",
				"module", "policies/fee-policy",
				"layer", "worker",
				"instance_id", schedule.InstanceID,
				"schedule_id", schedule.ID,
				"error", err.Error(),
			)
			continue
		}
		applied++
	}

	if applied > 0 {
		logger.Info("late fee sweep completed",
			"event", "fee_policy_late_fee_completed",
			"module", "policies/fee-policy",
			"layer", "worker",
			"applied_count", applied,
		)
	}
	return nil
}
