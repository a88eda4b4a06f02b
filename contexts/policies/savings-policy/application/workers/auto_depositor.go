package workers

import (
	"context"
	"log/slog"
	"time"

	application "tessera/contexts/policies/savings-policy/application"
	"tessera/contexts/policies/savings-policy/ports"
)

// AutoDepositor sweeps goals whose recurring deposit is due and funds each
// one from its instance owner's account. Failed deposits are logged and
// skipped so one broke owner cannot stall the sweep.
type AutoDepositor struct {
	Service   application.Service
	Goals     ports.Repository
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (j AutoDepositor) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}

	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	due, err := j.Goals.ListAutoDepositGoals(ctx, now, limit)
	if err != nil {
		logger.Error("auto deposit sweep failed",
			"event", "savings_auto_deposit_list_failed",
			"module", "policies/savings-policy",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	var deposited int
	for _, goal := range due {
		if err := j.Service.RunAutoDeposit(ctx, goal, now); err != nil {
			logger.Warn("auto deposit skipped",
				"event", "savings_auto_deposit_skipped",
				"module", "policies/savings-policy",
				"layer", "worker",
				"instance_id", goal.InstanceID,
				"goal_id", goal.ID,
				"error", err.Error(),
			)
			continue
		}
		deposited++
	}

	if deposited > 0 {
		logger.Info("auto deposit sweep completed",
			"event", "savings_auto_deposit_completed",
			"module", "policies/savings-policy",
			"layer", "worker",
			"deposited_count", deposited,
		)
	}
	return nil
}
