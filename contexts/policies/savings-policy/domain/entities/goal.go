package entities

import "time"

// GoalStatus is the savings goal state machine. Active -> Completed via
// contributions is irreversible on the normal path; Active -> Cancelled
// happens when a withdrawal drains the goal; Active <-> Paused is an
// explicit toggle.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusCancelled GoalStatus = "cancelled"
	GoalStatusPaused    GoalStatus = "paused"
)

// WithdrawalType gates withdrawals from a goal.
type WithdrawalType string

const (
	WithdrawalUnrestricted  WithdrawalType = "unrestricted"
	WithdrawalTimeLocked    WithdrawalType = "time_locked"
	WithdrawalGoalBased     WithdrawalType = "goal_based"
	WithdrawalEmergencyOnly WithdrawalType = "emergency_only"
)

// ValidWithdrawalType reports whether raw names a known gate.
func ValidWithdrawalType(raw string) bool {
	switch WithdrawalType(raw) {
	case WithdrawalUnrestricted, WithdrawalTimeLocked, WithdrawalGoalBased, WithdrawalEmergencyOnly:
		return true
	default:
		return false
	}
}

// AutoDeposit is the per-goal recurring contribution config. A zero Amount
// disables it.
type AutoDeposit struct {
	Amount   int64
	Interval time.Duration
	LastRun  time.Time
}

// Due reports whether the auto-deposit should run at now.
func (a AutoDeposit) Due(now time.Time) bool {
	if a.Amount <= 0 || a.Interval <= 0 {
		return false
	}
	return !now.Before(a.LastRun.Add(a.Interval))
}

// SavingsGoal tracks one goal inside a savings policy instance.
type SavingsGoal struct {
	ID             string
	InstanceID     string
	Label          string
	Asset          string
	TargetAmount   int64
	CurrentAmount  int64
	Deadline       *time.Time
	Status         GoalStatus
	WithdrawalType WithdrawalType
	AutoDeposit    AutoDeposit
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Instance is one deployed savings policy: its goals, role holders, vault
// account and emergency configuration.
type Instance struct {
	ID              string
	Node            string
	Owner           string
	Guardian        string
	VaultAccount    string
	FeeRecipient    string
	EmergencyFeeBps int64
	TimeLockDelay   time.Duration
	EmergencyActive bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanAct reports whether the actor is the owner or guardian.
func (i Instance) CanAct(actor string) bool {
	return actor != "" && (actor == i.Owner || actor == i.Guardian)
}

// Contribution is one append-only funding record.
type Contribution struct {
	InstanceID    string
	GoalID        string
	Contributor   string
	Amount        int64
	ContributedAt time.Time
}

// Withdrawal is one append-only withdrawal record. FeeAmount is non-zero
// only for emergency withdrawals.
type Withdrawal struct {
	InstanceID  string
	GoalID      string
	Actor       string
	Amount      int64
	FeeAmount   int64
	Emergency   bool
	WithdrawnAt time.Time
}
