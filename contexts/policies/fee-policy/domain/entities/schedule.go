package entities

import "time"

// ScheduleStatus is the installment schedule state machine. Pending moves
// to Partial on the first non-full payment and to Completed when the total
// is fully paid. Overdue is set by late-fee application and clears only by
// completing the schedule. Cancelled is terminal.
type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusPartial   ScheduleStatus = "partial"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusOverdue   ScheduleStatus = "overdue"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// FeeSchedule tracks one installment obligation. TotalAmount grows when
// late fees accrue; PaidAmount only ever increases.
type FeeSchedule struct {
	ID                string
	InstanceID        string
	Payer             string
	Label             string
	Asset             string
	TotalAmount       int64
	PaidAmount        int64
	InstallmentCount  int
	InstallmentAmount int64
	DueDate           time.Time
	GracePeriod       time.Duration
	LateFeeBps        int64
	Status            ScheduleStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Remaining is the unpaid portion of the current total.
func (s FeeSchedule) Remaining() int64 {
	return s.TotalAmount - s.PaidAmount
}

// PastGrace reports whether now is strictly past the due date plus grace.
func (s FeeSchedule) PastGrace(now time.Time) bool {
	return now.After(s.DueDate.Add(s.GracePeriod))
}

// Open reports whether the schedule still accepts payments.
func (s FeeSchedule) Open() bool {
	switch s.Status {
	case ScheduleStatusCompleted, ScheduleStatusCancelled:
		return false
	default:
		return true
	}
}

// Instance is one deployed fee policy: the owner who manages schedules and
// the account installment payments settle into.
type Instance struct {
	ID                string
	Node              string
	Owner             string
	CollectionAccount string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsOwner reports whether the actor owns the instance.
func (i Instance) IsOwner(actor string) bool {
	return actor != "" && actor == i.Owner
}

// Installment is one append-only payment record against a schedule.
type Installment struct {
	InstanceID string
	ScheduleID string
	Payer      string
	Amount     int64
	PaidAt     time.Time
}
