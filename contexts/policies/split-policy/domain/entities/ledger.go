package entities

import "time"

// Payment is the immutable record of one incoming payment. SplitCount is
// the only field written after creation: it is stamped exactly once when a
// distribution completes, and a non-zero value blocks re-distribution.
type Payment struct {
	Index      int
	InstanceID string
	Payer      string
	Asset      string
	Amount     int64
	SplitType  SplitType
	Memo       string
	SplitCount int
	ReceivedAt time.Time
}

// Distribution is one successfully delivered leg of a distribution.
// Append-only.
type Distribution struct {
	InstanceID    string
	PaymentIndex  int
	Recipient     string
	Asset         string
	Amount        int64
	DistributedAt time.Time
}

// RecipientBalance is the running total delivered to a recipient in one
// asset. It is an audit ledger, not a withdrawable escrow: funds move
// synchronously on distribution.
type RecipientBalance struct {
	InstanceID string
	Recipient  string
	Asset      string
	Total      int64
}

// Share is one (recipient, amount) pair produced by the split calculator.
type Share struct {
	Recipient string
	Amount    int64
}

// LegStatus records the outcome of one transfer attempt within a
// distribution.
type LegStatus string

const (
	LegStatusPaid    LegStatus = "paid"
	LegStatusFailed  LegStatus = "failed"
	LegStatusSkipped LegStatus = "skipped"
)

// LegResult surfaces a single leg's outcome to callers; failed legs carry
// the transfer error string instead of being swallowed.
type LegResult struct {
	Recipient string
	Amount    int64
	Status    LegStatus
	Error     string
}

// DistributionResult summarizes one distribution call.
type DistributionResult struct {
	InstanceID         string
	PaymentIndex       int
	SplitType          SplitType
	Legs               []LegResult
	TotalDistributed   int64
	Remainder          int64
	RemainderRecipient string
	RemainderRouted    bool
	CompletedAt        time.Time
}
