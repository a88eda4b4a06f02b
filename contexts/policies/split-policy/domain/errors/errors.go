package errors

import "errors"

// Validation
var (
	ErrInvalidInput         = errors.New("split policy input is invalid")
	ErrInvalidPercentage    = errors.New("percentage exceeds 10000 basis points")
	ErrInvalidAmountWindow  = errors.New("rule amount window is invalid")
	ErrZeroAmount           = errors.New("payment amount must be positive")
	ErrAssetNotAccepted     = errors.New("asset is not on the accepted list")
	ErrAllocationIncomplete = errors.New("active rule percentages must sum to exactly 10000")
)

// State
var (
	ErrInstanceNotFound   = errors.New("split policy instance not found")
	ErrDuplicateRecipient = errors.New("recipient already has a rule")
	ErrRuleNotFound       = errors.New("no rule exists for recipient")
	ErrTierNotFound       = errors.New("tier index out of range")
	ErrPaymentNotFound    = errors.New("payment index out of range")
	ErrAlreadyDistributed = errors.New("payment has already been distributed")
	ErrReentrantCall      = errors.New("another operation is in progress for this instance")
)

// Authorization
var (
	ErrNotOwner   = errors.New("caller is not the instance owner")
	ErrNotManager = errors.New("caller is neither owner nor manager")
)

// Transfer / ledger host
var (
	ErrRemainderTransferFailed = errors.New("remainder transfer to fallback recipient failed")
)
