package errors

import "errors"

// Validation
var (
	ErrInvalidInput      = errors.New("factory input is invalid")
	ErrUnknownPolicyType = errors.New("unknown policy template type")
)

// State
var (
	ErrNotRegistered = errors.New("caller holds no registry binding")
	ErrInitFailed    = errors.New("policy initialization failed")
)

// Transfer
var (
	ErrFeeNotPaid = errors.New("creation fee transfer failed")
)
