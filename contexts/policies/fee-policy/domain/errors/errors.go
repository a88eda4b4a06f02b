package errors

import "errors"

// Validation
var (
	ErrInvalidInput     = errors.New("fee policy input is invalid")
	ErrZeroAmount       = errors.New("amount must be positive")
	ErrInvalidFeeRate   = errors.New("late fee rate must be between 0 and 10000 basis points")
	ErrExceedsRemaining = errors.New("payment exceeds the schedule's remaining amount")
)

// State
var (
	ErrInstanceNotFound  = errors.New("fee policy instance not found")
	ErrScheduleNotFound  = errors.New("fee schedule not found")
	ErrScheduleClosed    = errors.New("schedule no longer accepts payments")
	ErrScheduleCompleted = errors.New("schedule is already completed")
	ErrNotOverdue        = errors.New("schedule is not past its grace period")
	ErrReentrantCall     = errors.New("another operation is in progress for this instance")
)

// Authorization
var (
	ErrNotOwner = errors.New("caller is not the instance owner")
)
