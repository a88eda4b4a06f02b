package errors

import "errors"

// Validation
var (
	ErrInvalidInput          = errors.New("savings policy input is invalid")
	ErrZeroAmount            = errors.New("amount must be positive")
	ErrInvalidWithdrawalType = errors.New("unknown withdrawal restriction type")
	ErrInvalidFee            = errors.New("emergency fee must be between 0 and 10000 basis points")
)

// State
var (
	ErrInstanceNotFound = errors.New("savings policy instance not found")
	ErrGoalNotFound     = errors.New("savings goal not found")
	ErrGoalNotActive    = errors.New("goal does not accept contributions in its current status")
	ErrGoalNotPausable  = errors.New("only active goals can be paused")
	ErrGoalNotResumable = errors.New("only paused goals can be resumed")
	ErrExceedsGoalFunds = errors.New("withdrawal exceeds the goal's current amount")
	ErrReentrantCall    = errors.New("another operation is in progress for this instance")
)

// Authorization / gating
var (
	ErrNotOwnerOrGuardian = errors.New("caller is neither owner nor guardian")
	ErrTimeLocked         = errors.New("withdrawal is time-locked")
	ErrGoalIncomplete     = errors.New("withdrawal requires the goal to be completed")
	ErrEmergencyRequired  = errors.New("withdrawal requires the emergency flag")
)
