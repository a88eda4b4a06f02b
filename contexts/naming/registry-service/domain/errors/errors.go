package errors

import "errors"

// Validation
var (
	ErrInvalidInput = errors.New("registry input is invalid")
	ErrInvalidLabel = errors.New("label does not match the allowed character class")
)

// State
var (
	ErrLabelTaken        = errors.New("label is already bound under this parent")
	ErrBindingNotFound   = errors.New("no binding exists for this node")
	ErrAlreadyRegistered = errors.New("address already holds a username binding")
	ErrNotRegistered     = errors.New("address holds no username binding")
)

// Authorization
var (
	ErrNotRegistrar = errors.New("caller is not an authorized registrar")
	ErrNotAdmin     = errors.New("caller is not the registry admin")
	ErrNotOwner     = errors.New("caller does not own this binding")
)
