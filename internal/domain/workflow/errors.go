package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a decision does not match the current level
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrAlreadyFinalized is returned when a decision targets a completed request
	ErrAlreadyFinalized = errors.New("request already finalized")

	// ErrUnauthorized is returned when the actor may not perform the operation
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned for malformed request drafts
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")
)
