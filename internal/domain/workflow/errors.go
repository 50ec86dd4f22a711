package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the current state does not permit the trigger
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned for unknown states or decisions
	ErrInvalidState = errors.New("invalid state")
)
