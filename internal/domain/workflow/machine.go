package workflow

import "context"

// StateMachine tracks the state of one trip request and validates transitions.
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire reports whether the current state has any transition for trigger
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, moving to the target state if permitted
	Fire(ctx context.Context, trigger Trigger) error
}
