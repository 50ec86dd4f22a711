package workflow

import "fmt"

// Trigger is a reviewer action that moves a trip request between states.
type Trigger string

const (
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"
)

func (t Trigger) String() string {
	return string(t)
}

// TriggerForDecision maps a requested target status to the trigger that
// reaches it. Only terminal statuses are valid decisions.
func TriggerForDecision(decision State) (Trigger, error) {
	switch decision {
	case StateApproved:
		return TriggerApprove, nil
	case StateRejected:
		return TriggerReject, nil
	default:
		return "", fmt.Errorf("%w: %q is not a review decision", ErrInvalidState, decision)
	}
}
