package workflow

import (
	domainwf "github.com/garyjia/perdin/internal/domain/workflow"
)

// BuildTripStateMachine creates a state machine for the trip review workflow
func BuildTripStateMachine(initialState domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StatePending).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	// APPROVED and REJECTED are terminal

	return builder.Build(initialState)
}
