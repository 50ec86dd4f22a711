package workflow

import (
	"context"
	"time"

	"github.com/garyjia/perdin/internal/domain/entity"
	domainwf "github.com/garyjia/perdin/internal/domain/workflow"
)

// Transition describes one review decision applied to a trip
type Transition struct {
	TripID  int64
	ActorID int64
	Trigger domainwf.Trigger
	At      time.Time
}

// WorkflowEngine drives trip requests through the review workflow
type WorkflowEngine interface {
	// TransitionState applies t and returns the updated trip. A trip that is
	// not in a state permitting the trigger, including one reviewed
	// concurrently, yields domainwf.ErrInvalidTransition.
	TransitionState(ctx context.Context, t Transition) (*entity.TripRequest, error)
}
