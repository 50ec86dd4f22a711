package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/perdin/internal/application/dispatcher"
	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/entity"
	"github.com/garyjia/perdin/internal/domain/event"
	domainwf "github.com/garyjia/perdin/internal/domain/workflow"
)

// engineImpl is the concrete implementation of WorkflowEngine. It keeps no
// machines between calls; every transition starts from the stored state.
type engineImpl struct {
	tripRepo    port.TripRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	tripRepo port.TripRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		tripRepo:    tripRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// TransitionState applies a review decision
func (e *engineImpl) TransitionState(ctx context.Context, t Transition) (*entity.TripRequest, error) {
	trip, err := e.tripRepo.GetByID(ctx, t.TripID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trip: %w", err)
	}

	machine, err := machineFor(trip)
	if err != nil {
		return nil, err
	}

	previousState := machine.State()

	if !machine.CanFire(t.Trigger) {
		return nil, fmt.Errorf("%w: trigger %s from state %s", domainwf.ErrInvalidTransition, t.Trigger, previousState)
	}

	if err := machine.Fire(ctx, t.Trigger); err != nil {
		return nil, fmt.Errorf("state machine fire failed: %w", err)
	}
	newState := machine.State()

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		err := e.tripRepo.UpdateStatus(txCtx, t.TripID, previousState.String(), newState.String(), t.ActorID, t.At)
		if errors.Is(err, port.ErrConflict) {
			return fmt.Errorf("%w: trip %d was already reviewed", domainwf.ErrInvalidTransition, t.TripID)
		}
		if err != nil {
			return fmt.Errorf("failed to update trip status: %w", err)
		}

		history := &entity.TripHistory{
			TripID:         t.TripID,
			ActorID:        t.ActorID,
			PreviousStatus: previousState.String(),
			NewStatus:      newState.String(),
			Action:         t.Trigger.String(),
			Timestamp:      t.At,
		}
		if err := e.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	reviewer := t.ActorID
	at := t.At
	trip.Status = newState.String()
	trip.ReviewedBy = &reviewer
	trip.ReviewedAt = &at
	trip.UpdatedAt = at

	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, decisionEvent(trip, previousState, t))
	}

	return trip, nil
}

func machineFor(trip *entity.TripRequest) (domainwf.StateMachine, error) {
	state := domainwf.State(trip.Status)
	if !state.IsValid() {
		return nil, fmt.Errorf("%w: trip %d has status %q", domainwf.ErrInvalidState, trip.ID, trip.Status)
	}
	return BuildTripStateMachine(state), nil
}

func decisionEvent(trip *entity.TripRequest, previous domainwf.State, t Transition) *event.Event {
	eventType := event.TypeTripApproved
	if t.Trigger == domainwf.TriggerReject {
		eventType = event.TypeTripRejected
	}

	return event.NewEvent(eventType, trip.ID, t.ActorID, map[string]interface{}{
		"requester_id":    trip.RequesterID,
		"purpose":         trip.Purpose,
		"previous_status": previous.String(),
		"new_status":      trip.Status,
		"trigger":         t.Trigger.String(),
		"total_allowance": trip.TotalAllowance.String(),
	})
}
