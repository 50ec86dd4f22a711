package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/garyjia/perdin/internal/application/dispatcher"
	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/application/workflow"
	"github.com/garyjia/perdin/internal/domain/access"
	"github.com/garyjia/perdin/internal/domain/entity"
	"github.com/garyjia/perdin/internal/domain/event"
	"github.com/garyjia/perdin/internal/domain/perdiem"
	domainwf "github.com/garyjia/perdin/internal/domain/workflow"
	"github.com/garyjia/perdin/pkg/utils"
)

const maxPurposeLength = 2000

// SubmitTripInput is the client-supplied part of a trip request. Allowance
// fields are never accepted from the client.
type SubmitTripInput struct {
	Purpose           string `json:"purpose"`
	DepartureDate     string `json:"departure_date"`
	ReturnDate        string `json:"return_date"`
	OriginCityID      int64  `json:"origin_city_id"`
	DestinationCityID int64  `json:"destination_city_id"`
}

// TripService manages business trip requests
type TripService interface {
	// Submit validates input, computes the allowance and stores a pending trip
	Submit(ctx context.Context, caller access.Identity, input SubmitTripInput) (*entity.TripRequest, error)

	// Review approves or rejects a pending trip
	Review(ctx context.Context, caller access.Identity, tripID int64, decision string) (*entity.TripRequest, error)

	// ListMine returns the caller's own trips, newest first
	ListMine(ctx context.Context, caller access.Identity) ([]*entity.TripRequestView, error)

	// ListForReview returns all trips matching filter, newest first
	ListForReview(ctx context.Context, caller access.Identity, filter port.TripFilter) ([]*entity.TripRequestView, error)

	// History returns the audit trail of a trip, oldest first
	History(ctx context.Context, caller access.Identity, tripID int64) ([]*entity.TripHistory, error)

	// Export writes the review listing for filter as a report document
	Export(ctx context.Context, caller access.Identity, filter port.TripFilter, w io.Writer) error

	// ReportFormat describes the document Export produces. ok is false when
	// export is not configured.
	ReportFormat() (contentType, extension string, ok bool)
}

type tripServiceImpl struct {
	tripRepo    port.TripRepository
	cityRepo    port.CityRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	engine      workflow.WorkflowEngine
	calculator  *perdiem.Calculator
	policy      *access.Policy
	dispatcher  dispatcher.Dispatcher
	report      port.TripReportWriter
	clock       Clock
	logger      Logger
}

// TripServiceOption configures optional collaborators of the trip service
type TripServiceOption func(*tripServiceImpl)

// WithTripDispatcher emits trip.submitted events through d
func WithTripDispatcher(d dispatcher.Dispatcher) TripServiceOption {
	return func(s *tripServiceImpl) {
		s.dispatcher = d
	}
}

// WithReportWriter enables Export
func WithReportWriter(w port.TripReportWriter) TripServiceOption {
	return func(s *tripServiceImpl) {
		s.report = w
	}
}

// WithClock overrides the time source used for review timestamps
func WithClock(clock Clock) TripServiceOption {
	return func(s *tripServiceImpl) {
		s.clock = clock
	}
}

// NewTripService creates a new TripService
func NewTripService(
	tripRepo port.TripRepository,
	cityRepo port.CityRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	engine workflow.WorkflowEngine,
	calculator *perdiem.Calculator,
	policy *access.Policy,
	logger Logger,
	opts ...TripServiceOption,
) TripService {
	s := &tripServiceImpl{
		tripRepo:    tripRepo,
		cityRepo:    cityRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		engine:      engine,
		calculator:  calculator,
		policy:      policy,
		clock:       systemClock,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Submit creates a pending trip for the caller
func (s *tripServiceImpl) Submit(ctx context.Context, caller access.Identity, input SubmitTripInput) (*entity.TripRequest, error) {
	if err := authorize(s.policy, caller, access.CapSubmitTrip); err != nil {
		return nil, err
	}

	origin, destination, departure, ret, err := s.validateSubmission(ctx, input)
	if err != nil {
		return nil, err
	}

	result, err := s.calculator.Compute(origin, destination, departure, ret)
	switch {
	case errors.Is(err, perdiem.ErrSameCity):
		return nil, fieldError("destination_city_id", "must differ from origin city")
	case errors.Is(err, perdiem.ErrInvalidDateRange):
		return nil, fieldError("return_date", "must not be before departure date")
	case err != nil:
		return nil, fmt.Errorf("failed to compute allowance: %w", err)
	}

	trip := &entity.TripRequest{
		RequesterID:       caller.UserID,
		Purpose:           utils.SanitizeString(input.Purpose),
		DepartureDate:     departure,
		ReturnDate:        ret,
		OriginCityID:      origin.ID,
		DestinationCityID: destination.ID,
		DurationDays:      result.DurationDays,
		DistanceKm:        result.DistanceKm,
		PerDayAllowance:   result.PerDayAllowance,
		TotalAllowance:    result.TotalAllowance,
		AllowanceRule:     result.Rule,
		Status:            entity.StatusPending,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.tripRepo.Create(txCtx, trip); err != nil {
			return fmt.Errorf("failed to create trip request: %w", err)
		}

		history := &entity.TripHistory{
			TripID:    trip.ID,
			ActorID:   caller.UserID,
			NewStatus: entity.StatusPending,
			Action:    entity.ActionSubmit,
			Timestamp: trip.CreatedAt,
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit trip", "requester_id", caller.UserID, "error", err)
		return nil, err
	}

	s.logger.Info("Trip submitted",
		"trip_id", trip.ID,
		"requester_id", caller.UserID,
		"rule", result.Rule,
		"rate_version", result.RateVersion,
		"total_allowance", trip.TotalAllowance.String())

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeTripSubmitted, trip.ID, caller.UserID, map[string]interface{}{
			"requester_id":     caller.UserID,
			"requester_name":   caller.Name,
			"purpose":          trip.Purpose,
			"origin_city":      origin.Name,
			"destination_city": destination.Name,
			"duration_days":    trip.DurationDays,
			"allowance_rule":   trip.AllowanceRule,
			"total_allowance":  trip.TotalAllowance.String(),
			"rate_version":     result.RateVersion,
		}))
	}

	return trip, nil
}

// validateSubmission checks every field and resolves both cities, reporting
// all problems at once
func (s *tripServiceImpl) validateSubmission(ctx context.Context, input SubmitTripInput) (origin, destination *entity.City, departure, ret time.Time, err error) {
	v := newValidationError()

	v.check("purpose", utils.ValidateRequired(utils.SanitizeString(input.Purpose), maxPurposeLength))

	departure, depOK := parseDate(v, "departure_date", input.DepartureDate)
	ret, retOK := parseDate(v, "return_date", input.ReturnDate)
	if depOK && retOK && ret.Before(departure) {
		v.add("return_date", "must not be before departure date")
	}

	if input.OriginCityID <= 0 {
		v.add("origin_city_id", "is required")
	}
	if input.DestinationCityID <= 0 {
		v.add("destination_city_id", "is required")
	}
	if input.OriginCityID > 0 && input.OriginCityID == input.DestinationCityID {
		v.add("destination_city_id", "must differ from origin city")
	}

	if input.OriginCityID > 0 {
		origin, err = s.lookupCity(ctx, v, "origin_city_id", input.OriginCityID)
		if err != nil {
			return nil, nil, time.Time{}, time.Time{}, err
		}
	}
	if input.DestinationCityID > 0 && input.DestinationCityID != input.OriginCityID {
		destination, err = s.lookupCity(ctx, v, "destination_city_id", input.DestinationCityID)
		if err != nil {
			return nil, nil, time.Time{}, time.Time{}, err
		}
	}

	if err := v.orNil(); err != nil {
		return nil, nil, time.Time{}, time.Time{}, err
	}
	return origin, destination, departure, ret, nil
}

// lookupCity records a field error for unknown ids; only storage failures are returned
func (s *tripServiceImpl) lookupCity(ctx context.Context, v *ValidationError, field string, id int64) (*entity.City, error) {
	city, err := s.cityRepo.GetByID(ctx, id)
	if errors.Is(err, port.ErrNotFound) {
		v.addCause(field, "city does not exist", ErrCityNotFound)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load city %d: %w", id, err)
	}
	return city, nil
}

func parseDate(v *ValidationError, field, value string) (time.Time, bool) {
	if value == "" {
		v.add(field, "is required")
		return time.Time{}, false
	}
	t, err := time.Parse(entity.DateLayout, value)
	if err != nil {
		v.add(field, "must be a date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return t, true
}

// Review applies a reviewer's decision to a pending trip
func (s *tripServiceImpl) Review(ctx context.Context, caller access.Identity, tripID int64, decision string) (*entity.TripRequest, error) {
	if err := authorize(s.policy, caller, access.CapReviewTrip); err != nil {
		return nil, err
	}

	trigger, err := domainwf.TriggerForDecision(domainwf.State(decision))
	if err != nil {
		return nil, fieldError("status", "must be approved or rejected")
	}

	trip, err := s.engine.TransitionState(ctx, workflow.Transition{
		TripID:  tripID,
		ActorID: caller.UserID,
		Trigger: trigger,
		At:      s.clock().UTC(),
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidStateTransition) {
			s.logger.Error("Failed to review trip", "trip_id", tripID, "reviewer_id", caller.UserID, "error", err)
		}
		return nil, err
	}

	s.logger.Info("Trip reviewed",
		"trip_id", tripID,
		"reviewer_id", caller.UserID,
		"status", trip.Status)

	return trip, nil
}

// ListMine returns trips requested by the caller
func (s *tripServiceImpl) ListMine(ctx context.Context, caller access.Identity) ([]*entity.TripRequestView, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	return s.tripRepo.List(ctx, port.TripFilter{RequesterID: caller.UserID})
}

// ListForReview returns the review queue
func (s *tripServiceImpl) ListForReview(ctx context.Context, caller access.Identity, filter port.TripFilter) ([]*entity.TripRequestView, error) {
	if err := authorize(s.policy, caller, access.CapReviewTrip); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.tripRepo.List(ctx, filter)
}

func validateFilter(filter port.TripFilter) error {
	v := newValidationError()
	if filter.Status != "" && !domainwf.State(filter.Status).IsValid() {
		v.add("status", "must be pending, approved or rejected")
	}
	if filter.Limit < 0 {
		v.add("limit", "must not be negative")
	}
	if filter.Offset < 0 {
		v.add("offset", "must not be negative")
	}
	return v.orNil()
}

// History returns a trip's audit trail to its requester or a reviewer
func (s *tripServiceImpl) History(ctx context.Context, caller access.Identity, tripID int64) ([]*entity.TripHistory, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if trip.RequesterID != caller.UserID && !s.policy.Allows(caller, access.CapReviewTrip) {
		return nil, fmt.Errorf("%w: trip %d belongs to another user", ErrForbidden, tripID)
	}

	return s.historyRepo.GetByTripID(ctx, tripID)
}

// Export renders the review listing through the configured report writer
func (s *tripServiceImpl) Export(ctx context.Context, caller access.Identity, filter port.TripFilter, w io.Writer) error {
	if s.report == nil {
		return fmt.Errorf("trip export is not configured")
	}

	trips, err := s.ListForReview(ctx, caller, filter)
	if err != nil {
		return err
	}

	if err := s.report.WriteTrips(w, trips); err != nil {
		s.logger.Error("Failed to export trips", "error", err)
		return fmt.Errorf("failed to export trips: %w", err)
	}

	s.logger.Info("Trips exported", "count", len(trips), "reviewer_id", caller.UserID)
	return nil
}

// ReportFormat returns the content type and file extension of exports
func (s *tripServiceImpl) ReportFormat() (string, string, bool) {
	if s.report == nil {
		return "", "", false
	}
	return s.report.ContentType(), s.report.FileExtension(), true
}
