package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/perdin/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a conditional update matched no row
	ErrConflict = errors.New("record was modified concurrently")

	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate record")

	// ErrReferenced is returned when a delete is blocked by dependent rows
	ErrReferenced = errors.New("record is referenced")
)

// CityRepository defines persistence operations for City
type CityRepository interface {
	Create(ctx context.Context, city *entity.City) error
	GetByID(ctx context.Context, id int64) (*entity.City, error)
	List(ctx context.Context) ([]*entity.City, error)
	Update(ctx context.Context, city *entity.City) error
	Delete(ctx context.Context, id int64) error
	IsReferenced(ctx context.Context, id int64) (bool, error)
}

// TripFilter narrows trip listings. Zero values mean no restriction.
type TripFilter struct {
	RequesterID int64
	Status      string
	// Search matches requester name, city names and purpose, case-insensitively
	Search string
	Limit  int
	Offset int
}

// TripRepository defines persistence operations for TripRequest
type TripRepository interface {
	Create(ctx context.Context, trip *entity.TripRequest) error
	GetByID(ctx context.Context, id int64) (*entity.TripRequest, error)

	// UpdateStatus moves a trip from expected to next and records the reviewer.
	// Returns ErrConflict when the stored status is no longer expected.
	UpdateStatus(ctx context.Context, id int64, expected, next string, reviewerID int64, at time.Time) error

	// List returns matching trips joined with display names, newest first
	List(ctx context.Context, filter TripFilter) ([]*entity.TripRequestView, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	// GetByLogin finds a user by username or email
	GetByLogin(ctx context.Context, login string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	UpdateRole(ctx context.Context, id int64, role string) error
}

// HistoryRepository defines persistence operations for TripHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.TripHistory) error
	GetByTripID(ctx context.Context, tripID int64) ([]*entity.TripHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
