package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/entity"
	"github.com/garyjia/perdin/internal/infrastructure/persistence/sqlite"
)

// TripRepository implements port.TripRepository
type TripRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTripRepository creates a new trip request repository
func NewTripRepository(db *sql.DB, logger *zap.Logger) port.TripRepository {
	return &TripRepository{
		db:     db,
		logger: logger,
	}
}

const tripColumns = `
	t.id, t.requester_id, t.purpose, t.departure_date, t.return_date,
	t.origin_city_id, t.destination_city_id, t.duration_days, t.distance_km,
	t.per_day_allowance, t.total_allowance, t.allowance_rule, t.status,
	t.reviewed_by, t.reviewed_at, t.created_at, t.updated_at`

// Create inserts a trip request and sets its ID and timestamps
func (r *TripRepository) Create(ctx context.Context, trip *entity.TripRequest) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO trip_requests (
			requester_id, purpose, departure_date, return_date,
			origin_city_id, destination_city_id, duration_days, distance_km,
			per_day_allowance, total_allowance, allowance_rule, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		trip.RequesterID,
		trip.Purpose,
		trip.DepartureDate.Format(entity.DateLayout),
		trip.ReturnDate.Format(entity.DateLayout),
		trip.OriginCityID,
		trip.DestinationCityID,
		trip.DurationDays,
		trip.DistanceKm,
		trip.PerDayAllowance.String(),
		trip.TotalAllowance.String(),
		trip.AllowanceRule,
		trip.Status,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create trip request",
			zap.Int64("requester_id", trip.RequesterID),
			zap.Error(err))
		return fmt.Errorf("failed to create trip request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	trip.ID = id
	trip.CreatedAt = now
	trip.UpdatedAt = now
	return nil
}

// GetByID returns port.ErrNotFound when no trip has the id
func (r *TripRepository) GetByID(ctx context.Context, id int64) (*entity.TripRequest, error) {
	query := `SELECT ` + tripColumns + ` FROM trip_requests t WHERE t.id = ?`

	trip, err := scanTrip(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		err = sqlite.NotFound(err, "trip request", id)
		if !isNotFound(err) {
			r.logger.Error("Failed to get trip request", zap.Int64("id", id), zap.Error(err))
		}
		return nil, fmt.Errorf("failed to get trip request: %w", err)
	}
	return trip, nil
}

// UpdateStatus is a compare-and-swap on status: only a row still in expected
// is changed, so of two concurrent reviews exactly one succeeds.
func (r *TripRepository) UpdateStatus(ctx context.Context, id int64, expected, next string, reviewerID int64, at time.Time) error {
	query := `
		UPDATE trip_requests
		SET status = ?, reviewed_by = ?, reviewed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	exec := sqlite.Executor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, next, reviewerID, at.UTC(), at.UTC(), id, expected)
	if err != nil {
		r.logger.Error("Failed to update trip status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update trip status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trip_requests WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check trip existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("trip request %d: %w", id, port.ErrNotFound)
	}

	r.logger.Info("Trip status changed concurrently",
		zap.Int64("id", id),
		zap.String("expected", expected),
		zap.String("next", next))
	return fmt.Errorf("trip request %d no longer %s: %w", id, expected, port.ErrConflict)
}

// List returns trips matching filter with requester and city names, newest first
func (r *TripRepository) List(ctx context.Context, filter port.TripFilter) ([]*entity.TripRequestView, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter.RequesterID != 0 {
		where = append(where, "t.requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.Status != "" {
		where = append(where, "t.status = ?")
		args = append(args, filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		where = append(where, `(
			LOWER(u.name) LIKE ? ESCAPE '\' OR
			LOWER(oc.name) LIKE ? ESCAPE '\' OR
			LOWER(dc.name) LIKE ? ESCAPE '\' OR
			LOWER(t.purpose) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + tripColumns + `, u.name, oc.name, dc.name
		FROM trip_requests t
		JOIN users u ON u.id = t.requester_id
		JOIN cities oc ON oc.id = t.origin_city_id
		JOIN cities dc ON dc.id = t.destination_city_id`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY t.created_at DESC, t.id DESC")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, b.String(), args...)
	if err != nil {
		r.logger.Error("Failed to list trip requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list trip requests: %w", err)
	}
	defer rows.Close()

	views := make([]*entity.TripRequestView, 0)
	for rows.Next() {
		var v entity.TripRequestView
		if err := scanTripInto(rows, &v.TripRequest, &v.RequesterName, &v.OriginCityName, &v.DestinationCityName); err != nil {
			return nil, fmt.Errorf("failed to scan trip request: %w", err)
		}
		views = append(views, &v)
	}

	return views, rows.Err()
}

func scanTrip(row rowScanner) (*entity.TripRequest, error) {
	var trip entity.TripRequest
	if err := scanTripInto(row, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// scanTripInto scans tripColumns into trip followed by any extra columns
func scanTripInto(row rowScanner, trip *entity.TripRequest, extra ...interface{}) error {
	var (
		reviewedBy sql.NullInt64
		reviewedAt sql.NullTime
	)

	dest := []interface{}{
		&trip.ID,
		&trip.RequesterID,
		&trip.Purpose,
		&trip.DepartureDate,
		&trip.ReturnDate,
		&trip.OriginCityID,
		&trip.DestinationCityID,
		&trip.DurationDays,
		&trip.DistanceKm,
		&trip.PerDayAllowance,
		&trip.TotalAllowance,
		&trip.AllowanceRule,
		&trip.Status,
		&reviewedBy,
		&reviewedAt,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	if reviewedBy.Valid {
		id := reviewedBy.Int64
		trip.ReviewedBy = &id
	}
	if reviewedAt.Valid {
		at := reviewedAt.Time
		trip.ReviewedAt = &at
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ port.TripRepository = (*TripRepository)(nil)
