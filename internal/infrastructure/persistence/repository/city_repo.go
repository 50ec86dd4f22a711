package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/entity"
	"github.com/garyjia/perdin/internal/infrastructure/persistence/sqlite"
)

// CityRepository implements port.CityRepository
type CityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCityRepository creates a new city repository
func NewCityRepository(db *sql.DB, logger *zap.Logger) port.CityRepository {
	return &CityRepository{
		db:     db,
		logger: logger,
	}
}

const cityColumns = `id, name, latitude, longitude, province, island, is_foreign, created_at, updated_at`

// Create inserts a city and sets its ID and timestamps
func (r *CityRepository) Create(ctx context.Context, city *entity.City) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO cities (name, latitude, longitude, province, island, is_foreign, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		city.Name,
		city.Latitude,
		city.Longitude,
		city.Province,
		city.Island,
		city.Foreign,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create city", zap.String("name", city.Name), zap.Error(err))
		return fmt.Errorf("failed to create city: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	city.ID = id
	city.CreatedAt = now
	city.UpdatedAt = now
	return nil
}

// GetByID returns port.ErrNotFound when no city has the id
func (r *CityRepository) GetByID(ctx context.Context, id int64) (*entity.City, error) {
	query := `SELECT ` + cityColumns + ` FROM cities WHERE id = ?`

	city, err := scanCity(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		err = sqlite.NotFound(err, "city", id)
		if !isNotFound(err) {
			r.logger.Error("Failed to get city", zap.Int64("id", id), zap.Error(err))
		}
		return nil, fmt.Errorf("failed to get city: %w", err)
	}
	return city, nil
}

// List returns all cities ordered by name
func (r *CityRepository) List(ctx context.Context) ([]*entity.City, error) {
	query := `SELECT ` + cityColumns + ` FROM cities ORDER BY name ASC, id ASC`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list cities", zap.Error(err))
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	defer rows.Close()

	cities := make([]*entity.City, 0)
	for rows.Next() {
		city, err := scanCity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, city)
	}

	return cities, rows.Err()
}

// Update overwrites the mutable fields of an existing city
func (r *CityRepository) Update(ctx context.Context, city *entity.City) error {
	now := time.Now().UTC()
	query := `
		UPDATE cities
		SET name = ?, latitude = ?, longitude = ?, province = ?, island = ?, is_foreign = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		city.Name,
		city.Latitude,
		city.Longitude,
		city.Province,
		city.Island,
		city.Foreign,
		now,
		city.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update city", zap.Int64("id", city.ID), zap.Error(err))
		return fmt.Errorf("failed to update city: %w", err)
	}

	if err := requireAffected(result, "city", city.ID); err != nil {
		return err
	}

	city.UpdatedAt = now
	return nil
}

// Delete removes a city. Cities referenced by trips return port.ErrReferenced.
func (r *CityRepository) Delete(ctx context.Context, id int64) error {
	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM cities WHERE id = ?`, id)
	if err != nil {
		if sqlite.IsForeignKeyViolation(err) {
			return fmt.Errorf("city %d: %w", id, port.ErrReferenced)
		}
		r.logger.Error("Failed to delete city", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete city: %w", err)
	}

	return requireAffected(result, "city", id)
}

// IsReferenced reports whether any trip starts or ends at the city
func (r *CityRepository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM trip_requests WHERE origin_city_id = ? OR destination_city_id = ?
		)
	`

	var exists bool
	if err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id, id).Scan(&exists); err != nil {
		r.logger.Error("Failed to check city references", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to check city references: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCity(row rowScanner) (*entity.City, error) {
	var city entity.City
	err := row.Scan(
		&city.ID,
		&city.Name,
		&city.Latitude,
		&city.Longitude,
		&city.Province,
		&city.Island,
		&city.Foreign,
		&city.CreatedAt,
		&city.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &city, nil
}

var _ port.CityRepository = (*CityRepository)(nil)
