// Package seed loads the administrator account and the reference cities
// into an empty deployment. Running it again only adds what is missing.
package seed

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/service"
	"github.com/garyjia/perdin/internal/domain/access"
	"github.com/garyjia/perdin/internal/domain/entity"
)

// Admin describes the administrator account to create
type Admin struct {
	Name     string
	Username string
	Email    string
	Password string
}

// Result reports what a run created
type Result struct {
	AdminCreated  bool
	CitiesCreated int
	CitiesSkipped int
}

// ReferenceCities returns the cities a fresh deployment starts with
func ReferenceCities() []service.CityInput {
	return []service.CityInput{
		city("Jakarta", -6.2088, 106.8456, "DKI Jakarta", "Jawa", false),
		city("Bandung", -6.9175, 107.6191, "Jawa Barat", "Jawa", false),
		city("Surabaya", -7.2575, 112.7521, "Jawa Timur", "Jawa", false),
		city("Singapore", 1.3521, 103.8198, "Singapore", "Singapore", true),
		city("Kuala Lumpur", 3.139, 101.6869, "Wilayah Persekutuan Kuala Lumpur", "Peninsular Malaysia", true),
		city("Bangkok", 13.7563, 100.5018, "Bangkok", "Mainland Asia", true),
		city("Tokyo", 35.6762, 139.6503, "Tokyo", "Honshu", true),
		city("Sydney", -33.8688, 151.2093, "New South Wales", "Australia", true),
		city("New York", 40.7128, -74.006, "New York", "North America", true),
		city("London", 51.5072, -0.1276, "England", "Great Britain", true),
		city("Semarang", -6.9667, 110.4167, "Jawa Tengah", "Jawa", false),
		city("Medan", 3.5952, 98.6722, "Sumatera Utara", "Sumatera", false),
		city("Denpasar", -8.6705, 115.2126, "Bali", "Bali", false),
		city("Makassar", -5.1477, 119.4327, "Sulawesi Selatan", "Sulawesi", false),
		city("Jayapura", -2.5337, 140.7181, "Papua", "Papua", false),
	}
}

func city(name string, lat, lng float64, province, island string, foreign bool) service.CityInput {
	return service.CityInput{
		Name:      name,
		Latitude:  &lat,
		Longitude: &lng,
		Province:  province,
		Island:    island,
		Foreign:   foreign,
	}
}

// Run ensures the administrator exists and adds every reference city not
// already present by name. Cities are created as the administrator.
func Run(ctx context.Context, auth service.AuthService, cities service.CityService, admin Admin, logger *zap.Logger) (*Result, error) {
	user, created, err := auth.EnsureUser(ctx, service.RegisterInput{
		Name:     admin.Name,
		Username: admin.Username,
		Email:    admin.Email,
		Password: admin.Password,
	}, entity.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure admin user: %w", err)
	}
	if created {
		logger.Info("Admin user created", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	} else {
		logger.Info("Admin user already exists", zap.Int64("user_id", user.ID))
	}

	// an existing account may have been demoted; seeding still acts as admin
	actor := access.Identity{UserID: user.ID, Name: user.Name, Role: entity.RoleAdmin}

	existing, err := cities.List(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, c := range existing {
		present[strings.ToLower(c.Name)] = true
	}

	result := &Result{AdminCreated: created}
	for _, input := range ReferenceCities() {
		if present[strings.ToLower(input.Name)] {
			result.CitiesSkipped++
			continue
		}
		if _, err := cities.Create(ctx, actor, input); err != nil {
			return result, fmt.Errorf("failed to create city %s: %w", input.Name, err)
		}
		result.CitiesCreated++
	}

	logger.Info("Seeding finished",
		zap.Int("cities_created", result.CitiesCreated),
		zap.Int("cities_skipped", result.CitiesSkipped))
	return result, nil
}
