// Package perdiem computes the daily and total allowance of a business trip
// from the two cities involved and the travel dates. It performs no I/O.
package perdiem

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/perdin/internal/domain/entity"
)

var (
	// ErrSameCity is returned when origin and destination are the same city
	ErrSameCity = errors.New("origin and destination must differ")

	// ErrInvalidDateRange is returned when the return date precedes departure
	ErrInvalidDateRange = errors.New("return date precedes departure date")
)

// Config holds the amounts and thresholds of the allowance tiers
type Config struct {
	// USDToLocalRate converts the foreign per-day amount to local currency
	USDToLocalRate decimal.Decimal
	// RateVersion labels the conversion rate so stored amounts stay traceable
	RateVersion string

	ForeignUSDPerDay   decimal.Decimal
	DayTripMaxKm       float64
	SameProvincePerDay decimal.Decimal
	SameIslandPerDay   decimal.Decimal
	InterIslandPerDay  decimal.Decimal
}

// DefaultConfig returns the standard tier table
func DefaultConfig() Config {
	return Config{
		USDToLocalRate:     decimal.NewFromInt(17000),
		RateVersion:        "2025-06",
		ForeignUSDPerDay:   decimal.NewFromInt(50),
		DayTripMaxKm:       60,
		SameProvincePerDay: decimal.NewFromInt(200000),
		SameIslandPerDay:   decimal.NewFromInt(250000),
		InterIslandPerDay:  decimal.NewFromInt(300000),
	}
}

// Validate checks the configuration for values that would produce nonsense allowances
func (c Config) Validate() error {
	if !c.USDToLocalRate.IsPositive() {
		return fmt.Errorf("usd_to_local_rate must be positive")
	}
	if c.ForeignUSDPerDay.IsNegative() || c.SameProvincePerDay.IsNegative() ||
		c.SameIslandPerDay.IsNegative() || c.InterIslandPerDay.IsNegative() {
		return fmt.Errorf("allowance amounts must not be negative")
	}
	if c.DayTripMaxKm < 0 {
		return fmt.Errorf("day_trip_max_km must not be negative")
	}
	return nil
}

// Result is the computed allowance of one trip
type Result struct {
	DurationDays    int
	DistanceKm      float64
	PerDayAllowance decimal.Decimal
	TotalAllowance  decimal.Decimal
	Rule            string
	RateVersion     string
}

// Calculator applies a fixed tier table
type Calculator struct {
	rules       []Rule
	rateVersion string
}

// NewCalculator builds a calculator for cfg
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{
		rules:       Rules(cfg),
		rateVersion: cfg.RateVersion,
	}
}

// Compute returns the allowance for travelling from origin to destination
// between departure and ret, both inclusive. Only the calendar date of the
// two times is used.
func (c *Calculator) Compute(origin, destination *entity.City, departure, ret time.Time) (*Result, error) {
	if origin == nil || destination == nil {
		return nil, fmt.Errorf("origin and destination are required")
	}
	if origin.ID == destination.ID {
		return nil, ErrSameCity
	}

	days, err := DurationDays(departure, ret)
	if err != nil {
		return nil, err
	}

	leg := Leg{
		Origin:      origin,
		Destination: destination,
		DistanceKm:  Distance(origin.Latitude, origin.Longitude, destination.Latitude, destination.Longitude),
	}

	rule := c.match(leg)

	return &Result{
		DurationDays:    days,
		DistanceKm:      leg.DistanceKm,
		PerDayAllowance: rule.PerDay,
		TotalAllowance:  rule.PerDay.Mul(decimal.NewFromInt(int64(days))),
		Rule:            rule.Name,
		RateVersion:     c.rateVersion,
	}, nil
}

func (c *Calculator) match(leg Leg) Rule {
	for _, r := range c.rules {
		if r.Match(leg) {
			return r
		}
	}
	// unreachable while the catch-all rule is last
	return c.rules[len(c.rules)-1]
}

// DurationDays counts calendar days from departure to ret, both inclusive.
func DurationDays(departure, ret time.Time) (int, error) {
	d := calendarDate(departure)
	r := calendarDate(ret)
	if r.Before(d) {
		return 0, ErrInvalidDateRange
	}
	return int(r.Sub(d).Hours()/24) + 1, nil
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
