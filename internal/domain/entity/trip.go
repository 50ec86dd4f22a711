package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripRequest is a business trip submitted for review. The allowance fields
// are fixed at submission and never recomputed.
type TripRequest struct {
	ID                int64           `json:"id"`
	RequesterID       int64           `json:"requester_id"`
	Purpose           string          `json:"purpose"`
	DepartureDate     time.Time       `json:"departure_date"`
	ReturnDate        time.Time       `json:"return_date"`
	OriginCityID      int64           `json:"origin_city_id"`
	DestinationCityID int64           `json:"destination_city_id"`
	DurationDays      int             `json:"duration_days"`
	DistanceKm        float64         `json:"distance_km"`
	PerDayAllowance   decimal.Decimal `json:"per_day_allowance"`
	TotalAllowance    decimal.Decimal `json:"total_allowance"`
	AllowanceRule     string          `json:"allowance_rule"`
	Status            string          `json:"status"`
	ReviewedBy        *int64          `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TripRequestView is a trip request joined with the display names reviewers
// and requesters see in listings.
type TripRequestView struct {
	TripRequest
	RequesterName       string `json:"requester_name"`
	OriginCityName      string `json:"origin_city_name"`
	DestinationCityName string `json:"destination_city_name"`
}
