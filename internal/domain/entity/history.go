package entity

import "time"

// TripHistory is one entry of a trip request's audit trail
type TripHistory struct {
	ID             int64     `json:"id"`
	TripID         int64     `json:"trip_id"`
	ActorID        int64     `json:"actor_id"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	NewStatus      string    `json:"new_status"`
	Action         string    `json:"action"`
	Timestamp      time.Time `json:"timestamp"`
}
