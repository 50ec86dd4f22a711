package entity

import "time"

// City is a reference location trips start from or travel to
type City struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Province  string    `json:"province"`
	Island    string    `json:"island"`
	Foreign   bool      `json:"foreign"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
