package event

// Type identifies the type of domain event
type Type string

const (
	TypeTripSubmitted Type = "trip.submitted"
	TypeTripApproved  Type = "trip.approved"
	TypeTripRejected  Type = "trip.rejected"
)

func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTripSubmitted, TypeTripApproved, TypeTripRejected:
		return true
	default:
		return false
	}
}

// All lists every event type, used to register subscribers for each one
func All() []Type {
	return []Type{TypeTripSubmitted, TypeTripApproved, TypeTripRejected}
}
