package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsValid(t *testing.T) {
	for _, tp := range All() {
		assert.True(t, tp.IsValid(), tp.String())
	}
	assert.False(t, Type("trip.deleted").IsValid())
	assert.Equal(t, "trip.approved", TypeTripApproved.String())
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeTripSubmitted, 42, 7, map[string]interface{}{"purpose": "audit"})

	_, err := uuid.Parse(evt.ID)
	require.NoError(t, err)
	assert.Equal(t, evt.ID, evt.CorrelationID)
	assert.Equal(t, int64(42), evt.TripID)
	assert.Equal(t, int64(7), evt.ActorID)
	assert.False(t, evt.Timestamp.IsZero())

	other := NewEvent(TypeTripSubmitted, 42, 7, nil)
	assert.NotEqual(t, evt.ID, other.ID)
}

func TestEvent_WithPayloadDoesNotMutate(t *testing.T) {
	evt := NewEvent(TypeTripApproved, 1, 2, map[string]interface{}{"a": "x"})
	next := evt.WithPayload("b", 3)

	assert.Equal(t, "x", next.GetPayloadString("a"))
	assert.Equal(t, int64(3), next.GetPayloadInt("b"))
	_, exists := evt.Payload["b"]
	assert.False(t, exists)
	assert.Equal(t, evt.ID, next.ID)
}

func TestEvent_WithCorrelation(t *testing.T) {
	evt := NewEvent(TypeTripRejected, 1, 2, nil)
	linked := evt.WithCorrelation("chain-1")
	assert.Equal(t, "chain-1", linked.CorrelationID)
	assert.NotEqual(t, "chain-1", evt.CorrelationID)
}

func TestEvent_PayloadGettersHandleMissingAndWrongTypes(t *testing.T) {
	evt := NewEvent(TypeTripApproved, 1, 2, map[string]interface{}{"n": 2.0, "s": 5})
	assert.Equal(t, int64(2), evt.GetPayloadInt("n"))
	assert.Equal(t, "", evt.GetPayloadString("s"))
	assert.Equal(t, "", evt.GetPayloadString("missing"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("missing"))
}
