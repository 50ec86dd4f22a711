package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/perdin/internal/domain/entity"
)

func TestDefaultPolicy(t *testing.T) {
	p, err := NewPolicy(DefaultRoles())
	require.NoError(t, err)

	employee := Identity{UserID: 1, Role: entity.RoleEmployee}
	hr := Identity{UserID: 2, Role: entity.RoleHR}
	admin := Identity{UserID: 3, Role: entity.RoleAdmin}
	stranger := Identity{UserID: 4, Role: "GUEST"}

	tests := []struct {
		id   Identity
		cap  Capability
		want bool
	}{
		{employee, CapSubmitTrip, true},
		{employee, CapReviewTrip, false},
		{employee, CapManageCity, false},
		{hr, CapReviewTrip, true},
		{hr, CapManageCity, true},
		{hr, CapManageUsers, false},
		{admin, CapReviewTrip, true},
		{admin, CapManageUsers, true},
		{stranger, CapSubmitTrip, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Allows(tt.id, tt.cap), "%s %s", tt.id.Role, tt.cap)
	}

	assert.Equal(t, []string{entity.RoleAdmin, entity.RoleHR, entity.RoleEmployee}, p.Roles())
	assert.True(t, p.HasRole(entity.RoleHR))
	assert.False(t, p.HasRole("GUEST"))
}

func TestNewPolicy_Rejects(t *testing.T) {
	_, err := NewPolicy(nil)
	assert.Error(t, err)

	_, err = NewPolicy(map[string][]Capability{"X": {"trip:delete"}})
	assert.Error(t, err)

	_, err = NewPolicy(map[string][]Capability{"": {CapSubmitTrip}})
	assert.Error(t, err)
}
