// Package access decides what an authenticated caller may do. Roles are
// mapped to capabilities by a Policy so operations never compare role names.
package access

import (
	"fmt"
	"sort"

	"github.com/garyjia/perdin/internal/domain/entity"
)

// Capability names a permission an operation requires
type Capability string

const (
	CapSubmitTrip  Capability = "trip:submit"
	CapReviewTrip  Capability = "trip:review"
	CapManageCity  Capability = "city:manage"
	CapManageUsers Capability = "user:manage"
)

var knownCapabilities = map[Capability]bool{
	CapSubmitTrip:  true,
	CapReviewTrip:  true,
	CapManageCity:  true,
	CapManageUsers: true,
}

// IsValid reports whether c is a capability the service understands
func (c Capability) IsValid() bool {
	return knownCapabilities[c]
}

// Identity is the authenticated caller of an operation
type Identity struct {
	UserID int64
	Name   string
	Role   string
}

// Policy maps role names to the capabilities they grant
type Policy struct {
	roles map[string]map[Capability]bool
}

// DefaultRoles is the standard role table
func DefaultRoles() map[string][]Capability {
	return map[string][]Capability{
		entity.RoleEmployee: {CapSubmitTrip},
		entity.RoleHR:       {CapSubmitTrip, CapReviewTrip, CapManageCity},
		entity.RoleAdmin:    {CapSubmitTrip, CapReviewTrip, CapManageCity, CapManageUsers},
	}
}

// NewPolicy validates roles and builds a lookup table
func NewPolicy(roles map[string][]Capability) (*Policy, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}

	p := &Policy{roles: make(map[string]map[Capability]bool, len(roles))}
	for role, caps := range roles {
		if role == "" {
			return nil, fmt.Errorf("role name cannot be empty")
		}
		set := make(map[Capability]bool, len(caps))
		for _, c := range caps {
			if !c.IsValid() {
				return nil, fmt.Errorf("role %s: unknown capability %q", role, c)
			}
			set[c] = true
		}
		p.roles[role] = set
	}
	return p, nil
}

// Allows reports whether id's role grants c. Unknown roles grant nothing.
func (p *Policy) Allows(id Identity, c Capability) bool {
	return p.roles[id.Role][c]
}

// HasRole reports whether role is defined by the policy
func (p *Policy) HasRole(role string) bool {
	_, ok := p.roles[role]
	return ok
}

// Roles lists the defined role names, sorted
func (p *Policy) Roles() []string {
	out := make([]string, 0, len(p.roles))
	for r := range p.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
