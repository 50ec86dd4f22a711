package service

import (
	"fmt"
	"time"

	"github.com/garyjia/perdin/internal/domain/access"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Clock supplies the current time
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// authorize returns ErrForbidden unless caller holds capability
func authorize(policy *access.Policy, caller access.Identity, capability access.Capability) error {
	if caller.UserID == 0 {
		return ErrUnauthorized
	}
	if !policy.Allows(caller, capability) {
		return fmt.Errorf("%w: role %s lacks %s", ErrForbidden, caller.Role, capability)
	}
	return nil
}

// authenticated returns ErrUnauthorized for an empty identity
func authenticated(caller access.Identity) error {
	if caller.UserID == 0 {
		return ErrUnauthorized
	}
	return nil
}
