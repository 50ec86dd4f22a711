package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/garyjia/perdin/internal/application/port"
	domainwf "github.com/garyjia/perdin/internal/domain/workflow"
)

var (
	// ErrValidation matches every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrInvalidStateTransition is returned when a trip is not in a state that permits the decision
	ErrInvalidStateTransition = domainwf.ErrInvalidTransition

	// ErrForbidden is returned when the caller lacks the capability for an operation
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized is returned for missing identities and bad credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a record does not exist
	ErrNotFound = port.ErrNotFound

	// ErrCityNotFound is returned when a trip references an unknown city
	ErrCityNotFound = errors.New("city not found")

	// ErrCityInUse is returned when deleting a city that trips still reference
	ErrCityInUse = errors.New("city is referenced by trip requests")

	// ErrDuplicate is returned when a username or email is taken
	ErrDuplicate = port.ErrDuplicate
)

// ValidationError collects per-field input problems
type ValidationError struct {
	Fields map[string]string
	causes []error
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// add records msg for field, keeping the first message per field
func (e *ValidationError) add(field, msg string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// addCause records msg for field and makes the error also match cause
func (e *ValidationError) addCause(field, msg string, cause error) {
	e.add(field, msg)
	e.causes = append(e.causes, cause)
}

// check adds err's message for field when err is non-nil
func (e *ValidationError) check(field string, err error) {
	if err != nil {
		e.add(field, err.Error())
	}
}

// orNil returns e when any field failed, otherwise nil
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() []error {
	return append([]error{ErrValidation}, e.causes...)
}

// fieldError builds a single-field validation error
func fieldError(field, msg string) error {
	v := newValidationError()
	v.add(field, msg)
	return v
}
