// Package apperr defines the error categories shared by services and handlers.
package apperr

import (
	"fmt"

	"github.com/dbuatti/danielebuatti-sub001/validation"
	"github.com/pkg/errors"
)

// Sentinel errors. Wrap them with errors.Wrap to add context; errors.Is still matches.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports malformed or missing form fields.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Violations))
}

// Validation returns nil when v is empty, so callers can `return apperr.Validation(v)`.
func Validation(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// AdapterError reports a failure of an external HTTP collaborator.
type AdapterError struct {
	Service string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Adapter wraps err as an AdapterError for service.
func Adapter(service string, err error) error {
	if err == nil {
		return nil
	}
	return &AdapterError{Service: service, Err: err}
}

// Transition builds an ErrInvalidTransition with the offending states.
func Transition(from, to string) error {
	return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
}
