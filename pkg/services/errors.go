// Package services provides the application service layer between the HTTP
// API and the play execution engine.
package services

import (
	"errors"
	"fmt"
)

// Validation errors map to HTTP 400 responses.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkstreamIDRequired = errors.New("workstream ID is required")
	ErrPlayNil              = errors.New("play cannot be nil")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks whether an error should surface as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkstreamIDRequired) ||
		errors.Is(err, ErrPlayNil)
}
