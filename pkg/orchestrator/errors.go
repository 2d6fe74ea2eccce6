package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a workflow does not exist
	ErrNotFound = errors.New("workflow not found")

	// ErrInvalidTransition is returned when a trigger is illegal for the
	// workflow's current status
	ErrInvalidTransition = errors.New("invalid transition")
)

// ValidationError wraps field-specific validation errors.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
