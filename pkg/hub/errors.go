package hub

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrUnknownAgent is returned when an agent id is not registered
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrUnknownTopic is returned when no agent handles a topic
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrSessionExpired is returned when a session's TTL has passed
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionNotActive is returned when appending to a closed session
	ErrSessionNotActive = errors.New("session not active")

	// ErrAlreadyResolved is returned when resolving a non-pending escalation
	ErrAlreadyResolved = errors.New("escalation already resolved")

	// ErrMissingResponse is returned when a correct action omits the response
	ErrMissingResponse = errors.New("response required for correct action")

	// ErrAuditWrite is returned when the audit record could not be committed
	ErrAuditWrite = errors.New("audit write failed")
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
