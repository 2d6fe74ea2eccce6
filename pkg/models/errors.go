package models

// Stable error codes surfaced in the HTTP error envelope.
const (
	ErrCodeValidation        = "validation"
	ErrCodeUnknownAgent      = "unknown_agent"
	ErrCodeUnknownTopic      = "unknown_topic"
	ErrCodeUnknownWorkflow   = "unknown_workflow"
	ErrCodeUnknownSession    = "unknown_session"
	ErrCodeUnknownEscalation = "unknown_escalation"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeAlreadyResolved   = "already_resolved"
	ErrCodeSessionExpired    = "session_expired"
	ErrCodeMissingResponse   = "missing_response"
	ErrCodeWorkerTimeout     = "worker_timeout"
	ErrCodeWorkerError       = "worker_error"
	ErrCodeAuditWriteFailure = "audit_write_failure"
	ErrCodeInternal          = "internal"
)

// APIError is the body of every error response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the envelope all endpoints use for failures.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// NewErrorResponse builds the standard error envelope.
func NewErrorResponse(code, message string, details map[string]any) ErrorResponse {
	return ErrorResponse{Error: APIError{Code: code, Message: message, Details: details}}
}
