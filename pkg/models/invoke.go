package models

// InvokeRequest is the full context sent to a stateless expert worker.
// A single request carries everything the worker needs.
type InvokeRequest struct {
	WorkflowType string         `json:"workflow_type"`
	Context      map[string]any `json:"context"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
}

// InvokeResponse is a worker's answer with self-reported confidence.
type InvokeResponse struct {
	Success    bool           `json:"success"`
	Result     map[string]any `json:"result"`
	Confidence int            `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// HubInvokeResponse is the hub's envelope around a worker response: the
// worker payload plus the session the exchange was recorded under.
type HubInvokeResponse struct {
	*InvokeResponse
	SessionID string `json:"session_id"`
}

// MinQuestionLen is the minimum accepted expert question length.
const MinQuestionLen = 10

// AskExpertRequest is a topic-routed expert consultation.
type AskExpertRequest struct {
	Question  string         `json:"question"`
	Context   map[string]any `json:"context,omitempty"`
	FeatureID string         `json:"feature_id"`
	SessionID string         `json:"session_id,omitempty"`
}

// AskExpertResponse reports the gated outcome of a consultation. The
// tentative answer and uncertainty reasons are preserved even when the
// exchange escalates.
type AskExpertResponse struct {
	Status             AskStatus      `json:"status"`
	Answer             string         `json:"answer"`
	Result             map[string]any `json:"result,omitempty"`
	Confidence         int            `json:"confidence"`
	Threshold          int            `json:"threshold"`
	UncertaintyReasons []string       `json:"uncertainty_reasons,omitempty"`
	SessionID          string         `json:"session_id"`
	EscalationID       *string        `json:"escalation_id"`
}
