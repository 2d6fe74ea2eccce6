package models

import (
	"regexp"
	"time"
)

// FeatureIDPattern is the canonical shape of a derived feature id,
// e.g. "005-add-user-authentication".
var FeatureIDPattern = regexp.MustCompile(`^\d{3}-[a-z0-9-]+$`)

// MinFeatureDescriptionLen is the minimum accepted feature description length.
const MinFeatureDescriptionLen = 10

// Workflow is a single end-to-end SDLC run of one workflow type.
type Workflow struct {
	ID                 string         `json:"workflow_id"`
	Type               WorkflowType   `json:"workflow_type"`
	Status             WorkflowStatus `json:"status"`
	FeatureID          string         `json:"feature_id"`
	FeatureDescription string         `json:"feature_description"`
	CurrentPhase       *string        `json:"current_phase"`
	Context            map[string]any `json:"context"`
	Result             map[string]any `json:"result"`
	ErrorMessage       *string        `json:"error,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
}

// WorkflowHistory is one append-only state transition record.
type WorkflowHistory struct {
	ID         string         `json:"history_id"`
	WorkflowID string         `json:"workflow_id"`
	FromStatus WorkflowStatus `json:"from_status"`
	ToStatus   WorkflowStatus `json:"to_status"`
	Trigger    Trigger        `json:"trigger"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// CreateWorkflowRequest contains fields for creating a new workflow.
type CreateWorkflowRequest struct {
	WorkflowType       WorkflowType   `json:"workflow_type"`
	FeatureDescription string         `json:"feature_description"`
	Context            map[string]any `json:"context,omitempty"`
}

// AdvanceWorkflowRequest asks the orchestrator to apply a trigger.
type AdvanceWorkflowRequest struct {
	Trigger     Trigger        `json:"trigger"`
	PhaseResult map[string]any `json:"phase_result,omitempty"`
}

// WorkflowResponse wraps a workflow snapshot with its transition history.
type WorkflowResponse struct {
	*Workflow
	History []*WorkflowHistory `json:"history,omitempty"`
}

// WorkflowFilters contains filtering options for listing workflows.
type WorkflowFilters struct {
	Status    string `json:"status,omitempty"`
	FeatureID string `json:"feature_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// WorkflowListResponse contains a paginated workflow list.
type WorkflowListResponse struct {
	Workflows  []*Workflow `json:"workflows"`
	TotalCount int         `json:"total_count"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}
