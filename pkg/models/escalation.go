package models

import (
	"regexp"
	"time"
)

// ResponderPattern is the accepted shape of a human responder handle,
// e.g. "@jane" or "ops-team".
var ResponderPattern = regexp.MustCompile(`^@?[a-z0-9][a-z0-9-]*$`)

// Escalation is a human-review request opened when an answer's confidence
// falls below the effective threshold for its topic.
type Escalation struct {
	ID                 string           `json:"escalation_id"`
	SessionID          *string          `json:"session_id,omitempty"`
	QuestionID         string           `json:"question_id"`
	Topic              string           `json:"topic"`
	Question           string           `json:"question"`
	TentativeAnswer    string           `json:"tentative_answer"`
	Confidence         int              `json:"confidence"`
	UncertaintyReasons []string         `json:"uncertainty_reasons"`
	Status             EscalationStatus `json:"status"`
	HumanAction        *HumanAction     `json:"human_action,omitempty"`
	HumanResponse      *string          `json:"human_response,omitempty"`
	HumanResponder     *string          `json:"human_responder,omitempty"`
	ExternalCommentID  *string          `json:"external_comment_id,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	ResolvedAt         *time.Time       `json:"resolved_at,omitempty"`
	ExpiresAt          time.Time        `json:"expires_at"`
}

// ResolveEscalationRequest carries a human reviewer's decision.
type ResolveEscalationRequest struct {
	Action    HumanAction `json:"action"`
	Response  string      `json:"response,omitempty"`
	Responder string      `json:"responder"`
}

// ResolveEscalationResponse reports the applied resolution. NeedsReroute is
// set only for add_context; RerouteQuestion then carries the original
// question recombined with the supplied context, ready for a follow-up ask
// in the same session.
type ResolveEscalationResponse struct {
	EscalationID    string           `json:"escalation_id"`
	Status          EscalationStatus `json:"status"`
	HumanAction     HumanAction      `json:"human_action"`
	NeedsReroute    bool             `json:"needs_reroute"`
	RerouteQuestion string           `json:"reroute_question,omitempty"`
}

// EscalationListResponse contains a filtered escalation list.
type EscalationListResponse struct {
	Escalations []*Escalation `json:"escalations"`
	TotalCount  int           `json:"total_count"`
}
