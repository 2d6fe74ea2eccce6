package models

import "time"

// AuditRecord is one JSONL line in a feature's audit log. Exactly one record
// is written per completed exchange; escalation creation counts as a
// completion with status "escalated".
type AuditRecord struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	SessionID    *string        `json:"session_id"`
	FeatureID    string         `json:"feature_id"`
	Topic        string         `json:"topic"`
	Question     string         `json:"question"`
	Answer       string         `json:"answer"`
	Confidence   int            `json:"confidence"`
	Status       AuditStatus    `json:"status"`
	EscalationID *string        `json:"escalation_id"`
	DurationMS   int64          `json:"duration_ms"`
	Metadata     map[string]any `json:"metadata"`
}
