package models

import "time"

// Session is an ordered conversation between a caller and one agent.
type Session struct {
	ID        string        `json:"session_id"`
	AgentID   string        `json:"agent_id"`
	FeatureID string        `json:"feature_id,omitempty"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

// Message is one entry in a session's conversation.
type Message struct {
	ID        string         `json:"message_id"`
	SessionID string         `json:"session_id"`
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateSessionRequest contains fields for explicitly opening a session.
type CreateSessionRequest struct {
	AgentID   string `json:"agent_id"`
	FeatureID string `json:"feature_id,omitempty"`
}

// SessionDetail is a session snapshot with its full message history.
type SessionDetail struct {
	*Session
	Messages []*Message `json:"messages"`
}
