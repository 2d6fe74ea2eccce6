package hub

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// Column lists shared by the scan helpers. Keep in sync with the
// migrations in pkg/hub/migrations.
const (
	sessionColumns = `session_id, agent_id, feature_id, status, created_at, updated_at, expires_at`

	messageColumns = `message_id, session_id, role, content, metadata, created_at`

	escalationColumns = `escalation_id, session_id, question_id, topic, question, tentative_answer,
		confidence, uncertainty_reasons, status, human_action, human_response, human_responder,
		external_comment_id, created_at, updated_at, resolved_at, expires_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s         models.Session
		featureID sql.NullString
		expiresAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.AgentID, &featureID, &s.Status, &s.CreatedAt, &s.UpdatedAt, &expiresAt)
	if err != nil {
		return nil, err
	}
	s.FeatureID = featureID.String
	if expiresAt.Valid {
		t := expiresAt.Time
		s.ExpiresAt = &t
	}
	return &s, nil
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m        models.Message
		metadata []byte
	)
	err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &metadata, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt message metadata for %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

func scanEscalation(row rowScanner) (*models.Escalation, error) {
	var (
		e              models.Escalation
		sessionID      sql.NullString
		reasons        []byte
		humanAction    sql.NullString
		humanResponse  sql.NullString
		humanResponder sql.NullString
		externalID     sql.NullString
		resolvedAt     sql.NullTime
	)
	err := row.Scan(&e.ID, &sessionID, &e.QuestionID, &e.Topic, &e.Question, &e.TentativeAnswer,
		&e.Confidence, &reasons, &e.Status, &humanAction, &humanResponse, &humanResponder,
		&externalID, &e.CreatedAt, &e.UpdatedAt, &resolvedAt, &e.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if sessionID.Valid {
		v := sessionID.String
		e.SessionID = &v
	}
	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &e.UncertaintyReasons); err != nil {
			return nil, fmt.Errorf("corrupt uncertainty reasons for %s: %w", e.ID, err)
		}
	}
	if humanAction.Valid {
		a := models.HumanAction(humanAction.String)
		e.HumanAction = &a
	}
	if humanResponse.Valid {
		v := humanResponse.String
		e.HumanResponse = &v
	}
	if humanResponder.Valid {
		v := humanResponder.String
		e.HumanResponder = &v
	}
	if externalID.Valid {
		v := externalID.String
		e.ExternalCommentID = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		e.ResolvedAt = &t
	}
	return &e, nil
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
