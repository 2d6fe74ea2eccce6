package hub

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// EscalationService manages human-review escalations. Creation and
// resolution are serialized per escalation via the row lock; a resolved
// escalation accepts no further writes.
type EscalationService struct {
	db       *sql.DB
	sessions *SessionService
	ttl      time.Duration
}

// NewEscalationService creates a new EscalationService.
func NewEscalationService(db *sql.DB, sessions *SessionService, ttl time.Duration) *EscalationService {
	return &EscalationService{db: db, sessions: sessions, ttl: ttl}
}

// CreateEscalationParams carries everything needed to open an escalation
// for a low-confidence exchange.
type CreateEscalationParams struct {
	SessionID          string
	QuestionID         string
	Topic              string
	Question           string
	TentativeAnswer    string
	Confidence         int
	UncertaintyReasons []string
	UserMessage        *models.Message
	AssistantMessage   *models.Message
}

// CreateForExchange atomically records the exchange messages and the pending
// escalation under the session lock: either all of it commits or none.
func (s *EscalationService) CreateForExchange(ctx context.Context, params CreateEscalationParams) (*models.Escalation, error) {
	sessionID := params.SessionID
	esc := &models.Escalation{
		ID:                 uuid.New().String(),
		SessionID:          &sessionID,
		QuestionID:         params.QuestionID,
		Topic:              params.Topic,
		Question:           params.Question,
		TentativeAnswer:    params.TentativeAnswer,
		Confidence:         params.Confidence,
		UncertaintyReasons: params.UncertaintyReasons,
		Status:             models.EscalationStatusPending,
	}

	err := s.sessions.withSessionLock(ctx, params.SessionID, func(tx *sql.Tx, session *models.Session) error {
		// Timestamps are taken while holding the session lock so exchanges
		// from concurrent writers never interleave in created_at order.
		now := time.Now().UTC()
		esc.CreatedAt = now
		esc.UpdatedAt = now
		esc.ExpiresAt = now.Add(s.ttl)

		if err := insertMessage(ctx, tx, params.SessionID, params.UserMessage, now); err != nil {
			return err
		}
		if err := insertMessage(ctx, tx, params.SessionID, params.AssistantMessage, now.Add(time.Microsecond)); err != nil {
			return err
		}

		reasons, err := json.Marshal(esc.UncertaintyReasons)
		if err != nil {
			return fmt.Errorf("failed to marshal uncertainty reasons: %w", err)
		}
		if esc.UncertaintyReasons == nil {
			reasons = []byte("[]")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO escalations (escalation_id, session_id, question_id, topic, question,
				tentative_answer, confidence, uncertainty_reasons, status, created_at, updated_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			esc.ID, esc.SessionID, esc.QuestionID, esc.Topic, esc.Question,
			esc.TentativeAnswer, esc.Confidence, reasons, esc.Status,
			esc.CreatedAt, esc.UpdatedAt, esc.ExpiresAt)
		if err != nil {
			return fmt.Errorf("failed to insert escalation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return esc, nil
}

// Get retrieves an escalation, lazily expiring a pending one past its TTL.
func (s *EscalationService) Get(ctx context.Context, escalationID string) (*models.Escalation, error) {
	esc, err := scanEscalation(s.db.QueryRowContext(ctx,
		`SELECT `+escalationColumns+` FROM escalations WHERE escalation_id = $1`, escalationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}

	if esc.Status == models.EscalationStatusPending && !time.Now().UTC().Before(esc.ExpiresAt) {
		_, err := s.db.ExecContext(ctx, `
			UPDATE escalations SET status = $1, updated_at = now()
			WHERE escalation_id = $2 AND status = $3`,
			models.EscalationStatusExpired, escalationID, models.EscalationStatusPending)
		if err != nil {
			return nil, fmt.Errorf("failed to expire escalation: %w", err)
		}
		esc.Status = models.EscalationStatusExpired
	}

	return esc, nil
}

// ListPending returns all pending escalations, oldest first.
func (s *EscalationService) ListPending(ctx context.Context) ([]*models.Escalation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+escalationColumns+` FROM escalations WHERE status = $1 ORDER BY created_at`,
		models.EscalationStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query escalations: %w", err)
	}
	defer rows.Close()

	escalations := make([]*models.Escalation, 0)
	for rows.Next() {
		esc, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		escalations = append(escalations, esc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read escalations: %w", err)
	}
	return escalations, nil
}

// SetExternalCommentID stores the forge comment id after a successful post.
// Best-effort: the escalation is already durable.
func (s *EscalationService) SetExternalCommentID(ctx context.Context, escalationID, commentID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE escalations SET external_comment_id = $1, updated_at = now()
		WHERE escalation_id = $2`, commentID, escalationID)
	if err != nil {
		return fmt.Errorf("failed to store external comment id: %w", err)
	}
	return nil
}

// Resolve applies a human decision to a pending escalation. An escalation
// leaves pending at most once; any later resolve attempt fails with
// ErrAlreadyResolved. The reroute question is returned for add_context.
func (s *EscalationService) Resolve(ctx context.Context, escalationID string, req models.ResolveEscalationRequest) (*models.Escalation, string, error) {
	if !req.Action.IsValid() {
		return nil, "", NewValidationError("action", "must be confirm, correct, or add_context")
	}
	if !models.ResponderPattern.MatchString(req.Responder) {
		return nil, "", NewValidationError("responder", "must match ^@?[a-z0-9][a-z0-9-]*$")
	}
	if req.Action == models.HumanActionCorrect && req.Response == "" {
		return nil, "", ErrMissingResponse
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	esc, err := scanEscalation(tx.QueryRowContext(ctx,
		`SELECT `+escalationColumns+` FROM escalations WHERE escalation_id = $1 FOR UPDATE`, escalationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to lock escalation: %w", err)
	}

	if esc.Status != models.EscalationStatusPending {
		return nil, "", ErrAlreadyResolved
	}
	if !time.Now().UTC().Before(esc.ExpiresAt) {
		if _, err := tx.ExecContext(ctx, `
			UPDATE escalations SET status = $1, updated_at = now() WHERE escalation_id = $2`,
			models.EscalationStatusExpired, escalationID); err != nil {
			return nil, "", fmt.Errorf("failed to expire escalation: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, "", fmt.Errorf("failed to commit expiry: %w", err)
		}
		return nil, "", ErrAlreadyResolved
	}

	now := time.Now().UTC()
	action := req.Action
	esc.Status = models.EscalationStatusResolved
	esc.HumanAction = &action
	esc.HumanResponder = &req.Responder
	esc.ResolvedAt = &now
	esc.UpdatedAt = now
	if req.Response != "" {
		response := req.Response
		esc.HumanResponse = &response
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE escalations
		SET status = $1, human_action = $2, human_response = $3, human_responder = $4,
			resolved_at = $5, updated_at = $5
		WHERE escalation_id = $6`,
		esc.Status, string(action), nullStringPtr(esc.HumanResponse), req.Responder,
		now, escalationID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve escalation: %w", err)
	}

	// Record the human decision in the linked session. Session TTL does not
	// gate human responses: the escalation window (days) outlives the
	// session window (hours) and the audit trail must stay complete.
	if esc.SessionID != nil {
		msg := humanMessage(esc, req)
		if err := insertMessage(ctx, tx, *esc.SessionID, msg, now.Add(time.Microsecond)); err != nil {
			return nil, "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit resolution: %w", err)
	}

	return esc, rerouteQuestion(esc, req), nil
}

// humanMessage builds the human-role session message for a resolution.
// Content is the human's text when given, else the confirmed tentative
// answer.
func humanMessage(esc *models.Escalation, req models.ResolveEscalationRequest) *models.Message {
	content := req.Response
	if content == "" {
		content = esc.TentativeAnswer
	}
	metadata := map[string]any{
		"responder":     req.Responder,
		"action":        string(req.Action),
		"escalation_id": esc.ID,
	}
	if req.Action == models.HumanActionCorrect {
		// The corrected text is the canonical answer.
		metadata["confidence"] = 100
	}
	return &models.Message{
		Role:     models.MessageRoleHuman,
		Content:  content,
		Metadata: metadata,
	}
}

// rerouteQuestion combines the original question with added context so the
// caller can re-ask in the same session.
func rerouteQuestion(esc *models.Escalation, req models.ResolveEscalationRequest) string {
	if req.Action != models.HumanActionAddContext {
		return ""
	}
	if req.Response == "" {
		return esc.Question
	}
	return esc.Question + "\n\nAdditional context: " + req.Response
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
