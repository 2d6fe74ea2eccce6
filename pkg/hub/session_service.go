package hub

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// SessionService manages expert session lifecycle and message history.
// Sessions are single-writer: every mutation runs in a transaction holding
// the session row lock, so concurrent writes serialize in arrival order and
// readers observe the pre-write snapshot.
type SessionService struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSessionService creates a new SessionService.
func NewSessionService(db *sql.DB, ttl time.Duration) *SessionService {
	return &SessionService{db: db, ttl: ttl}
}

// CreateSession opens a new active session for an agent.
func (s *SessionService) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error) {
	if req.AgentID == "" {
		return nil, NewValidationError("agent_id", "required")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	session := &models.Session{
		ID:        uuid.New().String(),
		AgentID:   req.AgentID,
		FeatureID: req.FeatureID,
		Status:    models.SessionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: &expiresAt,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, agent_id, feature_id, status, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.AgentID, nullString(session.FeatureID), session.Status,
		session.CreatedAt, session.UpdatedAt, nullTime(session.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// GetSession retrieves a session, applying lazy expiry: an active session
// past its expires_at flips to expired on access.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if expired, err := s.expireIfDue(ctx, session); err != nil {
		return nil, err
	} else if expired {
		session.Status = models.SessionStatusExpired
	}

	return session, nil
}

// GetSessionDetail retrieves a session with its full ordered message history.
func (s *SessionService) GetSessionDetail(ctx context.Context, sessionID string) (*models.SessionDetail, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := s.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &models.SessionDetail{Session: session, Messages: messages}, nil
}

// Messages returns the session's messages in append order.
func (s *SessionService) Messages(ctx context.Context, sessionID string) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = $1 ORDER BY created_at, message_id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}

// CloseSession closes a session; its history is preserved. Closing an
// already closed or expired session is a no-op.
func (s *SessionService) CloseSession(ctx context.Context, sessionID string) (*models.Session, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = $1, updated_at = now()
		WHERE session_id = $2 AND status = $3`,
		models.SessionStatusClosed, sessionID, models.SessionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}
	return s.GetSession(ctx, sessionID)
}

// RequireActive loads a session for writing: 404 if missing, session_expired
// if the TTL has passed (flipping it lazily), session_not_active if closed.
func (s *SessionService) RequireActive(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case models.SessionStatusActive:
		return session, nil
	case models.SessionStatusExpired:
		return nil, ErrSessionExpired
	default:
		return nil, ErrSessionNotActive
	}
}

// AppendExchange appends a user question and the assistant answer in one
// transaction under the session row lock. Message timestamps within the
// exchange are strictly increasing.
func (s *SessionService) AppendExchange(ctx context.Context, sessionID string, userMsg, assistantMsg *models.Message) error {
	return s.withSessionLock(ctx, sessionID, func(tx *sql.Tx, session *models.Session) error {
		now := time.Now().UTC()
		if err := insertMessage(ctx, tx, sessionID, userMsg, now); err != nil {
			return err
		}
		return insertMessage(ctx, tx, sessionID, assistantMsg, now.Add(time.Microsecond))
	})
}

// AppendMessage appends a single message (human escalation responses).
func (s *SessionService) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	return s.withSessionLock(ctx, sessionID, func(tx *sql.Tx, session *models.Session) error {
		return insertMessage(ctx, tx, sessionID, msg, time.Now().UTC())
	})
}

// withSessionLock runs fn inside a transaction holding the session row
// lock, enforcing the active-status and expiry checks first.
func (s *SessionService) withSessionLock(ctx context.Context, sessionID string, fn func(tx *sql.Tx, session *models.Session) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	session, err := scanSession(tx.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1 FOR UPDATE`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock session: %w", err)
	}

	if session.Status != models.SessionStatusActive {
		if session.Status == models.SessionStatusExpired {
			return ErrSessionExpired
		}
		return ErrSessionNotActive
	}
	if session.ExpiresAt != nil && !time.Now().UTC().Before(*session.ExpiresAt) {
		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = $1, updated_at = now() WHERE session_id = $2`,
			models.SessionStatusExpired, sessionID); err != nil {
			return fmt.Errorf("failed to expire session: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit expiry: %w", err)
		}
		return ErrSessionExpired
	}

	if err := fn(tx, session); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET updated_at = now() WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// expireIfDue lazily flips an active session whose TTL has passed.
func (s *SessionService) expireIfDue(ctx context.Context, session *models.Session) (bool, error) {
	if session.Status != models.SessionStatusActive ||
		session.ExpiresAt == nil ||
		time.Now().UTC().Before(*session.ExpiresAt) {
		return false, nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = $1, updated_at = now()
		WHERE session_id = $2 AND status = $3`,
		models.SessionStatusExpired, session.ID, models.SessionStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to expire session: %w", err)
	}
	return true, nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, sessionID string, msg *models.Message, at time.Time) error {
	if msg.Content == "" {
		return NewValidationError("content", "required")
	}
	if !msg.Role.IsValid() {
		return NewValidationError("role", "must be user, assistant, or human")
	}

	metadata, err := marshalJSON(msg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal message metadata: %w", err)
	}

	msg.ID = uuid.New().String()
	msg.SessionID = sessionID
	msg.CreatedAt = at

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (message_id, session_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, metadata, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}
