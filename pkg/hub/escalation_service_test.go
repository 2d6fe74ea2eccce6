package hub

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-forge/maestro/pkg/models"
	"github.com/sdlc-forge/maestro/test/util"
)

type escalationFixture struct {
	db          *sql.DB
	sessions    *SessionService
	escalations *EscalationService
	session     *models.Session
}

func setupEscalation(t *testing.T, escalationTTL time.Duration) *escalationFixture {
	t.Helper()
	db := util.SetupTestDatabase(t, Migrations)
	sessions := NewSessionService(db, time.Hour)
	escalations := NewEscalationService(db, sessions, escalationTTL)

	session, err := sessions.CreateSession(context.Background(), models.CreateSessionRequest{
		AgentID:   "sentinel",
		FeatureID: "001-auth",
	})
	require.NoError(t, err)

	return &escalationFixture{db: db, sessions: sessions, escalations: escalations, session: session}
}

func (f *escalationFixture) createPending(t *testing.T) *models.Escalation {
	t.Helper()
	esc, err := f.escalations.CreateForExchange(context.Background(), CreateEscalationParams{
		SessionID:          f.session.ID,
		QuestionID:         "q-1",
		Topic:              "security",
		Question:           "Which password hashing algorithm should we use?",
		TentativeAnswer:    "bcrypt with cost 12",
		Confidence:         60,
		UncertaintyReasons: []string{"conflicting guidance in project docs"},
		UserMessage: &models.Message{
			Role:    models.MessageRoleUser,
			Content: "Which password hashing algorithm should we use?",
		},
		AssistantMessage: &models.Message{
			Role:     models.MessageRoleAssistant,
			Content:  "bcrypt with cost 12",
			Metadata: map[string]any{"confidence": 60, "escalation": "pending"},
		},
	})
	require.NoError(t, err)
	return esc
}

func TestEscalationCreateForExchange(t *testing.T) {
	f := setupEscalation(t, 7*24*time.Hour)
	ctx := context.Background()

	esc := f.createPending(t)
	assert.Equal(t, models.EscalationStatusPending, esc.Status)
	require.NotNil(t, esc.SessionID)
	assert.Equal(t, f.session.ID, *esc.SessionID)

	// Messages and escalation committed together.
	messages, err := f.sessions.Messages(ctx, f.session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.MessageRoleUser, messages[0].Role)
	assert.Equal(t, models.MessageRoleAssistant, messages[1].Role)

	fetched, err := f.escalations.Get(ctx, esc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationStatusPending, fetched.Status)
	assert.Equal(t, "bcrypt with cost 12", fetched.TentativeAnswer)
	assert.Equal(t, []string{"conflicting guidance in project docs"}, fetched.UncertaintyReasons)
}

func TestEscalationConcurrentExchangesStayOrdered(t *testing.T) {
	f := setupEscalation(t, 7*24*time.Hour)
	ctx := context.Background()

	// Resolved and escalated exchanges race for the same session. Message
	// timestamps are assigned under the session row lock, so a writer that
	// read its clock before losing the lock must not stamp messages behind
	// an already-committed exchange.
	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			question := fmt.Sprintf("question %d", i)
			answer := fmt.Sprintf("answer %d", i)
			if i%2 == 0 {
				assert.NoError(t, f.sessions.AppendExchange(ctx, f.session.ID,
					&models.Message{Role: models.MessageRoleUser, Content: question},
					&models.Message{Role: models.MessageRoleAssistant, Content: answer}))
				return
			}
			_, err := f.escalations.CreateForExchange(ctx, CreateEscalationParams{
				SessionID:        f.session.ID,
				QuestionID:       fmt.Sprintf("q-%d", i),
				Topic:            "security",
				Question:         question,
				TentativeAnswer:  answer,
				Confidence:       60,
				UserMessage:      &models.Message{Role: models.MessageRoleUser, Content: question},
				AssistantMessage: &models.Message{Role: models.MessageRoleAssistant, Content: answer},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	messages, err := f.sessions.Messages(ctx, f.session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2*writers)

	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt),
			"message %d stamped before its predecessor", i)
	}
	// Each exchange lands as an adjacent user/assistant pair.
	for i := 0; i < len(messages); i += 2 {
		require.Equal(t, models.MessageRoleUser, messages[i].Role, "position %d", i)
		require.Equal(t, models.MessageRoleAssistant, messages[i+1].Role, "position %d", i+1)
		assert.Equal(t,
			strings.TrimPrefix(messages[i].Content, "question "),
			strings.TrimPrefix(messages[i+1].Content, "answer "),
			"exchange pair split at position %d", i)
	}
}

func TestEscalationListPendingOldestFirst(t *testing.T) {
	f := setupEscalation(t, 7*24*time.Hour)
	ctx := context.Background()

	first := f.createPending(t)
	second := f.createPending(t)

	pending, err := f.escalations.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	_, _, err = f.escalations.Resolve(ctx, first.ID, models.ResolveEscalationRequest{
		Action:    models.HumanActionConfirm,
		Responder: "@jane",
	})
	require.NoError(t, err)

	pending, err = f.escalations.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}

func TestEscalationResolveConfirm(t *testing.T) {
	f := setupEscalation(t, 7*24*time.Hour)
	ctx := context.Background()
	esc := f.createPending(t)

	resolved, reroute, err := f.escalations.Resolve(ctx, esc.ID, models.ResolveEscalationRequest{
		Action:    models.HumanActionConfirm,
		Responder: "@jane",
	})
	require.NoError(t, err)
	assert.Empty(t, reroute)
	assert.Equal(t, models.EscalationStatusResolved, resolved.Status)
	require.NotNil(t, resolved.HumanAction)
	assert.Equal(t, models.HumanActionConfirm, *resolved.HumanAction)
	require.NotNil(t, resolved.HumanResponder)
	assert.Equal(t, "@jane", *resolved.HumanResponder)
	assert.Nil(t, resolved.HumanResponse)
	assert.NotNil(t, resolved.ResolvedAt)

	// Confirm appends the tentative answer as the human message.
	messages, err := f.sessions.Messages(ctx, f.session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	human := messages[2]
	assert.Equal(t, models.MessageRoleHuman, human.Role)
	assert.Equal(t, "bcrypt with cost 12", human.Content)
	assert.Equal(t, "confirm", human.Metadata["action"])
	assert.Equal(t, esc.ID, human.Metadata["escalation_id"])
}

func TestEscalationResolveCorrect(t *testing.T) {
	f := setupEscalation(t, 7*24*time.Hour)
	ctx := context.Background()
	esc := f.createPending(t)

	_, _, err := f.escalations.Resolve(ctx, esc.ID, models.ResolveEscalationRequest{
		Action:    models.HumanActionCorrect,
		Responder: "@jane",
	})
	assert.ErrorIs(t, err, ErrMissingResponse)

	resolved, reroute, err := f.escalations.Resolve(ctx, esc.ID, models.ResolveEscalationRequest{
		Action:    models.HumanActionCorrect,
		Response:  "Use Argon2id",
		Responder: "@jane",
	})
	require.NoError(t, err)
	assert.Empty(t, reroute)
	require.NotNil(t, resolved.HumanResponse)
	assert.Equal(t, "Use Argon2id", *resolved.HumanResponse)

	// The corrected answer becomes the canonical one.
	messages, err := f.sessions.Messages(ctx, f.session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	human := messages[2]
	assert.Equal(t, models.MessageRoleHuman, human.Role)
	assert.Equal(t, "Use Argon2id", human.Content)
	assert.Equal(t, "correct", human.Metadata["action"])
	assert.EqualValues(t, 100, human.Metadata["confidence"])
}

func TestEscalationResolveAddContext(t *testing.T) {
	f := setupEscalation(t, 7*24*time.Hour)
	esc := f.createPending(t)

	_, reroute, err := f.escalations.Resolve(context.Background(), esc.ID, models.ResolveEscalationRequest{
		Action:    models.HumanActionAddContext,
		Response:  "We target FIPS-validated environments.",
		Responder: "ops-team",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"Which password hashing algorithm should we use?\n\nAdditional context: We target FIPS-validated environments.",
		reroute)
}

func TestEscalationResolveOnlyOnce(t *testing.T) {
	f := setupEscalation(t, 7*24*time.Hour)
	ctx := context.Background()
	esc := f.createPending(t)

	_, _, err := f.escalations.Resolve(ctx, esc.ID, models.ResolveEscalationRequest{
		Action:    models.HumanActionConfirm,
		Responder: "@jane",
	})
	require.NoError(t, err)

	_, _, err = f.escalations.Resolve(ctx, esc.ID, models.ResolveEscalationRequest{
		Action:    models.HumanActionCorrect,
		Response:  "different answer",
		Responder: "@bob",
	})
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	// The first resolution stands.
	fetched, err := f.escalations.Get(ctx, esc.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.HumanAction)
	assert.Equal(t, models.HumanActionConfirm, *fetched.HumanAction)
	require.NotNil(t, fetched.HumanResponder)
	assert.Equal(t, "@jane", *fetched.HumanResponder)
}

func TestEscalationResolveValidation(t *testing.T) {
	f := setupEscalation(t, 7*24*time.Hour)
	esc := f.createPending(t)

	tests := []struct {
		name string
		req  models.ResolveEscalationRequest
	}{
		{"unknown action", models.ResolveEscalationRequest{Action: "escalate-harder", Responder: "@jane"}},
		{"empty responder", models.ResolveEscalationRequest{Action: models.HumanActionConfirm}},
		{"responder with spaces", models.ResolveEscalationRequest{Action: models.HumanActionConfirm, Responder: "jane doe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.escalations.Resolve(context.Background(), esc.ID, tt.req)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestEscalationLazyExpiry(t *testing.T) {
	f := setupEscalation(t, -time.Minute)
	ctx := context.Background()
	esc := f.createPending(t)

	fetched, err := f.escalations.Get(ctx, esc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationStatusExpired, fetched.Status)

	_, _, err = f.escalations.Resolve(ctx, esc.ID, models.ResolveEscalationRequest{
		Action:    models.HumanActionConfirm,
		Responder: "@jane",
	})
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestEscalationResolveOutlivesSession(t *testing.T) {
	f := setupEscalation(t, 7*24*time.Hour)
	ctx := context.Background()
	esc := f.createPending(t)

	// Push the session past its TTL; the escalation window is much longer.
	_, err := f.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = now() - interval '1 hour' WHERE session_id = $1`,
		f.session.ID)
	require.NoError(t, err)

	resolved, _, err := f.escalations.Resolve(ctx, esc.ID, models.ResolveEscalationRequest{
		Action:    models.HumanActionCorrect,
		Response:  "Use Argon2id",
		Responder: "@jane",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EscalationStatusResolved, resolved.Status)

	// The human message landed despite the expired session.
	messages, err := f.sessions.Messages(ctx, f.session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, models.MessageRoleHuman, messages[2].Role)
	assert.Equal(t, "Use Argon2id", messages[2].Content)
}

func TestEscalationSetExternalCommentID(t *testing.T) {
	f := setupEscalation(t, 7*24*time.Hour)
	ctx := context.Background()
	esc := f.createPending(t)

	require.NoError(t, f.escalations.SetExternalCommentID(ctx, esc.ID, "42"))

	fetched, err := f.escalations.Get(ctx, esc.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.ExternalCommentID)
	assert.Equal(t, "42", *fetched.ExternalCommentID)
}
