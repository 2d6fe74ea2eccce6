package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-forge/maestro/pkg/models"
	"github.com/sdlc-forge/maestro/test/util"
)

func TestSessionLifecycle(t *testing.T) {
	db := util.SetupTestDatabase(t, Migrations)
	svc := NewSessionService(db, time.Hour)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, models.CreateSessionRequest{
		AgentID:   "baron",
		FeatureID: "001-auth",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, models.SessionStatusActive, session.Status)
	require.NotNil(t, session.ExpiresAt)
	assert.WithinDuration(t, session.CreatedAt.Add(time.Hour), *session.ExpiresAt, time.Second)

	fetched, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, fetched.ID)
	assert.Equal(t, "baron", fetched.AgentID)
	assert.Equal(t, "001-auth", fetched.FeatureID)
	assert.Equal(t, models.SessionStatusActive, fetched.Status)

	closed, err := svc.CloseSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusClosed, closed.Status)

	// Closing again is a no-op.
	closed, err = svc.CloseSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusClosed, closed.Status)
}

func TestSessionCreateRequiresAgent(t *testing.T) {
	db := util.SetupTestDatabase(t, Migrations)
	svc := NewSessionService(db, time.Hour)

	_, err := svc.CreateSession(context.Background(), models.CreateSessionRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "agent_id", verr.Field)
}

func TestSessionGetNotFound(t *testing.T) {
	db := util.SetupTestDatabase(t, Migrations)
	svc := NewSessionService(db, time.Hour)

	_, err := svc.GetSession(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionLazyExpiry(t *testing.T) {
	db := util.SetupTestDatabase(t, Migrations)
	// Negative TTL puts expires_at in the past immediately.
	svc := NewSessionService(db, -time.Minute)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, models.CreateSessionRequest{AgentID: "baron"})
	require.NoError(t, err)

	fetched, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusExpired, fetched.Status)

	// The flip is persisted, not just reported.
	fetched, err = svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusExpired, fetched.Status)

	err = svc.AppendMessage(ctx, session.ID, &models.Message{
		Role:    models.MessageRoleUser,
		Content: "too late for this one",
	})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestSessionAppendExchangeOrdering(t *testing.T) {
	db := util.SetupTestDatabase(t, Migrations)
	svc := NewSessionService(db, time.Hour)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, models.CreateSessionRequest{AgentID: "baron"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err := svc.AppendExchange(ctx, session.ID,
			&models.Message{Role: models.MessageRoleUser, Content: "question"},
			&models.Message{Role: models.MessageRoleAssistant, Content: "answer"})
		require.NoError(t, err)
	}

	detail, err := svc.GetSessionDetail(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 6)
	for i, msg := range detail.Messages {
		if i%2 == 0 {
			assert.Equal(t, models.MessageRoleUser, msg.Role, "message %d", i)
		} else {
			assert.Equal(t, models.MessageRoleAssistant, msg.Role, "message %d", i)
		}
		if i > 0 {
			assert.False(t, msg.CreatedAt.Before(detail.Messages[i-1].CreatedAt),
				"message %d out of order", i)
		}
	}
}

func TestSessionAppendToClosedSession(t *testing.T) {
	db := util.SetupTestDatabase(t, Migrations)
	svc := NewSessionService(db, time.Hour)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, models.CreateSessionRequest{AgentID: "baron"})
	require.NoError(t, err)
	_, err = svc.CloseSession(ctx, session.ID)
	require.NoError(t, err)

	err = svc.AppendExchange(ctx, session.ID,
		&models.Message{Role: models.MessageRoleUser, Content: "question"},
		&models.Message{Role: models.MessageRoleAssistant, Content: "answer"})
	assert.ErrorIs(t, err, ErrSessionNotActive)

	// History survives the close.
	messages, err := svc.Messages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSessionRequireActive(t *testing.T) {
	db := util.SetupTestDatabase(t, Migrations)
	svc := NewSessionService(db, time.Hour)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, models.CreateSessionRequest{AgentID: "baron"})
	require.NoError(t, err)

	active, err := svc.RequireActive(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, active.ID)

	_, err = svc.CloseSession(ctx, session.ID)
	require.NoError(t, err)
	_, err = svc.RequireActive(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotActive)

	_, err = svc.RequireActive(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
