package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-forge/maestro/pkg/agent"
	"github.com/sdlc-forge/maestro/pkg/audit"
	"github.com/sdlc-forge/maestro/pkg/config"
	"github.com/sdlc-forge/maestro/pkg/models"
	"github.com/sdlc-forge/maestro/test/util"
)

type askFixture struct {
	svc      *AskService
	sessions *SessionService
	auditLog *audit.Writer

	// requests captures every worker invocation in arrival order.
	requests []*models.InvokeRequest
	// respond produces the worker reply for the next invocation.
	respond func() *models.InvokeResponse
}

func setupAsk(t *testing.T) *askFixture {
	t.Helper()
	f := &askFixture{
		respond: func() *models.InvokeResponse {
			return &models.InvokeResponse{
				Success:    true,
				Result:     map[string]any{"answer": "Use prepared statements."},
				Confidence: 90,
			}
		},
	}

	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.InvokeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.requests = append(f.requests, &req)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(f.respond()))
	}))
	t.Cleanup(worker.Close)

	cfg := &config.Config{
		AgentRegistry: config.NewAgentRegistry(map[string]*config.AgentConfig{
			"baron": {
				URL:          worker.URL,
				DefaultModel: "gpt-large",
				Topics:       []string{"architecture", "databases"},
			},
		}),
		TopicOverrides: map[string]*config.TopicOverride{},
		Hub:            &config.HubConfig{DefaultThreshold: 80},
	}

	db := util.SetupTestDatabase(t, Migrations)
	f.sessions = NewSessionService(db, time.Hour)
	escalations := NewEscalationService(db, f.sessions, 7*24*time.Hour)

	auditLog, err := audit.NewWriter(t.TempDir())
	require.NoError(t, err)
	f.auditLog = auditLog

	f.svc = NewAskService(cfg, NewRouter(cfg), f.sessions, escalations,
		agent.NewClient(), auditLog, nil, nil)
	return f
}

func TestAskResolvedAtThreshold(t *testing.T) {
	f := setupAsk(t)
	f.respond = func() *models.InvokeResponse {
		return &models.InvokeResponse{
			Success:    true,
			Result:     map[string]any{"answer": "Use prepared statements."},
			Confidence: 80,
		}
	}

	resp, err := f.svc.Ask(context.Background(), "databases", models.AskExpertRequest{
		Question:  "How should we guard against SQL injection?",
		FeatureID: "001-auth",
	})
	require.NoError(t, err)

	// Confidence equal to the threshold resolves; the gate is strictly-below.
	assert.Equal(t, models.AskStatusResolved, resp.Status)
	assert.Equal(t, "Use prepared statements.", resp.Answer)
	assert.Equal(t, 80, resp.Confidence)
	assert.Equal(t, 80, resp.Threshold)
	assert.Nil(t, resp.EscalationID)
	require.NotEmpty(t, resp.SessionID)

	messages, err := f.sessions.Messages(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "How should we guard against SQL injection?", messages[0].Content)
	assert.Equal(t, "Use prepared statements.", messages[1].Content)

	records, err := f.auditLog.ReadFeature("001-auth")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AuditStatusResolved, records[0].Status)
	assert.Nil(t, records[0].EscalationID)
	assert.Equal(t, 80, records[0].Confidence)
}

func TestAskEscalatedBelowThreshold(t *testing.T) {
	f := setupAsk(t)
	f.respond = func() *models.InvokeResponse {
		return &models.InvokeResponse{
			Success:    true,
			Result:     map[string]any{"answer": "Probably sharding, but it depends."},
			Confidence: 79,
			Metadata: map[string]any{
				"uncertainty_reasons": []any{"no load numbers in context"},
			},
		}
	}

	resp, err := f.svc.Ask(context.Background(), "databases", models.AskExpertRequest{
		Question:  "Should we shard the orders table now?",
		FeatureID: "002-scale",
	})
	require.NoError(t, err)

	assert.Equal(t, models.AskStatusPendingHuman, resp.Status)
	assert.Equal(t, "Probably sharding, but it depends.", resp.Answer)
	assert.Equal(t, []string{"no load numbers in context"}, resp.UncertaintyReasons)
	require.NotNil(t, resp.EscalationID)

	// The exchange is already in the session, marked pending.
	messages, err := f.sessions.Messages(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "pending", messages[1].Metadata["escalation"])

	records, err := f.auditLog.ReadFeature("002-scale")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AuditStatusEscalated, records[0].Status)
	require.NotNil(t, records[0].EscalationID)
	assert.Equal(t, *resp.EscalationID, *records[0].EscalationID)
}

func TestAskMultiTurnCarriesHistory(t *testing.T) {
	f := setupAsk(t)
	ctx := context.Background()

	first, err := f.svc.Ask(ctx, "databases", models.AskExpertRequest{
		Question:  "How should we guard against SQL injection?",
		FeatureID: "001-auth",
	})
	require.NoError(t, err)

	second, err := f.svc.Ask(ctx, "databases", models.AskExpertRequest{
		Question:  "Does that hold for batch imports too?",
		FeatureID: "001-auth",
		SessionID: first.SessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	// The second invocation carries the first exchange as history.
	require.Len(t, f.requests, 2)
	history, ok := f.requests[1].Context["history"].([]any)
	require.True(t, ok, "second request missing history")
	require.Len(t, history, 2)
	firstEntry, ok := history[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", firstEntry["role"])
	assert.Equal(t, "How should we guard against SQL injection?", firstEntry["content"])

	// Four messages total after both exchanges.
	messages, err := f.sessions.Messages(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, messages, 4)

	records, err := f.auditLog.ReadFeature("001-auth")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestAskValidation(t *testing.T) {
	f := setupAsk(t)
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, "databases", models.AskExpertRequest{
		Question:  "too short",
		FeatureID: "001-auth",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "question", verr.Field)

	_, err = f.svc.Ask(ctx, "databases", models.AskExpertRequest{
		Question: "Long enough question without a feature id.",
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "feature_id", verr.Field)

	_, err = f.svc.Ask(ctx, "haiku-reviews", models.AskExpertRequest{
		Question:  "Long enough question for an unknown topic.",
		FeatureID: "001-auth",
	})
	assert.ErrorIs(t, err, ErrUnknownTopic)

	// No worker call was made for any of these.
	assert.Empty(t, f.requests)
}

func TestAskRejectsForeignSession(t *testing.T) {
	f := setupAsk(t)
	ctx := context.Background()

	other, err := f.sessions.CreateSession(ctx, models.CreateSessionRequest{AgentID: "sentinel"})
	require.NoError(t, err)

	_, err = f.svc.Ask(ctx, "databases", models.AskExpertRequest{
		Question:  "How should we guard against SQL injection?",
		FeatureID: "001-auth",
		SessionID: other.ID,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "session_id", verr.Field)
}

func TestInvokeBypassesConfidenceGate(t *testing.T) {
	f := setupAsk(t)
	f.respond = func() *models.InvokeResponse {
		return &models.InvokeResponse{
			Success:    true,
			Result:     map[string]any{"answer": "Draft plan attached."},
			Confidence: 30,
		}
	}

	resp, err := f.svc.Invoke(context.Background(), "baron", models.InvokeRequest{
		WorkflowType: "plan",
		Context: map[string]any{
			"feature_id": "003-billing",
			"question":   "Plan the billing feature rollout.",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, resp.Confidence)
	require.NotEmpty(t, resp.SessionID)

	// Low confidence still records as resolved: no gate on direct invokes.
	records, err := f.auditLog.ReadFeature("003-billing")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AuditStatusResolved, records[0].Status)
	assert.Equal(t, "plan", records[0].Topic)

	messages, err := f.sessions.Messages(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Plan the billing feature rollout.", messages[0].Content)
}

func TestInvokeRequiresWorkflowType(t *testing.T) {
	f := setupAsk(t)

	_, err := f.svc.Invoke(context.Background(), "baron", models.InvokeRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "workflow_type", verr.Field)

	_, err = f.svc.Invoke(context.Background(), "ghost", models.InvokeRequest{WorkflowType: "plan"})
	assert.ErrorIs(t, err, ErrUnknownAgent)
}
