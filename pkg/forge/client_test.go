package forge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-forge/maestro/pkg/models"
)

func testEscalation() *models.Escalation {
	return &models.Escalation{
		ID:                 "esc-1",
		Topic:              "security",
		Question:           "Which password hash should we use?",
		TentativeAnswer:    "bcrypt with cost 12",
		Confidence:         72,
		UncertaintyReasons: []string{"conflicting guidance in context"},
		Status:             models.EscalationStatusPending,
		ExpiresAt:          time.Now().Add(time.Hour),
	}
}

func TestClientCreateIssue(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/acme/platform/issues", r.URL.Path)
			assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

			var req createIssueRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.NotEmpty(t, req.Title)
			assert.NotEmpty(t, req.Body)

			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(createIssueResponse{ID: 42})
		}))
		defer server.Close()

		client := NewClient(server.URL, "acme/platform", "token-1")
		id, err := client.CreateIssue(context.Background(), "title", "body")
		require.NoError(t, err)
		assert.Equal(t, "42", id)
	})

	t.Run("http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}))
		defer server.Close()

		client := NewClient(server.URL, "acme/platform", "")
		_, err := client.CreateIssue(context.Background(), "title", "body")
		assert.Error(t, err)
	})
}

func TestBuildEscalationBody(t *testing.T) {
	body := BuildEscalationBody(testEscalation())

	assert.Contains(t, body, "Which password hash should we use?")
	assert.Contains(t, body, "bcrypt with cost 12")
	assert.Contains(t, body, "conflicting guidance in context")
	assert.Contains(t, body, "/confirm")
	assert.Contains(t, body, "/correct <answer>")
	assert.Contains(t, body, "/context <info>")
	assert.Contains(t, body, "esc-1")
}

func TestServicePostEscalationNotice(t *testing.T) {
	t.Run("returns comment id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(createIssueResponse{Number: 7})
		}))
		defer server.Close()

		svc := NewServiceWithClient(NewClient(server.URL, "acme/platform", ""))
		assert.Equal(t, "7", svc.PostEscalationNotice(context.Background(), testEscalation()))
	})

	t.Run("fail-open on tracker outage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		}))
		defer server.Close()

		svc := NewServiceWithClient(NewClient(server.URL, "acme/platform", ""))
		assert.Equal(t, "", svc.PostEscalationNotice(context.Background(), testEscalation()))
	})

	t.Run("nil service is a no-op", func(t *testing.T) {
		var svc *Service
		assert.Equal(t, "", svc.PostEscalationNotice(context.Background(), testEscalation()))
	})
}
