package hubclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-forge/maestro/pkg/models"
)

func hubResponse() models.HubInvokeResponse {
	return models.HubInvokeResponse{
		InvokeResponse: &models.InvokeResponse{
			Success:    true,
			Result:     map[string]any{"answer": "done"},
			Confidence: 90,
		},
		SessionID: "session-1",
	}
}

func TestClientInvoke(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/invoke/baron", r.URL.Path)
			json.NewEncoder(w).Encode(hubResponse())
		}))
		defer server.Close()

		resp, err := NewClient(server.URL).Invoke(context.Background(), "baron",
			&models.InvokeRequest{WorkflowType: "specify"})
		require.NoError(t, err)
		assert.Equal(t, "session-1", resp.SessionID)
		assert.Equal(t, 90, resp.Confidence)
	})

	t.Run("retries 5xx then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(w, "flaky", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(hubResponse())
		}))
		defer server.Close()

		resp, err := NewClient(server.URL).Invoke(context.Background(), "baron",
			&models.InvokeRequest{WorkflowType: "specify"})
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, "session-1", resp.SessionID)
	})

	t.Run("4xx is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "unknown agent", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Invoke(context.Background(), "ghost",
			&models.InvokeRequest{WorkflowType: "specify"})
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("retry budget exhausted", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Invoke(context.Background(), "baron",
			&models.InvokeRequest{WorkflowType: "specify"})
		require.ErrorIs(t, err, ErrHubUnavailable)
		// 3 attempts: initial plus two retries.
		assert.Equal(t, int32(3), calls.Load())
	})
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(http.StatusInternalServerError))
	assert.True(t, retryable(http.StatusBadGateway))
	assert.True(t, retryable(http.StatusTooManyRequests))
	assert.False(t, retryable(http.StatusNotFound))
	assert.False(t, retryable(http.StatusBadRequest))
	assert.False(t, retryable(http.StatusOK))
}
