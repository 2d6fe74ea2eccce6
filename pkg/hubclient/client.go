// Package hubclient provides the Agent Hub HTTP client used by the
// orchestrator's phase executor. Calls are retried with bounded
// exponential backoff: network errors and HTTP 5xx retry, HTTP 4xx
// (except 429) fail immediately.
package hubclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sdlc-forge/maestro/pkg/models"
)

const (
	maxRetries      = 2 // 3 attempts total
	initialInterval = 1 * time.Second
	backoffFactor   = 2
	maxElapsedTime  = 10 * time.Second
)

// ErrHubUnavailable indicates the hub could not be reached or kept
// failing after the retry budget was spent.
var ErrHubUnavailable = errors.New("agent hub unavailable")

// Client calls the Agent Hub.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a hub client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 3 * time.Minute},
		logger:     slog.Default().With("component", "hub-client"),
	}
}

// Invoke calls POST /invoke/{agent} on the hub and returns the worker's
// response envelope. The retry budget covers the whole call.
func (c *Client) Invoke(ctx context.Context, agentID string, req *models.InvokeRequest) (*models.HubInvokeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal invoke request: %w", err)
	}

	var resp *models.HubInvokeResponse
	operation := func() error {
		var opErr error
		resp, opErr = c.doInvoke(ctx, agentID, body)
		return opErr
	}

	if err := backoff.Retry(operation, c.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) doInvoke(ctx context.Context, agentID string, body []byte) (*models.HubInvokeResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/invoke/"+agentID, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create invoke request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("Hub call failed, will retry", "agent", agentID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrHubUnavailable, err)
	}
	defer httpResp.Body.Close()

	if !retryable(httpResp.StatusCode) && httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, backoff.Permanent(fmt.Errorf("hub returned HTTP %d: %s",
			httpResp.StatusCode, string(snippet)))
	}
	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		c.logger.Warn("Hub call failed, will retry",
			"agent", agentID, "status", httpResp.StatusCode)
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrHubUnavailable,
			httpResp.StatusCode, string(snippet))
	}

	var resp models.HubInvokeResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode hub response: %w", err))
	}
	return &resp, nil
}

// Health probes the hub's GET /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hub health returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// newBackOff builds the bounded retry policy: 3 attempts, 1s initial
// delay, factor 2, total budget 10s.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.Multiplier = backoffFactor
	b.RandomizationFactor = 0
	b.MaxElapsedTime = maxElapsedTime
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

// retryable reports whether an HTTP status is worth another attempt.
// 5xx and 429 retry; other 4xx are caller errors.
func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}
