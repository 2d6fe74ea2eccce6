// Package agent provides the HTTP client for expert worker processes.
// Workers are opaque: POST /invoke with full context, GET /health.
package agent

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

	"github.com/sdlc-forge/maestro/pkg/models"
)

var (
	// ErrWorkerTimeout indicates the worker did not answer within its budget.
	ErrWorkerTimeout = errors.New("worker timed out")

	// ErrWorkerFailed indicates the worker answered with an error or an
	// unusable payload.
	ErrWorkerFailed = errors.New("worker failed")
)

// Client calls expert workers over HTTP. One client serves all agents; the
// per-agent timeout is applied per call.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a worker client. The transport carries no global timeout;
// each call gets a context deadline from the agent's configuration.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
		logger:     slog.Default().With("component", "agent-client"),
	}
}

// Invoke sends a fully-contexted request to the worker at baseURL and
// returns its validated response. timeout bounds the whole call.
func (c *Client) Invoke(ctx context.Context, baseURL string, timeout time.Duration, req *models.InvokeRequest) (*models.InvokeResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal invoke request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/invoke", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create invoke request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s: %v", ErrWorkerTimeout, timeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrWorkerFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrWorkerFailed, resp.StatusCode, string(snippet))
	}

	var invokeResp models.InvokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&invokeResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrWorkerFailed, err)
	}

	if !invokeResp.Success {
		return nil, fmt.Errorf("%w: %s", ErrWorkerFailed, invokeResp.Error)
	}
	if invokeResp.Confidence < 0 || invokeResp.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence %d out of range", ErrWorkerFailed, invokeResp.Confidence)
	}

	c.logger.Debug("Worker invoked",
		"url", baseURL,
		"workflow_type", req.WorkflowType,
		"confidence", invokeResp.Confidence,
		"duration_ms", time.Since(start).Milliseconds())

	return &invokeResp, nil
}

// Health probes the worker's GET /health endpoint.
func (c *Client) Health(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("worker health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("worker health returned HTTP %d", resp.StatusCode)
	}
	return nil
}
