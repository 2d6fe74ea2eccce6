// Package forge posts escalation notices to the configured issue tracker.
// The integration is narrow and outbound-only: create an issue, read back
// its id for threading human responses.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client is a thin HTTP client for the forge's issue API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	repository string
	token      string
	logger     *slog.Logger
}

// NewClient creates a forge API client. token may be empty for trackers
// that accept anonymous posting.
func NewClient(baseURL, repository, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		repository: repository,
		token:      token,
		logger:     slog.Default().With("component", "forge-client"),
	}
}

type createIssueRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type createIssueResponse struct {
	ID     int64 `json:"id"`
	Number int64 `json:"number"`
}

// CreateIssue posts a new issue to the configured repository and returns its
// id for later reference.
func (c *Client) CreateIssue(ctx context.Context, title, body string) (string, error) {
	payload, err := json.Marshal(createIssueRequest{Title: title, Body: body})
	if err != nil {
		return "", fmt.Errorf("marshal issue: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/issues", c.baseURL, c.repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post issue to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("forge returned HTTP %d: %s", resp.StatusCode, string(snippet))
	}

	var created createIssueResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode issue response: %w", err)
	}

	id := created.ID
	if id == 0 {
		id = created.Number
	}
	return strconv.FormatInt(id, 10), nil
}
