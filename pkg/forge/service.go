package forge

import (
	"context"
	"log/slog"

	"github.com/sdlc-forge/maestro/pkg/config"
	"github.com/sdlc-forge/maestro/pkg/models"
)

// Service handles escalation notice delivery to the issue tracker.
// Nil-safe: all methods are no-ops when the service is nil.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService creates a forge notification service.
// Returns nil when the integration is not configured.
func NewService(cfg *config.ForgeConfig, token string) *Service {
	if cfg == nil || cfg.BaseURL == "" || cfg.Repository == "" {
		return nil
	}
	return &Service{
		client: NewClient(cfg.BaseURL, cfg.Repository, token),
		logger: slog.Default().With("component", "forge-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client) *Service {
	return &Service{
		client: client,
		logger: slog.Default().With("component", "forge-service"),
	}
}

// PostEscalationNotice posts the escalation to the tracker and returns the
// external comment id, or empty when posting was skipped or failed.
// Fail-open: posting failure never fails escalation creation; the notice is
// logged for a best-effort retry sweep instead.
func (s *Service) PostEscalationNotice(ctx context.Context, esc *models.Escalation) string {
	if s == nil {
		return ""
	}

	commentID, err := s.client.CreateIssue(ctx, BuildEscalationTitle(esc), BuildEscalationBody(esc))
	if err != nil {
		s.logger.Warn("Failed to post escalation notice, queued for retry",
			"escalation_id", esc.ID,
			"topic", esc.Topic,
			"error", err)
		return ""
	}

	s.logger.Info("Posted escalation notice",
		"escalation_id", esc.ID,
		"external_comment_id", commentID)
	return commentID
}
