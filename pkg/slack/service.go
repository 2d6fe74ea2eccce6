package slack

import (
	"context"
	"log/slog"
	"time"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token   string
	Channel string
}

// Service handles Slack notification delivery for escalations.
// Nil-safe: all methods are no-ops when the service is nil.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client: NewClient(cfg.Token, cfg.Channel),
		logger: slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client) *Service {
	return &Service{
		client: client,
		logger: slog.Default().With("component", "slack-service"),
	}
}

// NotifyEscalationCreated announces a new pending escalation.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyEscalationCreated(ctx context.Context, esc *models.Escalation) {
	if s == nil {
		return
	}

	blocks := BuildEscalationCreatedMessage(esc)
	if _, err := s.client.PostMessage(ctx, blocks, "", 5*time.Second); err != nil {
		s.logger.Error("Failed to send escalation notification",
			"escalation_id", esc.ID,
			"error", err)
	}
}

// NotifyEscalationResolved announces a resolution.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyEscalationResolved(ctx context.Context, esc *models.Escalation) {
	if s == nil {
		return
	}

	blocks := BuildEscalationResolvedMessage(esc)
	if _, err := s.client.PostMessage(ctx, blocks, "", 5*time.Second); err != nil {
		s.logger.Error("Failed to send resolution notification",
			"escalation_id", esc.ID,
			"error", err)
	}
}
