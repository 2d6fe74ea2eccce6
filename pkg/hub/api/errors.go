package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdlc-forge/maestro/pkg/agent"
	"github.com/sdlc-forge/maestro/pkg/hub"
	"github.com/sdlc-forge/maestro/pkg/models"
)

// respondError maps service-layer errors to the standard error envelope.
// notFoundCode distinguishes which entity a bare not-found refers to.
func (s *Server) respondError(c *gin.Context, err error, notFoundCode string) {
	var validErr *hub.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.ErrCodeValidation, validErr.Error(), nil))
		return
	}

	switch {
	case errors.Is(err, hub.ErrUnknownAgent):
		c.JSON(http.StatusNotFound, models.NewErrorResponse(
			models.ErrCodeUnknownAgent, err.Error(),
			map[string]any{"known_agents": s.router.KnownAgents()}))
	case errors.Is(err, hub.ErrUnknownTopic):
		c.JSON(http.StatusNotFound, models.NewErrorResponse(
			models.ErrCodeUnknownTopic, err.Error(),
			map[string]any{"known_topics": s.router.KnownTopics()}))
	case errors.Is(err, hub.ErrNotFound):
		c.JSON(http.StatusNotFound, models.NewErrorResponse(
			notFoundCode, "resource not found", nil))
	case errors.Is(err, hub.ErrSessionExpired):
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.ErrCodeSessionExpired, "session has expired", nil))
	case errors.Is(err, hub.ErrSessionNotActive):
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.ErrCodeValidation, "session is not active", nil))
	case errors.Is(err, hub.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, models.NewErrorResponse(
			models.ErrCodeAlreadyResolved, "escalation is no longer pending", nil))
	case errors.Is(err, hub.ErrMissingResponse):
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.ErrCodeMissingResponse, "response is required for the correct action", nil))
	case errors.Is(err, agent.ErrWorkerTimeout):
		c.JSON(http.StatusGatewayTimeout, models.NewErrorResponse(
			models.ErrCodeWorkerTimeout, err.Error(), nil))
	case errors.Is(err, agent.ErrWorkerFailed):
		c.JSON(http.StatusBadGateway, models.NewErrorResponse(
			models.ErrCodeWorkerError, err.Error(), nil))
	case errors.Is(err, hub.ErrAuditWrite):
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(
			models.ErrCodeAuditWriteFailure, "failed to persist audit record", nil))
	default:
		slog.Error("Unexpected service error", "error", err)
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(
			models.ErrCodeInternal, "internal server error", nil))
	}
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.NewErrorResponse(
		models.ErrCodeValidation, "invalid request body: "+err.Error(), nil))
}
