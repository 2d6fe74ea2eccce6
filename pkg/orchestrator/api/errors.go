package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdlc-forge/maestro/pkg/models"
	"github.com/sdlc-forge/maestro/pkg/orchestrator"
)

// respondError maps service-layer errors to the standard error envelope.
func respondError(c *gin.Context, err error) {
	var validErr *orchestrator.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.ErrCodeValidation, validErr.Error(), nil))
		return
	}

	switch {
	case errors.Is(err, orchestrator.ErrNotFound):
		c.JSON(http.StatusNotFound, models.NewErrorResponse(
			models.ErrCodeUnknownWorkflow, "workflow not found", nil))
	case errors.Is(err, orchestrator.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.ErrCodeInvalidTransition, err.Error(), nil))
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
