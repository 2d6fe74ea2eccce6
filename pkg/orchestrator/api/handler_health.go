package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sdlc-forge/maestro/pkg/database"
	"github.com/sdlc-forge/maestro/pkg/version"
)

// healthHandler reports service status, uptime, version, and database
// health.
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	uptime := int64(time.Since(s.startedAt).Seconds())

	dbHealth, err := database.Health(ctx, s.db)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":           "unhealthy",
			"service":          "orchestrator",
			"uptime_seconds":   uptime,
			"version":          version.Full(),
			"database":         dbHealth,
			"phases_in_flight": s.workflows.InFlight(),
			"error":            err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"service":          "orchestrator",
		"uptime_seconds":   uptime,
		"version":          version.Full(),
		"database":         dbHealth,
		"phases_in_flight": s.workflows.InFlight(),
	})
}
