// Package api exposes the Orchestrator HTTP surface: workflow creation,
// inspection, and trigger-driven advancement.
package api

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sdlc-forge/maestro/pkg/orchestrator"
)

// Server holds the orchestrator's HTTP handlers and their dependencies.
type Server struct {
	db        *sql.DB
	workflows *orchestrator.Service
	startedAt time.Time
	logger    *slog.Logger
}

// NewServer creates the orchestrator API server.
func NewServer(db *sql.DB, workflows *orchestrator.Service) *Server {
	return &Server{
		db:        db,
		workflows: workflows,
		startedAt: time.Now(),
		logger:    slog.Default().With("component", "orchestrator-api"),
	}
}

// Handler builds the gin engine with all orchestrator routes registered.
func (s *Server) Handler() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(s.logger))

	engine.GET("/health", s.healthHandler)

	engine.POST("/workflows", s.createWorkflowHandler)
	engine.GET("/workflows", s.listWorkflowsHandler)
	engine.GET("/workflows/:id", s.getWorkflowHandler)
	engine.POST("/workflows/:id/advance", s.advanceWorkflowHandler)
	engine.POST("/workflows/:id/cancel", s.cancelWorkflowHandler)

	return engine
}

// requestLogger logs each request at debug with method, path and status.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}
