// Package api exposes the Agent Hub HTTP surface: direct worker invocation,
// topic-routed expert consultation, session inspection, and escalation
// review.
package api

import (
	"database/sql"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/sdlc-forge/maestro/pkg/config"
	"github.com/sdlc-forge/maestro/pkg/hub"
	"github.com/sdlc-forge/maestro/pkg/slack"
)

// Server holds the hub's HTTP handlers and their dependencies.
type Server struct {
	cfg         *config.Config
	db          *sql.DB
	ask         *hub.AskService
	sessions    *hub.SessionService
	escalations *hub.EscalationService
	router      *hub.Router
	slackSvc    *slack.Service
	logger      *slog.Logger
}

// NewServer creates the hub API server. slackSvc may be nil.
func NewServer(
	cfg *config.Config,
	db *sql.DB,
	ask *hub.AskService,
	sessions *hub.SessionService,
	escalations *hub.EscalationService,
	router *hub.Router,
	slackSvc *slack.Service,
) *Server {
	return &Server{
		cfg:         cfg,
		db:          db,
		ask:         ask,
		sessions:    sessions,
		escalations: escalations,
		router:      router,
		slackSvc:    slackSvc,
		logger:      slog.Default().With("component", "hub-api"),
	}
}

// Handler builds the gin engine with all hub routes registered.
func (s *Server) Handler() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(s.logger))

	engine.GET("/health", s.healthHandler)

	engine.POST("/invoke/:agent", s.invokeHandler)
	engine.POST("/ask/:topic", s.askHandler)

	engine.POST("/sessions", s.createSessionHandler)
	engine.GET("/sessions/:id", s.getSessionHandler)
	engine.DELETE("/sessions/:id", s.closeSessionHandler)

	engine.GET("/escalations", s.listEscalationsHandler)
	engine.GET("/escalations/:id", s.getEscalationHandler)
	engine.POST("/escalations/:id", s.resolveEscalationHandler)

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
