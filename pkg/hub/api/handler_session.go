package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// createSessionHandler handles POST /sessions.
// Opens a session explicitly; most sessions are opened implicitly by ask
// and invoke calls without a session_id.
func (s *Server) createSessionHandler(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if _, err := s.router.Agent(req.AgentID); err != nil {
		s.respondError(c, err, models.ErrCodeUnknownAgent)
		return
	}

	session, err := s.sessions.CreateSession(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err, models.ErrCodeUnknownSession)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// getSessionHandler handles GET /sessions/{id}.
// Returns the session and its full ordered message history. A session past
// its TTL is lazily flipped to expired but still readable.
func (s *Server) getSessionHandler(c *gin.Context) {
	detail, err := s.sessions.GetSessionDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, models.ErrCodeUnknownSession)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// closeSessionHandler handles DELETE /sessions/{id}.
// Closes the session; its history is preserved.
func (s *Server) closeSessionHandler(c *gin.Context) {
	session, err := s.sessions.CloseSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, models.ErrCodeUnknownSession)
		return
	}
	c.JSON(http.StatusOK, session)
}
