package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// askHandler handles POST /ask/{topic}.
// Routes the question to the topic's agent, applies the confidence gate,
// and returns either the resolved answer or the pending escalation.
func (s *Server) askHandler(c *gin.Context) {
	// 1. Bind HTTP request
	var req models.AskExpertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// 2. Run the consultation pipeline
	resp, err := s.ask.Ask(c.Request.Context(), c.Param("topic"), req)
	if err != nil {
		s.respondError(c, err, models.ErrCodeUnknownSession)
		return
	}

	// 3. Return response
	c.JSON(http.StatusOK, resp)
}
