package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// invokeHandler handles POST /invoke/{agent}.
// Calls a named worker directly, bypassing topic routing and the confidence
// gate; the exchange is still recorded and audited.
func (s *Server) invokeHandler(c *gin.Context) {
	// 1. Bind HTTP request
	var req models.InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// 2. Invoke the worker through the hub pipeline
	resp, err := s.ask.Invoke(c.Request.Context(), c.Param("agent"), req)
	if err != nil {
		s.respondError(c, err, models.ErrCodeUnknownSession)
		return
	}

	// 3. Return response
	c.JSON(http.StatusOK, resp)
}
