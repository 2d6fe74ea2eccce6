package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// listEscalationsHandler handles GET /escalations.
// Returns pending escalations oldest first, for review tooling.
func (s *Server) listEscalationsHandler(c *gin.Context) {
	escalations, err := s.escalations.ListPending(c.Request.Context())
	if err != nil {
		s.respondError(c, err, models.ErrCodeUnknownEscalation)
		return
	}
	c.JSON(http.StatusOK, models.EscalationListResponse{
		Escalations: escalations,
		TotalCount:  len(escalations),
	})
}

// getEscalationHandler handles GET /escalations/{id}.
func (s *Server) getEscalationHandler(c *gin.Context) {
	esc, err := s.escalations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, models.ErrCodeUnknownEscalation)
		return
	}
	c.JSON(http.StatusOK, esc)
}

// resolveEscalationHandler handles POST /escalations/{id}.
// Applies a human decision exactly once; concurrent resolutions race on the
// row lock and the loser gets 409.
func (s *Server) resolveEscalationHandler(c *gin.Context) {
	// 1. Bind HTTP request
	var req models.ResolveEscalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// 2. Apply the resolution
	esc, reroute, err := s.escalations.Resolve(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.respondError(c, err, models.ErrCodeUnknownEscalation)
		return
	}

	// 3. Announce the resolution (best-effort)
	s.slackSvc.NotifyEscalationResolved(c.Request.Context(), esc)

	// 4. Return response
	c.JSON(http.StatusOK, models.ResolveEscalationResponse{
		EscalationID:    esc.ID,
		Status:          esc.Status,
		HumanAction:     *esc.HumanAction,
		NeedsReroute:    reroute != "",
		RerouteQuestion: reroute,
	})
}
