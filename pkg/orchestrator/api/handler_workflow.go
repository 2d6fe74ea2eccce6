package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// createWorkflowHandler handles POST /workflows.
// Persists the workflow, records the start transition, and returns 201
// while phase 1 runs asynchronously.
func (s *Server) createWorkflowHandler(c *gin.Context) {
	// 1. Bind HTTP request
	var req models.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// 2. Create and start the workflow
	resp, err := s.workflows.CreateWorkflow(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. Return response
	c.JSON(http.StatusCreated, resp)
}

// getWorkflowHandler handles GET /workflows/{id}.
func (s *Server) getWorkflowHandler(c *gin.Context) {
	resp, err := s.workflows.GetWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// advanceWorkflowHandler handles POST /workflows/{id}/advance.
// Applies a trigger; illegal transitions return 400 with the workflow
// untouched.
func (s *Server) advanceWorkflowHandler(c *gin.Context) {
	var req models.AdvanceWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := s.workflows.Advance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// cancelWorkflowHandler handles POST /workflows/{id}/cancel.
// Fails a non-terminal workflow on operator request.
func (s *Server) cancelWorkflowHandler(c *gin.Context) {
	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	// Body is optional for cancel.
	_ = c.ShouldBindJSON(&req)

	resp, err := s.workflows.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listWorkflowsHandler handles GET /workflows with status, feature_id,
// limit, and offset query filters.
func (s *Server) listWorkflowsHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	status := c.Query("status")
	if status != "" && !models.WorkflowStatus(status).IsValid() {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.ErrCodeValidation, "unknown status filter: "+status, nil))
		return
	}

	resp, err := s.workflows.List(c.Request.Context(), models.WorkflowFilters{
		Status:    status,
		FeatureID: c.Query("feature_id"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
