package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/service"
	"github.com/jengzang/trajectory-prep/pkg/response"
)

// RunHandler handles HTTP requests for preparation runs
type RunHandler struct {
	service *service.RunService
}

// NewRunHandler creates a new run handler
func NewRunHandler(service *service.RunService) *RunHandler {
	return &RunHandler{service: service}
}

// CreateRunRequest represents the request body for starting a run
type CreateRunRequest struct {
	Force bool `json:"force"`
}

// CreateRun starts a preparation run in the background
// POST /api/v1/runs
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}

	// set by the auth middleware
	createdBy := c.GetString("user")

	run, err := h.service.CreateRun(req.Force, createdBy)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Accepted(c, run)
}

// GetRun retrieves a run by ID
// GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, run)
}

// ListRuns retrieves runs, newest first
// GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	var filter models.RunFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	runs, err := h.service.ListRuns(filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}
