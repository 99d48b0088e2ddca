package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/partition"
	"github.com/jengzang/trajectory-prep/internal/repository"
	"github.com/jengzang/trajectory-prep/internal/service"
	"github.com/jengzang/trajectory-prep/pkg/response"
)

// DatasetHandler handles HTTP requests for cached datasets
type DatasetHandler struct {
	datasetService *service.DatasetService
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(datasetService *service.DatasetService) *DatasetHandler {
	return &DatasetHandler{
		datasetService: datasetService,
	}
}

// ListDatasets handles GET /api/v1/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	datasets, err := h.datasetService.List()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, datasets)
}

// GetDataset handles GET /api/v1/datasets/:key
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	summary, err := h.datasetService.Get(c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, summary)
}

// GetRows handles GET /api/v1/datasets/:key/rows
func (h *DatasetHandler) GetRows(c *gin.Context) {
	var filter models.RowFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	rows, err := h.datasetService.Rows(c.Param("key"), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, rows)
}

// GetTrajectories handles GET /api/v1/datasets/:key/trajectories
func (h *DatasetHandler) GetTrajectories(c *gin.Context) {
	var filter models.TrajectoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	trajectories, err := h.datasetService.Trajectories(c.Param("key"), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, trajectories)
}

// GetProblems handles GET /api/v1/datasets/:key/problems
func (h *DatasetHandler) GetProblems(c *gin.Context) {
	problems, err := h.datasetService.Problems(c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, problems)
}

// GetPartitionBatch handles GET /api/v1/datasets/:key/partitions/:name
func (h *DatasetHandler) GetPartitionBatch(c *gin.Context) {
	batch, err := strconv.Atoi(c.DefaultQuery("batch", "0"))
	if err != nil {
		response.BadRequest(c, "Invalid batch parameter")
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "32"))
	if err != nil {
		response.BadRequest(c, "Invalid size parameter")
		return
	}

	result, err := h.datasetService.Batch(c.Param("key"), c.Param("name"), batch, size)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteDataset handles DELETE /api/v1/datasets/:key
func (h *DatasetHandler) DeleteDataset(c *gin.Context) {
	if err := h.datasetService.Delete(c.Param("key")); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": c.Param("key")})
}

// writeError maps service errors to status codes
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrDatasetNotFound),
		errors.Is(err, repository.ErrRunNotFound),
		errors.Is(err, partition.ErrUnknownPartition):
		response.NotFound(c, err.Error())
	case errors.Is(err, partition.ErrBatchOutOfRange):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrRunInProgress):
		response.Conflict(c, err.Error())
	default:
		response.InternalError(c, err.Error())
	}
}
