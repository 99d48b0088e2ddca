package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/trajectory-prep/internal/config"
	"github.com/jengzang/trajectory-prep/internal/handler"
	"github.com/jengzang/trajectory-prep/internal/middleware"
	"github.com/jengzang/trajectory-prep/internal/service"
)

// Services are the dependencies the routes are served from
type Services struct {
	Datasets *service.DatasetService
	Runs     *service.RunService
	Limiter  *middleware.RateLimiter // Optional
}

// SetupRouter wires middleware and routes
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	if svc.Limiter != nil {
		r.Use(svc.Limiter.Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Trajectory preparation API is running",
		})
	})

	datasetHandler := handler.NewDatasetHandler(svc.Datasets)
	runHandler := handler.NewRunHandler(svc.Runs)
	auth := middleware.Auth(cfg.JWTSecret)

	api := r.Group("/api/v1")
	{
		datasets := api.Group("/datasets")
		{
			datasets.GET("", datasetHandler.ListDatasets)
			datasets.GET("/:key", datasetHandler.GetDataset)
			datasets.GET("/:key/rows", datasetHandler.GetRows)
			datasets.GET("/:key/trajectories", datasetHandler.GetTrajectories)
			datasets.GET("/:key/problems", datasetHandler.GetProblems)
			datasets.GET("/:key/partitions/:name", datasetHandler.GetPartitionBatch)
			datasets.DELETE("/:key", auth, datasetHandler.DeleteDataset)
		}

		runs := api.Group("/runs")
		{
			runs.GET("", runHandler.ListRuns)
			runs.GET("/:id", runHandler.GetRun)
			runs.POST("", auth, runHandler.CreateRun)
		}
	}

	return r
}
