package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/quiltline/patternvault-backend/internal/http/handlers"
	httpMW "github.com/quiltline/patternvault-backend/internal/http/middleware"
)

type RouterConfig struct {
	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	UploadHandler  *httpH.UploadHandler
	BatchHandler   *httpH.BatchHandler
	PatternHandler *httpH.PatternHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.AuthHandler != nil {
			api.POST("/login", cfg.AuthHandler.Login)
		}

		// Public catalog
		if cfg.PatternHandler != nil {
			api.GET("/patterns", cfg.PatternHandler.ListPatterns)
			api.GET("/patterns/:id", cfg.PatternHandler.GetPattern)
			api.GET("/patterns/:id/download", cfg.PatternHandler.DownloadPattern)
		}
	}

	admin := api.Group("/admin")
	{
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireAdmin())
		}

		if cfg.UploadHandler != nil {
			admin.POST("/upload", cfg.UploadHandler.Upload)
		}

		if cfg.BatchHandler != nil {
			admin.GET("/batches", cfg.BatchHandler.ListBatches)
			admin.GET("/batches/:id", cfg.BatchHandler.GetBatch)
			admin.POST("/batches/:id/commit", cfg.BatchHandler.CommitBatch)
			admin.POST("/batches/:id/cancel", cfg.BatchHandler.CancelBatch)
			admin.GET("/batches/:id/events", cfg.BatchHandler.BatchEvents)
		}

		if cfg.PatternHandler != nil {
			admin.DELETE("/patterns/:id", cfg.PatternHandler.DeletePattern)
		}
	}

	return r
}
