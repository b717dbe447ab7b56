// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/michitomo/douroannotate/internal/config"
	"github.com/michitomo/douroannotate/internal/handlers"
	"github.com/michitomo/douroannotate/internal/middleware"
	"github.com/michitomo/douroannotate/internal/session"
	"github.com/michitomo/douroannotate/internal/services/worker"
)

// Setup creates and configures the Gin router with all routes.
func Setup(sessions *session.Registry, wp *worker.Pool, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	h := handlers.NewHandler(sessions, wp, cfg)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	// --- Public Routes (no auth required) ---
	r.GET("/api/v1/health", h.HealthCheck)

	// API Documentation
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)

	// Opening a document issues the editor token.
	r.POST("/api/v1/documents", h.CreateDocument)

	// Read endpoints stay open so shared links work without a token.
	r.GET("/api/v1/documents/:id", h.GetDocument)
	r.GET("/api/v1/documents/:id/annotations", h.ListAnnotations)
	r.GET("/api/v1/documents/:id/pages/:page/text", h.GetPageText)
	r.GET("/api/v1/documents/:id/share", h.ShareDocument)

	// Export results are keyed by unguessable job IDs.
	r.GET("/api/v1/exports/:id", h.GetExport)
	r.GET("/api/v1/exports/:id/download", h.DownloadExport)

	// --- Protected Routes (editor token scoped to the document) ---
	protected := r.Group("/api/v1/documents/:id")
	protected.Use(middleware.EditorAuth(cfg.JWTSecret))
	protected.Use(rateLimiter.RateLimit())
	{
		protected.POST("/annotations", h.CreateAnnotation)
		protected.PATCH("/annotations/:annotationID", h.UpdateAnnotation)
		protected.DELETE("/annotations/:annotationID", h.DeleteAnnotation)

		protected.PUT("/pages/:page/dimensions", h.CapturePageDimensions)

		protected.POST("/export", h.CreateExport)
	}

	return r
}
