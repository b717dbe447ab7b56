// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers are methods on a Handler struct that holds shared
// dependencies — dependency injection via struct fields instead of globals,
// which keeps tests simple: build a Handler around an in-memory registry
// and drive it with httptest.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/michitomo/douroannotate/internal/config"
	"github.com/michitomo/douroannotate/internal/models"
	"github.com/michitomo/douroannotate/internal/session"
	"github.com/michitomo/douroannotate/internal/services/worker"
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	Sessions *session.Registry
	Worker   *worker.Pool
	Cfg      *config.Config
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(sessions *session.Registry, wp *worker.Pool, cfg *config.Config) *Handler {
	return &Handler{
		Sessions: sessions,
		Worker:   wp,
		Cfg:      cfg,
	}
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Version:  "1.0.0",
		Sessions: h.Sessions.Count(),
		Workers:  h.Worker.WorkerCount(),
	})
}
