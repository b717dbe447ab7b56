// export.go handles the annotation-baking export endpoints.
//
// POST /api/v1/documents/:id/export — queue an export job
// GET  /api/v1/exports/:id — job status and skip counters
// GET  /api/v1/exports/:id/download — the produced PDF
//
// Export is asynchronous: the handler snapshots the annotation collection
// and dimension cache at submission, so the job is immune to edits made
// while it runs. Nothing stops a second export for the same document from
// being queued before the first finishes — each owns its snapshot.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/michitomo/douroannotate/internal/models"
	"github.com/michitomo/douroannotate/internal/services/worker"
)

// CreateExport queues an export job for a document.
// POST /api/v1/documents/:id/export
func (h *Handler) CreateExport(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	job, err := h.Worker.Submit(worker.Job{
		DocumentID:  s.ID,
		Source:      s.Source(),
		Filename:    s.Filename,
		Annotations: s.Snapshot(),
		Dims:        s.Dimensions(),
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "queue_full",
			Message: err.Error(),
			Code:    http.StatusServiceUnavailable,
		})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// GetExport returns one export job's status.
// GET /api/v1/exports/:id
func (h *Handler) GetExport(c *gin.Context) {
	job, ok := h.Worker.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Export not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// DownloadExport streams the produced PDF as an attachment.
// GET /api/v1/exports/:id/download
func (h *Handler) DownloadExport(c *gin.Context) {
	job, ok := h.Worker.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Export not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	if job.Status != models.StatusCompleted {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "not_ready",
			Message: "Export is not completed (status: " + string(job.Status) + ")",
			Code:    http.StatusConflict,
		})
		return
	}

	data, ok := h.Worker.Bytes(job.ID)
	if !ok {
		c.JSON(http.StatusGone, models.ErrorResponse{
			Error:   "expired",
			Message: "Export result has expired; run the export again",
			Code:    http.StatusGone,
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, job.Filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
