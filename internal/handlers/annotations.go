// annotations.go handles the annotation CRUD endpoints.
//
// The session owns the authoritative collection; these handlers just relay
// mutations into it and translate store errors onto the wire. Positions
// arrive already in logical page-space — the client converts from screen
// pixels on drop, this API never sees a zoom factor.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/michitomo/douroannotate/internal/models"
	"github.com/michitomo/douroannotate/internal/store"
)

// ListAnnotations returns the collection, optionally filtered by page.
// GET /api/v1/documents/:id/annotations[?page=N]
func (h *Handler) ListAnnotations(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_page",
				Message: "page must be a positive integer",
				Code:    http.StatusBadRequest,
			})
			return
		}
		list := s.ByPage(page)
		if list == nil {
			list = []models.Annotation{}
		}
		c.JSON(http.StatusOK, list)
		return
	}

	c.JSON(http.StatusOK, s.Snapshot())
}

// CreateAnnotation places a new annotation.
// POST /api/v1/documents/:id/annotations
func (h *Handler) CreateAnnotation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var ann models.Annotation
	if err := c.ShouldBindJSON(&ann); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Malformed annotation body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	// The ID is assigned here, never by the client.
	ann.ID = ""
	created, err := s.Add(ann)
	if err != nil {
		h.storeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateAnnotation merges a partial update into one annotation.
// PATCH /api/v1/documents/:id/annotations/:annotationID
func (h *Handler) UpdateAnnotation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var patch models.AnnotationPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Malformed annotation patch",
			Code:    http.StatusBadRequest,
		})
		return
	}

	updated, err := s.Update(c.Param("annotationID"), patch)
	if err != nil {
		h.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteAnnotation removes one annotation. Deleting an unknown ID is a
// no-op and still returns 204 — the end state is the same.
// DELETE /api/v1/documents/:id/annotations/:annotationID
func (h *Handler) DeleteAnnotation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	s.Delete(c.Param("annotationID"))
	c.Status(http.StatusNoContent)
}

// storeError maps store errors onto the wire: validation → 400,
// not found → 404.
func (h *Handler) storeError(c *gin.Context, err error) {
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: ve.Error(),
			Code:    http.StatusBadRequest,
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Annotation not found",
			Code:    http.StatusNotFound,
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}
}
