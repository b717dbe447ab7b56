// share.go produces the URL-safe snapshot used for shareable links.
package handlers

import (
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/michitomo/douroannotate/internal/codec"
	"github.com/michitomo/douroannotate/internal/models"
)

// ShareDocument encodes the current annotation collection for a deep link.
// GET /api/v1/documents/:id/share
//
// The query field is ready to append to a viewer URL; it carries the `pdf`
// parameter only when the session was opened from a URL (uploaded bytes
// can't be referenced from a link).
func (h *Handler) ShareDocument(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	snapshot := s.Snapshot()
	encoded, err := codec.Encode(snapshot)
	if err != nil {
		log.Printf("Share encoding failed for %s: %v", s.ID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "encode_error",
			Message: "Failed to encode annotations",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	q := url.Values{}
	if s.SourceURL != "" {
		q.Set("pdf", s.SourceURL)
	}
	q.Set("annotations", encoded)

	c.JSON(http.StatusOK, models.ShareResponse{
		Annotations: encoded,
		Query:       q.Encode(),
		Count:       len(snapshot),
	})
}
