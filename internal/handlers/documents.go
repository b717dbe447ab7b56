// documents.go handles document session endpoints.
//
// POST /api/v1/documents — open a PDF (multipart upload or JSON URL)
// GET  /api/v1/documents/:id — session metadata
// PUT  /api/v1/documents/:id/pages/:page/dimensions — render-size capture
// GET  /api/v1/documents/:id/pages/:page/text — extracted page text
package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/michitomo/douroannotate/internal/codec"
	"github.com/michitomo/douroannotate/internal/middleware"
	"github.com/michitomo/douroannotate/internal/models"
	"github.com/michitomo/douroannotate/internal/session"
	"github.com/michitomo/douroannotate/internal/services/document"
)

// CreateDocument opens a new document session.
// POST /api/v1/documents
//
// Two request shapes:
//   - multipart upload, field "file", optional form field "annotations";
//   - JSON {"url": "...", "annotations": "..."} to fetch the PDF remotely.
//
// The annotations value is a codec-encoded collection (the deep-link
// format). A malformed value never fails the request — the session starts
// empty and the response reports seed_error.
func (h *Handler) CreateDocument(c *gin.Context) {
	var (
		data      []byte
		filename  string
		sourceURL string
		seed      string
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Cfg.MaxUploadSize)

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_request",
				Message: fmt.Sprintf("No PDF file provided. Upload a file with the field name 'file'. Max size: %dMB.", h.Cfg.MaxUploadSize>>20),
				Code:    http.StatusBadRequest,
			})
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != ".pdf" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_file_type",
				Message: fmt.Sprintf("Unsupported file format '%s'. Only .pdf files are accepted.", ext),
				Code:    http.StatusBadRequest,
			})
			return
		}

		data, err = io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "read_error",
				Message: "Failed to read uploaded file",
				Code:    http.StatusBadRequest,
			})
			return
		}
		filename = header.Filename
		seed = c.PostForm("annotations")
		if seed == "" {
			seed = c.Query("annotations")
		}
	} else {
		var req models.CreateDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_request",
				Message: "Provide a multipart 'file' upload or a JSON body with 'url'",
				Code:    http.StatusBadRequest,
			})
			return
		}

		var err error
		data, filename, err = document.Fetch(c.Request.Context(), http.DefaultClient, req.URL, h.Cfg.MaxUploadSize)
		if err != nil {
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error:   "fetch_failed",
				Message: "Failed to fetch document: " + err.Error(),
				Code:    http.StatusBadGateway,
			})
			return
		}
		sourceURL = req.URL
		seed = req.Annotations
	}

	if !document.ValidatePDF(data) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_pdf",
			Message: "The document does not appear to be a valid PDF",
			Code:    http.StatusBadRequest,
		})
		return
	}

	// Load failure is the one fatal path: an unopenable document has no session.
	info, err := document.Load(data)
	if err != nil {
		log.Printf("Document load failed for %q: %v", filename, err)
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "load_failed",
			Message: "Failed to load document: " + err.Error(),
			Code:    http.StatusUnprocessableEntity,
		})
		return
	}

	s := h.Sessions.Create(filename, sourceURL, data, info.PageCount, info.PageSizes)

	var seedErr string
	if seed != "" {
		list, err := codec.Decode(seed)
		if err != nil {
			// Non-fatal: start from an empty collection, tell the caller.
			log.Printf("Discarding malformed annotation seed for %s: %v", s.ID, err)
			seedErr = err.Error()
		}
		s.Seed(list)
	}

	token, err := middleware.GenerateEditorToken(s.ID, h.Cfg.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "token_error",
			Message: "Failed to issue editor token",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, models.CreateDocumentResponse{
		DocumentResponse: documentResponse(s),
		Token:            token,
		SeedError:        seedErr,
	})
}

// GetDocument returns session metadata.
// GET /api/v1/documents/:id
func (h *Handler) GetDocument(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, documentResponse(s))
}

// CapturePageDimensions records the intrinsic rendered size of one page in
// logical page-space. Called by the viewer on every page render; a
// re-render simply overwrites the earlier capture.
// PUT /api/v1/documents/:id/pages/:page/dimensions
func (h *Handler) CapturePageDimensions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	page, ok := h.pageParam(c, s)
	if !ok {
		return
	}

	var req models.CaptureDimensionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Provide positive 'width' and 'height'",
			Code:    http.StatusBadRequest,
		})
		return
	}

	s.CaptureDimensions(page, req.Width, req.Height)
	c.JSON(http.StatusOK, models.PageDimensions{PageNumber: page, Width: req.Width, Height: req.Height})
}

// GetPageText returns the extracted plain text of one page.
// GET /api/v1/documents/:id/pages/:page/text
func (h *Handler) GetPageText(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	page, ok := h.pageParam(c, s)
	if !ok {
		return
	}

	text, err := document.PageText(s.Source(), page)
	if err != nil {
		log.Printf("Page text extraction failed for %s page %d: %v", s.ID, page, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "extraction_failed",
			Message: "Text extraction failed: " + err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, text)
}

// --- Shared helpers ---

// session resolves the :id route parameter, writing the 404 itself.
func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.Sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Document session not found or expired",
			Code:    http.StatusNotFound,
		})
		return nil, false
	}
	return s, true
}

// pageParam parses and range-checks the :page route parameter.
func (h *Handler) pageParam(c *gin.Context, s *session.Session) (int, bool) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 || page > s.PageCount {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_page",
			Message: fmt.Sprintf("Page must be between 1 and %d", s.PageCount),
			Code:    http.StatusBadRequest,
		})
		return 0, false
	}
	return page, true
}

func documentResponse(s *session.Session) models.DocumentResponse {
	return models.DocumentResponse{
		ID:          s.ID,
		Filename:    s.Filename,
		SourceURL:   s.SourceURL,
		PageCount:   s.PageCount,
		PageSizes:   s.PageSizes,
		Annotations: s.AnnotationCount(),
		CreatedAt:   s.CreatedAt,
	}
}
