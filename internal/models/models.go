// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// The annotation wire shape is fixed — it is the same JSON that travels in
// the `annotations` deep-link parameter, so field names are camelCase and
// must never drift.
package models

import "time"

// Annotation is a user-placed text overlay bound to one page of a document.
//
// Positions are in logical page-space: scale-independent, origin at the
// page's top-left corner, y increasing downward. They are clamped to be
// non-negative everywhere they enter the system.
type Annotation struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FontSize   int     `json:"fontSize"`
	Color      string  `json:"color"` // "#RRGGBB"
	PageNumber int     `json:"pageNumber"`
}

// AnnotationPatch is a typed partial update for an annotation.
// Go Pattern: Pointer fields distinguish "not sent" from zero values.
// Only the six annotation fields are mergeable — arbitrary keys from the
// request body are dropped by the JSON decoder, never merged.
type AnnotationPatch struct {
	Text       *string  `json:"text,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	FontSize   *int     `json:"fontSize,omitempty"`
	Color      *string  `json:"color,omitempty"`
	PageNumber *int     `json:"pageNumber,omitempty"`
}

// PageDimensions is the intrinsic rendered size of one page in logical
// page-space, captured when the viewer first renders that page and
// overwritten on every re-render. No eviction — the cache lives and dies
// with the session.
type PageDimensions struct {
	PageNumber int     `json:"pageNumber"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// PageSize is a page's true size in PDF points, reported by the document
// model at load time.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ExportStatus represents the processing state of an export job.
// Go Pattern: String constants instead of enums — a type alias plus
// named constants.
type ExportStatus string

const (
	StatusPending    ExportStatus = "pending"
	StatusProcessing ExportStatus = "processing"
	StatusCompleted  ExportStatus = "completed"
	StatusFailed     ExportStatus = "failed"
)

// ExportJob tracks one annotation-baking run. The produced bytes are held
// by the worker pool, not serialized here.
type ExportJob struct {
	ID                 string       `json:"id"`
	DocumentID         string       `json:"document_id"`
	Status             ExportStatus `json:"status"`
	Filename           string       `json:"filename,omitempty"`
	FontKind           string       `json:"font_kind,omitempty"`   // "embedded" or "fallback"
	FontReason         string       `json:"font_reason,omitempty"` // why the fallback was taken
	Drawn              int          `json:"drawn"`
	SkippedPages       int          `json:"skipped_pages"`
	SkippedAnnotations int          `json:"skipped_annotations"`
	ErrorMessage       string       `json:"error_message,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// --- Request/Response DTOs (Data Transfer Objects) ---
// Go Pattern: Separate structs for API input/output vs internal state.

// CreateDocumentRequest is the JSON body for POST /api/v1/documents when
// the source is a URL instead of a multipart upload.
type CreateDocumentRequest struct {
	URL         string `json:"url" binding:"required"`
	Annotations string `json:"annotations,omitempty"` // optional encoded seed collection
}

// DocumentResponse describes a document session to the client.
type DocumentResponse struct {
	ID          string     `json:"id"`
	Filename    string     `json:"filename"`
	SourceURL   string     `json:"source_url,omitempty"`
	PageCount   int        `json:"page_count"`
	PageSizes   []PageSize `json:"page_sizes"`
	Annotations int        `json:"annotations"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateDocumentResponse adds the editor token, shown only at creation.
type CreateDocumentResponse struct {
	DocumentResponse
	Token     string `json:"token"`
	SeedError string `json:"seed_error,omitempty"` // malformed annotation seed, non-fatal
}

// CaptureDimensionsRequest is the JSON body for the page render-size
// capture endpoint.
type CaptureDimensionsRequest struct {
	Width  float64 `json:"width" binding:"required,gt=0"`
	Height float64 `json:"height" binding:"required,gt=0"`
}

// ShareResponse carries the URL-safe snapshot of the annotation collection.
type ShareResponse struct {
	Annotations string `json:"annotations"` // codec-encoded collection
	Query       string `json:"query"`       // ready-to-append query string
	Count       int    `json:"count"`
}

// PageTextResponse is the extracted plain text of one page.
type PageTextResponse struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	WordCount  int    `json:"word_count"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
	Workers  int    `json:"workers"`
}
