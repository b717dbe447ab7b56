// Package document consumes the document-rendering collaborator.
//
// The core never rasterizes pages. pdfcpu supplies the structural facts the
// rest of the system needs — page count and true page sizes in points — and
// ledongthuc/pdf supplies plain-text extraction for the page-inspection
// endpoint. Both are pure Go, no CGO, so deployment stays a single binary.
package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	ledong "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/michitomo/douroannotate/internal/models"
)

func init() {
	// pdfcpu reads its config dir lazily, which races when contexts are
	// opened from multiple goroutines. Disable it up front.
	api.DisableConfigDir()
}

// Info holds the structural facts about a loaded document.
type Info struct {
	PageCount int
	PageSizes []models.PageSize
}

// ValidatePDF checks the magic bytes. PDF files start with "%PDF-".
func ValidatePDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// Load inspects the source bytes and reports page count and true page
// sizes. Any failure here is the fatal load-failure path — a document that
// cannot be opened cannot be annotated or exported.
func Load(data []byte) (*Info, error) {
	if !ValidatePDF(data) {
		return nil, fmt.Errorf("not a PDF document")
	}

	conf := model.NewDefaultConfiguration()

	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read page count: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	dims, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read page dimensions: %w", err)
	}

	sizes := make([]models.PageSize, 0, count)
	for _, d := range dims {
		sizes = append(sizes, models.PageSize{Width: d.Width, Height: d.Height})
	}
	// Letter size stands in if the dims list comes up short.
	for len(sizes) < count {
		sizes = append(sizes, models.PageSize{Width: 612, Height: 792})
	}

	return &Info{PageCount: count, PageSizes: sizes}, nil
}

// Fetch downloads a PDF from a URL and derives a display filename from the
// URL path. maxSize bounds the response body.
func Fetch(ctx context.Context, client *http.Client, rawURL string, maxSize int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", fmt.Errorf("document exceeds %d bytes", maxSize)
	}

	return data, FilenameFromURL(rawURL), nil
}

// FilenameFromURL extracts a .pdf basename from a URL, or "" when the URL
// is bare (the export falls back to a generic name then).
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return ""
	}
	return name
}

// PageText extracts the plain text of one 1-based page.
func PageText(data []byte, page int) (*models.PageTextResponse, error) {
	reader, err := ledong.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	if page < 1 || page > reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, reader.NumPage())
	}

	p := reader.Page(page)
	if p.V.IsNull() {
		return &models.PageTextResponse{PageNumber: page}, nil
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		// Image-only pages are common; an empty result is not an error.
		return &models.PageTextResponse{PageNumber: page}, nil
	}

	text = strings.TrimSpace(text)
	return &models.PageTextResponse{
		PageNumber: page,
		Text:       text,
		WordCount:  len(strings.Fields(text)),
	}, nil
}
