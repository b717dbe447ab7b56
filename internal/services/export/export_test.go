package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/michitomo/douroannotate/internal/models"
	"github.com/michitomo/douroannotate/internal/services/font"
)

// buildPDF assembles a minimal but well-formed PDF with the given page
// count and page size in points. Object offsets are tracked while writing
// so the xref table is exact.
func buildPDF(t *testing.T, pages int, w, h float64) []byte {
	t.Helper()

	var buf bytes.Buffer
	offsets := []int{}
	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, pages)
	for i := 0; i < pages; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		addObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << >> >>\nendobj\n",
			3+i, w, h))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref)

	return buf.Bytes()
}

func fallbackExporter() *Exporter {
	return New(font.New("", time.Second))
}

func embeddedExporter(t *testing.T) *Exporter {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(goregular.TTF)
	}))
	t.Cleanup(srv.Close)
	return New(font.New(srv.URL, 5*time.Second))
}

func ann(page int, text string) models.Annotation {
	return models.Annotation{
		ID:         "1",
		Text:       text,
		X:          10,
		Y:          20,
		FontSize:   16,
		Color:      "#ff0000",
		PageNumber: page,
	}
}

// checkPDF re-reads the produced bytes to prove they form a loadable document.
func checkPDF(t *testing.T, data []byte) {
	t.Helper()
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
	pctx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("output does not re-read: %v", err)
	}
	if err := api.ValidateContext(pctx); err != nil {
		t.Fatalf("output does not validate: %v", err)
	}
}

func TestRunZeroAnnotationsIsPassthrough(t *testing.T) {
	src := buildPDF(t, 1, 600, 800)

	res, err := fallbackExporter().Run(context.Background(), src, "doc.pdf", nil, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !bytes.Equal(res.Data, src) {
		t.Error("zero-annotation export modified the source bytes")
	}
	if res.Filename != "annotated_doc.pdf" {
		t.Errorf("Filename = %q", res.Filename)
	}
}

func TestRunFallbackFont(t *testing.T) {
	src := buildPDF(t, 1, 600, 800)
	dims := map[int]models.PageDimensions{
		1: {PageNumber: 1, Width: 300, Height: 400},
	}

	res, err := fallbackExporter().Run(context.Background(), src, "doc.pdf", []models.Annotation{ann(1, "Hi")}, dims)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.FontKind != font.KindFallback {
		t.Errorf("FontKind = %s, want fallback", res.FontKind)
	}
	if res.Drawn != 1 || res.SkippedPages != 0 || res.SkippedAnnotations != 0 {
		t.Errorf("counters = drawn %d / pages %d / anns %d, want 1/0/0",
			res.Drawn, res.SkippedPages, res.SkippedAnnotations)
	}
	checkPDF(t, res.Data)
}

func TestRunEmbeddedFont(t *testing.T) {
	src := buildPDF(t, 2, 600, 800)
	anns := []models.Annotation{ann(1, "Hello"), ann(2, "World")}

	res, err := embeddedExporter(t).Run(context.Background(), src, "doc.pdf", anns, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.FontKind != font.KindEmbedded {
		t.Errorf("FontKind = %s (%s), want embedded", res.FontKind, res.FontReason)
	}
	if res.Drawn != 2 {
		t.Errorf("Drawn = %d, want 2", res.Drawn)
	}
	checkPDF(t, res.Data)
}

func TestRunSkipsOutOfRangePages(t *testing.T) {
	src := buildPDF(t, 1, 600, 800)
	anns := []models.Annotation{ann(1, "on the page"), ann(5, "beyond the end")}

	res, err := fallbackExporter().Run(context.Background(), src, "doc.pdf", anns, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.SkippedPages != 1 {
		t.Errorf("SkippedPages = %d, want 1", res.SkippedPages)
	}
	if res.Drawn != 1 {
		t.Errorf("Drawn = %d, want 1", res.Drawn)
	}
	checkPDF(t, res.Data)
}

func TestRunSkipsUndrawableAnnotations(t *testing.T) {
	// goregular has no CJK glyphs, so the Japanese annotation is a
	// per-annotation draw failure; its sibling still draws.
	src := buildPDF(t, 1, 600, 800)
	japanese := ann(1, "こんにちは")
	japanese.ID = "2"
	anns := []models.Annotation{ann(1, "Hi"), japanese}

	res, err := embeddedExporter(t).Run(context.Background(), src, "doc.pdf", anns, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.SkippedAnnotations != 1 {
		t.Errorf("SkippedAnnotations = %d, want 1", res.SkippedAnnotations)
	}
	if res.Drawn != 1 {
		t.Errorf("Drawn = %d, want 1", res.Drawn)
	}
	checkPDF(t, res.Data)
}

func TestRunRejectsUnloadableSource(t *testing.T) {
	_, err := fallbackExporter().Run(context.Background(), []byte("%PDF-1.4 garbage"), "doc.pdf",
		[]models.Annotation{ann(1, "Hi")}, nil)
	if err == nil {
		t.Fatal("Run() accepted an unloadable document")
	}
}

func TestDeriveFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "report.pdf", "annotated_report.pdf"},
		{"empty name", "", "annotated_document.pdf"},
		{"unsafe characters", `a/b:c.pdf`, "annotated_a-b-c.pdf"},
		{"whitespace only", "  ", "annotated_document.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveFilename(tt.input); got != tt.expected {
				t.Errorf("DeriveFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean filename", "My Document.pdf", "My Document.pdf"},
		{"slashes and colons", "Part 1/2: Draft.pdf", "Part 1-2- Draft.pdf"},
		{"long name gets truncated", strings.Repeat("a", 200), strings.Repeat("a", 100)},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
