// Package export bakes annotations permanently into a new PDF document.
//
// The pipeline is a one-way, non-destructive projection: it loads the
// original bytes into an editable pdfcpu context, resolves a font (with
// Unicode fallback), groups the annotation snapshot by page, transforms
// each annotation into PDF-space, appends text-drawing content streams, and
// serializes the result. The in-viewer session is never written back.
//
// An unloadable source is the only fatal path. A font failure degrades to Helvetica, an out-of-range
// page skips its group, and a single bad annotation skips only itself —
// everything non-fatal is counted, logged, and reported on the Result.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/michitomo/douroannotate/internal/geometry"
	"github.com/michitomo/douroannotate/internal/models"
	"github.com/michitomo/douroannotate/internal/services/font"
	"github.com/michitomo/douroannotate/internal/store"
)

// DefaultFilename names exports whose source has no usable filename
// (a bare URL, typically).
const DefaultFilename = "annotated_document.pdf"

// Result is the outcome of one export run.
type Result struct {
	Data               []byte
	Filename           string
	FontKind           font.Kind
	FontReason         string
	Drawn              int
	SkippedPages       int
	SkippedAnnotations int
}

// Exporter runs export pipelines. Safe for concurrent use: each run owns
// its context and snapshot, the font service does its own locking.
type Exporter struct {
	fonts *font.Service
}

// New creates an exporter using the given font service.
func New(fonts *font.Service) *Exporter {
	return &Exporter{fonts: fonts}
}

// Run executes the pipeline against a snapshot of the annotation collection.
// dims is the captured logical render size per page; pages absent from it
// fall back to their own point size during the transform.
func (e *Exporter) Run(ctx context.Context, src []byte, originalName string, anns []models.Annotation, dims map[int]models.PageDimensions) (*Result, error) {
	res := &Result{Filename: DeriveFilename(originalName)}

	// Nothing to draw: the source passes through byte-identical.
	if len(anns) == 0 {
		res.Data = src
		return res, nil
	}

	pctx, err := api.ReadContext(bytes.NewReader(src), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if err := api.ValidateContext(pctx); err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	embed := e.fonts.Resolve(ctx)
	res.FontKind = embed.Kind
	res.FontReason = embed.Reason

	pf, err := prepareFont(pctx, embed, anns)
	if err != nil {
		// Embedding rejected by the document model: degrade, don't abort.
		log.Printf("⚠️  Font embedding rejected, using built-in %s: %v", font.FallbackName, err)
		embed = font.EmbedResult{Kind: font.KindFallback, Font: font.Fallback(), Reason: err.Error()}
		res.FontKind = embed.Kind
		res.FontReason = embed.Reason
		if pf, err = prepareFont(pctx, embed, anns); err != nil {
			return nil, fmt.Errorf("register fallback font: %w", err)
		}
	}

	groups := store.GroupByPage(anns)
	pages := make([]int, 0, len(groups))
	for p := range groups {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	for _, p := range pages {
		if p < 1 || p > pctx.PageCount {
			res.SkippedPages++
			log.Printf("⚠️  Skipping %d annotation(s) on page %d: document has %d page(s)", len(groups[p]), p, pctx.PageCount)
			continue
		}
		if err := e.drawPage(pctx, pf, p, groups[p], dims, res); err != nil {
			res.SkippedPages++
			log.Printf("⚠️  Skipping page %d: %v", p, err)
		}
	}

	var out bytes.Buffer
	if err := api.WriteContext(pctx, &out); err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	res.Data = out.Bytes()
	return res, nil
}

// drawPage appends the text-drawing content for one page's annotation group.
func (e *Exporter) drawPage(pctx *model.Context, pf *pdfFont, page int, group []models.Annotation, dims map[int]models.PageDimensions, res *Result) error {
	pageDict, _, inhPAttrs, err := pctx.PageDict(page, false)
	if err != nil {
		return fmt.Errorf("resolve page dict: %w", err)
	}
	if pageDict == nil {
		return fmt.Errorf("page dict missing")
	}

	mb := inhPAttrs.MediaBox
	if mb == nil {
		return fmt.Errorf("page has no media box")
	}

	var captured *models.PageDimensions
	if d, ok := dims[page]; ok {
		captured = &d
	}
	ps := geometry.NewPageSpace(captured, mb.Width(), mb.Height())

	key, err := registerPageFont(pctx, pageDict, inhPAttrs.Resources, pf)
	if err != nil {
		return fmt.Errorf("register font resource: %w", err)
	}

	var ops strings.Builder
	drawn := 0
	for _, ann := range group {
		text, err := pf.encodeText(ann.Text)
		if err != nil {
			res.SkippedAnnotations++
			log.Printf("⚠️  Skipping annotation %s on page %d: %v", ann.ID, page, err)
			continue
		}
		x, y := ps.ToPDF(ann.X, ann.Y, ann.FontSize)
		r, g, b := parseHexColor(ann.Color)
		writeTextObject(&ops, key, ann.FontSize, r, g, b, x, y, text)
		drawn++
	}
	if drawn == 0 {
		return nil
	}

	if err := appendContent(pctx, pageDict, ops.String()); err != nil {
		return fmt.Errorf("append content: %w", err)
	}
	res.Drawn += drawn
	return nil
}

// appendContent adds the overlay stream to the page's Contents. The
// original content is bracketed with a save/restore pair so a stream that
// leaves the graphics state dirty cannot displace our text.
func appendContent(pctx *model.Context, pageDict types.Dict, ops string) error {
	overlay := "Q\n" + ops
	hasContents := true
	if obj, found := pageDict.Find("Contents"); !found || obj == nil {
		hasContents = false
		overlay = ops
	}

	sd, err := pctx.NewStreamDictForBuf([]byte(overlay))
	if err != nil {
		return err
	}
	if err := sd.Encode(); err != nil {
		return err
	}
	overlayRef, err := pctx.IndRefForNewObject(*sd)
	if err != nil {
		return err
	}

	if !hasContents {
		pageDict["Contents"] = *overlayRef
		return nil
	}

	save, err := pctx.NewStreamDictForBuf([]byte("q\n"))
	if err != nil {
		return err
	}
	if err := save.Encode(); err != nil {
		return err
	}
	saveRef, err := pctx.IndRefForNewObject(*save)
	if err != nil {
		return err
	}

	switch obj := pageDict["Contents"].(type) {
	case types.Array:
		contents := types.Array{*saveRef}
		contents = append(contents, obj...)
		pageDict["Contents"] = append(contents, *overlayRef)
	case types.IndirectRef:
		pageDict["Contents"] = types.Array{*saveRef, obj, *overlayRef}
	default:
		pageDict["Contents"] = *overlayRef
	}
	return nil
}

// DeriveFilename names the downloadable artifact after the original file.
func DeriveFilename(originalName string) string {
	name := SanitizeFilename(originalName)
	if name == "" {
		return DefaultFilename
	}
	return "annotated_" + name
}

// SanitizeFilename removes characters that aren't safe inside a
// Content-Disposition header. Replace unsafe characters with hyphens,
// collapse runs, trim, cap the length.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = replacer.Replace(name)

	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
