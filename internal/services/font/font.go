// Package font resolves the typeface used when baking annotations.
//
// The export wants a Unicode-capable TrueType face so non-Latin text (the
// primary use case is Japanese) renders with real glyphs. That face is
// fetched over the network, which can fail in every way networks do — so
// resolution is modeled as a tagged result, not an exception funnel: either
// {embedded, font} or {fallback, font, reason}. The fallback is the PDF
// built-in Helvetica, which draws Latin text fine and misses everything
// else. A font failure never aborts an export.
package font

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/image/font/sfnt"
)

// Kind tags an EmbedResult.
type Kind string

const (
	KindEmbedded Kind = "embedded"
	KindFallback Kind = "fallback"
)

// FallbackName is the built-in standard font used when embedding fails.
const FallbackName = "Helvetica"

// maxFontSize bounds the fetched font file (CJK faces run large).
const maxFontSize = 64 << 20 // 64MB

// Font is a resolved typeface. Builtin fonts have no Data/SFNT — they are
// referenced by name in the PDF, never embedded.
type Font struct {
	Name    string
	Builtin bool
	Data    []byte
	SFNT    *sfnt.Font
}

// EmbedResult is the outcome of font resolution.
type EmbedResult struct {
	Kind   Kind
	Font   *Font
	Reason string // populated for fallback
}

// Service fetches and caches the Unicode font face.
type Service struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	cached *EmbedResult
}

// New creates a font service fetching from the given URL. An empty URL
// means "always fall back" — useful for offline deployments and tests.
func New(fontURL string, timeout time.Duration) *Service {
	return &Service{
		url:    fontURL,
		client: &http.Client{Timeout: timeout},
	}
}

// Resolve returns the typeface for an export. The first successful fetch is
// cached for the life of the process; a failed fetch is also cached, since
// retrying a broken font URL on every export just slows exports down.
func (s *Service) Resolve(ctx context.Context) EmbedResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached
	}

	res := s.resolve(ctx)
	if res.Kind == KindFallback {
		log.Printf("⚠️  Unicode font unavailable, using built-in %s: %s", FallbackName, res.Reason)
	} else {
		log.Printf("✅ Unicode font loaded: %s (%d bytes)", res.Font.Name, len(res.Font.Data))
	}
	s.cached = &res
	return res
}

func (s *Service) resolve(ctx context.Context) EmbedResult {
	if s.url == "" {
		return fallback("no font URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fallback(fmt.Sprintf("build request: %v", err))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fallback(fmt.Sprintf("fetch font: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fallback(fmt.Sprintf("fetch font: status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFontSize))
	if err != nil {
		return fallback(fmt.Sprintf("read font: %v", err))
	}

	f, err := Parse(data)
	if err != nil {
		return fallback(err.Error())
	}
	return EmbedResult{Kind: KindEmbedded, Font: f}
}

// Parse validates raw TrueType/OpenType bytes and extracts the PostScript
// name used as the PDF BaseFont.
func Parse(data []byte) (*Font, error) {
	sf, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("malformed font: %w", err)
	}
	if sf.UnitsPerEm() == 0 {
		return nil, fmt.Errorf("malformed font: zero unitsPerEm")
	}

	name := "EmbeddedTT"
	buf := &sfnt.Buffer{}
	if ps, err := sf.Name(buf, sfnt.NameIDPostScript); err == nil && ps != "" {
		name = sanitizeName(ps)
	}

	return &Font{Name: name, Data: data, SFNT: sf}, nil
}

// Fallback returns the built-in standard Latin font.
func Fallback() *Font {
	return &Font{Name: FallbackName, Builtin: true}
}

func fallback(reason string) EmbedResult {
	return EmbedResult{Kind: KindFallback, Font: Fallback(), Reason: reason}
}

// sanitizeName strips characters that are not valid inside a PDF name
// object. Spaces show up in nameID 6 of some faces.
func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r <= ' ' || r > '~' || r == '/' || r == '#' || r == '(' || r == ')' || r == '<' || r == '>' || r == '[' || r == ']' {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return "EmbeddedTT"
	}
	return string(out)
}
