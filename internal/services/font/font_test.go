package font

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"
)

func TestResolveEmbedsFetchedFont(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(goregular.TTF)
	}))
	defer srv.Close()

	s := New(srv.URL, 5*time.Second)
	res := s.Resolve(context.Background())

	if res.Kind != KindEmbedded {
		t.Fatalf("Resolve() kind = %s (%s), want embedded", res.Kind, res.Reason)
	}
	if res.Font.Builtin {
		t.Error("embedded font marked builtin")
	}
	if res.Font.SFNT == nil || len(res.Font.Data) == 0 {
		t.Error("embedded font missing parsed face or data")
	}
	if res.Font.Name == "" {
		t.Error("embedded font has no name")
	}

	// Second resolve must serve from cache.
	s.Resolve(context.Background())
	if got := hits.Load(); got != 1 {
		t.Errorf("font fetched %d times, want 1", got)
	}
}

func TestResolveFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *Service
	}{
		{
			name: "no URL configured",
			setup: func(t *testing.T) *Service {
				return New("", time.Second)
			},
		},
		{
			name: "server error",
			setup: func(t *testing.T) *Service {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				}))
				t.Cleanup(srv.Close)
				return New(srv.URL, time.Second)
			},
		},
		{
			name: "malformed font bytes",
			setup: func(t *testing.T) *Service {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("this is not a font"))
				}))
				t.Cleanup(srv.Close)
				return New(srv.URL, time.Second)
			},
		},
		{
			name: "unreachable host",
			setup: func(t *testing.T) *Service {
				return New("http://127.0.0.1:1", time.Second)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.setup(t).Resolve(context.Background())
			if res.Kind != KindFallback {
				t.Fatalf("Resolve() kind = %s, want fallback", res.Kind)
			}
			if res.Reason == "" {
				t.Error("fallback carries no reason")
			}
			if !res.Font.Builtin || res.Font.Name != FallbackName {
				t.Errorf("fallback font = %+v, want builtin %s", res.Font, FallbackName)
			}
		})
	}
}

func TestParse(t *testing.T) {
	f, err := Parse(goregular.TTF)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if f.SFNT == nil {
		t.Fatal("Parse() returned no face")
	}

	if _, err := Parse([]byte("nonsense")); err == nil {
		t.Error("Parse() accepted malformed bytes")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "NotoSansJP-Regular", "NotoSansJP-Regular"},
		{"spaces stripped", "Noto Sans JP", "NotoSansJP"},
		{"delimiters stripped", "Weird/(Name)", "WeirdName"},
		{"nothing left", "   ", "EmbeddedTT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeName(tt.input); got != tt.want {
				t.Errorf("sanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
