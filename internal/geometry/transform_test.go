package geometry

import (
	"math"
	"testing"

	"github.com/michitomo/douroannotate/internal/models"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestViewportRoundTrip(t *testing.T) {
	// screen(logical(p)) == p within floating-point tolerance for all
	// scales the UI can reach.
	scales := []float64{0.1, 0.3, 0.5, 1.0, 1.3, 2.0, 3.7, 5.0}
	points := []Point{
		{0, 0},
		{10, 20},
		{123.456, 789.012},
		{0.0001, 9999.9},
	}

	for _, scale := range scales {
		v := Viewport{Scale: scale}
		for _, p := range points {
			got := v.ToLogical(v.ToScreen(p))
			if !almostEqual(got.X, p.X) || !almostEqual(got.Y, p.Y) {
				t.Errorf("scale %v: round trip of %+v = %+v", scale, p, got)
			}
		}
	}
}

func TestViewportScaling(t *testing.T) {
	v := Viewport{Scale: 2.0}

	s := v.ToScreen(Point{X: 10, Y: 20})
	if s.X != 20 || s.Y != 40 {
		t.Errorf("ToScreen(10,20) = %+v, want (20,40)", s)
	}

	l := v.ToLogical(Point{X: 20, Y: 40})
	if l.X != 10 || l.Y != 20 {
		t.Errorf("ToLogical(20,40) = %+v, want (10,20)", l)
	}
}

func TestPageSpaceToPDF(t *testing.T) {
	tests := []struct {
		name     string
		ps       PageSpace
		x, y     float64
		fontSize int
		wantX    float64
		wantY    float64
	}{
		{
			// Captured render 300×400 against a 600×800-point page:
			// pdfX = 10/300*600 = 20; pdfY = 800 - ((20+16)/400*800) = 728.
			name:     "half-scale capture",
			ps:       PageSpace{LogicalW: 300, LogicalH: 400, PDFW: 600, PDFH: 800},
			x:        10, y: 20, fontSize: 16,
			wantX: 20, wantY: 728,
		},
		{
			name:     "unit scale",
			ps:       PageSpace{LogicalW: 600, LogicalH: 800, PDFW: 600, PDFH: 800},
			x:        100, y: 100, fontSize: 12,
			wantX: 100, wantY: 688,
		},
		{
			name:     "negative coordinates clamp to origin",
			ps:       PageSpace{LogicalW: 300, LogicalH: 400, PDFW: 600, PDFH: 800},
			x:        -50, y: -10, fontSize: 16,
			wantX: 0, wantY: 768,
		},
		{
			name:     "origin lands one line height below the top",
			ps:       PageSpace{LogicalW: 500, LogicalH: 500, PDFW: 500, PDFH: 500},
			x:        0, y: 0, fontSize: 20,
			wantX: 0, wantY: 480,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotX, gotY := tt.ps.ToPDF(tt.x, tt.y, tt.fontSize)
			if !almostEqual(gotX, tt.wantX) || !almostEqual(gotY, tt.wantY) {
				t.Errorf("ToPDF(%v, %v, %d) = (%v, %v), want (%v, %v)",
					tt.x, tt.y, tt.fontSize, gotX, gotY, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestNewPageSpaceFallback(t *testing.T) {
	tests := []struct {
		name string
		dims *models.PageDimensions
		want PageSpace
	}{
		{
			name: "captured dimensions used",
			dims: &models.PageDimensions{PageNumber: 1, Width: 300, Height: 400},
			want: PageSpace{LogicalW: 300, LogicalH: 400, PDFW: 600, PDFH: 800},
		},
		{
			name: "nil capture falls back to page size",
			dims: nil,
			want: PageSpace{LogicalW: 600, LogicalH: 800, PDFW: 600, PDFH: 800},
		},
		{
			name: "degenerate capture falls back to page size",
			dims: &models.PageDimensions{PageNumber: 1, Width: 0, Height: 400},
			want: PageSpace{LogicalW: 600, LogicalH: 800, PDFW: 600, PDFH: 800},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPageSpace(tt.dims, 600, 800)
			if got != tt.want {
				t.Errorf("NewPageSpace() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
