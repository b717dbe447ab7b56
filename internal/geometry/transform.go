// Package geometry maps annotation positions between the three coordinate
// spaces the system reconciles:
//
//   - screen space: rendered page pixels at the current zoom scale;
//   - logical page-space: scale-independent, origin top-left, y downward —
//     the space annotations are stored in;
//   - PDF-space: the document's native system, origin bottom-left, points.
//
// Screen↔logical is a pure scale factor. Logical→PDF additionally flips the
// vertical axis and shifts the anchor down by one line height, because text
// is drawn at its baseline while on-screen editing anchors the top-left.
package geometry

import "github.com/michitomo/douroannotate/internal/models"

// Point is a position in any of the three spaces.
type Point struct {
	X float64
	Y float64
}

// Viewport carries the view state the screen↔logical mapping depends on.
// It is passed explicitly so the transform has no ambient globals.
type Viewport struct {
	Scale float64 // zoom factor; the UI keeps this in roughly [0.1, 5.0]
}

// ToLogical converts a screen offset to logical page-space.
func (v Viewport) ToLogical(p Point) Point {
	return Point{X: p.X / v.Scale, Y: p.Y / v.Scale}
}

// ToScreen converts a logical position to screen pixels at the current zoom.
func (v Viewport) ToScreen(p Point) Point {
	return Point{X: p.X * v.Scale, Y: p.Y * v.Scale}
}

// PageSpace maps logical page-space onto one page's PDF point space.
type PageSpace struct {
	LogicalW float64
	LogicalH float64
	PDFW     float64
	PDFH     float64
}

// NewPageSpace builds the mapping for a page whose true size in points is
// (pdfW, pdfH). dims is the captured logical render size for that page, or
// nil when the page was never rendered (e.g. an annotation imported from a
// shared link referencing an unrendered page) — then the PDF size serves as
// both spaces, unit for unit, which keeps geometry plausible at the cost of
// zoom fidelity.
func NewPageSpace(dims *models.PageDimensions, pdfW, pdfH float64) PageSpace {
	ps := PageSpace{LogicalW: pdfW, LogicalH: pdfH, PDFW: pdfW, PDFH: pdfH}
	if dims != nil && dims.Width > 0 && dims.Height > 0 {
		ps.LogicalW = dims.Width
		ps.LogicalH = dims.Height
	}
	return ps
}

// ToPDF converts a logical top-left anchor to the PDF-space baseline origin
// for text of the given point size:
//
//	pdfX = max(0,x) / Wl * Wp
//	pdfY = Hp - ((max(0,y) + fontSize) / Hl) * Hp
//
// The +fontSize shifts the anchor from the glyph top to the baseline before
// the vertical flip.
func (ps PageSpace) ToPDF(x, y float64, fontSize int) (float64, float64) {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	px := x / ps.LogicalW * ps.PDFW
	py := ps.PDFH - (y+float64(fontSize))/ps.LogicalH*ps.PDFH
	return px, py
}
