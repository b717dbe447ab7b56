// Package store implements the annotation collection as pure functions.
//
// Go Pattern: The collection is an ordered slice value; every operation
// returns a new slice and never mutates its input. The caller (the session)
// is responsible for holding the authoritative copy and broadcasting the
// result — the store has no side effects at all, which is what makes it
// trivially testable.
package store

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/michitomo/douroannotate/internal/models"
)

// PlaceholderText replaces a blank annotation text at creation time.
const PlaceholderText = "•••"

// FontSizeMin and FontSizeMax bound annotation point sizes. Callers are
// expected to pre-clamp; the store rejects rather than silently clamps.
const (
	FontSizeMin = 8
	FontSizeMax = 72
)

// ErrNotFound is returned when an annotation ID is absent from the collection.
var ErrNotFound = errors.New("annotation not found")

// ValidationError reports a rejected annotation field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// NewID returns a time-ordered opaque ID for a new annotation.
// UUIDv7 encodes a millisecond timestamp in its high bits, so IDs sort by
// creation time. Never reused.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Entropy exhaustion is the only failure mode; a random v4 still
		// satisfies uniqueness, just not time ordering.
		return uuid.NewString()
	}
	return id.String()
}

// Add appends an annotation to the collection and returns the new collection.
// x/y are clamped to be non-negative; fontSize, pageNumber and color are
// validated, not clamped.
func Add(list []models.Annotation, ann models.Annotation) ([]models.Annotation, error) {
	if ann.PageNumber < 1 {
		return nil, &ValidationError{Field: "pageNumber", Reason: "must be a positive integer"}
	}
	if ann.FontSize < FontSizeMin || ann.FontSize > FontSizeMax {
		return nil, &ValidationError{Field: "fontSize", Reason: fmt.Sprintf("must be between %d and %d", FontSizeMin, FontSizeMax)}
	}
	if !hexColorRe.MatchString(ann.Color) {
		return nil, &ValidationError{Field: "color", Reason: "must be a #RRGGBB hex string"}
	}
	if ann.Text == "" {
		ann.Text = PlaceholderText
	}
	ann.X = clamp(ann.X)
	ann.Y = clamp(ann.Y)

	out := make([]models.Annotation, len(list), len(list)+1)
	copy(out, list)
	return append(out, ann), nil
}

// Update merges a typed partial update into the annotation with the given ID
// and returns the new collection. Returns ErrNotFound (with the input
// collection unchanged) when the ID is absent.
func Update(list []models.Annotation, id string, patch models.AnnotationPatch) ([]models.Annotation, error) {
	idx := indexOf(list, id)
	if idx < 0 {
		return list, ErrNotFound
	}

	ann := list[idx]
	if patch.Text != nil {
		ann.Text = *patch.Text
		if ann.Text == "" {
			ann.Text = PlaceholderText
		}
	}
	if patch.X != nil {
		ann.X = clamp(*patch.X)
	}
	if patch.Y != nil {
		ann.Y = clamp(*patch.Y)
	}
	if patch.FontSize != nil {
		if *patch.FontSize < FontSizeMin || *patch.FontSize > FontSizeMax {
			return list, &ValidationError{Field: "fontSize", Reason: fmt.Sprintf("must be between %d and %d", FontSizeMin, FontSizeMax)}
		}
		ann.FontSize = *patch.FontSize
	}
	if patch.Color != nil {
		if !hexColorRe.MatchString(*patch.Color) {
			return list, &ValidationError{Field: "color", Reason: "must be a #RRGGBB hex string"}
		}
		ann.Color = *patch.Color
	}
	if patch.PageNumber != nil {
		if *patch.PageNumber < 1 {
			return list, &ValidationError{Field: "pageNumber", Reason: "must be a positive integer"}
		}
		ann.PageNumber = *patch.PageNumber
	}

	out := make([]models.Annotation, len(list))
	copy(out, list)
	out[idx] = ann
	return out, nil
}

// Delete removes the annotation with the given ID. No-op when absent.
func Delete(list []models.Annotation, id string) []models.Annotation {
	idx := indexOf(list, id)
	if idx < 0 {
		return list
	}
	out := make([]models.Annotation, 0, len(list)-1)
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...)
}

// ByPage returns the ordered sub-sequence of annotations on the given page.
// Relative order is preserved; page grouping is derived, never stored.
func ByPage(list []models.Annotation, page int) []models.Annotation {
	var out []models.Annotation
	for _, ann := range list {
		if ann.PageNumber == page {
			out = append(out, ann)
		}
	}
	return out
}

// GroupByPage buckets the collection by page number, preserving the
// collection order inside each bucket.
func GroupByPage(list []models.Annotation) map[int][]models.Annotation {
	groups := make(map[int][]models.Annotation)
	for _, ann := range list {
		groups[ann.PageNumber] = append(groups[ann.PageNumber], ann)
	}
	return groups
}

func indexOf(list []models.Annotation, id string) int {
	for i, ann := range list {
		if ann.ID == id {
			return i
		}
	}
	return -1
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
