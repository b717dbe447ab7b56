package session

import (
	"testing"
	"time"

	"github.com/michitomo/douroannotate/internal/models"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(time.Hour)
	t.Cleanup(r.Close)
	return r
}

func createSession(t *testing.T, r *Registry) *Session {
	t.Helper()
	sizes := []models.PageSize{{Width: 600, Height: 800}, {Width: 600, Height: 800}}
	return r.Create("doc.pdf", "", []byte("%PDF-1.4"), 2, sizes)
}

func TestRegistryGet(t *testing.T) {
	r := newTestRegistry(t)
	s := createSession(t, r)

	got, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("Get() ID = %s, want %s", got.ID, s.ID)
	}

	if _, err := r.Get("missing"); err != ErrNotFound {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	r := newTestRegistry(t)
	s := createSession(t, r)

	// Not yet idle: survives.
	r.sweep(time.Now())
	if r.Count() != 1 {
		t.Fatalf("fresh session swept")
	}

	// Well past the TTL: swept.
	r.sweep(time.Now().Add(2 * time.Hour))
	if r.Count() != 0 {
		t.Fatalf("idle session survived the sweep")
	}
	if _, err := r.Get(s.ID); err != ErrNotFound {
		t.Errorf("Get() after sweep error = %v, want ErrNotFound", err)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r := newTestRegistry(t)
	s := createSession(t, r)

	created, err := s.Add(models.Annotation{Text: "Hi", FontSize: 16, Color: "#ff0000", PageNumber: 1})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot() length = %d, want 1", len(snap))
	}

	// Mutations after the snapshot must not reach it — this is what makes
	// an in-flight export immune to concurrent edits.
	text := "edited"
	if _, err := s.Update(created.ID, models.AnnotationPatch{Text: &text}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	s.Delete(created.ID)

	if snap[0].Text != "Hi" {
		t.Errorf("snapshot saw a later edit: %q", snap[0].Text)
	}
	if s.AnnotationCount() != 0 {
		t.Errorf("AnnotationCount() = %d, want 0", s.AnnotationCount())
	}
}

func TestCaptureDimensionsOverwrites(t *testing.T) {
	r := newTestRegistry(t)
	s := createSession(t, r)

	s.CaptureDimensions(1, 300, 400)
	s.CaptureDimensions(1, 330, 440) // re-render at a new zoom
	s.CaptureDimensions(2, 300, 400)

	dims := s.Dimensions()
	if len(dims) != 2 {
		t.Fatalf("Dimensions() size = %d, want 2", len(dims))
	}
	if d := dims[1]; d.Width != 330 || d.Height != 440 {
		t.Errorf("page 1 dims = %+v, want re-rendered 330×440", d)
	}

	// The returned map is a copy.
	delete(dims, 1)
	if len(s.Dimensions()) != 2 {
		t.Error("Dimensions() exposed internal map")
	}
}

func TestSeedDropsInvalidRecords(t *testing.T) {
	r := newTestRegistry(t)
	s := createSession(t, r)

	kept := s.Seed([]models.Annotation{
		{Text: "ok", FontSize: 16, Color: "#ff0000", PageNumber: 1},
		{Text: "bad page", FontSize: 16, Color: "#ff0000", PageNumber: 0},
		{Text: "bad color", FontSize: 16, Color: "red", PageNumber: 1},
		{Text: "ok too", X: -5, FontSize: 16, Color: "#00ff00", PageNumber: 2},
	})

	if kept != 2 {
		t.Fatalf("Seed() kept %d, want 2", kept)
	}
	snap := s.Snapshot()
	if snap[1].X != 0 {
		t.Errorf("Seed() did not clamp x: %v", snap[1].X)
	}
}

func TestPageSize(t *testing.T) {
	r := newTestRegistry(t)
	s := createSession(t, r)

	if _, ok := s.PageSize(0); ok {
		t.Error("PageSize(0) ok = true")
	}
	if _, ok := s.PageSize(3); ok {
		t.Error("PageSize(3) ok = true for 2-page document")
	}
	size, ok := s.PageSize(2)
	if !ok || size.Width != 600 {
		t.Errorf("PageSize(2) = %+v, %v", size, ok)
	}
}
