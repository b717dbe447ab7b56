// Package session owns the in-memory document sessions.
//
// A session is the authoritative parent of one annotation collection plus
// the source PDF bytes and the per-page render-dimension cache. Viewers
// never own the collection — they request mutations through the API and
// observe the result (ownership inversion).
//
// Sessions live only as long as the process plus a TTL; there is no durable
// persistence. Expired sessions are swept by a janitor goroutine,
// the same pattern the rate limiter uses for stale buckets.
package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/michitomo/douroannotate/internal/models"
	"github.com/michitomo/douroannotate/internal/store"
)

// ErrNotFound is returned when a session ID is unknown or expired.
var ErrNotFound = errors.New("document session not found")

// Session is one open document plus its annotation state.
type Session struct {
	ID        string
	Filename  string
	SourceURL string
	PageCount int
	PageSizes []models.PageSize // true page sizes in points, index 0 = page 1
	CreatedAt time.Time

	// Go Pattern: sync.RWMutex allows concurrent readers with exclusive
	// writers. HTTP handlers run on separate goroutines, so every field
	// below needs the lock.
	mu          sync.RWMutex
	source      []byte
	annotations []models.Annotation
	dims        map[int]models.PageDimensions
	lastAccess  time.Time
}

// Source returns the original PDF bytes. The slice is shared, never
// mutated — export only reads it.
func (s *Session) Source() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Snapshot returns a copy of the annotation collection. Exports work on
// this copy, so edits made mid-export never affect an in-flight job.
func (s *Session) Snapshot() []models.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Annotation, len(s.annotations))
	copy(out, s.annotations)
	return out
}

// AnnotationCount returns the collection size.
func (s *Session) AnnotationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.annotations)
}

// ByPage returns the annotations on one page, collection order preserved.
func (s *Session) ByPage(page int) []models.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.ByPage(s.annotations, page)
}

// Add validates and appends an annotation, assigning its ID.
func (s *Session) Add(ann models.Annotation) (models.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ann.ID == "" {
		ann.ID = store.NewID()
	}
	next, err := store.Add(s.annotations, ann)
	if err != nil {
		return models.Annotation{}, err
	}
	s.annotations = next
	return next[len(next)-1], nil
}

// Update merges a partial update into one annotation.
func (s *Session) Update(id string, patch models.AnnotationPatch) (models.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := store.Update(s.annotations, id, patch)
	if err != nil {
		return models.Annotation{}, err
	}
	s.annotations = next
	for _, ann := range next {
		if ann.ID == id {
			return ann, nil
		}
	}
	return models.Annotation{}, store.ErrNotFound
}

// Delete removes one annotation. No-op when absent.
func (s *Session) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.annotations = store.Delete(s.annotations, id)
}

// Seed replaces the collection wholesale, used when a deep link imports a
// pre-annotated document. Invalid records are dropped, not fatal.
func (s *Session) Seed(list []models.Annotation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []models.Annotation
	for _, ann := range list {
		if ann.ID == "" {
			ann.ID = store.NewID()
		}
		next, err := store.Add(kept, ann)
		if err != nil {
			log.Printf("⚠️  Dropping invalid seeded annotation %q: %v", ann.ID, err)
			continue
		}
		kept = next
	}
	s.annotations = kept
	return len(kept)
}

// CaptureDimensions records the logical render size of one page,
// overwriting any earlier capture for that page (re-render semantics).
func (s *Session) CaptureDimensions(page int, width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dims[page] = models.PageDimensions{PageNumber: page, Width: width, Height: height}
}

// Dimensions returns a copy of the render-dimension cache.
func (s *Session) Dimensions() map[int]models.PageDimensions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]models.PageDimensions, len(s.dims))
	for k, v := range s.dims {
		out[k] = v
	}
	return out
}

// PageSize returns the true point size of a 1-based page, ok=false when the
// page is out of range.
func (s *Session) PageSize(page int) (models.PageSize, bool) {
	if page < 1 || page > len(s.PageSizes) {
		return models.PageSize{}, false
	}
	return s.PageSizes[page-1], true
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

// Registry holds all live sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	done     chan struct{}
}

// NewRegistry creates a registry whose sessions expire after ttl of
// inactivity, and starts the sweep janitor.
func NewRegistry(ttl time.Duration) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Create registers a new session for the given source document.
func (r *Registry) Create(filename, sourceURL string, source []byte, pageCount int, sizes []models.PageSize) *Session {
	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		Filename:   filename,
		SourceURL:  sourceURL,
		PageCount:  pageCount,
		PageSizes:  sizes,
		CreatedAt:  now,
		source:     source,
		dims:       make(map[int]models.PageDimensions),
		lastAccess: now,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns a live session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch()
	return s, nil
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the janitor.
func (r *Registry) Close() {
	close(r.done)
}

// janitor sweeps expired sessions so abandoned documents don't pin their
// PDF bytes in memory forever.
func (r *Registry) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if now.Sub(s.idleSince()) > r.ttl {
			delete(r.sessions, id)
			log.Printf("🧹 Session %s expired (idle > %s)", id, r.ttl)
		}
	}
}
