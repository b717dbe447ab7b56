// Package worker runs export jobs on a pool of background goroutines.
//
// The pool is a buffered channel as the job queue with N workers draining
// it. Handlers submit without blocking: a full queue rejects the job
// instead of stalling the request. Job records and produced bytes live in
// an in-memory result table with the same mutex-plus-janitor shape the
// session registry uses.
//
// Each job carries its own snapshot of the annotation collection and the
// dimension cache, taken at submission time — edits made while the job is
// in flight never reach it. Nothing serializes concurrent exports; two
// jobs for the same document just run side by side on their own snapshots.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/michitomo/douroannotate/internal/models"
	"github.com/michitomo/douroannotate/internal/services/export"
)

// resultTTL bounds how long finished export bytes stay downloadable.
const resultTTL = time.Hour

// Job is one queued export: the document snapshot plus source bytes.
type Job struct {
	ID          string
	DocumentID  string
	Source      []byte
	Filename    string
	Annotations []models.Annotation
	Dims        map[int]models.PageDimensions
	SubmittedAt time.Time
}

// Pool manages the worker goroutines and the export result table.
type Pool struct {
	jobs     chan Job
	workers  int
	exporter *export.Exporter

	mu      sync.RWMutex
	records map[string]*models.ExportJob
	data    map[string][]byte

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPool creates a worker pool with the given size and queue depth.
func NewPool(workers, queueSize int, exporter *export.Exporter) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:     make(chan Job, queueSize),
		workers:  workers,
		exporter: exporter,
		records:  make(map[string]*models.ExportJob),
		data:     make(map[string][]byte),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutines and the result janitor.
func (p *Pool) Start() {
	log.Printf("🚀 Starting %d export workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	go p.janitor()
}

// Stop gracefully shuts down: cancel the context, close the queue, wait
// for workers to drain.
func (p *Pool) Stop() {
	log.Println("⏹️  Stopping export workers...")
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
	close(p.done)
	log.Println("✅ All export workers stopped")
}

// Submit queues an export and returns its pending job record.
// Non-blocking: a full queue is an error, not a stall.
func (p *Pool) Submit(job Job) (*models.ExportJob, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.SubmittedAt = time.Now()

	record := &models.ExportJob{
		ID:         job.ID,
		DocumentID: job.DocumentID,
		Status:     models.StatusPending,
		CreatedAt:  job.SubmittedAt,
		UpdatedAt:  job.SubmittedAt,
	}

	p.mu.Lock()
	p.records[job.ID] = record
	p.mu.Unlock()

	select {
	case p.jobs <- job:
		log.Printf("📥 Export queued: %s (document %s, %d annotation(s))", job.ID, job.DocumentID, len(job.Annotations))
		return record, nil
	default:
		p.mu.Lock()
		delete(p.records, job.ID)
		p.mu.Unlock()
		return nil, fmt.Errorf("export queue is full; try again later")
	}
}

// Get returns a copy of one job record.
func (p *Pool) Get(id string) (*models.ExportJob, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	record, ok := p.records[id]
	if !ok {
		return nil, false
	}
	out := *record
	return &out, true
}

// Bytes returns the produced PDF for a completed job.
func (p *Pool) Bytes(id string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.data[id]
	return data, ok
}

// QueueSize returns the number of queued jobs.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log.Printf("👷 Worker %d started", id)

	for job := range p.jobs {
		select {
		case <-p.ctx.Done():
			log.Printf("👷 Worker %d shutting down", id)
			return
		default:
		}

		log.Printf("👷 Worker %d processing export %s", id, job.ID)
		if err := p.process(job); err != nil {
			log.Printf("❌ Worker %d: export %s failed: %v", id, job.ID, err)
		} else {
			log.Printf("✅ Worker %d: export %s completed", id, job.ID)
		}
	}

	log.Printf("👷 Worker %d stopped", id)
}

func (p *Pool) process(job Job) error {
	p.setStatus(job.ID, models.StatusProcessing, nil, nil)

	result, err := p.exporter.Run(p.ctx, job.Source, job.Filename, job.Annotations, job.Dims)
	if err != nil {
		p.setStatus(job.ID, models.StatusFailed, nil, err)
		return err
	}

	p.setStatus(job.ID, models.StatusCompleted, result, nil)
	return nil
}

func (p *Pool) setStatus(id string, status models.ExportStatus, result *export.Result, cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	record, ok := p.records[id]
	if !ok {
		return
	}
	record.Status = status
	record.UpdatedAt = time.Now()
	if cause != nil {
		record.ErrorMessage = cause.Error()
	}
	if result != nil {
		record.Filename = result.Filename
		record.FontKind = string(result.FontKind)
		record.FontReason = result.FontReason
		record.Drawn = result.Drawn
		record.SkippedPages = result.SkippedPages
		record.SkippedAnnotations = result.SkippedAnnotations
		p.data[id] = result.Data
	}
}

// janitor drops finished results after resultTTL so export bytes don't
// accumulate for the life of the process.
func (p *Pool) janitor() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-resultTTL)
			p.mu.Lock()
			for id, record := range p.records {
				if record.Status != models.StatusCompleted && record.Status != models.StatusFailed {
					continue
				}
				if record.UpdatedAt.Before(cutoff) {
					delete(p.records, id)
					delete(p.data, id)
				}
			}
			p.mu.Unlock()
		}
	}
}
