package worker

import (
	"testing"
	"time"

	"github.com/michitomo/douroannotate/internal/models"
	"github.com/michitomo/douroannotate/internal/services/export"
	"github.com/michitomo/douroannotate/internal/services/font"
)

func newTestPool(workers, queueSize int) *Pool {
	return NewPool(workers, queueSize, export.New(font.New("", time.Second)))
}

func TestSubmitAssignsIDAndPendingRecord(t *testing.T) {
	p := newTestPool(1, 4)
	// Not started: the job sits in the queue, the record stays pending.

	record, err := p.Submit(Job{DocumentID: "doc-1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if record.ID == "" {
		t.Error("no job ID assigned")
	}
	if record.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", record.Status)
	}
	if p.QueueSize() != 1 {
		t.Errorf("queue size = %d, want 1", p.QueueSize())
	}
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	p := newTestPool(1, 1)

	first, err := p.Submit(Job{DocumentID: "doc-1"})
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	second, err := p.Submit(Job{DocumentID: "doc-1"})
	if err == nil {
		t.Fatal("second Submit succeeded on a full queue")
	}
	if second != nil {
		t.Error("rejected Submit returned a record")
	}

	// The rejected job must leave no record behind; the accepted one stays.
	if _, ok := p.Get(first.ID); !ok {
		t.Error("accepted job record missing")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	p := newTestPool(1, 4)
	record, err := p.Submit(Job{DocumentID: "doc-1"})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := p.Get(record.ID)
	if !ok {
		t.Fatal("record not found")
	}
	got.Status = models.StatusFailed

	again, _ := p.Get(record.ID)
	if again.Status != models.StatusPending {
		t.Errorf("mutating a returned record leaked into the table: %s", again.Status)
	}
}

func TestGetUnknownJob(t *testing.T) {
	p := newTestPool(1, 4)
	if _, ok := p.Get("nope"); ok {
		t.Error("unknown job reported as found")
	}
}

func TestUnloadableSourceMarksJobFailed(t *testing.T) {
	p := newTestPool(1, 4)
	p.Start()
	defer p.Stop()

	record, err := p.Submit(Job{
		DocumentID:  "doc-1",
		Source:      []byte("definitely not a pdf"),
		Filename:    "broken.pdf",
		Annotations: []models.Annotation{{ID: "a1", Text: "Hi", FontSize: 12, Color: "#000000", PageNumber: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, ok := p.Get(record.ID)
		if !ok {
			t.Fatal("record vanished")
		}
		if got.Status == models.StatusFailed {
			if got.ErrorMessage == "" {
				t.Error("failed job has no error message")
			}
			if _, ok := p.Bytes(record.ID); ok {
				t.Error("failed job has downloadable bytes")
			}
			return
		}
		if got.Status == models.StatusCompleted {
			t.Fatal("broken source exported successfully")
		}
		if time.Now().After(deadline) {
			t.Fatalf("job still %s after deadline", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
