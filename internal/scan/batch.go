package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/JakeFAU/binbuddy/internal/apperr"
)

// ErrQueueClosed is returned by queues that no longer hand out jobs.
var ErrQueueClosed = errors.New("queue closed")

// MaxBatchSize bounds the barcodes of one batch job.
const MaxBatchSize = 100

const defaultBatchHistory = 256

// BatchStatus is the lifecycle state of a batch job.
type BatchStatus string

// Batch lifecycle states.
const (
	BatchQueued    BatchStatus = "queued"
	BatchRunning   BatchStatus = "running"
	BatchSucceeded BatchStatus = "succeeded"
	BatchPartial   BatchStatus = "partial"
	BatchFailed    BatchStatus = "failed"
	BatchCanceled  BatchStatus = "canceled"
)

// BatchJob asks the workers to record several scans.
type BatchJob struct {
	ID          string    `json:"id"`
	Barcodes    []string  `json:"barcodes"`
	Location    string    `json:"location,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// BatchCounters tracks per-barcode results of a batch job.
type BatchCounters struct {
	Recorded int `json:"recorded"`
	Failed   int `json:"failed"`
}

// BatchState is the last known state of a batch job.
type BatchState struct {
	Job       BatchJob      `json:"job"`
	Status    BatchStatus   `json:"status"`
	Counters  BatchCounters `json:"counters"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Queue hands batch jobs to the workers.
type Queue interface {
	Enqueue(ctx context.Context, job BatchJob) error
}

// EnqueueBatch validates barcodes, drops blanks and duplicates, and queues
// one batch job for them.
func (s *Service) EnqueueBatch(ctx context.Context, barcodes []string, location string) (BatchState, error) {
	if s.queue == nil {
		return BatchState{}, errors.New("batch queue is not configured")
	}
	codes := normalizeBarcodes(barcodes)
	if len(codes) == 0 {
		return BatchState{}, apperr.InvalidInput("At least one barcode is required")
	}
	if len(codes) > MaxBatchSize {
		return BatchState{}, apperr.InvalidInput(fmt.Sprintf("A batch holds at most %d barcodes", MaxBatchSize))
	}
	id, err := s.ids.NewID()
	if err != nil {
		return BatchState{}, apperr.Unknown(fmt.Errorf("batch id: %w", err))
	}
	now := s.clock.Now()
	job := BatchJob{ID: id, Barcodes: codes, Location: strings.TrimSpace(location), SubmittedAt: now}
	s.batches.put(BatchState{Job: job, Status: BatchQueued, UpdatedAt: now})

	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.UpdateBatch(id, BatchFailed, BatchCounters{}, err.Error())
		return BatchState{}, fmt.Errorf("enqueue batch %s: %w", id, err)
	}
	state, _ := s.batches.get(id)
	return state, nil
}

// Batch returns the state of a recent batch job.
func (s *Service) Batch(id string) (BatchState, bool) {
	return s.batches.get(id)
}

// UpdateBatch records progress reported by a worker. Unknown ids, for
// example jobs evicted from the history, are ignored.
func (s *Service) UpdateBatch(id string, status BatchStatus, counters BatchCounters, errText string) {
	s.batches.update(id, func(state *BatchState) {
		state.Status = status
		state.Counters = counters
		state.Error = errText
		state.UpdatedAt = s.clock.Now()
	})
}

func normalizeBarcodes(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, code := range in {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// batchTracker keeps the most recent batch states.
type batchTracker struct {
	mu     sync.Mutex
	states *lru.Cache
}

func newBatchTracker(entries int) *batchTracker {
	return &batchTracker{states: lru.New(entries)}
}

func (t *batchTracker) put(state BatchState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states.Add(state.Job.ID, state)
}

func (t *batchTracker) get(id string) (BatchState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.states.Get(id)
	if !ok {
		return BatchState{}, false
	}
	return v.(BatchState), true
}

func (t *batchTracker) update(id string, fn func(*BatchState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.states.Get(id)
	if !ok {
		return
	}
	state := v.(BatchState)
	fn(&state)
	t.states.Add(id, state)
}
