// Package memory provides the in-process batch job queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/binbuddy/internal/scan"
)

// ErrClosed is returned once the queue has been closed.
var ErrClosed = scan.ErrQueueClosed

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch        chan scan.BatchJob
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch:   make(chan scan.BatchJob, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue pushes a job into the queue or returns if the context ends or the
// queue closes.
func (q *Queue) Enqueue(ctx context.Context, job scan.BatchJob) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case <-q.done:
		return ErrClosed
	case q.ch <- job:
		return nil
	}
}

// Dequeue pops the next job, respecting context cancellation. Jobs still
// buffered when the queue closes are delivered before ErrClosed.
func (q *Queue) Dequeue(ctx context.Context) (scan.BatchJob, error) {
	select {
	case <-ctx.Done():
		return scan.BatchJob{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case job := <-q.ch:
		return job, nil
	case <-q.done:
		select {
		case job := <-q.ch:
			return job, nil
		default:
			return scan.BatchJob{}, ErrClosed
		}
	}
}

// Len reports the number of buffered jobs.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue; it is safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
