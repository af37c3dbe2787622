// Package dispatcher fans batch jobs out to a pool of workers.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc"

	"github.com/JakeFAU/binbuddy/internal/scan"
)

// Queue is the job queue shared by the dispatcher and its workers.
type Queue interface {
	Enqueue(ctx context.Context, job scan.BatchJob) error
	Dequeue(ctx context.Context) (scan.BatchJob, error)
}

// Runner is one worker loop.
type Runner interface {
	Run(ctx context.Context)
}

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   Queue
	workers []Runner
}

// New creates a Dispatcher.
func New(queue Queue, workers []Runner) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Add registers more workers. It must be called before Run.
func (d *Dispatcher) Add(workers ...Runner) {
	d.workers = append(d.workers, workers...)
}

// Run starts all workers and blocks until every one of them returns, which
// happens when ctx ends or the queue closes. A worker panic is re-raised
// here after the others stop.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg conc.WaitGroup
	for _, w := range d.workers {
		wg.Go(func() { w.Run(ctx) })
	}
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, job scan.BatchJob) error {
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
