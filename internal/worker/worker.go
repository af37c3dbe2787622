// Package worker executes queued batch scan jobs.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/metrics"
	"github.com/JakeFAU/binbuddy/internal/scan"
)

// Source hands out batch jobs.
type Source interface {
	Dequeue(ctx context.Context) (scan.BatchJob, error)
}

// Recorder records single scans and tracks batch progress.
type Recorder interface {
	Record(ctx context.Context, req scan.Request) (scan.Outcome, error)
	UpdateBatch(id string, status scan.BatchStatus, counters scan.BatchCounters, errText string)
}

// Config controls Worker behavior.
type Config struct {
	// MaxAttempts bounds tries per barcode for recoverable failures.
	MaxAttempts int
	// Backoff is the pause before the second attempt; it doubles afterwards.
	Backoff time.Duration
}

// Worker consumes batch jobs and records every barcode in them.
type Worker struct {
	source   Source
	recorder Recorder
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Worker.
func New(source Source, recorder Recorder, cfg Config, logger *zap.Logger) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 250 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{source: source, recorder: recorder, cfg: cfg, logger: logger.Named("worker")}
}

// Run blocks, consuming jobs until the context finishes or the source closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.source.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, scan.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			if !sleep(ctx, w.cfg.Backoff) {
				return
			}
			continue
		}
		w.logger.Debug("dequeued batch", zap.String("batch_id", job.ID), zap.Int("barcodes", len(job.Barcodes)))
		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job scan.BatchJob) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	counters := scan.BatchCounters{}
	w.recorder.UpdateBatch(job.ID, scan.BatchRunning, counters, "")

	errText := ""
	for _, barcode := range job.Barcodes {
		if ctx.Err() != nil {
			break
		}
		if err := w.recordWithRetry(ctx, barcode, job.Location); err != nil {
			if ctx.Err() != nil {
				break
			}
			counters.Failed++
			errText = err.Error()
			w.logger.Warn("batch scan failed",
				zap.String("batch_id", job.ID),
				zap.String("barcode", barcode),
				zap.Error(err),
			)
			w.recorder.UpdateBatch(job.ID, scan.BatchRunning, counters, errText)
			continue
		}
		counters.Recorded++
		w.recorder.UpdateBatch(job.ID, scan.BatchRunning, counters, errText)
	}

	status := deriveFinalStatus(ctx, counters)
	w.recorder.UpdateBatch(job.ID, status, counters, errText)
	metrics.ObserveBatchJob(string(status))
	w.logger.Info("batch finished",
		zap.String("batch_id", job.ID),
		zap.String("status", string(status)),
		zap.Int("recorded", counters.Recorded),
		zap.Int("failed", counters.Failed),
	)
}

// recordWithRetry retries recoverable failures with exponential backoff.
func (w *Worker) recordWithRetry(ctx context.Context, barcode, location string) error {
	backoff := w.cfg.Backoff
	var err error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		_, err = w.recorder.Record(ctx, scan.Request{
			Barcode:   barcode,
			Location:  location,
			WillRetry: attempt < w.cfg.MaxAttempts,
		})
		if err == nil {
			return nil
		}
		var appErr *apperr.Error
		if !errors.As(err, &appErr) || !appErr.IsRecoverable() || attempt == w.cfg.MaxAttempts {
			return err
		}
		w.logger.Debug("retrying scan", zap.String("barcode", barcode), zap.Int("attempt", attempt), zap.Error(err))
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
	}
	return err
}

func deriveFinalStatus(ctx context.Context, counters scan.BatchCounters) scan.BatchStatus {
	switch {
	case ctx.Err() != nil:
		return scan.BatchCanceled
	case counters.Recorded == 0:
		return scan.BatchFailed
	case counters.Failed > 0:
		return scan.BatchPartial
	default:
		return scan.BatchSucceeded
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
