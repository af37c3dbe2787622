package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrLoopClosed is returned by Loop.Dispatch after Close.
var ErrLoopClosed = errors.New("flow: loop closed")

// Dispatcher runs callbacks on a delivery context. Dispatch must run fn at
// most once, preserve submission order, and return only after fn has run or
// been discarded. fn is discarded when ctx is cancelled before it starts.
type Dispatcher interface {
	Dispatch(ctx context.Context, fn func()) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, fn func()) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, fn func()) error {
	return f(ctx, fn)
}

// Inline returns a Dispatcher that runs callbacks on the calling goroutine.
func Inline() Dispatcher {
	return DispatcherFunc(func(ctx context.Context, fn func()) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn()
		return nil
	})
}

// LoopConfig controls the Loop queue.
//   - QueueSize: pending callbacks accepted before Dispatch blocks (default 64).
//   - Logger: receives recovered callback panics.
type LoopConfig struct {
	QueueSize int
	Logger    *zap.Logger
}

const defaultLoopQueueSize = 64

type loopTask struct {
	ctx  context.Context
	fn   func()
	done chan struct{}
}

// Loop executes callbacks one at a time on a single goroutine, in the order
// they were dispatched. Callbacks whose context is cancelled by the time they
// reach the head of the queue are skipped.
type Loop struct {
	tasks     chan loopTask
	stopCh    chan struct{}
	doneCh    chan struct{}
	logger    *zap.Logger
	closed    atomic.Bool
	closeOnce sync.Once
	executed  atomic.Int64
	discarded atomic.Int64
}

// NewLoop starts a Loop goroutine.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultLoopQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		tasks:  make(chan loopTask, cfg.QueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l
}

// Dispatch queues fn and waits until the loop has run or discarded it.
func (l *Loop) Dispatch(ctx context.Context, fn func()) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	t := loopTask{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case l.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return ErrLoopClosed
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.doneCh:
		return ErrLoopClosed
	}
}

// Close stops the loop after the callback in progress returns. Pending
// callbacks are discarded. Close is idempotent.
func (l *Loop) Close(ctx context.Context) error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.stopCh)
	})
	select {
	case <-l.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flow loop close wait: %w", ctx.Err())
	}
}

// Stats reports how many callbacks ran and how many were discarded.
func (l *Loop) Stats() (executed, discarded int64) {
	return l.executed.Load(), l.discarded.Load()
}

func (l *Loop) run() {
	defer close(l.doneCh)
	for {
		select {
		case t := <-l.tasks:
			l.exec(t)
		case <-l.stopCh:
			for {
				select {
				case t := <-l.tasks:
					l.discarded.Add(1)
					close(t.done)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) exec(t loopTask) {
	defer close(t.done)
	if t.ctx.Err() != nil {
		l.discarded.Add(1)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("flow loop callback panicked", zap.Any("panic", r))
		}
	}()
	l.executed.Add(1)
	t.fn()
}
