package flow

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// State reports where a Collector is in its lifecycle.
type State int

// Collector states. Completed, Errored and Cancelled are terminal.
const (
	NotStarted State = iota
	Running
	Completed
	Errored
	Cancelled
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Errored:
		return "errored"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is absorbing.
func (s State) Terminal() bool {
	return s == Completed || s == Errored || s == Cancelled
}

// Option configures a Collector.
type Option func(*options)

type options struct {
	dispatcher Dispatcher
	logger     *zap.Logger
	parent     context.Context
}

// WithDispatcher sets the delivery context for callbacks. Defaults to Inline.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) {
		if d != nil {
			o.dispatcher = d
		}
	}
}

// WithLogger attaches a logger for lifecycle diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithContext derives the collector scope from parent instead of
// context.Background. Cancelling parent behaves like Cancel.
func WithContext(parent context.Context) Option {
	return func(o *options) {
		if parent != nil {
			o.parent = parent
		}
	}
}

// Collector delivers the values of a Stream to callbacks. The zero value is
// not usable; construct with NewCollector.
type Collector[T any] struct {
	stream     Stream[T]
	onValue    func(T)
	onError    func(error)
	dispatcher Dispatcher
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	active   int
	done     chan struct{}
	doneOnce sync.Once
	errOnce  sync.Once
}

// NewCollector builds a Collector for stream. onError may be nil, in which
// case failures are dropped.
func NewCollector[T any](stream Stream[T], onValue func(T), onError func(error), opts ...Option) *Collector[T] {
	o := options{
		dispatcher: Inline(),
		logger:     zap.NewNop(),
		parent:     context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if onValue == nil {
		onValue = func(T) {}
	}
	ctx, cancel := context.WithCancel(o.parent)
	return &Collector[T]{
		stream:     stream,
		onValue:    onValue,
		onError:    onError,
		dispatcher: o.dispatcher,
		logger:     o.logger,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start begins collecting the stream on a new goroutine and returns
// immediately. Each call opens an independent subscription.
func (c *Collector[T]) Start() {
	c.mu.Lock()
	if c.state == NotStarted {
		c.state = Running
	}
	c.active++
	c.mu.Unlock()
	go c.collect()
}

// Cancel stops delivery. It is idempotent and safe to call at any time.
func (c *Collector[T]) Cancel() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Terminal() {
		c.state = Cancelled
	}
	if c.active == 0 {
		c.closeDone()
	}
}

// Done is closed once the collector is terminal and no subscription is still
// running.
func (c *Collector[T]) Done() <-chan struct{} {
	return c.done
}

// State returns the current lifecycle state.
func (c *Collector[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Collector[T]) collect() {
	var err error
	if c.stream == nil {
		err = errors.New("flow: nil stream")
	} else {
		err = c.stream.Collect(c.ctx, c.deliver)
	}
	c.finish(err)
}

func (c *Collector[T]) deliver(v T) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	return c.dispatcher.Dispatch(c.ctx, func() {
		c.onValue(v)
	})
}

func (c *Collector[T]) finish(err error) {
	next := Completed
	switch {
	case err == nil:
	case c.ctx.Err() != nil || errors.Is(err, context.Canceled):
		next = Cancelled
		c.logger.Debug("stream collection cancelled", zap.Error(err))
	default:
		next = Errored
		c.reportError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Terminal() {
		c.state = next
	}
	c.active--
	if c.active == 0 {
		c.closeDone()
	}
}

func (c *Collector[T]) reportError(err error) {
	if c.onError == nil {
		c.logger.Debug("stream failed with no error callback", zap.Error(err))
		return
	}
	c.errOnce.Do(func() {
		if dispatchErr := c.dispatcher.Dispatch(c.ctx, func() { c.onError(err) }); dispatchErr != nil {
			c.logger.Debug("stream error discarded", zap.Error(err), zap.NamedError("dispatch", dispatchErr))
		}
	})
}

func (c *Collector[T]) closeDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// First collects s through a Collector and returns its first value. It
// returns ErrEmpty when s completes without values, the stream's error when
// it fails, and ctx.Err() when ctx ends first.
func First[T any](ctx context.Context, s Stream[T], opts ...Option) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	var zero T
	// Callbacks run in emission order, so the first send decides the outcome.
	first := make(chan outcome, 1)
	offer := func(o outcome) {
		select {
		case first <- o:
		default:
		}
	}
	opts = append(opts, WithContext(ctx))
	c := NewCollector(s,
		func(v T) { offer(outcome{v: v}) },
		func(err error) { offer(outcome{err: err}) },
		opts...,
	)
	c.Start()
	defer c.Cancel()

	select {
	case o := <-first:
		return o.v, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-c.Done():
	}
	select {
	case o := <-first:
		return o.v, o.err
	default:
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, ErrEmpty
}
