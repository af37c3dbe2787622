package flow

import (
	"context"
	"errors"
)

// ErrEmpty is returned by First when a stream completes without values.
var ErrEmpty = errors.New("flow: stream completed without values")

// Stream is a cold producer of T. Collect pushes values to emit in order and
// returns nil on completion. It must return promptly once ctx is cancelled or
// emit returns an error, typically by returning that error.
type Stream[T any] interface {
	Collect(ctx context.Context, emit func(T) error) error
}

// Func adapts a function to the Stream interface.
type Func[T any] func(ctx context.Context, emit func(T) error) error

// Collect calls f.
func (f Func[T]) Collect(ctx context.Context, emit func(T) error) error {
	return f(ctx, emit)
}

// Of returns a Stream that emits values and completes.
func Of[T any](values ...T) Stream[T] {
	items := append([]T(nil), values...)
	return Func[T](func(ctx context.Context, emit func(T) error) error {
		for _, v := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Fail returns a Stream that terminates with err without emitting.
func Fail[T any](err error) Stream[T] {
	return Func[T](func(context.Context, func(T) error) error {
		return err
	})
}

// FromChannel emits every value received on ch until it is closed.
func FromChannel[T any](ch <-chan T) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T) error) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case v, ok := <-ch:
				if !ok {
					return nil
				}
				if err := emit(v); err != nil {
					return err
				}
			}
		}
	})
}

// Concat emits the values of each stream in turn. Collection stops at the
// first stream that fails.
func Concat[T any](streams ...Stream[T]) Stream[T] {
	return Func[T](func(ctx context.Context, emit func(T) error) error {
		for _, s := range streams {
			if s == nil {
				continue
			}
			if err := s.Collect(ctx, emit); err != nil {
				return err
			}
		}
		return nil
	})
}
