package domain

import "github.com/JakeFAU/binbuddy/internal/apperr"

// Result is one emission of a lookup stream. A successful Result may still
// carry an Offline warning in Err when it was served from stored data.
type Result[T any] struct {
	Data      T             `json:"data"`
	Err       *apperr.Error `json:"-"`
	OK        bool          `json:"ok"`
	FromCache bool          `json:"from_cache"`
}

// Success wraps freshly fetched data.
func Success[T any](data T) Result[T] {
	return Result[T]{Data: data, OK: true}
}

// SuccessFromCache wraps stored data.
func SuccessFromCache[T any](data T) Result[T] {
	return Result[T]{Data: data, OK: true, FromCache: true}
}

// Failure wraps err.
func Failure[T any](err *apperr.Error) Result[T] {
	return Result[T]{Err: err, OK: false}
}

// Offline returns cached data flagged with an offline warning when hasCached
// is true, and an offline failure otherwise.
func Offline[T any](cached T, hasCached bool, msg string) Result[T] {
	if hasCached {
		return Result[T]{Data: cached, OK: true, FromCache: true, Err: apperr.Offline(msg)}
	}
	return Failure[T](apperr.Offline(msg))
}

// Warning returns the user message attached to a successful result.
func (r Result[T]) Warning() string {
	if r.OK && r.Err != nil {
		return r.Err.UserMessage
	}
	return ""
}
