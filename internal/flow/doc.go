// Package flow bridges push-based value streams to plain callbacks.
//
// A Stream produces zero or more values in order and then terminates by
// completing, failing, or observing cancellation of the context it was
// collected with. Collector adapts a Stream for callers that cannot consume
// one directly: it owns a cancellable scope, collects the stream on a new
// goroutine once Start is called, and hands every value to an onValue
// callback through a Dispatcher. Cancel tears the scope down; queued
// deliveries are discarded and the resulting cancellation is never reported
// as an error.
//
// Errors other than cancellation reach the optional onError callback exactly
// once, after which no values are delivered. When no onError callback is
// supplied such errors are dropped.
//
// Dispatchers decide where callbacks run. Inline runs them on the collecting
// goroutine. Loop runs them on one long-lived goroutine shared by every
// collector bound to it, which is how HTTP and CLI front-ends serialize
// updates coming from several streams.
package flow
