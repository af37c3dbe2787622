// Package progress carries scan pipeline events from the request path to
// sinks without blocking it. Emitters hand events to a Hub, which batches
// them on a background goroutine and fans each batch out to sinks such as
// Prometheus collectors, structured logs or the reward ledger.
package progress
