// Package sinks implements progress consumers: Prometheus collectors, the
// reward ledger and structured logging.
package sinks
