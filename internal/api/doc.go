// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - GET /healthz and /readyz for probes, GET /metrics for Prometheus.
//   - GET /v1/products/{barcode} for the first lookup result, and
//     /v1/products/{barcode}/events for every result as server-sent events.
//   - POST /v1/scans and /v1/scans/batch to record scans.
//   - /v1/favorites, /v1/categories and /v1/progress for the user profile.
package api
