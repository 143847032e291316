// Package api is the HTTP side of cotbridge: listener control, symbol
// lookup and ad-hoc enrichment, the listener audit trail, and a websocket
// stream of enriched events and listener transitions.
//
// Routes live under /api/v1; Prometheus metrics are served on /metrics.
// Without a database /api/v1/audit answers 503 and everything else keeps
// working.
package api
