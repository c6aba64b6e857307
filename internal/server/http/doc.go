// Package httpserver exposes the agent's local ingestion and management API.
//
// Routes:
//   - GET    /v1/healthz     liveness
//   - POST   /v1/events      ingest one event {type, data}
//   - GET    /v1/queue/stats queue size
//   - POST   /v1/queue/flush immediate upload run, returns the outcome
//   - DELETE /v1/queue       drop all queued events
//   - PATCH  /v1/config      partial reconfiguration
package httpserver
