// Package api implements the HTTP REST API and WebSocket server for carrierd.
//
// This package provides:
//   - REST endpoints for the Device, Portfolio, Location and App Data stores
//   - Event injection into the dispatcher and the session status
//   - Journal listing when a journal is configured
//   - WebSocket hub streaming every event delivery
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Errors
//
// Store errors are mapped to HTTP status by their kind: invalid arguments
// and short buffers are 400, missing entries 404, duplicates, full stores
// and inactive power sources 409, protected values 403, an exhausted
// storage budget 507 and an unprovisioned facility 503.
//
// # Graceful Degradation
//
// MQTT and the journal are optional. Without them the metrics report the
// broker as disconnected and the journal endpoint answers 503.
package api
