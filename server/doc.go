// Package server is the HTTP control surface of livecue: a gin engine
// served over HTTP/1.1 and cleartext HTTP/2, the standard middleware stack
// and the health, info and metrics endpoints.
//
// Middleware (server/middleware): panic recovery, request ids, request
// logging with OpenTelemetry request metrics, CORS, body size limits and
// per-client rate limiting.
//
// Endpoints (server/endpoint): /health, /health/live, /health/ready,
// /info and /metrics. The capture, submit and event routes live in
// server/api.
package server
