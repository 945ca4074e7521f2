// Package api exposes a small HTTP control-plane for the daemon.
//
// # Separation of Concerns
//
// The api package defines public JSON types (decoupled from core), maps
// core snapshots to JSON, and hosts an HTTP server with minimal middleware.
// The core package remains unaware of HTTP or JSON. Stack data never
// travels over HTTP; clients use the device node for that.
//
// # Versioning
//
// All routes are versioned under /v1. Non-breaking additions extend types,
// while breaking changes require a new prefix (/v2).
//
// # Server
//
// NewServer wires handlers onto a ServeMux and configures timeouts. Start()
// runs ListenAndServe() in a goroutine; Stop() performs graceful shutdown.
// Handler() exposes the routed handler for in-process use.
//
// # Error Model
//
// APIError uses a string message and a timestamp in RFC3339. Handlers validate
// methods and respond with 405 where appropriate.
//
// # Current Endpoints
//
//   - GET  /v1/healthz: basic liveness/readiness
//   - GET  /v1/status:  daemon state, presence, stack counters, last probe
//   - POST /v1/attach:  manual attach signal, optional {"device":"vvvv:pppp"}
//   - POST /v1/detach:  manual detach signal
//   - POST /v1/probe:   dial the node and run one stat, optional {"timeout_ms":N}
package api
