// Package probe contains active checks of the device node used by the
// control plane.
//
// # Node Probe
//
// ProbeNode validates the device node with the following sequence:
//  1. Dial the node socket (sets Reachable on success).
//  2. One stat round-trip (sets ProtocolOK and records Capacity/Count).
//
// Opening a session initializes the stack the same way any client open
// does; the probe never pushes or pops.
//
// # Outputs & Semantics
//
// ProbeNode returns core.ProbeSummary capturing:
//   - Reachable:   true if the socket dial succeeded.
//   - ProtocolOK:  true if the stat request was answered.
//   - LatenciesMs: per-step timings in ms ("dial", "stat").
//   - Warnings:    non-fatal anomalies collected during the run.
//   - LastChecked: wall-clock timestamp when the probe completed.
//
// # Error Model
//
// Transport or protocol failures return a non-nil error; the summary still
// includes any partial timings and warnings. Callers can persist the result
// in core.State via UpdateProbe and expose it through the API.
//
// The probe enforces a single deadline through its context, avoids global
// state, and does not spawn background goroutines. It is safe to call
// concurrently.
package probe
