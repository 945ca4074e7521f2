package api

import "time"

// Public JSON types returned by the API. These are intentionally decoupled
// from the internal core types to preserve API stability and allow internal
// refactors without breaking clients.

// StatusResponse is the top-level payload for GET /v1/status.
type StatusResponse struct {
	State       string       `json:"state"`
	StartedAt   string       `json:"started_at"`
	UptimeSec   int64        `json:"uptime_sec"`
	Warnings    []string     `json:"warnings"`
	Presence    PresenceView `json:"presence"`
	Stack       StackView    `json:"stack"`
	LastProbe   ProbeView    `json:"last_probe"`
	GeneratedAt string       `json:"generated_at"`
}

// PresenceView describes whether the device node is registered.
type PresenceView struct {
	State      string `json:"state"`                 // "absent" or "present"
	Device     string `json:"device,omitempty"`      // "vvvv:pppp" while present
	NodePath   string `json:"node_path,omitempty"`   // socket path while present
	AttachedAt string `json:"attached_at,omitempty"` // RFC3339
	Attaches   uint64 `json:"attaches"`
	Detaches   uint64 `json:"detaches"`
}

// StackView summarizes the shared stack. Capacity and Count are zero
// until the first session opens the node.
type StackView struct {
	Initialized bool `json:"initialized"`
	Capacity    int  `json:"capacity"`
	Count       int  `json:"count"`
}

// ProbeView summarizes the last node probe.
type ProbeView struct {
	Reachable   bool             `json:"reachable"`
	ProtocolOK  bool             `json:"protocol_ok"`
	Capacity    int              `json:"capacity"`
	Count       int              `json:"count"`
	LatenciesMs map[string]int64 `json:"latencies_ms"`
	LastChecked string           `json:"last_checked"`
	Warnings    []string         `json:"warnings"`
}

// AttachRequest is the body of POST /v1/attach. Device defaults to the
// configured id when empty.
type AttachRequest struct {
	Device string `json:"device,omitempty"`
}

// ProbeRequest is the body of POST /v1/probe.
type ProbeRequest struct {
	TimeoutMS int `json:"timeout_ms,omitempty"`
}

// APIError is a standard error payload.
type APIError struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"` // RFC3339
}

// TimeNow abstracts time for tests; overridden in tests.
var TimeNow = func() time.Time { return time.Now() }
