package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sanverite/intstack/internal/core"
	"github.com/sanverite/intstack/internal/probe"
)

// Constants for route prefixing. Versioning is explicit to allow non-breaking additions.
const (
	APIVersion     = "v1"
	DefaultAddress = "127.0.0.1:8787"
)

// maxProbeTimeout caps the timeout a caller may request for POST /v1/probe.
const maxProbeTimeout = 30 * time.Second

// ServerOptions configures the HTTP server.
// Timeouts are conservative defaults suitable for a local control-plane server.
type ServerOptions struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	// Device is reported by POST /v1/attach when the request names none.
	Device core.DeviceID
	Logger *slog.Logger

	// ProbeLogger receives node probe results. Nil means Logger.
	ProbeLogger *slog.Logger
}

// Server hosts the HTTP API for the daemon.
type Server struct {
	http    *http.Server
	handler http.Handler
	state   *core.State
	logger  *slog.Logger
	opts    ServerOptions
}

// NewServer constructs a new API server bound to the provided State.
// The server does not start listening until Start is called.
func NewServer(state *core.State, opts ServerOptions) *Server {
	if state == nil {
		panic("api.NewServer: state is nil")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		// Long enough for a probe at maxProbeTimeout.
		opts.WriteTimeout = maxProbeTimeout + 5*time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Device.IsZero() {
		opts.Device = core.DefaultDevice
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ProbeLogger == nil {
		opts.ProbeLogger = opts.Logger
	}

	mux := http.NewServeMux()
	s := &Server{
		state:   state,
		logger:  opts.Logger,
		opts:    opts,
		handler: withBasicMiddleware(mux, opts.Logger),
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(opts.Logger.Handler(), slog.LevelError),
		BaseContext: func(l net.Listener) context.Context {
			return context.Background()
		},
	}

	// Routes
	mux.HandleFunc("/"+APIVersion+"/healthz", s.handleHealthz)
	mux.HandleFunc("/"+APIVersion+"/status", s.handleStatus)
	mux.HandleFunc("/"+APIVersion+"/attach", s.handleAttach)
	mux.HandleFunc("/"+APIVersion+"/detach", s.handleDetach)
	mux.HandleFunc("/"+APIVersion+"/probe", s.handleProbe)

	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins serving HTTP in a background goroutine.
// It returns immediately; use Stop for graceful shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info("api listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", "error", err)
			s.state.AppendWarning("api: " + err.Error())
		}
	}()
}

// Stop gracefully shuts down the server, waiting up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.opts.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

// handleHealthz is a simple readiness/liveness endpoint.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": TimeNow().UTC().Format(time.RFC3339),
	})
}

// handleStatus returns the current daemon snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := s.state.GetSnapshot()
	writeJSON(w, http.StatusOK, FromCoreSnapshot(snap))
}

// handleAttach delivers a manual attach signal.
// Method: POST
// Request: AttachRequest JSON (optional body)
// Response (200): PresenceView JSON
// Errors:
//   - 400 for malformed JSON or device id
//   - 500 when registration failed and was unwound
func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req AttachRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	device := s.opts.Device
	if req.Device != "" {
		parsed, err := core.ParseDeviceID(req.Device)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		device = parsed
	}

	if err := s.state.Presence().OnAttach(device); err != nil {
		writeError(w, http.StatusInternalServerError, "attach failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, FromPresenceSnapshot(s.state.Presence().Snapshot()))
}

// handleDetach delivers a manual detach signal. It always succeeds.
// Method: POST
// Response (200): PresenceView JSON
func (s *Server) handleDetach(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	s.state.Presence().OnDetach()
	writeJSON(w, http.StatusOK, FromPresenceSnapshot(s.state.Presence().Snapshot()))
}

// handleProbe runs a bounded node probe and returns a ProbeView.
// Method: POST
// Request: ProbeRequest JSON (optional body)
// Response (200): ProbeView JSON (same shape as "last_probe" in /v1/status)
// Errors:
//   - 400 for invalid inputs (negative or oversized timeout)
//   - 503 when the node is absent or the probe failed; state still updates
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req ProbeRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	if req.TimeoutMS < 0 || timeout > maxProbeTimeout {
		writeError(w, http.StatusBadRequest, "timeout_ms must be between 0 and "+
			maxProbeTimeout.String())
		return
	}

	presence := s.state.Presence().Snapshot()
	if presence.State != core.PresencePresent {
		s.state.UpdateProbe(core.ProbeSummary{
			LastChecked: TimeNow(),
			Warnings:    []string{"node absent: " + core.ErrUnavailable.Error()},
		})
		writeError(w, http.StatusServiceUnavailable, core.ErrUnavailable.Error())
		return
	}

	summary, err := probe.ProbeNode(r.Context(), probe.Config{
		Path:    presence.NodePath,
		Timeout: timeout,
		Logger:  s.opts.ProbeLogger,
	})

	// Persist the result regardless of success.
	s.state.UpdateProbe(summary)

	if err != nil {
		// Details available via /v1/status last_probe.warnings.
		writeError(w, http.StatusServiceUnavailable, "probe failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, FromProbeSummary(summary))
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeOptional strictly decodes a JSON body into v. An empty body leaves
// v at its zero value.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// Basic middleware: sets JSON content type and very lightweight logging.
// No CORS or auth because this is a local control-plane service.
func withBasicMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := TimeNow()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
			"user_agent", r.UserAgent(),
		)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIError{
		Error:     msg,
		Timestamp: TimeNow().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
