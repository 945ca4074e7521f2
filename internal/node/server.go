package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sanverite/intstack/internal/codec"
)

// ActionFunc processes one request. Return a value to place in the
// response's data field (nil for none) or an error for a failure
// response.
type ActionFunc func(ctx context.Context, req Request) (any, error)

// ServerOptions configures a Server.
type ServerOptions struct {
	// OnOpen runs once per session before its first request. A failure is
	// sent as the session's only response.
	OnOpen func() error

	// RequestTimeout bounds each request, including the wait for the
	// stack lock. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration

	// IdleTimeout closes sessions that send nothing for this long.
	// Zero means DefaultIdleTimeout.
	IdleTimeout time.Duration

	Logger *slog.Logger
}

const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultIdleTimeout    = 5 * time.Minute
)

// writeTimeout is how long a response may take to reach the client.
const writeTimeout = 10 * time.Second

// Server serves the node session protocol: each connection is a session
// carrying a stream of CBOR requests, each answered by one CBOR response
// in order. Sessions end when the client closes its side.
type Server struct {
	handlers map[string]ActionFunc
	opts     ServerOptions
	logger   *slog.Logger

	// baseCtx parents every request context. It is cancelled only when a
	// shutdown runs out of time.
	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	sessions map[net.Conn]struct{}
	closing  bool

	active sync.WaitGroup
}

// NewServer creates a server. Register actions with Handle before Serve.
func NewServer(opts ServerOptions) *Server {
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		handlers: make(map[string]ActionFunc),
		opts:     opts,
		logger:   opts.Logger,
		baseCtx:  ctx,
		cancel:   cancel,
		sessions: make(map[net.Conn]struct{}),
	}
}

// Handle registers a handler for action. Panics on duplicates.
func (s *Server) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("node.Server: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// Serve accepts sessions on l until Shutdown closes it or the listener
// is closed.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		l.Close()
		return nil
	}
	s.listener = l
	s.mu.Unlock()

	s.logger.Info("node listening", "addr", l.Addr().String())
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isClosing() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		if !s.track(conn) {
			conn.Close()
			continue
		}
		go func() {
			defer s.untrack(conn)
			s.handleSession(conn)
		}()
	}
}

// Shutdown stops accepting sessions, lets requests already being handled
// finish and answer, and closes idle sessions. It returns once every
// session has ended. If ctx expires first, in-flight requests are
// cancelled, remaining connections are closed, and ctx.Err is returned
// after they end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.sessions {
		// Unblocks sessions parked in Decode; a session mid-request
		// notices on its next read.
		conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
	}

	s.cancel()
	s.mu.Lock()
	for conn := range s.sessions {
		conn.Close()
	}
	s.mu.Unlock()
	<-done
	return ctx.Err()
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions[conn] = struct{}{}
	s.active.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.sessions, conn)
	s.mu.Unlock()
	conn.Close()
	s.active.Done()
}

func (s *Server) handleSession(conn net.Conn) {
	s.logger.Debug("session opened")
	defer s.logger.Debug("session closed")

	enc := codec.NewEncoder(conn)
	if s.opts.OnOpen != nil {
		if err := s.opts.OnOpen(); err != nil {
			s.writeResponse(conn, enc, errorResponse(err))
			return
		}
	}

	dec := codec.NewDecoder(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
		if s.isClosing() {
			return
		}

		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrDeadlineExceeded) {
				return
			}
			s.writeResponse(conn, enc, errorResponse(fmt.Errorf("%w: %v", ErrBadRequest, err)))
			return
		}
		if s.isClosing() {
			s.writeResponse(conn, enc, errorResponse(errUnavailable))
			return
		}

		if !s.writeResponse(conn, enc, s.dispatch(req)) {
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	handler, exists := s.handlers[req.Action]
	if !exists {
		return errorResponse(fmt.Errorf("%w: unknown action %q", ErrBadRequest, req.Action))
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, s.opts.RequestTimeout)
	defer cancel()

	result, err := handler(ctx, req)
	resp := Response{OK: true}
	if err != nil {
		s.logger.Debug("action failed", "action", req.Action, "error", err)
		resp = errorResponse(err)
	}

	// A failed action may still carry partial data, such as the values a
	// drain popped before it was interrupted.
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			return errorResponse(fmt.Errorf("marshaling %s result: %w", req.Action, err))
		}
		resp.Data = data
	}
	return resp
}

// writeResponse reports whether the response reached the connection.
func (s *Server) writeResponse(conn net.Conn, enc *codec.Encoder, resp Response) bool {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	defer conn.SetWriteDeadline(time.Time{})
	if err := enc.Encode(resp); err != nil {
		s.logger.Debug("failed to write response", "error", err)
		return false
	}
	return true
}
