package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sanverite/intstack/internal/codec"
	"github.com/sanverite/intstack/internal/core"
)

// dialTimeout covers only the connect phase.
const dialTimeout = 5 * time.Second

// callTimeout bounds a call whose context carries no deadline. It sits
// above the server's request timeout so the server answers first.
const callTimeout = 15 * time.Second

// Client opens sessions on a node socket.
type Client struct {
	path string
}

// NewClient returns a client for the node at path.
func NewClient(path string) *Client {
	return &Client{path: path}
}

// Open starts a session. A node that does not exist or does not accept
// connections yields an error wrapping core.ErrUnavailable.
func (c *Client) Open(ctx context.Context) (*Session, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ECONNREFUSED) {
			return nil, fmt.Errorf("%w: %s: %w", core.ErrUnavailable, c.path, err)
		}
		return nil, fmt.Errorf("opening %s: %w", c.path, err)
	}
	return &Session{
		conn: conn,
		enc:  codec.NewEncoder(conn),
		dec:  codec.NewDecoder(conn),
	}, nil
}

// Session is an open connection to the node. It is not safe for
// concurrent use; open one session per goroutine.
type Session struct {
	conn net.Conn
	enc  *codec.Encoder
	dec  *codec.Decoder
}

// Close ends the session.
func (s *Session) Close() error {
	return s.conn.Close()
}

// Push pushes v.
func (s *Session) Push(ctx context.Context, v int32) error {
	return s.call(ctx, Request{Action: ActionPush, Value: v}, nil)
}

// Pop pops the top value. ok is false when the stack was empty.
func (s *Session) Pop(ctx context.Context) (v int32, ok bool, err error) {
	var res PopResult
	if err := s.call(ctx, Request{Action: ActionPop}, &res); err != nil {
		return 0, false, err
	}
	return res.Value, !res.Empty, nil
}

// SetSize changes the stack capacity.
func (s *Session) SetSize(ctx context.Context, n int) error {
	return s.call(ctx, Request{Action: ActionSetSize, Size: int64(n)}, nil)
}

// Drain pops everything. Values popped before a failure are returned
// alongside the error.
func (s *Session) Drain(ctx context.Context) ([]int32, error) {
	var res DrainResult
	err := s.call(ctx, Request{Action: ActionDrain}, &res)
	return res.Values, err
}

// Stat reports the stack dimensions.
func (s *Session) Stat(ctx context.Context) (StatResult, error) {
	var res StatResult
	err := s.call(ctx, Request{Action: ActionStat}, &res)
	return res, err
}

func (s *Session) call(ctx context.Context, req Request, result any) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(callTimeout)
	}
	s.conn.SetDeadline(deadline)
	defer s.conn.SetDeadline(time.Time{})

	stop := context.AfterFunc(ctx, func() {
		s.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := s.enc.Encode(req); err != nil {
		return s.transportError(ctx, req.Action, "writing request", err)
	}
	var resp Response
	if err := s.dec.Decode(&resp); err != nil {
		return s.transportError(ctx, req.Action, "reading response", err)
	}

	if result != nil && len(resp.Data) > 0 {
		if err := codec.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("decoding %s response: %w", req.Action, err)
		}
	}
	if !resp.OK {
		return &RemoteError{Action: req.Action, Code: resp.Code, Message: resp.Error}
	}
	return nil
}

func (s *Session) transportError(ctx context.Context, action, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %w", action, core.ErrTransient, ctxErr)
	}
	// The node closed the session, typically because it is being removed.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, unix.ECONNRESET) || errors.Is(err, unix.EPIPE) {
		return fmt.Errorf("%s: %w: %w", action, core.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %s: %w", action, step, err)
}
