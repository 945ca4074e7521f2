package node

import (
	"errors"
	"fmt"

	"github.com/sanverite/intstack/internal/codec"
	"github.com/sanverite/intstack/internal/core"
)

// Session actions.
const (
	ActionPush    = "push"
	ActionPop     = "pop"
	ActionSetSize = "set-size"
	ActionDrain   = "drain"
	ActionStat    = "stat"
)

// Response codes. A client branches on these, never on the message text.
const (
	CodeFull        = "full"
	CodeBadSize     = "bad_size"
	CodeTransient   = "transient"
	CodeNoMemory    = "no_memory"
	CodeUnavailable = "unavailable"
	CodeBadRequest  = "bad_request"
	CodeInternal    = "internal"
)

// ErrBadRequest reports a request the node could not decode or route.
var ErrBadRequest = errors.New("bad request")

var errUnavailable = fmt.Errorf("%w: node is shutting down", core.ErrUnavailable)

// Request is one operation on a session. Unused fields are omitted.
type Request struct {
	Action string `cbor:"action"`
	Value  int32  `cbor:"value,omitempty"`
	Size   int64  `cbor:"size,omitempty"`
}

// Response answers exactly one Request.
type Response struct {
	OK    bool             `cbor:"ok"`
	Code  string           `cbor:"code,omitempty"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// PopResult is the data of a pop response. Empty is set when the stack
// had nothing to pop; Value is then meaningless.
type PopResult struct {
	Value int32 `cbor:"value"`
	Empty bool  `cbor:"empty"`
}

// DrainResult is the data of a drain response, most recent first.
type DrainResult struct {
	Values []int32 `cbor:"values"`
}

// StatResult is the data of a stat response.
type StatResult struct {
	Capacity int `cbor:"capacity"`
	Count    int `cbor:"count"`
}

// CodeFor classifies err into a response code.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, core.ErrCapacityExceeded):
		return CodeFull
	case errors.Is(err, core.ErrBadSize):
		return CodeBadSize
	case errors.Is(err, core.ErrTransient):
		return CodeTransient
	case errors.Is(err, core.ErrOutOfMemory):
		return CodeNoMemory
	case errors.Is(err, core.ErrUnavailable):
		return CodeUnavailable
	case errors.Is(err, ErrBadRequest):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}

func sentinelFor(code string) error {
	switch code {
	case CodeFull:
		return core.ErrCapacityExceeded
	case CodeBadSize:
		return core.ErrBadSize
	case CodeTransient:
		return core.ErrTransient
	case CodeNoMemory:
		return core.ErrOutOfMemory
	case CodeUnavailable:
		return core.ErrUnavailable
	case CodeBadRequest:
		return ErrBadRequest
	default:
		return nil
	}
}

// RemoteError is a failure response received by a Session. It unwraps to
// the core sentinel matching its code, so errors.Is(err,
// core.ErrCapacityExceeded) works on the client side.
type RemoteError struct {
	Action  string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return sentinelFor(e.Code)
}

func errorResponse(err error) Response {
	return Response{Code: CodeFor(err), Error: err.Error()}
}
