// Package node is the externally visible face of the stack: a Unix socket
// "device node" inside a "class" directory.
//
// # Registration
//
// Registrar implements core.Registrar. CreateClass ensures the class
// directory exists; CreateNode listens on <dir>/<name> and starts a
// Server. DestroyNode and DestroyClass undo them in reverse order. The
// presence controller decides when these run.
//
// # Sessions
//
// A connection is a session, the analogue of an open file descriptor.
// Opening a session initializes the shared stack if needed. The client
// then streams CBOR requests ({action, value, size}) and reads one
// response ({ok, code, error, data}) per request, in order:
//
//	push      value -> -
//	pop             -> {value, empty}
//	set-size  size  -> -
//	drain           -> {values}
//	stat            -> {capacity, count}
//
// Failure responses carry a stable code (full, bad_size, transient,
// no_memory, unavailable, bad_request, internal). Client sessions turn
// them back into the core sentinels, so errors.Is works on both sides.
//
// # Teardown
//
// Server.Shutdown stops accepting, lets requests already being handled
// finish and answer, closes idle sessions, and waits for all of them.
// Requests read after teardown began are answered "unavailable".
package node
