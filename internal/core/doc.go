// Package core owns the shared integer stack service, the presence state
// machine that gates the device node, and the daemon read model.
//
// # Service
//
// Service holds at most one stack.Stack, created lazily by the first Open
// or operation with the configured default capacity and never recreated
// while present. All clients share that one instance. Stack errors are
// mapped onto the service taxonomy: ErrCapacityExceeded, ErrBadSize,
// ErrTransient, ErrOutOfMemory and ErrUnavailable. The underlying stack
// error stays in the chain for errors.Is.
//
// # Presence
//
// Presence is a two-state machine:
//
//	absent  -> present  on OnAttach (registers class, then node)
//	present -> present  on OnAttach (no-op)
//	present -> absent   on OnDetach (destroys node, then class)
//	absent  -> absent   on OnDetach (no-op)
//
// A registration that fails partway is unwound before OnAttach returns
// and the controller stays absent. Presence never touches stack state;
// the stack outlives detach and re-attach.
//
// # Lifecycle
//
// State tracks the daemon's coarse lifecycle:
//
//	inactive -> starting
//	starting -> active | error | inactive
//	active   -> stopping | error
//	stopping -> inactive | error
//	error    -> inactive | starting
//
// GetSnapshot composes lifecycle, presence, stack dimensions and the last
// node probe into one copy for the API layer.
package core
