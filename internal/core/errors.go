package core

import (
	"errors"
	"fmt"

	"github.com/sanverite/intstack/internal/stack"
)

// Service error taxonomy. Every error returned by Service wraps exactly
// one of these, with the underlying stack error kept in the chain.
var (
	// ErrCapacityExceeded reports a push against a saturated stack.
	// The caller may retry after a pop.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrBadSize reports a non-positive capacity request.
	ErrBadSize = errors.New("bad size")

	// ErrTransient reports an abandoned wait for the stack lock. The data
	// is intact; retry the whole operation.
	ErrTransient = errors.New("transient failure, retry")

	// ErrOutOfMemory reports a failed resize allocation. The previous
	// buffer and contents are retained.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrUnavailable reports that the device node is not present or the
	// service has been torn down.
	ErrUnavailable = errors.New("device not present")

	// ErrRegistration reports a failed node registration. Any partial
	// registration has already been unwound.
	ErrRegistration = errors.New("node registration failed")
)

// mapStackError translates stack errors into the service taxonomy.
func mapStackError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stack.ErrFull):
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	case errors.Is(err, stack.ErrInvalidCapacity):
		return fmt.Errorf("%w: %w", ErrBadSize, err)
	case errors.Is(err, stack.ErrInterrupted):
		return fmt.Errorf("%w: %w", ErrTransient, err)
	case errors.Is(err, stack.ErrNoMemory):
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	default:
		return err
	}
}
