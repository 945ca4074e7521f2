package stack

import (
	"context"
	"errors"
	"fmt"
)

// DefaultCapacity is the capacity of a freshly created stack.
const DefaultCapacity = 10

// MaxCapacity bounds Resize. Requests above it fail with ErrNoMemory
// instead of attempting the allocation.
const MaxCapacity = 1 << 20

var (
	// ErrFull is returned by Push when count == capacity.
	ErrFull = errors.New("stack is full")

	// ErrInvalidCapacity is returned for a non-positive capacity.
	ErrInvalidCapacity = errors.New("capacity must be positive")

	// ErrNoMemory is returned when a new buffer cannot be allocated.
	ErrNoMemory = errors.New("cannot allocate stack buffer")

	// ErrInterrupted is returned when the wait for the lock is abandoned.
	ErrInterrupted = errors.New("interrupted while waiting for stack lock")
)

// Stats is a point-in-time view of the stack dimensions.
type Stats struct {
	Capacity int
	Count    int
}

// Stack is a mutex-protected LIFO of int32 with a fixed capacity that
// changes only through Resize.
type Stack struct {
	lock  chan struct{}
	data  []int32
	count int
}

// New creates an empty stack holding at most capacity elements.
func New(capacity int) (*Stack, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if capacity > MaxCapacity {
		return nil, ErrNoMemory
	}
	return &Stack{
		lock: make(chan struct{}, 1),
		data: make([]int32, capacity),
	}, nil
}

// acquire takes the lock or gives up when ctx is done. A context that is
// already done never acquires, so an interrupted call cannot mutate.
func (s *Stack) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}
}

func (s *Stack) release() {
	<-s.lock
}

// Push stores v on top of the stack and returns the count after the push.
func (s *Stack) Push(ctx context.Context, v int32) (int, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.release()

	if s.count == len(s.data) {
		return s.count, ErrFull
	}
	s.data[s.count] = v
	s.count++
	return s.count, nil
}

// Pop removes and returns the top element. ok is false when the stack
// was empty; an empty stack is not an error.
func (s *Stack) Pop(ctx context.Context) (v int32, ok bool, err error) {
	if err := s.acquire(ctx); err != nil {
		return 0, false, err
	}
	defer s.release()

	if s.count == 0 {
		return 0, false, nil
	}
	s.count--
	v = s.data[s.count]
	s.data[s.count] = 0
	return v, true, nil
}

// Resize changes the capacity to n. Elements at indices 0..min(count, n)
// are kept in order; if count exceeds n the most recently pushed excess
// is dropped. The old buffer stays in place until the new one exists.
func (s *Stack) Resize(ctx context.Context, n int) error {
	if n <= 0 {
		return ErrInvalidCapacity
	}
	if n > MaxCapacity {
		return ErrNoMemory
	}
	buf := make([]int32, n)

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	keep := min(s.count, n)
	copy(buf, s.data[:keep])
	s.data = buf
	s.count = keep
	return nil
}

// Drain pops until the stack is empty and returns the values in pop
// order. Each pop takes the lock separately, so pushes from other callers
// may interleave. On error the values popped so far are returned with it.
func (s *Stack) Drain(ctx context.Context) ([]int32, error) {
	var out []int32
	for {
		v, ok, err := s.Pop(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Stats returns the current capacity and count.
func (s *Stack) Stats(ctx context.Context) (Stats, error) {
	if err := s.acquire(ctx); err != nil {
		return Stats{}, err
	}
	defer s.release()
	return Stats{Capacity: len(s.data), Count: s.count}, nil
}
