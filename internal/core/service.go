package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sanverite/intstack/internal/stack"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// DefaultCapacity is the capacity of the lazily created stack.
	// Zero means stack.DefaultCapacity.
	DefaultCapacity int
	Logger          *slog.Logger
}

// StackSnapshot describes the shared stack for the read model.
type StackSnapshot struct {
	Initialized bool
	Capacity    int
	Count       int
}

// Service owns the single shared stack. The stack is created on first
// use and lives until Close; every client shares it and its lock.
type Service struct {
	mu       sync.Mutex
	stack    *stack.Stack
	closed   bool
	capacity int
	logger   *slog.Logger
}

// NewService constructs a Service. No stack exists until the first Open
// or operation.
func NewService(opts ServiceOptions) *Service {
	if opts.DefaultCapacity == 0 {
		opts.DefaultCapacity = stack.DefaultCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		capacity: opts.DefaultCapacity,
		logger:   opts.Logger,
	}
}

// Open ensures the stack exists. It is safe to call on every client
// interaction and never resets an existing stack.
func (s *Service) Open() error {
	_, err := s.instance()
	return err
}

func (s *Service) instance() (*stack.Stack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrUnavailable
	}
	if s.stack != nil {
		return s.stack, nil
	}
	st, err := stack.New(s.capacity)
	if err != nil {
		return nil, mapStackError(err)
	}
	s.stack = st
	s.logger.Info("stack initialized", "capacity", s.capacity)
	return st, nil
}

// Push stores v on top of the shared stack.
func (s *Service) Push(ctx context.Context, v int32) error {
	st, err := s.instance()
	if err != nil {
		return err
	}
	_, err = st.Push(ctx, v)
	return mapStackError(err)
}

// Pop removes the top value. ok is false when the stack was empty.
func (s *Service) Pop(ctx context.Context) (v int32, ok bool, err error) {
	st, err := s.instance()
	if err != nil {
		return 0, false, err
	}
	v, ok, err = st.Pop(ctx)
	return v, ok, mapStackError(err)
}

// Resize changes the stack capacity to n.
func (s *Service) Resize(ctx context.Context, n int) error {
	if n <= 0 {
		return mapStackError(stack.ErrInvalidCapacity)
	}
	st, err := s.instance()
	if err != nil {
		return err
	}
	if err := st.Resize(ctx, n); err != nil {
		return mapStackError(err)
	}
	s.logger.Info("stack resized", "capacity", n)
	return nil
}

// Drain pops until empty and returns the values most recent first.
func (s *Service) Drain(ctx context.Context) ([]int32, error) {
	st, err := s.instance()
	if err != nil {
		return nil, err
	}
	values, err := st.Drain(ctx)
	return values, mapStackError(err)
}

// Stats reports the stack dimensions, initializing the stack if needed.
func (s *Service) Stats(ctx context.Context) (stack.Stats, error) {
	st, err := s.instance()
	if err != nil {
		return stack.Stats{}, err
	}
	stats, err := st.Stats(ctx)
	return stats, mapStackError(err)
}

// Snapshot reports the stack without creating it. A stack whose lock
// cannot be taken before ctx is done is reported as initialized with
// zero dimensions.
func (s *Service) Snapshot(ctx context.Context) StackSnapshot {
	s.mu.Lock()
	st := s.stack
	s.mu.Unlock()

	if st == nil {
		return StackSnapshot{}
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		return StackSnapshot{Initialized: true}
	}
	return StackSnapshot{Initialized: true, Capacity: stats.Capacity, Count: stats.Count}
}

// Close destroys the stack. Later operations fail with ErrUnavailable.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stack = nil
	s.logger.Info("stack destroyed")
}
