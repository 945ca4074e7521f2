package node

import (
	"context"
	"fmt"
	"math"

	"github.com/sanverite/intstack/internal/core"
)

// NewStackServer returns a server exposing svc through the session
// actions. Every session opens the service first, so the shared stack
// exists before the first request.
func NewStackServer(svc *core.Service, opts ServerOptions) *Server {
	opts.OnOpen = svc.Open
	s := NewServer(opts)

	s.Handle(ActionPush, func(ctx context.Context, req Request) (any, error) {
		return nil, svc.Push(ctx, req.Value)
	})

	s.Handle(ActionPop, func(ctx context.Context, req Request) (any, error) {
		v, ok, err := svc.Pop(ctx)
		if err != nil {
			return nil, err
		}
		return PopResult{Value: v, Empty: !ok}, nil
	})

	s.Handle(ActionSetSize, func(ctx context.Context, req Request) (any, error) {
		if req.Size > math.MaxInt32 {
			return nil, fmt.Errorf("%w: size %d", core.ErrOutOfMemory, req.Size)
		}
		return nil, svc.Resize(ctx, int(req.Size))
	})

	s.Handle(ActionDrain, func(ctx context.Context, req Request) (any, error) {
		values, err := svc.Drain(ctx)
		if err != nil && len(values) == 0 {
			return nil, err
		}
		if values == nil {
			values = []int32{}
		}
		return DrainResult{Values: values}, err
	})

	s.Handle(ActionStat, func(ctx context.Context, req Request) (any, error) {
		stats, err := svc.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return StatResult{Capacity: stats.Capacity, Count: stats.Count}, nil
	})

	return s
}
