package stack

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStack(t *testing.T, capacity int) *Stack {
	t.Helper()
	s, err := New(capacity)
	require.NoError(t, err)
	return s
}

func stats(t *testing.T, s *Stack) Stats {
	t.Helper()
	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	return st
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  error
	}{
		{"default", DefaultCapacity, nil},
		{"one", 1, nil},
		{"zero", 0, ErrInvalidCapacity},
		{"negative", -3, ErrInvalidCapacity},
		{"too large", MaxCapacity + 1, ErrNoMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.capacity)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Stats{Capacity: tt.capacity}, stats(t, s))
		})
	}
}

func TestPushUntilFull(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t, 5)

	for i := 0; i < 5; i++ {
		n, err := s.Push(ctx, int32(i))
		require.NoError(t, err)
		assert.Equal(t, i+1, n)
	}

	_, err := s.Push(ctx, 99)
	require.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 5, stats(t, s).Count)
}

func TestPopEmpty(t *testing.T) {
	s := newTestStack(t, 3)

	v, ok, err := s.Pop(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, v)
	assert.Equal(t, 0, stats(t, s).Count)
}

func TestPushPopLIFO(t *testing.T) {
	ctx := context.Background()
	for _, v := range []int32{0, 1, -1, 42, -2147483648, 2147483647} {
		s := newTestStack(t, 1)
		_, err := s.Push(ctx, v)
		require.NoError(t, err)

		got, ok, err := s.Pop(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, v, got)
	}
}

func TestResize(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		push      []int32
		resize    int
		wantDrain []int32
		wantStats Stats
	}{
		{
			name:      "shrink keeps oldest",
			capacity:  10,
			push:      []int32{1, 2, 3, 4, 5},
			resize:    3,
			wantDrain: []int32{3, 2, 1},
			wantStats: Stats{Capacity: 3, Count: 3},
		},
		{
			name:      "grow preserves elements",
			capacity:  3,
			push:      []int32{7, 8, 9},
			resize:    8,
			wantDrain: []int32{9, 8, 7},
			wantStats: Stats{Capacity: 8, Count: 3},
		},
		{
			name:      "shrink above count",
			capacity:  10,
			push:      []int32{1, 2},
			resize:    4,
			wantDrain: []int32{2, 1},
			wantStats: Stats{Capacity: 4, Count: 2},
		},
		{
			name:      "shrink to exact count",
			capacity:  10,
			push:      []int32{1, 2, 3},
			resize:    3,
			wantDrain: []int32{3, 2, 1},
			wantStats: Stats{Capacity: 3, Count: 3},
		},
		{
			name:      "resize empty",
			capacity:  2,
			resize:    1,
			wantStats: Stats{Capacity: 1, Count: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStack(t, tt.capacity)
			for _, v := range tt.push {
				_, err := s.Push(ctx, v)
				require.NoError(t, err)
			}

			require.NoError(t, s.Resize(ctx, tt.resize))
			assert.Equal(t, tt.wantStats, stats(t, s))

			got, err := s.Drain(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.wantDrain, got); diff != "" {
				t.Errorf("Drain() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResizeInvalidLeavesStackUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t, 4)
	for _, v := range []int32{1, 2, 3} {
		_, err := s.Push(ctx, v)
		require.NoError(t, err)
	}

	for _, n := range []int{0, -1, -100} {
		require.ErrorIs(t, s.Resize(ctx, n), ErrInvalidCapacity)
	}
	require.ErrorIs(t, s.Resize(ctx, MaxCapacity+1), ErrNoMemory)

	assert.Equal(t, Stats{Capacity: 4, Count: 3}, stats(t, s))
	got, err := s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 2, 1}, got)
}

func TestDrain(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t, DefaultCapacity)
	for _, v := range []int32{1, 2, 3} {
		_, err := s.Push(ctx, v)
		require.NoError(t, err)
	}

	got, err := s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 2, 1}, got)

	got, err = s.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScenarioDefaultCapacity(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t, DefaultCapacity)

	for i := int32(0); i < 10; i++ {
		_, err := s.Push(ctx, i)
		require.NoError(t, err)
	}
	_, err := s.Push(ctx, 99)
	require.ErrorIs(t, err, ErrFull)

	v, ok, err := s.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(9), v)

	_, err = s.Push(ctx, 99)
	require.NoError(t, err)

	got, err := s.Drain(ctx)
	require.NoError(t, err)
	want := []int32{99, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Drain() mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentPushes(t *testing.T) {
	const callers = 64
	s := newTestStack(t, callers)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int]bool, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(v int32) {
			defer wg.Done()
			n, err := s.Push(context.Background(), v)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[n], "post-push count %d observed twice", n)
			seen[n] = true
		}(int32(i))
	}
	wg.Wait()

	assert.Equal(t, callers, stats(t, s).Count)
	assert.Len(t, seen, callers)
}

func TestInterruptedWaitLeavesStateUnchanged(t *testing.T) {
	s := newTestStack(t, 4)
	_, err := s.Push(context.Background(), 1)
	require.NoError(t, err)

	// Hold the lock so every operation below has to wait.
	require.NoError(t, s.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.Push(ctx, 2)
	require.ErrorIs(t, err, ErrInterrupted)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, _, err = s.Pop(ctx)
	require.ErrorIs(t, err, ErrInterrupted)

	require.ErrorIs(t, s.Resize(ctx, 1), ErrInterrupted)

	s.release()
	assert.Equal(t, Stats{Capacity: 4, Count: 1}, stats(t, s))
}

func TestCancelledContextNeverAcquires(t *testing.T) {
	s := newTestStack(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Push(ctx, 1)
	require.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, stats(t, s).Count)
}

func TestDrainReturnsPartialOnInterrupt(t *testing.T) {
	s := newTestStack(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := s.Drain(ctx)
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Empty(t, got)
}
