package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() *State {
	return NewState(newTestService(4), newTestPresence(&fakeRegistrar{}))
}

func TestSetAgentState(t *testing.T) {
	tests := []struct {
		name    string
		path    []AgentState
		wantErr bool
	}{
		{"normal lifecycle", []AgentState{StateStarting, StateActive, StateStopping, StateInactive}, false},
		{"idempotent", []AgentState{StateInactive, StateStarting, StateStarting}, false},
		{"start failure", []AgentState{StateStarting, StateError, StateInactive}, false},
		{"skip starting", []AgentState{StateActive}, true},
		{"stop while inactive", []AgentState{StateStopping}, true},
		{"active back to starting", []AgentState{StateStarting, StateActive, StateStarting}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState()
			var err error
			for _, next := range tt.path {
				if err = s.SetAgentState(next); err != nil {
					break
				}
			}
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path[len(tt.path)-1], s.AgentState())
		})
	}
}

func TestStartedAtFollowsLifecycle(t *testing.T) {
	s := newTestState()
	assert.Zero(t, s.Uptime())

	require.NoError(t, s.SetAgentState(StateStarting))
	require.NoError(t, s.SetAgentState(StateActive))
	assert.False(t, s.GetSnapshot().StartedAt.IsZero())

	require.NoError(t, s.SetAgentState(StateStopping))
	require.NoError(t, s.SetAgentState(StateInactive))
	assert.True(t, s.GetSnapshot().StartedAt.IsZero())
	assert.Zero(t, s.GetSnapshot().Uptime)
	assert.Zero(t, s.Uptime())
}

func TestSnapshotComposesPresenceAndStack(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.Presence().OnAttach(DefaultDevice))
	require.NoError(t, s.Service().Push(context.Background(), 7))

	snap := s.GetSnapshot()
	assert.Equal(t, PresencePresent, snap.Presence.State)
	assert.Equal(t, StackSnapshot{Initialized: true, Capacity: 4, Count: 1}, snap.Stack)
}

func TestSnapshotCopiesProbeAndWarnings(t *testing.T) {
	s := newTestState()
	s.AppendWarning("")
	s.AppendWarning("hotplug disabled")

	probe := ProbeSummary{
		Reachable:   true,
		LatenciesMs: map[string]int64{"dial": 1},
		Warnings:    []string{"slow"},
	}
	s.UpdateProbe(probe)
	probe.LatenciesMs["dial"] = 99
	probe.Warnings[0] = "changed"

	snap := s.GetSnapshot()
	assert.Equal(t, []string{"hotplug disabled"}, snap.Warnings)
	assert.Equal(t, int64(1), snap.LastProbe.LatenciesMs["dial"])
	assert.Equal(t, []string{"slow"}, snap.LastProbe.Warnings)

	snap.Warnings[0] = "mutated"
	assert.Equal(t, []string{"hotplug disabled"}, s.GetSnapshot().Warnings)

	s.ClearWarnings()
	assert.Empty(t, s.GetSnapshot().Warnings)
}
