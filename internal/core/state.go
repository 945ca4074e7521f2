package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// AgentState represents the lifecycle state of the daemon.
// The intended transitions:
//
// inactive -> starting
// starting -> active | error | inactive
// active   -> stopping | error
// stopping -> inactive | error
// error    -> inactive | starting
//
// Transitions outside this set are rejected by SetAgentState.
type AgentState string

const (
	StateInactive AgentState = "inactive"
	StateStarting AgentState = "starting"
	StateActive   AgentState = "active"
	StateStopping AgentState = "stopping"
	StateError    AgentState = "error"
)

// ProbeSummary is a condensed view of the last device node probe.
// Times and latencies are captured as observed, without smoothing.
type ProbeSummary struct {
	Reachable   bool             // Socket dial succeeded
	ProtocolOK  bool             // stat round-trip succeeded
	Capacity    int              // Reported by stat
	Count       int              // Reported by stat
	LatenciesMs map[string]int64 // "dial", "stat"
	LastChecked time.Time        // Wall clock time of probe
	Warnings    []string         // Non-fatal anomalies observed during probe
}

// Snapshot is a threadsafe read model returned to the API layer.
// Slices and maps are copies, so callers may retain the value without
// additional locking.
type Snapshot struct {
	AgentState AgentState
	StartedAt  time.Time
	Uptime     time.Duration
	Warnings   []string
	Presence   PresenceSnapshot
	Stack      StackSnapshot
	LastProbe  ProbeSummary
}

// State holds mutable daemon state with synchronization and composes the
// service and presence controller into snapshots.
// Use the provided methods to mutate; callers should never take the lock directly.
type State struct {
	mu        sync.RWMutex
	agent     AgentState
	startedAt time.Time
	warnings  []string
	lastProbe ProbeSummary

	service  *Service
	presence *Presence
}

// NewState constructs a default-inactive state over service and presence.
func NewState(service *Service, presence *Presence) *State {
	if service == nil || presence == nil {
		panic("core.NewState: service and presence are required")
	}
	return &State{
		agent:    StateInactive,
		service:  service,
		presence: presence,
	}
}

// Service returns the stack service.
func (s *State) Service() *Service { return s.service }

// Presence returns the presence controller.
func (s *State) Presence() *Presence { return s.presence }

// snapshotStackTimeout bounds the wait for the stack lock while building
// a snapshot.
const snapshotStackTimeout = 100 * time.Millisecond

// GetSnapshot returns a deep copy safe for concurrent reads.
func (s *State) GetSnapshot() Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotStackTimeout)
	defer cancel()
	stack := s.service.Snapshot(ctx)
	presence := s.presence.Snapshot()

	s.mu.RLock()
	defer s.mu.RUnlock()

	latencies := make(map[string]int64, len(s.lastProbe.LatenciesMs))
	for k, v := range s.lastProbe.LatenciesMs {
		latencies[k] = v
	}
	probe := s.lastProbe
	probe.LatenciesMs = latencies
	probe.Warnings = append([]string(nil), s.lastProbe.Warnings...)

	return Snapshot{
		AgentState: s.agent,
		StartedAt:  s.startedAt,
		Uptime:     s.uptimeLocked(),
		Warnings:   append([]string(nil), s.warnings...),
		Presence:   presence,
		Stack:      stack,
		LastProbe:  probe,
	}
}

// Uptime returns the wall-clock duration since the daemon entered Active state.
// Returns zero if never started; transitioning to Inactive resets it.
func (s *State) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uptimeLocked()
}

func (s *State) uptimeLocked() time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// AppendWarning adds a non-fatal warning to the state.
func (s *State) AppendWarning(msg string) {
	if msg == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msg)
}

// ClearWarnings removes all accumulated warnings.
func (s *State) ClearWarnings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = nil
}

// UpdateProbe replaces the last probe summary with a new value.
// Slices/maps are copied.
func (s *State) UpdateProbe(p ProbeSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lat := make(map[string]int64, len(p.LatenciesMs))
	for k, v := range p.LatenciesMs {
		lat[k] = v
	}
	p.LatenciesMs = lat
	p.Warnings = append([]string(nil), p.Warnings...)
	s.lastProbe = p
}

// ErrInvalidTransition is returned when SetAgentState receives an illegal transition.
var ErrInvalidTransition = errors.New("invalid agent state transition")

// AgentState returns the current lifecycle state.
func (s *State) AgentState() AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agent
}

// SetAgentState transitions the agent to the next state. Entering Active
// sets startedAt; entering Inactive clears it.
//
// Returns ErrInvalidTransition if the (current -> next) edge is not allowed.
func (s *State) SetAgentState(next AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.agent
	if cur == next {
		return nil
	}
	if !allowedTransition(cur, next) {
		return ErrInvalidTransition
	}

	switch next {
	case StateActive:
		if s.startedAt.IsZero() {
			s.startedAt = time.Now()
		}
	case StateInactive:
		s.startedAt = time.Time{}
	}

	s.agent = next
	return nil
}

func allowedTransition(cur, next AgentState) bool {
	switch cur {
	case StateInactive:
		return next == StateStarting
	case StateStarting:
		return next == StateActive || next == StateError || next == StateInactive
	case StateActive:
		return next == StateStopping || next == StateError
	case StateStopping:
		return next == StateInactive || next == StateError
	case StateError:
		return next == StateInactive || next == StateStarting
	default:
		return false
	}
}
