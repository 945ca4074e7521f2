package api

import (
	"time"

	"github.com/sanverite/intstack/internal/core"
)

// FromCoreSnapshot converts core.Snapshot to the public StatusResponse.
func FromCoreSnapshot(s core.Snapshot) StatusResponse {
	var started string
	if !s.StartedAt.IsZero() {
		started = s.StartedAt.UTC().Format(time.RFC3339)
	}

	return StatusResponse{
		State:       string(s.AgentState),
		StartedAt:   started,
		UptimeSec:   int64(s.Uptime.Seconds()),
		Warnings:    append([]string(nil), s.Warnings...),
		Presence:    FromPresenceSnapshot(s.Presence),
		Stack:       StackView(s.Stack),
		LastProbe:   FromProbeSummary(s.LastProbe),
		GeneratedAt: TimeNow().UTC().Format(time.RFC3339),
	}
}

// FromPresenceSnapshot converts core.PresenceSnapshot to PresenceView.
func FromPresenceSnapshot(p core.PresenceSnapshot) PresenceView {
	v := PresenceView{
		State:    string(p.State),
		NodePath: p.NodePath,
		Attaches: p.Attaches,
		Detaches: p.Detaches,
	}
	if !p.Device.IsZero() {
		v.Device = p.Device.String()
	}
	if !p.AttachedAt.IsZero() {
		v.AttachedAt = p.AttachedAt.UTC().Format(time.RFC3339)
	}
	return v
}

// FromProbeSummary converts core.ProbeSummary to the public ProbeView.
// Keeps slice/map fields immutable by cloning.
func FromProbeSummary(p core.ProbeSummary) ProbeView {
	var lastChecked string
	if !p.LastChecked.IsZero() {
		lastChecked = p.LastChecked.UTC().Format(time.RFC3339)
	}
	return ProbeView{
		Reachable:   p.Reachable,
		ProtocolOK:  p.ProtocolOK,
		Capacity:    p.Capacity,
		Count:       p.Count,
		LatenciesMs: cloneLatencies(p.LatenciesMs),
		LastChecked: lastChecked,
		Warnings:    append([]string(nil), p.Warnings...),
	}
}

func cloneLatencies(in map[string]int64) map[string]int64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
