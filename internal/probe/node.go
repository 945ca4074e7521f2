package probe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sanverite/intstack/internal/core"
	"github.com/sanverite/intstack/internal/node"
)

// Config controls a single probe execution.
type Config struct {
	// Path is the device node socket to probe.
	Path string

	// Timeout bounds the entire probe (dial + stat).
	// If zero, DefaultTimeout is used.
	Timeout time.Duration

	// Logger receives one record per probe. Nil disables logging.
	Logger *slog.Logger
}

// DefaultTimeout bounds a probe when Config.Timeout is zero.
const DefaultTimeout = 3 * time.Second

// ProbeNode dials the node at cfg.Path and performs one stat round-trip.
// Errors indicate probe failures; the returned summary includes as much
// signal as possible (partial latencies, warnings).
func ProbeNode(ctx context.Context, cfg Config) (summary core.ProbeSummary, err error) {
	var (
		warns     []string
		latencies = make(map[string]int64, 2)
	)
	// Fills the named results on every return path.
	defer func() {
		summary.LatenciesMs = latencies
		summary.Warnings = warns
		summary.LastChecked = time.Now()
		if cfg.Logger != nil {
			cfg.Logger.Debug("node probe finished",
				"path", cfg.Path,
				"reachable", summary.Reachable,
				"protocol_ok", summary.ProtocolOK,
				"latencies_ms", latencies,
				"error", err,
			)
		}
	}()

	if cfg.Path == "" {
		return summary, errors.New("probe: node path is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t0 := time.Now()
	sess, err := node.NewClient(cfg.Path).Open(ctx)
	latencies["dial"] = millisSince(t0)
	if err != nil {
		warns = append(warns, "dial failed: "+err.Error())
		return summary, err
	}
	defer sess.Close()
	summary.Reachable = true

	statStart := time.Now()
	stat, err := sess.Stat(ctx)
	latencies["stat"] = millisSince(statStart)
	if err != nil {
		warns = append(warns, "stat failed: "+err.Error())
		return summary, err
	}
	summary.ProtocolOK = true
	summary.Capacity = stat.Capacity
	summary.Count = stat.Count

	if stat.Capacity > 0 && stat.Count == stat.Capacity {
		warns = append(warns, "stack is full")
	}
	return summary, nil
}

// millisSince returns the elapsed milliseconds since t0, clamped at zero.
func millisSince(t0 time.Time) int64 {
	diff := time.Since(t0)
	if diff < 0 {
		return 0
	}
	return diff.Milliseconds()
}
