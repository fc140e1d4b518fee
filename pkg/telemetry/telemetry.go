// Package telemetry implements the explicit-init, no-global-singleton
// event/metric recording surface from SPEC_FULL.md §4.9: counters and
// spans go through a Recorder value rather than a global, matching the
// teacher's preference for slog.With(...) structured fields over
// package-level loggers. cmd/actorflowd constructs a SlogRecorder; no
// store or runtime component in this module calls a Recorder.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Span is a completed unit of work (a stage run, a lease hold, an
// activity call) recorded for offline analysis.
type Span struct {
	Name      string
	ActorID   string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool
	Attrs     map[string]any
}

// Recorder is the explicit collaborator for emitting telemetry. No
// implementation is a process-wide singleton (DESIGN NOTES §9).
type Recorder interface {
	Counter(name string, delta int64, attrs map[string]any)
	RecordSpan(ctx context.Context, span Span)
	Close() error
}

// SlogRecorder is the default Recorder: counters and spans become
// structured slog records. It keeps an in-memory counter map for cheap
// point-in-time reads (e.g. by the operator CLI).
type SlogRecorder struct {
	logger *slog.Logger

	mu       sync.Mutex
	counters map[string]int64
}

// NewSlogRecorder wraps logger (or slog.Default() if nil).
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRecorder{logger: logger, counters: make(map[string]int64)}
}

func (r *SlogRecorder) Counter(name string, delta int64, attrs map[string]any) {
	r.mu.Lock()
	r.counters[name] += delta
	total := r.counters[name]
	r.mu.Unlock()

	args := []any{"counter", name, "delta", delta, "total", total}
	for k, v := range attrs {
		args = append(args, k, v)
	}
	r.logger.Debug("telemetry counter", args...)
}

func (r *SlogRecorder) RecordSpan(ctx context.Context, span Span) {
	args := []any{"span", span.Name, "actor_id", span.ActorID, "duration_ms", span.Duration.Milliseconds(), "success", span.Success}
	for k, v := range span.Attrs {
		args = append(args, k, v)
	}
	r.logger.Info("telemetry span", args...)
}

func (r *SlogRecorder) Close() error { return nil }

// Snapshot returns a copy of the current counter totals.
func (r *SlogRecorder) Snapshot() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}

// NoopRecorder discards everything; used by tests that don't care about
// telemetry output.
type NoopRecorder struct{}

func (NoopRecorder) Counter(name string, delta int64, attrs map[string]any)  {}
func (NoopRecorder) RecordSpan(ctx context.Context, span Span)               {}
func (NoopRecorder) Close() error                                            { return nil }
