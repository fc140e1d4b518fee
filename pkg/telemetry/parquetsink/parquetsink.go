// Package parquetsink batches completed pipeline/stage spans to columnar
// Parquet files for offline analysis, per SPEC_FULL.md §4.9. Entirely
// optional: nothing in this module constructs a sink (cmd/actorflowd does
// not wire it). parquet-go appears in the retrieved corpus's module graph
// (pithecene-io-quarry's go.mod) as an indirect transitive dependency; no
// pack repo calls it directly, so this sink is the one place that
// promotes it to a direct, exercised dependency (see DESIGN.md).
package parquetsink

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/codeready-toolchain/actorflow/pkg/telemetry"
)

// spanRow is the flattened, Parquet-friendly projection of a
// telemetry.Span. Attrs are not archived (they're unboundedly shaped);
// archive a specific attr by widening this struct if it proves valuable.
type spanRow struct {
	Name        string `parquet:"name"`
	ActorID     string `parquet:"actor_id"`
	StartedAtMS int64  `parquet:"started_at_ms"`
	DurationMS  int64  `parquet:"duration_ms"`
	Success     bool   `parquet:"success"`
}

// Sink batches telemetry.Span values in memory and flushes them to a
// Parquet file once batchSize is reached or Flush is called explicitly.
type Sink struct {
	mu        sync.Mutex
	batch     []spanRow
	batchSize int
	newWriter func() (io.WriteCloser, error)
}

// New creates a Sink that opens a fresh file via newWriter each time it
// flushes a batch of batchSize spans.
func New(batchSize int, newWriter func() (io.WriteCloser, error)) *Sink {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Sink{batchSize: batchSize, newWriter: newWriter}
}

// Record appends span to the pending batch, flushing if the batch is full.
func (s *Sink) Record(span telemetry.Span) error {
	s.mu.Lock()
	s.batch = append(s.batch, spanRow{
		Name:        span.Name,
		ActorID:     span.ActorID,
		StartedAtMS: span.StartedAt.UnixMilli(),
		DurationMS:  span.Duration.Milliseconds(),
		Success:     span.Success,
	})
	full := len(s.batch) >= s.batchSize
	s.mu.Unlock()

	if full {
		return s.Flush()
	}
	return nil
}

// Flush writes the pending batch to a new Parquet file, if non-empty.
func (s *Sink) Flush() error {
	s.mu.Lock()
	rows := s.batch
	s.batch = nil
	s.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}

	w, err := s.newWriter()
	if err != nil {
		return fmt.Errorf("parquetsink: open writer: %w", err)
	}
	defer w.Close()

	pw := parquet.NewGenericWriter[spanRow](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("parquetsink: write rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("parquetsink: close writer: %w", err)
	}
	return nil
}

// Tick returns a function suitable for a time.Ticker loop that flushes on
// an interval regardless of batch fullness, bounding staleness of
// archived spans.
func (s *Sink) Tick(interval time.Duration, onError func(error)) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := s.Flush(); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}()
	return func() { close(done) }
}
