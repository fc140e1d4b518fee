package mqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PoolHealth is a point-in-time snapshot of a WorkerPool.
type PoolHealth struct {
	TotalWorkers  int
	ActiveWorkers int
	WorkerStats   []WorkerHealth
}

// WorkerPool runs a fixed number of Workers, each consuming from any actor
// lane (Consume with an empty actorID) so that a small worker count can
// service an arbitrarily large set of actor-addressed queues, mirroring
// the teacher's pod-local worker pool sizing (pkg/queue.WorkerPool).
type WorkerPool struct {
	poolID       string
	queue        *Queue
	handler      Handler
	workerCount  int
	pollInterval time.Duration
	visibility   time.Duration

	workers  []*Worker
	stopOnce sync.Once
	mu       sync.Mutex
	started  bool
}

// NewWorkerPool creates a pool of workerCount workers sharing queue and
// handler, each polling any actor lane.
func NewWorkerPool(poolID string, queue *Queue, handler Handler, workerCount int, pollInterval, visibility time.Duration) *WorkerPool {
	return &WorkerPool{
		poolID:       poolID,
		queue:        queue,
		handler:      handler,
		workerCount:  workerCount,
		pollInterval: pollInterval,
		visibility:   visibility,
		workers:      make([]*Worker, 0, workerCount),
	}
}

// Start spawns the worker goroutines. Safe to call once; subsequent calls
// are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate start", "pool_id", p.poolID)
		return nil
	}
	p.started = true

	slog.Info("starting worker pool", "pool_id", p.poolID, "worker_count", p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.poolID, i)
		worker := NewWorker(workerID, "", p.queue, p.handler, p.pollInterval, p.visibility)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	slog.Info("worker pool started", "pool_id", p.poolID)
	return nil
}

// Stop signals all workers to stop and waits for in-flight deliveries to
// finish (graceful shutdown).
func (p *WorkerPool) Stop() {
	slog.Info("stopping worker pool gracefully", "pool_id", p.poolID)
	p.stopOnce.Do(func() {
		for _, w := range p.workers {
			w.Stop()
		}
	})
	slog.Info("worker pool stopped gracefully", "pool_id", p.poolID)
}

// Health reports aggregate pool health.
func (p *WorkerPool) Health() PoolHealth {
	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, w := range p.workers {
		h := w.Health()
		stats[i] = h
		if h.Status == WorkerStatusWorking {
			active++
		}
	}
	return PoolHealth{
		TotalWorkers:  len(p.workers),
		ActiveWorkers: active,
		WorkerStats:   stats,
	}
}
