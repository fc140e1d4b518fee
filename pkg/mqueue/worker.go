package mqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Handler processes one delivered message. Returning an error causes the
// worker to Nack the delivery; returning nil Acks it.
type Handler func(ctx context.Context, msg Message) error

// WorkerHealth is a point-in-time snapshot of a worker's activity.
type WorkerHealth struct {
	ID                string
	Status            WorkerStatus
	CurrentMessageID  string
	MessagesProcessed int
	LastActivity      time.Time
}

// Worker polls a single actor's lane of the queue and dispatches deliveries
// to a Handler, acking or nacking based on the outcome.
type Worker struct {
	id           string
	actorID      string
	queue        *Queue
	handler      Handler
	pollInterval time.Duration
	visibility   time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu                sync.RWMutex
	status            WorkerStatus
	currentMessageID  string
	messagesProcessed int
	lastActivity      time.Time
}

// NewWorker creates a queue worker bound to a single actor lane.
func NewWorker(id, actorID string, queue *Queue, handler Handler, pollInterval, visibility time.Duration) *Worker {
	return &Worker{
		id:           id,
		actorID:      actorID,
		queue:        queue,
		handler:      handler,
		pollInterval: pollInterval,
		visibility:   visibility,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker's polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish its current
// delivery, if any. Safe to call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health snapshot.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:                w.id,
		Status:            w.status,
		CurrentMessageID:  w.currentMessageID,
		MessagesProcessed: w.messagesProcessed,
		LastActivity:      w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "actor_id", w.actorID)
	log.Info("queue worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("queue worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, queue worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrEmpty) {
					w.sleep(w.pollInterval)
					continue
				}
				log.Error("error consuming message", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) pollAndProcess(ctx context.Context) error {
	delivery, err := w.queue.Consume(ctx, w.actorID, w.visibility)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.status = WorkerStatusWorking
	w.currentMessageID = delivery.Message.MessageID
	w.lastActivity = time.Now()
	w.mu.Unlock()

	handlerErr := w.handler(ctx, delivery.Message)

	w.mu.Lock()
	w.status = WorkerStatusIdle
	w.currentMessageID = ""
	w.messagesProcessed++
	w.lastActivity = time.Now()
	w.mu.Unlock()

	if handlerErr != nil {
		reason := handlerErr.Error()
		if nackErr := w.queue.Nack(ctx, delivery.Handle, delivery.Message.Attempt, reason); nackErr != nil {
			return nackErr
		}
		return nil
	}
	return w.queue.Ack(ctx, delivery.Handle)
}
