package mqueue

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// ErrEmpty is returned by a Backend's Consume when no message is ready.
var ErrEmpty = errors.New("mqueue: no message available")

// ErrUnknownHandle is returned by Ack/Nack for a handle the backend no
// longer recognizes (already acked, or redelivered to another consumer).
var ErrUnknownHandle = errors.New("mqueue: unknown delivery handle")

// RetryPolicy controls backoff and the retry budget before a message is
// dead-lettered.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the teacher's bounded-backoff defaults.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   time.Second,
	MaxDelay:    time.Minute,
}

// NextDelay computes the exponential backoff with full jitter for attempt
// (1-indexed).
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := p.BaseDelay << uint(attempt-1)
	if backoff <= 0 || backoff > p.MaxDelay {
		backoff = p.MaxDelay
	}
	return time.Duration(rand.Int64N(int64(backoff) + 1))
}

// Delivery wraps a dequeued Message with the handle needed to Ack/Nack it.
type Delivery struct {
	Message Message
	Handle  string
}

// Backend is the concrete store behind Queue. A message becomes visible to
// Consume again (for redelivery) if neither Ack nor Nack is called before
// its visibility timeout elapses.
type Backend interface {
	// Enqueue admits msg for delivery, ordered by Priority then enqueue time.
	Enqueue(ctx context.Context, msg Message) error

	// Consume claims the next ready message for actorID's queue, if any,
	// hiding it from other consumers for visibility.
	Consume(ctx context.Context, actorID string, visibility time.Duration) (Delivery, error)

	// Ack permanently removes the delivered message.
	Ack(ctx context.Context, handle string) error

	// Nack makes the message visible again after delayBy, incrementing its
	// attempt counter. If the backend determines the retry budget is
	// exhausted it moves the message to the dead-letter store instead.
	Nack(ctx context.Context, handle string, delayBy time.Duration, reason string) error

	// DeadLetters lists dead-lettered messages for actorID (or all actors
	// if actorID is empty), most recent first.
	DeadLetters(ctx context.Context, actorID string, limit int) ([]DeadLetter, error)
}

// Queue is the message-queue facade used by the runtime and pipeline outbox
// relay. It layers retry-policy bookkeeping on top of a Backend.
type Queue struct {
	backend Backend
	policy  RetryPolicy
}

// NewQueue wraps backend with policy (DefaultRetryPolicy if zero-valued).
func NewQueue(backend Backend, policy RetryPolicy) *Queue {
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy
	}
	return &Queue{backend: backend, policy: policy}
}

// Enqueue admits msg, defaulting Attempt to 1.
func (q *Queue) Enqueue(ctx context.Context, msg Message) error {
	if msg.Attempt == 0 {
		msg.Attempt = 1
	}
	return q.backend.Enqueue(ctx, msg)
}

// Consume claims the next ready message for actorID.
func (q *Queue) Consume(ctx context.Context, actorID string, visibility time.Duration) (Delivery, error) {
	return q.backend.Consume(ctx, actorID, visibility)
}

// Ack permanently removes a successfully processed delivery.
func (q *Queue) Ack(ctx context.Context, handle string) error {
	return q.backend.Ack(ctx, handle)
}

// Nack requeues a failed delivery with policy-driven backoff. The backend
// is the source of truth for the attempt counter and dead-letters the
// delivery once it reaches DefaultRetryPolicy.MaxAttempts; Nack only
// supplies the delay, and this Queue's MaxAttempts does not change when a
// backend dead-letters.
func (q *Queue) Nack(ctx context.Context, handle string, attempt int, reason string) error {
	delay := q.policy.NextDelay(attempt)
	return q.backend.Nack(ctx, handle, delay, reason)
}

// ExceedsBudget reports whether attempt has exhausted the retry policy.
func (q *Queue) ExceedsBudget(attempt int) bool {
	return attempt >= q.policy.MaxAttempts
}

// DeadLetters lists dead-lettered messages.
func (q *Queue) DeadLetters(ctx context.Context, actorID string, limit int) ([]DeadLetter, error) {
	return q.backend.DeadLetters(ctx, actorID, limit)
}
