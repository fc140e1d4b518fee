package mqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/actorflow/internal/store/memory"
	"github.com/codeready-toolchain/actorflow/pkg/mqueue"
)

func TestQueue_EnqueueConsumeAck(t *testing.T) {
	q := mqueue.NewQueue(memory.NewQueueBackend(), mqueue.DefaultRetryPolicy)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, mqueue.Message{
		Metadata: mqueue.Metadata{ActorID: "actor-1", ActorType: "worker"},
		Payload:  "hello",
	}))

	delivery, err := q.Consume(ctx, "actor-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "hello", delivery.Message.Payload)
	assert.Equal(t, 1, delivery.Message.Attempt, "Enqueue defaults Attempt to 1")

	_, err = q.Consume(ctx, "actor-1", time.Minute)
	assert.ErrorIs(t, err, mqueue.ErrEmpty, "a claimed message must be hidden from further Consume calls")

	require.NoError(t, q.Ack(ctx, delivery.Handle))
	assert.ErrorIs(t, q.Ack(ctx, delivery.Handle), mqueue.ErrUnknownHandle)
}

func TestQueue_PriorityOrdering(t *testing.T) {
	q := mqueue.NewQueue(memory.NewQueueBackend(), mqueue.DefaultRetryPolicy)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, mqueue.Message{Metadata: mqueue.Metadata{ActorID: "a", Priority: 1}, Payload: "low"}))
	require.NoError(t, q.Enqueue(ctx, mqueue.Message{Metadata: mqueue.Metadata{ActorID: "a", Priority: 5}, Payload: "high"}))

	first, err := q.Consume(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "high", first.Message.Payload, "higher priority must dequeue first")

	second, err := q.Consume(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "low", second.Message.Payload)
}

func TestQueue_NackRedeliversAfterVisibilityElapses(t *testing.T) {
	q := mqueue.NewQueue(memory.NewQueueBackend(), mqueue.RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, mqueue.Message{Metadata: mqueue.Metadata{ActorID: "a"}, Payload: "x"}))
	delivery, err := q.Consume(ctx, "a", time.Minute)
	require.NoError(t, err)

	require.NoError(t, q.Nack(ctx, delivery.Handle, delivery.Message.Attempt, "handler error"))

	// The backend bumps Attempt once in Nack and again when the
	// visibility window elapses and the item becomes redeliverable, so
	// the redelivered message's Attempt lands on 3, not 2.
	require.Eventually(t, func() bool {
		redelivery, err := q.Consume(ctx, "a", time.Minute)
		return err == nil && redelivery.Message.Attempt == 3
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_ExhaustedRetryBudgetMovesToDeadLetter(t *testing.T) {
	// The in-memory backend's own dead-letter cutoff is
	// mqueue.DefaultRetryPolicy.MaxAttempts regardless of the policy a
	// caller wires into NewQueue; ExceedsBudget is the caller-side signal
	// a worker pool uses to decide whether to keep retrying at all.
	q := mqueue.NewQueue(memory.NewQueueBackend(), mqueue.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   0,
		MaxDelay:    0,
	})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, mqueue.Message{Metadata: mqueue.Metadata{ActorID: "a"}, Payload: "x"}))
	delivery, err := q.Consume(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, q.ExceedsBudget(delivery.Message.Attempt+1))

	// Nack has already bumped Attempt past the budget once, but
	// dead-lettering is the backend's own synchronous decision on Nack, so
	// poll it directly rather than guessing how many rounds it takes.
	handle := delivery.Handle
	var deadLettered bool
	for attempt := 1; attempt <= mqueue.DefaultRetryPolicy.MaxAttempts+1; attempt++ {
		require.NoError(t, q.Nack(ctx, handle, attempt, "boom"))

		letters, err := q.DeadLetters(ctx, "a", 10)
		require.NoError(t, err)
		if len(letters) > 0 {
			deadLettered = true
			break
		}

		var redelivery mqueue.Delivery
		require.Eventually(t, func() bool {
			var cerr error
			redelivery, cerr = q.Consume(ctx, "a", time.Minute)
			return cerr == nil
		}, time.Second, time.Millisecond, "message never became redeliverable")
		handle = redelivery.Handle
	}
	require.True(t, deadLettered, "message never reached the dead-letter queue")

	_, err = q.Consume(ctx, "a", time.Minute)
	assert.ErrorIs(t, err, mqueue.ErrEmpty, "an exhausted message must not be redelivered")

	letters, err := q.DeadLetters(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "boom", letters[0].Reason)
}

func TestRetryPolicy_NextDelayRespectsMaxDelay(t *testing.T) {
	policy := mqueue.RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	for attempt := 1; attempt <= 10; attempt++ {
		delay := policy.NextDelay(attempt)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
		assert.LessOrEqual(t, delay, policy.MaxDelay)
	}
}
