package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/actorflow/internal/store/memory"
	"github.com/codeready-toolchain/actorflow/pkg/actorcore"
	"github.com/codeready-toolchain/actorflow/pkg/actortype"
	"github.com/codeready-toolchain/actorflow/pkg/lock"
	"github.com/codeready-toolchain/actorflow/pkg/mqueue"
	"github.com/codeready-toolchain/actorflow/pkg/runtime"
)

// fetchOnce is the ExecuteFunc under test: it records a "before" state
// transition, calls out to the "fetch" activity, then records an "after"
// transition that folds in the activity result. A correct resume must run
// the "after" transition exactly once, even though CallActivity forces the
// function to be re-entered from the top.
func fetchOnce(ctx context.Context, inst *actorcore.Instance, input any) (any, error) {
	if _, err := inst.UpdateState(ctx, func(s map[string]any) map[string]any {
		s["phase"] = "before"
		return s
	}); err != nil {
		return nil, err
	}

	result, err := inst.CallActivity(ctx, "fetch", input)
	if err != nil {
		return nil, err
	}

	final, err := inst.UpdateState(ctx, func(s map[string]any) map[string]any {
		s["phase"] = "after"
		s["fetched"] = result
		return s
	})
	if err != nil {
		return nil, err
	}
	return final, nil
}

func TestRuntime_ActivateResumesAfterActivitySuspension(t *testing.T) {
	store := memory.NewJournalStore()
	locks := lock.NewService(memory.NewLockBackend())
	registry := actortype.NewRegistry()
	registry.Register("fetcher", func() actortype.Capabilities {
		return actortype.Capabilities{Execute: fetchOnce}
	})

	var invocations int
	invoker := func(ctx context.Context, activityID, name string, input any) (any, error) {
		invocations++
		return "fetched-value", nil
	}

	r := runtime.New(store, locks, registry, invoker, nil, "worker-1")

	msg := mqueue.Message{
		Metadata: mqueue.Metadata{MessageID: "m-1", ActorID: "actor-1", ActorType: "fetcher", Timestamp: time.Now(), Attempt: 1},
		Payload:  map[string]any{"url": "https://example.invalid"},
	}

	result, err := r.Activate(context.Background(), "actor-1", "fetcher", msg)
	require.NoError(t, err)
	require.Equal(t, 1, invocations, "the activity must be invoked exactly once across the whole suspend/resume cycle")

	final, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "after", final["phase"], "post-activity state update must have run, not been skipped")
	assert.Equal(t, "fetched-value", final["fetched"])

	// Redelivery of the same message after it fully completed must be a
	// true no-op (spec.md §8 idempotent redelivery), not a re-run.
	result, err = r.Activate(context.Background(), "actor-1", "fetcher", msg)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, invocations, "redelivery of an already-processed message must not invoke the activity again")
}

func TestRuntime_ActivateResumesAfterProcessRestart(t *testing.T) {
	store := memory.NewJournalStore()
	locks := lock.NewService(memory.NewLockBackend())
	registry := actortype.NewRegistry()
	registry.Register("fetcher", func() actortype.Capabilities {
		return actortype.Capabilities{Execute: fetchOnce}
	})

	msg := mqueue.Message{
		Metadata: mqueue.Metadata{MessageID: "m-2", ActorID: "actor-2", ActorType: "fetcher", Timestamp: time.Now(), Attempt: 1},
		Payload:  map[string]any{"url": "https://example.invalid"},
	}

	// Simulate a crash: drive the instance directly (no Runtime) up to the
	// point where it suspends on CallActivity, leaving an unresolved
	// activity_scheduled entry as the only durable trace — no resolution
	// was ever journaled, matching a process that died before the
	// activity's result came back.
	crashing := actorcore.New("actor-2", "fetcher", store, 0)
	require.NoError(t, crashing.Replay(context.Background()))
	_, err := crashing.Execute(context.Background(), fetchOnce, msg.MessageID, msg.Timestamp.UnixMilli(), msg.Payload)
	require.True(t, actorcore.IsSuspend(err), "fetchOnce must suspend on its first run")

	// A fresh Runtime (cold pool) picking the actor back up must replay the
	// open suspension, resolve it, and reach the same final state as a run
	// that never crashed.
	invoker := func(ctx context.Context, activityID, name string, input any) (any, error) {
		return "fetched-value", nil
	}
	r := runtime.New(store, locks, registry, invoker, nil, "worker-2")

	result, err := r.Activate(context.Background(), "actor-2", "fetcher", msg)
	require.NoError(t, err)
	final, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "after", final["phase"])
	assert.Equal(t, "fetched-value", final["fetched"])
}

func TestRuntime_ActivateReturnsLeaseConflictWhenAlreadyHeld(t *testing.T) {
	store := memory.NewJournalStore()
	backend := memory.NewLockBackend()
	locks := lock.NewService(backend)
	registry := actortype.NewRegistry()
	registry.Register("fetcher", func() actortype.Capabilities {
		return actortype.Capabilities{Execute: fetchOnce}
	})
	invoker := func(ctx context.Context, activityID, name string, input any) (any, error) {
		return "fetched-value", nil
	}
	r := runtime.New(store, locks, registry, invoker, nil, "worker-1")

	_, ok, err := backend.TryAcquire(context.Background(), "actor-4", "someone-else", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	msg := mqueue.Message{
		Metadata: mqueue.Metadata{MessageID: "m-4", ActorID: "actor-4", ActorType: "fetcher", Timestamp: time.Now(), Attempt: 1},
		Payload:  nil,
	}
	_, err = r.Activate(context.Background(), "actor-4", "fetcher", msg)
	assert.ErrorIs(t, err, lock.ErrLeaseConflict)
}
