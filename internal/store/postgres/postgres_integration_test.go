package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/actorflow/internal/store/postgres"
	"github.com/codeready-toolchain/actorflow/pkg/journal"
	"github.com/codeready-toolchain/actorflow/pkg/lock"
	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
	"github.com/codeready-toolchain/actorflow/test/postgres"
)

func TestJournalStore_AppendAndRead(t *testing.T) {
	pool := testpostgres.NewTestPool(t)
	t.Cleanup(func() { testpostgres.Truncate(t, pool) })
	store := postgres.NewJournalStore(pool)
	ctx := context.Background()

	actorID := "actor-journal-1"
	require.NoError(t, store.AppendEntry(ctx, actorID, journal.Entry{
		Kind:      journal.KindStateUpdated,
		Index:     0,
		Timestamp: time.Now(),
		Payload:   journal.StateUpdatedPayload{State: map[string]any{"count": float64(1)}},
	}))
	require.NoError(t, store.AppendEntry(ctx, actorID, journal.Entry{
		Kind:      journal.KindStateUpdated,
		Index:     1,
		Timestamp: time.Now(),
		Payload:   journal.StateUpdatedPayload{State: map[string]any{"count": float64(2)}},
	}))

	entries, err := store.ReadEntries(ctx, actorID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, 1, entries[1].Index)

	length, err := store.Length(ctx, actorID)
	require.NoError(t, err)
	assert.Equal(t, 2, length)

	require.NoError(t, store.SaveSnapshot(ctx, actorID, journal.Snapshot{
		State:     map[string]any{"count": float64(2)},
		Cursor:    2,
		Timestamp: time.Now().UnixMilli(),
	}))
	snap, ok, err := store.GetLatestSnapshot(ctx, actorID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, snap.Cursor)

	require.NoError(t, store.TrimEntries(ctx, actorID, 2))
	length, err = store.Length(ctx, actorID)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	require.NoError(t, store.DeleteJournal(ctx, actorID))
	_, ok, err = store.GetLatestSnapshot(ctx, actorID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJournalStore_EmptyActorID(t *testing.T) {
	pool := testpostgres.NewTestPool(t)
	store := postgres.NewJournalStore(pool)

	err := store.AppendEntry(context.Background(), "", journal.Entry{})
	require.ErrorIs(t, err, journal.ErrEmptyActorID)
}

func TestLockBackend_AcquireRenewRelease(t *testing.T) {
	pool := testpostgres.NewTestPool(t)
	t.Cleanup(func() { testpostgres.Truncate(t, pool) })
	backend := postgres.NewLockBackend(pool)
	ctx := context.Background()

	lease, ok, err := backend.TryAcquire(ctx, "resource-1", "holder-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "holder-a", lease.HeldBy)

	_, ok, err = backend.TryAcquire(ctx, "resource-1", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a live lease must reject a competing holder")

	renewed, ok, err := backend.Renew(ctx, lease, 2*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, lease.FenceToken, renewed.FenceToken)

	require.NoError(t, backend.Release(ctx, renewed))

	_, ok, err = backend.TryAcquire(ctx, "resource-1", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "a released lease must be acquirable by another holder")
}

func TestLockService_AcquireRelease(t *testing.T) {
	pool := testpostgres.NewTestPool(t)
	t.Cleanup(func() { testpostgres.Truncate(t, pool) })
	svc := lock.NewService(postgres.NewLockBackend(pool))
	ctx := context.Background()

	handle, err := svc.Acquire(ctx, "resource-2", "holder-a", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, handle)

	conflict, err := svc.Acquire(ctx, "resource-2", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, conflict)

	require.NoError(t, svc.Release(ctx, handle))

	handle2, err := svc.Acquire(ctx, "resource-2", "holder-b", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, handle2)
}

func TestPipelineStore_SaveLoadOutbox(t *testing.T) {
	pool := testpostgres.NewTestPool(t)
	t.Cleanup(func() { testpostgres.Truncate(t, pool) })
	store := postgres.NewPipelineStore(pool)
	ctx := context.Background()

	def := pipeline.Definition{Name: "p1", Stages: []pipeline.StageDefinition{{Name: "stage-a"}}}
	inst := pipeline.NewInstance("pipeline-1", def, map[string]any{"input": "x"})

	require.NoError(t, store.SaveInstance(ctx, inst))

	loaded, err := store.LoadInstance(ctx, "pipeline-1")
	require.NoError(t, err)
	assert.Equal(t, "pipeline-1", loaded.PipelineID)
	assert.Equal(t, 1, loaded.Version)

	loaded.Context["done"] = true
	require.NoError(t, store.SaveInstance(ctx, loaded))

	_, err = store.LoadInstance(ctx, "nonexistent")
	assert.Error(t, err)

	rec := pipeline.OutboxRecord{
		PipelineID:      "pipeline-1",
		FromStage:       "stage-a",
		ToStage:         "stage-b",
		PipelineVersion: 2,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, store.AppendOutbox(ctx, rec))

	pending, err := store.PendingOutbox(ctx, "pipeline-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.False(t, pending[0].Relayed)

	require.NoError(t, store.MarkRelayed(ctx, "pipeline-1", "stage-a", "stage-b"))

	pending, err = store.PendingOutbox(ctx, "pipeline-1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}
