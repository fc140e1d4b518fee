package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/actorflow/internal/store/memory"
	"github.com/codeready-toolchain/actorflow/pkg/journal"
	"github.com/codeready-toolchain/actorflow/pkg/lock"
	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

func TestJournalStore_AppendReadTrimSnapshot(t *testing.T) {
	store := memory.NewJournalStore()
	ctx := context.Background()

	require.NoError(t, store.AppendEntry(ctx, "actor-1", journal.Entry{Kind: journal.KindStateUpdated}))
	require.NoError(t, store.AppendEntry(ctx, "actor-1", journal.Entry{Kind: journal.KindStateUpdated}))

	entries, err := store.ReadEntries(ctx, "actor-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, 1, entries[1].Index)

	length, err := store.Length(ctx, "actor-1")
	require.NoError(t, err)
	assert.Equal(t, 2, length)

	require.NoError(t, store.SaveSnapshot(ctx, "actor-1", journal.Snapshot{Cursor: 2}))
	snap, ok, err := store.GetLatestSnapshot(ctx, "actor-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, snap.Cursor)

	require.NoError(t, store.TrimEntries(ctx, "actor-1", 2))
	length, err = store.Length(ctx, "actor-1")
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	require.NoError(t, store.DeleteJournal(ctx, "actor-1"))
	_, ok, err = store.GetLatestSnapshot(ctx, "actor-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJournalStore_EmptyActorID(t *testing.T) {
	store := memory.NewJournalStore()
	err := store.AppendEntry(context.Background(), "", journal.Entry{})
	assert.ErrorIs(t, err, journal.ErrEmptyActorID)
}

func TestJournalStore_ReadEntriesFromCursorAfterSnapshot(t *testing.T) {
	store := memory.NewJournalStore()
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, "actor-2", journal.Snapshot{Cursor: 10}))
	require.NoError(t, store.AppendEntry(ctx, "actor-2", journal.Entry{Kind: journal.KindStateUpdated}))
	require.NoError(t, store.AppendEntry(ctx, "actor-2", journal.Entry{Kind: journal.KindStateUpdated}))

	entries, err := store.ReadEntries(ctx, "actor-2", 11)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 11, entries[0].Index)
}

func TestLockBackend_FencingRejectsConcurrentHolder(t *testing.T) {
	backend := memory.NewLockBackend()
	ctx := context.Background()

	lease, ok, err := backend.TryAcquire(ctx, "resource", "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = backend.TryAcquire(ctx, "resource", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Release(ctx, lease))

	lease2, ok, err := backend.TryAcquire(ctx, "resource", "b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, lease2.FenceToken, lease.FenceToken)
}

func TestLockBackend_RenewRejectsStaleFenceToken(t *testing.T) {
	backend := memory.NewLockBackend()
	ctx := context.Background()

	lease, _, err := backend.TryAcquire(ctx, "resource", "a", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, ok, err := backend.TryAcquire(ctx, "resource", "b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = backend.Renew(ctx, lease, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a lease fenced out by a new holder must not renew")
}

func TestLockBackend_ReleaseOfStaleFenceTokenIsNoop(t *testing.T) {
	backend := memory.NewLockBackend()
	ctx := context.Background()

	lease, _, err := backend.TryAcquire(ctx, "resource", "a", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	newLease, ok, err := backend.TryAcquire(ctx, "resource", "b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, backend.Release(ctx, lease))

	_, ok, err = backend.Renew(ctx, newLease, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "b's live lease must be unaffected by a's stale release")
}

func TestPipelineStore_SaveInstanceRejectsStaleVersion(t *testing.T) {
	store := memory.NewPipelineStore()
	ctx := context.Background()

	def := pipeline.Definition{Name: "p", Stages: []pipeline.StageDefinition{{Name: "a"}}}
	inst := pipeline.NewInstance("pipeline-1", def, nil)
	require.NoError(t, store.SaveInstance(ctx, inst))

	stale := pipeline.NewInstance("pipeline-1", def, nil)
	stale.Version = 0
	err := store.SaveInstance(ctx, stale)
	assert.ErrorIs(t, err, pipeline.ErrStaleVersion)

	loaded, err := store.LoadInstance(ctx, "pipeline-1")
	require.NoError(t, err)
	loaded.Context["touched"] = true
	require.NoError(t, store.SaveInstance(ctx, loaded))
	assert.Equal(t, 2, loaded.Version)
}

func TestPipelineStore_LoadInstanceNotFound(t *testing.T) {
	store := memory.NewPipelineStore()
	_, err := store.LoadInstance(context.Background(), "missing")
	assert.ErrorIs(t, err, pipeline.ErrInstanceNotFound)
}

func TestPipelineStore_OutboxRelay(t *testing.T) {
	store := memory.NewPipelineStore()
	ctx := context.Background()

	rec := pipeline.OutboxRecord{PipelineID: "p", FromStage: "a", ToStage: "b"}
	require.NoError(t, store.AppendOutbox(ctx, rec))

	pending, err := store.PendingOutbox(ctx, "p")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, store.MarkRelayed(ctx, "p", "a", "b"))
	pending, err = store.PendingOutbox(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

var _ lock.Backend = (*memory.LockBackend)(nil)
