package s3

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/actorflow/pkg/journal"
)

// archivedMarker is stored in place of a snapshot's State once the real
// state has been offloaded to S3, so GetLatestSnapshot can tell a pointer
// apart from a genuinely small snapshot.
const archivedMarker = "__actorflow_s3_archived__"

// ArchivingStore decorates a journal.Store, offloading snapshots whose
// encoded state exceeds Threshold bytes to S3 and leaving a small pointer
// snapshot behind in the inner store. Entries are never archived, only
// snapshots: entries are replayed incrementally and don't benefit from
// whole-blob storage the way a single large state map does.
type ArchivingStore struct {
	inner     journal.Store
	blobs     *BlobStore
	threshold int
}

// NewArchivingStore wraps inner, archiving snapshots larger than threshold
// bytes (approximated by summed string length of encoded values) to blobs.
func NewArchivingStore(inner journal.Store, blobs *BlobStore, threshold int) *ArchivingStore {
	return &ArchivingStore{inner: inner, blobs: blobs, threshold: threshold}
}

func (a *ArchivingStore) AppendEntry(ctx context.Context, actorID string, entry journal.Entry) error {
	return a.inner.AppendEntry(ctx, actorID, entry)
}

func (a *ArchivingStore) ReadEntries(ctx context.Context, actorID string, cursor int) ([]journal.Entry, error) {
	return a.inner.ReadEntries(ctx, actorID, cursor)
}

func (a *ArchivingStore) TrimEntries(ctx context.Context, actorID string, beforeCursor int) error {
	return a.inner.TrimEntries(ctx, actorID, beforeCursor)
}

func (a *ArchivingStore) SaveSnapshot(ctx context.Context, actorID string, snapshot journal.Snapshot) error {
	if estimateSize(snapshot.State) <= a.threshold {
		return a.inner.SaveSnapshot(ctx, actorID, snapshot)
	}

	blobName := snapshotBlobName(actorID)
	if err := a.blobs.Put(ctx, blobName, snapshot); err != nil {
		return fmt.Errorf("s3: archive snapshot: %w", err)
	}

	pointer := journal.Snapshot{
		State:     map[string]any{archivedMarker: blobName},
		Cursor:    snapshot.Cursor,
		Timestamp: snapshot.Timestamp,
	}
	return a.inner.SaveSnapshot(ctx, actorID, pointer)
}

func (a *ArchivingStore) GetLatestSnapshot(ctx context.Context, actorID string) (journal.Snapshot, bool, error) {
	snap, ok, err := a.inner.GetLatestSnapshot(ctx, actorID)
	if err != nil || !ok {
		return snap, ok, err
	}

	blobName, archived := snap.State[archivedMarker].(string)
	if !archived {
		return snap, true, nil
	}

	var full journal.Snapshot
	if err := a.blobs.Get(ctx, blobName, &full); err != nil {
		if err == ErrNotFound {
			// Archived blob is gone; treat as absent rather than fatal,
			// consistent with how a corrupt inline snapshot is handled.
			return journal.Snapshot{}, false, nil
		}
		return journal.Snapshot{}, false, fmt.Errorf("s3: load archived snapshot: %w", err)
	}
	return full, true, nil
}

func (a *ArchivingStore) DeleteJournal(ctx context.Context, actorID string) error {
	_ = a.blobs.Delete(ctx, snapshotBlobName(actorID))
	return a.inner.DeleteJournal(ctx, actorID)
}

func (a *ArchivingStore) Length(ctx context.Context, actorID string) (int, error) {
	return a.inner.Length(ctx, actorID)
}

func snapshotBlobName(actorID string) string {
	return "snapshots/" + actorID
}

// estimateSize approximates the encoded byte size of a snapshot's state
// without a full marshal, cheap enough to run on every SaveSnapshot call.
func estimateSize(state map[string]any) int {
	total := 0
	for k, v := range state {
		total += len(k)
		total += estimateValueSize(v)
	}
	return total
}

func estimateValueSize(v any) int {
	switch t := v.(type) {
	case string:
		return len(t)
	case map[string]any:
		return estimateSize(t)
	case []any:
		sum := 0
		for _, e := range t {
			sum += estimateValueSize(e)
		}
		return sum
	default:
		return 16
	}
}
