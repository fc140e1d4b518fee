package journal

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for journal store operations, in the teacher's style
// (pkg/config/errors.go): package-level sentinels plus a wrapping struct
// for contextual detail.
var (
	// ErrEmptyActorID is returned when an operation is attempted with an
	// empty actor identifier.
	ErrEmptyActorID = errors.New("journal: actorId must not be empty")

	// ErrDataCorruption indicates a stored entry could not be deserialized.
	// Per spec.md §4.1 this is fatal for the actor; a corrupt snapshot is
	// instead treated as absent (see Store.GetLatestSnapshot).
	ErrDataCorruption = errors.New("journal: corrupt entry")

	// ErrUnknownEntryKind indicates an entry carries a kind the reader does
	// not recognize. Unknown kinds are fatal on read (spec.md §6).
	ErrUnknownEntryKind = errors.New("journal: unknown entry kind")
)

// DataCorruptionError wraps ErrDataCorruption / ErrUnknownEntryKind with the
// actor and index at fault.
type DataCorruptionError struct {
	ActorID string
	Index   int
	Err     error
}

func (e *DataCorruptionError) Error() string {
	return fmt.Sprintf("journal: actor %q entry %d: %v", e.ActorID, e.Index, e.Err)
}

func (e *DataCorruptionError) Unwrap() error { return e.Err }

// Store is the durable per-actor append-only log plus latest snapshot.
// Implementations must return independent copies from ReadEntries:
// callers are free to mutate the returned slice without affecting the
// store's internal state.
type Store interface {
	// AppendEntry atomically appends entry to actorId's journal. Rejects
	// an empty actorId with ErrEmptyActorID.
	AppendEntry(ctx context.Context, actorID string, entry Entry) error

	// ReadEntries returns actorId's entries in order, starting at cursor
	// (the number of entries already consumed). A corrupt entry fails the
	// whole read with a *DataCorruptionError.
	ReadEntries(ctx context.Context, actorID string, cursor int) ([]Entry, error)

	// TrimEntries drops entries with Index < beforeCursor. A no-op for
	// beforeCursor == 0; legal for beforeCursor >= length (all dropped).
	TrimEntries(ctx context.Context, actorID string, beforeCursor int) error

	// SaveSnapshot overwrites any existing snapshot atomically.
	SaveSnapshot(ctx context.Context, actorID string, snapshot Snapshot) error

	// GetLatestSnapshot returns the actor's latest snapshot, or
	// (Snapshot{}, false, nil) if none exists or the stored snapshot was
	// corrupt (corrupt snapshots are treated as absent, not fatal).
	GetLatestSnapshot(ctx context.Context, actorID string) (Snapshot, bool, error)

	// DeleteJournal removes all entries and the snapshot for actorId.
	DeleteJournal(ctx context.Context, actorID string) error

	// Length returns the number of entries currently retained for actorId
	// (post-trim). Used by compaction and tests.
	Length(ctx context.Context, actorID string) (int, error)
}
