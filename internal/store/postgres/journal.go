package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/actorflow/pkg/journal"
)

// JournalStore is the pgx-backed, multi-node implementation of
// journal.Store.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore wraps an open pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

func (s *JournalStore) AppendEntry(ctx context.Context, actorID string, entry journal.Entry) error {
	if actorID == "" {
		return journal.ErrEmptyActorID
	}
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("postgres: marshal entry payload: %w", err)
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO journal_entries (actor_id, index, kind, timestamp, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		actorID, entry.Index, string(entry.Kind), ts, payload,
	)
	if err != nil {
		return fmt.Errorf("postgres: append entry: %w", err)
	}
	return nil
}

func (s *JournalStore) ReadEntries(ctx context.Context, actorID string, cursor int) ([]journal.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT index, kind, timestamp, payload FROM journal_entries
		 WHERE actor_id = $1 AND index >= $2 ORDER BY index ASC`,
		actorID, cursor,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: read entries: %w", err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		var (
			index   int
			kind    string
			ts      time.Time
			payload []byte
		)
		if err := rows.Scan(&index, &kind, &ts, &payload); err != nil {
			return nil, fmt.Errorf("postgres: scan entry: %w", err)
		}
		decoded, err := decodePayload(journal.EntryKind(kind), payload)
		if err != nil {
			return nil, &journal.DataCorruptionError{ActorID: actorID, Index: index, Err: err}
		}
		entries = append(entries, journal.Entry{Kind: journal.EntryKind(kind), Index: index, Timestamp: ts, Payload: decoded})
	}
	return entries, rows.Err()
}

func decodePayload(kind journal.EntryKind, raw []byte) (any, error) {
	var target any
	switch kind {
	case journal.KindStateUpdated:
		target = &journal.StateUpdatedPayload{}
	case journal.KindActivityScheduled:
		target = &journal.ActivityScheduledPayload{}
	case journal.KindActivityCompleted:
		target = &journal.ActivityCompletedPayload{}
	case journal.KindActivityFailed:
		target = &journal.ActivityFailedPayload{}
	case journal.KindChildSpawned:
		target = &journal.ChildSpawnedPayload{}
	case journal.KindEventReceived:
		target = &journal.EventReceivedPayload{}
	case journal.KindSuspended:
		target = &journal.SuspendedPayload{}
	case journal.KindInvocation:
		target = &journal.InvocationPayload{}
	case journal.KindDecisionMade, journal.KindContextGathered:
		target = &journal.AuditPayload{}
	default:
		return nil, journal.ErrUnknownEntryKind
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	switch v := target.(type) {
	case *journal.StateUpdatedPayload:
		return *v, nil
	case *journal.ActivityScheduledPayload:
		return *v, nil
	case *journal.ActivityCompletedPayload:
		return *v, nil
	case *journal.ActivityFailedPayload:
		return *v, nil
	case *journal.ChildSpawnedPayload:
		return *v, nil
	case *journal.EventReceivedPayload:
		return *v, nil
	case *journal.SuspendedPayload:
		return *v, nil
	case *journal.InvocationPayload:
		return *v, nil
	case *journal.AuditPayload:
		return *v, nil
	default:
		return nil, journal.ErrUnknownEntryKind
	}
}

func (s *JournalStore) TrimEntries(ctx context.Context, actorID string, beforeCursor int) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM journal_entries WHERE actor_id = $1 AND index < $2`,
		actorID, beforeCursor,
	)
	if err != nil {
		return fmt.Errorf("postgres: trim entries: %w", err)
	}
	return nil
}

func (s *JournalStore) SaveSnapshot(ctx context.Context, actorID string, snapshot journal.Snapshot) error {
	state, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("postgres: marshal snapshot state: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO journal_snapshots (actor_id, state, cursor, timestamp)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (actor_id) DO UPDATE SET state = $2, cursor = $3, timestamp = $4`,
		actorID, state, snapshot.Cursor, snapshot.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: save snapshot: %w", err)
	}
	return nil
}

func (s *JournalStore) GetLatestSnapshot(ctx context.Context, actorID string) (journal.Snapshot, bool, error) {
	var (
		state  []byte
		cursor int
		ts     int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT state, cursor, timestamp FROM journal_snapshots WHERE actor_id = $1`,
		actorID,
	).Scan(&state, &cursor, &ts)
	if err != nil {
		if err == pgx.ErrNoRows {
			return journal.Snapshot{}, false, nil
		}
		return journal.Snapshot{}, false, fmt.Errorf("postgres: load snapshot: %w", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(state, &decoded); err != nil {
		return journal.Snapshot{}, false, nil // corrupt snapshot treated as absent, per spec.md §7
	}
	return journal.Snapshot{State: decoded, Cursor: cursor, Timestamp: ts}, true, nil
}

func (s *JournalStore) DeleteJournal(ctx context.Context, actorID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM journal_entries WHERE actor_id = $1`, actorID); err != nil {
		return fmt.Errorf("postgres: delete entries: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM journal_snapshots WHERE actor_id = $1`, actorID); err != nil {
		return fmt.Errorf("postgres: delete snapshot: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *JournalStore) Length(ctx context.Context, actorID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM journal_entries WHERE actor_id = $1`, actorID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: length: %w", err)
	}
	return n, nil
}
