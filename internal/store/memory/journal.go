// Package memory provides in-memory reference implementations of the
// core store interfaces (journal.Store, lock.Backend, mqueue.Backend,
// sharedmem.Store, pipeline.OutboxStore). These back the default, dependency-free runtime and
// are what the unit test suites exercise directly; the Postgres/Redis/S3
// backends under internal/store/{postgres,redis,s3} implement the same
// interfaces against real infrastructure.
package memory

import (
	"context"
	"sync"

	"github.com/codeready-toolchain/actorflow/pkg/journal"
)

type actorJournal struct {
	entries  []journal.Entry
	snapshot *journal.Snapshot
}

// JournalStore is an in-memory journal.Store. Safe for concurrent use.
type JournalStore struct {
	mu       sync.Mutex
	journals map[string]*actorJournal
}

// NewJournalStore creates an empty in-memory journal store.
func NewJournalStore() *JournalStore {
	return &JournalStore{journals: make(map[string]*actorJournal)}
}

func (s *JournalStore) get(actorID string) *actorJournal {
	j, ok := s.journals[actorID]
	if !ok {
		j = &actorJournal{}
		s.journals[actorID] = j
	}
	return j
}

// AppendEntry implements journal.Store.
func (s *JournalStore) AppendEntry(_ context.Context, actorID string, entry journal.Entry) error {
	if actorID == "" {
		return journal.ErrEmptyActorID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.get(actorID)
	entry.Index = len(j.entries)
	if j.snapshot != nil {
		entry.Index = j.snapshot.Cursor + len(j.entries)
	}
	j.entries = append(j.entries, entry)
	return nil
}

// ReadEntries implements journal.Store.
func (s *JournalStore) ReadEntries(_ context.Context, actorID string, cursor int) ([]journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journals[actorID]
	if !ok {
		return nil, nil
	}
	base := 0
	if j.snapshot != nil {
		base = j.snapshot.Cursor
	}
	start := cursor - base
	if start < 0 {
		start = 0
	}
	if start >= len(j.entries) {
		return []journal.Entry{}, nil
	}
	out := make([]journal.Entry, len(j.entries)-start)
	copy(out, j.entries[start:])
	return out, nil
}

// TrimEntries implements journal.Store.
func (s *JournalStore) TrimEntries(_ context.Context, actorID string, beforeCursor int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journals[actorID]
	if !ok {
		return nil
	}
	base := 0
	if len(j.entries) > 0 {
		base = j.entries[0].Index
	}
	cut := beforeCursor - base
	if cut <= 0 {
		return nil
	}
	if cut >= len(j.entries) {
		j.entries = nil
		return nil
	}
	remaining := make([]journal.Entry, len(j.entries)-cut)
	copy(remaining, j.entries[cut:])
	j.entries = remaining
	return nil
}

// SaveSnapshot implements journal.Store.
func (s *JournalStore) SaveSnapshot(_ context.Context, actorID string, snapshot journal.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.get(actorID)
	cloned := snapshot.Clone()
	j.snapshot = &cloned
	return nil
}

// GetLatestSnapshot implements journal.Store.
func (s *JournalStore) GetLatestSnapshot(_ context.Context, actorID string) (journal.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journals[actorID]
	if !ok || j.snapshot == nil {
		return journal.Snapshot{}, false, nil
	}
	return j.snapshot.Clone(), true, nil
}

// DeleteJournal implements journal.Store.
func (s *JournalStore) DeleteJournal(_ context.Context, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.journals, actorID)
	return nil
}

// Length implements journal.Store.
func (s *JournalStore) Length(_ context.Context, actorID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journals[actorID]
	if !ok {
		return 0, nil
	}
	return len(j.entries), nil
}
