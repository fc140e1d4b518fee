// Package sharedmem implements the coordination surface from spec.md
// §4.8: namespaced key-value (last-write-wins), append-only lists, hashes,
// sets, and atomic counters, each with optional per-operation TTL. Keys
// are colon-separated namespaces, e.g. "chat:<conversationId>:history".
package sharedmem

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a key has no value (or has expired).
var ErrNotFound = errors.New("sharedmem: key not found")

// ErrWrongType indicates an operation was applied to a key holding a
// different shared-memory type (e.g. HashSet on a key created via Set).
var ErrWrongType = errors.New("sharedmem: wrong type for key")

// Store is the coordination surface used by actor types and pipeline
// stages that need to share state outside the journal (e.g. a running
// chat transcript, an idempotency cache, a fan-in counter).
type Store interface {
	// KV (last-write-wins).
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (any, error)
	Delete(ctx context.Context, key string) error

	// Append-only lists.
	ListAppend(ctx context.Context, key string, value any, ttl time.Duration) error
	ListRange(ctx context.Context, key string, start, stop int) ([]any, error)

	// Hashes.
	HashSet(ctx context.Context, key, field string, value any, ttl time.Duration) error
	HashGet(ctx context.Context, key, field string) (any, error)
	HashGetAll(ctx context.Context, key string) (map[string]any, error)

	// Sets.
	SetAdd(ctx context.Context, key string, member string, ttl time.Duration) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetIsMember(ctx context.Context, key, member string) (bool, error)

	// Atomic counters.
	CounterIncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}
