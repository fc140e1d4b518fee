package memory

import (
	"context"
	"sync"
	"time"

	"github.com/codeready-toolchain/actorflow/pkg/sharedmem"
)

type entry struct {
	value     any
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// SharedMemory is the in-process reference implementation of
// sharedmem.Store.
type SharedMemory struct {
	mu      sync.Mutex
	kv      map[string]entry
	lists   map[string][]entry
	hashes  map[string]map[string]entry
	sets    map[string]map[string]entry
	counter map[string]entry
}

// NewSharedMemory creates an empty SharedMemory.
func NewSharedMemory() *SharedMemory {
	return &SharedMemory{
		kv:      make(map[string]entry),
		lists:   make(map[string][]entry),
		hashes:  make(map[string]map[string]entry),
		sets:    make(map[string]map[string]entry),
		counter: make(map[string]entry),
	}
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (s *SharedMemory) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = entry{value: value, expiresAt: expiry(ttl)}
	return nil
}

func (s *SharedMemory) Get(ctx context.Context, key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.kv[key]
	if !ok || e.expired(time.Now()) {
		return nil, sharedmem.ErrNotFound
	}
	return e.value, nil
}

func (s *SharedMemory) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	delete(s.lists, key)
	delete(s.hashes, key)
	delete(s.sets, key)
	delete(s.counter, key)
	return nil
}

func (s *SharedMemory) ListAppend(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], entry{value: value, expiresAt: expiry(ttl)})
	return nil
}

func (s *SharedMemory) ListRange(ctx context.Context, key string, start, stop int) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var live []any
	for _, e := range s.lists[key] {
		if !e.expired(now) {
			live = append(live, e.value)
		}
	}
	n := len(live)
	if n == 0 {
		return nil, nil
	}
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}
	return live[start : stop+1], nil
}

func (s *SharedMemory) HashSet(ctx context.Context, key, field string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]entry)
		s.hashes[key] = h
	}
	h[field] = entry{value: value, expiresAt: expiry(ttl)}
	return nil
}

func (s *SharedMemory) HashGet(ctx context.Context, key, field string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		return nil, sharedmem.ErrNotFound
	}
	e, ok := h[field]
	if !ok || e.expired(time.Now()) {
		return nil, sharedmem.ErrNotFound
	}
	return e.value, nil
}

func (s *SharedMemory) HashGetAll(ctx context.Context, key string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hashes[key]
	now := time.Now()
	out := make(map[string]any, len(h))
	for field, e := range h {
		if !e.expired(now) {
			out[field] = e.value
		}
	}
	return out, nil
}

func (s *SharedMemory) SetAdd(ctx context.Context, key string, member string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]entry)
		s.sets[key] = set
	}
	set[member] = entry{value: struct{}{}, expiresAt: expiry(ttl)}
	return nil
}

func (s *SharedMemory) SetMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var out []string
	for member, e := range s.sets[key] {
		if !e.expired(now) {
			out = append(out, member)
		}
	}
	return out, nil
}

func (s *SharedMemory) SetIsMember(ctx context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sets[key][member]
	if !ok || e.expired(time.Now()) {
		return false, nil
	}
	return true, nil
}

func (s *SharedMemory) CounterIncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.counter[key]
	var cur int64
	if ok && !e.expired(time.Now()) {
		cur, _ = e.value.(int64)
	}
	cur += delta
	s.counter[key] = entry{value: cur, expiresAt: expiry(ttl)}
	return cur, nil
}
