package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/actorflow/pkg/sharedmem"
)

// SharedMemory is the Redis-backed implementation of sharedmem.Store,
// mapping each primitive onto its natural Redis counterpart (string,
// list, hash, set) rather than emulating all of them atop one type.
type SharedMemory struct {
	client *goredis.Client
	prefix string
}

// NewSharedMemory wraps an open client. prefix namespaces all keys
// (e.g. "actorflow:sharedmem:") to avoid collision with lock/queue keys.
func NewSharedMemory(client *goredis.Client, prefix string) *SharedMemory {
	return &SharedMemory{client: client, prefix: prefix}
}

func (s *SharedMemory) key(k string) string { return s.prefix + k }

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sharedmem/redis: marshal: %w", err)
	}
	return string(b), nil
}

func decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("sharedmem/redis: unmarshal: %w", err)
	}
	return v, nil
}

func (s *SharedMemory) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("sharedmem/redis: set: %w", err)
	}
	return nil
}

func (s *SharedMemory) Get(ctx context.Context, key string) (any, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, sharedmem.ErrNotFound
		}
		return nil, fmt.Errorf("sharedmem/redis: get: %w", err)
	}
	return decode(raw)
}

func (s *SharedMemory) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *SharedMemory) ListAppend(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key(key), raw)
	if ttl > 0 {
		pipe.Expire(ctx, s.key(key), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sharedmem/redis: list append: %w", err)
	}
	return nil
}

func (s *SharedMemory) ListRange(ctx context.Context, key string, start, stop int) ([]any, error) {
	raws, err := s.client.LRange(ctx, s.key(key), int64(start), int64(stop)).Result()
	if err != nil {
		return nil, fmt.Errorf("sharedmem/redis: list range: %w", err)
	}
	out := make([]any, 0, len(raws))
	for _, raw := range raws {
		v, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *SharedMemory) HashSet(ctx context.Context, key, field string, value any, ttl time.Duration) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(key), field, raw)
	if ttl > 0 {
		pipe.Expire(ctx, s.key(key), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sharedmem/redis: hash set: %w", err)
	}
	return nil
}

func (s *SharedMemory) HashGet(ctx context.Context, key, field string) (any, error) {
	raw, err := s.client.HGet(ctx, s.key(key), field).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, sharedmem.ErrNotFound
		}
		return nil, fmt.Errorf("sharedmem/redis: hash get: %w", err)
	}
	return decode(raw)
}

func (s *SharedMemory) HashGetAll(ctx context.Context, key string) (map[string]any, error) {
	raws, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("sharedmem/redis: hash get all: %w", err)
	}
	out := make(map[string]any, len(raws))
	for field, raw := range raws {
		v, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out[field] = v
	}
	return out, nil
}

func (s *SharedMemory) SetAdd(ctx context.Context, key string, member string, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.key(key), member)
	if ttl > 0 {
		pipe.Expire(ctx, s.key(key), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sharedmem/redis: set add: %w", err)
	}
	return nil
}

func (s *SharedMemory) SetMembers(ctx context.Context, key string) ([]string, error) {
	out, err := s.client.SMembers(ctx, s.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("sharedmem/redis: set members: %w", err)
	}
	return out, nil
}

func (s *SharedMemory) SetIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key(key), member).Result()
	if err != nil {
		return false, fmt.Errorf("sharedmem/redis: set is member: %w", err)
	}
	return ok, nil
}

func (s *SharedMemory) CounterIncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.IncrBy(ctx, s.key(key), delta)
	if ttl > 0 {
		pipe.Expire(ctx, s.key(key), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("sharedmem/redis: counter incr: %w", err)
	}
	return incr.Val(), nil
}
