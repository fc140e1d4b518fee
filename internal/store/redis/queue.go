package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/actorflow/pkg/mqueue"
)

// QueueBackend is the Redis-backed implementation of mqueue.Backend.
// Per-actor priority ordering uses a sorted set scored by
// (-priority, seq) so ZRANGEBYSCORE naturally yields highest-priority,
// earliest-enqueued first; message bodies live in a parallel hash keyed
// by handle. Visibility timeouts are modeled as a second sorted set
// scored by the hide-until timestamp, swept lazily on Consume — the same
// lazy-expiry shape the teacher's orphan detection uses for stale
// sessions (pkg/queue/orphan.go), adapted from a polling ticker to an
// inline sweep since Consume is already called frequently by workers.
type QueueBackend struct {
	client *goredis.Client
}

// NewQueueBackend wraps an open client.
func NewQueueBackend(client *goredis.Client) *QueueBackend {
	return &QueueBackend{client: client}
}

func readyKey(actorID string) string  { return "actorflow:queue:{" + actorID + "}:ready" }
func hiddenKey(actorID string) string { return "actorflow:queue:{" + actorID + "}:hidden" }
func bodyKey(actorID string) string   { return "actorflow:queue:{" + actorID + "}:body" }
func actorsKey() string               { return "actorflow:queue:actors" }
func dlqKey() string                  { return "actorflow:queue:dlq" }

type storedMessage struct {
	Msg mqueue.Message `json:"msg"`
}

func score(priority int, seq int64) float64 {
	return float64(-priority)*1e15 + float64(seq)
}

func (b *QueueBackend) Enqueue(ctx context.Context, msg mqueue.Message) error {
	if msg.Attempt == 0 {
		msg.Attempt = 1
	}
	handle := uuid.NewString()
	body, err := json.Marshal(storedMessage{Msg: msg})
	if err != nil {
		return fmt.Errorf("redis: marshal message: %w", err)
	}

	seq := time.Now().UnixNano()
	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, bodyKey(msg.ActorID), handle, body)
	pipe.ZAdd(ctx, readyKey(msg.ActorID), goredis.Z{Score: score(msg.Priority, seq), Member: handle})
	pipe.SAdd(ctx, actorsKey(), msg.ActorID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: enqueue: %w", err)
	}
	return nil
}

func (b *QueueBackend) Consume(ctx context.Context, actorID string, visibility time.Duration) (mqueue.Delivery, error) {
	actorIDs := []string{actorID}
	if actorID == "" {
		all, err := b.client.SMembers(ctx, actorsKey()).Result()
		if err != nil {
			return mqueue.Delivery{}, fmt.Errorf("redis: list actors: %w", err)
		}
		actorIDs = all
	}

	for _, id := range actorIDs {
		if err := b.sweepExpired(ctx, id); err != nil {
			return mqueue.Delivery{}, err
		}
		handles, err := b.client.ZRange(ctx, readyKey(id), 0, 0).Result()
		if err != nil {
			return mqueue.Delivery{}, fmt.Errorf("redis: peek ready: %w", err)
		}
		if len(handles) == 0 {
			continue
		}
		handle := handles[0]

		removed, err := b.client.ZRem(ctx, readyKey(id), handle).Result()
		if err != nil {
			return mqueue.Delivery{}, fmt.Errorf("redis: claim: %w", err)
		}
		if removed == 0 {
			continue // lost race to another consumer
		}

		raw, err := b.client.HGet(ctx, bodyKey(id), handle).Result()
		if err != nil {
			return mqueue.Delivery{}, fmt.Errorf("redis: load body: %w", err)
		}
		var sm storedMessage
		if err := json.Unmarshal([]byte(raw), &sm); err != nil {
			return mqueue.Delivery{}, fmt.Errorf("redis: unmarshal body: %w", err)
		}

		hideUntil := time.Now().Add(visibility).UnixNano()
		if err := b.client.ZAdd(ctx, hiddenKey(id), goredis.Z{Score: float64(hideUntil), Member: handle}).Err(); err != nil {
			return mqueue.Delivery{}, fmt.Errorf("redis: hide: %w", err)
		}

		return mqueue.Delivery{Message: sm.Msg, Handle: id + "|" + handle}, nil
	}
	return mqueue.Delivery{}, mqueue.ErrEmpty
}

// sweepExpired requeues handles in the hidden set whose visibility window
// has elapsed, incrementing their attempt counter.
func (b *QueueBackend) sweepExpired(ctx context.Context, actorID string) error {
	now := float64(time.Now().UnixNano())
	expired, err := b.client.ZRangeByScore(ctx, hiddenKey(actorID), &goredis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%f", now)}).Result()
	if err != nil {
		return fmt.Errorf("redis: sweep expired: %w", err)
	}
	for _, handle := range expired {
		raw, err := b.client.HGet(ctx, bodyKey(actorID), handle).Result()
		if err != nil {
			continue
		}
		var sm storedMessage
		if json.Unmarshal([]byte(raw), &sm) == nil {
			sm.Msg.Attempt++
			if body, err := json.Marshal(sm); err == nil {
				_ = b.client.HSet(ctx, bodyKey(actorID), handle, body).Err()
			}
		}
		pipe := b.client.TxPipeline()
		pipe.ZRem(ctx, hiddenKey(actorID), handle)
		pipe.ZAdd(ctx, readyKey(actorID), goredis.Z{Score: score(0, time.Now().UnixNano()), Member: handle})
		_, _ = pipe.Exec(ctx)
	}
	return nil
}

func splitHandle(handle string) (actorID, h string, err error) {
	for i := 0; i < len(handle); i++ {
		if handle[i] == '|' {
			return handle[:i], handle[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("redis: malformed handle %q", handle)
}

func (b *QueueBackend) Ack(ctx context.Context, handle string) error {
	actorID, h, err := splitHandle(handle)
	if err != nil {
		return err
	}
	pipe := b.client.TxPipeline()
	pipe.ZRem(ctx, hiddenKey(actorID), h)
	pipe.HDel(ctx, bodyKey(actorID), h)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis: ack: %w", err)
	}
	return nil
}

func (b *QueueBackend) Nack(ctx context.Context, handle string, delayBy time.Duration, reason string) error {
	actorID, h, err := splitHandle(handle)
	if err != nil {
		return err
	}

	raw, err := b.client.HGet(ctx, bodyKey(actorID), h).Result()
	if err != nil {
		return fmt.Errorf("redis: nack load: %w", err)
	}
	var sm storedMessage
	if err := json.Unmarshal([]byte(raw), &sm); err != nil {
		return fmt.Errorf("redis: nack unmarshal: %w", err)
	}
	sm.Msg.Attempt++

	pipe := b.client.TxPipeline()
	pipe.ZRem(ctx, hiddenKey(actorID), h)

	if sm.Msg.Attempt >= mqueue.DefaultRetryPolicy.MaxAttempts {
		dl := mqueue.DeadLetter{Message: sm.Msg, Reason: reason, FailedAt: time.Now()}
		body, _ := json.Marshal(dl)
		pipe.LPush(ctx, dlqKey(), body)
		pipe.HDel(ctx, bodyKey(actorID), h)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis: dead-letter: %w", err)
		}
		return nil
	}

	body, err := json.Marshal(sm)
	if err != nil {
		return fmt.Errorf("redis: marshal nack body: %w", err)
	}
	pipe.HSet(ctx, bodyKey(actorID), h, body)
	pipe.ZAdd(ctx, readyKey(actorID), goredis.Z{Score: float64(time.Now().Add(delayBy).UnixNano()), Member: h})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: nack: %w", err)
	}
	return nil
}

func (b *QueueBackend) DeadLetters(ctx context.Context, actorID string, limit int) ([]mqueue.DeadLetter, error) {
	raws, err := b.client.LRange(ctx, dlqKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list dead letters: %w", err)
	}
	out := make([]mqueue.DeadLetter, 0, len(raws))
	for _, raw := range raws {
		var dl mqueue.DeadLetter
		if json.Unmarshal([]byte(raw), &dl) != nil {
			continue
		}
		if actorID != "" && dl.Message.ActorID != actorID {
			continue
		}
		out = append(out, dl)
	}
	return out, nil
}
