// Package runtime implements the actor activation sequence from spec.md
// §4/§5: acquire lease, replay, dispatch the actor-type's Execute, resolve
// or record suspension, and release the lease — wiring actorcore, lock,
// and mqueue together. It plays the same connective role the teacher's
// pkg/queue.Worker plays for AlertSession processing, generalized from a
// single hard-coded domain object to any registered actor type.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/actorflow/pkg/actorcore"
	"github.com/codeready-toolchain/actorflow/pkg/actortype"
	"github.com/codeready-toolchain/actorflow/pkg/journal"
	"github.com/codeready-toolchain/actorflow/pkg/lock"
	"github.com/codeready-toolchain/actorflow/pkg/mqueue"
)

// ErrPoolExhausted indicates the bounded actor pool has no room for a new
// instance and eviction of an idle entry did not free one.
var ErrPoolExhausted = errors.New("runtime: actor pool exhausted")

// DefaultLeaseTTL and DefaultMaxPoolSize mirror the teacher's worker/pool
// sizing defaults, adapted to actor-instance terms.
const (
	DefaultLeaseTTL    = 30 * time.Second
	DefaultMaxPoolSize = 100
	DefaultIdleTimeout = 5 * time.Minute
)

// ActivityInvoker is the opaque collaborator that performs an activity
// call's real work (an LLM call, an HTTP fetch, a tool invocation). The
// runtime only knows name/input/result; the actor type owns meaning.
type ActivityInvoker func(ctx context.Context, activityID, name string, input any) (any, error)

// ChildDispatcher is the signature of a callback that enqueues a spawned
// child's first message. New stores it on the Runtime; Activate does not
// call it, so a child spawned through actorcore is only journaled.
type ChildDispatcher func(ctx context.Context, childID, childType string, input any) error

// Runtime hosts a bounded pool of live actorcore.Instance values and drives
// their activation sequence.
type Runtime struct {
	store      journal.Store
	locks      *lock.Service
	registry   *actortype.Registry
	invoker    ActivityInvoker
	dispatch   ChildDispatcher
	leaseTTL   time.Duration
	maxPool    int
	idleAfter  time.Duration
	holderName string

	mu   sync.Mutex
	pool map[string]*pooledInstance
}

type pooledInstance struct {
	inst       *actorcore.Instance
	lastUsed   time.Time
	leaseToken *lock.Lease
}

// New constructs a Runtime. holderName identifies this process as a lease
// holder (e.g. pod ID).
func New(store journal.Store, locks *lock.Service, registry *actortype.Registry, invoker ActivityInvoker, dispatch ChildDispatcher, holderName string) *Runtime {
	return &Runtime{
		store:      store,
		locks:      locks,
		registry:   registry,
		invoker:    invoker,
		dispatch:   dispatch,
		leaseTTL:   DefaultLeaseTTL,
		maxPool:    DefaultMaxPoolSize,
		idleAfter:  DefaultIdleTimeout,
		holderName: holderName,
		pool:       make(map[string]*pooledInstance),
	}
}

// Activate runs one slice of execution for actorID/actorType against msg:
// acquire the lease, load (or reuse pooled) replayed state, invoke the
// actor type's Execute, drive any activity calls to completion, and
// release the lease. Returns nil, nil for an already-processed message
// (idempotent redelivery, spec.md §8) or one still waiting on an event.
//
// An activity resolution re-enters Execute in a loop rather than
// recursing into Activate itself: the lease held above is non-reentrant
// (pkg/lock), so acquiring it a second time on the same holder before the
// first is released would self-deadlock into ErrLeaseConflict.
func (r *Runtime) Activate(ctx context.Context, actorID, actorType string, msg mqueue.Message) (any, error) {
	log := slog.With("actor_id", actorID, "actor_type", actorType, "message_id", msg.MessageID)

	lease, err := r.locks.Acquire(ctx, actorID, r.holderName, r.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("runtime: acquire lease: %w", err)
	}
	if lease == nil {
		return nil, lock.ErrLeaseConflict
	}
	defer func() {
		if err := r.locks.Release(ctx, lease); err != nil {
			log.Warn("failed to release lease", "error", err)
		}
	}()

	renewCtx, cancelRenew := context.WithCancel(ctx)
	defer cancelRenew()
	r.locks.AutoRenew(renewCtx, lease, r.leaseTTL, func(err error) {
		log.Warn("lease lost during activation", "error", err)
	})

	inst, err := r.acquirePooled(ctx, actorID, actorType)
	if err != nil {
		return nil, err
	}

	caps, err := r.registry.Build(actorType)
	if err != nil {
		return nil, fmt.Errorf("runtime: build capabilities: %w", err)
	}

	for {
		result, execErr := inst.Execute(ctx, caps.Execute, msg.MessageID, msg.Timestamp.UnixMilli(), msg.Payload)
		if execErr != nil {
			if actErr := (*actorcore.ActivitySuspendError)(nil); errorsAs(execErr, &actErr) {
				if err := r.resolveActivity(ctx, inst, actErr); err != nil {
					return nil, err
				}
				continue
			}
			if evtErr := (*actorcore.EventSuspendError)(nil); errorsAs(execErr, &evtErr) {
				log.Debug("actor suspended waiting for event", "event_type", evtErr.EventType)
				return nil, nil
			}
			return nil, execErr
		}

		if inst.NeedsCompaction() {
			if err := inst.CompactJournal(ctx); err != nil {
				log.Warn("compaction failed, continuing uncompacted", "error", err)
			}
		}

		r.touch(actorID)
		return result, nil
	}
}

func errorsAs(err error, target any) bool {
	return errors.As(err, target)
}

// resolveActivity dispatches a scheduled activity via the runtime's
// ActivityInvoker and journals the outcome so the next Execute call in
// Activate's loop observes it. This is a synchronous, in-process stand-in
// for what would be an async callback in a distributed activity worker
// pool (spec.md leaves activity execution topology open).
func (r *Runtime) resolveActivity(ctx context.Context, inst *actorcore.Instance, suspend *actorcore.ActivitySuspendError) error {
	result, err := r.invoker(ctx, suspend.ActivityID, suspend.Name, nil)
	return inst.ResumeWithActivity(ctx, suspend.ActivityID, result, err)
}

// acquirePooled returns a replayed Instance for actorID, reusing a pooled
// one if present and still fresh, evicting the least-recently-used entry
// if the pool is at capacity.
func (r *Runtime) acquirePooled(ctx context.Context, actorID, actorType string) (*actorcore.Instance, error) {
	r.mu.Lock()
	if entry, ok := r.pool[actorID]; ok {
		entry.lastUsed = time.Now()
		r.mu.Unlock()
		return entry.inst, nil
	}
	if len(r.pool) >= r.maxPool {
		r.evictIdleLocked()
	}
	if len(r.pool) >= r.maxPool {
		r.mu.Unlock()
		return nil, ErrPoolExhausted
	}
	r.mu.Unlock()

	caps, err := r.registry.Build(actorType)
	if err != nil {
		return nil, fmt.Errorf("runtime: build capabilities: %w", err)
	}
	inst := actorcore.New(actorID, actorType, r.store, caps.CompactionThreshold)
	if err := inst.Replay(ctx); err != nil {
		return nil, fmt.Errorf("runtime: replay %s: %w", actorID, err)
	}

	r.mu.Lock()
	r.pool[actorID] = &pooledInstance{inst: inst, lastUsed: time.Now()}
	r.mu.Unlock()
	return inst, nil
}

func (r *Runtime) evictIdleLocked() {
	cutoff := time.Now().Add(-r.idleAfter)
	lruID := ""
	var lruAt time.Time
	for id, entry := range r.pool {
		if entry.lastUsed.Before(cutoff) {
			delete(r.pool, id)
			continue
		}
		if lruID == "" || entry.lastUsed.Before(lruAt) {
			lruID, lruAt = id, entry.lastUsed
		}
	}
	if len(r.pool) >= r.maxPool && lruID != "" {
		delete(r.pool, lruID)
	}
}

func (r *Runtime) touch(actorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.pool[actorID]; ok {
		entry.lastUsed = time.Now()
	}
}

// Evict drops actorID from the pool immediately, forcing a fresh replay on
// its next activation.
func (r *Runtime) Evict(actorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pool, actorID)
}

// PoolSize returns the number of actors currently held in the pool.
func (r *Runtime) PoolSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pool)
}
