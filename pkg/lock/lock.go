// Package lock provides named fenced leases with TTL renewal and release
// (spec.md §4.3). Non-reentrant; the runtime renews in the background at
// <= TTL/3. Each Lease carries its fence token, but the journal and
// pipeline stores neither take nor check it, so downstream writes are not
// fenced by it.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLeaseConflict indicates the resource is already held by another
// holder; the caller should drop the current message for redelivery to
// another worker (spec.md §7).
var ErrLeaseConflict = errors.New("lock: resource already held")

// ErrLeaseExpired indicates a renew/release was attempted against a lease
// whose fence token is no longer current.
var ErrLeaseExpired = errors.New("lock: lease expired or fenced out")

// Lease is a fenced exclusive reservation of a named resource.
type Lease struct {
	Resource   string
	FenceToken int64
	HeldBy     string
	ExpiresAt  time.Time
}

// Backend is the concrete store behind Service. Backends must guarantee
// at most one live lease per resource at any instant and a strictly
// increasing fence token per resource.
type Backend interface {
	// TryAcquire attempts to create a lease for resource, held by holder,
	// for ttl. Returns (Lease{}, false, nil) on conflict.
	TryAcquire(ctx context.Context, resource, holder string, ttl time.Duration) (Lease, bool, error)

	// Renew extends an existing lease's expiry, verifying the fence token
	// still matches. Returns false if the lease is no longer current.
	Renew(ctx context.Context, lease Lease, ttl time.Duration) (Lease, bool, error)

	// Release drops the lease if its fence token still matches current
	// state; releasing an already-expired/fenced lease is a no-op.
	Release(ctx context.Context, lease Lease) error
}

// Service is the named-lease contract actors and pipeline stages acquire
// before mutating durable state.
type Service struct {
	backend Backend
}

// NewService wraps a Backend.
func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// Acquire attempts a non-blocking acquisition of resource for ttl. A nil
// Lease pointer with a nil error indicates conflict (caller's choice
// whether to retry; spec.md §4.3 leaves blocking behavior to the caller).
func (s *Service) Acquire(ctx context.Context, resource, holder string, ttl time.Duration) (*Lease, error) {
	lease, ok, err := s.backend.TryAcquire(ctx, resource, holder, ttl)
	if err != nil {
		return nil, fmt.Errorf("lock: acquire %s: %w", resource, err)
	}
	if !ok {
		return nil, nil
	}
	return &lease, nil
}

// Renew extends handle's TTL. The runtime calls this in the background at
// an interval <= ttl/3, per spec.md §4.3.
func (s *Service) Renew(ctx context.Context, handle *Lease, ttl time.Duration) (bool, error) {
	lease, ok, err := s.backend.Renew(ctx, *handle, ttl)
	if err != nil {
		return false, fmt.Errorf("lock: renew %s: %w", handle.Resource, err)
	}
	if ok {
		*handle = lease
	}
	return ok, nil
}

// Release drops handle.
func (s *Service) Release(ctx context.Context, handle *Lease) error {
	if handle == nil {
		return nil
	}
	if err := s.backend.Release(ctx, *handle); err != nil {
		return fmt.Errorf("lock: release %s: %w", handle.Resource, err)
	}
	return nil
}

// AutoRenew starts a background goroutine that renews handle every
// ttl/3 until ctx is cancelled or a renewal fails (e.g. fenced out by a
// new holder). onLost is invoked at most once, from the goroutine, when
// renewal definitively fails.
func (s *Service) AutoRenew(ctx context.Context, handle *Lease, ttl time.Duration, onLost func(error)) {
	interval := ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := s.Renew(ctx, handle, ttl)
				if err != nil {
					onLost(err)
					return
				}
				if !ok {
					onLost(ErrLeaseExpired)
					return
				}
			}
		}
	}()
}
