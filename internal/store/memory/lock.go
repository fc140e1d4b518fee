package memory

import (
	"context"
	"sync"
	"time"

	"github.com/codeready-toolchain/actorflow/pkg/lock"
)

type lockState struct {
	fenceToken int64
	holder     string
	expiresAt  time.Time
}

// LockBackend is the in-process reference implementation of lock.Backend,
// used by tests and single-node deployments. See internal/store/redis for
// the distributed equivalent.
type LockBackend struct {
	mu     sync.Mutex
	leases map[string]*lockState
}

// NewLockBackend creates an empty LockBackend.
func NewLockBackend() *LockBackend {
	return &LockBackend{leases: make(map[string]*lockState)}
}

func (b *LockBackend) TryAcquire(ctx context.Context, resource, holder string, ttl time.Duration) (lock.Lease, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	st, held := b.leases[resource]
	if held && st.expiresAt.After(now) {
		return lock.Lease{}, false, nil
	}

	fence := int64(1)
	if held {
		fence = st.fenceToken + 1
	}
	newState := &lockState{
		fenceToken: fence,
		holder:     holder,
		expiresAt:  now.Add(ttl),
	}
	b.leases[resource] = newState

	return lock.Lease{
		Resource:   resource,
		FenceToken: newState.fenceToken,
		HeldBy:     holder,
		ExpiresAt:  newState.expiresAt,
	}, true, nil
}

func (b *LockBackend) Renew(ctx context.Context, lease lock.Lease, ttl time.Duration) (lock.Lease, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.leases[lease.Resource]
	if !ok || st.fenceToken != lease.FenceToken || st.holder == "" {
		return lock.Lease{}, false, nil
	}
	st.expiresAt = time.Now().Add(ttl)
	return lock.Lease{
		Resource:   lease.Resource,
		FenceToken: st.fenceToken,
		HeldBy:     st.holder,
		ExpiresAt:  st.expiresAt,
	}, true, nil
}

func (b *LockBackend) Release(ctx context.Context, lease lock.Lease) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.leases[lease.Resource]
	if !ok || st.fenceToken != lease.FenceToken {
		return nil
	}
	// Keep the state so the next acquisition continues from this fence token.
	st.holder = ""
	st.expiresAt = time.Time{}
	return nil
}
