package trigger

import (
	"context"
	"sync"
	"time"
)

// CronAdapter is a built-in Adapter that fires on a fixed interval,
// carrying no external authentication (Verify always accepts). Useful for
// periodic pipeline kick-offs (e.g. a nightly reconciliation pipeline).
type CronAdapter struct {
	name     string
	interval time.Duration
	payload  func() any

	mu       sync.Mutex
	onTrig   func(ctx context.Context, raw any)
	cancel   context.CancelFunc
	stopped  chan struct{}
}

// NewCronAdapter creates a CronAdapter named name, firing every interval
// with the value returned by payload (called fresh each tick).
func NewCronAdapter(name string, interval time.Duration, payload func() any) *CronAdapter {
	return &CronAdapter{name: name, interval: interval, payload: payload}
}

func (a *CronAdapter) Name() string { return a.name }

func (a *CronAdapter) OnTrigger(fn func(ctx context.Context, raw any)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onTrig = fn
}

func (a *CronAdapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.stopped = make(chan struct{})
	a.mu.Unlock()

	go func() {
		defer close(a.stopped)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				a.mu.Lock()
				fn := a.onTrig
				a.mu.Unlock()
				if fn != nil {
					fn(runCtx, a.payload())
				}
			}
		}
	}()
	return nil
}

func (a *CronAdapter) Stop() error {
	a.mu.Lock()
	cancel := a.cancel
	stopped := a.stopped
	a.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-stopped
	return nil
}

func (a *CronAdapter) Verify(ctx context.Context, raw any) (VerifyResult, error) {
	return VerifyResult{Valid: true}, nil
}
