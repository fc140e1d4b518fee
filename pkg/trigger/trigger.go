// Package trigger implements the pluggable event-source layer from
// spec.md §4.7: adapters verify and shape incoming events, the Manager
// composes them with per-trigger filter/transform, and accepted events are
// forwarded as messages for a bound actor type. Its Start/Stop/adapter
// composition shape is grounded on the teacher's pkg/events adapter
// wiring (NotifyListener/ConnectionManager life-cycle pairing in
// manager.go, catchup_adapter.go), generalized from WebSocket/Postgres
// NOTIFY specifically to any external event source.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrVerificationFailed indicates an adapter rejected an incoming event
// (bad signature, bad HMAC, missing bearer token).
var ErrVerificationFailed = errors.New("trigger: verification failed")

// VerifyResult is the outcome of an adapter's signature/auth check.
type VerifyResult struct {
	Valid  bool
	Reason string
}

// Event is one raw event an adapter has received, prior to filter/transform.
type Event struct {
	TriggerName string
	Raw         any
}

// Accepted is an Event that passed filter/transform/verify, ready to be
// forwarded as a message.
type Accepted struct {
	TriggerName string
	ActorID     string
	ActorType   string
	Payload     any
}

// Adapter is a pluggable event source — a webhook listener, a cron
// schedule, a queue subscription. Start/Stop bound its background
// goroutine(s); Verify authenticates one raw event; OnTrigger registers
// the callback the adapter invokes per accepted raw event.
type Adapter interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Verify(ctx context.Context, raw any) (VerifyResult, error)
	OnTrigger(fn func(ctx context.Context, raw any))
}

// Binding configures one adapter's forwarding behavior.
type Binding struct {
	Adapter       Adapter
	ActorType     string
	Filter        func(raw any) bool
	Transform     func(raw any) (actorID string, payload any, err error)
	RequireVerify bool
}

// Forwarder is the opaque sink Manager delivers Accepted events to —
// normally the runtime's message enqueue path.
type Forwarder func(ctx context.Context, accepted Accepted) error

// Manager composes multiple bound adapters and forwards accepted events.
// Delivery ordering across different adapters is explicitly out of scope
// (spec.md §4.7 Non-goals).
type Manager struct {
	mu       sync.Mutex
	bindings map[string]Binding
	forward  Forwarder
}

// NewManager creates a Manager that forwards accepted events via forward.
func NewManager(forward Forwarder) *Manager {
	return &Manager{bindings: make(map[string]Binding), forward: forward}
}

// Register binds an adapter into the manager. Re-registering the same
// adapter name replaces its binding.
func (m *Manager) Register(b Binding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[b.Adapter.Name()] = b
	b.Adapter.OnTrigger(func(ctx context.Context, raw any) {
		m.handle(ctx, b, raw)
	})
}

func (m *Manager) handle(ctx context.Context, b Binding, raw any) {
	log := slog.With("trigger", b.Adapter.Name())

	if b.Filter != nil && !b.Filter(raw) {
		log.Debug("event filtered out")
		return
	}

	if b.RequireVerify {
		result, err := b.Adapter.Verify(ctx, raw)
		if err != nil {
			log.Warn("verification error", "error", err)
			return
		}
		if !result.Valid {
			log.Warn("verification rejected event", "reason", result.Reason)
			return
		}
	}

	actorID, payload, err := b.Transform(raw)
	if err != nil {
		log.Warn("transform failed", "error", err)
		return
	}

	accepted := Accepted{
		TriggerName: b.Adapter.Name(),
		ActorID:     actorID,
		ActorType:   b.ActorType,
		Payload:     payload,
	}
	if err := m.forward(ctx, accepted); err != nil {
		log.Error("forward failed", "error", err)
	}
}

// Start starts every registered adapter. If one fails, already-started
// adapters are stopped before returning the error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	bindings := make([]Binding, 0, len(m.bindings))
	for _, b := range m.bindings {
		bindings = append(bindings, b)
	}
	m.mu.Unlock()

	started := make([]Adapter, 0, len(bindings))
	for _, b := range bindings {
		if err := b.Adapter.Start(ctx); err != nil {
			for _, a := range started {
				_ = a.Stop()
			}
			return fmt.Errorf("trigger: start adapter %s: %w", b.Adapter.Name(), err)
		}
		started = append(started, b.Adapter)
	}
	return nil
}

// Stop stops every registered adapter, collecting (not failing fast on)
// individual stop errors.
func (m *Manager) Stop() error {
	m.mu.Lock()
	bindings := make([]Binding, 0, len(m.bindings))
	for _, b := range m.bindings {
		bindings = append(bindings, b)
	}
	m.mu.Unlock()

	var errs []error
	for _, b := range bindings {
		if err := b.Adapter.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Adapter.Name(), err))
		}
	}
	return errors.Join(errs...)
}
