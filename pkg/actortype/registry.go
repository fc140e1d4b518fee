// Package actortype implements the capability-set dispatch described in
// spec.md's DESIGN NOTES §9: actor variants (a plain counter, a
// pipeline-stage worker, a policy-bearing agent with an LLM-call
// hook-point) are modeled as tagged Capabilities values selected by
// actorType, not as a class hierarchy. The registry maps actorType to a
// Factory that builds fresh Capabilities for a new instance.
package actortype

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/codeready-toolchain/actorflow/pkg/actorcore"
)

// ErrUnknownActorType indicates the registry has no factory for a type.
var ErrUnknownActorType = errors.New("actortype: unknown actor type")

// LLMCall is the opaque collaborator hook for actor types that delegate
// to an LLM. The core never imports an LLM client; it only knows that
// CallActivity's name/input/result are opaque (spec.md DESIGN NOTES §9).
type LLMCall func(ctx context.Context, input any) (any, error)

// ToolRegistry is the opaque hook for actor types that expose callable
// tools to a delegated collaborator (e.g. an LLM-driven agent).
type ToolRegistry interface {
	Invoke(ctx context.Context, name string, args any) (any, error)
}

// Delegate lets an actor type hand off part of its work to a named
// sub-actor type, mirroring the teacher's sub-agent dispatch
// (pkg/agent/orchestrator/runner.go) without a parent↔child back-pointer
// — children are addressed by parentActorId string only (DESIGN NOTES §9).
type Delegate func(ctx context.Context, inst *actorcore.Instance, childType string, input any) (string, error)

// Capabilities is the tagged-value variant selected per actorType. Only
// Execute is required; the rest are optional capabilities an actor type
// may populate.
type Capabilities struct {
	Execute             actorcore.ExecuteFunc
	Telemetry           string // free-form label consumed by the telemetry surface
	LLMCall             LLMCall
	Tools               ToolRegistry
	Delegate            Delegate
	CompactionThreshold int // 0 => actorcore.DefaultCompactionThreshold
}

// Factory builds a fresh Capabilities value for a new instance of an
// actor type. Factories must be side-effect free aside from reading
// static configuration — actor state lives only in the journal.
type Factory func() Capabilities

// Registry maps actorType to its Factory. Thread-safe.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates actorType with factory. Re-registering the same
// type overwrites the previous factory.
func (r *Registry) Register(actorType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[actorType] = factory
}

// Build constructs Capabilities for actorType, or ErrUnknownActorType.
func (r *Registry) Build(actorType string) (Capabilities, error) {
	r.mu.RLock()
	factory, ok := r.factories[actorType]
	r.mu.RUnlock()
	if !ok {
		return Capabilities{}, fmt.Errorf("%w: %s", ErrUnknownActorType, actorType)
	}
	return factory(), nil
}

// Has reports whether actorType is registered.
func (r *Registry) Has(actorType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[actorType]
	return ok
}

// Types returns the currently registered actor type names.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	return out
}
