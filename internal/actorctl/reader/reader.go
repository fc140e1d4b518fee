// Package reader is the thin data-access layer behind cmd/actorctl,
// modeled on quarry/cli/reader: CLI commands stay thin wrappers around a
// Reader method, and all knowledge of store internals lives here.
//
// actorctl is read-only and ID-addressed: none of journal.Store,
// pipeline.OutboxStore, or mqueue.Backend expose a "list all actors"
// enumeration, so inspection commands take an explicit ID rather than
// browsing a list. Dead-letter listing and config stats are the only
// aggregate views, because those are the only surfaces the store
// interfaces actually support.
package reader

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/actorflow/internal/storewire"
	"github.com/codeready-toolchain/actorflow/pkg/config"
	"github.com/codeready-toolchain/actorflow/pkg/journal"
	"github.com/codeready-toolchain/actorflow/pkg/mqueue"
	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

// Reader answers read-only queries against the configured store backends.
type Reader struct {
	cfg    *config.Config
	stores *storewire.Stores
}

// New builds a Reader from an already-loaded config and opened stores.
func New(cfg *config.Config, stores *storewire.Stores) *Reader {
	return &Reader{cfg: cfg, stores: stores}
}

// ConfigSummary reports the loaded actor type and pipeline registries.
type ConfigSummary struct {
	ConfigDir  string   `json:"configDir"`
	ActorTypes []string `json:"actorTypes"`
	Pipelines  []string `json:"pipelines"`
}

// Config returns a summary of the loaded configuration.
func (r *Reader) Config() ConfigSummary {
	types := make([]string, 0, len(r.cfg.ActorTypeRegistry.GetAll()))
	for name := range r.cfg.ActorTypeRegistry.GetAll() {
		types = append(types, name)
	}
	pipelines := make([]string, 0, len(r.cfg.PipelineRegistry.GetAll()))
	for name := range r.cfg.PipelineRegistry.GetAll() {
		pipelines = append(pipelines, name)
	}
	return ConfigSummary{
		ConfigDir:  r.cfg.ConfigDir(),
		ActorTypes: types,
		Pipelines:  pipelines,
	}
}

// ActorDetail is the inspection result for one actor's durable journal.
type ActorDetail struct {
	ActorID     string           `json:"actorId"`
	EntryCount  int              `json:"entryCount"`
	Entries     []journal.Entry  `json:"entries,omitempty"`
	HasSnapshot bool             `json:"hasSnapshot"`
	Snapshot    journal.Snapshot `json:"snapshot,omitempty"`
}

// InspectActor loads actorID's journal entries (from cursor 0) and latest
// snapshot, if any. Does not require the actor type to be registered —
// inspection reads the durable log directly, bypassing activation.
func (r *Reader) InspectActor(ctx context.Context, actorID string) (*ActorDetail, error) {
	if actorID == "" {
		return nil, fmt.Errorf("reader: actor id is required")
	}
	entries, err := r.stores.Journal.ReadEntries(ctx, actorID, 0)
	if err != nil {
		return nil, fmt.Errorf("reader: read entries for %q: %w", actorID, err)
	}
	snapshot, ok, err := r.stores.Journal.GetLatestSnapshot(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("reader: read snapshot for %q: %w", actorID, err)
	}
	detail := &ActorDetail{
		ActorID:     actorID,
		EntryCount:  len(entries),
		Entries:     entries,
		HasSnapshot: ok,
	}
	if ok {
		detail.Snapshot = snapshot
	}
	return detail, nil
}

// PipelineDetail is the inspection result for one pipeline instance,
// including any outbox records awaiting relay.
type PipelineDetail struct {
	Instance      *pipeline.Instance      `json:"instance"`
	PendingOutbox []pipeline.OutboxRecord `json:"pendingOutbox,omitempty"`
}

// InspectPipeline loads pipelineID's instance state and pending outbox.
func (r *Reader) InspectPipeline(ctx context.Context, pipelineID string) (*PipelineDetail, error) {
	if pipelineID == "" {
		return nil, fmt.Errorf("reader: pipeline id is required")
	}
	inst, err := r.stores.Pipeline.LoadInstance(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("reader: load instance %q: %w", pipelineID, err)
	}
	pending, err := r.stores.Pipeline.PendingOutbox(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("reader: pending outbox for %q: %w", pipelineID, err)
	}
	return &PipelineDetail{Instance: inst, PendingOutbox: pending}, nil
}

// DeadLetters lists dead-lettered messages for actorID, or for every actor
// if actorID is empty, most recent first and bounded by limit.
func (r *Reader) DeadLetters(ctx context.Context, actorID string, limit int) ([]mqueue.DeadLetter, error) {
	letters, err := r.stores.Queue.DeadLetters(ctx, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("reader: dead letters: %w", err)
	}
	return letters, nil
}
