package pipeline

import "context"

// OutboxStore persists pipeline instances and their outbox records with
// compare-and-set semantics on Version, so that exactly one advancer wins
// a race to move a pipeline past a completed stage (spec.md §4.6).
type OutboxStore interface {
	// SaveInstance persists inst if inst.Version matches the stored
	// version (or the instance is new), then increments the stored
	// version. Returns ErrStaleVersion on a version mismatch.
	SaveInstance(ctx context.Context, inst *Instance) error

	// LoadInstance loads a pipeline instance by ID.
	LoadInstance(ctx context.Context, pipelineID string) (*Instance, error)

	// AppendOutbox durably records rec in the same transaction as the
	// stage completion that produced it (callers are expected to call
	// this and SaveInstance together; concrete stores may fold both into
	// one write).
	AppendOutbox(ctx context.Context, rec OutboxRecord) error

	// PendingOutbox lists unrelayed outbox records for pipelineID, oldest
	// first.
	PendingOutbox(ctx context.Context, pipelineID string) ([]OutboxRecord, error)

	// MarkRelayed marks an outbox record as relayed, idempotently.
	MarkRelayed(ctx context.Context, pipelineID, fromStage, toStage string) error
}
