package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

// PipelineStore is the pgx-backed implementation of pipeline.OutboxStore.
// SaveInstance's compare-and-set on the version column is what gives the
// outbox relay its exactly-once advancement guarantee (spec.md §4.6).
type PipelineStore struct {
	pool *pgxpool.Pool
}

// NewPipelineStore wraps an open pool.
func NewPipelineStore(pool *pgxpool.Pool) *PipelineStore {
	return &PipelineStore{pool: pool}
}

func (s *PipelineStore) SaveInstance(ctx context.Context, inst *pipeline.Instance) error {
	definition, err := json.Marshal(inst.Definition)
	if err != nil {
		return fmt.Errorf("postgres: marshal definition: %w", err)
	}
	pctx, err := json.Marshal(inst.Context)
	if err != nil {
		return fmt.Errorf("postgres: marshal context: %w", err)
	}
	states, err := json.Marshal(inst.StageStates)
	if err != nil {
		return fmt.Errorf("postgres: marshal stage states: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE pipeline_instances
		 SET context = $1, stage_states = $2, version = version + 1, cancelled = $3
		 WHERE pipeline_id = $4 AND version = $5`,
		pctx, states, inst.Cancelled, inst.PipelineID, inst.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: update instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		ins, err := s.pool.Exec(ctx,
			`INSERT INTO pipeline_instances (pipeline_id, definition, context, stage_states, version, cancelled)
			 VALUES ($1, $2, $3, $4, 1, $5)
			 ON CONFLICT (pipeline_id) DO NOTHING`,
			inst.PipelineID, definition, pctx, states, inst.Cancelled,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert instance: %w", err)
		}
		if ins.RowsAffected() == 0 {
			return pipeline.ErrStaleVersion
		}
	}
	inst.Version++
	return nil
}

func (s *PipelineStore) LoadInstance(ctx context.Context, pipelineID string) (*pipeline.Instance, error) {
	var (
		definition []byte
		pctx       []byte
		states     []byte
		version    int
		cancelled  bool
	)
	err := s.pool.QueryRow(ctx,
		`SELECT definition, context, stage_states, version, cancelled
		 FROM pipeline_instances WHERE pipeline_id = $1`,
		pipelineID,
	).Scan(&definition, &pctx, &states, &version, &cancelled)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, pipeline.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("postgres: load instance: %w", err)
	}

	inst := &pipeline.Instance{PipelineID: pipelineID, Version: version, Cancelled: cancelled}
	if err := json.Unmarshal(definition, &inst.Definition); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal definition: %w", err)
	}
	if err := json.Unmarshal(pctx, &inst.Context); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal context: %w", err)
	}
	if err := json.Unmarshal(states, &inst.StageStates); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal stage states: %w", err)
	}
	return inst, nil
}

func (s *PipelineStore) AppendOutbox(ctx context.Context, rec pipeline.OutboxRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_outbox (pipeline_id, from_stage, to_stage, pipeline_version, relayed)
		 VALUES ($1, $2, $3, $4, FALSE)
		 ON CONFLICT (pipeline_id, from_stage, to_stage) DO NOTHING`,
		rec.PipelineID, rec.FromStage, rec.ToStage, rec.PipelineVersion,
	)
	if err != nil {
		return fmt.Errorf("postgres: append outbox: %w", err)
	}
	return nil
}

func (s *PipelineStore) PendingOutbox(ctx context.Context, pipelineID string) ([]pipeline.OutboxRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT pipeline_id, from_stage, to_stage, pipeline_version, relayed, created_at
		 FROM pipeline_outbox WHERE pipeline_id = $1 AND NOT relayed ORDER BY created_at ASC`,
		pipelineID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending outbox: %w", err)
	}
	defer rows.Close()

	var out []pipeline.OutboxRecord
	for rows.Next() {
		var rec pipeline.OutboxRecord
		if err := rows.Scan(&rec.PipelineID, &rec.FromStage, &rec.ToStage, &rec.PipelineVersion, &rec.Relayed, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan outbox: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PipelineStore) MarkRelayed(ctx context.Context, pipelineID, fromStage, toStage string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE pipeline_outbox SET relayed = TRUE
		 WHERE pipeline_id = $1 AND from_stage = $2 AND to_stage = $3`,
		pipelineID, fromStage, toStage,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark relayed: %w", err)
	}
	return nil
}
