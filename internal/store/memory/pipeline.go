package memory

import (
	"context"
	"sync"

	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

// PipelineStore is the in-process reference implementation of
// pipeline.OutboxStore.
type PipelineStore struct {
	mu        sync.Mutex
	instances map[string]*pipeline.Instance
	outbox    map[string][]pipeline.OutboxRecord
}

// NewPipelineStore creates an empty PipelineStore.
func NewPipelineStore() *PipelineStore {
	return &PipelineStore{
		instances: make(map[string]*pipeline.Instance),
		outbox:    make(map[string][]pipeline.OutboxRecord),
	}
}

func (s *PipelineStore) SaveInstance(ctx context.Context, inst *pipeline.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.instances[inst.PipelineID]
	if ok && existing.Version != inst.Version {
		return pipeline.ErrStaleVersion
	}
	inst.Version++
	cp := *inst
	s.instances[inst.PipelineID] = &cp
	return nil
}

func (s *PipelineStore) LoadInstance(ctx context.Context, pipelineID string) (*pipeline.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[pipelineID]
	if !ok {
		return nil, pipeline.ErrInstanceNotFound
	}
	cp := *inst
	return &cp, nil
}

// Put seeds the store with a freshly created instance (bypassing the
// version check, used to start a new pipeline run).
func (s *PipelineStore) Put(inst *pipeline.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inst
	s.instances[inst.PipelineID] = &cp
}

func (s *PipelineStore) AppendOutbox(ctx context.Context, rec pipeline.OutboxRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox[rec.PipelineID] = append(s.outbox[rec.PipelineID], rec)
	return nil
}

func (s *PipelineStore) PendingOutbox(ctx context.Context, pipelineID string) ([]pipeline.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []pipeline.OutboxRecord
	for _, rec := range s.outbox[pipelineID] {
		if !rec.Relayed {
			pending = append(pending, rec)
		}
	}
	return pending, nil
}

func (s *PipelineStore) MarkRelayed(ctx context.Context, pipelineID, fromStage, toStage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.outbox[pipelineID] {
		if rec.FromStage == fromStage && rec.ToStage == toStage {
			s.outbox[pipelineID][i].Relayed = true
		}
	}
	return nil
}
