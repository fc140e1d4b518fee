package config

import (
	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

// PipelineRegistry holds the merged, validated set of pipeline
// definitions keyed by name. pipeline.Definition itself carries the
// yaml tags needed to unmarshal directly from YAML (see
// pkg/pipeline/types.go), so this registry stores the domain type
// verbatim rather than a parallel config-only shape.
type PipelineRegistry struct {
	entries map[string]*pipeline.Definition
}

// NewPipelineRegistry builds a registry from a name-keyed map, storing
// defensive copies.
func NewPipelineRegistry(entries map[string]*pipeline.Definition) *PipelineRegistry {
	copied := make(map[string]*pipeline.Definition, len(entries))
	for name, e := range entries {
		c := *e
		copied[name] = &c
	}
	return &PipelineRegistry{entries: copied}
}

// Get retrieves a pipeline definition by name.
func (r *PipelineRegistry) Get(name string) (*pipeline.Definition, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, ErrPipelineNotFound
	}
	c := *e
	return &c, nil
}

// GetAll returns every configured pipeline definition.
func (r *PipelineRegistry) GetAll() map[string]*pipeline.Definition {
	out := make(map[string]*pipeline.Definition, len(r.entries))
	for name, e := range r.entries {
		c := *e
		out[name] = &c
	}
	return out
}
