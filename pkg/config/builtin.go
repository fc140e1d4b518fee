package config

import "github.com/codeready-toolchain/actorflow/pkg/pipeline"

// BuiltinConfig holds the library's built-in actor types and pipelines,
// the direct descendant of the teacher's BuiltinConfig singleton
// (pkg/config/builtin.go): defaults a deployment can rely on without
// writing any YAML, overridable by user config of the same name.
type BuiltinConfig struct {
	ActorTypes                 map[string]ActorTypeConfig
	Pipelines                  map[string]pipeline.Definition
	DefaultCompactionThreshold int
}

// GetBuiltinConfig returns the package's built-in configuration. Unlike
// the teacher's package-level var initialized at import time, this
// constructs a fresh value per call so tests can't observe mutation
// across cases.
func GetBuiltinConfig() *BuiltinConfig {
	return &BuiltinConfig{
		ActorTypes: map[string]ActorTypeConfig{
			"stage-worker": {
				Name:                "stage-worker",
				Description:         "Bridges pipeline.Orchestrator.Advance into the actor activation model.",
				CompactionThreshold: 200,
				Telemetry:           "stage-worker",
			},
		},
		Pipelines:                  map[string]pipeline.Definition{},
		DefaultCompactionThreshold: 100,
	}
}
