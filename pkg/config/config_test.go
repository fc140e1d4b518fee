package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

func TestConfig_StatsAndGetters(t *testing.T) {
	cfg := &Config{
		configDir:         "/tmp/cfg",
		ActorTypeRegistry: NewActorTypeRegistry(map[string]*ActorTypeConfig{"worker": {Name: "worker"}}),
		PipelineRegistry: NewPipelineRegistry(map[string]*pipeline.Definition{
			"p1": {Name: "p1"},
		}),
	}

	stats := cfg.Stats()
	assert.Equal(t, 1, stats.ActorTypes)
	assert.Equal(t, 1, stats.Pipelines)
	assert.Equal(t, "/tmp/cfg", cfg.ConfigDir())

	_, err := cfg.GetActorType("missing")
	require.ErrorIs(t, err, ErrActorTypeNotFound)

	_, err = cfg.GetPipeline("missing")
	require.ErrorIs(t, err, ErrPipelineNotFound)
}
