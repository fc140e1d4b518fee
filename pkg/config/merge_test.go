package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

func TestMergeActorTypes_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]ActorTypeConfig{
		"worker": {Name: "worker", CompactionThreshold: 100},
	}
	user := map[string]ActorTypeConfig{
		"worker": {Name: "worker", CompactionThreshold: 500},
		"extra":  {Name: "extra"},
	}

	merged := mergeActorTypes(builtin, user)
	assert.Len(t, merged, 2)
	assert.Equal(t, 500, merged["worker"].CompactionThreshold)
	assert.Contains(t, merged, "extra")
}

func TestMergePipelines_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]pipeline.Definition{
		"p1": {Name: "p1", Stages: []pipeline.StageDefinition{{Name: "a"}}},
	}
	user := map[string]pipeline.Definition{
		"p1": {Name: "p1", Stages: []pipeline.StageDefinition{{Name: "a"}, {Name: "b"}}},
	}

	merged := mergePipelines(builtin, user)
	assert.Len(t, merged["p1"].Stages, 2)
}
