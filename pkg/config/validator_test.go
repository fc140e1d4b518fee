package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

func validConfig() *Config {
	return &Config{
		Defaults:          &Defaults{},
		ActorTypeRegistry: NewActorTypeRegistry(map[string]*ActorTypeConfig{"worker": {Name: "worker"}}),
		PipelineRegistry:  NewPipelineRegistry(map[string]*pipeline.Definition{}),
		Queue:             DefaultQueueConfig(),
		Lock:              DefaultLockConfig(),
		Pool:              DefaultPoolConfig(),
		Store:             DefaultStoreConfig(),
		Retention:         DefaultRetentionConfig(),
	}
}

func TestValidateAll_ValidConfigPasses(t *testing.T) {
	require.NoError(t, NewValidator(validConfig()).ValidateAll())
}

func TestValidateQueue_RejectsZeroWorkerCount(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.WorkerCount = 0
	assert.Error(t, NewValidator(cfg).ValidateAll())
}

func TestValidateStore_RejectsUnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Journal = BackendKind("carrier-pigeon")
	assert.Error(t, NewValidator(cfg).ValidateAll())
}

func TestValidatePipelines_RejectsUnknownDependsOn(t *testing.T) {
	cfg := validConfig()
	cfg.PipelineRegistry = NewPipelineRegistry(map[string]*pipeline.Definition{
		"p1": {
			Name: "p1",
			Stages: []pipeline.StageDefinition{
				{Name: "a", Executor: pipeline.ExecutorConfig{ActivityName: "do-a"}, DependsOn: []string{"missing"}},
			},
		},
	})
	assert.ErrorIs(t, NewValidator(cfg).ValidateAll(), ErrInvalidReference)
}

func TestValidatePipelines_RejectsCycle(t *testing.T) {
	cfg := validConfig()
	cfg.PipelineRegistry = NewPipelineRegistry(map[string]*pipeline.Definition{
		"p1": {
			Name: "p1",
			Stages: []pipeline.StageDefinition{
				{Name: "a", Executor: pipeline.ExecutorConfig{ActivityName: "do-a"}, DependsOn: []string{"b"}},
				{Name: "b", Executor: pipeline.ExecutorConfig{ActivityName: "do-b"}, DependsOn: []string{"a"}},
			},
		},
	})
	assert.ErrorIs(t, NewValidator(cfg).ValidateAll(), ErrCyclicPipeline)
}

func TestValidatePipelines_RejectsMissingGatherPolicy(t *testing.T) {
	cfg := validConfig()
	cfg.PipelineRegistry = NewPipelineRegistry(map[string]*pipeline.Definition{
		"p1": {
			Name: "p1",
			Stages: []pipeline.StageDefinition{
				{Name: "a", Mode: pipeline.ModeGather, Executor: pipeline.ExecutorConfig{ActivityName: "do-a"}},
			},
		},
	})
	assert.ErrorIs(t, NewValidator(cfg).ValidateAll(), ErrInvalidValue)
}

func TestValidateRetention_RejectsNegativeDays(t *testing.T) {
	cfg := validConfig()
	cfg.Retention.CompletedPipelineRetentionDays = -1
	assert.Error(t, NewValidator(cfg).ValidateAll())
}

func TestCheckAcyclic_NoDependenciesIsFine(t *testing.T) {
	stages := []pipeline.StageDefinition{{Name: "solo"}}
	assert.NoError(t, checkAcyclic(stages))
}
