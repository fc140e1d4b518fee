package pipeline_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/actorflow/internal/store/memory"
	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

func echoActivity(_ context.Context, name string, input any) (any, error) {
	if name == "boom" {
		return nil, fmt.Errorf("activity failed")
	}
	return input, nil
}

func noSecrets(name string) (string, error) {
	return "", fmt.Errorf("no secret %q configured", name)
}

func TestOrchestrator_AdvanceSingleStageChain(t *testing.T) {
	store := memory.NewPipelineStore()
	def := pipeline.Definition{
		Name: "chain",
		Stages: []pipeline.StageDefinition{
			{Name: "a", Mode: pipeline.ModeSingle, Executor: pipeline.ExecutorConfig{ActivityName: "echo"}},
			{Name: "b", Mode: pipeline.ModeSingle, DependsOn: []string{"a"}, Executor: pipeline.ExecutorConfig{ActivityName: "echo"}},
		},
	}
	inst := pipeline.NewInstance("p-1", def, map[string]any{"x": 1})
	require.NoError(t, store.SaveInstance(context.Background(), inst))

	orch := pipeline.NewOrchestrator(store, echoActivity, noSecrets)

	done, err := orch.Advance(context.Background(), "p-1")
	require.NoError(t, err)
	assert.False(t, done, "stage b cannot run until a completes")

	done, err = orch.Advance(context.Background(), "p-1")
	require.NoError(t, err)
	assert.True(t, done)

	loaded, err := store.LoadInstance(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageCompleted, loaded.StageStates["a"].Status)
	assert.Equal(t, pipeline.StageCompleted, loaded.StageStates["b"].Status)
}

func TestOrchestrator_FailedStageCascadesCancellation(t *testing.T) {
	store := memory.NewPipelineStore()
	def := pipeline.Definition{
		Name: "chain",
		Stages: []pipeline.StageDefinition{
			{Name: "a", Mode: pipeline.ModeSingle, Executor: pipeline.ExecutorConfig{ActivityName: "boom"}},
			{Name: "b", Mode: pipeline.ModeSingle, DependsOn: []string{"a"}, Executor: pipeline.ExecutorConfig{ActivityName: "echo"}},
		},
	}
	inst := pipeline.NewInstance("p-2", def, nil)
	require.NoError(t, store.SaveInstance(context.Background(), inst))

	orch := pipeline.NewOrchestrator(store, echoActivity, noSecrets)

	done, err := orch.Advance(context.Background(), "p-2")
	require.NoError(t, err)
	assert.True(t, done, "a failed stage terminates the pipeline once its cascade settles")

	loaded, err := store.LoadInstance(context.Background(), "p-2")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageFailed, loaded.StageStates["a"].Status)
	assert.Equal(t, pipeline.StageCancelled, loaded.StageStates["b"].Status)
}

func TestOrchestrator_ScatterGather(t *testing.T) {
	store := memory.NewPipelineStore()
	def := pipeline.Definition{
		Name: "fanout",
		Stages: []pipeline.StageDefinition{
			{
				Name:        "scatter",
				Mode:        pipeline.ModeScatter,
				ItemsExpr:   "$.parameters.items",
				MaxParallel: 2,
				Executor:    pipeline.ExecutorConfig{ActivityName: "echo"},
			},
			{
				Name:         "gather",
				Mode:         pipeline.ModeGather,
				DependsOn:    []string{"scatter"},
				GatherPolicy: pipeline.GatherAll,
				Executor:     pipeline.ExecutorConfig{ActivityName: "echo"},
			},
		},
	}
	inst := pipeline.NewInstance("p-3", def, map[string]any{"items": []any{"x", "y", "z"}})
	require.NoError(t, store.SaveInstance(context.Background(), inst))

	orch := pipeline.NewOrchestrator(store, echoActivity, noSecrets)

	_, err := orch.Advance(context.Background(), "p-3")
	require.NoError(t, err)
	done, err := orch.Advance(context.Background(), "p-3")
	require.NoError(t, err)
	assert.True(t, done)

	loaded, err := store.LoadInstance(context.Background(), "p-3")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageCompleted, loaded.StageStates["scatter"].Status)
	assert.Len(t, loaded.StageStates["scatter"].Tasks, 3)
	assert.Equal(t, pipeline.StageCompleted, loaded.StageStates["gather"].Status)

	gathered, ok := loaded.StageStates["gather"].Tasks[0].Result.([]any)
	require.True(t, ok, "a gather stage with no groupBy must produce an array of the upstream results")
	assert.ElementsMatch(t, []any{"x", "y", "z"}, gathered)
}

func TestOrchestrator_GatherWithGroupByInvokesConsolidationActivity(t *testing.T) {
	store := memory.NewPipelineStore()
	var invocations []map[string]any
	consolidate := func(_ context.Context, name string, input any) (any, error) {
		if name == "consolidate" {
			m := input.(map[string]any)
			invocations = append(invocations, m)
			group := m["group"].(map[string]any)
			return fmt.Sprintf("summary-for-%s", group["key"]), nil
		}
		return input, nil
	}

	def := pipeline.Definition{
		Name: "fanout-grouped",
		Stages: []pipeline.StageDefinition{
			{
				Name:        "scatter",
				Mode:        pipeline.ModeScatter,
				ItemsExpr:   "$.parameters.items",
				MaxParallel: 2,
				Executor:    pipeline.ExecutorConfig{ActivityName: "echo"},
			},
			{
				Name:         "gather",
				Mode:         pipeline.ModeGather,
				DependsOn:    []string{"scatter"},
				GatherPolicy: pipeline.GatherAll,
				GroupByExpr:  "$.team",
				Executor:     pipeline.ExecutorConfig{ActivityName: "consolidate"},
			},
		},
	}
	items := []any{
		map[string]any{"team": "a", "value": 1},
		map[string]any{"team": "b", "value": 2},
		map[string]any{"team": "a", "value": 3},
	}
	inst := pipeline.NewInstance("p-3b", def, map[string]any{"items": items})
	require.NoError(t, store.SaveInstance(context.Background(), inst))

	orch := pipeline.NewOrchestrator(store, consolidate, noSecrets)

	_, err := orch.Advance(context.Background(), "p-3b")
	require.NoError(t, err)
	done, err := orch.Advance(context.Background(), "p-3b")
	require.NoError(t, err)
	assert.True(t, done)

	require.Len(t, invocations, 2, "the consolidation activity must run exactly once per distinct group key")

	loaded, err := store.LoadInstance(context.Background(), "p-3b")
	require.NoError(t, err)
	gathered, ok := loaded.StageStates["gather"].Tasks[0].Result.([]any)
	require.True(t, ok, "a gather stage with groupBy must produce an array of per-group results")
	assert.Equal(t, []any{"summary-for-a", "summary-for-b"}, gathered, "group results must appear in group-key insertion order")
}

func TestOrchestrator_CancelMarksNonTerminalStagesCancelled(t *testing.T) {
	store := memory.NewPipelineStore()
	def := pipeline.Definition{
		Name: "chain",
		Stages: []pipeline.StageDefinition{
			{Name: "a", Mode: pipeline.ModeSingle, Executor: pipeline.ExecutorConfig{ActivityName: "echo"}},
		},
	}
	inst := pipeline.NewInstance("p-4", def, nil)
	require.NoError(t, store.SaveInstance(context.Background(), inst))

	orch := pipeline.NewOrchestrator(store, echoActivity, noSecrets)
	require.NoError(t, orch.Cancel(context.Background(), "p-4"))

	done, err := orch.Advance(context.Background(), "p-4")
	require.NoError(t, err)
	assert.True(t, done, "a cancelled pipeline reports done without dispatching further stages")
}
