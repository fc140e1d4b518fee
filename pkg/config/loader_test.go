package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
actor_types:
  counter:
    name: counter
    description: "increments a counter"
    compaction_threshold: 50
pipelines:
  fanout:
    name: fanout
    stages:
      - name: scatter-step
        mode: scatter
        executor:
          activity_name: do-work
          input_expr: "$.parameters.items"
        items_expr: "$.parameters.items"
        max_parallel: 4
      - name: gather-step
        mode: gather
        depends_on: ["scatter-step"]
        executor:
          activity_name: summarize
        gather_policy: all
queue:
  worker_count: 8
`

func writeConfigDir(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "actorflow.yaml"), []byte(contents), 0o644))
	return dir
}

func TestInitialize_LoadsAndValidatesYAML(t *testing.T) {
	dir := writeConfigDir(t, sampleYAML)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	require.True(t, cfg.ActorTypeRegistry.Has("counter"))
	at, err := cfg.GetActorType("counter")
	require.NoError(t, err)
	require.Equal(t, 50, at.CompactionThreshold)

	pipe, err := cfg.GetPipeline("fanout")
	require.NoError(t, err)
	require.Len(t, pipe.Stages, 2)

	require.Equal(t, 8, cfg.Queue.WorkerCount)
}

func TestInitialize_MissingFileReturnsLoadError(t *testing.T) {
	dir := t.TempDir()

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitialize_InvalidYAMLReturnsLoadError(t *testing.T) {
	dir := writeConfigDir(t, "actor_types: [this is not a map]")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}
