package config

import "github.com/codeready-toolchain/actorflow/pkg/pipeline"

// Config is the umbrella configuration object that encapsulates all
// registries, defaults, and configuration state. This is the primary
// object returned by Initialize and used throughout cmd/actorflowd and
// cmd/actorctl.
type Config struct {
	configDir string

	// System-wide defaults, applied where an actor type config leaves a
	// field unset.
	Defaults *Defaults

	// Component registries.
	ActorTypeRegistry *ActorTypeRegistry
	PipelineRegistry  *PipelineRegistry

	// Infrastructure tuning.
	Queue     *QueueConfig
	Lock      *LockConfig
	Pool      *PoolConfig
	Store     *StoreConfig
	Retention *RetentionConfig
}

// ConfigStats contains statistics about loaded configuration, surfaced by
// cmd/actorctl's dashboard.
type ConfigStats struct {
	ActorTypes int
	Pipelines  int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		ActorTypes: len(c.ActorTypeRegistry.GetAll()),
		Pipelines:  len(c.PipelineRegistry.GetAll()),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetActorType retrieves an actor type configuration by name. Convenience
// wrapper around ActorTypeRegistry.Get.
func (c *Config) GetActorType(name string) (*ActorTypeConfig, error) {
	return c.ActorTypeRegistry.Get(name)
}

// GetPipeline retrieves a pipeline definition by name. Convenience
// wrapper around PipelineRegistry.Get.
func (c *Config) GetPipeline(name string) (*pipeline.Definition, error) {
	return c.PipelineRegistry.Get(name)
}
