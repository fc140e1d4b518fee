package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

// ActorflowYAMLConfig represents the complete actorflow.yaml file
// structure, the direct descendant of the teacher's TarsyYAMLConfig.
type ActorflowYAMLConfig struct {
	ActorTypes map[string]ActorTypeConfig  `yaml:"actor_types"`
	Pipelines  map[string]pipeline.Definition `yaml:"pipelines"`
	Defaults   *Defaults                   `yaml:"defaults"`
	Queue      *QueueConfig                `yaml:"queue"`
	Lock       *LockConfig                 `yaml:"lock"`
	Pool       *PoolConfig                 `yaml:"pool"`
	Store      *StoreConfig                `yaml:"store"`
	Retention  *RetentionConfig            `yaml:"retention"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading, invoked by
// cmd/actorflowd/main.go exactly the way the teacher's cmd/tarsy/main.go
// calls config.Initialize.
//
// Steps performed:
//  1. Load actorflow.yaml from configDir
//  2. Merge built-in + user-defined actor types and pipelines
//  3. Build in-memory registries
//  4. Apply default values
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"actor_types", stats.ActorTypes,
		"pipelines", stats.Pipelines)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadActorflowYAML()
	if err != nil {
		return nil, NewLoadError("actorflow.yaml", err)
	}

	builtin := GetBuiltinConfig()

	actorTypes := mergeActorTypes(builtin.ActorTypes, yamlCfg.ActorTypes)
	pipelines := mergePipelines(builtin.Pipelines, yamlCfg.Pipelines)

	actorTypeRegistry := NewActorTypeRegistry(actorTypes)
	pipelineRegistry := NewPipelineRegistry(pipelines)

	defaults := yamlCfg.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.CompactionThreshold == 0 {
		defaults.CompactionThreshold = builtin.DefaultCompactionThreshold
	}

	queueConfig := DefaultQueueConfig()
	if yamlCfg.Queue != nil {
		if err := mergo.Merge(queueConfig, yamlCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	lockConfig := DefaultLockConfig()
	if yamlCfg.Lock != nil {
		if err := mergo.Merge(lockConfig, yamlCfg.Lock, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge lock config: %w", err)
		}
	}

	poolConfig := DefaultPoolConfig()
	if yamlCfg.Pool != nil {
		if err := mergo.Merge(poolConfig, yamlCfg.Pool, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge pool config: %w", err)
		}
	}

	storeConfig := DefaultStoreConfig()
	if yamlCfg.Store != nil {
		if err := mergo.Merge(storeConfig, yamlCfg.Store, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge store config: %w", err)
		}
	}

	retentionConfig := DefaultRetentionConfig()
	if yamlCfg.Retention != nil {
		if err := mergo.Merge(retentionConfig, yamlCfg.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	return &Config{
		configDir:         configDir,
		Defaults:          defaults,
		ActorTypeRegistry: actorTypeRegistry,
		PipelineRegistry:  pipelineRegistry,
		Queue:             queueConfig,
		Lock:              lockConfig,
		Pool:              poolConfig,
		Store:             storeConfig,
		Retention:         retentionConfig,
	}, nil
}

func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using ${VAR} syntax. ExpandEnv has no
	// error path (unset variables expand to ""); malformed results are
	// reported by the YAML parser below.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadActorflowYAML() (*ActorflowYAMLConfig, error) {
	var config ActorflowYAMLConfig
	config.ActorTypes = make(map[string]ActorTypeConfig)
	config.Pipelines = make(map[string]pipeline.Definition)

	if err := l.loadYAML("actorflow.yaml", &config); err != nil {
		return nil, err
	}

	return &config, nil
}
