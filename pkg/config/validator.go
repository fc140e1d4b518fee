package config

import (
	"fmt"

	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

// Validator validates configuration comprehensively with clear error
// messages, the direct descendant of the teacher's pkg/config.Validator
// (same fail-fast ValidateAll shape), narrowed to this domain's surfaces.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation, stopping at the first
// error. Order matters: queue/lock/pool/store settings first (pure
// value checks), then actor types (no cross-references), then pipelines
// last. A stage's executor names an activity, which is only checked to be
// non-empty; it is not matched against the actor types.
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateLock(); err != nil {
		return fmt.Errorf("lock validation failed: %w", err)
	}
	if err := v.validatePool(); err != nil {
		return fmt.Errorf("pool validation failed: %w", err)
	}
	if err := v.validateStore(); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}
	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	if err := v.validateActorTypes(); err != nil {
		return fmt.Errorf("actor type validation failed: %w", err)
	}
	if err := v.validatePipelines(); err != nil {
		return fmt.Errorf("pipeline validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}
	if q.WorkerCount < 1 || q.WorkerCount > 256 {
		return fmt.Errorf("worker_count must be between 1 and 256, got %d", q.WorkerCount)
	}
	if q.VisibilityTimeout <= 0 {
		return fmt.Errorf("visibility_timeout must be positive, got %v", q.VisibilityTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", q.GracefulShutdownTimeout)
	}
	if q.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", q.MaxAttempts)
	}
	if q.BaseDelay <= 0 {
		return fmt.Errorf("base_delay must be positive, got %v", q.BaseDelay)
	}
	if q.MaxDelay < q.BaseDelay {
		return fmt.Errorf("max_delay (%v) must be >= base_delay (%v)", q.MaxDelay, q.BaseDelay)
	}
	return nil
}

func (v *Validator) validateLock() error {
	l := v.cfg.Lock
	if l == nil {
		return fmt.Errorf("lock configuration is nil")
	}
	if l.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", l.TTL)
	}
	if l.AutoRenewFraction <= 0 || l.AutoRenewFraction >= 1 {
		return fmt.Errorf("auto_renew_fraction must be in (0, 1), got %v", l.AutoRenewFraction)
	}
	return nil
}

func (v *Validator) validatePool() error {
	p := v.cfg.Pool
	if p == nil {
		return fmt.Errorf("pool configuration is nil")
	}
	if p.MaxPoolSize < 1 {
		return fmt.Errorf("max_pool_size must be at least 1, got %d", p.MaxPoolSize)
	}
	if p.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got %v", p.IdleTimeout)
	}
	return nil
}

func (v *Validator) validateStore() error {
	s := v.cfg.Store
	if s == nil {
		return fmt.Errorf("store configuration is nil")
	}
	for field, kind := range map[string]BackendKind{
		"journal": s.Journal, "lock": s.Lock, "queue": s.Queue, "shared_mem": s.SharedMem,
	} {
		if !kind.IsValid() {
			return NewValidationError("store", field, "", fmt.Errorf("%w: %q", ErrInvalidValue, kind))
		}
	}
	if s.BlobArchive != "" && !s.BlobArchive.IsValid() {
		return NewValidationError("store", "blob_archive", "", fmt.Errorf("%w: %q", ErrInvalidValue, s.BlobArchive))
	}
	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return fmt.Errorf("retention configuration is nil")
	}
	if r.CompletedPipelineRetentionDays < 0 {
		return fmt.Errorf("completed_pipeline_retention_days must be non-negative, got %d", r.CompletedPipelineRetentionDays)
	}
	if r.DeadLetterTTL < 0 {
		return fmt.Errorf("dead_letter_ttl must be non-negative, got %v", r.DeadLetterTTL)
	}
	if r.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be positive, got %v", r.CleanupInterval)
	}
	return nil
}

func (v *Validator) validateActorTypes() error {
	for name, at := range v.cfg.ActorTypeRegistry.GetAll() {
		if at.Name == "" {
			return NewValidationError("actor_type", name, "name", ErrMissingRequiredField)
		}
		if at.CompactionThreshold < 0 {
			return NewValidationError("actor_type", name, "compaction_threshold", ErrInvalidValue)
		}
	}
	return nil
}

// validatePipelines checks each pipeline's stage DAG: every DependsOn
// name resolves to a sibling stage, every stage's executor has a non-empty
// activity_name, gather stages carry a valid policy, and the
// DependsOn graph has no cycle.
func (v *Validator) validatePipelines() error {
	for name, def := range v.cfg.PipelineRegistry.GetAll() {
		stageNames := make(map[string]bool, len(def.Stages))
		for _, s := range def.Stages {
			stageNames[s.Name] = true
		}

		for _, s := range def.Stages {
			if s.Name == "" {
				return NewValidationError("pipeline", name, "stages[].name", ErrMissingRequiredField)
			}
			for _, dep := range s.DependsOn {
				if !stageNames[dep] {
					return NewValidationError("pipeline", name, "stages["+s.Name+"].depends_on",
						fmt.Errorf("%w: %q", ErrInvalidReference, dep))
				}
			}
			if s.Executor.ActivityName == "" {
				return NewValidationError("pipeline", name, "stages["+s.Name+"].executor.activity_name", ErrMissingRequiredField)
			}
			if s.Mode == pipeline.ModeGather {
				switch s.GatherPolicy {
				case pipeline.GatherAll, pipeline.GatherAny, pipeline.GatherN:
				default:
					return NewValidationError("pipeline", name, "stages["+s.Name+"].gather_policy", ErrInvalidValue)
				}
				if s.GatherPolicy == pipeline.GatherN && s.GatherN < 1 {
					return NewValidationError("pipeline", name, "stages["+s.Name+"].gather_n", ErrInvalidValue)
				}
			}
		}

		if err := checkAcyclic(def.Stages); err != nil {
			return NewValidationError("pipeline", name, "stages", err)
		}
	}
	return nil
}

func checkAcyclic(stages []pipeline.StageDefinition) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(stages))
	byName := make(map[string]pipeline.StageDefinition, len(stages))
	for _, s := range stages {
		byName[s.Name] = s
	}

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return ErrCyclicPipeline
		case done:
			return nil
		}
		state[name] = visiting
		for _, dep := range byName[name].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, s := range stages {
		if err := visit(s.Name); err != nil {
			return err
		}
	}
	return nil
}
