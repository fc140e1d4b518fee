// Package pipeline implements the scatter/gather stage orchestrator from
// spec.md §4.6: a pipeline definition is a DAG of stages (single, scatter,
// gather) connected by the pathexpr minilanguage, advanced exactly once
// per stage via a transactional outbox. The dispatch shape for a scatter
// stage's bounded-concurrency fan-out is grounded on the teacher's
// SubAgentRunner (pkg/agent/orchestrator/runner.go): a reservation counter
// guards the concurrency limit and a buffered results channel decouples
// producers from the gather barrier.
package pipeline

import (
	"errors"
	"time"
)

// StageMode discriminates how a stage dispatches its executor.
type StageMode string

// Stage modes.
const (
	ModeSingle  StageMode = "single"
	ModeScatter StageMode = "scatter"
	ModeGather  StageMode = "gather"
)

// GatherPolicy discriminates a gather stage's barrier condition.
type GatherPolicy string

// Gather policies.
const (
	GatherAll GatherPolicy = "all"
	GatherAny GatherPolicy = "any"
	GatherN   GatherPolicy = "n"
)

// ErrBarrierTimeout indicates a gather stage's policy was not satisfied by
// its upstream task results. runGather returns it as soon as it finds the
// policy unsatisfied; no timeout is waited for.
var ErrBarrierTimeout = errors.New("pipeline: gather barrier timed out")

// ErrCancelled indicates the pipeline (or one of its stages) was
// cancelled, cascading to dependent stages per spec.md §4.6.
var ErrCancelled = errors.New("pipeline: cancelled")

// ErrUnknownStage indicates a definition references a stage name that
// does not exist.
var ErrUnknownStage = errors.New("pipeline: unknown stage")

// ErrStaleVersion indicates an outbox relay's compare-and-set lost a race
// to a concurrent advancer (spec.md §4.6's exactly-once advancement).
var ErrStaleVersion = errors.New("pipeline: stale pipeline version")

// ErrInstanceNotFound indicates no pipeline instance exists for a given ID.
var ErrInstanceNotFound = errors.New("pipeline: instance not found")

// ExecutorConfig names the activity the stage dispatches to and the
// pathexpr expression used to build its input from pipeline context.
// Carries yaml tags alongside json: it doubles as both the wire shape
// (persisted in pipeline_instances) and the pkg/config YAML shape, the
// way the teacher's AgentConfig serves both roles.
type ExecutorConfig struct {
	ActivityName string `json:"activityName" yaml:"activity_name"`
	InputExpr    string `json:"inputExpr" yaml:"input_expr"`
}

// StageDefinition describes one node of a pipeline DAG.
type StageDefinition struct {
	Name      string         `json:"name" yaml:"name"`
	Mode      StageMode      `json:"mode" yaml:"mode"`
	DependsOn []string       `json:"dependsOn,omitempty" yaml:"depends_on,omitempty"`
	Executor  ExecutorConfig `json:"executor" yaml:"executor"`

	// Scatter-only.
	ItemsExpr   string `json:"itemsExpr,omitempty" yaml:"items_expr,omitempty"`
	MaxParallel int    `json:"maxParallel,omitempty" yaml:"max_parallel,omitempty"`

	// Gather-only.
	GatherPolicy GatherPolicy  `json:"gatherPolicy,omitempty" yaml:"gather_policy,omitempty"`
	GatherN      int           `json:"gatherN,omitempty" yaml:"gather_n,omitempty"`
	GroupByExpr  string        `json:"groupByExpr,omitempty" yaml:"group_by_expr,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MinResults   int           `json:"minResults,omitempty" yaml:"min_results,omitempty"`
}

// Definition is a full pipeline: a name and its ordered stage set.
type Definition struct {
	Name   string            `json:"name" yaml:"name"`
	Stages []StageDefinition `json:"stages" yaml:"stages"`
}

// StageByName returns the stage named name, or ErrUnknownStage.
func (d Definition) StageByName(name string) (StageDefinition, error) {
	for _, s := range d.Stages {
		if s.Name == name {
			return s, nil
		}
	}
	return StageDefinition{}, errors.Join(ErrUnknownStage, errors.New(name))
}

// StageStatus is the lifecycle state of one stage instance.
type StageStatus string

// Stage statuses.
const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
	StageCancelled StageStatus = "cancelled"
)

// StageTask is one unit of dispatched work within a stage (the stage
// itself, for single mode; one item's invocation, for scatter mode).
type StageTask struct {
	StageName string `json:"stageName"`
	TaskIndex int    `json:"taskIndex"`
	GroupKey  string `json:"groupKey,omitempty"`
	Input     any    `json:"input"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	Status    StageStatus `json:"status"`
}

// StageState is the accumulated state of one stage across its tasks.
type StageState struct {
	Status StageStatus `json:"status"`
	Tasks  []StageTask `json:"tasks"`
}

// OutboxRecord is a durable, transactionally-written intent to advance the
// pipeline to the next stage, relayed exactly once (spec.md §4.6).
type OutboxRecord struct {
	PipelineID     string `json:"pipelineId"`
	FromStage      string `json:"fromStage"`
	ToStage        string `json:"toStage"`
	PipelineVersion int   `json:"pipelineVersion"`
	Relayed        bool   `json:"relayed"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Instance is one running pipeline execution.
type Instance struct {
	PipelineID string                 `json:"pipelineId"`
	Definition Definition             `json:"definition"`
	Context    map[string]any         `json:"context"`
	StageStates map[string]*StageState `json:"stageStates"`
	Version    int                    `json:"version"`
	Cancelled  bool                   `json:"cancelled"`
}

// NewInstance creates a pipeline instance ready to run def, seeded with
// the given input parameters under context key "parameters".
func NewInstance(pipelineID string, def Definition, parameters map[string]any) *Instance {
	states := make(map[string]*StageState, len(def.Stages))
	for _, s := range def.Stages {
		states[s.Name] = &StageState{Status: StagePending}
	}
	return &Instance{
		PipelineID:  pipelineID,
		Definition:  def,
		Context:     map[string]any{"parameters": parameters, "stages": map[string]any{}},
		StageStates: states,
	}
}

// readyStages returns the stages whose dependencies are all completed and
// which are themselves still pending.
func (inst *Instance) readyStages() []StageDefinition {
	var ready []StageDefinition
	for _, s := range inst.Definition.Stages {
		state := inst.StageStates[s.Name]
		if state.Status != StagePending {
			continue
		}
		allDepsDone := true
		for _, dep := range s.DependsOn {
			if inst.StageStates[dep].Status != StageCompleted {
				allDepsDone = false
				break
			}
		}
		if allDepsDone {
			ready = append(ready, s)
		}
	}
	return ready
}

// cascadeCancel marks every stage depending (transitively) on stageName as
// cancelled, per spec.md §4.6's cancellation cascade.
func (inst *Instance) cascadeCancel(stageName string) {
	changed := true
	for changed {
		changed = false
		for _, s := range inst.Definition.Stages {
			state := inst.StageStates[s.Name]
			if state.Status != StagePending {
				continue
			}
			for _, dep := range s.DependsOn {
				if dep == stageName || inst.StageStates[dep].Status == StageCancelled {
					state.Status = StageCancelled
					changed = true
					break
				}
			}
		}
	}
}

// Done reports whether every stage has reached a terminal status.
func (inst *Instance) Done() bool {
	for _, state := range inst.StageStates {
		switch state.Status {
		case StageCompleted, StageFailed, StageCancelled:
			continue
		default:
			return false
		}
	}
	return true
}
