package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/actorflow/pkg/pathexpr"
)

// Orchestrator drives a pipeline instance's stages to completion: it finds
// ready stages, dispatches their executor via Activity, applies gather
// barriers, writes stage results into the instance's context, and relays
// outbox records to advance to dependent stages exactly once.
type Orchestrator struct {
	store    OutboxStore
	activity Activity
	secret   func(name string) (string, error)
}

// NewOrchestrator wires an Orchestrator to its store, activity dispatcher,
// and secret resolver (used for @secret() expressions).
func NewOrchestrator(store OutboxStore, activity Activity, secret func(name string) (string, error)) *Orchestrator {
	return &Orchestrator{store: store, activity: activity, secret: secret}
}

// Advance runs one round: dispatch every currently-ready stage to
// completion (or failure), record outbox intents, relay them, and return
// whether the whole pipeline is Done(). Callers loop Advance until Done()
// or an error.
func (o *Orchestrator) Advance(ctx context.Context, pipelineID string) (bool, error) {
	inst, err := o.store.LoadInstance(ctx, pipelineID)
	if err != nil {
		return false, fmt.Errorf("pipeline: load instance: %w", err)
	}
	if inst.Cancelled {
		return true, nil
	}

	if err := o.relayPending(ctx, inst); err != nil {
		return false, err
	}

	ready := inst.readyStages()
	for _, stage := range ready {
		if err := o.runStage(ctx, inst, stage); err != nil {
			return false, err
		}
		if err := o.store.SaveInstance(ctx, inst); err != nil {
			return false, fmt.Errorf("pipeline: save instance: %w", err)
		}
	}

	return inst.Done(), nil
}

// runStage dispatches stage according to its mode and records its
// outcome, cascading cancellation to dependents on failure.
func (o *Orchestrator) runStage(ctx context.Context, inst *Instance, stage StageDefinition) error {
	log := slog.With("pipeline_id", inst.PipelineID, "stage", stage.Name, "mode", stage.Mode)
	state := inst.StageStates[stage.Name]
	state.Status = StageRunning

	bindings := o.bindingsFor(inst)

	var err error
	switch stage.Mode {
	case ModeScatter:
		err = o.runScatter(ctx, inst, stage, bindings)
	case ModeGather:
		err = o.runGather(ctx, inst, stage, bindings)
	default:
		err = o.runSingle(ctx, inst, stage, bindings)
	}

	if err != nil {
		log.Warn("stage failed", "error", err)
		state.Status = StageFailed
		inst.cascadeCancel(stage.Name)
		return nil
	}

	state.Status = StageCompleted
	inst.setStageResultInContext(stage.Name, state)
	o.recordOutboxForDependents(ctx, inst, stage.Name)
	return nil
}

func (o *Orchestrator) bindingsFor(inst *Instance) pathexpr.Bindings {
	params, _ := inst.Context["parameters"].(map[string]any)
	return pathexpr.Bindings{
		Variables:  inst.Context,
		Parameters: params,
		Secret:     o.secret,
	}
}

func (o *Orchestrator) runSingle(ctx context.Context, inst *Instance, stage StageDefinition, bindings pathexpr.Bindings) error {
	input, err := o.buildInput(stage.Executor.InputExpr, inst.Context, bindings)
	if err != nil {
		return err
	}
	result, err := o.activity(ctx, stage.Executor.ActivityName, input)
	state := inst.StageStates[stage.Name]
	task := StageTask{StageName: stage.Name, Input: input}
	if err != nil {
		task.Error = err.Error()
		task.Status = StageFailed
		state.Tasks = []StageTask{task}
		return err
	}
	task.Result = result
	task.Status = StageCompleted
	state.Tasks = []StageTask{task}
	return nil
}

func (o *Orchestrator) runScatter(ctx context.Context, inst *Instance, stage StageDefinition, bindings pathexpr.Bindings) error {
	items, err := pathexpr.Eval(stage.ItemsExpr, inst.Context, bindings)
	if err != nil {
		return fmt.Errorf("pipeline: scatter items: %w", err)
	}
	list, ok := items.([]any)
	if !ok {
		return fmt.Errorf("pipeline: scatter stage %q itemsExpr did not yield an array", stage.Name)
	}

	runner := NewScatterRunner(stage.MaxParallel)
	state := inst.StageStates[stage.Name]
	state.Tasks = make([]StageTask, len(list))

	for i, item := range list {
		input, err := o.buildInput(stage.Executor.InputExpr, item, bindings)
		if err != nil {
			runner.CancelAll()
			return err
		}
		state.Tasks[i] = StageTask{StageName: stage.Name, TaskIndex: i, Input: input, Status: StageRunning}
		if err := runner.Dispatch(ctx, i, "", o.activity, stage.Executor.ActivityName, input); err != nil {
			runner.CancelAll()
			return err
		}
	}

	barrier := NewGatherBarrier(StageDefinition{GatherPolicy: GatherAll, MinResults: len(list)}, len(list))
	if err := barrier.Wait(ctx, runner, 0); err != nil {
		runner.CancelAll()
		return err
	}
	_, _, results := barrier.Grouped()
	for _, res := range results {
		t := &state.Tasks[res.TaskIndex]
		if res.Err != nil {
			t.Error = res.Err.Error()
			t.Status = StageFailed
			continue
		}
		t.Result = res.Result
		t.Status = StageCompleted
	}
	if barrier.Failures() > 0 {
		return fmt.Errorf("pipeline: scatter stage %q had %d failed tasks", stage.Name, barrier.Failures())
	}
	return nil
}

// runGather waits for its upstream scatter tasks, then produces the stage
// result per spec.md §4.6/§6: with a groupBy expression, the executor
// activity is invoked once per distinct group key with
// {"group": {"key": k, "items": [...]}} and the stage result is the array
// of per-group activity results in group-key insertion order; without
// groupBy, the stage result is the upstream results ordered by upstream
// task index (not by completion), with no activity invocation.
func (o *Orchestrator) runGather(ctx context.Context, inst *Instance, stage StageDefinition, bindings pathexpr.Bindings) error {
	upstream := upstreamScatterTasks(inst, stage.DependsOn)

	results := make([]ScatterResult, 0, len(upstream))
	for _, t := range upstream {
		groupKey := ""
		if stage.GroupByExpr != "" {
			gk, err := pathexpr.Eval(stage.GroupByExpr, t.Result, bindings)
			if err == nil {
				if s, ok := gk.(string); ok {
					groupKey = s
				}
			}
		}
		var taskErr error
		if t.Status == StageFailed {
			taskErr = fmt.Errorf("%s", t.Error)
		}
		results = append(results, ScatterResult{TaskIndex: t.TaskIndex, GroupKey: groupKey, Result: t.Result, Err: taskErr})
	}

	barrier := NewGatherBarrier(stage, len(upstream))
	for _, res := range results {
		barrier.Accumulate(res)
	}
	if !barrier.Satisfied() {
		return ErrBarrierTimeout
	}

	order, groups, ungrouped := barrier.Grouped()
	state := inst.StageStates[stage.Name]

	if stage.GroupByExpr == "" {
		gathered := make([]any, 0, len(ungrouped))
		for _, r := range ungrouped {
			gathered = append(gathered, r.Result)
		}
		state.Tasks = []StageTask{{StageName: stage.Name, Result: gathered, Status: StageCompleted}}
		return nil
	}

	gathered := make([]any, 0, len(order))
	for _, key := range order {
		items := make([]any, 0, len(groups[key]))
		for _, r := range groups[key] {
			items = append(items, r.Result)
		}
		input := map[string]any{"group": map[string]any{"key": key, "items": items}}
		result, err := o.activity(ctx, stage.Executor.ActivityName, input)
		if err != nil {
			return fmt.Errorf("pipeline: gather stage %q group %q: %w", stage.Name, key, err)
		}
		gathered = append(gathered, result)
	}

	state.Tasks = []StageTask{{StageName: stage.Name, Result: gathered, Status: StageCompleted}}
	return nil
}

func upstreamScatterTasks(inst *Instance, dependsOn []string) []StageTask {
	var tasks []StageTask
	for _, dep := range dependsOn {
		if state, ok := inst.StageStates[dep]; ok {
			tasks = append(tasks, state.Tasks...)
		}
	}
	return tasks
}

func (o *Orchestrator) buildInput(expr string, root any, bindings pathexpr.Bindings) (any, error) {
	if expr == "" {
		return root, nil
	}
	v, err := pathexpr.Eval(expr, root, bindings)
	if err != nil {
		return nil, fmt.Errorf("pipeline: evaluate input expression %q: %w", expr, err)
	}
	return v, nil
}

func (inst *Instance) setStageResultInContext(stageName string, state *StageState) {
	stagesMap, _ := inst.Context["stages"].(map[string]any)
	if stagesMap == nil {
		stagesMap = map[string]any{}
		inst.Context["stages"] = stagesMap
	}
	if len(state.Tasks) == 1 {
		stagesMap[stageName] = state.Tasks[0].Result
		return
	}
	results := make([]any, len(state.Tasks))
	for i, t := range state.Tasks {
		results[i] = t.Result
	}
	stagesMap[stageName] = results
}

// recordOutboxForDependents writes one outbox record for every stage that
// lists fromStage in DependsOn. The records are marked relayed by
// relayPending on the next Advance call; a failed append is logged and
// not returned.
func (o *Orchestrator) recordOutboxForDependents(ctx context.Context, inst *Instance, fromStage string) {
	for _, s := range inst.Definition.Stages {
		for _, dep := range s.DependsOn {
			if dep == fromStage {
				rec := OutboxRecord{
					PipelineID:      inst.PipelineID,
					FromStage:       fromStage,
					ToStage:         s.Name,
					PipelineVersion: inst.Version,
				}
				if err := o.store.AppendOutbox(ctx, rec); err != nil {
					slog.Error("pipeline: append outbox failed", "pipeline_id", inst.PipelineID, "error", err)
				}
			}
		}
	}
}

// relayPending marks every unrelayed outbox record for inst as relayed.
// Idempotent: replaying an already-relayed record is a no-op at the
// store layer.
func (o *Orchestrator) relayPending(ctx context.Context, inst *Instance) error {
	pending, err := o.store.PendingOutbox(ctx, inst.PipelineID)
	if err != nil {
		return fmt.Errorf("pipeline: list pending outbox: %w", err)
	}
	for _, rec := range pending {
		if err := o.store.MarkRelayed(ctx, rec.PipelineID, rec.FromStage, rec.ToStage); err != nil {
			return fmt.Errorf("pipeline: relay outbox %s->%s: %w", rec.FromStage, rec.ToStage, err)
		}
	}
	return nil
}

// Cancel marks inst cancelled and cascades to every non-terminal stage.
func (o *Orchestrator) Cancel(ctx context.Context, pipelineID string) error {
	inst, err := o.store.LoadInstance(ctx, pipelineID)
	if err != nil {
		return fmt.Errorf("pipeline: load instance: %w", err)
	}
	inst.Cancelled = true
	for name, state := range inst.StageStates {
		if state.Status == StagePending || state.Status == StageRunning {
			state.Status = StageCancelled
			inst.cascadeCancel(name)
		}
	}
	return o.store.SaveInstance(ctx, inst)
}
