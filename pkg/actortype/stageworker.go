package actortype

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/actorflow/pkg/actorcore"
)

// StageAdvance is the message payload that drives one round of a pipeline
// stage-worker actor: advance its pipeline by one Advance() call.
type StageAdvance struct {
	PipelineID string `json:"pipelineId"`
}

// Advancer is the narrow seam the stage-worker actor type calls through —
// satisfied by *pipeline.Orchestrator, kept as an interface here so
// actortype never imports pkg/pipeline directly (mirrors how actorcore
// never imports actortype).
type Advancer interface {
	Advance(ctx context.Context, pipelineID string) (done bool, err error)
}

// NewStageWorkerFactory returns a Factory for the internal actor type the
// pipeline orchestrator uses to host one activation of stage dispatch per
// message, so pipeline advancement rides the same durable activation
// sequence (lease, replay, journal) as any other actor (spec.md §4.2,
// §4.6).
func NewStageWorkerFactory(advancer Advancer) Factory {
	return func() Capabilities {
		return Capabilities{
			Telemetry: "stage_worker",
			Execute: func(ctx context.Context, inst *actorcore.Instance, input any) (any, error) {
				advance, err := stageAdvanceOf(input)
				if err != nil {
					return nil, err
				}
				done, err := advancer.Advance(ctx, advance.PipelineID)
				if err != nil {
					return nil, err
				}
				state, err := inst.UpdateState(ctx, func(draft map[string]any) map[string]any {
					draft["pipelineId"] = advance.PipelineID
					draft["done"] = done
					return draft
				})
				if err != nil {
					return nil, err
				}
				return state, nil
			},
		}
	}
}

func stageAdvanceOf(input any) (StageAdvance, error) {
	switch v := input.(type) {
	case StageAdvance:
		return v, nil
	case map[string]any:
		id, _ := v["pipelineId"].(string)
		if id == "" {
			return StageAdvance{}, fmt.Errorf("actortype: stage worker input missing \"pipelineId\"")
		}
		return StageAdvance{PipelineID: id}, nil
	default:
		return StageAdvance{}, fmt.Errorf("actortype: unsupported stage worker input %T", input)
	}
}
