package actortype

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/actorflow/pkg/actorcore"
)

// CounterDelta is the message payload for the built-in "counter" actor
// type used by spec.md §8 scenarios 1 and 2.
type CounterDelta struct {
	Delta int `json:"delta"`
}

// NewCounterFactory returns a Factory for the built-in demo actor type
// whose state is {"count": N} and which applies an integer delta per
// message, exactly as in spec.md's counter-durability scenario.
func NewCounterFactory() Factory {
	return func() Capabilities {
		return Capabilities{
			Telemetry: "counter",
			Execute: func(ctx context.Context, inst *actorcore.Instance, input any) (any, error) {
				delta, err := counterDelta(input)
				if err != nil {
					return nil, err
				}
				state, err := inst.UpdateState(ctx, func(draft map[string]any) map[string]any {
					count := 0
					if c, ok := draft["count"]; ok {
						count = toInt(c)
					}
					draft["count"] = count + delta
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

func counterDelta(input any) (int, error) {
	switch v := input.(type) {
	case CounterDelta:
		return v.Delta, nil
	case map[string]any:
		if d, ok := v["delta"]; ok {
			return toInt(d), nil
		}
		return 0, fmt.Errorf("actortype: counter input missing \"delta\"")
	default:
		return 0, fmt.Errorf("actortype: unsupported counter input %T", input)
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
