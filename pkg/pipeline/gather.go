package pipeline

import (
	"context"
	"time"
)

// GatherBarrier accumulates ScatterResults and reports whether a gather
// stage's policy is satisfied. GroupBy partitioning preserves first-
// occurrence insertion order of group keys, per the Open Question
// resolved in DESIGN.md.
type GatherBarrier struct {
	policy     GatherPolicy
	n          int
	minResults int
	total      int

	groupOrder []string
	groups     map[string][]ScatterResult
	ungrouped  []ScatterResult
	failures   int
}

// NewGatherBarrier creates a barrier for a gather stage expecting total
// scatter results.
func NewGatherBarrier(def StageDefinition, total int) *GatherBarrier {
	return &GatherBarrier{
		policy:     def.GatherPolicy,
		n:          def.GatherN,
		minResults: def.MinResults,
		total:      total,
		groups:     make(map[string][]ScatterResult),
	}
}

// Accumulate folds in one scatter result.
func (b *GatherBarrier) Accumulate(res ScatterResult) {
	if res.Err != nil {
		b.failures++
	}
	if res.GroupKey == "" {
		b.ungrouped = append(b.ungrouped, res)
		return
	}
	if _, ok := b.groups[res.GroupKey]; !ok {
		b.groupOrder = append(b.groupOrder, res.GroupKey)
	}
	b.groups[res.GroupKey] = append(b.groups[res.GroupKey], res)
}

// received reports how many results have been accumulated so far.
func (b *GatherBarrier) received() int {
	n := len(b.ungrouped)
	for _, g := range b.groups {
		n += len(g)
	}
	return n
}

// Satisfied reports whether the barrier's policy condition currently holds.
func (b *GatherBarrier) Satisfied() bool {
	switch b.policy {
	case GatherAny:
		return b.received() >= 1
	case GatherN:
		return b.received() >= b.n
	case GatherAll:
		fallthrough
	default:
		return b.received() >= b.total && b.received() >= b.minResults
	}
}

// Wait blocks, draining runner, until Satisfied() or the stage's timeout
// (if nonzero) elapses.
func (b *GatherBarrier) Wait(ctx context.Context, runner *ScatterRunner, timeout time.Duration) error {
	waitCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for !b.Satisfied() {
		if !runner.HasPending() {
			if b.received() >= b.minResults {
				return nil
			}
			return ErrBarrierTimeout
		}
		res, err := runner.WaitForNext(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil && b.received() >= b.minResults {
				return nil
			}
			if waitCtx.Err() != nil {
				return ErrBarrierTimeout
			}
			return err
		}
		b.Accumulate(res)
	}
	return nil
}

// Grouped returns the accumulated results partitioned by group key, in
// first-occurrence order, plus any ungrouped results.
func (b *GatherBarrier) Grouped() (order []string, groups map[string][]ScatterResult, ungrouped []ScatterResult) {
	return b.groupOrder, b.groups, b.ungrouped
}

// Failures returns the count of accumulated results that carried an error.
func (b *GatherBarrier) Failures() int {
	return b.failures
}
