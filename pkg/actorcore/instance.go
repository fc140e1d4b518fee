// Package actorcore implements the journaled, replayable state machine
// that backs a single actor instance: suspension/resume at explicit yield
// points (callActivity, waitForEvent, spawnChild), deterministic replay
// from a snapshot plus journal suffix, and periodic compaction.
//
// The execution model is cooperative and single-threaded per instance —
// callers (pkg/runtime) are responsible for holding the actor's lease for
// the duration of any Execute/Resume* call; Instance itself does no
// internal locking, matching the teacher's single-goroutine-per-session
// worker discipline (pkg/queue/worker.go).
package actorcore

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/actorflow/pkg/journal"
)

// DefaultCompactionThreshold is the number of newly appended entries after
// which the runtime schedules a compaction, absent a per-actor-type
// override (see actortype.Capabilities.CompactionThreshold). Chosen in
// spec.md §4.2; whether it should be per-actor-type policy was left open
// there and is resolved here: package default, actor-type override wins.
const DefaultCompactionThreshold = 100

// ExecuteFunc is user-defined actor logic. It may call Instance's
// suspension primitives (CallActivity, WaitForEvent, SpawnChild); a
// returned *ActivitySuspendError or *EventSuspendError means the slice of
// execution must suspend and will be re-entered (from the top) once the
// runtime resolves the suspension.
type ExecuteFunc func(ctx context.Context, inst *Instance, input any) (any, error)

// Instance is one actor's journaled state machine.
type Instance struct {
	ActorID   string
	ActorType string

	store               journal.Store
	compactionThreshold int

	state  map[string]any
	cursor int // absolute journal cursor: entries consumed so far

	// Replay-derived indices, rebuilt by Replay() when the instance is
	// loaded and kept current by the primitives on later activations.
	stateHistory      []map[string]any
	scheduledNames    map[string]string // activityID -> name at schedule time
	completedEntries  map[string]journal.Entry
	eventHistory      map[string][]any
	suspendedWaitKeys map[string]bool
	spawnedChildren   map[string]bool
	seenInvocations   map[string]bool
	suspendedAtEnd    bool // history ends on an unresolved suspension

	// Per-Execute() sequence counters, reset at the start of every
	// invocation so replay reproduces identical call ordinals.
	stateSeq    int
	activitySeq int
	childSeq    int
	eventSeq    map[string]int

	appendedSinceCompaction int
}

// New constructs an Instance bound to store. Call Replay before the first
// Execute.
func New(actorID, actorType string, store journal.Store, compactionThreshold int) *Instance {
	if compactionThreshold <= 0 {
		compactionThreshold = DefaultCompactionThreshold
	}
	return &Instance{
		ActorID:             actorID,
		ActorType:           actorType,
		store:               store,
		compactionThreshold: compactionThreshold,
		state:               map[string]any{},
	}
}

// State returns the actor's current live state. The returned map must not
// be mutated by the caller; use UpdateState.
func (inst *Instance) State() map[string]any { return inst.state }

// Cursor returns the actor's current journal cursor.
func (inst *Instance) Cursor() int { return inst.cursor }

// Replay reconstructs state and the suspension-point indices by loading
// the latest snapshot (if any) and replaying journal entries from its
// cursor. At its end, Cursor() == the journal's length. A corrupt
// snapshot is treated as absent (full replay); a corrupt entry is fatal.
func (inst *Instance) Replay(ctx context.Context) error {
	inst.resetIndices()

	base := 0
	if snap, ok, err := inst.store.GetLatestSnapshot(ctx, inst.ActorID); err != nil {
		return fmt.Errorf("actorcore: load snapshot: %w", err)
	} else if ok {
		inst.state = snap.Clone().State
		base = snap.Cursor
	}
	inst.cursor = base

	entries, err := inst.store.ReadEntries(ctx, inst.ActorID, base)
	if err != nil {
		return fmt.Errorf("actorcore: read entries: %w", err)
	}

	openActivities := map[string]bool{}
	openEventWait := false

	for _, e := range entries {
		switch e.Kind {
		case journal.KindStateUpdated:
			p := e.Payload.(journal.StateUpdatedPayload)
			inst.stateHistory = append(inst.stateHistory, p.State)
			inst.state = journal.CloneState(p.State)
			openEventWait = false
		case journal.KindActivityScheduled:
			p := e.Payload.(journal.ActivityScheduledPayload)
			inst.scheduledNames[p.ActivityID] = p.Name
			openActivities[p.ActivityID] = true
			openEventWait = false
		case journal.KindActivityCompleted, journal.KindActivityFailed:
			id := activityIDOf(e)
			inst.completedEntries[id] = e
			delete(openActivities, id)
		case journal.KindChildSpawned:
			p := e.Payload.(journal.ChildSpawnedPayload)
			inst.spawnedChildren[p.ChildID] = true
			openEventWait = false
		case journal.KindEventReceived:
			p := e.Payload.(journal.EventReceivedPayload)
			inst.eventHistory[p.EventType] = append(inst.eventHistory[p.EventType], p.Data)
			openEventWait = false
		case journal.KindSuspended:
			openEventWait = true
		case journal.KindInvocation:
			p := e.Payload.(journal.InvocationPayload)
			inst.seenInvocations[p.MessageID] = true
			openEventWait = false
		case journal.KindDecisionMade, journal.KindContextGathered:
			// opaque audit entries, no replay effect
		default:
			return &DeterminismError{ActorID: inst.ActorID, SeqKind: "replay", Detail: fmt.Sprintf("unknown entry kind %q", e.Kind)}
		}
		inst.cursor++
	}

	inst.suspendedAtEnd = len(openActivities) > 0 || openEventWait
	return nil
}

func activityIDOf(e journal.Entry) string {
	switch p := e.Payload.(type) {
	case journal.ActivityCompletedPayload:
		return p.ActivityID
	case journal.ActivityFailedPayload:
		return p.ActivityID
	default:
		return ""
	}
}

func (inst *Instance) resetIndices() {
	inst.stateHistory = nil
	inst.scheduledNames = map[string]string{}
	inst.completedEntries = map[string]journal.Entry{}
	inst.eventHistory = map[string][]any{}
	inst.suspendedWaitKeys = map[string]bool{}
	inst.spawnedChildren = map[string]bool{}
	inst.seenInvocations = map[string]bool{}
	inst.appendedSinceCompaction = 0
}

func (inst *Instance) resetSeqCounters() {
	inst.stateSeq = 0
	inst.activitySeq = 0
	inst.childSeq = 0
	inst.eventSeq = map[string]int{}
}

func (inst *Instance) appendLive(ctx context.Context, entry journal.Entry) error {
	if err := inst.store.AppendEntry(ctx, inst.ActorID, entry); err != nil {
		return err
	}
	inst.cursor++
	inst.appendedSinceCompaction++
	return nil
}

// AlreadyProcessed reports whether messageID has a recorded invocation
// entry AND the actor is not currently suspended mid-processing it — i.e.
// whether redelivering this message would be a true no-op per spec.md §8's
// idempotent-redelivery property. suspendedAtEnd is kept live across a
// suspend/resolve cycle (Execute sets it on suspend; ResumeWithActivity and
// Resume fold their outcome into the indices Execute reads), so a message
// still mid-resume is never mistaken for a finished one.
func (inst *Instance) AlreadyProcessed(messageID string) bool {
	return inst.seenInvocations[messageID] && !inst.suspendedAtEnd
}

// Execute runs fn against input, after recording an invocation entry for
// msgID (skipped if msgID was already recorded and the actor is not
// mid-suspension — idempotent redelivery). Returns the user result, or an
// *ActivitySuspendError / *EventSuspendError if fn must be re-entered
// later once the runtime resolves the pending suspension.
func (inst *Instance) Execute(ctx context.Context, fn ExecuteFunc, msgID string, msgTimestamp int64, input any) (any, error) {
	if inst.AlreadyProcessed(msgID) {
		return nil, nil
	}
	if !inst.seenInvocations[msgID] {
		if err := inst.appendLive(ctx, journal.Entry{
			Kind: journal.KindInvocation,
			Payload: journal.InvocationPayload{
				MessageID: msgID,
				Payload:   input,
			},
		}); err != nil {
			return nil, fmt.Errorf("actorcore: record invocation: %w", err)
		}
		inst.seenInvocations[msgID] = true
	}

	inst.resetSeqCounters()
	result, err := fn(ctx, inst, input)
	if err != nil {
		if IsSuspend(err) {
			inst.suspendedAtEnd = true
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUserExecution, err)
	}
	inst.suspendedAtEnd = false
	return result, nil
}

// UpdateState produces a new state value via mutator and journals it. On
// replay (a position already covered by stateHistory) the recorded state
// is used directly and mutator is never invoked, per the determinism
// contract in spec.md §4.2.
func (inst *Instance) UpdateState(ctx context.Context, mutator func(map[string]any) map[string]any) (map[string]any, error) {
	seq := inst.stateSeq
	inst.stateSeq++

	if seq < len(inst.stateHistory) {
		inst.state = journal.CloneState(inst.stateHistory[seq])
		return inst.state, nil
	}

	draft := journal.CloneState(inst.state)
	newState := mutator(draft)
	if err := inst.appendLive(ctx, journal.Entry{
		Kind:    journal.KindStateUpdated,
		Payload: journal.StateUpdatedPayload{State: newState},
	}); err != nil {
		return nil, fmt.Errorf("actorcore: update state: %w", err)
	}
	inst.stateHistory = append(inst.stateHistory, newState)
	inst.state = journal.CloneState(newState)
	return inst.state, nil
}

// CallActivity requests an external call by name. On a fresh call this
// appends activity_scheduled and returns *ActivitySuspendError. During
// replay it returns the recorded outcome with no external side effect.
func (inst *Instance) CallActivity(ctx context.Context, name string, input any) (any, error) {
	seq := inst.activitySeq
	inst.activitySeq++
	id := fmt.Sprintf("%s-act-%d", inst.ActorID, seq)

	if prior, ok := inst.scheduledNames[id]; ok && prior != name {
		return nil, &DeterminismError{ActorID: inst.ActorID, SeqKind: "activity", Detail: fmt.Sprintf("position %d scheduled %q previously, now %q", seq, prior, name)}
	}

	if entry, ok := inst.completedEntries[id]; ok {
		switch entry.Kind {
		case journal.KindActivityCompleted:
			return entry.Payload.(journal.ActivityCompletedPayload).Result, nil
		case journal.KindActivityFailed:
			p := entry.Payload.(journal.ActivityFailedPayload)
			return nil, &ActivityBusinessError{ActivityID: id, Message: p.Error}
		}
	}

	if _, ok := inst.scheduledNames[id]; ok {
		return nil, &ActivitySuspendError{ActivityID: id, Name: name}
	}

	if err := inst.appendLive(ctx, journal.Entry{
		Kind: journal.KindActivityScheduled,
		Payload: journal.ActivityScheduledPayload{
			ActivityID: id,
			Name:       name,
			Input:      input,
		},
	}); err != nil {
		return nil, fmt.Errorf("actorcore: schedule activity: %w", err)
	}
	inst.scheduledNames[id] = name
	return nil, &ActivitySuspendError{ActivityID: id, Name: name}
}

// WaitForEvent blocks the actor (via EventSuspendError) until an event of
// eventType is delivered. Resolution order within a type is FIFO.
func (inst *Instance) WaitForEvent(ctx context.Context, eventType string) (any, error) {
	seq := inst.eventSeq[eventType]
	inst.eventSeq[eventType] = seq + 1

	if queue := inst.eventHistory[eventType]; seq < len(queue) {
		return queue[seq], nil
	}

	key := fmt.Sprintf("%s#%d", eventType, seq)
	if !inst.suspendedWaitKeys[key] {
		if err := inst.appendLive(ctx, journal.Entry{
			Kind:    journal.KindSuspended,
			Payload: journal.SuspendedPayload{Reason: "event:" + eventType},
		}); err != nil {
			return nil, fmt.Errorf("actorcore: record suspension: %w", err)
		}
		inst.suspendedWaitKeys[key] = true
	}
	return nil, &EventSuspendError{EventType: eventType}
}

// SpawnChild creates a subordinate actor record. It does not suspend, and
// it does not activate the child: pkg/runtime does not call its
// ChildDispatcher for spawned children.
func (inst *Instance) SpawnChild(ctx context.Context, childType string, input any) (string, error) {
	seq := inst.childSeq
	inst.childSeq++
	id := fmt.Sprintf("%s-child-%d", inst.ActorID, seq)

	if inst.spawnedChildren[id] {
		return id, nil
	}
	if err := inst.appendLive(ctx, journal.Entry{
		Kind: journal.KindChildSpawned,
		Payload: journal.ChildSpawnedPayload{
			ChildID:   id,
			ActorType: childType,
			Input:     input,
		},
	}); err != nil {
		return "", fmt.Errorf("actorcore: spawn child: %w", err)
	}
	inst.spawnedChildren[id] = true
	return id, nil
}

// Suspend is the explicit cooperative yield primitive (spec.md §5).
func (inst *Instance) Suspend(ctx context.Context, reason string) error {
	return inst.appendLive(ctx, journal.Entry{
		Kind:    journal.KindSuspended,
		Payload: journal.SuspendedPayload{Reason: reason},
	})
}

// RecordAudit appends an opaque decision_made/context_gathered entry. The
// core treats the payload as opaque; policy-bearing actor types use this
// for audit trails.
func (inst *Instance) RecordAudit(ctx context.Context, gathered bool, data any) error {
	kind := journal.KindDecisionMade
	if gathered {
		kind = journal.KindContextGathered
	}
	return inst.appendLive(ctx, journal.Entry{Kind: kind, Payload: journal.AuditPayload{Data: data}})
}

// ResumeWithActivity injects an activity outcome — the runtime calls this
// when an external activity call finishes. Appends the matching completion
// entry and immediately folds it into completedEntries so a subsequent
// Execute() call on this same Instance (no intervening Replay) observes
// the outcome exactly as a fresh replay would.
func (inst *Instance) ResumeWithActivity(ctx context.Context, activityID string, result any, activityErr error) error {
	var entry journal.Entry
	if activityErr != nil {
		entry = journal.Entry{
			Kind: journal.KindActivityFailed,
			Payload: journal.ActivityFailedPayload{
				ActivityID: activityID,
				Error:      activityErr.Error(),
			},
		}
	} else {
		entry = journal.Entry{
			Kind: journal.KindActivityCompleted,
			Payload: journal.ActivityCompletedPayload{
				ActivityID: activityID,
				Result:     result,
			},
		}
	}
	if err := inst.appendLive(ctx, entry); err != nil {
		return err
	}
	inst.completedEntries[activityID] = entry
	return nil
}

// Resume injects an external event — the runtime calls this when a
// waited-for event arrives. Folds it into eventHistory live for the same
// reason ResumeWithActivity folds into completedEntries.
func (inst *Instance) Resume(ctx context.Context, eventType string, data any) error {
	if err := inst.appendLive(ctx, journal.Entry{
		Kind:    journal.KindEventReceived,
		Payload: journal.EventReceivedPayload{EventType: eventType, Data: data},
	}); err != nil {
		return err
	}
	inst.eventHistory[eventType] = append(inst.eventHistory[eventType], data)
	return nil
}

// NeedsCompaction reports whether enough entries have been appended since
// the last compaction to warrant one.
func (inst *Instance) NeedsCompaction() bool {
	return inst.appendedSinceCompaction >= inst.compactionThreshold
}

// CompactJournal writes a snapshot at the current cursor and trims
// preceding entries. Idempotent: a second call with no intervening
// appends is a no-op beyond re-saving the identical snapshot.
func (inst *Instance) CompactJournal(ctx context.Context) error {
	snap := journal.Snapshot{
		State:     inst.state,
		Cursor:    inst.cursor,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := inst.store.SaveSnapshot(ctx, inst.ActorID, snap); err != nil {
		return fmt.Errorf("actorcore: save snapshot: %w", err)
	}
	if err := inst.store.TrimEntries(ctx, inst.ActorID, inst.cursor); err != nil {
		return fmt.Errorf("actorcore: trim entries: %w", err)
	}
	inst.appendedSinceCompaction = 0
	return nil
}
