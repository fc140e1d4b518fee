package memory

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/actorflow/pkg/mqueue"
)

type queuedItem struct {
	msg      mqueue.Message
	handle   string
	seq      int64
	visible  bool
	hiddenAt time.Time
	index    int
}

type itemHeap []*queuedItem

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority > h[j].msg.Priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *itemHeap) Push(x any) {
	it := x.(*queuedItem)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// QueueBackend is the in-process reference implementation of mqueue.Backend.
// Per-actor lanes are modeled as independent heaps so priority ordering and
// FIFO tie-breaking apply within an actor's own messages, per spec.md §4.4.
type QueueBackend struct {
	mu          sync.Mutex
	lanes       map[string]*itemHeap
	byHandle    map[string]*queuedItem
	laneOf      map[string]string
	deadLetters []mqueue.DeadLetter
	seq         int64
}

// NewQueueBackend creates an empty QueueBackend.
func NewQueueBackend() *QueueBackend {
	return &QueueBackend{
		lanes:    make(map[string]*itemHeap),
		byHandle: make(map[string]*queuedItem),
		laneOf:   make(map[string]string),
	}
}

func (b *QueueBackend) Enqueue(ctx context.Context, msg mqueue.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	handle := uuid.NewString()
	item := &queuedItem{msg: msg, handle: handle, seq: b.seq, visible: true}

	lane, ok := b.lanes[msg.ActorID]
	if !ok {
		lane = &itemHeap{}
		heap.Init(lane)
		b.lanes[msg.ActorID] = lane
	}
	heap.Push(lane, item)
	b.byHandle[handle] = item
	b.laneOf[handle] = msg.ActorID
	return nil
}

// Consume claims the next visible message. An empty actorID consumes from
// any lane with a ready message (worker-pool mode); a non-empty actorID
// restricts to that actor's lane (runtime affinity mode).
func (b *QueueBackend) Consume(ctx context.Context, actorID string, visibility time.Duration) (mqueue.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.sweepExpired(now)

	var candidateLanes []*itemHeap
	if actorID != "" {
		if lane, ok := b.lanes[actorID]; ok {
			candidateLanes = []*itemHeap{lane}
		}
	} else {
		candidateLanes = make([]*itemHeap, 0, len(b.lanes))
		for _, lane := range b.lanes {
			candidateLanes = append(candidateLanes, lane)
		}
	}

	var best *queuedItem
	for _, lane := range candidateLanes {
		for _, it := range *lane {
			if !it.visible {
				continue
			}
			if best == nil || laneLess(it, best) {
				best = it
			}
		}
	}
	if best == nil {
		return mqueue.Delivery{}, mqueue.ErrEmpty
	}

	best.visible = false
	best.hiddenAt = now.Add(visibility)
	return mqueue.Delivery{Message: best.msg, Handle: best.handle}, nil
}

func laneLess(a, b *queuedItem) bool {
	if a.msg.Priority != b.msg.Priority {
		return a.msg.Priority > b.msg.Priority
	}
	return a.seq < b.seq
}

// sweepExpired makes hidden items whose visibility window elapsed visible
// again, simulating an at-least-once redelivery of a handle whose consumer
// crashed before acking or nacking.
func (b *QueueBackend) sweepExpired(now time.Time) {
	for _, lane := range b.lanes {
		for _, it := range *lane {
			if !it.visible && now.After(it.hiddenAt) {
				it.visible = true
				it.msg.Attempt++
			}
		}
	}
}

func (b *QueueBackend) Ack(ctx context.Context, handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.byHandle[handle]
	if !ok {
		return mqueue.ErrUnknownHandle
	}
	actorID := b.laneOf[handle]
	lane := b.lanes[actorID]
	heap.Remove(lane, item.index)
	delete(b.byHandle, handle)
	delete(b.laneOf, handle)
	return nil
}

func (b *QueueBackend) Nack(ctx context.Context, handle string, delayBy time.Duration, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.byHandle[handle]
	if !ok {
		return mqueue.ErrUnknownHandle
	}
	item.msg.Attempt++

	if item.msg.Attempt >= mqueue.DefaultRetryPolicy.MaxAttempts {
		actorID := b.laneOf[handle]
		lane := b.lanes[actorID]
		heap.Remove(lane, item.index)
		delete(b.byHandle, handle)
		delete(b.laneOf, handle)
		b.deadLetters = append(b.deadLetters, mqueue.DeadLetter{
			Message:  item.msg,
			Reason:   reason,
			FailedAt: time.Now(),
		})
		return nil
	}

	item.visible = false
	item.hiddenAt = time.Now().Add(delayBy)
	return nil
}

func (b *QueueBackend) DeadLetters(ctx context.Context, actorID string, limit int) ([]mqueue.DeadLetter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]mqueue.DeadLetter, 0, limit)
	for i := len(b.deadLetters) - 1; i >= 0 && len(out) < limit; i-- {
		dl := b.deadLetters[i]
		if actorID != "" && dl.Message.ActorID != actorID {
			continue
		}
		out = append(out, dl)
	}
	return out, nil
}
