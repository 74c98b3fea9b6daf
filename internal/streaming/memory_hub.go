package streaming

import (
	"context"
	"sync"
	"sync/atomic"
)

// subscriberBuffer is the per-subscription channel depth. A subscriber that
// falls more than this far behind starts losing events.
const subscriberBuffer = 64

// subscription pairs a delivery channel with its compiled filter. Event types
// are compiled to a set at subscribe time so Publish does no slice scans.
type subscription struct {
	ch    chan StreamEvent
	runID string
	types map[string]struct{}
}

// wants reports whether the event passes this subscription's filter. An empty
// run ID matches every run; an empty type set matches every event type.
func (s *subscription) wants(e StreamEvent) bool {
	if s.runID != "" && s.runID != e.RunID {
		return false
	}
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[e.EventType]
	return ok
}

// MemoryHub fans events out to in-process subscribers over buffered channels.
type MemoryHub struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	nextID  atomic.Uint64
	dropped atomic.Int64
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		subs: make(map[uint64]*subscription),
	}
}

// Publish delivers the event to every matching subscription. Delivery is
// best-effort: a subscription with a full channel loses the event rather
// than blocking the publisher.
func (h *MemoryHub) Publish(ctx context.Context, event StreamEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.wants(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe registers a filtered subscription and returns its delivery
// channel along with a cancel function that must be called to release it.
func (h *MemoryHub) Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sub := &subscription{
		ch:    make(chan StreamEvent, subscriberBuffer),
		runID: filter.RunID,
	}
	if len(filter.EventTypes) > 0 {
		sub.types = make(map[string]struct{}, len(filter.EventTypes))
		for _, t := range filter.EventTypes {
			sub.types[t] = struct{}{}
		}
	}

	id := h.nextID.Add(1)
	h.mu.Lock()
	h.subs[id] = sub
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}

	return sub.ch, cancel, nil
}

// Dropped returns the number of events lost to slow subscribers.
func (h *MemoryHub) Dropped() int64 {
	return h.dropped.Load()
}

var _ EventHub = (*MemoryHub)(nil)
