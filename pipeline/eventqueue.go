package pipeline

import "github.com/lsds/gpureduce/transport"

// slot is one (stage-name, device-event) pair belonging to an in-flight
// job's EventQueue (spec section 3). An empty Stage means "no timeline
// span" for this slot - used for the terminal sentinel.
type slot struct {
	Stage string
	Event transport.Event
}

// EventQueue is the ordered, mutable sequence of event slots belonging to
// one in-flight job. It is single-writer (the submission thread, during
// Initialize/DoAllreduce/Finalize) and single-reader (the one finalizer
// that drains it) - spec section 3's invariant - so it needs no internal
// locking; callers must not share one EventQueue across goroutines outside
// that handoff.
type EventQueue struct {
	slots []slot
}

// Append adds a stage-named event to the tail of the queue. Stage may be
// empty for the terminal sentinel (spec section 3: "unnamed").
func (q *EventQueue) Append(stage string, ev transport.Event) {
	q.slots = append(q.slots, slot{Stage: stage, Event: ev})
}

// Len reports the number of slots currently queued.
func (q *EventQueue) Len() int { return len(q.slots) }

// PopFront removes and returns the oldest slot, FIFO. ok is false on an
// empty queue.
func (q *EventQueue) PopFront() (stage string, ev transport.Event, ok bool) {
	if len(q.slots) == 0 {
		return "", nil, false
	}
	s := q.slots[0]
	q.slots = q.slots[1:]
	return s.Stage, s.Event, true
}
