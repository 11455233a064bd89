package room

import (
	"sync"

	"github.com/kinetichq/kinetic/internal/scene"
)

// eventKind distinguishes room loop events.
type eventKind int

const (
	eventJoin eventKind = iota + 1
	eventLeave
	eventAction
)

// event is one unit of work for the room loop. Joins and leaves flow
// through the same queue as actions so membership changes are totally
// ordered against broadcasts.
type event struct {
	kind   eventKind
	member *Member
	action scene.Action
}

// eventQueue is a thread-safe FIFO queue feeding the room loop.
//
// The queue is unbounded so transport goroutines never block on a busy
// room; backpressure on individual members is handled at broadcast
// time instead. A buffered signal channel enables context-aware
// waiting in Run.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	// Non-blocking signal; the buffer of 1 coalesces bursts.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue attempts to dequeue without blocking.
func (q *eventQueue) tryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}
	e := q.events[0]
	// Nil out the slot so the member pointer doesn't outlive its slot.
	q.events[0] = event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// wait returns the signal channel for select-based waiting.
func (q *eventQueue) wait() <-chan struct{} {
	return q.signal
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// close marks the queue closed and wakes all waiters.
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
