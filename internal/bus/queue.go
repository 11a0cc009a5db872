package bus

import "sync"

// Queue is an unbounded FIFO of events feeding one component's loop.
//
// Producers (bus callbacks, timers) call Push from any goroutine; the single
// consumer waits on Ready and then takes everything with Drain. Events are
// returned in exactly the order they were pushed.
type Queue struct {
	mu    sync.Mutex
	items []Event
	ready chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends an event and wakes the consumer. It never blocks.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after one or more pushes.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Drain removes and returns all queued events, oldest first.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
