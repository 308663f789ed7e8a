package daemon

import (
	"context"
	"errors"
	"sync"
	"time"
)

// NoTimeout makes Receive wait until an event arrives.
const NoTimeout time.Duration = -1

var (
	// ErrTimeout is returned by Receive when no event arrived in time.
	ErrTimeout = errors.New("event queue: timeout")
	// ErrDisconnected is returned by Receive once the queue is closed and
	// drained.
	ErrDisconnected = errors.New("event queue: disconnected")
)

// Queue is an unbounded FIFO of events with many producers and a single
// consumer. Push never blocks.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	// signal holds at most one token telling the consumer to look again.
	signal chan struct{}
}

// NewQueue creates an empty open queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Push appends ev. It reports false when the queue is closed.
func (q *Queue) Push(ev Event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.wake()
	return true
}

// Close stops accepting events. Queued events can still be received.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *Queue) pop() (Event, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false, q.closed
	}
	ev := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return ev, true, q.closed
}

// Receive returns the oldest event, waiting up to timeout for one to arrive.
// A timeout of zero polls; NoTimeout waits indefinitely. Context
// cancellation is returned as the context's error.
func (q *Queue) Receive(ctx context.Context, timeout time.Duration) (Event, error) {
	var deadline <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		ev, ok, closed := q.pop()
		if ok {
			return ev, nil
		}
		if closed {
			return nil, ErrDisconnected
		}
		select {
		case <-q.signal:
		case <-deadline:
			// an event may have been pushed while the timer fired
			if ev, ok, _ := q.pop(); ok {
				return ev, nil
			}
			return nil, ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
