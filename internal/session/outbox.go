// v1
// internal/session/outbox.go
package session

import (
	"context"
	"sync"
)

type delivery struct {
	s  Session
	ev Event
}

// outbox queues the events of one session for a single delivery goroutine.
// push never blocks, so transitions can enqueue under the session lock while
// slow sinks run outside it. Events reach the sink in push order.
type outbox struct {
	mu     sync.Mutex
	queue  []delivery
	closed bool
	wake   chan struct{}
}

func newOutbox() *outbox {
	return &outbox{wake: make(chan struct{}, 1)}
}

func (o *outbox) push(s Session, events []Event) {
	if len(events) == 0 {
		return
	}
	o.mu.Lock()
	if !o.closed {
		for _, ev := range events {
			o.queue = append(o.queue, delivery{s: s, ev: ev})
		}
	}
	o.mu.Unlock()
	o.signal()
}

// close lets the delivery goroutine exit once the queue is drained.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) drain(ctx context.Context, sink Sink) {
	for {
		o.mu.Lock()
		batch := o.queue
		o.queue = nil
		done := o.closed && len(batch) == 0
		o.mu.Unlock()
		if done {
			return
		}
		for _, d := range batch {
			if sink != nil {
				sink.SessionEvent(ctx, d.s, d.ev)
			}
		}
		if len(batch) == 0 {
			<-o.wake
		}
	}
}
