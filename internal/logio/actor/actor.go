// Package actor provides the single-threaded-actor-with-mailbox primitive
// spec.md §5 requires of the Log Manager and every session: "operations on
// the actor are serialized in arrival order; the actor may await external
// deferred results between operations." It generalizes the one dedicated
// goroutine draining a buffered channel that internal/pubsub.PubSubClient's
// run() method uses to serialize event fan-out, into a reusable mailbox any
// component can dispatch arbitrary closures onto.
package actor

import (
	"context"
	"fmt"
)

// ErrClosed is returned by Dispatch once the actor has been closed.
var ErrClosed = fmt.Errorf("actor: mailbox closed")

// Mailbox runs submitted functions one at a time, in the order they were
// successfully enqueued, on a single dedicated goroutine.
type Mailbox struct {
	queue chan func()
	done  chan struct{}
}

// New starts a Mailbox with the given queue depth.
func New(depth int) *Mailbox {
	m := &Mailbox{
		queue: make(chan func(), depth),
		done:  make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Mailbox) run() {
	for {
		select {
		case fn := <-m.queue:
			fn()
		case <-m.done:
			return
		}
	}
}

// Dispatch enqueues fn and blocks until it has finished running on the
// mailbox's goroutine, or ctx is cancelled, or the mailbox is closed first.
// Cancelling ctx does not stop fn once it has started running — the actor
// model only serializes; it does not preempt.
func (m *Mailbox) Dispatch(ctx context.Context, fn func()) error {
	result := make(chan struct{})
	wrapped := func() {
		fn()
		close(result)
	}

	select {
	case m.queue <- wrapped:
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-result:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the mailbox's goroutine. Any fn already running is allowed to
// finish; nothing further enqueued after Close will run.
func (m *Mailbox) Close() {
	close(m.done)
}
