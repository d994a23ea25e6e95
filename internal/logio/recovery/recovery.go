// Package recovery implements the one-shot catch-up gate the Log Manager
// runs before any session may dispatch against a freshly constructed
// Replica (spec.md §4.2, §7). Recovery runs at most once per Manager
// lifetime; every caller that asks for the outcome before it is known
// blocks on the same gate and observes the same terminal result, the way
// every awaiter of a resolved process::Future in the original Mesos log
// observes the same value without re-running the underlying work.
//
// The State enum here follows the same "Go doesn't have enums, so use a
// typed constant block with a String method" convention as
// internal/raft/server.State.
package recovery

import (
	"context"
	"fmt"
	"sync"

	"distlog/internal/logio"
)

// State is the lifecycle of one recovery attempt.
type State uint64

const (
	Pending State = iota
	Succeeded
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// ErrDiscarded is the terminal error recorded when Cancel is called before
// Run resolves. spec.md §4 resolves the "discard outside teardown" open
// question by treating it as an ordinary surfaced error rather than a
// crash — Cancel is only ever invoked by the Manager at teardown, so this
// error is in practice only ever seen by sessions racing a teardown.
var ErrDiscarded = fmt.Errorf("recovery: discarded")

// Gate is a single-resolution broadcast: any number of goroutines may call
// Wait before the outcome is known; all of them observe the same State and
// the same Position/error once Run (or Cancel) resolves it. Unlike
// logio.Shared's reference-count channel, which is recreated on every
// Release so it can signal a new waiter each time, a Gate's result channel
// is closed exactly once — registering a wait is simply blocking on a
// channel reference that never changes before resolution, so there is no
// window in which a waiter can register after the close and miss it.
type Gate struct {
	mu    sync.Mutex
	state State
	pos   logio.Position
	err   error
	done  chan struct{}
}

// New creates an unresolved recovery gate.
func New() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Run executes fn exactly once and resolves the gate with its outcome.
// Calling Run more than once on the same Gate is a programmer error; the
// Manager constructs a fresh Gate per recovery attempt rather than rerunning
// an old one (spec.md §4.2: "recovery is single-dispatch, not a bounded
// retry loop").
func (g *Gate) Run(ctx context.Context, fn func(context.Context) (logio.Position, error)) {
	pos, err := fn(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Pending {
		return
	}
	if err != nil {
		g.state = Failed
		g.err = err
	} else {
		g.state = Succeeded
		g.pos = pos
	}
	close(g.done)
}

// Cancel resolves the gate as Cancelled if it has not already resolved.
// spec.md §7 restricts cancellation of recovery to teardown; the Manager is
// the only caller.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Pending {
		return
	}
	g.state = Cancelled
	g.err = ErrDiscarded
	close(g.done)
}

// Wait blocks until the gate resolves or ctx is done, returning the
// recovered Position on success or the terminal error otherwise.
func (g *Gate) Wait(ctx context.Context) (logio.Position, error) {
	select {
	case <-g.done:
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.pos, g.err
	case <-ctx.Done():
		return logio.Position{}, ctx.Err()
	}
}

// State reports the gate's current lifecycle state without blocking.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
