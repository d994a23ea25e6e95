package session

import (
	"context"
	"time"

	"distlog/internal/logio"
	"distlog/internal/logio/actor"
	"distlog/internal/logio/coordinator"
	"distlog/internal/logio/errs"
	"distlog/internal/logio/events"
	"distlog/internal/logio/manager"
	"distlog/internal/logio/metrics"
)

// Writer is the Writer Session of spec.md §4.4: owns at most one active
// Coordinator, replacing the "pointer, delete-then-new" pattern with an
// owned field transitioned entirely on the session's own actor goroutine —
// coord, stickyErr, and holdsRefs are touched only inside closures
// dispatched through mailbox, so no separate mutex guards them.
//
// The Coordinator a successful Elect installs keeps using the same replica
// and network handles for every subsequent Append/Truncate, so the Writer
// acquires both for the Coordinator's entire lifetime rather than just for
// the duration of the Elect call — matching spec.md §3's invariant that the
// Replica and Network Handles are never dropped while a session still
// references them. holdsRefs tracks whether those two references are
// currently outstanding, so Close and the next Elect release exactly one
// pair.
type Writer struct {
	mailbox *actor.Mailbox
	mgr     *manager.Manager
	metrics metrics.Collector

	coord     coordinator.Coordinator
	stickyErr error
	holdsRefs bool
}

// NewWriter constructs a Writer Session against mgr, mirroring
// Log::Writer::new(log, timeout, retries) from spec.md §6, and immediately
// runs the bounded election retry loop of spec.md §4.4: each iteration
// dispatches elect and waits up to timeout; a timeout or a lost election
// both count as one retry and loop, a hard failure or successful election
// both stop the loop. Exhausting retries without ever electing leaves the
// Writer with no Coordinator, so every subsequent Append/Truncate fails with
// "no election has been performed" until a caller retries Elect directly.
func NewWriter(ctx context.Context, mgr *manager.Manager, timeout time.Duration, retries int, collector metrics.Collector) *Writer {
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	w := &Writer{mailbox: actor.New(8), mgr: mgr, metrics: collector}

	for attempt := 0; attempt < retries; attempt++ {
		_, won, err := w.Elect(ctx, timeout)
		if err != nil {
			break // hard failure: Elect already recorded the sticky error
		}
		if won {
			break
		}
		// lost this round, or timed out waiting for it: retry
	}

	return w
}

// electOutcome carries an election round's result back out of the actor
// goroutine through dispatch's own return value, rather than through a
// shared field the calling goroutine might read before the round actually
// finishes.
type electOutcome struct {
	pos logio.Position
	won bool
}

// Elect attempts to become leader for this log. It destroys any existing
// Coordinator and clears the sticky error first, then constructs a fresh
// one and runs one election round. won is true only on a won election;
// won == false with a nil err covers both a lost election (spec.md §4.4:
// "not an error; retryable") and a timeout — the Writer's own retry loop
// treats the two identically, and so may any other caller.
func (w *Writer) Elect(ctx context.Context, timeout time.Duration) (pos logio.Position, won bool, err error) {
	outcome, ok, err := dispatch(ctx, w.mailbox, w.mgr.Logger(), "writer.elect", timeout, func(ctx context.Context) (electOutcome, error) {
		rep, err := w.mgr.AwaitRecovery(ctx)
		if err != nil {
			return electOutcome{}, err
		}
		net := w.mgr.Network()

		if w.coord != nil {
			_ = w.coord.Close()
			w.coord = nil
		}
		if w.holdsRefs {
			w.mgr.ReleaseReplica()
			w.mgr.ReleaseNetwork()
			w.holdsRefs = false
		}
		w.stickyErr = nil

		coord := coordinator.New(w.mgr.Quorum(), rep, net, w.mgr.PeerReplicas(), w.metrics)

		pos, won, err := coord.Elect(ctx)
		if err != nil {
			w.stickyErr = err
			w.mgr.ReleaseReplica()
			w.mgr.ReleaseNetwork()
			return electOutcome{}, err
		}
		if !won {
			w.mgr.ReleaseReplica()
			w.mgr.ReleaseNetwork()
			return electOutcome{}, nil
		}

		w.coord = coord
		w.holdsRefs = true
		events.Publish(w.mgr.Events(), events.Elected, pos)
		return electOutcome{pos: pos, won: true}, nil
	})
	if !ok {
		return logio.Position{}, false, translateClosed(err, errs.ErrWriterDeleted)
	}
	return outcome.pos, outcome.won, nil
}

// Append delegates to the owned Coordinator's Append, failing with
// "no election has been performed" if none exists, or with the sticky error
// if a prior Coordinator call already failed.
func (w *Writer) Append(ctx context.Context, bytes []byte, timeout time.Duration) (logio.Position, bool, error) {
	pos, ok, err := dispatch(ctx, w.mailbox, w.mgr.Logger(), "writer.append", timeout, func(ctx context.Context) (logio.Position, error) {
		if w.coord == nil {
			return logio.Position{}, errs.ErrNoLeader
		}
		if w.stickyErr != nil {
			return logio.Position{}, w.stickyErr
		}

		pos, err := w.coord.Append(ctx, bytes)
		if err != nil {
			w.stickyErr = err
			return logio.Position{}, err
		}
		return pos, nil
	})
	return pos, ok, translateClosed(err, errs.ErrWriterDeleted)
}

// Truncate delegates to the owned Coordinator's Truncate, under the same
// preconditions as Append.
func (w *Writer) Truncate(ctx context.Context, to logio.Position, timeout time.Duration) (logio.Position, bool, error) {
	pos, ok, err := dispatch(ctx, w.mailbox, w.mgr.Logger(), "writer.truncate", timeout, func(ctx context.Context) (logio.Position, error) {
		if w.coord == nil {
			return logio.Position{}, errs.ErrNoLeader
		}
		if w.stickyErr != nil {
			return logio.Position{}, w.stickyErr
		}

		pos, err := w.coord.Truncate(ctx, to)
		if err != nil {
			w.stickyErr = err
			return logio.Position{}, err
		}
		return pos, nil
	})
	return pos, ok, translateClosed(err, errs.ErrWriterDeleted)
}

// Close tears down the session's actor, destroying the owned Coordinator
// first. Outstanding internal awaits fail with "log writer is being
// deleted", per spec.md §4.4.
func (w *Writer) Close() {
	_ = w.mailbox.Dispatch(context.Background(), func() {
		if w.coord != nil {
			_ = w.coord.Close()
			w.coord = nil
		}
		if w.holdsRefs {
			w.mgr.ReleaseReplica()
			w.mgr.ReleaseNetwork()
			w.holdsRefs = false
		}
	})
	w.mailbox.Close()
}
