package session

import (
	"context"
	"time"

	"distlog/internal/logio"
	"distlog/internal/logio/actor"
	"distlog/internal/logio/errs"
	"distlog/internal/logio/manager"
)

// Reader is the Reader Session of spec.md §4.3: a session scoped to a single
// Log Manager, holding a deferred reference to the (to-be) shared replica
// handle. Every operation first awaits recovery via the Manager's gate, then
// dispatches to the local replica on the session's own actor goroutine.
type Reader struct {
	mailbox *actor.Mailbox
	mgr     *manager.Manager
}

// NewReader constructs a Reader Session against mgr, mirroring
// Log::Reader::new(log) from spec.md §6.
func NewReader(mgr *manager.Manager) *Reader {
	return &Reader{mailbox: actor.New(8), mgr: mgr}
}

// Beginning returns the earliest readable position.
func (r *Reader) Beginning(ctx context.Context, timeout time.Duration) (logio.Position, bool, error) {
	pos, ok, err := dispatch(ctx, r.mailbox, r.mgr.Logger(), "reader.beginning", timeout, func(ctx context.Context) (logio.Position, error) {
		rep, err := r.mgr.AwaitRecovery(ctx)
		if err != nil {
			return logio.Position{}, err
		}
		defer r.mgr.ReleaseReplica()
		return rep.Beginning(ctx)
	})
	return pos, ok, translateClosed(err, errs.ErrReaderDeleted)
}

// Ending returns one past the last learned position. Like the original
// log's position(), it does not trust the replica's own bookkeeping blindly:
// the replica advances its ending as soon as an action is proposed, so
// having asked for the ending position, it round-trips the position just
// below it through the same read-validation walk Read uses, at the
// degenerate range [pos-1, pos-1]. A pending or mismatched action found
// there means the replica's ending runs ahead of what has been learned, and
// that surfaces as the same bad-read-range error Read would give, rather
// than an unvalidated position. On a fresh log (ending 1) the checked
// position 0 holds nothing and the check passes.
func (r *Reader) Ending(ctx context.Context, timeout time.Duration) (logio.Position, bool, error) {
	pos, ok, err := dispatch(ctx, r.mailbox, r.mgr.Logger(), "reader.ending", timeout, func(ctx context.Context) (logio.Position, error) {
		rep, err := r.mgr.AwaitRecovery(ctx)
		if err != nil {
			return logio.Position{}, err
		}
		defer r.mgr.ReleaseReplica()

		pos, err := rep.Ending(ctx)
		if err != nil {
			return logio.Position{}, err
		}

		if pos.Value() == 0 {
			return pos, nil
		}
		last := logio.NewPosition(pos.Value() - 1)
		actions, err := rep.Read(ctx, last, last)
		if err != nil {
			return logio.Position{}, err
		}
		if _, err := filterActions(last, actions); err != nil {
			return logio.Position{}, err
		}
		return pos, nil
	})
	return pos, ok, translateClosed(err, errs.ErrReaderDeleted)
}

// Read returns every APPEND entry with a position in [from, to], in
// ascending order, applying the filtering and validation walk of spec.md
// §4.3. A from below the replica's beginning (a truncated position) fails
// with the missing-entries bad-read-range error. A timeout resolves to
// (nil, false, nil): no result, not an error.
func (r *Reader) Read(ctx context.Context, from, to logio.Position, timeout time.Duration) ([]logio.Entry, bool, error) {
	entries, ok, err := dispatch(ctx, r.mailbox, r.mgr.Logger(), "reader.read", timeout, func(ctx context.Context) ([]logio.Entry, error) {
		rep, err := r.mgr.AwaitRecovery(ctx)
		if err != nil {
			return nil, err
		}
		defer r.mgr.ReleaseReplica()

		if to.Before(from) {
			return []logio.Entry{}, nil
		}

		beginning, err := rep.Beginning(ctx)
		if err != nil {
			return nil, err
		}
		if from.Before(beginning) {
			return nil, errs.ErrBadReadRangeMissing
		}

		actions, err := rep.Read(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return filterActions(from, actions)
	})
	return entries, ok, translateClosed(err, errs.ErrReaderDeleted)
}

// Close tears down the session's actor. Any operation already dispatched
// finishes running; nothing further is accepted. Outstanding internal
// awaits fail with "log reader is being deleted", per spec.md §4.3.
func (r *Reader) Close() {
	r.mailbox.Close()
}

// filterActions walks actions with a running expected position initialized
// to from, exactly as spec.md §4.3 describes: pending (not performed/learned)
// actions fail the whole read, a position gap fails it differently, and only
// APPEND actions surface as Entries — other action types are skipped but
// still advance the expected position.
func filterActions(from logio.Position, actions []logio.Action) ([]logio.Entry, error) {
	entries := make([]logio.Entry, 0, len(actions))
	expected := from

	for _, action := range actions {
		if !action.Ready() {
			return nil, errs.ErrBadReadRangePending
		}
		if !action.Position.Equal(expected) {
			return nil, errs.ErrBadReadRangeMissing
		}
		if action.Type == logio.Append {
			entries = append(entries, action.Entry())
		}
		expected = expected.Next()
	}

	return entries, nil
}
