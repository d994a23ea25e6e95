// Package session implements the Reader and Writer Session actors of
// spec.md §4.3/§4.4: each is a single-threaded actor with a mailbox, scoped
// to one Log Manager, dispatching its operations onto the local replica (and,
// for the Writer, a Coordinator it owns outright).
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"distlog/internal/ctxkey"
	"distlog/internal/logio/actor"
	"distlog/internal/logio/logging"
)

// callIDKey tags every dispatched operation's context with a per-call
// correlation ID, the same way a request ID threads through a server's
// middleware chain — here it lets a Reader/Writer's log lines for one
// beginning/ending/read/elect/append/truncate call be grepped out of an
// otherwise-interleaved session log.
var callIDKey = ctxkey.New[string]("session-call-id")

// dispatch runs fn on mailbox's goroutine under a deadline derived from
// timeout, and folds the three-valued result spec.md §6 describes — Ok(v),
// Err(message), None (timeout) — into (value, ok, err): ok is false with a
// nil err exactly when the deadline elapsed before fn produced a result,
// matching §7's "timeouts surface as a neutral no-result, distinct from an
// error." Cancelling the deadline only stops the *wait*; fn itself, once
// dequeued by the mailbox, runs to completion on its own goroutine per
// actor.Mailbox's documented semantics.
func dispatch[T any](ctx context.Context, mailbox *actor.Mailbox, logger logging.Logger, op string, timeout time.Duration, fn func(context.Context) (T, error)) (T, bool, error) {
	var zero T

	callID := uuid.New().String()
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	dctx = ctxkey.Set(dctx, callIDKey, callID)

	logger.Debugf("%s[%s]: dispatched", op, callID)

	var value T
	var ferr error
	dispatchErr := mailbox.Dispatch(dctx, func() {
		value, ferr = fn(dctx)
	})

	if dispatchErr != nil {
		if errors.Is(dispatchErr, context.DeadlineExceeded) {
			logger.Debugf("%s[%s]: timed out", op, callID)
			return zero, false, nil
		}
		logger.Debugf("%s[%s]: %v", op, callID, dispatchErr)
		return zero, false, dispatchErr
	}
	if ferr != nil {
		if errors.Is(ferr, context.DeadlineExceeded) {
			logger.Debugf("%s[%s]: timed out", op, callID)
			return zero, false, nil
		}
		logger.Debugf("%s[%s]: %v", op, callID, ferr)
		return zero, false, ferr
	}
	logger.Debugf("%s[%s]: resolved", op, callID)
	return value, true, nil
}

// translateClosed replaces actor.ErrClosed — meaningful only inside this
// package — with the session-specific teardown error spec.md §4.3/§4.4
// requires outstanding callers see.
func translateClosed(err, deletedErr error) error {
	if errors.Is(err, actor.ErrClosed) {
		return deletedErr
	}
	return err
}
