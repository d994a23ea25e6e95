// Package errs centralizes the sentinel errors for the replicated-log
// façade, following the ErrSequencerStopped / ErrQueueFull pattern used by
// the teacher's total-order-broadcast sequencer.
package errs

import "errors"

var (
	// ErrLogDeleted is returned to every outstanding await_recovery caller
	// when the Log Manager tears down while recovery is still pending.
	ErrLogDeleted = errors.New("log is being deleted")

	// ErrReaderDeleted is returned from a Reader Session's outstanding
	// internal awaits when the session is torn down.
	ErrReaderDeleted = errors.New("log reader is being deleted")

	// ErrWriterDeleted is returned from a Writer Session's outstanding
	// internal awaits when the session is torn down.
	ErrWriterDeleted = errors.New("log writer is being deleted")

	// ErrNoLeader is returned by append/truncate when no successful elect
	// has been performed on this Writer Session.
	ErrNoLeader = errors.New("no election has been performed")

	// ErrBadReadRangePending is returned when a read range includes an
	// action that has not yet been performed or learned.
	ErrBadReadRangePending = errors.New("bad read range (includes pending entries)")

	// ErrBadReadRangeMissing is returned when a read range has a gap: an
	// action whose position does not match the expected running position.
	ErrBadReadRangeMissing = errors.New("bad read range (includes missing entries)")

	// ErrRecoveryDiscarded is returned by await_recovery when the recovery
	// future was discarded outside of teardown. This is always a bug, never
	// a reason to crash the process.
	ErrRecoveryDiscarded = errors.New("log recovery future was unexpectedly discarded")
)
