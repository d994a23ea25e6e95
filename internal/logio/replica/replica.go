// Package replica defines the Replica contract consumed by the façade (see
// spec.md §6, "Consumed interfaces") and a reference implementation backed
// by go.etcd.io/bbolt, generalizing the teacher's
// internal/raft/storage/bbolt_storage.go from persisting Raft LogEntry
// records to persisting replicated-log Actions.
//
// The Paxos-style catch-up and consensus protocol a production Replica runs
// is explicitly out of scope (spec.md §1); this package only has to satisfy
// the contract the façade dispatches against, plus whatever narrower
// mutation surface the reference Coordinator needs to make the package
// testable end-to-end.
package replica

import (
	"context"

	"distlog/internal/logio"
)

// Replica is the read-facing contract a Reader/Writer Session dispatches
// against. It matches spec.md §6 exactly: pid/endpoint identity plus
// beginning/ending/read.
type Replica interface {
	// PID identifies this replica (the local endpoint), mirroring the
	// original's Replica::pid()/endpoint().
	PID() string

	// Beginning returns the earliest readable position.
	Beginning(ctx context.Context) (logio.Position, error)

	// Ending returns one past the highest occupied position. Propose
	// advances it before the action there is learned; the Reader Session
	// checks that the position below it is learned.
	Ending(ctx context.Context) (logio.Position, error)

	// Read returns every Action in [from, to], in ascending order. It may
	// include actions that are not yet Performed/Learned; range validation
	// and APPEND filtering is the Reader Session's job (spec.md §4.3), not
	// the Replica's.
	Read(ctx context.Context, from, to logio.Position) ([]logio.Action, error)
}

// Mutator is the narrower surface the reference Coordinator uses to commit
// actions to the local replica once it has gathered a quorum of peer acks.
// Sessions receive it from the Log Manager's AwaitRecovery, but only the
// Coordinator calls its mutation methods: the Reader Session uses the
// Replica methods and the Writer Session hands it to its Coordinator.
type Mutator interface {
	Replica

	// Propose durably records action as performed-but-not-yet-learned at
	// its position, overwriting any previous occupant of that slot. It is
	// the replica-local half of a Paxos accept.
	Propose(ctx context.Context, action logio.Action) error

	// MarkLearned flips the Learned bit for the action at pos, once the
	// Coordinator has observed a quorum of peers agree on its content.
	MarkLearned(ctx context.Context, pos logio.Position) error

	// TruncateFrom records truncateAction (Type == Truncate) at a freshly
	// assigned position — the same kind of slot an Append occupies — and
	// discards every action strictly below truncateAction.TruncateBefore.
	// Ending() advances past the truncate action's own position;
	// Beginning() advances to TruncateBefore.
	TruncateFrom(ctx context.Context, truncateAction logio.Action) error

	// Close releases the replica's on-disk resources.
	Close() error
}
