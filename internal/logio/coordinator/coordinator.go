// Package coordinator provides the reference implementation of the external
// Coordinator collaborator from spec.md §6: "Coordinator: new(quorum,
// replica, network), elect() -> Future<Option<u64>>, append(bytes) ->
// Future<u64>, truncate(to: u64) -> Future<u64>." The actual Paxos-style
// agreement protocol a production coordinator runs against its peers is out
// of scope — what is in scope is the contract the Writer Session drives and
// a concrete implementation solid enough to exercise that contract end to
// end.
//
// That reference implementation borrows two ideas from elsewhere in this
// codebase's lineage rather than inventing a new consensus protocol: leader
// election is a term-and-majority-vote state machine generalizing
// internal/raft/server's BeginElection, and position assignment follows the
// fixed-sequencer pattern of internal/tob's Sequencer — a single elected
// coordinator hands out strictly increasing positions and only considers an
// action committed once a quorum (including itself) has accepted it.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"distlog/internal/logio"
	"distlog/internal/logio/metrics"
	"distlog/internal/logio/network"
	"distlog/internal/logio/replica"
)

// Coordinator is the contract spec.md §6 describes: at most one active
// election claim per owner, replaced on every call to Elect.
type Coordinator interface {
	// Elect attempts to win leadership over the quorum. A nil error with ok
	// == false means the election was lost, not a failure — the caller may
	// retry. A non-nil error means the election itself failed to run.
	Elect(ctx context.Context) (pos logio.Position, ok bool, err error)

	// Append assigns the next position to bytes, replicates it to a
	// quorum, and marks it learned. Requires a prior successful Elect.
	Append(ctx context.Context, bytes []byte) (logio.Position, error)

	// Truncate removes every entry strictly before to, replicating the
	// truncation itself as a learned action at the next sequence position,
	// the same way Append takes one. Requires a prior successful Elect.
	Truncate(ctx context.Context, to logio.Position) (logio.Position, error)

	// Close releases any resources held across peer connections. It does
	// not resign leadership explicitly — the next election anywhere in the
	// quorum will naturally supersede it.
	Close() error
}

// ErrNotElected is returned by Append/Truncate when no election has
// succeeded yet.
var ErrNotElected = fmt.Errorf("coordinator: not elected")

// ErrQuorumUnreachable is returned by Append/Truncate when fewer than
// quorum members accepted the proposal.
var ErrQuorumUnreachable = fmt.Errorf("coordinator: quorum unreachable")

// ReferenceCoordinator is the concrete Coordinator used throughout this
// module, matching spec.md §6's Coordinator::new(quorum, replica, network).
// It drives the local replica and every peer replica in-process via
// replica.Mutator handles — the inter-replica wire protocol those handles
// would otherwise speak is out of scope — but still holds and consults the
// shared Network handle it was constructed with, gating which peers it
// contacts on that Network's own view of peer membership and reachability
// rather than unconditionally trusting the static peers map.
type ReferenceCoordinator struct {
	quorum  int
	local   replica.Mutator
	net     network.Network
	peers   map[string]replica.Mutator
	metrics metrics.Collector

	mu      sync.Mutex
	term    uint64
	elected bool
	nextPos uint64
}

// New constructs a coordinator over local and the given peer handles, and
// the shared Network handle the caller acquired for this Coordinator's
// lifetime. quorum is the number of acceptances (including the local
// replica) required to consider an election won or an action committed;
// callers typically pass (len(peers)+1)/2 + 1. net may be nil (test doubles and
// the coordinator package's own tests construct peers directly without a
// Network), in which case every peer in the map is treated as reachable. A
// nil collector is replaced with a no-op one.
func New(quorum int, local replica.Mutator, net network.Network, peers map[string]replica.Mutator, collector metrics.Collector) *ReferenceCoordinator {
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return &ReferenceCoordinator{
		quorum:  quorum,
		local:   local,
		net:     net,
		peers:   peers,
		metrics: collector,
	}
}

// reachable reports whether peer should be contacted this round: always
// true with no Network handle, otherwise gated on Network.Dial succeeding,
// the same connectivity check a real wire-based replication call would make
// before sending anything.
func (c *ReferenceCoordinator) reachable(peer string) bool {
	if c.net == nil {
		return true
	}
	_, err := c.net.Dial(peer)
	return err == nil
}

func (c *ReferenceCoordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elected = false
	return nil
}
