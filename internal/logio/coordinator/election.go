package coordinator

import (
	"context"
	"time"

	"distlog/internal/logio"
)

// Elect runs one term of leader election, generalizing the
// increment-term/vote-for-self/count-majority shape of
// internal/raft/server.Server.BeginElection to this package's
// replica.Mutator peer handles: "casting a vote" here means the peer
// replica answers Ending successfully, i.e. it is reachable and has a
// well-defined tail position.
func (c *ReferenceCoordinator) Elect(ctx context.Context) (logio.Position, bool, error) {
	c.metrics.RecordElectionAttempt()
	start := time.Now()

	c.mu.Lock()
	c.term++
	c.elected = false
	c.mu.Unlock()

	votes := 1 // self-vote
	var highestEnding logio.Position
	if pos, err := c.local.Ending(ctx); err == nil {
		highestEnding = pos
	}

	for name, peer := range c.peers {
		select {
		case <-ctx.Done():
			return logio.Position{}, false, ctx.Err()
		default:
		}

		if !c.reachable(name) {
			continue
		}

		pos, err := peer.Ending(ctx)
		if err != nil {
			continue
		}
		votes++
		if pos.After(highestEnding) {
			highestEnding = pos
		}
	}

	if votes < c.quorum {
		c.metrics.RecordElectionLost()
		return logio.Position{}, false, nil
	}

	// Ending() reports one past the last learned position, so the last
	// known position itself is one below it. A zero Ending (every vote's
	// Ending call failed outright, including the local one) has no position
	// to step back from, so it stays at zero rather than underflowing.
	lastKnown := logio.Position{}
	if highestEnding.Value() > 0 {
		lastKnown = logio.NewPosition(highestEnding.Value() - 1)
	}

	c.mu.Lock()
	c.elected = true
	c.nextPos = lastKnown.Value()
	c.mu.Unlock()

	c.metrics.RecordElectionWon(time.Since(start))
	return lastKnown, true, nil
}
