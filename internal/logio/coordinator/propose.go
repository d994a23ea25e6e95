package coordinator

import (
	"context"
	"time"

	"distlog/internal/logio"
	"distlog/internal/logio/replica"
)

// Append assigns the next position exactly the way the fixed sequencer in
// internal/tob/sequencer.go hands out monotonically increasing sequence
// numbers, then replicates the resulting action to a quorum before marking
// it learned everywhere it was accepted — mirroring the
// delivery-in-sequence-order guarantee internal/tob/delivery.go provides,
// simplified because this package assigns positions itself rather than
// reassembling them out of order.
func (c *ReferenceCoordinator) Append(ctx context.Context, bytes []byte) (logio.Position, error) {
	start := time.Now()

	c.mu.Lock()
	if !c.elected {
		c.mu.Unlock()
		return logio.Position{}, ErrNotElected
	}
	c.nextPos++
	pos := logio.NewPosition(c.nextPos)
	c.mu.Unlock()

	action := logio.Action{
		Position:    pos,
		Type:        logio.Append,
		AppendBytes: bytes,
	}

	if err := c.replicate(ctx, pos, action); err != nil {
		c.markFailed()
		return logio.Position{}, err
	}

	c.metrics.RecordAppend(time.Since(start))
	return pos, nil
}

// Truncate discards every entry strictly before to and consumes the next
// sequence position for a record of the truncation itself, exactly as
// append consumes one for its bytes — the reason spec.md guarantees
// truncate's return value is strictly greater than every prior append or
// truncate's.
func (c *ReferenceCoordinator) Truncate(ctx context.Context, to logio.Position) (logio.Position, error) {
	start := time.Now()

	c.mu.Lock()
	if !c.elected {
		c.mu.Unlock()
		return logio.Position{}, ErrNotElected
	}
	c.nextPos++
	pos := logio.NewPosition(c.nextPos)
	c.mu.Unlock()

	action := logio.Action{
		Position:       pos,
		Type:           logio.Truncate,
		TruncateBefore: to,
	}

	if err := c.truncateQuorum(ctx, action); err != nil {
		c.markFailed()
		return logio.Position{}, err
	}

	c.metrics.RecordTruncate(time.Since(start))
	return pos, nil
}

// replicate proposes action to local and every peer, requiring acceptance
// from at least a quorum (local counts as one), then marks the action
// learned on every member that accepted it.
func (c *ReferenceCoordinator) replicate(ctx context.Context, pos logio.Position, action logio.Action) error {
	accepted := make([]replica.Mutator, 0, len(c.peers)+1)

	votes := 0
	if err := c.local.Propose(ctx, action); err == nil {
		votes++
		accepted = append(accepted, c.local)
	}

	for name, peer := range c.peers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !c.reachable(name) {
			continue
		}
		if err := peer.Propose(ctx, action); err == nil {
			votes++
			accepted = append(accepted, peer)
		}
	}

	if votes < c.quorum {
		return ErrQuorumUnreachable
	}

	for _, member := range accepted {
		_ = member.MarkLearned(ctx, pos)
	}
	return nil
}

func (c *ReferenceCoordinator) truncateQuorum(ctx context.Context, action logio.Action) error {
	votes := 0
	if err := c.local.TruncateFrom(ctx, action); err == nil {
		votes++
	}

	for name, peer := range c.peers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !c.reachable(name) {
			continue
		}
		if err := peer.TruncateFrom(ctx, action); err == nil {
			votes++
		}
	}

	if votes < c.quorum {
		return ErrQuorumUnreachable
	}
	return nil
}

// markFailed drops leadership, forcing the owning Writer Session's sticky
// error to require a fresh Elect before any further Append/Truncate.
func (c *ReferenceCoordinator) markFailed() {
	c.mu.Lock()
	c.elected = false
	c.mu.Unlock()
}
