package group

import (
	"context"
	"sync"
	"time"
)

// InMemoryGroup is the reference Client implementation: a single shared
// membership table with ZooKeeper-like ephemeral-session semantics — a join
// is only live until sessionTimeout elapses without being refreshed, at
// which point it silently disappears from the observed set the same way a
// ZooKeeper ephemeral znode vanishes when its session expires.
//
// It is shared by every replica in a test or single-process deployment, the
// same way a real ZooKeeper quorum is shared by every replica process.
type InMemoryGroup struct {
	mu             sync.Mutex
	table          *memberTable
	sessionTimeout time.Duration
	version        Version
	changed        chan struct{}
	closed         bool
}

// NewInMemoryGroup creates a group client sharing membership state with any
// other InMemoryGroup constructed from the same *InMemoryGroup value —
// callers that want a multi-replica cluster should construct one
// InMemoryGroup and pass the same pointer to every replica's Log Manager.
func NewInMemoryGroup(sessionTimeout time.Duration) *InMemoryGroup {
	return &InMemoryGroup{
		table:          newMemberTable(),
		sessionTimeout: sessionTimeout,
		// Watch treats since == 0 as "return the current set now", so the
		// versions it hands out start at 1 and are never zero.
		version: 1,
		changed: make(chan struct{}),
	}
}

func (g *InMemoryGroup) Join(_ context.Context, endpoint string) (Membership, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return Membership{}, ErrClosed
	}

	incarnation := g.table.nextIncarnation(endpoint)
	deadline := time.Now().Add(g.sessionTimeout)
	if g.table.put(endpoint, incarnation, deadline) {
		g.bump()
	}
	return Membership{Endpoint: endpoint, Incarnation: incarnation}, nil
}

func (g *InMemoryGroup) Watch(ctx context.Context, since Version) ([]Membership, Version, error) {
	for {
		g.mu.Lock()
		if g.closed {
			g.mu.Unlock()
			return nil, 0, ErrClosed
		}

		if g.table.expire(time.Now()) {
			g.bump()
		}

		if g.version != since || since == 0 {
			snapshot := g.table.snapshot()
			version := g.version
			g.mu.Unlock()
			return snapshot, version, nil
		}

		ch := g.changed
		g.mu.Unlock()

		select {
		case <-ch:
			continue
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(g.sessionTimeout):
			// Wake up periodically even with no change, so that a
			// membership we are the only watcher of can still be
			// expired and observed as gone.
			continue
		}
	}
}

func (g *InMemoryGroup) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	g.bump()
	return nil
}

// bump advances the version and wakes every blocked Watch call. Caller must
// hold g.mu.
func (g *InMemoryGroup) bump() {
	g.version++
	close(g.changed)
	g.changed = make(chan struct{})
}
