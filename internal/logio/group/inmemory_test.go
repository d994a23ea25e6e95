package group

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryGroupJoinThenWatchReturnsImmediately(t *testing.T) {
	g := NewInMemoryGroup(time.Minute)
	defer g.Close()

	ctx := context.Background()
	token, err := g.Join(ctx, "node-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), token.Incarnation)

	members, _, err := g.Watch(ctx, 0)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "node-a", members[0].Endpoint)
}

func TestInMemoryGroupJoinTwiceIncrementsIncarnation(t *testing.T) {
	g := NewInMemoryGroup(time.Minute)
	defer g.Close()

	ctx := context.Background()
	first, err := g.Join(ctx, "node-a")
	require.NoError(t, err)

	second, err := g.Join(ctx, "node-a")
	require.NoError(t, err)

	assert.Greater(t, second.Incarnation, first.Incarnation)
}

func TestInMemoryGroupWatchBlocksUntilChange(t *testing.T) {
	g := NewInMemoryGroup(time.Minute)
	defer g.Close()

	ctx := context.Background()
	_, version, err := g.Watch(ctx, 0)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		members, newVersion, err := g.Watch(ctx, version)
		assert.NoError(t, err)
		assert.Greater(t, uint64(newVersion), uint64(version))
		assert.Len(t, members, 1)
	}()

	select {
	case <-done:
		t.Fatal("watch returned before any membership change")
	case <-time.After(50 * time.Millisecond):
	}

	_, err = g.Join(ctx, "node-b")
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not observe the join in time")
	}
}

func TestInMemoryGroupWatchExpiresStaleMembership(t *testing.T) {
	g := NewInMemoryGroup(20 * time.Millisecond)
	defer g.Close()

	ctx := context.Background()
	_, err := g.Join(ctx, "node-a")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		members, _, err := g.Watch(ctx, 0)
		return err == nil && len(members) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestInMemoryGroupWatchObservesExpiryWithoutAnotherJoin(t *testing.T) {
	g := NewInMemoryGroup(20 * time.Millisecond)
	defer g.Close()

	ctx := context.Background()
	require.NoError(t, func() error { _, err := g.Join(ctx, "node-a"); return err }())

	_, version, err := g.Watch(ctx, 0)
	require.NoError(t, err)

	// A Watch call anchored on the version right after the join must itself
	// observe the expiry once the session elapses, with no further Join
	// needed to bump the version — this is what lets the membership renewer
	// notice its token vanished purely by blocking in Watch.
	done := make(chan struct{})
	var members []Membership
	go func() {
		defer close(done)
		members, _, err = g.Watch(ctx, version)
	}()

	select {
	case <-done:
		require.NoError(t, err)
		assert.Empty(t, members)
	case <-time.After(time.Second):
		t.Fatal("watch never observed the expiry-only change")
	}
}

func TestInMemoryGroupCloseUnblocksWatchers(t *testing.T) {
	g := NewInMemoryGroup(time.Minute)
	ctx := context.Background()

	_, version, err := g.Watch(ctx, 0)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, _, err := g.Watch(ctx, version)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, g.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("watch did not unblock after Close")
	}
}

func TestInMemoryGroupJoinAfterCloseFails(t *testing.T) {
	g := NewInMemoryGroup(time.Minute)
	require.NoError(t, g.Close())

	_, err := g.Join(context.Background(), "node-a")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInMemoryGroupWatchRespectsContextCancellation(t *testing.T) {
	g := NewInMemoryGroup(time.Minute)
	defer g.Close()

	ctx := context.Background()
	_, version, err := g.Watch(ctx, 0)
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, _, err := g.Watch(cctx, version)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not respect context cancellation")
	}
}
