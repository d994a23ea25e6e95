package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distlog/internal/logio"
	"distlog/internal/logio/errs"
	"distlog/internal/logio/metrics"
)

func TestWriterAppendWithoutElectionFails(t *testing.T) {
	mgr := newTestManager(t)
	w := NewWriter(context.Background(), mgr, time.Second, 0, nil)
	defer w.Close()

	_, _, err := w.Append(context.Background(), []byte("a"), time.Second)
	assert.ErrorIs(t, err, errs.ErrNoLeader)
}

func TestNewWriterConstructorElectsOnQuorumOne(t *testing.T) {
	mgr := newTestManager(t)
	w := NewWriter(context.Background(), mgr, time.Second, 3, metrics.New())
	defer w.Close()

	pos, ok, err := w.Append(context.Background(), []byte("a"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, logio.NewPosition(1), pos)
}

func TestWriterElectThenAppendTruncateOrderedPositions(t *testing.T) {
	mgr := newTestManager(t)
	w := NewWriter(context.Background(), mgr, time.Second, 0, nil)
	defer w.Close()

	ctx := context.Background()
	_, won, err := w.Elect(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, won)

	p1, ok, err := w.Append(ctx, []byte("a"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	p2, ok, err := w.Append(ctx, []byte("bb"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p2.After(p1))

	p3, ok, err := w.Truncate(ctx, p2, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p3.After(p2))
}

func TestWriterStickyErrorBlocksFurtherCallsUntilReElect(t *testing.T) {
	mgr := newTestManager(t)
	w := NewWriter(context.Background(), mgr, time.Second, 0, nil)
	defer w.Close()

	ctx := context.Background()
	_, won, err := w.Elect(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, won)

	// force a Coordinator failure: close the local replica it was built
	// against out from under it, so the next Append's Propose call fails.
	rep, err := mgr.AwaitRecovery(ctx)
	require.NoError(t, err)
	mgr.ReleaseReplica()
	require.NoError(t, rep.Close())

	_, _, err = w.Append(ctx, []byte("a"), time.Second)
	require.Error(t, err)

	_, _, err = w.Append(ctx, []byte("b"), time.Second)
	assert.Error(t, err, "sticky error must persist until a new Elect")

	_, _, err = w.Truncate(ctx, logio.NewPosition(1), time.Second)
	assert.Error(t, err, "sticky error also blocks Truncate")
}

func TestWriterCloseFailsOutstandingCallsWithWriterDeleted(t *testing.T) {
	mgr := newTestManager(t)
	w := NewWriter(context.Background(), mgr, time.Second, 0, nil)
	w.Close()

	_, _, err := w.Elect(context.Background(), time.Second)
	assert.ErrorIs(t, err, errs.ErrWriterDeleted)
}

func TestWriterElectReplacesExistingCoordinator(t *testing.T) {
	mgr := newTestManager(t)
	w := NewWriter(context.Background(), mgr, time.Second, 0, nil)
	defer w.Close()

	ctx := context.Background()
	_, won, err := w.Elect(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, won)

	p1, ok, err := w.Append(ctx, []byte("a"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// re-electing replaces the Coordinator and clears any sticky state; a
	// fresh election still yields strictly increasing positions afterward.
	_, won, err = w.Elect(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, won)

	p2, ok, err := w.Append(ctx, []byte("bb"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p2.After(p1))
}
