package replica

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distlog/internal/logio"
)

func TestFakeReplicaBeginningEndingInitial(t *testing.T) {
	r := NewFakeReplica("node-a")

	beginning, err := r.Beginning(context.Background())
	require.NoError(t, err)
	assert.Equal(t, logio.NewPosition(1), beginning)

	ending, err := r.Ending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, logio.NewPosition(1), ending)
}

func TestFakeReplicaProposeAdvancesEnding(t *testing.T) {
	r := NewFakeReplica("node-a")
	ctx := context.Background()

	err := r.Propose(ctx, logio.Action{
		Position:    logio.NewPosition(1),
		Type:        logio.Append,
		AppendBytes: []byte("a"),
	})
	require.NoError(t, err)

	ending, err := r.Ending(ctx)
	require.NoError(t, err)
	assert.Equal(t, logio.NewPosition(2), ending)
}

func TestFakeReplicaReadFiltersByRangeAndOrders(t *testing.T) {
	r := NewFakeReplica("node-a")
	ctx := context.Background()

	for i, b := range []string{"a", "bb", "ccc"} {
		pos := logio.NewPosition(uint64(i + 1))
		require.NoError(t, r.Propose(ctx, logio.Action{Position: pos, Type: logio.Append, AppendBytes: []byte(b)}))
		require.NoError(t, r.MarkLearned(ctx, pos))
	}

	actions, err := r.Read(ctx, logio.NewPosition(1), logio.NewPosition(2))
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, logio.NewPosition(1), actions[0].Position)
	assert.Equal(t, logio.NewPosition(2), actions[1].Position)
	assert.True(t, actions[0].Ready())
}

func TestFakeReplicaReadEmptyWhenToBeforeFrom(t *testing.T) {
	r := NewFakeReplica("node-a")
	actions, err := r.Read(context.Background(), logio.NewPosition(5), logio.NewPosition(2))
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestFakeReplicaMarkLearnedUnknownPosition(t *testing.T) {
	r := NewFakeReplica("node-a")
	err := r.MarkLearned(context.Background(), logio.NewPosition(1))
	assert.Error(t, err)
}

func TestFakeReplicaTruncateFromDropsBelowBoundaryAndRecordsTruncation(t *testing.T) {
	r := NewFakeReplica("node-a")
	ctx := context.Background()

	for i, b := range []string{"a", "bb"} {
		pos := logio.NewPosition(uint64(i + 1))
		require.NoError(t, r.Propose(ctx, logio.Action{Position: pos, Type: logio.Append, AppendBytes: []byte(b)}))
		require.NoError(t, r.MarkLearned(ctx, pos))
	}

	truncateAction := logio.Action{
		Position:       logio.NewPosition(3),
		Type:           logio.Truncate,
		TruncateBefore: logio.NewPosition(2),
	}
	require.NoError(t, r.TruncateFrom(ctx, truncateAction))

	beginning, err := r.Beginning(ctx)
	require.NoError(t, err)
	assert.Equal(t, logio.NewPosition(2), beginning)

	ending, err := r.Ending(ctx)
	require.NoError(t, err)
	assert.Equal(t, logio.NewPosition(4), ending)

	actions, err := r.Read(ctx, logio.NewPosition(1), logio.NewPosition(1))
	require.NoError(t, err)
	assert.Empty(t, actions)

	actions, err = r.Read(ctx, logio.NewPosition(2), logio.NewPosition(2))
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.True(t, actions[0].Ready())
}

func TestFakeReplicaErrorInjection(t *testing.T) {
	r := NewFakeReplica("node-a")
	boom := assertErr{}
	r.BeginningError = boom
	r.EndingError = boom
	r.ReadError = boom
	r.ProposeError = boom

	ctx := context.Background()
	_, err := r.Beginning(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = r.Ending(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = r.Read(ctx, logio.NewPosition(1), logio.NewPosition(2))
	assert.ErrorIs(t, err, boom)
	err = r.Propose(ctx, logio.Action{Position: logio.NewPosition(1)})
	assert.ErrorIs(t, err, boom)
}

type assertErr struct{}

func (assertErr) Error() string { return "injected failure" }
