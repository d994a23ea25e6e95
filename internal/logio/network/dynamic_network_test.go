package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distlog/internal/logio/group"
)

func TestDynamicNetworkReconcilesObservedMembership(t *testing.T) {
	g := group.NewInMemoryGroup(time.Minute)
	defer g.Close()

	ctx := context.Background()
	n, err := NewDynamicNetwork(ctx, "node-a", g)
	require.NoError(t, err)
	defer n.Close()

	assert.Empty(t, n.Peers())

	_, err = g.Join(ctx, "node-b")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(n.Peers()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"node-b"}, n.Peers())
}

func TestDynamicNetworkRemovesExpiredPeer(t *testing.T) {
	g := group.NewInMemoryGroup(30 * time.Millisecond)
	defer g.Close()

	ctx := context.Background()
	n, err := NewDynamicNetwork(ctx, "node-a", g)
	require.NoError(t, err)
	defer n.Close()

	_, err = g.Join(ctx, "node-b")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(n.Peers()) == 1
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(n.Peers()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDynamicNetworkTokenMatchesJoin(t *testing.T) {
	g := group.NewInMemoryGroup(time.Minute)
	defer g.Close()

	ctx := context.Background()
	n, err := NewDynamicNetwork(ctx, "node-a", g)
	require.NoError(t, err)
	defer n.Close()

	assert.Equal(t, "node-a", n.Token().Endpoint)
	assert.Equal(t, uint64(1), n.Token().Incarnation)
}
