package distlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distlog/internal/logio/replica"
)

func newTestLog(t *testing.T, quorum int, peers map[string]replica.Mutator) *Log {
	t.Helper()
	addrs := make(map[string]string, len(peers))
	for name := range peers {
		addrs[name] = "127.0.0.1:0"
	}
	log, err := New(context.Background(), Config{
		Self:         "node-a",
		Quorum:       quorum,
		ReplicaPath:  filepath.Join(t.TempDir(), "replica.db"),
		Peers:        addrs,
		PeerReplicas: peers,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log
}

// TestSingleNodeQuorumOneAppendRead matches spec.md §8 scenario 1.
func TestSingleNodeQuorumOneAppendRead(t *testing.T) {
	log := newTestLog(t, 1, nil)
	ctx := context.Background()

	writer := NewWriter(ctx, log, time.Second, 3)
	defer writer.Close()

	pos, won, err := writer.Elect(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, won)
	assert.Equal(t, "Position(0)", pos.String())

	p1, ok, err := writer.Append(ctx, []byte("a"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Position(1)", p1.String())

	p2, ok, err := writer.Append(ctx, []byte("bb"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Position(2)", p2.String())

	reader := NewReader(log)
	defer reader.Close()

	entries, ok, err := reader.Read(ctx, p1, p2, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, p1, entries[0].Position)
	assert.Equal(t, []byte("a"), entries[0].Bytes)
	assert.Equal(t, p2, entries[1].Position)
	assert.Equal(t, []byte("bb"), entries[1].Bytes)
}

// TestTruncateBeforeRead matches spec.md §8 scenario 2.
func TestTruncateBeforeRead(t *testing.T) {
	log := newTestLog(t, 1, nil)
	ctx := context.Background()

	writer := NewWriter(ctx, log, time.Second, 3)
	defer writer.Close()

	_, won, err := writer.Elect(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, won)

	p1, ok, err := writer.Append(ctx, []byte("a"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	p2, ok, err := writer.Append(ctx, []byte("bb"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	p3, ok, err := writer.Truncate(ctx, p2, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p3.After(p2))

	reader := NewReader(log)
	defer reader.Close()

	_, _, err = reader.Read(ctx, p1, p1, time.Second)
	assert.Error(t, err)

	entries, ok, err := reader.Read(ctx, p2, p2, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, p2, entries[0].Position)
	assert.Equal(t, []byte("bb"), entries[0].Bytes)
}

// TestElectionRaceLatestElectedWriterAppends is based on spec.md §8
// scenario 3, simplified to a deterministic sequential race: two Writers
// constructed against the same quorum=2 three-node log both win election in
// turn. The reference Coordinator does not fence a writer whose election has
// been superseded, so this checks only that the most recently elected writer
// can append.
func TestElectionRaceLatestElectedWriterAppends(t *testing.T) {
	nodeB := replica.NewFakeReplica("node-b")
	nodeC := replica.NewFakeReplica("node-c")
	log := newTestLog(t, 2, map[string]replica.Mutator{"node-b": nodeB, "node-c": nodeC})

	ctx := context.Background()
	writer1 := NewWriter(ctx, log, time.Second, 3)
	defer writer1.Close()
	writer2 := NewWriter(ctx, log, time.Second, 3)
	defer writer2.Close()

	_, won1, err1 := writer1.Elect(ctx, time.Second)
	require.NoError(t, err1)
	require.True(t, won1)

	_, won2, err2 := writer2.Elect(ctx, time.Second)
	require.NoError(t, err2)
	require.True(t, won2)

	// writer2 elected most recently and owns the current term's sequencing;
	// writer1 can still append locally (this reference Coordinator does not
	// implement fencing against a stale term), but a fresh Elect is always
	// required before either writer may mutate again after any failure.
	_, ok, err := writer2.Append(ctx, []byte("from writer2"), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestNewFailsWhenReplicaCannotOpen covers the constructor's failure path
// next to spec.md §8 scenario 4: the façade's public constructor cannot
// inject a replica that opens successfully but later fails Ending(), so
// recovery failure itself is not exercised here.
func TestNewFailsWhenReplicaCannotOpen(t *testing.T) {
	// A replica path inside a directory that does not exist makes bbolt's
	// Open fail inside New itself, which this façade reports as a
	// constructor failure rather than a recovery failure.
	_, err := New(context.Background(), Config{
		Self:        "node-a",
		Quorum:      1,
		ReplicaPath: filepath.Join(t.TempDir(), "missing-dir", "replica.db"),
	})
	assert.Error(t, err)
}

// TestCloseReturnsAfterSessionCallReleasesReplica is based on spec.md §8
// scenario 5: once a Reader call has finished and released its replica
// reference, Close returns. That Close blocks while a reference is still
// held is checked by internal/logio/manager's
// TestCloseBlocksUntilReplicaReferenceReleased.
func TestCloseReturnsAfterSessionCallReleasesReplica(t *testing.T) {
	log, err := New(context.Background(), Config{
		Self:        "node-a",
		Quorum:      1,
		ReplicaPath: filepath.Join(t.TempDir(), "replica.db"),
	})
	require.NoError(t, err)

	reader := NewReader(log)
	defer reader.Close()

	_, ok, err := reader.Beginning(context.Background(), time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, log.Close())
}

// TestReadBoundaryOnLearnedSingleAppend matches spec.md §8's boundary
// behavior: read(x, x) on a learned APPEND yields exactly one entry.
func TestReadBoundaryOnLearnedSingleAppend(t *testing.T) {
	log := newTestLog(t, 1, nil)
	ctx := context.Background()

	writer := NewWriter(ctx, log, time.Second, 3)
	defer writer.Close()

	_, won, err := writer.Elect(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, won)

	p1, ok, err := writer.Append(ctx, []byte("solo"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	reader := NewReader(log)
	defer reader.Close()

	entries, ok, err := reader.Read(ctx, p1, p1, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte("solo"), entries[0].Bytes)
}

// TestPositionIsOpaque covers the Position-opacity design note: the public
// Position type offers no constructor and no way to read back its integer
// value, only comparison and string formatting.
func TestPositionIsOpaque(t *testing.T) {
	log := newTestLog(t, 1, nil)
	ctx := context.Background()

	writer := NewWriter(ctx, log, time.Second, 3)
	defer writer.Close()

	_, won, err := writer.Elect(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, won)

	p1, _, err := writer.Append(ctx, []byte("a"), time.Second)
	require.NoError(t, err)
	p2, _, err := writer.Append(ctx, []byte("bb"), time.Second)
	require.NoError(t, err)

	assert.True(t, p2.After(p1))
	assert.False(t, p1.Equal(p2))
	assert.NotEmpty(t, p1.String())
}
