package recovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distlog/internal/logio"
)

func TestGateRunSuccessResolvesWaiters(t *testing.T) {
	g := New()

	var wg sync.WaitGroup
	results := make([]logio.Position, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			pos, err := g.Wait(context.Background())
			require.NoError(t, err)
			results[i] = pos
		}()
	}

	// give every waiter a chance to register before the gate resolves, the
	// same ordering spec.md §9 calls out to avoid a lost wakeup.
	time.Sleep(20 * time.Millisecond)
	g.Run(context.Background(), func(context.Context) (logio.Position, error) {
		return logio.NewPosition(7), nil
	})

	wg.Wait()
	for _, pos := range results {
		assert.Equal(t, logio.NewPosition(7), pos)
	}
	assert.Equal(t, Succeeded, g.State())
}

func TestGateRunFailureResolvesWaitersWithError(t *testing.T) {
	g := New()
	boom := fmt.Errorf("boom")

	g.Run(context.Background(), func(context.Context) (logio.Position, error) {
		return logio.Position{}, boom
	})

	_, err := g.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, g.State())
}

func TestGateCancelResolvesWaitersAsDiscarded(t *testing.T) {
	g := New()

	done := make(chan error, 1)
	go func() {
		_, err := g.Wait(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	g.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDiscarded)
	case <-time.After(time.Second):
		t.Fatal("waiter did not observe cancellation")
	}
	assert.Equal(t, Cancelled, g.State())
}

func TestGateCancelAfterSuccessIsNoop(t *testing.T) {
	g := New()
	g.Run(context.Background(), func(context.Context) (logio.Position, error) {
		return logio.NewPosition(1), nil
	})

	g.Cancel()
	assert.Equal(t, Succeeded, g.State())

	pos, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, logio.NewPosition(1), pos)
}

func TestGateWaitRespectsContextDeadline(t *testing.T) {
	g := New()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Pending, g.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Pending", Pending.String())
	assert.Equal(t, "Succeeded", Succeeded.String())
	assert.Equal(t, "Failed", Failed.String())
	assert.Equal(t, "Cancelled", Cancelled.String())
	assert.Equal(t, "Unknown", State(99).String())
}
