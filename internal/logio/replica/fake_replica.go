package replica

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"distlog/internal/logio"
)

// FakeReplica is an in-memory Replica/Mutator for tests and for simulating
// remote peers inside the reference Coordinator, following the
// error-injection mock pattern from internal/raft/mocks/log_storage_mock.go.
type FakeReplica struct {
	mu sync.RWMutex

	pid       string
	actions   map[uint64]logio.Action
	beginning uint64
	ending    uint64

	BeginningError error
	EndingError    error
	ReadError      error
	ProposeError   error
}

// NewFakeReplica creates an empty fake replica. Positions start at 1, matching
// BboltReplica and the original Mesos log's convention.
func NewFakeReplica(pid string) *FakeReplica {
	return &FakeReplica{
		pid:       pid,
		actions:   make(map[uint64]logio.Action),
		beginning: 1,
		ending:    1,
	}
}

func (f *FakeReplica) PID() string { return f.pid }

func (f *FakeReplica) Beginning(_ context.Context) (logio.Position, error) {
	if f.BeginningError != nil {
		return logio.Position{}, f.BeginningError
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return logio.NewPosition(f.beginning), nil
}

func (f *FakeReplica) Ending(_ context.Context) (logio.Position, error) {
	if f.EndingError != nil {
		return logio.Position{}, f.EndingError
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return logio.NewPosition(f.ending), nil
}

func (f *FakeReplica) Read(_ context.Context, from, to logio.Position) ([]logio.Action, error) {
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if to.Before(from) {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var positions []uint64
	for p := range f.actions {
		if p >= from.Value() && p <= to.Value() {
			positions = append(positions, p)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	actions := make([]logio.Action, 0, len(positions))
	for _, p := range positions {
		actions = append(actions, f.actions[p])
	}
	return actions, nil
}

func (f *FakeReplica) Propose(_ context.Context, action logio.Action) error {
	if f.ProposeError != nil {
		return f.ProposeError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	action.Performed = true
	f.actions[action.Position.Value()] = action
	if action.Position.Value() >= f.ending {
		f.ending = action.Position.Value() + 1
	}
	return nil
}

func (f *FakeReplica) MarkLearned(_ context.Context, pos logio.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	action, ok := f.actions[pos.Value()]
	if !ok {
		return fmt.Errorf("no action proposed at %s", pos)
	}
	action.Learned = true
	f.actions[pos.Value()] = action
	return nil
}

func (f *FakeReplica) TruncateFrom(_ context.Context, truncateAction logio.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	boundary := truncateAction.TruncateBefore.Value()
	for p := range f.actions {
		if p < boundary {
			delete(f.actions, p)
		}
	}

	truncateAction.Performed = true
	truncateAction.Learned = true
	pos := truncateAction.Position.Value()
	f.actions[pos] = truncateAction
	if pos >= f.ending {
		f.ending = pos + 1
	}
	f.beginning = boundary
	return nil
}

func (f *FakeReplica) Close() error { return nil }
