// Package metrics collects performance counters for the replicated-log
// façade, generalizing the teacher's Raft MetricsCollector
// (internal/raft/metrics) from AppendEntries/RequestVote/heartbeat counts to
// the façade's own operations: recovery, election, append, truncate, and
// membership churn.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the interface the Log Manager, Coordinator, and membership
// renewer depend on. It mirrors the shape of the teacher's
// raft.MetricsCollector interface (internal/raft/server/types.go).
type Collector interface {
	RecordRecoveryAttempt()
	RecordRecoverySuccess(duration time.Duration)
	RecordRecoveryFailure()
	RecordElectionAttempt()
	RecordElectionWon(duration time.Duration)
	RecordElectionLost()
	RecordAppend(latency time.Duration)
	RecordTruncate(latency time.Duration)
	RecordReadLatency(latency time.Duration)
	RecordMembershipRejoin()
	RecordMembershipFatal()
}

// Metrics is the default in-process implementation of Collector.
type Metrics struct {
	recoveryAttempts atomic.Uint64
	recoverySuccess  atomic.Uint64
	recoveryFailures atomic.Uint64

	electionAttempts atomic.Uint64
	electionsWon     atomic.Uint64
	electionsLost    atomic.Uint64

	appendsCommitted   atomic.Uint64
	truncatesCommitted atomic.Uint64

	membershipRejoins atomic.Uint64
	membershipFatal   atomic.Uint64

	mu              sync.Mutex
	electionLatency []time.Duration
	appendLatency   []time.Duration
	truncateLatency []time.Duration
	readLatency     []time.Duration
	recoveryLatency []time.Duration
}

// New creates a new Metrics collector.
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordRecoveryAttempt() { m.recoveryAttempts.Add(1) }

func (m *Metrics) RecordRecoverySuccess(duration time.Duration) {
	m.recoverySuccess.Add(1)
	m.mu.Lock()
	m.recoveryLatency = append(m.recoveryLatency, duration)
	m.mu.Unlock()
}

func (m *Metrics) RecordRecoveryFailure() { m.recoveryFailures.Add(1) }

func (m *Metrics) RecordElectionAttempt() { m.electionAttempts.Add(1) }

func (m *Metrics) RecordElectionWon(duration time.Duration) {
	m.electionsWon.Add(1)
	m.mu.Lock()
	m.electionLatency = append(m.electionLatency, duration)
	m.mu.Unlock()
}

func (m *Metrics) RecordElectionLost() { m.electionsLost.Add(1) }

func (m *Metrics) RecordAppend(latency time.Duration) {
	m.appendsCommitted.Add(1)
	m.mu.Lock()
	m.appendLatency = append(m.appendLatency, latency)
	m.mu.Unlock()
}

func (m *Metrics) RecordTruncate(latency time.Duration) {
	m.truncatesCommitted.Add(1)
	m.mu.Lock()
	m.truncateLatency = append(m.truncateLatency, latency)
	m.mu.Unlock()
}

func (m *Metrics) RecordReadLatency(latency time.Duration) {
	m.mu.Lock()
	m.readLatency = append(m.readLatency, latency)
	m.mu.Unlock()
}

func (m *Metrics) RecordMembershipRejoin() { m.membershipRejoins.Add(1) }

func (m *Metrics) RecordMembershipFatal() { m.membershipFatal.Add(1) }

// Snapshot is a point-in-time view of the counters, useful for tests and
// diagnostics endpoints.
type Snapshot struct {
	RecoveryAttempts   uint64
	RecoverySuccess    uint64
	RecoveryFailures   uint64
	ElectionAttempts   uint64
	ElectionsWon       uint64
	ElectionsLost      uint64
	AppendsCommitted   uint64
	TruncatesCommitted uint64
	MembershipRejoins  uint64
	MembershipFatal    uint64
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RecoveryAttempts:   m.recoveryAttempts.Load(),
		RecoverySuccess:    m.recoverySuccess.Load(),
		RecoveryFailures:   m.recoveryFailures.Load(),
		ElectionAttempts:   m.electionAttempts.Load(),
		ElectionsWon:       m.electionsWon.Load(),
		ElectionsLost:      m.electionsLost.Load(),
		AppendsCommitted:   m.appendsCommitted.Load(),
		TruncatesCommitted: m.truncatesCommitted.Load(),
		MembershipRejoins:  m.membershipRejoins.Load(),
		MembershipFatal:    m.membershipFatal.Load(),
	}
}

// NoopCollector discards every recording. It is the default for callers
// that do not want metrics wired in, following the defaultLogger pattern
// from internal/tob/types.go.
type NoopCollector struct{}

func (NoopCollector) RecordRecoveryAttempt()               {}
func (NoopCollector) RecordRecoverySuccess(_ time.Duration) {}
func (NoopCollector) RecordRecoveryFailure()               {}
func (NoopCollector) RecordElectionAttempt()               {}
func (NoopCollector) RecordElectionWon(_ time.Duration)    {}
func (NoopCollector) RecordElectionLost()                  {}
func (NoopCollector) RecordAppend(_ time.Duration)         {}
func (NoopCollector) RecordTruncate(_ time.Duration)       {}
func (NoopCollector) RecordReadLatency(_ time.Duration)    {}
func (NoopCollector) RecordMembershipRejoin()              {}
func (NoopCollector) RecordMembershipFatal()               {}
