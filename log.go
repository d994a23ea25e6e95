// Package distlog is the public façade over one replicated append-only log,
// matching spec.md §6's external interface: Log::new/Log::new_dynamic at the
// top, Reader and Writer sessions beneath it. It wires together the
// internal/logio packages — replica, network, group, coordinator, recovery,
// manager, session. Sessions and positions are wrapped in this package's own
// types; Config fields still take the replica, group, logging and metrics
// types directly.
package distlog

import (
	"context"
	"fmt"
	"time"

	"distlog/internal/logio/group"
	"distlog/internal/logio/logging"
	"distlog/internal/logio/manager"
	"distlog/internal/logio/metrics"
	"distlog/internal/logio/replica"
)

// Config constructs a Log over a statically-known peer set, mirroring
// Log::new(quorum, path, peers).
type Config struct {
	// Self is this replica's own endpoint.
	Self string
	// Quorum is the number of acceptances (including this replica) an
	// election or a replicated action needs.
	Quorum int
	// ReplicaPath is the filesystem path the local replica persists under.
	ReplicaPath string
	// Peers maps every other replica's endpoint to its dial address.
	Peers map[string]string
	// PeerReplicas gives the reference Coordinator in-process handles onto
	// peer replicas, for a single-process deployment or test harness
	// simulating a cluster. Real multi-process deployments would reach
	// peers over the wire instead, but that transport is out of scope here.
	PeerReplicas map[string]replica.Mutator
	Logger       logging.Logger
	Metrics      metrics.Collector
}

// DynamicConfig constructs a Log whose peer set is discovered through a
// coordination service, mirroring Log::new_dynamic(quorum, path, servers,
// timeout, znode, auth?). The coordination-service wire client itself is out
// of scope (spec.md §1); when GroupClient is nil, NewDynamic substitutes the
// in-process reference implementation (group.InMemoryGroup) and Servers,
// ZNode, and Auth are accepted only to preserve the constructor's shape —
// supply GroupClient directly to plug in a real coordination-service client.
type DynamicConfig struct {
	Self         string
	Quorum       int
	ReplicaPath  string
	Servers      []string
	Timeout      time.Duration
	ZNode        string
	Auth         string
	GroupClient  group.Client
	PeerReplicas map[string]replica.Mutator
	Logger       logging.Logger
	Metrics      metrics.Collector
}

// Log is the top-level handle on one replicated append-only log instance.
// Reader and Writer sessions are constructed against it with NewReader and
// NewWriter.
type Log struct {
	mgr     *manager.Manager
	metrics metrics.Collector
}

// New constructs a Log over a static peer set.
func New(ctx context.Context, cfg Config) (*Log, error) {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopCollector{}
	}
	mgr, err := manager.New(ctx, manager.Config{
		Self:         cfg.Self,
		ReplicaPath:  cfg.ReplicaPath,
		Quorum:       cfg.Quorum,
		StaticPeers:  cfg.Peers,
		PeerReplicas: cfg.PeerReplicas,
		Logger:       cfg.Logger,
		Metrics:      cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("distlog: %w", err)
	}
	return &Log{mgr: mgr, metrics: cfg.Metrics}, nil
}

// NewDynamic constructs a Log whose peer set is discovered through a group
// client rather than configured statically.
func NewDynamic(ctx context.Context, cfg DynamicConfig) (*Log, error) {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopCollector{}
	}
	client := cfg.GroupClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = group.NewInMemoryGroup(timeout)
	}

	mgr, err := manager.New(ctx, manager.Config{
		Self:         cfg.Self,
		ReplicaPath:  cfg.ReplicaPath,
		Quorum:       cfg.Quorum,
		GroupClient:  client,
		PeerReplicas: cfg.PeerReplicas,
		Logger:       cfg.Logger,
		Metrics:      cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("distlog: %w", err)
	}
	return &Log{mgr: mgr, metrics: cfg.Metrics}, nil
}

// Close tears the log down: cancels pending recovery, fails every
// outstanding session call, and blocks until no session holds a reference
// to the replica or network before releasing both.
func (l *Log) Close() error {
	return l.mgr.Close()
}
