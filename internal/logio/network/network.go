// Package network models the peer-endpoint abstraction spec.md §3 requires
// of the Log Manager: a handle over "the set of peer replicas a Coordinator
// may contact", generalizing the teacher's Raft Transport
// (internal/raft/server/transport.go) from a fixed ServerID-keyed
// connection pool to a set that can grow and shrink at runtime as
// memberships are observed.
//
// Network itself never speaks the inter-replica wire protocol — that codec
// is out of scope here, the same way the teacher's Transport defers the
// actual RPC framing to proto.RaftServiceClient. What Network owns is
// connection lifecycle: which endpoints are known, and a pooled
// grpc.ClientConn per endpoint for whatever reference Coordinator code
// dials against them.
package network

import (
	"fmt"
	"log"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Network is the abstraction the Log Manager holds over the peer set.
// Static networks never change membership; dynamic networks track it via a
// group.Client watch loop.
type Network interface {
	// Peers returns the currently known peer endpoints, excluding Self.
	Peers() []string

	// Self returns this replica's own advertised endpoint.
	Self() string

	// Dial returns the pooled connection to peer, the one created when the
	// peer was added. The peer must currently be a member of Peers(), or
	// ErrUnknownPeer is returned.
	Dial(peer string) (*grpc.ClientConn, error)

	// Close tears down every pooled connection and stops any background
	// watch loop.
	Close() error
}

// ErrUnknownPeer is returned by Dial for an endpoint Network does not
// currently consider a member of the network.
var ErrUnknownPeer = fmt.Errorf("network: unknown peer endpoint")

// pool is the shared gRPC connection-pool logic behind both Static and
// Dynamic networks, adapted from Transport.clientsConnPool.
type pool struct {
	mu    sync.RWMutex
	peers map[string]*grpc.ClientConn
	self  string
}

func newPool(self string) *pool {
	return &pool{peers: make(map[string]*grpc.ClientConn), self: self}
}

func (p *pool) peerList() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.peers))
	for endpoint := range p.peers {
		out = append(out, endpoint)
	}
	return out
}

func (p *pool) dial(peer string) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, ok := p.peers[peer]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, peer)
	}
	return conn, nil
}

// addPeer registers peer and opens a connection to it via the distlog
// resolver scheme, mirroring Transport.AddPeer. If peer is already present,
// only its dial address is updated.
func (p *pool) addPeer(peer, addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.peers[peer]; ok {
		registerPeer(peer, addr)
		return nil
	}

	registerPeer(peer, addr)

	target := fmt.Sprintf("%s:///%s", distlogScheme, peer)
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("network: dial peer %s: %w", peer, err)
	}

	p.peers[peer] = conn
	return nil
}

func (p *pool) removePeer(peer string) {
	p.mu.Lock()
	conn, ok := p.peers[peer]
	delete(p.peers, peer)
	p.mu.Unlock()

	if ok {
		if err := conn.Close(); err != nil {
			log.Printf("[NETWORK] failed to close connection to removed peer %s: %v", peer, err)
		}
	}
	unregisterPeer(peer)
}

func (p *pool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for endpoint, conn := range p.peers {
		if err := conn.Close(); err != nil {
			log.Printf("[NETWORK] failed to close connection to %s: %v", endpoint, err)
		}
		unregisterPeer(endpoint)
	}
	p.peers = make(map[string]*grpc.ClientConn)
}

// StaticNetwork is a Network over a fixed peer set supplied at
// construction, grounding spec.md's "Log::new" constructor that takes an
// explicit set of peer PIDs rather than discovering them via a group
// client.
type StaticNetwork struct {
	pool *pool
}

// NewStaticNetwork dials every peer in addrs (endpoint -> dial address,
// excluding self) up front, the way Transport.initClients dials every
// configured ServerID.
func NewStaticNetwork(self string, addrs map[string]string) (*StaticNetwork, error) {
	p := newPool(self)
	for peer, addr := range addrs {
		if peer == self {
			continue
		}
		if err := p.addPeer(peer, addr); err != nil {
			p.closeAll()
			return nil, err
		}
	}
	return &StaticNetwork{pool: p}, nil
}

func (n *StaticNetwork) Peers() []string                    { return n.pool.peerList() }
func (n *StaticNetwork) Self() string                       { return n.pool.self }
func (n *StaticNetwork) Dial(peer string) (*grpc.ClientConn, error) { return n.pool.dial(peer) }
func (n *StaticNetwork) Close() error                        { n.pool.closeAll(); return nil }
