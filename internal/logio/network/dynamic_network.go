package network

import (
	"context"
	"log"
	"sync"

	"google.golang.org/grpc"

	"distlog/internal/logio/group"
)

// DynamicNetwork is a Network whose peer set tracks a group.Client's
// observed membership, grounding spec.md's "Log::new_dynamic" constructor.
// Each observed Membership's Endpoint doubles as its own dial address,
// consistent with the in-process reference deployment this module targets.
type DynamicNetwork struct {
	pool   *pool
	client group.Client

	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	token group.Membership
}

// NewDynamicNetwork joins client under self, then starts a background loop
// that keeps the peer pool in sync with every subsequent Watch observation.
func NewDynamicNetwork(ctx context.Context, self string, client group.Client) (*DynamicNetwork, error) {
	token, err := client.Join(ctx, self)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	n := &DynamicNetwork{
		pool:   newPool(self),
		client: client,
		cancel: cancel,
		done:   make(chan struct{}),
		token:  token,
	}

	go n.watchLoop(watchCtx)
	return n, nil
}

func (n *DynamicNetwork) watchLoop(ctx context.Context) {
	defer close(n.done)

	var since group.Version
	for {
		members, version, err := n.client.Watch(ctx, since)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[NETWORK] membership watch failed: %v", err)
			return
		}
		since = version
		n.reconcile(members)
	}
}

// reconcile adds every observed member not yet in the pool (other than
// self) and removes every pooled peer no longer observed.
func (n *DynamicNetwork) reconcile(members []group.Membership) {
	observed := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.Endpoint == n.pool.self {
			continue
		}
		observed[m.Endpoint] = struct{}{}
		if err := n.pool.addPeer(m.Endpoint, m.Endpoint); err != nil {
			log.Printf("[NETWORK] failed to add observed peer %s: %v", m.Endpoint, err)
		}
	}

	for _, peer := range n.pool.peerList() {
		if _, ok := observed[peer]; !ok {
			n.pool.removePeer(peer)
		}
	}
}

func (n *DynamicNetwork) Peers() []string                    { return n.pool.peerList() }
func (n *DynamicNetwork) Self() string                        { return n.pool.self }
func (n *DynamicNetwork) Dial(peer string) (*grpc.ClientConn, error) { return n.pool.dial(peer) }

func (n *DynamicNetwork) Close() error {
	n.cancel()
	<-n.done
	n.pool.closeAll()
	return n.client.Close()
}

// Token returns the Membership this network last joined under, the value
// the Log Manager's membership renewer compares against to decide whether
// a rejoin is needed.
func (n *DynamicNetwork) Token() group.Membership {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token
}
