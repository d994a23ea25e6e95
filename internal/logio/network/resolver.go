package network

import (
	"fmt"
	"sync"

	"google.golang.org/grpc/resolver"
)

// distlogScheme is this package's gRPC custom resolver scheme, generalizing
// the teacher's "raft" scheme (internal/raft/server/grpc_raft_resolver.go)
// from ServerID-keyed peers to replica-endpoint-keyed peers.
const distlogScheme = "distlog"

type idRegistry struct {
	mu       sync.RWMutex
	records  map[string]string
	watchers map[string]map[*distlogResolver]struct{}
}

var globalRegistry = &idRegistry{
	records:  make(map[string]string),
	watchers: make(map[string]map[*distlogResolver]struct{}),
}

// registerPeer sets/updates the dial address for an endpoint and notifies
// any active resolvers watching it.
func registerPeer(endpoint, addr string) {
	globalRegistry.mu.Lock()
	globalRegistry.records[endpoint] = addr
	watchers := globalRegistry.watchers[endpoint]
	globalRegistry.mu.Unlock()

	for w := range watchers {
		w.pushCurrent()
	}
}

func unregisterPeer(endpoint string) {
	globalRegistry.mu.Lock()
	delete(globalRegistry.records, endpoint)
	globalRegistry.mu.Unlock()
}

type distlogBuilder struct{}

func (distlogBuilder) Scheme() string { return distlogScheme }

func (distlogBuilder) Build(target resolver.Target, cc resolver.ClientConn, _ resolver.BuildOptions) (resolver.Resolver, error) {
	endpoint := target.Endpoint()
	if endpoint == "" {
		if p := target.URL.Path; len(p) > 0 {
			if p[0] == '/' {
				p = p[1:]
			}
			endpoint = p
		}
	}
	if endpoint == "" {
		return nil, fmt.Errorf("distlog resolver: empty target endpoint: %+v", target)
	}

	r := &distlogResolver{endpoint: endpoint, cc: cc}
	r.subscribe()
	r.pushCurrent()
	return r, nil
}

type distlogResolver struct {
	endpoint string
	cc       resolver.ClientConn
}

func (r *distlogResolver) ResolveNow(resolver.ResolveNowOptions) { r.pushCurrent() }

func (r *distlogResolver) Close() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	if set, ok := globalRegistry.watchers[r.endpoint]; ok {
		delete(set, r)
		if len(set) == 0 {
			delete(globalRegistry.watchers, r.endpoint)
		}
	}
}

func (r *distlogResolver) subscribe() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	set := globalRegistry.watchers[r.endpoint]
	if set == nil {
		set = make(map[*distlogResolver]struct{})
		globalRegistry.watchers[r.endpoint] = set
	}
	set[r] = struct{}{}
}

func (r *distlogResolver) pushCurrent() {
	globalRegistry.mu.RLock()
	addr, ok := globalRegistry.records[r.endpoint]
	globalRegistry.mu.RUnlock()

	if !ok || addr == "" {
		_ = r.cc.UpdateState(resolver.State{Addresses: nil})
		return
	}

	_ = r.cc.UpdateState(resolver.State{
		Addresses: []resolver.Address{{Addr: addr}},
	})
}

func init() {
	resolver.Register(distlogBuilder{})
}
