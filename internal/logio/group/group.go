// Package group models the coordination-service (ZooKeeper-like) group
// client consumed by the Log Manager's dynamic constructor and membership
// renewer (spec.md §4.1, §6). It adapts the SWIM membership list
// (internal/swim/membership.go) — incarnation numbers and status-priority
// overriding — into the simpler ephemeral join/watch model the façade
// needs: a member is present exactly as long as its session has not timed
// out, and watch() blocks until the observed membership set changes.
package group

import (
	"context"
	"fmt"
)

// Membership represents one advertised member of the group: a replica
// endpoint and the incarnation under which it joined. A replica may hold at
// most one live Membership at a time; joining again replaces it with a new
// incarnation.
type Membership struct {
	Endpoint    string
	Incarnation uint64
}

// Version identifies a point in the group's membership history, returned by
// Watch so the next call can ask "has anything changed since here".
type Version uint64

// Client is the external coordination-service collaborator from spec.md
// §6: "Group client (coordination service): join(endpoint) →
// Future<Membership>, watch(lastSeen?) → Future<Set<Membership>>."
type Client interface {
	// Join advertises endpoint as a live member, returning a Membership
	// token identifying this session. Calling Join again for the same
	// endpoint replaces any prior token with a new incarnation.
	Join(ctx context.Context, endpoint string) (Membership, error)

	// Watch blocks until the observed membership set differs from the one
	// as of since (zero to get the current set immediately), then returns
	// the new set and the Version to pass on the next call.
	Watch(ctx context.Context, since Version) ([]Membership, Version, error)

	// Close releases any resources (background session-keepalive
	// goroutines) held by the client.
	Close() error
}

// ErrClosed is returned by Join/Watch after Close.
var ErrClosed = fmt.Errorf("group client is closed")
