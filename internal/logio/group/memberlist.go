package group

import "time"

// entry is the internal bookkeeping record for one advertised endpoint,
// generalizing the incarnation/status fields of swim.Member
// (internal/swim/types.go) to the group client's simpler alive-or-expired
// model: there is no Suspect/probe cycle here, only a session deadline.
type entry struct {
	membership Membership
	expiresAt  time.Time
}

// memberTable tracks live entries keyed by endpoint, adapting the
// incarnation-overriding rule from swim.MemberList.AddMember
// (internal/swim/membership.go): a higher incarnation always replaces a
// lower one for the same endpoint.
type memberTable struct {
	entries map[string]entry
}

func newMemberTable() *memberTable {
	return &memberTable{entries: make(map[string]entry)}
}

// put registers or refreshes endpoint's membership, returning true if the
// table actually changed (new endpoint, new incarnation, or refreshed
// deadline past what would otherwise have expired).
func (t *memberTable) put(endpoint string, incarnation uint64, deadline time.Time) bool {
	existing, ok := t.entries[endpoint]
	if ok && incarnation <= existing.membership.Incarnation && !existing.expiresAt.Before(deadline) {
		return false
	}
	t.entries[endpoint] = entry{
		membership: Membership{Endpoint: endpoint, Incarnation: incarnation},
		expiresAt:  deadline,
	}
	return true
}

// expire drops every entry whose deadline is at or before now, returning
// true if anything was removed.
func (t *memberTable) expire(now time.Time) bool {
	changed := false
	for endpoint, e := range t.entries {
		if !e.expiresAt.After(now) {
			delete(t.entries, endpoint)
			changed = true
		}
	}
	return changed
}

func (t *memberTable) snapshot() []Membership {
	out := make([]Membership, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.membership)
	}
	return out
}

func (t *memberTable) nextIncarnation(endpoint string) uint64 {
	if e, ok := t.entries[endpoint]; ok {
		return e.membership.Incarnation + 1
	}
	return 1
}
