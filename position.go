package distlog

import "distlog/internal/logio"

// Position is an opaque, monotonically increasing sequence number
// identifying a slot in the log. Callers compare Positions with Before,
// After, and Equal, but never construct one directly — every Position in
// hand came back from a Log operation.
type Position struct {
	inner logio.Position
}

// Before reports whether p sorts strictly before other.
func (p Position) Before(other Position) bool { return p.inner.Before(other.inner) }

// After reports whether p sorts strictly after other.
func (p Position) After(other Position) bool { return p.inner.After(other.inner) }

// Equal reports whether p and other denote the same position.
func (p Position) Equal(other Position) bool { return p.inner.Equal(other.inner) }

func (p Position) String() string { return p.inner.String() }
