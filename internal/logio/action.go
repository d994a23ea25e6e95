package logio

// ActionType enumerates the kinds of replica-level records that can occupy a
// log Position. Only Append actions surface as Entries to clients.
type ActionType int

const (
	// Nop occupies a position without carrying application data. The
	// reference Coordinator never writes one; readers skip it like any other
	// non-Append action.
	Nop ActionType = iota
	// Append carries application bytes.
	Append
	// Truncate marks that every position strictly below its TruncateBefore
	// position was discarded.
	Truncate
)

func (t ActionType) String() string {
	switch t {
	case Append:
		return "APPEND"
	case Truncate:
		return "TRUNCATE"
	case Nop:
		return "NOP"
	default:
		return "UNKNOWN"
	}
}

// Action is a replica-level record at a Position. Only Actions for which
// Performed && Learned are visible to clients; of those, only Append Actions
// surface as Entries.
type Action struct {
	Position Position
	Type     ActionType
	// AppendBytes is set only when Type == Append.
	AppendBytes []byte
	// TruncateBefore is set only when Type == Truncate: every position
	// strictly below it is discarded. The Truncate action's own Position is
	// a freshly assigned slot, the same as an Append's, not TruncateBefore
	// itself.
	TruncateBefore Position
	// Performed reports whether this replica itself executed the action
	// (as opposed to merely having heard a proposal for it).
	Performed bool
	// Learned reports whether consensus on this action's content is
	// decided — i.e. it is safe to return to clients.
	Learned bool
}

// Ready reports whether the action is both performed and learned, the
// precondition for returning it to a Reader Session.
func (a Action) Ready() bool {
	return a.Performed && a.Learned
}

// Entry converts an Append action into a client-visible Entry. Callers must
// check Type == Append first.
func (a Action) Entry() Entry {
	return Entry{Position: a.Position, Bytes: a.AppendBytes}
}
