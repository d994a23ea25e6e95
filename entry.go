package distlog

import "distlog/internal/logio"

// Entry is a client-visible append record: a Position paired with the bytes
// that were appended there.
type Entry struct {
	Position Position
	Bytes    []byte
}

func entryFrom(e logio.Entry) Entry {
	return Entry{Position: Position{e.Position}, Bytes: e.Bytes}
}
