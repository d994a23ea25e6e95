package replica

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"distlog/internal/logio"
)

var (
	actionsBucket  = []byte("actions")
	metadataBucket = []byte("metadata")

	beginningKey = []byte("beginning")
	endingKey    = []byte("ending")
)

// gobAction is the on-disk encoding of logio.Action. The teacher's
// bbolt_storage.go marshals with google.golang.org/protobuf because it
// already has protoc-generated types for LogEntry; this package has none
// (the wire codec for inter-replica messages is explicitly out of scope per
// spec.md §1, and hand-rolling protoc-gen-go reflection metadata without
// running the compiler is not worth the risk — see DESIGN.md). gob is
// stdlib but used purely for local, single-process persistence, never on
// the wire, which is a meaningfully different concern than the wire codec
// the spec excludes.
type gobAction struct {
	Position       uint64
	Type           int
	AppendBytes    []byte
	TruncateBefore uint64
	Performed      bool
	Learned        bool
}

func toGobAction(a logio.Action) gobAction {
	return gobAction{
		Position:       a.Position.Value(),
		Type:           int(a.Type),
		AppendBytes:    a.AppendBytes,
		TruncateBefore: a.TruncateBefore.Value(),
		Performed:      a.Performed,
		Learned:        a.Learned,
	}
}

func fromGobAction(g gobAction) logio.Action {
	return logio.Action{
		Position:       logio.NewPosition(g.Position),
		Type:           logio.ActionType(g.Type),
		AppendBytes:    g.AppendBytes,
		TruncateBefore: logio.NewPosition(g.TruncateBefore),
		Performed:      g.Performed,
		Learned:        g.Learned,
	}
}

// BboltReplica is the reference Replica/Mutator implementation, generalizing
// internal/raft/storage/bbolt_storage.go's two-bucket layout (there: "logs" +
// "metadata" for Raft LogEntry/currentTerm/votedFor; here: "actions" +
// "metadata" for Action/beginning/ending watermarks).
type BboltReplica struct {
	mu   sync.RWMutex
	conn *bbolt.DB
	pid  string
}

// Open opens (creating if necessary) a BboltReplica at path, identified by
// pid (its endpoint/process ID, per spec.md §6).
func Open(path, pid string) (*BboltReplica, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt replica db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(actionsBucket); err != nil {
			return fmt.Errorf("failed to create actions bucket: %w", err)
		}
		meta, err := tx.CreateBucketIfNotExists(metadataBucket)
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}
		if meta.Get(beginningKey) == nil {
			if err := meta.Put(beginningKey, uint64ToBytes(1)); err != nil {
				return err
			}
		}
		if meta.Get(endingKey) == nil {
			if err := meta.Put(endingKey, uint64ToBytes(1)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BboltReplica{conn: db, pid: pid}, nil
}

func (b *BboltReplica) PID() string { return b.pid }

func (b *BboltReplica) Beginning(_ context.Context) (logio.Position, error) {
	var value uint64
	err := b.conn.View(func(tx *bbolt.Tx) error {
		value = bytesToUint64(tx.Bucket(metadataBucket).Get(beginningKey))
		return nil
	})
	return logio.NewPosition(value), err
}

func (b *BboltReplica) Ending(_ context.Context) (logio.Position, error) {
	var value uint64
	err := b.conn.View(func(tx *bbolt.Tx) error {
		value = bytesToUint64(tx.Bucket(metadataBucket).Get(endingKey))
		return nil
	})
	return logio.NewPosition(value), err
}

func (b *BboltReplica) Read(_ context.Context, from, to logio.Position) ([]logio.Action, error) {
	if to.Before(from) {
		return nil, nil
	}

	var actions []logio.Action
	err := b.conn.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(actionsBucket)
		cursor := bucket.Cursor()

		start := uint64ToBytes(from.Value())
		for k, v := cursor.Seek(start); k != nil; k, v = cursor.Next() {
			pos := bytesToUint64(k)
			if pos > to.Value() {
				break
			}
			action, err := decodeAction(v)
			if err != nil {
				return err
			}
			actions = append(actions, action)
		}
		return nil
	})
	return actions, err
}

func (b *BboltReplica) Propose(_ context.Context, action logio.Action) error {
	return b.conn.Update(func(tx *bbolt.Tx) error {
		action.Performed = true
		data, err := encodeAction(action)
		if err != nil {
			return err
		}
		if err := tx.Bucket(actionsBucket).Put(uint64ToBytes(action.Position.Value()), data); err != nil {
			return err
		}

		meta := tx.Bucket(metadataBucket)
		ending := bytesToUint64(meta.Get(endingKey))
		if action.Position.Value() >= ending {
			return meta.Put(endingKey, uint64ToBytes(action.Position.Value()+1))
		}
		return nil
	})
}

func (b *BboltReplica) MarkLearned(_ context.Context, pos logio.Position) error {
	return b.conn.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(actionsBucket)
		key := uint64ToBytes(pos.Value())
		data := bucket.Get(key)
		if data == nil {
			return fmt.Errorf("no action proposed at %s", pos)
		}
		action, err := decodeAction(data)
		if err != nil {
			return err
		}
		action.Learned = true
		encoded, err := encodeAction(action)
		if err != nil {
			return err
		}
		return bucket.Put(key, encoded)
	})
}

func (b *BboltReplica) TruncateFrom(_ context.Context, truncateAction logio.Action) error {
	return b.conn.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(actionsBucket)
		cursor := bucket.Cursor()

		boundary := truncateAction.TruncateBefore.Value()
		for k, _ := cursor.First(); k != nil && bytesToUint64(k) < boundary; k, _ = cursor.Next() {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}

		truncateAction.Performed = true
		truncateAction.Learned = true
		data, err := encodeAction(truncateAction)
		if err != nil {
			return err
		}
		pos := truncateAction.Position.Value()
		if err := bucket.Put(uint64ToBytes(pos), data); err != nil {
			return err
		}

		meta := tx.Bucket(metadataBucket)
		if err := meta.Put(endingKey, uint64ToBytes(pos+1)); err != nil {
			return err
		}
		return meta.Put(beginningKey, uint64ToBytes(boundary))
	})
}

func (b *BboltReplica) Close() error {
	return b.conn.Close()
}

func encodeAction(a logio.Action) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toGobAction(a)); err != nil {
		return nil, fmt.Errorf("failed to encode action: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeAction(data []byte) (logio.Action, error) {
	var g gobAction
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return logio.Action{}, fmt.Errorf("failed to decode action: %w", err)
	}
	return fromGobAction(g), nil
}

func uint64ToBytes(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func bytesToUint64(b []byte) uint64 {
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
