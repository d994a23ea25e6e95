package distlog

import (
	"context"
	"time"

	"distlog/internal/logio/session"
)

// Reader is a Reader Session against a Log, mirroring Log::Reader::new(log).
type Reader struct {
	sess *session.Reader
}

// NewReader constructs a Reader Session against log.
func NewReader(log *Log) *Reader {
	return &Reader{sess: session.NewReader(log.mgr)}
}

// Beginning returns the earliest readable position. ok is false with a nil
// err when timeout elapses before a result is available.
func (r *Reader) Beginning(ctx context.Context, timeout time.Duration) (Position, bool, error) {
	pos, ok, err := r.sess.Beginning(ctx, timeout)
	return Position{pos}, ok, err
}

// Ending returns one past the last learned position.
func (r *Reader) Ending(ctx context.Context, timeout time.Duration) (Position, bool, error) {
	pos, ok, err := r.sess.Ending(ctx, timeout)
	return Position{pos}, ok, err
}

// Read returns every appended entry with a position in [from, to], in
// ascending order.
func (r *Reader) Read(ctx context.Context, from, to Position, timeout time.Duration) ([]Entry, bool, error) {
	entries, ok, err := r.sess.Read(ctx, from.inner, to.inner, timeout)
	if entries == nil {
		return nil, ok, err
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = entryFrom(e)
	}
	return out, ok, err
}

// Close tears the session down. Outstanding internal awaits fail with
// "log reader is being deleted".
func (r *Reader) Close() {
	r.sess.Close()
}
