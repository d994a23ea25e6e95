package distlog

import (
	"context"
	"time"

	"distlog/internal/logio/metrics"
	"distlog/internal/logio/session"
)

// Writer is a Writer Session against a Log, mirroring
// Log::Writer::new(log, timeout, retries). Construction runs the bounded
// election retry loop of spec.md §4.4 before returning.
type Writer struct {
	sess *session.Writer
}

// NewWriter constructs a Writer Session against log and attempts election up
// to retries times, waiting up to timeout for each attempt.
func NewWriter(ctx context.Context, log *Log, timeout time.Duration, retries int) *Writer {
	collector := log.metrics
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return &Writer{sess: session.NewWriter(ctx, log.mgr, timeout, retries, collector)}
}

// Elect attempts to become leader for this log. won is true only on a won
// election; won == false with a nil err covers both a lost election and a
// timeout, both retryable without any special handling.
func (w *Writer) Elect(ctx context.Context, timeout time.Duration) (pos Position, won bool, err error) {
	p, won, err := w.sess.Elect(ctx, timeout)
	return Position{p}, won, err
}

// Append delegates to the owned Coordinator, failing with "no election has
// been performed" if none exists or with the sticky error from a prior
// failed Coordinator call.
func (w *Writer) Append(ctx context.Context, bytes []byte, timeout time.Duration) (Position, bool, error) {
	p, ok, err := w.sess.Append(ctx, bytes, timeout)
	return Position{p}, ok, err
}

// Truncate delegates to the owned Coordinator under the same preconditions
// as Append.
func (w *Writer) Truncate(ctx context.Context, to Position, timeout time.Duration) (Position, bool, error) {
	p, ok, err := w.sess.Truncate(ctx, to.inner, timeout)
	return Position{p}, ok, err
}

// Close tears the session down, destroying the owned Coordinator first.
func (w *Writer) Close() {
	w.sess.Close()
}
