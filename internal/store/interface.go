package store

import (
	"context"
	"errors"
	"time"
)

// ErrPersistence marks backend failures. The processor treats these as
// non-fatal: a cycle continues on the in-memory segment.
var ErrPersistence = errors.New("persistence failure")

// Segment is one transcribed slice of a channel's stream. Immutable once
// created; segments are only ever appended or pruned.
type Segment struct {
	Channel string    `json:"channel"`
	Text    string    `json:"text"`
	Time    time.Time `json:"timestamp"`
}

// SummaryRecord is a channel's latest published summary, persisted so a
// restart can serve the previous summary immediately.
type SummaryRecord struct {
	Channel string    `json:"channel"`
	Summary string    `json:"summary"`
	Updated time.Time `json:"updated"`
}

// Store is the append-only, time-windowed transcript history. Two
// implementations exist: redis-backed (durable) and in-memory (history is
// lost on restart). Callers never branch on which one they hold.
type Store interface {
	// Append inserts a segment. Ordering by timestamp is the store's
	// responsibility; re-appending an identical segment is a no-op.
	Append(ctx context.Context, seg Segment) error

	// Window returns the channel's segments with timestamps in
	// [now-d, now], oldest first. The result is a copy; concurrent
	// appends and prunes never tear it.
	Window(ctx context.Context, channel string, d time.Duration) ([]Segment, error)

	// Prune removes segments older than maxAge. Safe to run concurrently
	// with Append and Window on the same channel.
	Prune(ctx context.Context, channel string, maxAge time.Duration) error

	// SaveSummary persists the channel's latest summary.
	SaveSummary(ctx context.Context, rec SummaryRecord) error

	// LatestSummary returns the persisted summary for a channel, with
	// ok=false when none exists.
	LatestSummary(ctx context.Context, channel string) (SummaryRecord, bool, error)
}
