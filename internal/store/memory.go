package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

type implMemory struct {
	mu        sync.RWMutex
	retention time.Duration
	segments  map[string][]Segment
	summaries map[string]SummaryRecord
	now       func() time.Time
}

// NewMemory creates the in-memory fallback Store, used when no REDIS_URL
// is configured. History does not survive restarts in this mode.
func NewMemory(retention time.Duration) Store {
	return &implMemory{
		retention: retention,
		segments:  make(map[string][]Segment),
		summaries: make(map[string]SummaryRecord),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *implMemory) Append(ctx context.Context, seg Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	segs := m.segments[seg.Channel]

	i := sort.Search(len(segs), func(i int) bool {
		return !segs[i].Time.Before(seg.Time)
	})
	if i < len(segs) && segs[i].Time.Equal(seg.Time) && segs[i].Text == seg.Text {
		return nil // already present
	}

	segs = append(segs, Segment{})
	copy(segs[i+1:], segs[i:])
	segs[i] = seg

	// Prune on insert keeps the slice bounded by retention.
	cutoff := m.now().Add(-m.retention)
	for len(segs) > 0 && segs[0].Time.Before(cutoff) {
		segs = segs[1:]
	}

	m.segments[seg.Channel] = segs
	return nil
}

func (m *implMemory) Window(ctx context.Context, channel string, d time.Duration) ([]Segment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	cutoff := now.Add(-d)

	var out []Segment
	for _, seg := range m.segments[channel] {
		if seg.Time.Before(cutoff) || seg.Time.After(now) {
			continue
		}
		out = append(out, seg)
	}
	return out, nil
}

func (m *implMemory) Prune(ctx context.Context, channel string, maxAge time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	segs := m.segments[channel]

	i := sort.Search(len(segs), func(i int) bool {
		return !segs[i].Time.Before(cutoff)
	})
	if i > 0 {
		m.segments[channel] = append([]Segment(nil), segs[i:]...)
	}
	return nil
}

func (m *implMemory) SaveSummary(ctx context.Context, rec SummaryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.summaries[rec.Channel] = rec
	return nil
}

func (m *implMemory) LatestSummary(ctx context.Context, channel string) (SummaryRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.summaries[channel]
	return rec, ok, nil
}
