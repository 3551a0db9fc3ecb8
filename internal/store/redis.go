package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	transcriptionPrefix = "sr_now:transcriptions"
	summaryPrefix       = "sr_now:summary"

	redisOpTimeout = 5 * time.Second
)

type implRedis struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

// NewRedis creates the durable Store backed by the redis instance at url.
// The connection is verified with a ping so a bad backend is detected at
// startup, not on the first cycle.
func NewRedis(ctx context.Context, url string, retention time.Duration) (Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opts.DialTimeout = redisOpTimeout
	opts.ReadTimeout = redisOpTimeout
	opts.WriteTimeout = redisOpTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &implRedis{
		client:    client,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func segmentKey(channel string, t time.Time) string {
	return fmt.Sprintf("%s:%s:%d", transcriptionPrefix, channel, t.Unix())
}

func summaryKey(channel string) string {
	return summaryPrefix + ":" + channel
}

// segmentKeyTime extracts the unix timestamp from a segment key.
func segmentKeyTime(key string) (int64, bool) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return 0, false
	}
	unix, err := strconv.ParseInt(key[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return unix, true
}

func (r *implRedis) Append(ctx context.Context, seg Segment) error {
	data, err := json.Marshal(seg)
	if err != nil {
		return fmt.Errorf("%w: encoding segment: %v", ErrPersistence, err)
	}

	// One key per segment with TTL = retention; expiry does most of the
	// pruning for us. Re-appending the same second overwrites in place.
	key := segmentKey(seg.Channel, seg.Time)
	if err := r.client.Set(ctx, key, data, r.retention).Err(); err != nil {
		return fmt.Errorf("%w: saving segment for %s: %v", ErrPersistence, seg.Channel, err)
	}
	return nil
}

func (r *implRedis) Window(ctx context.Context, channel string, d time.Duration) ([]Segment, error) {
	keys, err := r.client.Keys(ctx, transcriptionPrefix+":"+channel+":*").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: listing segments for %s: %v", ErrPersistence, channel, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: loading segments for %s: %v", ErrPersistence, channel, err)
	}

	now := r.now()
	cutoff := now.Add(-d)

	var out []Segment
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // expired between KEYS and MGET
		}
		var seg Segment
		if err := json.Unmarshal([]byte(raw), &seg); err != nil {
			continue
		}
		if seg.Time.Before(cutoff) || seg.Time.After(now) {
			continue
		}
		out = append(out, seg)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (r *implRedis) Prune(ctx context.Context, channel string, maxAge time.Duration) error {
	keys, err := r.client.Keys(ctx, transcriptionPrefix+":"+channel+":*").Result()
	if err != nil {
		return fmt.Errorf("%w: listing segments for %s: %v", ErrPersistence, channel, err)
	}

	cutoff := r.now().Add(-maxAge).Unix()

	var stale []string
	for _, key := range keys {
		unix, ok := segmentKeyTime(key)
		if !ok {
			continue
		}
		if unix < cutoff {
			stale = append(stale, key)
		}
	}

	if len(stale) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, stale...).Err(); err != nil {
		return fmt.Errorf("%w: pruning %s: %v", ErrPersistence, channel, err)
	}
	return nil
}

func (r *implRedis) SaveSummary(ctx context.Context, rec SummaryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encoding summary: %v", ErrPersistence, err)
	}

	// No TTL: the latest summary persists until overwritten.
	if err := r.client.Set(ctx, summaryKey(rec.Channel), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: saving summary for %s: %v", ErrPersistence, rec.Channel, err)
	}
	return nil
}

func (r *implRedis) LatestSummary(ctx context.Context, channel string) (SummaryRecord, bool, error) {
	raw, err := r.client.Get(ctx, summaryKey(channel)).Result()
	if err == redis.Nil {
		return SummaryRecord{}, false, nil
	}
	if err != nil {
		return SummaryRecord{}, false, fmt.Errorf("%w: loading summary for %s: %v", ErrPersistence, channel, err)
	}

	var rec SummaryRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return SummaryRecord{}, false, fmt.Errorf("%w: decoding summary for %s: %v", ErrPersistence, channel, err)
	}
	return rec, true, nil
}
