package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// trendingDecayWindow bounds how far back an engagement event still
// contributes to a trending score; contribution decays linearly to
// zero at the window edge (SPEC_FULL "Trending score decay").
const trendingDecayWindow = 48 * time.Hour

// TrendingSource supplies the feed-local and global trending features
// the Candidate Scorer's category assignment and weighting need
// (spec §4.2 steps 4/5/6). It is a time-decayed function of recent
// read/click engagement, not a raw view count.
type TrendingSource interface {
	FeedScore(ctx context.Context, feedID string, now time.Time) (float64, error)
	GlobalScore(ctx context.Context, storyHash string, now time.Time) (float64, error)
}

// RedisTrendingSource reads engagement events from per-feed and
// per-story sorted sets (member = event id, score = unix timestamp)
// and applies a linear time-decay so a burst of engagement a day ago
// matters less than one an hour ago.
type RedisTrendingSource struct {
	rdb *redis.Client
}

// NewRedisTrendingSource wraps a redis client.
func NewRedisTrendingSource(rdb *redis.Client) *RedisTrendingSource {
	return &RedisTrendingSource{rdb: rdb}
}

func feedEngagementKey(feedID string) string   { return "zTrendF:" + feedID }
func globalEngagementKey(storyHash string) string { return "zTrendG:" + storyHash }

// FeedScore returns the decayed engagement score for a feed.
func (t *RedisTrendingSource) FeedScore(ctx context.Context, feedID string, now time.Time) (float64, error) {
	return t.decayedScore(ctx, feedEngagementKey(feedID), now)
}

// GlobalScore returns the decayed engagement score for a story across
// all feeds that carry it.
func (t *RedisTrendingSource) GlobalScore(ctx context.Context, storyHash string, now time.Time) (float64, error) {
	return t.decayedScore(ctx, globalEngagementKey(storyHash), now)
}

func (t *RedisTrendingSource) decayedScore(ctx context.Context, key string, now time.Time) (float64, error) {
	min := fmt.Sprintf("%d", now.Add(-trendingDecayWindow).Unix())
	max := fmt.Sprintf("%d", now.Unix())
	events, err := t.rdb.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{Min: min, Max: max}).Result()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	var total float64
	for _, e := range events {
		age := now.Sub(time.Unix(int64(e.Score), 0))
		weight := 1 - float64(age)/float64(trendingDecayWindow)
		if weight < 0 {
			weight = 0
		}
		total += weight
	}
	return total, nil
}
