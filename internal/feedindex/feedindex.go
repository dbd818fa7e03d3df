// Package feedindex reads the per-feed recency index (Redis key
// "zF:<feed_id>", spec §6) shared by the Clustering Engine and the
// Candidate Scorer. It is written by the out-of-scope RSS fetcher;
// this package only reads it.
package feedindex

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Index reads feed recency data from Redis.
type Index struct {
	rdb *redis.Client
}

// New wraps a redis client.
func New(rdb *redis.Client) *Index {
	return &Index{rdb: rdb}
}

func feedKey(feedID string) string {
	return "zF:" + feedID
}

// RecentHashes returns story hashes for feedID published within the
// trailing window ending at now, ordered oldest-first.
func (i *Index) RecentHashes(ctx context.Context, feedID string, window time.Duration, now time.Time) ([]string, error) {
	min := fmt.Sprintf("%d", now.Add(-window).Unix())
	max := fmt.Sprintf("%d", now.Unix())
	hashes, err := i.rdb.ZRangeByScore(ctx, feedKey(feedID), &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read zF:%s: %w", feedID, err)
	}
	return hashes, nil
}
