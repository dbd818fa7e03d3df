package clustering

import (
	"context"
	"fmt"
	"time"

	"github.com/newsbrief/engine/internal/model"
	"github.com/redis/go-redis/v9"
)

func clusterKey(storyHash string) string { return "sCL:" + storyHash }
func membersKey(clusterID string) string { return "zCL:" + clusterID }

// Storage persists cluster index writes and serves the consumer-side
// lookups (spec §4.1 "Storage" and "Consumer side").
type Storage struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStorage wraps a redis client with the cluster TTL.
func NewStorage(rdb *redis.Client, ttl time.Duration) *Storage {
	return &Storage{rdb: rdb, ttl: ttl}
}

// AlreadyClustered reports which of the given hashes already carry a
// stored cluster assignment (spec §4.1 step "skip-seen").
func (s *Storage) AlreadyClustered(ctx context.Context, hashes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}
	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = clusterKey(h)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget sCL: %w", err)
	}
	for i, v := range vals {
		if v != nil {
			out[hashes[i]] = true
		}
	}
	return out, nil
}

// Save writes every cluster's sCL:/zCL: keys in one pipeline. Within a
// single cluster write, member-set replacement (DEL zCL:*) precedes
// re-population (spec §5 ordering guarantee); pipeline semantics
// guarantee the DEL is queued before the ZADD for the same cluster.
func (s *Storage) Save(ctx context.Context, clusters []model.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}
	pipe := s.rdb.Pipeline()
	for _, c := range clusters {
		mk := membersKey(c.ClusterID)
		pipe.Del(ctx, mk)
		members := make([]redis.Z, 0, len(c.Members))
		for _, h := range c.Members {
			members = append(members, redis.Z{Score: 0, Member: h})
			pipe.Set(ctx, clusterKey(h), c.ClusterID, s.ttl)
		}
		if len(members) > 0 {
			pipe.ZAdd(ctx, mk, members...)
		}
		pipe.Expire(ctx, mk, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline cluster writes: %w", err)
	}
	return nil
}

// clusterIDsFor batch-reads sCL: for the given hashes, returning the
// distinct cluster ids discovered.
func (s *Storage) clusterIDsFor(ctx context.Context, hashes []string) (map[string]string, []string, error) {
	hashToCluster := make(map[string]string, len(hashes))
	if len(hashes) == 0 {
		return hashToCluster, nil, nil
	}
	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = clusterKey(h)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("mget sCL: %w", err)
	}
	seen := make(map[string]bool)
	var distinct []string
	for i, v := range vals {
		if v == nil {
			continue
		}
		cid, ok := v.(string)
		if !ok {
			continue
		}
		hashToCluster[hashes[i]] = cid
		if !seen[cid] {
			seen[cid] = true
			distinct = append(distinct, cid)
		}
	}
	return hashToCluster, distinct, nil
}

// membersFor batch-reads zCL: membership for the given cluster ids.
func (s *Storage) membersFor(ctx context.Context, clusterIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(clusterIDs))
	if len(clusterIDs) == 0 {
		return out, nil
	}
	pipe := s.rdb.Pipeline()
	cmds := make(map[string]*redis.StringSliceCmd, len(clusterIDs))
	for _, cid := range clusterIDs {
		cmds[cid] = pipe.ZRange(ctx, membersKey(cid), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline zCL reads: %w", err)
	}
	for cid, cmd := range cmds {
		members, err := cmd.Result()
		if err != nil && err != redis.Nil {
			continue
		}
		out[cid] = members
	}
	return out, nil
}
