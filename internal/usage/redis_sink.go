package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink writes usage batches into the Redis key table from spec
// §6: daily scoped counters and dedup sets for clustering, and the
// per-{provider,feature,model} LLM counter family plus daily users set
// and the process-wide known-models set.
type RedisSink struct {
	rdb        *redis.Client
	clusterTTL time.Duration // spec §6: 35d
	llmTTL     time.Duration // spec §6: 60d
}

// NewRedisSink wraps a redis client with the two retention windows.
func NewRedisSink(rdb *redis.Client, clusterTTL, llmTTL time.Duration) *RedisSink {
	return &RedisSink{rdb: rdb, clusterTTL: clusterTTL, llmTTL: llmTTL}
}

func clusteringCidsKey(date string) string { return "clustering:cids:" + date }
func clusteringSidsKey(date string) string { return "clustering:sids:" + date }
func clusteringMarkReadKey(date string) string { return "clustering:" + date + ":mark_read_expanded" }
func clusteringTimeTotalKey(date string) string { return "clustering:" + date + ":cluster_time_total_ms" }
func clusteringTimeCountKey(date string) string { return "clustering:" + date + ":count" }

const (
	clusteringAlltimeClusters   = "clustering:alltime:clusters_total"
	clusteringAlltimeStories    = "clustering:alltime:stories_total"
	clusteringAlltimeMarkRead   = "clustering:alltime:mark_read_expanded"
	clusteringAlltimeTimeTotal  = "clustering:alltime:cluster_time_total_ms"
	clusteringAlltimeTimeCount  = "clustering:alltime:count"
	llmKnownModelsKey           = "LLM:known_models"
)

// WriteClusterEvents pipelines the daily dedup-set and counter writes
// for a batch of clustering runs (spec §6).
func (s *RedisSink) WriteClusterEvents(ctx context.Context, events []ClusterEvent) error {
	if len(events) == 0 {
		return nil
	}
	pipe := s.rdb.Pipeline()
	for _, e := range events {
		if len(e.ClusterIDs) > 0 {
			members := toInterfaceSlice(e.ClusterIDs)
			pipe.SAdd(ctx, clusteringCidsKey(e.Date), members...)
			pipe.Expire(ctx, clusteringCidsKey(e.Date), s.clusterTTL)
			pipe.IncrBy(ctx, clusteringAlltimeClusters, int64(len(e.ClusterIDs)))
		}
		if len(e.StoryHashes) > 0 {
			members := toInterfaceSlice(e.StoryHashes)
			pipe.SAdd(ctx, clusteringSidsKey(e.Date), members...)
			pipe.Expire(ctx, clusteringSidsKey(e.Date), s.clusterTTL)
			pipe.IncrBy(ctx, clusteringAlltimeStories, int64(len(e.StoryHashes)))
		}
		if e.MarkReadExpanded > 0 {
			pipe.IncrBy(ctx, clusteringMarkReadKey(e.Date), e.MarkReadExpanded)
			pipe.Expire(ctx, clusteringMarkReadKey(e.Date), s.clusterTTL)
			pipe.IncrBy(ctx, clusteringAlltimeMarkRead, e.MarkReadExpanded)
		}
		if e.DurationMS > 0 {
			pipe.IncrBy(ctx, clusteringTimeTotalKey(e.Date), e.DurationMS)
			pipe.Incr(ctx, clusteringTimeCountKey(e.Date))
			pipe.Expire(ctx, clusteringTimeTotalKey(e.Date), s.clusterTTL)
			pipe.Expire(ctx, clusteringTimeCountKey(e.Date), s.clusterTTL)
			pipe.IncrBy(ctx, clusteringAlltimeTimeTotal, e.DurationMS)
			pipe.Incr(ctx, clusteringAlltimeTimeCount)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline cluster usage writes: %w", err)
	}
	return nil
}

// sanitizeModelName replaces "-" and "." with "_" for use in Redis key
// segments (spec §6 "Model-name sanitization for keys").
func sanitizeModelName(model string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return r.Replace(model)
}

func llmTotalKey(date, field string) string { return fmt.Sprintf("LLM:%s:total:%s", date, field) }
func llmDimKey(date, dim, name, field string) string {
	return fmt.Sprintf("LLM:%s:%s:%s:%s", date, dim, name, field)
}
func llmUsersKey(date string) string { return "LLM:" + date + ":users" }

// WriteLLMEvents pipelines the per-day total, per-{provider,feature,
// model} dimension, and users-set writes for a batch of LLM calls
// (spec §6). cost is stored as micro-dollars.
func (s *RedisSink) WriteLLMEvents(ctx context.Context, events []LLMEvent) error {
	if len(events) == 0 {
		return nil
	}
	pipe := s.rdb.Pipeline()
	for _, e := range events {
		totalTokens := int64(e.InputTokens + e.OutputTokens)
		model := sanitizeModelName(e.Model)

		pipe.IncrBy(ctx, llmTotalKey(e.Date, "tokens"), totalTokens)
		pipe.IncrBy(ctx, llmTotalKey(e.Date, "cost"), e.CostMicro)
		pipe.Incr(ctx, llmTotalKey(e.Date, "requests"))

		for _, field := range []string{"tokens", "cost", "requests"} {
			pipe.Expire(ctx, llmTotalKey(e.Date, field), s.llmTTL)
		}

		dims := []struct{ name, value string }{
			{"provider", e.Provider},
			{"feature", e.Feature},
			{"model", model},
		}
		for _, d := range dims {
			if d.value == "" {
				continue
			}
			pipe.IncrBy(ctx, llmDimKey(e.Date, d.name, d.value, "tokens"), totalTokens)
			pipe.IncrBy(ctx, llmDimKey(e.Date, d.name, d.value, "cost"), e.CostMicro)
			pipe.Incr(ctx, llmDimKey(e.Date, d.name, d.value, "requests"))
			for _, field := range []string{"tokens", "cost", "requests"} {
				pipe.Expire(ctx, llmDimKey(e.Date, d.name, d.value, field), s.llmTTL)
			}
		}

		if e.UserID != "" {
			pipe.SAdd(ctx, llmUsersKey(e.Date), e.UserID)
			pipe.Expire(ctx, llmUsersKey(e.Date), s.llmTTL)
		}
		if model != "" {
			pipe.SAdd(ctx, llmKnownModelsKey, model)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline llm usage writes: %w", err)
	}
	return nil
}

// Close is a no-op; the shared redis.Client outlives the sink.
func (s *RedisSink) Close() error { return nil }

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
