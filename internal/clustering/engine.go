// Package clustering implements the cross-feed story clustering engine:
// grouping stories that describe the same underlying event across
// independently-subscribed feeds, so the Candidate Scorer and Summary
// Orchestrator can treat a covered event once instead of once per feed
// (spec §4.1).
package clustering

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/newsbrief/engine/internal/feedindex"
	"github.com/newsbrief/engine/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Config tunes the engine's batch sizes and thresholds.
type Config struct {
	LookbackWindow       time.Duration
	ClusterTTL           time.Duration
	SemanticEnabled      bool
	SemanticMinRelevance float64 // 0-100, spec default 30
	MaxSubscribers       int     // spec default 50
	MaxCandidateFeeds    int     // spec default 200
	MetadataBatchSize    int     // spec default 100
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		LookbackWindow:       120 * time.Hour,
		ClusterTTL:           14 * 24 * time.Hour,
		SemanticEnabled:      false,
		SemanticMinRelevance: 30,
		MaxSubscribers:       50,
		MaxCandidateFeeds:    200,
		MetadataBatchSize:    100,
	}
}

// Engine runs the clustering procedure for a freshly-fetched feed and
// serves the consumer-side cluster lookup used by the Candidate Scorer.
type Engine struct {
	subs         model.SubscriptionStore
	stories      model.StoryStore
	feeds        model.FeedStore
	feedIdx      *feedindex.Index
	storage      *Storage
	vectorSearch VectorSearch
	cfg          Config
	log          zerolog.Logger

	feedCache map[string]*model.Feed
}

// New builds a clustering Engine. vectorSearch may be nil; Tier C is
// skipped whenever it is nil or cfg.SemanticEnabled is false.
func New(rdb *redis.Client, subs model.SubscriptionStore, stories model.StoryStore, feeds model.FeedStore, vectorSearch VectorSearch, cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		subs:         subs,
		stories:      stories,
		feeds:        feeds,
		feedIdx:      feedindex.New(rdb),
		storage:      NewStorage(rdb, cfg.ClusterTTL),
		vectorSearch: vectorSearch,
		cfg:          cfg,
		log:          log.With().Str("component", "clustering").Logger(),
		feedCache:    make(map[string]*model.Feed),
	}
}

// Run clusters the recent stories reachable from feedID: the feed
// itself plus every feed its subscribers' other active subscriptions
// touch, bounded to a candidate pool (spec §4.1 precondition/candidate
// pool). It is a no-op if nobody subscribes to feedID on the archive
// tier.
func (e *Engine) Run(ctx context.Context, feedID string) error {
	subscribers, err := e.subs.ArchiveTierSubscribers(ctx, feedID, e.cfg.MaxSubscribers)
	if err != nil {
		return err
	}
	if len(subscribers) == 0 {
		return nil
	}

	feedPool := make(map[string]bool)
	feedPool[feedID] = true
	for _, uid := range subscribers {
		if len(feedPool) >= e.cfg.MaxCandidateFeeds {
			break
		}
		active, err := e.subs.ActiveSubscriptions(ctx, uid)
		if err != nil {
			e.log.Warn().Err(err).Str("user_id", uid).Msg("active subscriptions lookup failed")
			continue
		}
		for _, sub := range active {
			if len(feedPool) >= e.cfg.MaxCandidateFeeds {
				break
			}
			feedPool[sub.FeedID] = true
		}
	}

	now := time.Now()
	seen := make(map[string]bool)
	var allHashes []string
	for fid := range feedPool {
		hashes, err := e.feedIdx.RecentHashes(ctx, fid, e.cfg.LookbackWindow, now)
		if err != nil {
			e.log.Warn().Err(err).Str("feed_id", fid).Msg("recent hash lookup failed")
			continue
		}
		for _, h := range hashes {
			if !seen[h] {
				seen[h] = true
				allHashes = append(allHashes, h)
			}
		}
	}
	if len(allHashes) == 0 {
		return nil
	}

	already, err := e.storage.AlreadyClustered(ctx, allHashes)
	if err != nil {
		return err
	}
	var pending []string
	for _, h := range allHashes {
		if !already[h] {
			pending = append(pending, h)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	storyByHash := make(map[string]model.Story, len(pending))
	for start := 0; start < len(pending); start += e.cfg.MetadataBatchSize {
		end := start + e.cfg.MetadataBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch, err := e.stories.GetStories(ctx, pending[start:end])
		if err != nil {
			return err
		}
		for h, s := range batch {
			storyByHash[h] = *s
		}
	}
	if len(storyByHash) == 0 {
		return nil
	}

	stories := make([]model.Story, 0, len(storyByHash))
	for _, s := range storyByHash {
		stories = append(stories, s)
	}

	resolvedFeed, err := e.resolveFeeds(ctx, stories)
	if err != nil {
		return err
	}

	hashes := make([]string, 0, len(stories))
	for _, s := range stories {
		hashes = append(hashes, s.StoryHash)
	}
	uf := newUnionFind(hashes)

	tierAExactTitle(stories, resolvedFeed, uf)
	tierBFuzzyOverlap(stories, resolvedFeed, uf)
	if e.cfg.SemanticEnabled && e.vectorSearch != nil {
		relatedFeeds := make([]string, 0, len(resolvedFeed))
		seenFeed := make(map[string]bool, len(resolvedFeed))
		for _, rf := range resolvedFeed {
			if !seenFeed[rf] {
				seenFeed[rf] = true
				relatedFeeds = append(relatedFeeds, rf)
			}
		}
		tierCSemantic(ctx, stories, storyByHash, resolvedFeed, relatedFeeds, uf, e.vectorSearch, e.cfg.SemanticMinRelevance)
	}

	clusters := emitClusters(uf, storyByHash, resolvedFeed)
	if len(clusters) == 0 {
		return nil
	}
	e.log.Info().Int("clusters", len(clusters)).Str("feed_id", feedID).Msg("clustering run emitted clusters")
	return e.storage.Save(ctx, clusters)
}

// resolveFeeds maps each story's feed id to its resolved (original)
// feed id, consulting the FeedStore once per distinct feed id and
// caching across calls.
func (e *Engine) resolveFeeds(ctx context.Context, stories []model.Story) (map[string]string, error) {
	out := make(map[string]string, len(stories))
	for _, s := range stories {
		if _, ok := out[s.FeedID]; ok {
			continue
		}
		feed, ok := e.feedCache[s.FeedID]
		if !ok {
			f, err := e.feeds.GetFeed(ctx, s.FeedID)
			if err != nil {
				return nil, err
			}
			feed = f
			e.feedCache[s.FeedID] = feed
		}
		out[s.FeedID] = feed.ResolvedFeedID()
	}
	return out, nil
}

// semanticTitleCap bounds the query title sent to the vector-search
// service (spec §4.1 Tier C).
const semanticTitleCap = 2000

// tierCSemantic consults the vector-search service for each
// still-unclustered story, unioning it with any sufficiently relevant
// hit that is also part of the current batch (spec §4.1 Tier C).
// Hits outside the current batch are ignored: union is a no-op for a
// hash the union-find arena never registered. Same-resolved-feed and
// same-guid hits are excluded, matching Tier B's pairing rule. A
// network-level query error ends the tier for the rest of the batch;
// any other query error skips only that story.
func tierCSemantic(ctx context.Context, stories []model.Story, storyByHash map[string]model.Story, resolvedFeed map[string]string, relatedFeeds []string, uf *unionFind, vs VectorSearch, minRelevance float64) {
	for _, s := range stories {
		if uf.componentSize(s.StoryHash) != 1 {
			continue
		}
		title := s.Title
		if len(title) > semanticTitleCap {
			title = title[:semanticTitleCap]
		}
		hits, err := vs.Query(ctx, title, relatedFeeds, minRelevance, 5)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) {
				return
			}
			continue
		}
		for _, hit := range hits {
			if hit.StoryHash == s.StoryHash {
				continue
			}
			other, ok := storyByHash[hit.StoryHash]
			if !ok {
				continue
			}
			if resolvedFeed[other.FeedID] == resolvedFeed[s.FeedID] {
				continue
			}
			if other.GUIDHash == s.GUIDHash {
				continue
			}
			uf.union(s.StoryHash, hit.StoryHash)
		}
	}
}

// ApplyClusteringToStories is the consumer-side half of clustering
// (spec §4.1 "Consumer side"): for a candidate pool of story hashes
// with known metadata, it resolves each to its cluster (a hash with no
// stored cluster is its own singleton), picks the highest-scoring
// member visible to the user (subscribed to an allowed feed) as the
// representative, and returns sidecar hashes collapsed into it —
// deduped by guid_hash against the representative and each other.
func (e *Engine) ApplyClusteringToStories(ctx context.Context, hashes []string, storyByHash map[string]model.Story, scores map[string]float64, allowedFeeds map[string]bool) ([]string, map[string][]string, error) {
	hashToCluster, distinctClusters, err := e.storage.clusterIDsFor(ctx, hashes)
	if err != nil {
		return nil, nil, err
	}
	membersByCluster, err := e.storage.membersFor(ctx, distinctClusters)
	if err != nil {
		return nil, nil, err
	}

	groups := make(map[string][]string)
	groupOf := func(h string) string {
		if cid, ok := hashToCluster[h]; ok {
			return cid
		}
		return h
	}
	for _, h := range hashes {
		cid := groupOf(h)
		groups[cid] = append(groups[cid], h)
	}
	for cid, members := range membersByCluster {
		existing := make(map[string]bool, len(groups[cid]))
		for _, h := range groups[cid] {
			existing[h] = true
		}
		for _, h := range members {
			if !existing[h] {
				existing[h] = true
				groups[cid] = append(groups[cid], h)
			}
		}
	}

	reps := make([]string, 0, len(groups))
	sidecars := make(map[string][]string, len(groups))
	for _, members := range groups {
		var eligible []model.Story
		for _, h := range members {
			s, ok := storyByHash[h]
			if !ok {
				continue
			}
			if len(allowedFeeds) > 0 && !allowedFeeds[s.FeedID] {
				continue
			}
			eligible = append(eligible, s)
		}
		if len(eligible) == 0 {
			continue
		}

		rep := eligible[0]
		repScore := scores[rep.StoryHash]
		for _, s := range eligible[1:] {
			if sc := scores[s.StoryHash]; sc > repScore {
				rep, repScore = s, sc
			}
		}

		seenGUID := map[string]bool{rep.GUIDHash: true}
		var side []string
		for _, s := range eligible {
			if s.StoryHash == rep.StoryHash || seenGUID[s.GUIDHash] {
				continue
			}
			seenGUID[s.GUIDHash] = true
			side = append(side, s.StoryHash)
		}

		reps = append(reps, rep.StoryHash)
		if len(side) > 0 {
			sidecars[rep.StoryHash] = side
		}
	}
	return reps, sidecars, nil
}
