// Package scoring implements the Candidate Scorer: turning a user's
// subscription set into a ranked, categorized candidate list for a
// briefing (spec §4.2).
package scoring

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/newsbrief/engine/internal/clustering"
	"github.com/newsbrief/engine/internal/feedindex"
	"github.com/newsbrief/engine/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// perFeedCap bounds how many candidates a single feed may contribute
// to the final list (spec §4.2 step 7).
const perFeedCap = 3

// unreadFallbackThreshold is the minimum unread-candidate count below
// which read stories are retained as fallback (spec §4.2 step 3).
const unreadFallbackThreshold = 3

// excerptMaxLen bounds the excerpt used for custom-keyword matching
// (spec §4.3). The orchestrator's prompt excerpt has its own limit,
// userPromptExcerptLen.
const excerptMaxLen = 300

// Candidate is one scored, categorized story ready for the prompt
// builder (spec §4.2 "Output").
type Candidate struct {
	StoryHash         string
	Score             float64
	IsRead            bool
	Category          string
	ContentWordCount  int
	ClassifierMatches []string
	SidecarHashes     []string // off-page duplicates collapsed into this candidate
}

// Scorer computes ranked candidate lists.
type Scorer struct {
	subs      model.SubscriptionStore
	stories   model.StoryStore
	feeds     model.FeedStore
	readState model.ReadStateStore
	feedIdx   *feedindex.Index
	clusterer *clustering.Engine
	trending  TrendingSource
	log       zerolog.Logger
}

// New builds a Scorer.
func New(rdb *redis.Client, subs model.SubscriptionStore, stories model.StoryStore, feeds model.FeedStore, readState model.ReadStateStore, clusterer *clustering.Engine, trending TrendingSource, log zerolog.Logger) *Scorer {
	return &Scorer{
		subs:      subs,
		stories:   stories,
		feeds:     feeds,
		readState: readState,
		feedIdx:   feedindex.New(rdb),
		clusterer: clusterer,
		trending:  trending,
		log:       log.With().Str("component", "scoring").Logger(),
	}
}

type pooledStory struct {
	story  model.Story
	sub    model.UserSubscription
	isRead bool
}

// Score enumerates userID's eligible feeds over [periodStart, now],
// applies read-state, categorization, per-feed caps, and truncation,
// and returns the ordered candidate list (spec §4.2).
func (s *Scorer) Score(ctx context.Context, userID string, periodStart, now time.Time, maxStories int, readFilter model.ReadFilter, prefs *model.BriefingPreferences) ([]Candidate, error) {
	subs, err := s.subs.ActiveSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}

	var eligible []model.UserSubscription
	for _, sub := range subs {
		if readFilter == model.ReadFilterFocus && sub.ClassifierScoreFor(sub.Folder) < 0 {
			continue
		}
		if !prefs.StorySource.All && sub.Folder != prefs.StorySource.Folder {
			continue
		}
		eligible = append(eligible, sub)
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	window := now.Sub(periodStart)
	var allHashes []string
	for _, sub := range eligible {
		hashes, err := s.feedIdx.RecentHashes(ctx, sub.FeedID, window, now)
		if err != nil {
			s.log.Warn().Err(err).Str("feed_id", sub.FeedID).Msg("recent hash lookup failed")
			continue
		}
		allHashes = append(allHashes, hashes...)
	}
	if len(allHashes) == 0 {
		return nil, nil
	}

	storyByHash := make(map[string]model.Story, len(allHashes))
	for start := 0; start < len(allHashes); start += 100 {
		end := start + 100
		if end > len(allHashes) {
			end = len(allHashes)
		}
		batch, err := s.stories.GetStories(ctx, allHashes[start:end])
		if err != nil {
			return nil, err
		}
		for h, st := range batch {
			storyByHash[h] = *st
		}
	}

	subByFeed := make(map[string]model.UserSubscription, len(eligible))
	for _, sub := range eligible {
		subByFeed[sub.FeedID] = sub
	}

	var pool []pooledStory
	unreadCount := 0
	for _, h := range allHashes {
		st, ok := storyByHash[h]
		if !ok {
			continue
		}
		sub, ok := subByFeed[st.FeedID]
		if !ok {
			continue
		}
		read, err := s.readState.IsRead(ctx, userID, h)
		if err != nil {
			return nil, err
		}
		if !read {
			unreadCount++
		}
		pool = append(pool, pooledStory{story: st, sub: sub, isRead: read})
	}

	if unreadCount >= unreadFallbackThreshold {
		filtered := pool[:0:0]
		for _, p := range pool {
			if !p.isRead {
				filtered = append(filtered, p)
			}
		}
		pool = filtered
	}
	if len(pool) == 0 {
		return nil, nil
	}

	allowedFeeds := make(map[string]bool, len(eligible))
	for _, sub := range eligible {
		allowedFeeds[sub.FeedID] = true
	}
	// Representative selection runs before the weighted score exists;
	// word count stands in as a cheap proxy for "more substantial
	// coverage of the event" until categorization/scoring below.
	provisionalScores := make(map[string]float64, len(pool))
	for _, p := range pool {
		provisionalScores[p.story.StoryHash] = float64(p.story.WordCount)
	}
	var sidecars map[string][]string
	if s.clusterer != nil {
		candidateHashes := make([]string, len(pool))
		for i, p := range pool {
			candidateHashes[i] = p.story.StoryHash
		}
		reps, sc, err := s.clusterer.ApplyClusteringToStories(ctx, candidateHashes, storyByHash, provisionalScores, allowedFeeds)
		if err != nil {
			s.log.Warn().Err(err).Msg("cluster lookup failed")
		} else {
			repSet := make(map[string]bool, len(reps))
			for _, r := range reps {
				repSet[r] = true
			}
			sidecars = sc
			dedup := pool[:0:0]
			for _, p := range pool {
				if _, isSidecarElsewhere := isSidecar(sc, p.story.StoryHash); isSidecarElsewhere && !repSet[p.story.StoryHash] {
					continue
				}
				dedup = append(dedup, p)
			}
			pool = dedup
		}
	}

	wordCounts := make([]int, len(pool))
	for i, p := range pool {
		wordCounts[i] = p.story.WordCount
	}
	medianWords := median(wordCounts)
	longReadThreshold := int(float64(medianWords) * 1.5)

	candidates := make([]Candidate, 0, len(pool))
	for _, p := range pool {
		feed, err := s.feeds.GetFeed(ctx, p.story.FeedID)
		if err != nil {
			return nil, err
		}
		matches := matchClassifiers(p.sub.Classifiers, p.story, feed.Title, p.story.Author, p.sub.Folder)

		feedTrend, err := s.trending.FeedScore(ctx, p.story.FeedID, now)
		if err != nil {
			feedTrend = 0
		}
		globalTrend, err := s.trending.GlobalScore(ctx, p.story.StoryHash, now)
		if err != nil {
			globalTrend = 0
		}

		side := sidecars[p.story.StoryHash]
		category, customIdx := categorize(p, matches, side, prefs, feedTrend, globalTrend, longReadThreshold)

		score := weightScore(category, customIdx, feedTrend, globalTrend, len(matches) > 0, !p.isRead, p.story.WordCount, medianWords)

		matchLabels := make([]string, len(matches))
		for i, m := range matches {
			matchLabels[i] = string(m.Scope) + ":" + m.Value
		}

		candidates = append(candidates, Candidate{
			StoryHash:         p.story.StoryHash,
			Score:             score,
			IsRead:            p.isRead,
			Category:          category,
			ContentWordCount:  p.story.WordCount,
			ClassifierMatches: matchLabels,
			SidecarHashes:     side,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return storyByHash[candidates[i].StoryHash].PubDate.After(storyByHash[candidates[j].StoryHash].PubDate)
	})

	perFeed := make(map[string]int)
	capped := candidates[:0:0]
	for _, c := range candidates {
		feedID := storyByHash[c.StoryHash].FeedID
		if perFeed[feedID] >= perFeedCap {
			continue
		}
		perFeed[feedID]++
		capped = append(capped, c)
	}

	if len(capped) > maxStories {
		capped = capped[:maxStories]
	}
	return capped, nil
}

func isSidecar(sidecars map[string][]string, hash string) (string, bool) {
	for rep, side := range sidecars {
		for _, h := range side {
			if h == hash {
				return rep, true
			}
		}
	}
	return "", false
}

// categorize assigns the single first-matching category for a
// candidate (spec §4.2 step 5).
func categorize(p pooledStory, matches []model.Classifier, sidecars []string, prefs *model.BriefingPreferences, feedTrend, globalTrend float64, longReadThreshold int) (string, int) {
	if len(matches) > 0 {
		return model.SectionClassifierMatch, 0
	}
	excerpt := excerptFrom(p.story.Content, excerptMaxLen)
	if n := matchCustomKeywordPrompt(prefs.CustomSectionPrompts, p.story.Title, excerpt); n > 0 {
		return model.CustomSectionKey(n), n
	}
	if len(sidecars) > 0 {
		return model.SectionDuplicates, 0
	}
	if p.story.WordCount >= longReadThreshold && longReadThreshold > 0 {
		return model.SectionLongRead, 0
	}
	if p.isRead {
		return model.SectionFollowUp, 0
	}
	if feedTrend > globalTrend {
		return model.SectionTrendingUnread, 0
	}
	return model.SectionTrendingGlobal, 0
}

// weightScore computes the weighted sum described in spec §4.2 step 6.
func weightScore(category string, customIdx int, feedTrend, globalTrend float64, hasClassifierMatch, isUnread bool, wordCount, medianWords int) float64 {
	score := 0.3*globalTrend + 0.5*feedTrend
	if hasClassifierMatch {
		score += 3
	}
	if category == model.SectionFollowUp {
		score += 1
	}
	if isUnread {
		score += 2
	}
	score += wordCountBucket(wordCount, medianWords)
	if customIdx > 0 {
		score += 1.5
	}
	return score
}

// wordCountBucket maps a story's word count, relative to the page
// median, to a small weighting bucket.
func wordCountBucket(wordCount, medianWords int) float64 {
	if medianWords <= 0 {
		return 0
	}
	ratio := float64(wordCount) / float64(medianWords)
	switch {
	case ratio >= 2:
		return 1.5
	case ratio >= 1.2:
		return 1
	case ratio >= 0.5:
		return 0.5
	default:
		return 0
	}
}

// StoriesFor batches a metadata fetch for a scored candidate list,
// giving the Summary Orchestrator the same story records the Scorer
// itself used (spec §4.3 prompt construction needs title/author/tags).
func (s *Scorer) StoriesFor(ctx context.Context, candidates []Candidate) (map[string]*model.Story, error) {
	hashes := make([]string, 0, len(candidates))
	for _, c := range candidates {
		hashes = append(hashes, c.StoryHash)
		hashes = append(hashes, c.SidecarHashes...)
	}
	out := make(map[string]*model.Story, len(hashes))
	for start := 0; start < len(hashes); start += 100 {
		end := start + 100
		if end > len(hashes) {
			end = len(hashes)
		}
		batch, err := s.stories.GetStories(ctx, hashes[start:end])
		if err != nil {
			return nil, err
		}
		for h, st := range batch {
			out[h] = st
		}
	}
	return out, nil
}

// FeedTitleFor looks up one feed's title, returning "" if the feed
// cannot be resolved (spec §4.3's prompt rows show a feed title per
// candidate).
func (s *Scorer) FeedTitleFor(feedID string) string {
	feed, err := s.feeds.GetFeed(context.Background(), feedID)
	if err != nil || feed == nil {
		return ""
	}
	return feed.Title
}

func median(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return int(math.Round(float64(sorted[mid-1]+sorted[mid]) / 2))
	}
	return sorted[mid]
}
