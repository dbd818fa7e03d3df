// Package datastore is a Redis-backed stand-in for the external
// systems spec §3 marks read-only: the RSS fetcher's story/feed
// tables and the application's user/subscription/briefing schema.
// Spec §5 names Redis as "the single synchronization medium" the HTTP
// and worker tiers share, so a thin JSON-over-Redis store is the one
// concrete collaborator this engine can stand up on its own without
// fabricating a database dependency no example repo uses.
package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/newsbrief/engine/internal/model"
	"github.com/redis/go-redis/v9"
)

// Store implements model.StoryStore, model.FeedStore,
// model.SubscriptionStore, model.ReadStateStore, model.UserStore and
// model.BriefingStore over a single Redis keyspace, namespaced away
// from the engine's own `zF:`/`sCL:`/`LLM:` keys (spec §6).
type Store struct {
	rdb *redis.Client
}

// New wraps an existing Redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func storyKey(hash string) string   { return "ext:story:" + hash }
func feedKey(feedID string) string  { return "ext:feed:" + feedID }
func userKey(userID string) string  { return "ext:user:" + userID }
func prefsKey(userID string) string { return "ext:prefs:" + userID }
func subsKey(userID string) string  { return "ext:subs:" + userID }
func feedSubscribersKey(feedID string) string { return "ext:feed_subs:" + feedID }
func readKey(userID string) string  { return "ext:read:" + userID }
func briefingFeedKey(userID string) string { return "ext:briefing_feed:" + userID }
func briefingZKey(userID string) string    { return "ext:briefings:" + userID }
func briefingKey(userID, briefingID string) string {
	return "ext:briefing:" + userID + ":" + briefingID
}

// --- StoryStore ---

func (s *Store) GetStories(ctx context.Context, hashes []string) (map[string]*model.Story, error) {
	out := make(map[string]*model.Story, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}
	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = storyKey(h)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget stories: %w", err)
	}
	for i, v := range vals {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		var st model.Story
		if err := json.Unmarshal([]byte(str), &st); err != nil {
			continue
		}
		out[hashes[i]] = &st
	}
	return out, nil
}

// PutStory writes a story record; used by seed/ingest tooling and by
// InsertSummaryStory for the synthetic briefing story.
func (s *Store) PutStory(ctx context.Context, st *model.Story) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, storyKey(st.StoryHash), payload, 0).Err()
}

// --- FeedStore ---

func (s *Store) GetFeed(ctx context.Context, feedID string) (*model.Feed, error) {
	v, err := s.rdb.Get(ctx, feedKey(feedID)).Result()
	if err == redis.Nil {
		return &model.Feed{FeedID: feedID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get feed %s: %w", feedID, err)
	}
	var f model.Feed
	if err := json.Unmarshal([]byte(v), &f); err != nil {
		return nil, fmt.Errorf("decode feed %s: %w", feedID, err)
	}
	return &f, nil
}

// PutFeed writes a feed record.
func (s *Store) PutFeed(ctx context.Context, f *model.Feed) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, feedKey(f.FeedID), payload, 0).Err()
}

// --- SubscriptionStore ---

func (s *Store) ActiveSubscriptions(ctx context.Context, userID string) ([]model.UserSubscription, error) {
	raw, err := s.rdb.Get(ctx, subsKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriptions %s: %w", userID, err)
	}
	var subs []model.UserSubscription
	if err := json.Unmarshal([]byte(raw), &subs); err != nil {
		return nil, fmt.Errorf("decode subscriptions %s: %w", userID, err)
	}
	out := make([]model.UserSubscription, 0, len(subs))
	for _, sub := range subs {
		if sub.Active {
			out = append(out, sub)
		}
	}
	return out, nil
}

// PutSubscriptions replaces a user's subscription set and mirrors
// active-feed membership into the feed->subscriber index
// ArchiveTierSubscribers reads.
func (s *Store) PutSubscriptions(ctx context.Context, userID string, subs []model.UserSubscription) error {
	payload, err := json.Marshal(subs)
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, subsKey(userID), payload, 0)
	for _, sub := range subs {
		if sub.Active {
			pipe.SAdd(ctx, feedSubscribersKey(sub.FeedID), userID)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) ArchiveTierSubscribers(ctx context.Context, feedID string, limit int) ([]string, error) {
	ids, err := s.rdb.SRandMemberN(ctx, feedSubscribersKey(feedID), int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("archive tier subscribers %s: %w", feedID, err)
	}
	return ids, nil
}

// EnsureBriefingFeed records the per-user briefing feed and the
// user-to-feed mapping on first call and returns the stored feed id on
// later calls. It does not create a UserSubscription for the feed.
func (s *Store) EnsureBriefingFeed(ctx context.Context, userID string) (string, error) {
	feedID := "briefing:" + userID
	set, err := s.rdb.SetNX(ctx, briefingFeedKey(userID), feedID, 0).Result()
	if err != nil {
		return "", fmt.Errorf("ensure briefing feed %s: %w", userID, err)
	}
	if set {
		if err := s.PutFeed(ctx, &model.Feed{FeedID: feedID, Title: "Daily Briefing"}); err != nil {
			return "", err
		}
		return feedID, nil
	}
	existing, err := s.rdb.Get(ctx, briefingFeedKey(userID)).Result()
	if err != nil {
		return "", fmt.Errorf("read briefing feed %s: %w", userID, err)
	}
	return existing, nil
}

func (s *Store) SetNeedsUnreadRecalc(ctx context.Context, userID, feedID string) error {
	return s.rdb.Set(ctx, "ext:unread_recalc:"+userID+":"+feedID, "1", 24*time.Hour).Err()
}

// --- ReadStateStore ---

func (s *Store) IsRead(ctx context.Context, userID, storyHash string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, readKey(userID), storyHash).Result()
	if err != nil {
		return false, fmt.Errorf("is read %s/%s: %w", userID, storyHash, err)
	}
	return ok, nil
}

// MarkRead records a story as read for a user. The engine itself never
// calls it; it serves tests and seed tooling.
func (s *Store) MarkRead(ctx context.Context, userID, storyHash string) error {
	return s.rdb.SAdd(ctx, readKey(userID), storyHash).Err()
}

// --- UserStore ---

type userRecord struct {
	Exists   bool   `json:"exists"`
	Timezone string `json:"timezone"`
}

func (s *Store) Exists(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, userKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("user exists %s: %w", userID, err)
	}
	return n > 0, nil
}

// PutUser registers a user record and default timezone.
func (s *Store) PutUser(ctx context.Context, userID, timezone string) error {
	payload, err := json.Marshal(userRecord{Exists: true, Timezone: timezone})
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, userKey(userID), payload, 0).Err()
}

func (s *Store) Preferences(ctx context.Context, userID string) (*model.BriefingPreferences, error) {
	raw, err := s.rdb.Get(ctx, prefsKey(userID)).Result()
	if err == redis.Nil {
		return model.NewDefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get prefs %s: %w", userID, err)
	}
	var prefs model.BriefingPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return nil, fmt.Errorf("decode prefs %s: %w", userID, err)
	}
	return &prefs, nil
}

// PutPreferences persists a user's briefing preferences.
func (s *Store) PutPreferences(ctx context.Context, prefs *model.BriefingPreferences) error {
	payload, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, prefsKey(prefs.UserID), payload, 0).Err()
}

func (s *Store) LocalHour(ctx context.Context, userID string, at time.Time) (int, error) {
	raw, err := s.rdb.Get(ctx, userKey(userID)).Result()
	if err == redis.Nil {
		return at.UTC().Hour(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("local hour %s: %w", userID, err)
	}
	var rec userRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Timezone == "" {
		return at.UTC().Hour(), nil
	}
	loc, err := time.LoadLocation(rec.Timezone)
	if err != nil {
		return at.UTC().Hour(), nil
	}
	return at.In(loc).Hour(), nil
}

// EnabledUserIDs satisfies worker.UserEnumerator by scanning the
// briefing-preferences keyspace for users with Enabled == true. Good
// enough for the single-instance deployment this engine targets; a
// production-scale fleet would back this with a real user-service
// query instead of a Redis SCAN.
func (s *Store) EnabledUserIDs(ctx context.Context) ([]string, error) {
	var out []string
	iter := s.rdb.Scan(ctx, 0, "ext:prefs:*", 200).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var prefs model.BriefingPreferences
		if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
			continue
		}
		if prefs.Enabled {
			out = append(out, prefs.UserID)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan enabled users: %w", err)
	}
	return out, nil
}

// --- BriefingStore ---

func (s *Store) Latest(ctx context.Context, userID string) (*model.Briefing, error) {
	ids, err := s.rdb.ZRevRangeByScore(ctx, briefingZKey(userID), &redis.ZRangeBy{
		Min: "-inf", Max: "+inf", Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("latest briefing %s: %w", userID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.getBriefing(ctx, userID, ids[0])
}

func (s *Store) ExistsInPeriod(ctx context.Context, userID string, periodStart, periodEnd time.Time) (bool, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, briefingZKey(userID), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", periodStart.Unix()),
		Max: fmt.Sprintf("%d", periodEnd.Unix()),
	}).Result()
	if err != nil {
		return false, fmt.Errorf("exists in period %s: %w", userID, err)
	}
	return len(ids) > 0, nil
}

func (s *Store) Save(ctx context.Context, b *model.Briefing) error {
	id := fmt.Sprintf("%d", b.GeneratedAt.UnixNano())
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, briefingKey(b.UserID, id), payload, 0)
	pipe.ZAdd(ctx, briefingZKey(b.UserID), redis.Z{Score: float64(b.GeneratedAt.Unix()), Member: id})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) InsertSummaryStory(ctx context.Context, feedID, title, html string) (string, error) {
	guidHash := fmt.Sprintf("summary-%d", time.Now().UTC().UnixNano())
	hash := feedID + ":" + guidHash
	st := &model.Story{
		StoryHash: hash,
		FeedID:    feedID,
		GUIDHash:  guidHash,
		Title:     title,
		PubDate:   time.Now().UTC(),
		Content:   html,
	}
	if err := s.PutStory(ctx, st); err != nil {
		return "", fmt.Errorf("insert summary story: %w", err)
	}
	return hash, nil
}

func (s *Store) getBriefing(ctx context.Context, userID, id string) (*model.Briefing, error) {
	raw, err := s.rdb.Get(ctx, briefingKey(userID, id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get briefing %s/%s: %w", userID, id, err)
	}
	var b model.Briefing
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("decode briefing %s/%s: %w", userID, id, err)
	}
	return &b, nil
}
