package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/newsbrief/engine/internal/clustering"
	"github.com/newsbrief/engine/internal/llmprovider"
	"github.com/newsbrief/engine/internal/model"
	"github.com/newsbrief/engine/internal/orchestrator"
	"github.com/newsbrief/engine/internal/redisclient"
	"github.com/newsbrief/engine/internal/scoring"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeUserStore struct {
	prefs     *model.BriefingPreferences
	localHour int
}

func (f *fakeUserStore) Exists(ctx context.Context, userID string) (bool, error) { return true, nil }
func (f *fakeUserStore) Preferences(ctx context.Context, userID string) (*model.BriefingPreferences, error) {
	return f.prefs, nil
}
func (f *fakeUserStore) LocalHour(ctx context.Context, userID string, at time.Time) (int, error) {
	return f.localHour, nil
}

type fakeSubStore struct {
	subs   []model.UserSubscription
	feedID string
}

func (f *fakeSubStore) ActiveSubscriptions(ctx context.Context, userID string) ([]model.UserSubscription, error) {
	return f.subs, nil
}
func (f *fakeSubStore) ArchiveTierSubscribers(ctx context.Context, feedID string, limit int) ([]string, error) {
	return nil, nil
}
func (f *fakeSubStore) EnsureBriefingFeed(ctx context.Context, userID string) (string, error) {
	return f.feedID, nil
}
func (f *fakeSubStore) SetNeedsUnreadRecalc(ctx context.Context, userID, feedID string) error {
	return nil
}

type fakeStoryStore struct {
	byHash map[string]*model.Story
}

func (f *fakeStoryStore) GetStories(ctx context.Context, hashes []string) (map[string]*model.Story, error) {
	out := make(map[string]*model.Story)
	for _, h := range hashes {
		if s, ok := f.byHash[h]; ok {
			out[h] = s
		}
	}
	return out, nil
}

type fakeFeedStore struct {
	byID map[string]*model.Feed
}

func (f *fakeFeedStore) GetFeed(ctx context.Context, feedID string) (*model.Feed, error) {
	return f.byID[feedID], nil
}

type fakeReadState struct{}

func (fakeReadState) IsRead(ctx context.Context, userID, storyHash string) (bool, error) {
	return false, nil
}

type fakeTrending struct{}

func (fakeTrending) FeedScore(ctx context.Context, feedID string, now time.Time) (float64, error) {
	return 0, nil
}
func (fakeTrending) GlobalScore(ctx context.Context, storyHash string, now time.Time) (float64, error) {
	return 0, nil
}

type fakeBriefingStore struct {
	saved     *model.Briefing
	nextHash  string
	storyHTML string
}

func (f *fakeBriefingStore) Latest(ctx context.Context, userID string) (*model.Briefing, error) {
	return nil, nil
}
func (f *fakeBriefingStore) ExistsInPeriod(ctx context.Context, userID string, periodStart, periodEnd time.Time) (bool, error) {
	return false, nil
}
func (f *fakeBriefingStore) Save(ctx context.Context, b *model.Briefing) error {
	f.saved = b
	return nil
}
func (f *fakeBriefingStore) InsertSummaryStory(ctx context.Context, feedID, title, html string) (string, error) {
	f.storyHTML = html
	return f.nextHash, nil
}

type fakeProvider struct {
	html string
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) IsConfigured() bool   { return true }
func (f *fakeProvider) LastUsage() llmprovider.Usage {
	return llmprovider.Usage{InputTokens: 100, OutputTokens: 50}
}
func (f *fakeProvider) Generate(ctx context.Context, messages []llmprovider.Message, modelID string, maxTokens int) (string, error) {
	return f.html, nil
}

func newTestRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return &redisclient.Client{C: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

func TestRunBriefingHappyPath(t *testing.T) {
	rdb := newTestRedis(t)
	log := zerolog.Nop()

	story := &model.Story{StoryHash: "feed1:guid1", FeedID: "feed1", Title: "Big News", WordCount: 400}
	stories := &fakeStoryStore{byHash: map[string]*model.Story{"feed1:guid1": story}}
	feeds := &fakeFeedStore{byID: map[string]*model.Feed{"feed1": {FeedID: "feed1", Title: "Feed One"}}}
	subs := &fakeSubStore{
		subs:   []model.UserSubscription{{UserID: "u1", FeedID: "feed1", Active: true}},
		feedID: "briefing-feed-u1",
	}

	clusterCfg := clustering.DefaultConfig()
	clusterer := clustering.New(rdb.C, subs, stories, feeds, nil, clusterCfg, log)

	scorer := scoring.New(rdb.C, subs, stories, feeds, fakeReadState{}, clusterer, fakeTrending{}, log)

	ctx := context.Background()
	if err := rdb.C.ZAdd(ctx, "zF:feed1", redis.Z{Score: float64(time.Now().Unix()), Member: "feed1:guid1"}).Err(); err != nil {
		t.Fatalf("seed feed index: %v", err)
	}

	pricing := llmprovider.DefaultPricing()
	registry := llmprovider.NewRegistry("test-model")
	provider := &fakeProvider{html: `<div class="NB-briefing-summary"><h3 data-section="trending_global">Top</h3><p>Big news <a data-story-hash="feed1:guid1">link</a></p></div>`}
	registry.RegisterProvider(provider)
	registry.RegisterModel("test-model", "fake", "fake-v1", "fake")

	orch := orchestrator.New(registry, &pricing, nil, log)

	prefs := model.NewDefaultPreferences("u1")
	prefs.BriefingModel = "test-model"
	prefs.Frequency = model.FrequencyTwiceDaily // minimum of 1 candidate, matching the single seeded story
	users := &fakeUserStore{prefs: prefs, localHour: 8}
	briefings := &fakeBriefingStore{nextHash: "briefing-feed-u1:summary1"}

	w := New(rdb, users, subs, briefings, scorer, orch, Config{
		LockTTL:     840 * time.Second,
		SiteBaseURL: "https://app.example.com",
		FilterMode:  0,
	}, log)

	outcome := w.RunBriefing(ctx, "u1", false)
	if outcome != OutcomeDone {
		t.Fatalf("expected OutcomeDone, got %v", outcome)
	}
	if briefings.saved == nil {
		t.Fatal("expected briefing to be saved")
	}
	if briefings.saved.SummaryStoryHash != "briefing-feed-u1:summary1" {
		t.Errorf("unexpected summary story hash: %v", briefings.saved.SummaryStoryHash)
	}
	if len(briefings.saved.CuratedStoryHashes) != 1 {
		t.Errorf("expected 1 curated hash, got %v", briefings.saved.CuratedStoryHashes)
	}
}

func TestRunBriefingSkipsWhenDisabled(t *testing.T) {
	rdb := newTestRedis(t)
	log := zerolog.Nop()

	subs := &fakeSubStore{feedID: "briefing-feed-u1"}
	stories := &fakeStoryStore{byHash: map[string]*model.Story{}}
	feeds := &fakeFeedStore{byID: map[string]*model.Feed{}}
	clusterer := clustering.New(rdb.C, subs, stories, feeds, nil, clustering.DefaultConfig(), log)
	scorer := scoring.New(rdb.C, subs, stories, feeds, fakeReadState{}, clusterer, fakeTrending{}, log)

	prefs := model.NewDefaultPreferences("u1")
	prefs.Enabled = false
	users := &fakeUserStore{prefs: prefs}
	briefings := &fakeBriefingStore{}

	registry := llmprovider.NewRegistry("test-model")
	pricing := llmprovider.DefaultPricing()
	orch := orchestrator.New(registry, &pricing, nil, log)

	w := New(rdb, users, subs, briefings, scorer, orch, Config{LockTTL: 840 * time.Second}, log)

	if outcome := w.RunBriefing(context.Background(), "u1", false); outcome != OutcomeSkipped {
		t.Fatalf("expected OutcomeSkipped, got %v", outcome)
	}
}
