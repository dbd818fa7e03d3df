package worker

import (
	"context"
	"testing"
	"time"

	"github.com/newsbrief/engine/internal/clustering"
	"github.com/newsbrief/engine/internal/llmprovider"
	"github.com/newsbrief/engine/internal/model"
	"github.com/newsbrief/engine/internal/orchestrator"
	"github.com/newsbrief/engine/internal/scoring"
	"github.com/rs/zerolog"
)

type fakeUserEnumerator struct {
	ids []string
	err error
}

func (f *fakeUserEnumerator) EnabledUserIDs(ctx context.Context) ([]string, error) {
	return f.ids, f.err
}

func newTestWorker(t *testing.T, users *fakeUserStore) *Worker {
	t.Helper()
	rdb := newTestRedis(t)
	log := zerolog.Nop()

	subs := &fakeSubStore{feedID: "briefing-feed-u1"}
	stories := &fakeStoryStore{byHash: map[string]*model.Story{}}
	feeds := &fakeFeedStore{byID: map[string]*model.Feed{}}
	clusterer := clustering.New(rdb.C, subs, stories, feeds, nil, clustering.DefaultConfig(), log)
	scorer := scoring.New(rdb.C, subs, stories, feeds, fakeReadState{}, clusterer, fakeTrending{}, log)

	registry := llmprovider.NewRegistry("test-model")
	pricing := llmprovider.DefaultPricing()
	orch := orchestrator.New(registry, &pricing, nil, log)

	return New(rdb, users, subs, &fakeBriefingStore{}, scorer, orch, Config{LockTTL: 840 * time.Second}, log)
}

func TestDispatcherTickRunsEligibleUsers(t *testing.T) {
	prefs := model.NewDefaultPreferences("u1")
	prefs.Enabled = false // drives a fast, deterministic OutcomeSkipped per-user run
	users := &fakeUserStore{prefs: prefs}
	w := newTestWorker(t, users)

	enumerator := &fakeUserEnumerator{ids: []string{"u1", "u2"}}
	log := zerolog.Nop()
	d := NewDispatcher(w.rdb, enumerator, w, 4, 840*time.Second, log)

	d.Tick(context.Background())

	locked, err := w.rdb.C.Exists(context.Background(), crossUserLockKey).Result()
	if err != nil {
		t.Fatalf("check lock: %v", err)
	}
	if locked != 1 {
		t.Fatal("expected cross-user lock to remain set for its TTL after a tick")
	}

	// Each dispatched (non-on-demand) run takes its per-user lock and
	// leaves it to expire, so a set lock shows the user was run.
	for _, id := range enumerator.ids {
		n, err := w.rdb.C.Exists(context.Background(), perUserLockKey(id)).Result()
		if err != nil {
			t.Fatalf("check per-user lock for %s: %v", id, err)
		}
		if n != 1 {
			t.Errorf("expected user %s to have been run", id)
		}
	}
}

func TestDispatcherTickSkipsWhenLockContended(t *testing.T) {
	prefs := model.NewDefaultPreferences("u1")
	users := &fakeUserStore{prefs: prefs}
	w := newTestWorker(t, users)

	acquired, err := w.rdb.AcquireLock(context.Background(), crossUserLockKey, 840*time.Second)
	if err != nil || !acquired {
		t.Fatalf("expected to seed the lock, got acquired=%v err=%v", acquired, err)
	}

	calls := 0
	enumerator := &countingEnumerator{fakeUserEnumerator: fakeUserEnumerator{ids: []string{"u1"}}, calls: &calls}
	log := zerolog.Nop()
	d := NewDispatcher(w.rdb, enumerator, w, 4, 840*time.Second, log)

	d.Tick(context.Background())

	if calls != 0 {
		t.Fatalf("expected enumerator not to be consulted when the cross-user lock is held, got %d calls", calls)
	}
}

type countingEnumerator struct {
	fakeUserEnumerator
	calls *int
}

func (c *countingEnumerator) EnabledUserIDs(ctx context.Context) ([]string, error) {
	*c.calls++
	return c.fakeUserEnumerator.EnabledUserIDs(ctx)
}
