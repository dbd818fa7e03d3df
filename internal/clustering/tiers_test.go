package clustering

import (
	"testing"
	"time"

	"github.com/newsbrief/engine/internal/model"
)

func mkStory(hash, feedID, guid, title string, pub time.Time) model.Story {
	return model.Story{
		StoryHash: hash,
		FeedID:    feedID,
		GUIDHash:  guid,
		Title:     title,
		PubDate:   pub,
	}
}

func TestNormalizeTitleBoundary(t *testing.T) {
	// "short one" normalizes to 9 chars (below the floor); "short ones"
	// normalizes to 10 (at the floor).
	if got := NormalizeTitle("short one"); len(got) != 9 {
		t.Fatalf("expected len 9, got %d (%q)", len(got), got)
	}
	if got := NormalizeTitle("short ones"); len(got) != MinNormalizedTitleLen {
		t.Fatalf("expected len %d, got %d (%q)", MinNormalizedTitleLen, len(got), got)
	}
}

func TestTierAExactTitleRequiresTwoFeeds(t *testing.T) {
	now := time.Now()
	title := "Senate Passes Landmark Infrastructure Bill Today"
	stories := []model.Story{
		mkStory("f1:g1", "f1", "g1", title, now),
		mkStory("f1:g2", "f1", "g2", title, now.Add(time.Minute)),
	}
	resolved := map[string]string{"f1": "f1"}
	hashes := []string{"f1:g1", "f1:g2"}
	uf := newUnionFind(hashes)
	tierAExactTitle(stories, resolved, uf)

	if uf.componentSize("f1:g1") != 1 {
		t.Fatalf("expected no union across same-feed duplicates, got component size %d", uf.componentSize("f1:g1"))
	}
}

func TestTierAExactTitleUnionsAcrossFeeds(t *testing.T) {
	now := time.Now()
	title := "Senate Passes Landmark Infrastructure Bill Today"
	stories := []model.Story{
		mkStory("f1:g1", "f1", "g1", title, now),
		mkStory("f2:g2", "f2", "g2", title, now.Add(time.Minute)),
	}
	resolved := map[string]string{"f1": "f1", "f2": "f2"}
	uf := newUnionFind([]string{"f1:g1", "f2:g2"})
	tierAExactTitle(stories, resolved, uf)

	if uf.componentSize("f1:g1") != 2 {
		t.Fatalf("expected union across feeds, got component size %d", uf.componentSize("f1:g1"))
	}
}

func TestSignificantWordsBoundary(t *testing.T) {
	// Exactly 4 significant words: below the floor.
	four := SignificantWords("Senate Passes Infrastructure Bill")
	if len(four) != 4 {
		t.Fatalf("expected 4 significant words, got %d (%v)", len(four), four)
	}
	// Exactly 5: at the floor.
	five := SignificantWords("Senate Passes Landmark Infrastructure Bill")
	if len(five) != 5 {
		t.Fatalf("expected 5 significant words, got %d (%v)", len(five), five)
	}
}

func TestJaccardSimilarityBoundary(t *testing.T) {
	a := map[string]bool{"alpha": true, "bravo": true, "charlie": true, "delta": true, "echo": true}
	// b shares 3 of 5 with a plus two unique -> union=7, intersection=3 -> 3/7 < 0.60
	b := map[string]bool{"alpha": true, "bravo": true, "charlie": true, "foxtrot": true, "golf": true}
	if sim := JaccardSimilarity(a, b); sim >= 0.60 {
		t.Fatalf("expected similarity below threshold, got %f", sim)
	}
	// c shares 4 of 5 with a plus one unique -> union=6, intersection=4 -> 0.666... >= 0.60
	c := map[string]bool{"alpha": true, "bravo": true, "charlie": true, "delta": true, "golf": true}
	if sim := JaccardSimilarity(a, c); sim < 0.60 {
		t.Fatalf("expected similarity at/above threshold, got %f", sim)
	}
}

func TestTierBFuzzyOverlapUnionsAboveThreshold(t *testing.T) {
	now := time.Now()
	titleA := "Wildfire Forces Thousands To Evacuate Coastal Towns"
	titleB := "Wildfire Forces Thousands To Evacuate Coastal Cities"
	stories := []model.Story{
		mkStory("f1:g1", "f1", "g1", titleA, now),
		mkStory("f2:g2", "f2", "g2", titleB, now.Add(time.Minute)),
	}
	resolved := map[string]string{"f1": "f1", "f2": "f2"}
	uf := newUnionFind([]string{"f1:g1", "f2:g2"})
	tierBFuzzyOverlap(stories, resolved, uf)

	if uf.componentSize("f1:g1") != 2 {
		t.Fatalf("expected fuzzy union, got component size %d", uf.componentSize("f1:g1"))
	}
}

func TestTierBFuzzyOverlapSkipsSameResolvedFeed(t *testing.T) {
	now := time.Now()
	titleA := "Wildfire Forces Thousands To Evacuate Coastal Towns"
	titleB := "Wildfire Forces Thousands To Evacuate Coastal Cities"
	stories := []model.Story{
		mkStory("f1:g1", "f1", "g1", titleA, now),
		mkStory("f1b:g2", "f1b", "g2", titleB, now.Add(time.Minute)),
	}
	// f1b branches from f1, so both resolve to the same original feed.
	resolved := map[string]string{"f1": "f1", "f1b": "f1"}
	uf := newUnionFind([]string{"f1:g1", "f1b:g2"})
	tierBFuzzyOverlap(stories, resolved, uf)

	if uf.componentSize("f1:g1") != 1 {
		t.Fatalf("expected no union across same resolved feed, got component size %d", uf.componentSize("f1:g1"))
	}
}

func TestTierBFuzzyOverlapSkipsBelowMinWords(t *testing.T) {
	now := time.Now()
	stories := []model.Story{
		mkStory("f1:g1", "f1", "g1", "Senate Passes Infrastructure Bill", now),
		mkStory("f2:g2", "f2", "g2", "Senate Passes Infrastructure Law", now.Add(time.Minute)),
	}
	resolved := map[string]string{"f1": "f1", "f2": "f2"}
	uf := newUnionFind([]string{"f1:g1", "f2:g2"})
	tierBFuzzyOverlap(stories, resolved, uf)

	if uf.componentSize("f1:g1") != 1 {
		t.Fatalf("expected no union below significant-word floor, got component size %d", uf.componentSize("f1:g1"))
	}
}

func TestEmitClustersOrdersByDateAndCapsMembers(t *testing.T) {
	base := time.Now()
	hashes := make([]string, 0, 12)
	stories := make(map[string]model.Story, 12)
	for i := 0; i < 12; i++ {
		h := "f" + string(rune('a'+i)) + ":g"
		hashes = append(hashes, h)
		stories[h] = mkStory(h, "f"+string(rune('a'+i)), "g"+string(rune('a'+i)), "irrelevant", base.Add(time.Duration(12-i)*time.Minute))
	}
	resolved := make(map[string]string, 12)
	for i := 0; i < 12; i++ {
		resolved["f"+string(rune('a'+i))] = "f" + string(rune('a'+i))
	}
	uf := newUnionFind(hashes)
	for i := 1; i < len(hashes); i++ {
		uf.union(hashes[0], hashes[i])
	}

	clusters := emitClusters(uf, stories, resolved)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if len(c.Members) != model.ClusterMaxMembers {
		t.Fatalf("expected %d members, got %d", model.ClusterMaxMembers, len(c.Members))
	}
	// earliest PubDate is the last story appended (base + 1*time.Minute).
	if c.ClusterID != c.Members[0] {
		t.Fatalf("cluster id must equal first (earliest) member")
	}
}

func TestEmitClustersRequiresTwoDistinctFeeds(t *testing.T) {
	now := time.Now()
	hashes := []string{"f1:g1", "f1:g2"}
	stories := map[string]model.Story{
		"f1:g1": mkStory("f1:g1", "f1", "g1", "x", now),
		"f1:g2": mkStory("f1:g2", "f1", "g2", "x", now.Add(time.Minute)),
	}
	resolved := map[string]string{"f1": "f1"}
	uf := newUnionFind(hashes)
	uf.union("f1:g1", "f1:g2")

	clusters := emitClusters(uf, stories, resolved)
	if len(clusters) != 0 {
		t.Fatalf("expected no clusters for single-feed component, got %d", len(clusters))
	}
}
