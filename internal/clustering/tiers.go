package clustering

import (
	"sort"

	"github.com/newsbrief/engine/internal/model"
)

// maxInvertedIndexPostings is the most stories a significant word may
// index and still be used for Tier B pairing; a more common word is
// skipped entirely, bounding the pairwise comparison cost (spec §4.1
// Tier B, §9 design note).
const maxInvertedIndexPostings = 50

// tierAExactTitle groups stories by normalized title, dedupes by
// guid_hash (keeping the earliest-dated representative per guid), and
// unions representatives sharing a normalized title when at least two
// distinct resolved feeds are represented (spec §4.1 Tier A).
func tierAExactTitle(stories []model.Story, resolvedFeed map[string]string, uf *unionFind) {
	byTitle := make(map[string][]model.Story)
	for _, s := range stories {
		norm := NormalizeTitle(s.Title)
		if len(norm) < MinNormalizedTitleLen {
			continue
		}
		byTitle[norm] = append(byTitle[norm], s)
	}

	for _, group := range byTitle {
		reps := dedupeByGUID(group)
		if len(reps) < 2 {
			continue
		}
		feeds := make(map[string]bool, len(reps))
		for _, s := range reps {
			feeds[resolvedFeed[s.FeedID]] = true
		}
		if len(feeds) < 2 {
			continue
		}
		first := reps[0].StoryHash
		for _, s := range reps[1:] {
			uf.union(first, s.StoryHash)
		}
	}
}

// dedupeByGUID keeps one representative per guid_hash, preferring the
// earliest PubDate, and returns them sorted by PubDate ascending.
func dedupeByGUID(stories []model.Story) []model.Story {
	byGUID := make(map[string]model.Story, len(stories))
	for _, s := range stories {
		cur, ok := byGUID[s.GUIDHash]
		if !ok || s.PubDate.Before(cur.PubDate) {
			byGUID[s.GUIDHash] = s
		}
	}
	out := make([]model.Story, 0, len(byGUID))
	for _, s := range byGUID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PubDate.Before(out[j].PubDate) })
	return out
}

// tierBFuzzyOverlap considers only stories whose union-find component
// is still a singleton after Tier A, discards those with fewer than
// MinSignificantWords significant words, and unions pairs at or above
// a 0.60 Jaccard similarity over their significant-word sets — except
// pairs that already share a resolved feed or a guid_hash, which Tier A
// already decides or which aren't cross-feed duplicates (spec §4.1 Tier B).
func tierBFuzzyOverlap(stories []model.Story, resolvedFeed map[string]string, uf *unionFind) {
	type candidate struct {
		story model.Story
		words map[string]bool
	}
	var candidates []candidate
	for _, s := range stories {
		if uf.componentSize(s.StoryHash) != 1 {
			continue
		}
		words := SignificantWords(s.Title)
		if len(words) < MinSignificantWords {
			continue
		}
		candidates = append(candidates, candidate{story: s, words: words})
	}

	index := make(map[string][]int) // word -> candidate indices
	for i, c := range candidates {
		for w := range c.words {
			index[w] = append(index[w], i)
		}
	}

	compared := make(map[[2]int]bool)
	for i, c := range candidates {
		var neighborSet = make(map[int]bool)
		for w := range c.words {
			if len(index[w]) > maxInvertedIndexPostings {
				continue
			}
			for _, j := range index[w] {
				if j != i {
					neighborSet[j] = true
				}
			}
		}
		for j := range neighborSet {
			if i >= j {
				continue
			}
			pair := [2]int{i, j}
			if compared[pair] {
				continue
			}
			compared[pair] = true

			a, b := candidates[i], candidates[j]
			if a.story.GUIDHash == b.story.GUIDHash {
				continue
			}
			if resolvedFeed[a.story.FeedID] == resolvedFeed[b.story.FeedID] {
				continue
			}
			if JaccardSimilarity(a.words, b.words) >= 0.60 {
				uf.union(a.story.StoryHash, b.story.StoryHash)
			}
		}
	}
}

// emitClusters turns union-find components of size >= 2 into Cluster
// records: members sorted by StoryDate ascending, cluster id is the
// earliest member's hash, truncated to ClusterMaxMembers, and requiring
// at least two distinct guid_hash values and two distinct resolved
// feeds among the surviving members (spec §4.1 "Emit").
func emitClusters(uf *unionFind, storyByHash map[string]model.Story, resolvedFeed map[string]string) []model.Cluster {
	var out []model.Cluster
	for _, members := range uf.components() {
		if len(members) < 2 {
			continue
		}
		stories := make([]model.Story, 0, len(members))
		for _, h := range members {
			if s, ok := storyByHash[h]; ok {
				stories = append(stories, s)
			}
		}
		if len(stories) < 2 {
			continue
		}
		sort.Slice(stories, func(i, j int) bool { return stories[i].PubDate.Before(stories[j].PubDate) })

		feeds := make(map[string]bool, len(stories))
		guids := make(map[string]bool, len(stories))
		for _, s := range stories {
			feeds[resolvedFeed[s.FeedID]] = true
			guids[s.GUIDHash] = true
		}
		if len(feeds) < 2 || len(guids) < 2 {
			continue
		}

		if len(stories) > model.ClusterMaxMembers {
			stories = stories[:model.ClusterMaxMembers]
		}
		hashes := make([]string, len(stories))
		for i, s := range stories {
			hashes[i] = s.StoryHash
		}
		out = append(out, model.Cluster{ClusterID: hashes[0], Members: hashes})
	}
	return out
}
