package clustering

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
)

// SemanticHit is one result from a VectorSearch query.
type SemanticHit struct {
	StoryHash string
	Relevance float64 // 0-100
}

// VectorSearch is the external vector-search service contract for
// Tier C (spec §4.1). A connection-level error (e.g. the service is
// unreachable) should be returned as err; per-story "not found" is a
// nil error with zero hits.
type VectorSearch interface {
	Query(ctx context.Context, title string, restrictFeeds []string, minRelevance float64, size int) ([]SemanticHit, error)
}

// InMemoryVectorIndex is a cosine-similarity approximation of a real
// vector-search service, adequate for small/self-hosted deployments
// and for tests. Repurposed from a semantic prompt→response cache
// (namespace→entries, embedding similarity, top-K) into a semantic
// index of story title→story.
type InMemoryVectorIndex struct {
	mu       sync.RWMutex
	entries  []vectorEntry
	embedFn  EmbeddingFunc
}

type vectorEntry struct {
	StoryHash string
	FeedID    string
	Embedding []float64
}

// EmbeddingFunc generates an embedding vector for a title string.
type EmbeddingFunc func(ctx context.Context, title string) ([]float64, error)

// NewInMemoryVectorIndex creates an index backed by embedFn.
func NewInMemoryVectorIndex(embedFn EmbeddingFunc) *InMemoryVectorIndex {
	return &InMemoryVectorIndex{embedFn: embedFn}
}

// Index adds or replaces a story's embedding in the index.
func (idx *InMemoryVectorIndex) Index(ctx context.Context, storyHash, feedID, title string) error {
	emb, err := idx.embedFn(ctx, title)
	if err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, e := range idx.entries {
		if e.StoryHash == storyHash {
			idx.entries[i].Embedding = emb
			idx.entries[i].FeedID = feedID
			return nil
		}
	}
	idx.entries = append(idx.entries, vectorEntry{StoryHash: storyHash, FeedID: feedID, Embedding: emb})
	return nil
}

// Query implements VectorSearch by scanning the in-memory index.
func (idx *InMemoryVectorIndex) Query(ctx context.Context, title string, restrictFeeds []string, minRelevance float64, size int) ([]SemanticHit, error) {
	emb, err := idx.embedFn(ctx, title)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(restrictFeeds))
	for _, f := range restrictFeeds {
		allowed[f] = true
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]SemanticHit, 0, len(idx.entries))
	for _, e := range idx.entries {
		if len(allowed) > 0 && !allowed[e.FeedID] {
			continue
		}
		sim := cosineSimilarity(emb, e.Embedding) * 100
		if sim < minRelevance {
			continue
		}
		hits = append(hits, SemanticHit{StoryHash: e.StoryHash, Relevance: sim})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Relevance > hits[j].Relevance })
	if len(hits) > size {
		hits = hits[:size]
	}
	return hits, nil
}

const hashEmbeddingDims = 256

// HashEmbedding returns a deterministic bag-of-words EmbeddingFunc
// that hashes each title word into a fixed-width vector. It has none
// of a real embedding model's semantic nuance, but it is a dependency-
// free stand-in for InMemoryVectorIndex when no external vector-search
// service (Config.VectorSearchBaseURL) is configured — self-hosted
// deployments still get a working Tier C instead of none at all.
func HashEmbedding() EmbeddingFunc {
	return func(ctx context.Context, title string) ([]float64, error) {
		vec := make([]float64, hashEmbeddingDims)
		for _, word := range strings.Fields(strings.ToLower(title)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[int(h.Sum32())%hashEmbeddingDims]++
		}
		return vec, nil
	}
}

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
