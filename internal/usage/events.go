// Package usage implements Redis-backed usage aggregation for the
// Clustering Engine and the Summary Orchestrator (spec §3 "Usage
// counters", spec §6 key table), exposed as a text metrics endpoint.
//
// Recording runs through a small async buffered pipeline — channel
// ingestion, ticker-driven batch flush, graceful Close — the same
// shape the teacher's analytics pipeline uses for high-volume event
// ingestion, sized down here for the much lower event rate a
// briefing/clustering workload produces.
package usage

import (
	"context"
	"time"
)

// ClusterEvent records one clustering run's contribution to the daily
// usage counters (spec §6 "clustering:*" keys).
type ClusterEvent struct {
	Date             string // YYYY-MM-DD
	ClusterIDs       []string
	StoryHashes      []string
	MarkReadExpanded int64
	DurationMS       int64
	CreatedAt        time.Time
}

// LLMEvent records one successful LLM call's cost accounting (spec §6
// "LLM:*" keys). It mirrors orchestrator.UsageEvent so the pipeline
// and sink work on usage's own types; Service converts between the two.
type LLMEvent struct {
	Date         string // YYYY-MM-DD
	Provider     string
	Model        string
	Feature      string
	InputTokens  int
	OutputTokens int
	CostMicro    int64
	UserID       string
	CreatedAt    time.Time
}

// Sink persists batches of usage events to their backing store.
type Sink interface {
	WriteClusterEvents(ctx context.Context, events []ClusterEvent) error
	WriteLLMEvents(ctx context.Context, events []LLMEvent) error
	Close() error
}
