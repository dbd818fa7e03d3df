package usage

import (
	"context"
	"time"

	"github.com/newsbrief/engine/internal/orchestrator"
)

// Service is the wiring point main.go constructs: a Pipeline feeding a
// RedisSink, plus the live Registry the /metrics endpoint reads from.
// It implements orchestrator.UsageRecorder without the orchestrator
// package needing to import usage's event types directly.
type Service struct {
	pipeline *Pipeline
	registry *Registry
	now      func() time.Time
}

// NewService starts the pipeline and returns a ready Service.
func NewService(ctx context.Context, pipeline *Pipeline) *Service {
	pipeline.Start(ctx)
	return &Service{pipeline: pipeline, registry: NewRegistry(), now: time.Now}
}

// Registry exposes the live metrics registry for the /metrics handler.
func (s *Service) Registry() *Registry { return s.registry }

// RecordLLMUsage implements orchestrator.UsageRecorder, funneling the
// call through the buffered pipeline and the live metrics registry.
func (s *Service) RecordLLMUsage(ctx context.Context, event orchestrator.UsageEvent) error {
	date := s.now().UTC().Format("2006-01-02")
	s.pipeline.TrackLLM(LLMEvent{
		Date:         date,
		Provider:     event.Provider,
		Model:        event.ModelID,
		Feature:      event.Feature,
		InputTokens:  event.InputTokens,
		OutputTokens: event.OutputTokens,
		CostMicro:    event.CostMicro,
		UserID:       event.UserID,
		CreatedAt:    s.now().UTC(),
	})

	labels := map[string]string{"provider": event.Provider, "model": sanitizeModelName(event.ModelID), "feature": event.Feature}
	s.registry.Add("llm_requests_total", labels, 1)
	s.registry.Add("llm_tokens_total", labels, float64(event.InputTokens+event.OutputTokens))
	s.registry.Add("llm_cost_micro_total", labels, float64(event.CostMicro))
	return nil
}

// RecordClusterRun submits one clustering run's counters (spec §6
// "clustering:*" keys) and mirrors them into the live registry.
func (s *Service) RecordClusterRun(ctx context.Context, clusterIDs, storyHashes []string, markReadExpanded, durationMS int64) {
	date := s.now().UTC().Format("2006-01-02")
	s.pipeline.TrackCluster(ClusterEvent{
		Date:             date,
		ClusterIDs:       clusterIDs,
		StoryHashes:      storyHashes,
		MarkReadExpanded: markReadExpanded,
		DurationMS:       durationMS,
		CreatedAt:        s.now().UTC(),
	})

	s.registry.Add("clustering_clusters_total", nil, float64(len(clusterIDs)))
	s.registry.Add("clustering_stories_total", nil, float64(len(storyHashes)))
	if markReadExpanded > 0 {
		s.registry.Add("clustering_mark_read_expanded_total", nil, float64(markReadExpanded))
	}
	if durationMS > 0 {
		s.registry.Add("clustering_run_duration_ms_total", nil, float64(durationMS))
		s.registry.Add("clustering_run_count", nil, 1)
	}
}

// Stats returns pipeline throughput counters.
func (s *Service) Stats() Stats { return s.pipeline.Stats() }

// Close stops the pipeline and flushes whatever is buffered.
func (s *Service) Close() { s.pipeline.Stop() }
