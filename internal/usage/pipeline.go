package usage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// PipelineConfig controls batching and backpressure for the pipeline.
type PipelineConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
}

// DefaultPipelineConfig returns sizing appropriate for one clustering
// run and one briefing generation per user per day, rather than the
// request-volume defaults of a gateway's analytics pipeline.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BufferSize:    2000,
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		MaxRetries:    3,
		RetryDelay:    250 * time.Millisecond,
	}
}

// Pipeline buffers ClusterEvent and LLMEvent submissions and flushes
// them to a Sink on a ticker or when a batch fills, so callers on the
// clustering and scoring hot paths never block on a Redis round trip.
type Pipeline struct {
	logger zerolog.Logger
	config PipelineConfig
	sink   Sink

	clusterCh chan ClusterEvent
	llmCh     chan LLMEvent

	wg     sync.WaitGroup
	cancel context.CancelFunc

	eventsReceived int64
	eventsWritten  int64
	eventsDropped  int64
	flushErrors    int64
}

// NewPipeline wires a sink behind the buffered channel pattern.
func NewPipeline(logger zerolog.Logger, sink Sink, config ...PipelineConfig) *Pipeline {
	cfg := DefaultPipelineConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	return &Pipeline{
		logger:    logger.With().Str("component", "usage-pipeline").Logger(),
		config:    cfg,
		sink:      sink,
		clusterCh: make(chan ClusterEvent, cfg.BufferSize),
		llmCh:     make(chan LLMEvent, cfg.BufferSize),
	}
}

// Start launches the flush workers.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(2)
	go p.clusterWorker(ctx)
	go p.llmWorker(ctx)

	p.logger.Info().
		Int("buffer_size", p.config.BufferSize).
		Int("batch_size", p.config.BatchSize).
		Dur("flush_interval", p.config.FlushInterval).
		Msg("usage pipeline started")
}

// Stop cancels the workers, drains anything left in the channels, and
// closes the sink.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.drainCluster()
	p.drainLLM()

	if p.sink != nil {
		_ = p.sink.Close()
	}

	p.logger.Info().
		Int64("received", atomic.LoadInt64(&p.eventsReceived)).
		Int64("written", atomic.LoadInt64(&p.eventsWritten)).
		Int64("dropped", atomic.LoadInt64(&p.eventsDropped)).
		Int64("flush_errors", atomic.LoadInt64(&p.flushErrors)).
		Msg("usage pipeline stopped")
}

// TrackCluster submits a cluster-run event. Non-blocking: drops the
// event if the buffer is full rather than stalling the clustering run.
func (p *Pipeline) TrackCluster(event ClusterEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	select {
	case p.clusterCh <- event:
		atomic.AddInt64(&p.eventsReceived, 1)
	default:
		atomic.AddInt64(&p.eventsDropped, 1)
		p.logger.Warn().Str("date", event.Date).Msg("cluster usage event dropped: buffer full")
	}
}

// TrackLLM submits an LLM cost event. Non-blocking.
func (p *Pipeline) TrackLLM(event LLMEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	select {
	case p.llmCh <- event:
		atomic.AddInt64(&p.eventsReceived, 1)
	default:
		atomic.AddInt64(&p.eventsDropped, 1)
		p.logger.Warn().Str("model", event.Model).Msg("llm usage event dropped: buffer full")
	}
}

func (p *Pipeline) clusterWorker(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]ClusterEvent, 0, p.config.BatchSize)
	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				p.flushCluster(batch)
			}
			return
		case event := <-p.clusterCh:
			batch = append(batch, event)
			if len(batch) >= p.config.BatchSize {
				p.flushCluster(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flushCluster(batch)
				batch = batch[:0]
			}
		}
	}
}

func (p *Pipeline) llmWorker(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]LLMEvent, 0, p.config.BatchSize)
	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				p.flushLLM(batch)
			}
			return
		case event := <-p.llmCh:
			batch = append(batch, event)
			if len(batch) >= p.config.BatchSize {
				p.flushLLM(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flushLLM(batch)
				batch = batch[:0]
			}
		}
	}
}

func (p *Pipeline) flushCluster(batch []ClusterEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		err = p.sink.WriteClusterEvents(ctx, batch)
		if err == nil {
			atomic.AddInt64(&p.eventsWritten, int64(len(batch)))
			return
		}
		p.logger.Warn().Err(err).Int("attempt", attempt+1).Int("batch_size", len(batch)).Msg("cluster usage flush failed")
		if attempt < p.config.MaxRetries {
			time.Sleep(p.config.RetryDelay * time.Duration(1<<uint(attempt)))
		}
	}
	atomic.AddInt64(&p.flushErrors, 1)
	atomic.AddInt64(&p.eventsDropped, int64(len(batch)))
	p.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("cluster usage batch dropped after retries")
}

func (p *Pipeline) flushLLM(batch []LLMEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		err = p.sink.WriteLLMEvents(ctx, batch)
		if err == nil {
			atomic.AddInt64(&p.eventsWritten, int64(len(batch)))
			return
		}
		p.logger.Warn().Err(err).Int("attempt", attempt+1).Int("batch_size", len(batch)).Msg("llm usage flush failed")
		if attempt < p.config.MaxRetries {
			time.Sleep(p.config.RetryDelay * time.Duration(1<<uint(attempt)))
		}
	}
	atomic.AddInt64(&p.flushErrors, 1)
	atomic.AddInt64(&p.eventsDropped, int64(len(batch)))
	p.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("llm usage batch dropped after retries")
}

func (p *Pipeline) drainCluster() {
	batch := make([]ClusterEvent, 0, p.config.BatchSize)
	for {
		select {
		case event := <-p.clusterCh:
			batch = append(batch, event)
			if len(batch) >= p.config.BatchSize {
				p.flushCluster(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				p.flushCluster(batch)
			}
			return
		}
	}
}

func (p *Pipeline) drainLLM() {
	batch := make([]LLMEvent, 0, p.config.BatchSize)
	for {
		select {
		case event := <-p.llmCh:
			batch = append(batch, event)
			if len(batch) >= p.config.BatchSize {
				p.flushLLM(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				p.flushLLM(batch)
			}
			return
		}
	}
}

// Stats reports current pipeline counters.
type Stats struct {
	Received    int64
	Written     int64
	Dropped     int64
	FlushErrors int64
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Received:    atomic.LoadInt64(&p.eventsReceived),
		Written:     atomic.LoadInt64(&p.eventsWritten),
		Dropped:     atomic.LoadInt64(&p.eventsDropped),
		FlushErrors: atomic.LoadInt64(&p.flushErrors),
	}
}
