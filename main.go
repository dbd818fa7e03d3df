package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newsbrief/engine/internal/activity"
	"github.com/newsbrief/engine/internal/clustering"
	"github.com/newsbrief/engine/internal/config"
	"github.com/newsbrief/engine/internal/datastore"
	"github.com/newsbrief/engine/internal/llmprovider"
	"github.com/newsbrief/engine/internal/logger"
	"github.com/newsbrief/engine/internal/orchestrator"
	"github.com/newsbrief/engine/internal/redisclient"
	"github.com/newsbrief/engine/internal/scoring"
	"github.com/newsbrief/engine/internal/sections"
	"github.com/newsbrief/engine/internal/server"
	"github.com/newsbrief/engine/internal/usage"
	"github.com/newsbrief/engine/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("briefing engine starting")

	rdb, err := redisclient.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("redis init failed")
	}
	ctx := context.Background()
	if err := rdb.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}
	log.Info().Msg("redis connected")

	store := datastore.New(rdb.C)

	registry := registerProviders(cfg, log)
	pricing := llmprovider.DefaultPricing()

	usagePipeline := usage.NewPipeline(log, usage.NewRedisSink(rdb.C, cfg.UsageDailyTTL, cfg.LLMDailyTTL))
	usageService := usage.NewService(ctx, usagePipeline)

	orch := orchestrator.New(registry, pricing, usageService, log)

	var vectorSearch clustering.VectorSearch
	if cfg.SemanticClusteringEnabled {
		if cfg.VectorSearchBaseURL != "" {
			vectorSearch = clustering.NewHTTPVectorSearch(cfg.VectorSearchBaseURL, cfg.DefaultTimeout)
		} else {
			vectorSearch = clustering.NewInMemoryVectorIndex(clustering.HashEmbedding())
		}
	}
	clusterCfg := clustering.DefaultConfig()
	clusterCfg.SemanticEnabled = cfg.SemanticClusteringEnabled
	clusterCfg.ClusterTTL = cfg.ClusterTTL
	clusterCfg.LookbackWindow = cfg.ClusterLookbackWindow
	clusterer := clustering.New(rdb.C, store, store, store, vectorSearch, clusterCfg, log)

	trending := scoring.NewRedisTrendingSource(rdb.C)
	scorer := scoring.New(rdb.C, store, store, store, store, clusterer, trending, log)

	tracker := activity.New(rdb.C)

	briefingWorker := worker.New(rdb, store, store, store, scorer, orch, worker.Config{
		LockTTL:     cfg.PerUserLockTTL,
		SiteBaseURL: cfg.SiteBaseURL,
		FilterMode:  sections.FilterKeepDefault,
	}, log)

	dispatcher := worker.NewDispatcher(rdb, store, briefingWorker, cfg.DispatchConcurrency, cfg.CrossUserLockTTL, log)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	go dispatcher.Run(dispatchCtx, cfg.DispatchInterval)

	handler := server.New(server.Deps{
		Registry:       registry,
		Usage:          usageService,
		Worker:         briefingWorker,
		Activity:       tracker,
		RequestTimeout: cfg.DefaultTimeout,
	}, log)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DefaultTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("briefing engine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	stopDispatch()
	usageService.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("briefing engine stopped gracefully")
	}
}

func registerProviders(cfg *config.Config, log zerolog.Logger) *llmprovider.Registry {
	registry := llmprovider.NewRegistry(cfg.DefaultBriefingModel)

	if cfg.AnthropicAPIKey != "" {
		registry.RegisterProvider(llmprovider.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.ProviderTimeout("anthropic")))
		registry.RegisterModel("claude-3.5-sonnet", "anthropic", "claude-3-5-sonnet-20241022", "anthropic")
		registry.RegisterModel("claude-3-haiku", "anthropic", "claude-3-haiku-20240307", "anthropic")
		registry.RegisterModel("claude-3-opus", "anthropic", "claude-3-opus-20240229", "anthropic")
		log.Info().Msg("registered anthropic provider")
	}
	if cfg.OpenAIAPIKey != "" {
		registry.RegisterProvider(llmprovider.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.ProviderTimeout("openai")))
		registry.RegisterModel("gpt-4o", "openai", "gpt-4o", "openai")
		registry.RegisterModel("gpt-4o-mini", "openai", "gpt-4o-mini", "openai")
		log.Info().Msg("registered openai provider")
	}
	if cfg.GoogleAPIKey != "" {
		registry.RegisterProvider(llmprovider.NewGoogleProvider(cfg.GoogleAPIKey, cfg.ProviderTimeout("google")))
		registry.RegisterModel("gemini-1.5-pro", "google", "gemini-1.5-pro", "google")
		registry.RegisterModel("gemini-1.5-flash", "google", "gemini-1.5-flash", "google")
		log.Info().Msg("registered google provider")
	}
	if cfg.XAIAPIKey != "" {
		registry.RegisterProvider(llmprovider.NewXAIProvider(cfg.XAIAPIKey, cfg.ProviderTimeout("xai")))
		registry.RegisterModel("grok-2", "xai", "grok-2", "xai")
		registry.RegisterModel("grok-2-mini", "xai", "grok-2-mini", "xai")
		log.Info().Msg("registered xai provider")
	}

	return registry
}
