package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the briefing engine.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	// Redis
	RedisURL string

	// Provider credentials — presence determines is_configured().
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	XAIAPIKey       string

	// Provider timeouts
	DefaultTimeout   time.Duration
	ProviderTimeouts map[string]time.Duration

	// Briefing model selection
	DefaultBriefingModel string

	// Clustering
	SemanticClusteringEnabled bool
	ClusterTTL                time.Duration
	ClusterLookbackWindow     time.Duration
	VectorSearchBaseURL       string

	// Locks
	CrossUserLockTTL time.Duration
	PerUserLockTTL   time.Duration

	// Usage counter retention
	UsageDailyTTL   time.Duration
	LLMDailyTTL     time.Duration

	// Logging
	LogLevel string

	// Site base URL, used to build story links embedded by the section processor.
	SiteBaseURL string

	// Briefing dispatcher
	DispatchInterval    time.Duration
	DispatchConcurrency int
}

// Load reads configuration from environment variables and an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("BRIEFING_GRACEFUL_TIMEOUT_SEC", 15)
	defaultTimeoutSec := getEnvInt("BRIEFING_DEFAULT_TIMEOUT_SEC", 120)

	return &Config{
		Addr:            getEnv("BRIEFING_ADDR", ":8080"),
		Env:             getEnv("ENV", "development"),
		GracefulTimeout: time.Duration(gracefulSec) * time.Second,
		RedisURL:        getEnv("REDIS_URL", "redis://redis:6379"),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		GoogleAPIKey:    getEnv("GOOGLE_API_KEY", ""),
		XAIAPIKey:       getEnv("XAI_API_KEY", ""),

		DefaultTimeout: time.Duration(defaultTimeoutSec) * time.Second,
		ProviderTimeouts: map[string]time.Duration{
			"anthropic": time.Duration(getEnvInt("PROVIDER_TIMEOUT_ANTHROPIC_SEC", 120)) * time.Second,
			"openai":    time.Duration(getEnvInt("PROVIDER_TIMEOUT_OPENAI_SEC", 120)) * time.Second,
			"google":    time.Duration(getEnvInt("PROVIDER_TIMEOUT_GOOGLE_SEC", 120)) * time.Second,
			"xai":       time.Duration(getEnvInt("PROVIDER_TIMEOUT_XAI_SEC", 60)) * time.Second,
		},

		DefaultBriefingModel: getEnv("DEFAULT_BRIEFING_MODEL", "claude-3.5-sonnet"),

		SemanticClusteringEnabled: getEnvBool("SEMANTIC_CLUSTERING_ENABLED", false),
		ClusterTTL:                time.Duration(getEnvInt("CLUSTER_TTL_HOURS", 14*24)) * time.Hour,
		ClusterLookbackWindow:     time.Duration(getEnvInt("CLUSTER_LOOKBACK_HOURS", 120)) * time.Hour,
		VectorSearchBaseURL:       getEnv("VECTOR_SEARCH_BASE_URL", ""),

		CrossUserLockTTL: time.Duration(getEnvInt("BRIEFING_ALL_LOCK_TTL_SEC", 840)) * time.Second,
		PerUserLockTTL:   time.Duration(getEnvInt("BRIEFING_USER_LOCK_TTL_SEC", 840)) * time.Second,

		UsageDailyTTL: time.Duration(getEnvInt("CLUSTERING_USAGE_TTL_DAYS", 35)) * 24 * time.Hour,
		LLMDailyTTL:   time.Duration(getEnvInt("LLM_USAGE_TTL_DAYS", 60)) * 24 * time.Hour,

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		SiteBaseURL: getEnv("SITE_BASE_URL", "https://app.example.com"),

		DispatchInterval:    time.Duration(getEnvInt("BRIEFING_DISPATCH_INTERVAL_SEC", 300)) * time.Second,
		DispatchConcurrency: getEnvInt("BRIEFING_DISPATCH_CONCURRENCY", 8),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ProviderTimeout returns the configured timeout for a given provider.
func (c *Config) ProviderTimeout(provider string) time.Duration {
	if t, ok := c.ProviderTimeouts[provider]; ok {
		return t
	}
	return c.DefaultTimeout
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
