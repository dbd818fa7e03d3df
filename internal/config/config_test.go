package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/newsbrief/engine/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"REDIS_URL", "ANTHROPIC_API_KEY", "DEFAULT_BRIEFING_MODEL",
		"SEMANTIC_CLUSTERING_ENABLED", "CLUSTER_LOOKBACK_HOURS",
	} {
		os.Unsetenv(k)
	}

	cfg := config.Load()

	if cfg.DefaultBriefingModel != "claude-3.5-sonnet" {
		t.Fatalf("expected default briefing model, got %q", cfg.DefaultBriefingModel)
	}
	if cfg.SemanticClusteringEnabled {
		t.Fatalf("expected semantic clustering disabled by default")
	}
	if cfg.ClusterLookbackWindow != 120*time.Hour {
		t.Fatalf("expected 120h lookback, got %v", cfg.ClusterLookbackWindow)
	}
	if cfg.CrossUserLockTTL != 840*time.Second {
		t.Fatalf("expected 840s cross-user lock ttl, got %v", cfg.CrossUserLockTTL)
	}
}

func TestProviderTimeoutFallback(t *testing.T) {
	cfg := config.Load()
	if got := cfg.ProviderTimeout("unknown-provider"); got != cfg.DefaultTimeout {
		t.Fatalf("expected fallback to default timeout, got %v", got)
	}
	if got := cfg.ProviderTimeout("anthropic"); got <= 0 {
		t.Fatalf("expected positive anthropic timeout, got %v", got)
	}
}
