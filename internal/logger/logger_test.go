package logger

import (
	"testing"

	"github.com/newsbrief/engine/internal/config"
	"github.com/rs/zerolog"
)

func TestNewParsesConfiguredLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	New(&config.Config{Env: "production", LogLevel: "warn"})
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", zerolog.GlobalLevel())
	}
}

func TestNewFallsBackByEnvOnUnparseableLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	New(&config.Config{Env: "development", LogLevel: "not-a-level"})
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level for development fallback, got %v", zerolog.GlobalLevel())
	}

	New(&config.Config{Env: "production", LogLevel: ""})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level for production fallback, got %v", zerolog.GlobalLevel())
	}
}
