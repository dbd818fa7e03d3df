package logger

import (
	"os"

	"github.com/newsbrief/engine/internal/config"
	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger: console output in
// development for a human reading a terminal, JSON in every other
// environment so log shippers get structured records. The level comes
// from Config.LogLevel, falling back to debug/info by environment when
// LogLevel is empty or unparseable.
func New(cfg *config.Config) zerolog.Logger {
	var out zerolog.Logger
	if cfg.IsDevelopment() {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		out = zerolog.New(os.Stderr)
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
		if cfg.IsDevelopment() {
			lvl = zerolog.DebugLevel
		}
	}
	zerolog.SetGlobalLevel(lvl)

	return out.With().Timestamp().Str("component", "briefing-engine").Logger()
}
