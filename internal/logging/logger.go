package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/fleetctl/internal/config"
)

// NewLogger creates a structured zerolog.Logger writing to stderr so command
// output on stdout stays clean. Region and profile are added as context fields.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.LogFormat != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(w).With().Timestamp()

	if cfg.Region != "" {
		ctx = ctx.Str("region", cfg.Region)
	}
	if cfg.AWSProfile != "" {
		ctx = ctx.Str("profile", cfg.AWSProfile)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
