package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/fleetctl/internal/config"
)

func TestNewLogger_JSONFields(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"
	cfg.Region = "eu-central-1"
	cfg.AWSProfile = "ops"

	var buf bytes.Buffer
	logger := newLogger(cfg, &buf)
	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "eu-central-1", entry["region"])
	assert.Equal(t, "ops", entry["profile"])
	assert.Equal(t, "hello", entry["message"])
}

func TestNewLogger_Level(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger := newLogger(cfg, &buf)
	logger.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "loud"

	var buf bytes.Buffer
	logger := newLogger(cfg, &buf)
	logger.Debug().Msg("dropped")
	logger.Info().Msg("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
