package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelsolaorbaiceta/h2cli/internal/config"
	"github.com/angelsolaorbaiceta/h2cli/internal/logger"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(config.LoggingConfig{Level: config.LogLevelInfo, Format: "json"}, &buf)

	log.Info().Str("addr", "example.com:443").Msg("TCP connection established")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "example.com:443", entry["addr"])
	assert.Equal(t, "TCP connection established", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(config.LoggingConfig{Level: config.LogLevelError, Format: "json"}, &buf)

	log.Info().Msg("should be filtered")
	assert.Zero(t, buf.Len())

	log.Error().Msg("should get through")
	assert.NotZero(t, buf.Len())
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(config.LoggingConfig{Level: config.LogLevelDebug}, &buf)

	log.Debug().Msg("handshake step")

	out := buf.String()
	assert.Contains(t, out, "handshake step")
	// Console output is line oriented, not JSON.
	assert.False(t, json.Valid(buf.Bytes()))
}
