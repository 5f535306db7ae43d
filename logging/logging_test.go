package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "json", &buf).Component("backend")

	log.Debug().Msg("hidden")
	log.Warn().Str("fund", "K55101").Msg("stale response")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "backend", event["component"])
	assert.Equal(t, "K55101", event["fund"])
	assert.Equal(t, "stale response", event["message"])
}

func TestNewSilent(t *testing.T) {
	log := NewSilent()
	log.Error().Msg("nobody hears this")
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}
