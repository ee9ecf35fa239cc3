package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod", "info")

	log.Debug().Msg("hidden")
	log.Info().Str("id", "7").Msg("appointment booked")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "appointment booked", line["message"])
	assert.Equal(t, "7", line["id"])
	assert.Contains(t, line, "time")
}

func TestNewLoggerLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod", "loud")

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestNewLoggerDevConsole(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "dev", "debug")
	log.Debug().Msg("slot check")

	assert.Contains(t, buf.String(), "slot check")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
