package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "warn", false))

	log.Info().Msg("hidden")
	log.Warn().Str("component", "kiosk").Msg("shown")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "kiosk", line["component"])
	assert.Equal(t, "shown", line["message"])
}

func TestSetup_EmptyLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "", false))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestSetup_BadLevel(t *testing.T) {
	assert.Error(t, Setup(&bytes.Buffer{}, "loud", false))
}
