package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
)

func TestConfig_ChannelConfig(t *testing.T) {
	config := DefaultConfig()
	config.Origin = "http://localhost:3000"
	config.ReconnectDelay = time.Second
	config.MaxAttempts = 2

	cfg, err := config.ChannelConfig(SessionsPath)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws/sessions/", cfg.URL)
	assert.Equal(t, channel.FixedDelay{Delay: time.Second, MaxAttempts: 2}, cfg.Retry)

	config.WSBase = "wss://epn.example.org"
	cfg, err = config.ChannelConfig(StatsPath)
	require.NoError(t, err)
	assert.Equal(t, "wss://epn.example.org/ws/dashboard/", cfg.URL)
}

func TestNewService(t *testing.T) {
	config := DefaultConfig()
	config.WSBase = "ws://127.0.0.1:1"
	config.MonitorStats = false

	s, err := NewService(context.Background(), config)
	require.NoError(t, err)
	assert.Nil(t, s.Stats)
	require.NotNil(t, s.Sessions)
	assert.Equal(t, "ws://127.0.0.1:1/ws/sessions/", s.Sessions.Connection().Endpoint)
	require.NoError(t, s.Stop())

	config.WSBase = ""
	_, err = NewService(context.Background(), config)
	assert.Error(t, err)
}
