package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/models"
	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
	"github.com/soubeek/epn-solutions/go/internal/realtime/protocol"
)

// StatsPath is the statistics endpoint.
const StatsPath = "/ws/dashboard/"

// StatsMonitor keeps the last statistics pushed by the server.
type StatsMonitor struct {
	*link
	logger zerolog.Logger

	mu      sync.RWMutex
	stats   models.Stats
	updated time.Time
	have    bool
}

func NewStatsMonitor(config channel.Config, opts ...Option) *StatsMonitor {
	o := buildOptions(opts)
	m := &StatsMonitor{
		link:   newLink("stats", config, o),
		logger: log.With().Str("component", "stats_monitor").Logger(),
	}

	m.disp.OnState(func(_ context.Context, ev channel.Event) {
		if ev.State == channel.StateOpen {
			m.RequestStats()
		}
	})
	m.disp.Handle(protocol.TypeStatsUpdate, func(_ context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.StatsUpdatePayload](env)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.stats = p.Data
		m.updated = m.clock.Now()
		m.have = true
		m.mu.Unlock()
		return nil
	})
	m.disp.Handle(protocol.TypeError, func(_ context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.ErrorPayload](env)
		if err != nil {
			return err
		}
		m.logger.Error().Str("message", p.Message).Msg("server reported an error")
		return nil
	})
	return m
}

func (m *StatsMonitor) Start(ctx context.Context) error {
	return m.start(ctx)
}

func (m *StatsMonitor) Reconnect(ctx context.Context) error {
	return m.ch.Connect(ctx)
}

func (m *StatsMonitor) Stop() {
	m.ch.Close()
}

// RequestStats asks for a stats_update. Returns false when the channel is not open.
func (m *StatsMonitor) RequestStats() bool {
	return m.send(protocol.GetStats{})
}

// Stats returns the last statistics and when they arrived; ok is false
// until the first stats_update.
func (m *StatsMonitor) Stats() (stats models.Stats, updated time.Time, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats, m.updated, m.have
}

func (m *StatsMonitor) Connection() ConnectionStatus {
	return m.connection()
}
