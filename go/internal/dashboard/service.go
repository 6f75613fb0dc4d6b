package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
)

// Config holds configuration for the dashboard service
type Config struct {
	// WSBase is the configured WebSocket base; Origin is used when it is empty.
	WSBase          string
	Origin          string
	ReconnectDelay  time.Duration
	MaxAttempts     int
	MonitorStats    bool
	// StatsStaleAfter is reported by the health check, zero disables it.
	StatsStaleAfter time.Duration
	Publish         bool
	JetStream       JetStreamConfig
}

// DefaultConfig returns default configuration for the dashboard
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:  3 * time.Second,
		MaxAttempts:     5,
		MonitorStats:    true,
		StatsStaleAfter: 5 * time.Minute,
		JetStream:       DefaultJetStreamConfig(),
	}
}

// ChannelConfig resolves path against the configured base and builds the
// channel configuration.
func (c Config) ChannelConfig(path string) (channel.Config, error) {
	url, err := channel.ResolveEndpoint(c.WSBase, c.Origin, path)
	if err != nil {
		return channel.Config{}, err
	}
	cfg := channel.DefaultConfig(url)
	if c.ReconnectDelay > 0 && c.MaxAttempts > 0 {
		cfg.Retry = channel.FixedDelay{Delay: c.ReconnectDelay, MaxAttempts: c.MaxAttempts}
	}
	return cfg, nil
}

// Service is the dashboard: session sync, optional statistics and the
// snapshot API.
type Service struct {
	Sessions  *SessionSync
	Stats     *StatsMonitor
	http      *HTTPHandler
	health    *SyncHealthChecker
	publisher *JetStreamPublisher
}

// NewService builds the dashboard. With Publish set it connects to NATS
// first and fails if JetStream is unreachable.
func NewService(ctx context.Context, config Config, opts ...Option) (*Service, error) {
	s := &Service{}

	if config.Publish {
		publisher, err := NewJetStreamPublisher(ctx, config.JetStream)
		if err != nil {
			return nil, fmt.Errorf("failed to create delta publisher: %w", err)
		}
		s.publisher = publisher
		opts = append(opts, WithSink(publisher))
	}

	sessionsCfg, err := config.ChannelConfig(SessionsPath)
	if err != nil {
		s.closePublisher()
		return nil, fmt.Errorf("resolve sessions endpoint: %w", err)
	}
	s.Sessions = NewSessionSync(sessionsCfg, opts...)

	var stats StatsSource
	if config.MonitorStats {
		statsCfg, err := config.ChannelConfig(StatsPath)
		if err != nil {
			s.closePublisher()
			return nil, fmt.Errorf("resolve stats endpoint: %w", err)
		}
		s.Stats = NewStatsMonitor(statsCfg, opts...)
		stats = s.Stats
	}

	var publisher PublisherStats
	if s.publisher != nil {
		publisher = s.publisher
	}
	s.health = NewSyncHealthChecker(s.Sessions, stats, publisher, buildOptions(opts).clock, config.StatsStaleAfter)

	s.http = NewHTTPHandler(s.Sessions, stats, s.health)
	return s, nil
}

// Start connects every channel and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting dashboard service")

	if err := s.Sessions.Start(ctx); err != nil {
		return fmt.Errorf("start session sync: %w", err)
	}
	if s.Stats != nil {
		if err := s.Stats.Start(ctx); err != nil {
			return fmt.Errorf("start stats monitor: %w", err)
		}
	}

	<-ctx.Done()

	log.Info().Msg("dashboard service shutting down")
	return s.Stop()
}

// Stop closes the channels and the publisher.
func (s *Service) Stop() error {
	s.Sessions.Stop()
	if s.Stats != nil {
		s.Stats.Stop()
	}
	s.closePublisher()
	log.Info().Msg("dashboard service stopped")
	return nil
}

func (s *Service) closePublisher() {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close delta publisher")
	}
	s.publisher = nil
}

// Health runs the health check.
func (s *Service) Health(ctx context.Context) HealthStatus {
	return s.health.Check(ctx)
}

// Handler returns the snapshot API with CORS and h2c applied.
func (s *Service) Handler() http.Handler {
	return s.http.Handler()
}

// RegisterRoutes registers the snapshot API on mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.http.RegisterRoutes(mux)
	log.Info().Msg("dashboard routes registered")
}
