package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/models"
	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
	"github.com/soubeek/epn-solutions/go/internal/realtime/protocol"
	"github.com/soubeek/epn-solutions/go/internal/sessions/registry"
)

// SessionsPath is the session-sync endpoint.
const SessionsPath = "/ws/sessions/"

const publishTimeout = 5 * time.Second

type options struct {
	clock  clockwork.Clock
	dialer channel.Dialer
	sink   DeltaSink
}

// Option customizes the dashboard components.
type Option func(*options)

// WithClock replaces the real clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d channel.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithSink forwards every applied registry delta to sink.
func WithSink(sink DeltaSink) Option {
	return func(o *options) { o.sink = sink }
}

func buildOptions(opts []Option) options {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SessionSync keeps a registry in step with the server's session list.
// A full list is requested on every (re)connection and whenever an update
// names a session the registry does not know.
type SessionSync struct {
	*link
	registry *registry.Registry
	sink     DeltaSink
	logger   zerolog.Logger
}

func NewSessionSync(config channel.Config, opts ...Option) *SessionSync {
	o := buildOptions(opts)
	s := &SessionSync{
		link:     newLink("sessions", config, o),
		registry: registry.New(),
		sink:     o.sink,
		logger:   log.With().Str("component", "session_sync").Logger(),
	}
	s.registerHandlers()
	return s
}

// Start connects the channel and begins applying deltas.
func (s *SessionSync) Start(ctx context.Context) error {
	return s.start(ctx)
}

// Reconnect starts over after a Failed or Idle channel.
func (s *SessionSync) Reconnect(ctx context.Context) error {
	return s.ch.Connect(ctx)
}

// Stop closes the channel for good.
func (s *SessionSync) Stop() {
	s.ch.Close()
}

// Sessions returns the current list in server order.
func (s *SessionSync) Sessions() []models.SessionRecord {
	return s.registry.Snapshot()
}

// Session returns one session by id.
func (s *SessionSync) Session(id int64) (models.SessionRecord, bool) {
	return s.registry.Get(id)
}

// Connection describes the session channel.
func (s *SessionSync) Connection() ConnectionStatus {
	return s.connection()
}

// RequestSessions asks for a full sessions_update. Returns false when the
// channel is not open.
func (s *SessionSync) RequestSessions() bool {
	return s.send(protocol.GetSessions{})
}

func (s *SessionSync) ValidateCode(code, ipAddress string) bool {
	return s.send(protocol.ValidateCode{Code: code, IPAddress: ipAddress})
}

func (s *SessionSync) StartSession(id int64) bool {
	return s.send(protocol.StartSession{SessionID: id})
}

func (s *SessionSync) GetTime(id int64) bool {
	return s.send(protocol.GetTime{SessionID: id})
}

func (s *SessionSync) Heartbeat() bool {
	return s.send(protocol.Heartbeat{})
}

// Track makes id the session time_update samples are applied to and asks
// for its time. Zero stops tracking.
func (s *SessionSync) Track(id int64) {
	s.registry.SetCurrent(id)
	if id != 0 {
		s.GetTime(id)
	}
}

func (s *SessionSync) registerHandlers() {
	s.disp.OnState(func(_ context.Context, ev channel.Event) {
		if ev.State == channel.StateOpen {
			s.RequestSessions()
		}
	})

	s.disp.Handle(protocol.TypeConnectionEstablished, func(_ context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.ConnectionEstablishedPayload](env)
		if err != nil {
			return err
		}
		s.logger.Info().Str("message", p.Message).Str("user", p.User).Msg("session channel established")
		return nil
	})

	s.disp.Handle(protocol.TypeSessionsUpdate, func(ctx context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.SessionsUpdatePayload](env)
		if err != nil {
			return err
		}
		s.registry.ReplaceAll(p.Data)
		s.logger.Debug().Int("sessions", s.registry.Len()).Msg("session list replaced")
		s.publish(ctx, Delta{Type: env.Type, Sessions: s.registry.Snapshot()})
		return nil
	})

	s.disp.Handle(protocol.TypeSessionUpdate, func(ctx context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.SessionPayload](env)
		if err != nil {
			return err
		}
		if !s.registry.Update(p.Data) {
			s.RequestSessions()
			return nil
		}
		rec := p.Data
		s.publish(ctx, Delta{Type: env.Type, SessionID: rec.ID, Session: &rec})
		return nil
	})

	s.disp.Handle(protocol.TypeSessionCreated, func(ctx context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.SessionPayload](env)
		if err != nil {
			return err
		}
		s.registry.Add(p.Data)
		rec := p.Data
		s.publish(ctx, Delta{Type: env.Type, SessionID: rec.ID, Session: &rec})
		return nil
	})

	s.disp.Handle(protocol.TypeSessionEnded, func(ctx context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.SessionEndedPayload](env)
		if err != nil {
			return err
		}
		if !s.registry.Remove(p.Data.ID) {
			s.logger.Debug().Int64("session_id", p.Data.ID).Msg("ended session was not listed")
			return nil
		}
		s.publish(ctx, Delta{Type: env.Type, SessionID: p.Data.ID})
		return nil
	})

	s.disp.Handle(protocol.TypeTimeUpdate, func(ctx context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.TimeUpdatePayload](env)
		if err != nil {
			return err
		}
		if !s.registry.ApplyTime(p.SessionID, p.Remaining, p.PercentUsed) {
			return nil
		}
		id := s.registry.Current()
		if rec, ok := s.registry.Get(id); ok {
			s.publish(ctx, Delta{Type: env.Type, SessionID: id, Session: &rec})
		}
		return nil
	})

	s.disp.Handle(protocol.TypeError, func(_ context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.ErrorPayload](env)
		if err != nil {
			return err
		}
		s.logger.Error().Str("message", p.Message).Msg("server reported an error")
		return nil
	})
}

// publish hands delta to the sink. Failures are logged; the registry has
// already been updated.
func (s *SessionSync) publish(ctx context.Context, delta Delta) {
	if s.sink == nil {
		return
	}
	delta.ID = uuid.New()
	delta.At = s.clock.Now()

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.sink.Publish(ctx, delta); err != nil {
		s.logger.Error().
			Err(err).
			Str("type", string(delta.Type)).
			Int64("session_id", delta.SessionID).
			Msg("failed to publish session delta")
	}
}
