package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/models"
	"github.com/soubeek/epn-solutions/go/internal/realtime/protocol"
)

// Delta is one change applied to the session registry.
type Delta struct {
	ID        uuid.UUID
	Type      protocol.Type
	SessionID int64
	Session   *models.SessionRecord
	Sessions  []models.SessionRecord
	At        time.Time
}

// DeltaSink receives every applied registry delta.
type DeltaSink interface {
	Publish(ctx context.Context, delta Delta) error
}

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep deltas
	MaxMsgs         int64
	Replicas        int
	DuplicateWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "EPN_SESSIONS",
		SubjectPrefix:   "epn.sessions",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          24 * time.Hour,
		MaxMsgs:         -1, // No limit
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
	}
}

// JetStreamPublisher forwards registry deltas to a JetStream stream, one
// subject per message type.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig

	published atomic.Uint64
	mu        sync.Mutex
	last      time.Time
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.Name("epn-dashboard"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := streamConfig(p.config)

	stream, err := p.js.Stream(ctx, p.config.StreamName)
	if err != nil {
		if _, err = p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", p.config.StreamName).Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !isStreamConfigEqual(info.Config, sc) {
		if _, err = p.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", p.config.StreamName).Msg("updated JetStream stream")
	}
	return nil
}

// Publish sends delta with its id as the deduplication key.
func (p *JetStreamPublisher) Publish(ctx context.Context, delta Delta) error {
	msg, err := deltaMsg(p.config.SubjectPrefix, delta)
	if err != nil {
		return err
	}

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(delta.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	p.published.Add(1)
	p.mu.Lock()
	p.last = delta.At
	p.mu.Unlock()

	log.Debug().
		Str("subject", msg.Subject).
		Str("delta_id", delta.ID.String()).
		Uint64("sequence", ack.Sequence).
		Msg("published session delta")
	return nil
}

// Connected reports whether the NATS connection is up.
func (p *JetStreamPublisher) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Stats returns how many deltas were published and when the last one happened.
func (p *JetStreamPublisher) Stats() (uint64, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published.Load(), p.last
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}

func streamConfig(cfg JetStreamConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Session registry deltas seen by the dashboard",
		Subjects:    []string{fmt.Sprintf("%s.>", cfg.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		MaxMsgs:     cfg.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    cfg.Replicas,
		Duplicates:  cfg.DuplicateWindow,
	}
}

func isStreamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}

// deltaMsg builds the NATS message for delta under prefix.
func deltaMsg(prefix string, delta Delta) (*nats.Msg, error) {
	body := struct {
		DeltaID   string                 `json:"deltaId"`
		Type      protocol.Type          `json:"type"`
		SessionID int64                  `json:"sessionId,omitempty"`
		Session   *models.SessionRecord  `json:"session,omitempty"`
		Sessions  []models.SessionRecord `json:"sessions,omitempty"`
		Timestamp time.Time              `json:"timestamp"`
	}{
		DeltaID:   delta.ID.String(),
		Type:      delta.Type,
		SessionID: delta.SessionID,
		Session:   delta.Session,
		Sessions:  delta.Sessions,
		Timestamp: delta.At.UTC(),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal delta: %w", err)
	}

	header := nats.Header{}
	header.Set("Delta-Type", string(delta.Type))
	header.Set("Delta-ID", delta.ID.String())
	if delta.SessionID != 0 {
		header.Set("Session-ID", fmt.Sprintf("%d", delta.SessionID))
	}

	return &nats.Msg{
		Subject: fmt.Sprintf("%s.%s", prefix, delta.Type),
		Data:    data,
		Header:  header,
	}, nil
}
