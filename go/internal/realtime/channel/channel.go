package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/realtime/protocol"
)

// Dialer opens WebSocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// EventKind tells what an Event carries.
type EventKind int

const (
	EventMessage EventKind = iota
	EventState
)

// Event is one item of the channel's ordered output queue: either an
// inbound envelope or a connectivity change.
type Event struct {
	Kind     EventKind
	Envelope protocol.Envelope
	State    State
	Attempt  int
	Err      error
}

// Channel owns one long-lived connection with bounded automatic reconnection.
//
// A single supervisor goroutine per Connect call runs dial, read and the
// reconnect wait; Disconnect and Close cancel it. Every supervisor carries a
// generation so one that outlives a Disconnect can no longer change state.
type Channel struct {
	config Config
	dialer Dialer
	clock  clockwork.Clock
	events chan Event
	done   chan struct{}

	mu       sync.Mutex
	state    State
	attempts int
	conn     *websocket.Conn
	connID   string
	gen      uint64
	cancel   context.CancelFunc
	planned  bool
	closed   bool

	writeMu sync.Mutex
}

// Option customizes a Channel.
type Option func(*Channel)

// WithClock replaces the real clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Channel) { c.clock = clock }
}

// WithDialer replaces the default gorilla dialer.
func WithDialer(d Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

// New creates an idle channel.
func New(config Config, opts ...Option) *Channel {
	if config.Retry == nil {
		config.Retry = FixedDelay{Delay: 3 * time.Second, MaxAttempts: 5}
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 256
	}

	c := &Channel{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
		},
		clock:  clockwork.NewRealClock(),
		events: make(chan Event, config.EventBuffer),
		done:   make(chan struct{}),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the ordered queue of inbound envelopes and state changes.
// It is never closed; stop reading on Done or your own context.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Done is closed by Close.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the reconnect attempts made since the last open.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect resets the attempt counter and starts connecting. It is a no-op
// when a connection is already being maintained, and the only way out of
// the Failed state.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.attempts = 0
	c.planned = false
	if c.cancel != nil {
		return nil
	}

	c.gen++
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.supervise(runCtx, c.gen)

	log.Info().Str("url", c.config.URL).Msg("channel connecting")
	return nil
}

// Disconnect is a planned close: it pins the attempt counter to the maximum
// so no reconnection follows, then closes the connection.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.attempts = c.config.Retry.Max()
	c.planned = true
	conn := c.conn
	c.conn = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	changed := c.state != StateIdle
	c.state = StateIdle
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		conn.Close()
	}

	if changed {
		log.Info().Str("url", c.config.URL).Msg("channel disconnected")
		// Disconnect may run on the goroutine draining Events, so never block here.
		select {
		case c.events <- Event{Kind: EventState, State: StateIdle}:
		default:
			log.Warn().Msg("event queue full, dropping idle state event")
		}
	}
}

// Close tears the channel down for good.
func (c *Channel) Close() {
	c.Disconnect()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// Send writes env while the channel is Open. Otherwise the message is
// dropped with a warning; there is no outbound queue.
func (c *Channel) Send(env protocol.Envelope) bool {
	c.mu.Lock()
	conn, state, connID := c.conn, c.state, c.connID
	c.mu.Unlock()

	if state != StateOpen || conn == nil {
		log.Warn().
			Str("type", string(env.Type)).
			Str("state", state.String()).
			Msg("channel not open, dropping outbound message")
		return false
	}

	data, err := env.MarshalJSON()
	if err != nil {
		log.Error().Err(err).Str("type", string(env.Type)).Msg("failed to marshal outbound message")
		return false
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Error().
			Err(err).
			Str("connection_id", connID).
			Str("type", string(env.Type)).
			Msg("failed to write message to WebSocket")
		// The read side observes the close and drives reconnection.
		conn.Close()
		return false
	}
	return true
}

// supervise runs dial, read and reconnect wait for one generation.
func (c *Channel) supervise(ctx context.Context, gen uint64) {
	defer func() {
		c.mu.Lock()
		settled := false
		if c.gen == gen {
			if ctx.Err() != nil && c.state != StateIdle && c.state != StateFailed {
				c.state = StateIdle
				settled = true
			}
			if c.cancel != nil {
				c.cancel()
				c.cancel = nil
			}
		}
		c.mu.Unlock()
		if settled {
			c.emit(Event{Kind: EventState, State: StateIdle})
		}
	}()

	for {
		if !c.setState(gen, StateConnecting, nil) {
			return
		}

		conn, err := c.dial(ctx)
		if err == nil {
			if !c.attach(gen, conn) {
				conn.Close()
				return
			}
			c.readLoop(ctx, gen, conn)
			if !c.detach(gen, conn) {
				return
			}
		} else if ctx.Err() != nil {
			return
		} else {
			log.Warn().Err(err).Str("url", c.config.URL).Msg("channel dial failed")
		}

		if ctx.Err() != nil || !c.current(gen) {
			return
		}
		delay, attempt, ok := c.nextRetry(gen)
		if !ok {
			log.Error().
				Str("url", c.config.URL).
				Int("max_attempts", c.config.Retry.Max()).
				Msg("channel failed, giving up on reconnection")
			c.setState(gen, StateFailed, ErrExhaustedRetries)
			return
		}

		log.Info().
			Int("attempt", attempt).
			Int("max_attempts", c.config.Retry.Max()).
			Dur("delay", delay).
			Msg("channel reconnecting")

		select {
		case <-c.clock.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.config.URL, c.config.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrTransport, c.config.URL, err)
	}
	return conn, nil
}

// attach installs conn as the open connection and resets the counter.
func (c *Channel) attach(gen uint64, conn *websocket.Conn) bool {
	c.mu.Lock()
	if c.gen != gen || c.planned {
		c.mu.Unlock()
		return false
	}
	c.conn = conn
	c.connID = uuid.New().String()
	c.attempts = 0
	c.state = StateOpen
	connID := c.connID
	c.mu.Unlock()

	log.Info().Str("connection_id", connID).Str("url", c.config.URL).Msg("WebSocket connection established")
	c.emit(Event{Kind: EventState, State: StateOpen})
	return true
}

// detach forgets conn; false means the close was planned.
func (c *Channel) detach(gen uint64, conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	return c.gen == gen && !c.planned
}

// nextRetry consults the policy and counts the attempt.
func (c *Channel) nextRetry(gen uint64) (time.Duration, int, bool) {
	c.mu.Lock()
	if c.gen != gen || c.planned {
		c.mu.Unlock()
		return 0, 0, false
	}
	attempt := c.attempts + 1
	delay, ok := c.config.Retry.Next(attempt)
	if !ok || c.attempts >= c.config.Retry.Max() {
		c.mu.Unlock()
		return 0, attempt, false
	}
	c.attempts = attempt
	c.state = StateReconnecting
	c.mu.Unlock()

	c.emit(Event{Kind: EventState, State: StateReconnecting, Attempt: attempt})
	return delay, attempt, true
}

func (c *Channel) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen && !c.planned
}

func (c *Channel) setState(gen uint64, state State, err error) bool {
	c.mu.Lock()
	if c.gen != gen || c.planned {
		c.mu.Unlock()
		return false
	}
	c.state = state
	attempt := c.attempts
	c.mu.Unlock()

	c.emit(Event{Kind: EventState, State: state, Attempt: attempt, Err: err})
	return true
}

func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// readLoop reads frames until the connection fails or is closed.
func (c *Channel) readLoop(ctx context.Context, gen uint64, conn *websocket.Conn) {
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	if c.config.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
			return nil
		})
	}

	stopPing := make(chan struct{})
	defer close(stopPing)
	if c.config.PingInterval > 0 {
		go c.pingLoop(conn, stopPing)
	}

	// Unblock ReadMessage when the supervisor is cancelled.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stopPing:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("url", c.config.URL).Msg("unexpected WebSocket close")
			} else {
				log.Debug().Err(err).Str("url", c.config.URL).Msg("WebSocket read ended")
			}
			return
		}
		if c.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}

		env, err := protocol.Decode(frame)
		if err != nil {
			log.Warn().Err(err).Int("size", len(frame)).Msg("dropping malformed frame")
			continue
		}

		if !c.current(gen) {
			return
		}
		c.emit(Event{Kind: EventMessage, Envelope: env})
	}
}

func (c *Channel) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := c.clock.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				log.Debug().Err(err).Msg("failed to send ping")
				return
			}
		}
	}
}
