package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
	"github.com/soubeek/epn-solutions/go/internal/realtime/dispatch"
	"github.com/soubeek/epn-solutions/go/internal/realtime/protocol"
)

// ConnectionStatus is what the dashboard shows about one channel.
type ConnectionStatus struct {
	Endpoint  string    `json:"endpoint"`
	State     string    `json:"state"`
	Connected bool      `json:"connected"`
	Attempt   int       `json:"attempt,omitempty"`
	Error     string    `json:"error,omitempty"`
	Since     time.Time `json:"since"`
}

// link joins a channel to its dispatcher and remembers the last
// connectivity change.
type link struct {
	ch    *channel.Channel
	disp  *dispatch.Dispatcher
	clock clockwork.Clock

	mu     sync.RWMutex
	status ConnectionStatus
}

func newLink(name string, config channel.Config, o options) *link {
	chOpts := []channel.Option{channel.WithClock(o.clock)}
	if o.dialer != nil {
		chOpts = append(chOpts, channel.WithDialer(o.dialer))
	}
	l := &link{
		ch:    channel.New(config, chOpts...),
		disp:  dispatch.New(name),
		clock: o.clock,
		status: ConnectionStatus{
			Endpoint: config.URL,
			State:    channel.StateIdle.String(),
			Since:    o.clock.Now(),
		},
	}
	l.disp.OnState(l.onState)
	return l
}

// start connects and runs the dispatcher until ctx ends or the channel closes.
func (l *link) start(ctx context.Context) error {
	if err := l.ch.Connect(ctx); err != nil {
		return err
	}
	go l.disp.Run(ctx, l.ch.Events(), l.ch.Done())
	return nil
}

func (l *link) onState(_ context.Context, ev channel.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.State = ev.State.String()
	l.status.Connected = ev.State == channel.StateOpen
	l.status.Attempt = ev.Attempt
	l.status.Error = ""
	if ev.Err != nil {
		l.status.Error = ev.Err.Error()
	}
	l.status.Since = l.clock.Now()
}

func (l *link) connection() ConnectionStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

func (l *link) send(msg protocol.Message) bool {
	env, err := protocol.Encode(msg)
	if err != nil {
		return false
	}
	return l.ch.Send(env)
}

func decode[T any](env protocol.Envelope) (*T, error) {
	payload, err := protocol.DecodePayload(env)
	if err != nil {
		return nil, err
	}
	p, ok := payload.(*T)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected payload %T for %s", protocol.ErrProtocol, payload, env.Type)
	}
	return p, nil
}
