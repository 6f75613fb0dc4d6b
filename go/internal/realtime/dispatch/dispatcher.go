package dispatch

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
	"github.com/soubeek/epn-solutions/go/internal/realtime/protocol"
)

// HandlerFunc handles one inbound envelope.
type HandlerFunc func(ctx context.Context, env protocol.Envelope) error

// StateFunc observes a connectivity change.
type StateFunc func(ctx context.Context, ev channel.Event)

// Dispatcher routes channel events to handlers by envelope type.
// Handlers run on the Run goroutine, one event at a time, in arrival order.
type Dispatcher struct {
	name string

	mu       sync.RWMutex
	handlers map[protocol.Type]HandlerFunc
	state    []StateFunc
}

// New creates a dispatcher; name only shows up in logs.
func New(name string) *Dispatcher {
	return &Dispatcher{
		name:     name,
		handlers: make(map[protocol.Type]HandlerFunc),
	}
}

// Handle registers fn for envelopes of type t, replacing any previous handler.
func (d *Dispatcher) Handle(t protocol.Type, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = fn
}

// OnState subscribes fn to connectivity changes.
func (d *Dispatcher) OnState(fn StateFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = append(d.state, fn)
}

// Dispatch delivers one event. Errors are logged and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, ev channel.Event) {
	switch ev.Kind {
	case channel.EventState:
		d.mu.RLock()
		subs := d.state
		d.mu.RUnlock()
		for _, fn := range subs {
			fn(ctx, ev)
		}

	case channel.EventMessage:
		d.mu.RLock()
		fn, ok := d.handlers[ev.Envelope.Type]
		d.mu.RUnlock()
		if !ok {
			log.Debug().
				Str("dispatcher", d.name).
				Str("type", string(ev.Envelope.Type)).
				Msg("no handler for message type")
			return
		}
		if err := fn(ctx, ev.Envelope); err != nil {
			log.Error().
				Err(err).
				Str("dispatcher", d.name).
				Str("type", string(ev.Envelope.Type)).
				Msg("message handler failed")
		}
	}
}

// Run drains events until ctx is cancelled or done is closed.
func (d *Dispatcher) Run(ctx context.Context, events <-chan channel.Event, done <-chan struct{}) {
	log.Debug().Str("dispatcher", d.name).Msg("dispatcher started")
	defer log.Debug().Str("dispatcher", d.name).Msg("dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case ev := <-events:
			d.Dispatch(ctx, ev)
		}
	}
}
