package kiosk

import (
	"context"
	"fmt"

	"github.com/soubeek/epn-solutions/go/internal/kiosk/countdown"
	"github.com/soubeek/epn-solutions/go/internal/kiosk/presentation"
	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
	"github.com/soubeek/epn-solutions/go/internal/realtime/protocol"
)

// registerHandlers wires the server channel. Handlers run on the loop.
func (a *Agent) registerHandlers() {
	a.dispatcher.OnState(a.onChannelState)

	a.dispatcher.Handle(protocol.TypeConnectionEstablished, func(_ context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.ConnectionEstablishedPayload](env)
		if err != nil {
			return err
		}
		a.logger.Info().Str("message", p.Message).Msg("session channel established")
		return nil
	})

	a.dispatcher.Handle(protocol.TypeHeartbeatAck, func(_ context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.HeartbeatAckPayload](env)
		if err != nil {
			return err
		}
		a.logger.Debug().Str("timestamp", p.Timestamp).Msg("heartbeat acknowledged")
		return nil
	})

	a.dispatcher.Handle(protocol.TypeSessionTerminated, func(ctx context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.SessionTerminatedPayload](env)
		if err != nil {
			return err
		}
		mode := a.machine.Mode()
		if mode != presentation.ModeSessionFullscreen && mode != presentation.ModeWidget {
			return nil
		}
		a.logger.Warn().Str("reason", p.Reason).Str("message", p.Message).Msg("session terminated by server")
		if p.Message != "" {
			a.notify(ctx, countdown.Notification{Title: "Session terminée", Message: p.Message, Urgency: countdown.UrgencyCritical})
		}
		a.expire(ctx, nil)
		return nil
	})

	a.dispatcher.Handle(protocol.TypeWarning, func(ctx context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.WarningPayload](env)
		if err != nil {
			return err
		}
		urgency := countdown.UrgencyNormal
		if p.Level == string(countdown.SeverityCritical) {
			urgency = countdown.UrgencyCritical
		}
		a.notify(ctx, countdown.Notification{Title: "Attention", Message: p.Message, Urgency: urgency})
		return nil
	})

	a.dispatcher.Handle(protocol.TypeRemoteCommand, func(ctx context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.RemoteCommandPayload](env)
		if err != nil {
			return err
		}
		switch p.Command {
		case protocol.CommandUnlock:
			by := p.Payload
			if by == "" {
				by = "administrateur"
			}
			a.unlock(ctx, by)
		case protocol.CommandLock:
			go func() {
				a.post(hostCallDoneEvent{call: "lock_screen", err: a.shell.LockScreen(ctx)})
			}()
		case protocol.CommandMessage:
			a.notify(ctx, countdown.Notification{Title: "Message", Message: p.Payload, Urgency: countdown.UrgencyNormal})
		default:
			return fmt.Errorf("unknown remote command %q", p.Command)
		}
		return nil
	})

	a.dispatcher.Handle(protocol.TypeTimeAdded, func(ctx context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.TimeAddedPayload](env)
		if err != nil {
			return err
		}
		if a.ending {
			return nil
		}
		up, ok := a.engine.Extend(p.Remaining)
		if !ok {
			return nil
		}
		a.logger.Info().
			Int("added", p.Added).
			Int("remaining", p.Remaining).
			Str("operator", p.Operator).
			Msg("time added to session")
		a.apply(ctx, up)
		if p.Added > 0 {
			a.notify(ctx, countdown.Notification{
				Title:   "Prolongation accordée",
				Message: fmt.Sprintf("%d minutes ajoutées à votre session", p.Added/60),
				Urgency: countdown.UrgencyNormal,
			})
		}
		return nil
	})

	a.dispatcher.Handle(protocol.TypeError, func(_ context.Context, env protocol.Envelope) error {
		p, err := decode[protocol.ErrorPayload](env)
		if err != nil {
			return err
		}
		a.logger.Error().Str("message", p.Message).Msg("server reported an error")
		return nil
	})
}

func (a *Agent) onChannelState(_ context.Context, ev channel.Event) {
	a.channelState = ev.State
	if ev.State == channel.StateOpen {
		a.startHeartbeat()
		return
	}
	a.stopHeartbeat()
}

func (a *Agent) startHeartbeat() {
	a.stopHeartbeat()
	ticker := a.clock.NewTicker(a.config.HeartbeatInterval)
	stop := make(chan struct{})
	a.stopBeat = stop

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				a.post(heartbeatDueEvent{})
			}
		}
	}()
}

func (a *Agent) stopHeartbeat() {
	if a.stopBeat != nil {
		close(a.stopBeat)
	}
	a.stopBeat = nil
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
