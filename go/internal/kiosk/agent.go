package kiosk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/kiosk/countdown"
	"github.com/soubeek/epn-solutions/go/internal/kiosk/hostshell"
	"github.com/soubeek/epn-solutions/go/internal/kiosk/presentation"
	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
	"github.com/soubeek/epn-solutions/go/internal/realtime/dispatch"
	"github.com/soubeek/epn-solutions/go/internal/realtime/protocol"
)

var (
	// ErrAdminPasswordRejected is reported when the administrator password is wrong.
	ErrAdminPasswordRejected = errors.New("admin password rejected")
	// ErrBusy is reported for a code submitted while one is being validated
	// or a session is running.
	ErrBusy = errors.New("kiosk busy")
)

// Agent runs a kiosk terminal: code login, countdown, window modes and
// expiration. One goroutine owns all of its state; host calls run on their
// own goroutines and come back as events.
type Agent struct {
	id     string
	config Config
	shell  hostshell.Shell
	window hostshell.Window
	clock  clockwork.Clock
	ch     *channel.Channel
	logger zerolog.Logger

	events chan interface{}
	done   chan struct{}

	dispatcher *dispatch.Dispatcher
	engine     *countdown.Engine
	poller     *countdown.Poller

	// set once by Run
	mu          sync.RWMutex
	machine     *presentation.Machine
	interceptor *presentation.Interceptor

	hostConfig   hostshell.Config
	kiosk        bool
	ready        bool
	validating   bool
	validated    hostshell.SessionInfo
	adminPrompt  bool
	sessionSeq   uint64
	pollGen      uint64
	ending       bool
	widgetTimer  clockwork.Timer
	graceTimer   clockwork.Timer
	stopBeat     chan struct{}
	channelState channel.State
	last         countdown.Update
	lastErr      error

	statusMu sync.RWMutex
	status   Status
}

// Option customizes an Agent.
type Option func(*Agent)

// WithClock replaces the real clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(a *Agent) { a.clock = clock }
}

// WithChannel attaches the server session channel. The agent connects it
// in Run and handles session_terminated, warning, time_added and
// remote_command.
func WithChannel(ch *channel.Channel) Option {
	return func(a *Agent) { a.ch = ch }
}

// New creates an agent. Nothing happens until Run.
func New(shell hostshell.Shell, window hostshell.Window, config Config, opts ...Option) *Agent {
	defaults := DefaultConfig()
	if config.WidgetDelay <= 0 {
		config.WidgetDelay = defaults.WidgetDelay
	}
	if config.GraceDelay <= 0 {
		config.GraceDelay = defaults.GraceDelay
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if config.Recovery == "" {
		config.Recovery = defaults.Recovery
	}
	if config.Thresholds == nil {
		config.Thresholds = defaults.Thresholds
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaults.EventBuffer
	}

	a := &Agent{
		id:         uuid.New().String(),
		config:     config,
		shell:      shell,
		window:     window,
		clock:      clockwork.NewRealClock(),
		events:     make(chan interface{}, config.EventBuffer),
		done:       make(chan struct{}),
		dispatcher: dispatch.New("kiosk"),
		engine:     countdown.NewEngine(config.Thresholds),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = log.With().Str("component", "kiosk").Str("agent_id", a.id).Logger()
	a.poller = countdown.NewPoller(countdown.TimeSourceFunc(shell.GetRemainingTime), a.clock, config.PollInterval, func(s countdown.Sample) {
		a.post(sampleEvent{sample: s})
	})
	a.registerHandlers()
	return a
}

// Status returns the latest snapshot.
func (a *Agent) Status() Status {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return a.status
}

// Done is closed when Run returns.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// SubmitCode validates an access code and starts its session.
func (a *Agent) SubmitCode(code string) {
	a.post(submitCodeEvent{code: code})
}

// HandleKey classifies a key press for the host. Ctrl+Alt+Shift+K also
// raises the administrator prompt.
func (a *Agent) HandleKey(k presentation.Key) presentation.Action {
	a.mu.RLock()
	machine, interceptor := a.machine, a.interceptor
	a.mu.RUnlock()
	if machine == nil {
		return presentation.ActionPass
	}

	action := interceptor.Handle(k, machine.KioskActive())
	switch action {
	case presentation.ActionAdminChallenge:
		a.post(adminChallengeEvent{})
	case presentation.ActionSuppress:
		a.logger.Debug().Str("key", k.Code).Msg("blocked key in kiosk mode")
	}
	return action
}

// SubmitAdminPassword answers the administrator prompt.
func (a *Agent) SubmitAdminPassword(password string) {
	a.post(adminPasswordEvent{password: password})
}

// RemoteUnlock releases the kiosk lock on an administrator's behalf.
func (a *Agent) RemoteUnlock(by string) {
	a.post(remoteUnlockEvent{by: by})
}

// ExpandWidget returns from the widget to the fullscreen session view.
func (a *Agent) ExpandWidget() {
	a.post(expandWidgetEvent{})
}

// StartDrag starts moving the widget window. Outside the widget it does nothing.
func (a *Agent) StartDrag() {
	a.post(startDragEvent{})
}

func (a *Agent) post(ev interface{}) {
	select {
	case a.events <- ev:
	case <-a.done:
	}
}

// Run initializes the host shell and runs the event loop until ctx ends.
func (a *Agent) Run(ctx context.Context) error {
	defer close(a.done)

	a.init(ctx)

	if a.ch != nil {
		if err := a.ch.Connect(ctx); err != nil {
			return fmt.Errorf("connect session channel: %w", err)
		}
		go a.forwardChannel(ctx)
	}

	a.publish()
	a.logger.Info().Bool("kiosk", a.kiosk).Msg("kiosk agent started")

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			a.logger.Info().Msg("kiosk agent stopped")
			return nil
		case ev := <-a.events:
			a.handle(ctx, ev)
			a.publish()
		}
	}
}

func (a *Agent) init(ctx context.Context) {
	if err := a.shell.Initialize(ctx); err != nil {
		a.fail("initialize", err)
	}

	a.kiosk = a.config.Kiosk
	cfg, err := a.shell.GetConfig(ctx)
	if err != nil {
		a.fail("get_config", err)
	} else {
		a.hostConfig = cfg
		a.kiosk = cfg.KioskMode
	}

	machine := presentation.NewMachine(a.window, presentation.Config{
		Kiosk: a.kiosk,
		Clock: a.clock,
		OnApplied: func(applied presentation.Applied) {
			a.post(appliedEvent{applied: applied})
		},
	})
	a.mu.Lock()
	a.machine = machine
	a.interceptor = presentation.NewInterceptor(a.kiosk && a.hostConfig.HasAdminPassword())
	a.mu.Unlock()

	// Failures come back through OnApplied.
	go machine.Apply(ctx)
	a.ready = true
}

func (a *Agent) forwardChannel(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.ch.Done():
			return
		case ev := <-a.ch.Events():
			a.post(channelEvent{ev: ev})
		}
	}
}

func (a *Agent) handle(ctx context.Context, ev interface{}) {
	switch e := ev.(type) {
	case submitCodeEvent:
		a.onSubmitCode(ctx, e.code)
	case codeValidatedEvent:
		a.onCodeValidated(ctx, e)
	case sessionStartedEvent:
		a.onSessionStarted(ctx, e)
	case sampleEvent:
		a.onSample(ctx, e.sample)
	case widgetDueEvent:
		a.onWidgetDue(ctx, e.session)
	case expandWidgetEvent:
		if a.machine.Mode() == presentation.ModeWidget {
			a.switchMode(ctx, presentation.ModeSessionFullscreen)
		}
	case startDragEvent:
		machine := a.machine
		go func() {
			if err := machine.StartDrag(ctx); err != nil {
				a.post(hostCallDoneEvent{call: "start_dragging", err: err})
			}
		}()
	case graceDueEvent:
		a.onGraceDue(ctx, e.session)
	case recoveredEvent:
		a.onRecovered(ctx, e)
	case hostCallDoneEvent:
		if e.err != nil {
			a.fail(e.call, e.err)
		}
	case appliedEvent:
		if e.applied.Err != nil {
			a.fail("apply_"+e.applied.Mode.String()+"_layout", e.applied.Err)
		}
	case adminChallengeEvent:
		a.adminPrompt = true
	case adminPasswordEvent:
		a.onAdminPassword(ctx, e.password)
	case adminVerifiedEvent:
		a.onAdminVerified(ctx, e)
	case remoteUnlockEvent:
		a.unlock(ctx, e.by)
	case channelEvent:
		a.dispatcher.Dispatch(ctx, e.ev)
	case heartbeatDueEvent:
		a.sendMessage(protocol.Heartbeat{})
	default:
		a.logger.Warn().Str("event", fmt.Sprintf("%T", ev)).Msg("unknown loop event")
	}
}

func (a *Agent) onSubmitCode(ctx context.Context, code string) {
	if a.validating || a.machine.Mode() != presentation.ModeLogin {
		a.fail("validate_code", ErrBusy)
		return
	}
	a.validating = true
	a.lastErr = nil
	a.logger.Info().Str("code", code).Msg("validating access code")

	go func() {
		info, err := a.shell.ValidateCode(ctx, code)
		a.post(codeValidatedEvent{info: info, err: err})
	}()
}

func (a *Agent) onCodeValidated(ctx context.Context, e codeValidatedEvent) {
	if e.err != nil {
		a.validating = false
		a.fail("validate_code", e.err)
		return
	}
	a.validated = e.info
	go func() {
		info, err := a.shell.StartSession(ctx)
		a.post(sessionStartedEvent{info: info, err: err})
	}()
}

func (a *Agent) onSessionStarted(ctx context.Context, e sessionStartedEvent) {
	a.validating = false
	if e.err != nil {
		a.fail("start_session", e.err)
		return
	}

	info := e.info
	if info.TotalDuration == 0 {
		info.TotalDuration = a.validated.TotalDuration
	}
	if info.RemainingTime == 0 {
		info.RemainingTime = info.TotalDuration
	}
	if info.ID == 0 {
		info.ID = a.validated.ID
	}
	if info.Code == "" {
		info.Code = a.validated.Code
	}
	if info.UserName == "" {
		info.UserName = a.validated.UserName
	}
	if info.Workstation == "" {
		info.Workstation = a.validated.Workstation
	}
	rec := info.Record()

	a.sessionSeq++
	a.ending = false
	a.last = countdown.Update{Remaining: rec.RemainingTime, Percentage: 100, Severity: countdown.SeverityNormal}
	a.engine.Start(rec)
	a.switchMode(ctx, presentation.ModeSessionFullscreen)
	a.pollGen = a.poller.Start(ctx)

	if a.kiosk {
		seq := a.sessionSeq
		a.widgetTimer = a.clock.AfterFunc(a.config.WidgetDelay, func() {
			a.post(widgetDueEvent{session: seq})
		})
	}

	a.logger.Info().
		Int64("session_id", rec.ID).
		Int("total_duration", rec.TotalDuration).
		Msg("session started")
}

func (a *Agent) onWidgetDue(ctx context.Context, session uint64) {
	if session != a.sessionSeq || a.machine.Mode() != presentation.ModeSessionFullscreen {
		return
	}
	a.switchMode(ctx, presentation.ModeWidget)
}

func (a *Agent) onSample(ctx context.Context, s countdown.Sample) {
	if s.Generation != a.pollGen || a.ending {
		a.logger.Debug().Uint64("generation", s.Generation).Msg("dropping stale time sample")
		return
	}

	var (
		up countdown.Update
		ok bool
	)
	switch {
	case s.Err != nil:
		up, ok = a.engine.SampleLost(s.Err)
	case s.Remaining >= a.engine.Remaining()+countdown.MinExtension:
		up, ok = a.engine.Extend(s.Remaining)
	default:
		up, ok = a.engine.Sample(s.Remaining)
	}
	if ok {
		a.apply(ctx, up)
	}
}

// apply publishes a countdown update and runs its notifications and
// expiration.
func (a *Agent) apply(ctx context.Context, up countdown.Update) {
	a.last = up

	for _, t := range up.Crossed {
		a.logger.Info().
			Int("boundary", t.Boundary).
			Str("severity", string(t.Severity)).
			Int("remaining", up.Remaining).
			Msg("countdown threshold crossed")
		a.notify(ctx, t.Notice)
	}

	if up.Expired {
		a.expire(ctx, up.Err)
	}
}

// expire runs the expiration path once per session.
func (a *Agent) expire(ctx context.Context, cause error) {
	if a.ending {
		return
	}
	a.ending = true

	a.poller.Stop()
	stopTimer(a.widgetTimer)
	a.widgetTimer = nil

	event := a.logger.Info()
	if cause != nil {
		a.lastErr = cause
		event = a.logger.Warn().Err(cause)
	}
	event.Uint64("session", a.sessionSeq).Msg("session expired")

	a.switchMode(ctx, presentation.ModeExpired)

	go func() {
		a.post(hostCallDoneEvent{call: "end_session", err: a.shell.EndSession(ctx)})
	}()
	a.notify(ctx, countdown.ExpiredNotice)

	seq := a.sessionSeq
	a.graceTimer = a.clock.AfterFunc(a.config.GraceDelay, func() {
		a.post(graceDueEvent{session: seq})
	})
}

func (a *Agent) onGraceDue(ctx context.Context, session uint64) {
	if session != a.sessionSeq || !a.ending {
		return
	}
	a.graceTimer = nil

	policy := a.config.Recovery
	go func() {
		var err error
		switch policy {
		case RecoveryLock:
			err = a.shell.LockScreen(ctx)
		default:
			err = a.shell.RestartApp(ctx)
		}
		a.post(recoveredEvent{session: session, err: err})
	}()
}

func (a *Agent) onRecovered(ctx context.Context, e recoveredEvent) {
	if e.err != nil {
		call := "restart_app"
		if a.config.Recovery == RecoveryLock {
			call = "lock_screen"
		}
		a.fail(call, e.err)
	}
	if e.session != a.sessionSeq {
		return
	}

	a.engine.Stop()
	a.ending = false
	a.last = countdown.Update{}
	a.switchMode(ctx, presentation.ModeLogin)
}

func (a *Agent) onAdminPassword(ctx context.Context, password string) {
	a.adminPrompt = false
	if !a.hostConfig.HasAdminPassword() {
		return
	}
	go func() {
		ok, err := a.shell.VerifyAdminPassword(ctx, password)
		a.post(adminVerifiedEvent{ok: ok, err: err})
	}()
}

func (a *Agent) onAdminVerified(ctx context.Context, e adminVerifiedEvent) {
	switch {
	case e.err != nil:
		a.fail("verify_admin_password", e.err)
	case !e.ok:
		a.fail("verify_admin_password", ErrAdminPasswordRejected)
	default:
		a.unlock(ctx, "")
	}
}

func (a *Agent) unlock(ctx context.Context, by string) {
	if !a.machine.KioskActive() {
		return
	}
	a.machine.Unlock(ctx)
	a.lastErr = nil

	if by != "" {
		a.logger.Info().Str("by", by).Msg("kiosk unlocked remotely")
		a.notify(ctx, countdown.Notification{
			Title:   "Mode kiosque désactivé",
			Message: "Déverrouillé par " + by,
			Urgency: countdown.UrgencyNormal,
		})
		return
	}
	a.logger.Info().Msg("kiosk unlocked with admin password")
}

func (a *Agent) switchMode(ctx context.Context, to presentation.Mode) {
	if err := a.machine.Switch(ctx, to); err != nil {
		a.logger.Error().Err(err).Msg("presentation switch refused")
	}
}

func (a *Agent) notify(ctx context.Context, n countdown.Notification) {
	note := hostshell.Notification{Title: n.Title, Message: n.Message, Urgency: string(n.Urgency)}
	go func() {
		if err := a.shell.ShowNotification(ctx, note); err != nil {
			a.post(hostCallDoneEvent{call: "show_notification", err: err})
		}
	}()
}

func (a *Agent) sendMessage(msg protocol.Message) {
	if a.ch == nil || a.channelState != channel.StateOpen {
		return
	}
	env, err := protocol.Encode(msg)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to encode message")
		return
	}
	a.ch.Send(env)
}

// fail records a host call failure. The machine keeps running degraded.
func (a *Agent) fail(call string, err error) {
	var hostErr *hostshell.HostCallError
	if !errors.As(err, &hostErr) {
		err = &hostshell.HostCallError{Call: call, Err: err}
	}
	a.lastErr = err
	a.logger.Error().Err(err).Str("call", call).Msg("host call failed")
}

func (a *Agent) shutdown() {
	a.poller.Stop()
	stopTimer(a.widgetTimer)
	stopTimer(a.graceTimer)
	a.stopHeartbeat()
	if a.ch != nil {
		a.ch.Disconnect()
	}
}

func (a *Agent) publish() {
	st := Status{
		Ready:       a.ready,
		Remaining:   a.last.Remaining,
		Percentage:  a.last.Percentage,
		Severity:    a.last.Severity,
		Validating:  a.validating,
		AdminPrompt: a.adminPrompt,
		Channel:     a.channelState,
		LastError:   a.lastErr,
	}
	if a.machine != nil {
		st.Mode = a.machine.Mode()
		st.KioskActive = a.machine.KioskActive()
	}
	if rec, ok := a.engine.Session(); ok {
		st.Session = &rec
	}

	a.statusMu.Lock()
	a.status = st
	a.statusMu.Unlock()
}

func stopTimer(t clockwork.Timer) {
	if t != nil {
		t.Stop()
	}
}
