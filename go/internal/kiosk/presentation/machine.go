package presentation

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/kiosk/hostshell"
)

// Applied reports that a window arrangement finished applying.
type Applied struct {
	Mode     Mode
	Unlocked bool
	Err      error
}

// Config configures a Machine.
type Config struct {
	// Kiosk enables the fullscreen lock, the widget and key interception.
	Kiosk bool
	Clock clockwork.Clock
	// OnApplied is called from the apply goroutine after every switch.
	OnApplied func(Applied)
}

type job struct {
	mode   Mode
	layout layout
}

// Machine owns the presentation mode and drives the window through the
// host shell. The mode changes as soon as a switch is accepted; window
// arrangements are applied one at a time, and while one is in flight only
// the latest request is kept.
type Machine struct {
	window    hostshell.Window
	clock     clockwork.Clock
	kiosk     bool
	onApplied func(Applied)

	mu       sync.Mutex
	mode     Mode
	unlocked bool
	applying bool
	pending  *job
}

// NewMachine creates a machine in ModeLogin. Nothing is applied until Apply
// or the first Switch.
func NewMachine(window hostshell.Window, config Config) *Machine {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &Machine{
		window:    window,
		clock:     config.Clock,
		kiosk:     config.Kiosk,
		onApplied: config.OnApplied,
		mode:      ModeLogin,
	}
}

func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Machine) Unlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlocked
}

// KioskActive reports whether the kiosk lock is in force.
func (m *Machine) KioskActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kiosk && !m.unlocked
}

// Switching reports whether a window arrangement is being applied.
func (m *Machine) Switching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applying
}

// Switch moves to mode to along a defined edge. Entering Login re-engages
// the kiosk lock for the next user.
func (m *Machine) Switch(ctx context.Context, to Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.mode
	if !CanTransition(from, to) || (to == ModeWidget && !m.kiosk) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.mode = to
	if to == ModeLogin {
		m.unlocked = false
	}

	log.Info().Str("from", from.String()).Str("to", to.String()).Msg("presentation mode changed")
	m.enqueue(ctx, job{mode: to, layout: m.layoutFor(to)})
	return nil
}

// Unlock leaves the kiosk lock without changing the mode and restores a
// normal window.
func (m *Machine) Unlock(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unlocked {
		return
	}
	m.unlocked = true
	log.Info().Str("mode", m.mode.String()).Msg("kiosk lock released")
	m.enqueue(ctx, job{mode: m.mode, layout: layoutUnlocked})
}

// Apply arranges the window for the current mode and waits for it.
func (m *Machine) Apply(ctx context.Context) error {
	m.mu.Lock()
	if m.applying {
		m.mu.Unlock()
		return ErrSwitchInFlight
	}
	m.applying = true
	j := job{mode: m.mode, layout: m.layoutFor(m.mode)}
	if m.unlocked {
		j.layout = layoutUnlocked
	}
	m.mu.Unlock()

	err := m.apply(ctx, j)
	m.next(ctx)
	return err
}

// StartDrag lets the user move the widget.
func (m *Machine) StartDrag(ctx context.Context) error {
	if m.Mode() != ModeWidget {
		return nil
	}
	return m.window.StartDragging(ctx)
}

func (m *Machine) layoutFor(mode Mode) layout {
	switch {
	case !m.kiosk || m.unlocked:
		return layoutNone
	case mode == ModeWidget:
		return layoutWidget
	default:
		return layoutKiosk
	}
}

// enqueue must be called with mu held.
func (m *Machine) enqueue(ctx context.Context, j job) {
	if m.applying {
		if m.pending != nil {
			log.Debug().Str("dropped", m.pending.mode.String()).Msg("superseding queued presentation switch")
		}
		m.pending = &j
		return
	}
	m.applying = true
	go func() {
		m.apply(ctx, j)
		m.next(ctx)
	}()
}

// next runs queued jobs until none is left.
func (m *Machine) next(ctx context.Context) {
	for {
		m.mu.Lock()
		if m.pending == nil {
			m.applying = false
			m.mu.Unlock()
			return
		}
		j := *m.pending
		m.pending = nil
		m.mu.Unlock()

		m.apply(ctx, j)
	}
}

func (m *Machine) apply(ctx context.Context, j job) error {
	err := applyLayout(ctx, m.window, m.clock, j.layout)
	if err != nil {
		log.Warn().Err(err).Str("mode", j.mode.String()).Str("layout", j.layout.String()).Msg("failed to apply window layout")
	} else {
		log.Debug().Str("mode", j.mode.String()).Str("layout", j.layout.String()).Msg("window layout applied")
	}
	if m.onApplied != nil {
		m.onApplied(Applied{Mode: j.mode, Unlocked: j.layout == layoutUnlocked, Err: err})
	}
	return err
}
