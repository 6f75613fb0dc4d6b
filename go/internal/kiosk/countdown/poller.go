package countdown

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultPollInterval matches the host shell's one-second countdown.
const DefaultPollInterval = time.Second

// MaxMissedTicks is how many ticks a remaining-time call may stay
// unanswered before the poller reports the sample as lost.
const MaxMissedTicks = 3

// ErrSampleTimeout is posted when the time source stops answering.
var ErrSampleTimeout = errors.New("remaining time call unanswered")

// TimeSource reports the remaining seconds of the running session.
type TimeSource interface {
	RemainingTime(ctx context.Context) (int, error)
}

// TimeSourceFunc adapts a function to TimeSource.
type TimeSourceFunc func(ctx context.Context) (int, error)

func (f TimeSourceFunc) RemainingTime(ctx context.Context) (int, error) {
	return f(ctx)
}

// Sample is one poll result. Generation identifies the Start call that
// produced it so results from a stopped poll can be told apart.
type Sample struct {
	Generation uint64
	Remaining  int
	Err        error
}

// Poller asks a TimeSource for the remaining time on a fixed tick and posts
// every result. A call still unanswered after MaxMissedTicks ticks is posted
// as ErrSampleTimeout. Stop is the only way to end it.
type Poller struct {
	source   TimeSource
	clock    clockwork.Clock
	interval time.Duration
	post     func(Sample)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewPoller creates a stopped poller.
func NewPoller(source TimeSource, clock clockwork.Clock, interval time.Duration, post func(Sample)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		source:   source,
		clock:    clock,
		interval: interval,
		post:     post,
	}
}

// Start stops any running poll and begins a new one. The ticker exists when
// Start returns.
func (p *Poller) Start(ctx context.Context) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	ticker := p.clock.NewTicker(p.interval)
	go p.run(runCtx, p.gen, ticker)

	log.Debug().Uint64("generation", p.gen).Dur("interval", p.interval).Msg("countdown poller started")
	return p.gen
}

// Stop ends the current poll. Results already in flight carry a stale generation.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	log.Debug().Uint64("generation", p.gen).Msg("countdown poller stopped")
}

// Generation returns the generation of the latest Start.
func (p *Poller) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Running reports whether a poll is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context, gen uint64, ticker clockwork.Ticker) {
	defer ticker.Stop()

	results := make(chan Sample, 1)
	inFlight := false
	missed := 0
	fetch := func() {
		inFlight = true
		go func() {
			remaining, err := p.source.RemainingTime(ctx)
			results <- Sample{Generation: gen, Remaining: remaining, Err: err}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-results:
			inFlight = false
			if ctx.Err() != nil {
				return
			}
			p.post(s)
			// A tick passed while waiting, so the answer is already old.
			if missed > 0 {
				missed = 0
				fetch()
			}
		case <-ticker.Chan():
			if !inFlight {
				fetch()
				continue
			}
			missed++
			if missed == MaxMissedTicks {
				log.Warn().Uint64("generation", gen).Int("missed_ticks", missed).Msg("remaining time call unanswered")
				p.post(Sample{Generation: gen, Err: ErrSampleTimeout})
			}
		}
	}
}
