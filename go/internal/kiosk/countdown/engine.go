package countdown

import (
	"errors"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/models"
)

// ErrSampleLost marks an expiration caused by a remaining-time sample that
// could not be obtained.
var ErrSampleLost = errors.New("remaining time sample lost")

// MinExtension is the smallest rise in a host sample that counts as added
// time. Smaller rises are clamped as sampling jitter.
const MinExtension = 5

// Severity is the display level of the countdown.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Urgency is the host notification urgency.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

// Notification is a terminal notification request.
type Notification struct {
	Title   string
	Message string
	Urgency Urgency
}

// Threshold is a remaining-time boundary that fires once per session.
type Threshold struct {
	Boundary int // seconds
	Severity Severity
	Notice   Notification

	fired bool
}

// Fired reports whether the threshold fired for the current session.
func (t Threshold) Fired() bool { return t.fired }

// DefaultThresholds returns the 5 minute warning and the 1 minute critical alert.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{
			Boundary: 300,
			Severity: SeverityWarning,
			Notice:   Notification{Title: "Avertissement", Message: "Il vous reste 5 minutes", Urgency: UrgencyNormal},
		},
		{
			Boundary: 60,
			Severity: SeverityCritical,
			Notice:   Notification{Title: "Session sur le point d'expirer", Message: "Il vous reste 1 minute", Urgency: UrgencyCritical},
		},
	}
}

// ExpiredNotice is shown when a session runs out.
var ExpiredNotice = Notification{Title: "Session Expirée", Message: "Votre temps est écoulé", Urgency: UrgencyCritical}

// Update is the outcome of one sample.
type Update struct {
	Remaining  int
	Percentage float64
	Severity   Severity
	Crossed    []Threshold
	Expired    bool
	Err        error
}

// Engine turns remaining-time samples into threshold crossings and a single
// expiration. It is not safe for concurrent use; the kiosk agent owns it.
type Engine struct {
	thresholds []Threshold
	session    *models.SessionRecord
	remaining  int
	severity   Severity
	expired    bool
}

// NewEngine creates an engine. Thresholds are evaluated from the highest
// boundary down.
func NewEngine(thresholds []Threshold) *Engine {
	ts := make([]Threshold, len(thresholds))
	copy(ts, thresholds)
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Boundary > ts[j].Boundary })
	return &Engine{thresholds: ts, severity: SeverityNormal}
}

// Start begins counting down rec and resets every threshold.
func (e *Engine) Start(rec models.SessionRecord) {
	for i := range e.thresholds {
		e.thresholds[i].fired = false
	}
	e.session = &rec
	remaining := rec.RemainingTime
	if remaining <= 0 {
		remaining = rec.TotalDuration
	}
	e.setRemaining(remaining)
	e.severity = SeverityNormal
	e.expired = false

	log.Info().
		Int64("session_id", rec.ID).
		Int("total_duration", rec.TotalDuration).
		Int("remaining", e.remaining).
		Msg("countdown started")
}

// Stop forgets the current session.
func (e *Engine) Stop() {
	e.session = nil
	e.remaining = 0
	e.severity = SeverityNormal
}

// Session returns the session being counted down.
func (e *Engine) Session() (models.SessionRecord, bool) {
	if e.session == nil {
		return models.SessionRecord{}, false
	}
	return *e.session, true
}

func (e *Engine) Remaining() int     { return e.remaining }
func (e *Engine) Severity() Severity { return e.severity }
func (e *Engine) Expired() bool      { return e.expired }

// Thresholds returns a copy of the thresholds with their fired flags.
func (e *Engine) Thresholds() []Threshold {
	out := make([]Threshold, len(e.thresholds))
	copy(out, e.thresholds)
	return out
}

// Sample applies a remaining-time reading. The boolean is false when no
// session is running or it already expired, in which case nothing changes.
func (e *Engine) Sample(remaining int) (Update, bool) {
	if e.session == nil || e.expired {
		return Update{}, false
	}

	if remaining < 0 {
		remaining = 0
	}
	if remaining > e.remaining {
		log.Debug().
			Int64("session_id", e.session.ID).
			Int("sample", remaining).
			Int("remaining", e.remaining).
			Msg("clamping increasing remaining time")
		remaining = e.remaining
	}
	e.setRemaining(remaining)

	up := Update{
		Remaining:  remaining,
		Percentage: models.Percentage(remaining, e.session.TotalDuration),
	}

	for i := range e.thresholds {
		t := &e.thresholds[i]
		if remaining > t.Boundary {
			continue
		}
		e.severity = t.Severity
		if !t.fired {
			t.fired = true
			up.Crossed = append(up.Crossed, *t)
		}
	}
	up.Severity = e.severity

	if remaining <= 0 {
		e.expired = true
		up.Expired = true
	}
	return up, true
}

// SampleLost treats an unobtainable sample as an expiration.
func (e *Engine) SampleLost(err error) (Update, bool) {
	if e.session == nil || e.expired {
		return Update{}, false
	}

	log.Warn().Err(err).Int64("session_id", e.session.ID).Msg("remaining time unavailable, expiring session")

	e.expired = true
	e.setRemaining(0)
	return Update{
		Remaining: 0,
		Severity:  e.severity,
		Expired:   true,
		Err:       errors.Join(ErrSampleLost, err),
	}, true
}

// Extend raises the remaining time after time was added to the session.
// The added seconds grow the total duration, and thresholds whose boundary
// is below the new remaining time can fire again. A value that is not above
// the current remaining time is an ordinary sample.
func (e *Engine) Extend(remaining int) (Update, bool) {
	if e.session == nil || e.expired {
		return Update{}, false
	}
	if remaining <= e.remaining {
		return e.Sample(remaining)
	}

	added := remaining - e.remaining
	e.session.TotalDuration += added
	e.setRemaining(remaining)

	e.severity = SeverityNormal
	for i := range e.thresholds {
		t := &e.thresholds[i]
		if t.Boundary < remaining {
			t.fired = false
			continue
		}
		e.severity = t.Severity
	}

	log.Info().
		Int64("session_id", e.session.ID).
		Int("added", added).
		Int("remaining", remaining).
		Int("total_duration", e.session.TotalDuration).
		Msg("session extended")

	return Update{
		Remaining:  remaining,
		Percentage: models.Percentage(remaining, e.session.TotalDuration),
		Severity:   e.severity,
	}, true
}

// setRemaining keeps the session record in step with the countdown.
// PercentUsed is the elapsed share, as the backend reports it.
func (e *Engine) setRemaining(remaining int) {
	e.remaining = remaining
	e.session.RemainingTime = remaining
	e.session.PercentUsed = models.Percentage(e.session.TotalDuration-remaining, e.session.TotalDuration)
}
