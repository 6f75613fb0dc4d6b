package countdown

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soubeek/epn-solutions/go/internal/models"
)

func started(remaining, total int) *Engine {
	e := NewEngine(DefaultThresholds())
	e.Start(models.SessionRecord{ID: 1, TotalDuration: total, RemainingTime: remaining})
	return e
}

func TestSample_WarningFiresOnceAtBoundary(t *testing.T) {
	e := started(600, 600)

	up, ok := e.Sample(301)
	require.True(t, ok)
	assert.Empty(t, up.Crossed)
	assert.Equal(t, SeverityNormal, up.Severity)

	up, _ = e.Sample(300)
	require.Len(t, up.Crossed, 1)
	assert.Equal(t, 300, up.Crossed[0].Boundary)
	assert.Equal(t, "Il vous reste 5 minutes", up.Crossed[0].Notice.Message)
	assert.Equal(t, SeverityWarning, up.Severity)

	up, _ = e.Sample(250)
	assert.Empty(t, up.Crossed)
	up, _ = e.Sample(200)
	assert.Empty(t, up.Crossed)
	assert.Equal(t, SeverityWarning, up.Severity)
}

func TestSample_JumpFiresEveryPassedThreshold(t *testing.T) {
	e := started(600, 600)

	up, _ := e.Sample(30)
	require.Len(t, up.Crossed, 2)
	assert.Equal(t, 300, up.Crossed[0].Boundary)
	assert.Equal(t, 60, up.Crossed[1].Boundary)
	assert.Equal(t, SeverityCritical, up.Severity)
	assert.Equal(t, UrgencyCritical, up.Crossed[1].Notice.Urgency)
}

func TestSample_ZeroTotalGivesZeroPercentage(t *testing.T) {
	e := started(120, 0)

	up, ok := e.Sample(90)
	require.True(t, ok)
	assert.Equal(t, 0.0, up.Percentage)
	assert.Equal(t, 90, up.Remaining)
}

func TestSample_Percentage(t *testing.T) {
	e := started(600, 600)
	up, _ := e.Sample(150)
	assert.InDelta(t, 25.0, up.Percentage, 0.001)
}

func TestSample_ExpiresOnce(t *testing.T) {
	e := started(10, 600)

	up, ok := e.Sample(0)
	require.True(t, ok)
	assert.True(t, up.Expired)
	assert.True(t, e.Expired())

	for i := 0; i < 3; i++ {
		up, ok = e.Sample(0)
		assert.False(t, ok)
		assert.False(t, up.Expired)
	}
}

func TestSample_ClampsIncrease(t *testing.T) {
	e := started(600, 600)

	e.Sample(200)
	up, _ := e.Sample(400)
	assert.Equal(t, 200, up.Remaining)
	assert.Equal(t, 200, e.Remaining())

	rec, ok := e.Session()
	require.True(t, ok)
	assert.Equal(t, 200, rec.RemainingTime)
}

func TestSample_NegativeIsZero(t *testing.T) {
	e := started(5, 600)
	up, _ := e.Sample(-3)
	assert.Equal(t, 0, up.Remaining)
	assert.True(t, up.Expired)
}

func TestSample_WithoutSession(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	_, ok := e.Sample(100)
	assert.False(t, ok)
}

func TestStart_ResetsThresholds(t *testing.T) {
	e := started(600, 600)
	e.Sample(0)

	e.Start(models.SessionRecord{ID: 2, TotalDuration: 600, RemainingTime: 600})
	for _, th := range e.Thresholds() {
		assert.False(t, th.Fired())
	}
	assert.False(t, e.Expired())

	up, _ := e.Sample(300)
	assert.Len(t, up.Crossed, 1)
}

func TestSampleLost_Expires(t *testing.T) {
	e := started(600, 600)
	cause := errors.New("no active session")

	up, ok := e.SampleLost(cause)
	require.True(t, ok)
	assert.True(t, up.Expired)
	assert.ErrorIs(t, up.Err, ErrSampleLost)
	assert.ErrorIs(t, up.Err, cause)

	_, ok = e.SampleLost(cause)
	assert.False(t, ok)
	_, ok = e.Sample(0)
	assert.False(t, ok)
}

func TestNewEngine_SortsThresholds(t *testing.T) {
	ts := DefaultThresholds()
	ts[0], ts[1] = ts[1], ts[0]

	e := NewEngine(ts)
	got := e.Thresholds()
	assert.Equal(t, 300, got[0].Boundary)
	assert.Equal(t, 60, got[1].Boundary)
}

func TestExtend_RearmsThresholdsBelowNewRemaining(t *testing.T) {
	e := started(600, 600)
	e.Sample(30)

	up, ok := e.Extend(630)
	require.True(t, ok)
	assert.Equal(t, 630, up.Remaining)
	assert.Equal(t, SeverityNormal, up.Severity)
	assert.Empty(t, up.Crossed)
	assert.InDelta(t, 52.5, up.Percentage, 0.001)

	rec, _ := e.Session()
	assert.Equal(t, 1200, rec.TotalDuration)
	assert.Equal(t, 630, rec.RemainingTime)

	up, _ = e.Sample(300)
	require.Len(t, up.Crossed, 1)
	assert.Equal(t, 300, up.Crossed[0].Boundary)
}

func TestExtend_KeepsThresholdsStillPassed(t *testing.T) {
	e := started(600, 600)
	e.Sample(2)

	up, ok := e.Extend(62)
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, up.Severity)

	up, _ = e.Sample(60)
	require.Len(t, up.Crossed, 1)
	assert.Equal(t, 60, up.Crossed[0].Boundary)
	assert.Equal(t, SeverityCritical, up.Severity)
}

func TestExtend_LowerValueIsOrdinarySample(t *testing.T) {
	e := started(600, 600)

	up, ok := e.Extend(500)
	require.True(t, ok)
	assert.Equal(t, 500, up.Remaining)
	rec, _ := e.Session()
	assert.Equal(t, 600, rec.TotalDuration)
}

func TestExtend_AfterExpiry(t *testing.T) {
	e := started(10, 600)
	e.Sample(0)

	_, ok := e.Extend(600)
	assert.False(t, ok)
	assert.Equal(t, 0, e.Remaining())
}

func TestSample_TracksPercentUsed(t *testing.T) {
	e := started(600, 600)
	rec, _ := e.Session()
	assert.Equal(t, 0.0, rec.PercentUsed)

	e.Sample(150)
	rec, _ = e.Session()
	assert.Equal(t, 75.0, rec.PercentUsed)
	assert.Equal(t, 150, rec.RemainingTime)
}
