package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type HealthStatus struct {
	Healthy           bool
	SessionsConnected bool
	StatsConnected    bool
	NATSConnected     bool
	DeltasPublished   uint64
	LastDeltaTime     time.Time
	StatsAge          time.Duration
	Errors            []string
}

type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// PublisherStats is the part of a delta publisher the health check reads.
type PublisherStats interface {
	Connected() bool
	Stats() (published uint64, last time.Time)
}

// SyncHealthChecker reports the dashboard unhealthy while the session
// channel is down or, when publishing, while NATS is disconnected.
type SyncHealthChecker struct {
	sessions  SessionSource
	stats     StatsSource
	publisher PublisherStats
	clock     clockwork.Clock
	threshold time.Duration // How old statistics may get before it is reported
}

// NewSyncHealthChecker creates a checker; stats and publisher may be nil.
func NewSyncHealthChecker(sessions SessionSource, stats StatsSource, publisher PublisherStats, clock clockwork.Clock, threshold time.Duration) *SyncHealthChecker {
	return &SyncHealthChecker{
		sessions:  sessions,
		stats:     stats,
		publisher: publisher,
		clock:     clock,
		threshold: threshold,
	}
}

func (h *SyncHealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	conn := h.sessions.Connection()
	status.SessionsConnected = conn.Connected
	if !conn.Connected {
		status.Healthy = false
		msg := fmt.Sprintf("session channel %s", conn.State)
		if conn.Error != "" {
			msg += ": " + conn.Error
		}
		status.Errors = append(status.Errors, msg)
	}

	if h.stats != nil {
		status.StatsConnected = h.stats.Connection().Connected
		if !status.StatsConnected {
			status.Errors = append(status.Errors, "stats channel not connected")
		}
		// Statistics are informative only, a stale snapshot is reported but not fatal.
		if _, updated, ok := h.stats.Stats(); ok {
			status.StatsAge = h.clock.Since(updated)
			if h.threshold > 0 && status.StatsAge > h.threshold {
				status.Errors = append(status.Errors, fmt.Sprintf("no statistics for %s", status.StatsAge))
			}
		}
	}

	if h.publisher != nil {
		status.NATSConnected = h.publisher.Connected()
		status.DeltasPublished, status.LastDeltaTime = h.publisher.Stats()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	return status
}

// ServeHTTP answers 200 when healthy and 503 otherwise.
func (h *SyncHealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	response := map[string]interface{}{
		"healthy":            status.Healthy,
		"sessions_connected": status.SessionsConnected,
		"errors":             status.Errors,
	}
	if h.stats != nil {
		response["stats_connected"] = status.StatsConnected
		response["stats_age_sec"] = int(status.StatsAge.Seconds())
	}
	if h.publisher != nil {
		response["nats_connected"] = status.NATSConnected
		response["deltas_published"] = status.DeltasPublished
		response["last_delta_time"] = status.LastDeltaTime
	}

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
		log.Warn().Strs("errors", status.Errors).Msg("dashboard unhealthy")
	}
	writeJSON(w, code, response)
}
