package channel

import (
	"net/http"
	"time"
)

// RetryPolicy decides whether and when the next reconnect attempt runs.
// attempt is 1-based: the number the upcoming attempt would carry.
type RetryPolicy interface {
	Next(attempt int) (time.Duration, bool)
	Max() int
}

// FixedDelay retries after the same delay, up to MaxAttempts times.
type FixedDelay struct {
	Delay       time.Duration
	MaxAttempts int
}

func (p FixedDelay) Next(attempt int) (time.Duration, bool) {
	if attempt > p.MaxAttempts {
		return 0, false
	}
	return p.Delay, true
}

func (p FixedDelay) Max() int {
	return p.MaxAttempts
}

// Config holds configuration for a Channel
type Config struct {
	URL              string
	Header           http.Header
	Retry            RetryPolicy
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration // 0 disables client pings
	MaxMessageSize   int64
	EventBuffer      int
}

// DefaultConfig returns the default channel configuration for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		Retry:            FixedDelay{Delay: 3 * time.Second, MaxAttempts: 5},
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		MaxMessageSize:   1 << 20, // session lists can be large
		EventBuffer:      256,
	}
}
