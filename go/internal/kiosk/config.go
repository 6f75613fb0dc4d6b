package kiosk

import (
	"fmt"
	"time"

	"github.com/soubeek/epn-solutions/go/internal/kiosk/countdown"
)

// RecoveryPolicy is what happens once an expired session's grace delay ends.
type RecoveryPolicy string

const (
	RecoveryRestart RecoveryPolicy = "restart"
	RecoveryLock    RecoveryPolicy = "lock"
)

// ParseRecoveryPolicy accepts "restart" or "lock".
func ParseRecoveryPolicy(s string) (RecoveryPolicy, error) {
	switch RecoveryPolicy(s) {
	case RecoveryRestart, RecoveryLock:
		return RecoveryPolicy(s), nil
	}
	return "", fmt.Errorf("unknown recovery policy %q", s)
}

// Config holds configuration for the kiosk agent
type Config struct {
	// Kiosk is used when the host shell's configuration cannot be read.
	Kiosk             bool
	WidgetDelay       time.Duration
	GraceDelay        time.Duration
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	Recovery          RecoveryPolicy
	Thresholds        []countdown.Threshold
	EventBuffer       int
}

// DefaultConfig returns the default agent configuration.
func DefaultConfig() Config {
	return Config{
		Kiosk:             true,
		WidgetDelay:       1500 * time.Millisecond,
		GraceDelay:        5 * time.Second,
		PollInterval:      countdown.DefaultPollInterval,
		HeartbeatInterval: 30 * time.Second,
		Recovery:          RecoveryRestart,
		Thresholds:        countdown.DefaultThresholds(),
		EventBuffer:       64,
	}
}
