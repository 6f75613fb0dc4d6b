package kiosk

import (
	"github.com/soubeek/epn-solutions/go/internal/kiosk/countdown"
	"github.com/soubeek/epn-solutions/go/internal/kiosk/presentation"
	"github.com/soubeek/epn-solutions/go/internal/models"
	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
)

// Status is a snapshot of the agent, published after every loop event.
type Status struct {
	Ready       bool
	Mode        presentation.Mode
	KioskActive bool
	Session     *models.SessionRecord
	Remaining   int
	Percentage  float64
	Severity    countdown.Severity
	Validating  bool
	AdminPrompt bool
	Channel     channel.State
	LastError   error
}
