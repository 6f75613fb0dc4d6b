package presentation

import "errors"

var (
	// ErrInvalidTransition is returned for a mode change outside the defined edges.
	ErrInvalidTransition = errors.New("invalid presentation transition")
	// ErrSwitchInFlight is returned by Apply while a mode switch is still being applied.
	ErrSwitchInFlight = errors.New("presentation switch in flight")
)

// Mode is the kiosk screen mode.
type Mode int

const (
	ModeLogin Mode = iota
	ModeSessionFullscreen
	ModeWidget
	ModeExpired
)

func (m Mode) String() string {
	switch m {
	case ModeLogin:
		return "login"
	case ModeSessionFullscreen:
		return "session_fullscreen"
	case ModeWidget:
		return "widget"
	case ModeExpired:
		return "expired"
	default:
		return "unknown"
	}
}

var edges = map[Mode][]Mode{
	ModeLogin:             {ModeSessionFullscreen},
	ModeSessionFullscreen: {ModeWidget, ModeExpired},
	ModeWidget:            {ModeSessionFullscreen, ModeExpired},
	ModeExpired:           {ModeLogin},
}

// CanTransition reports whether from -> to is a defined edge.
func CanTransition(from, to Mode) bool {
	for _, m := range edges[from] {
		if m == to {
			return true
		}
	}
	return false
}
