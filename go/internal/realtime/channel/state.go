package channel

import "errors"

// State is the connection lifecycle of a Channel.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrTransport wraps dial and read failures.
	ErrTransport = errors.New("transport error")
	// ErrExhaustedRetries is attached to the Failed state.
	ErrExhaustedRetries = errors.New("reconnect attempts exhausted")
	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("channel closed")
)
