package presentation

import "strings"

// Key is a key press with its modifiers. Code uses DOM key names
// ("Tab", "F4", "F11", "Escape", "k").
type Key struct {
	Code  string
	Ctrl  bool
	Alt   bool
	Shift bool
}

// Action is what the host should do with a key press.
type Action int

const (
	ActionPass Action = iota
	ActionSuppress
	ActionAdminChallenge
)

func (a Action) String() string {
	switch a {
	case ActionSuppress:
		return "suppress"
	case ActionAdminChallenge:
		return "admin_challenge"
	default:
		return "pass"
	}
}

// Interceptor filters window-management gestures while the kiosk lock is on.
type Interceptor struct {
	adminChallenge bool
}

// NewInterceptor creates an interceptor. adminChallenge enables the
// Ctrl+Alt+Shift+K password challenge.
func NewInterceptor(adminChallenge bool) *Interceptor {
	return &Interceptor{adminChallenge: adminChallenge}
}

// Handle classifies k. kioskActive is the machine's KioskActive.
func (i *Interceptor) Handle(k Key, kioskActive bool) Action {
	if k.Ctrl && k.Alt && k.Shift && strings.EqualFold(k.Code, "k") {
		if i.adminChallenge {
			return ActionAdminChallenge
		}
		return ActionPass
	}

	if !kioskActive {
		return ActionPass
	}

	switch {
	case k.Alt && k.Code == "F4":
		return ActionSuppress
	case k.Alt && k.Code == "Tab":
		return ActionSuppress
	case k.Code == "F11":
		return ActionSuppress
	case k.Code == "Escape":
		return ActionSuppress
	}
	return ActionPass
}
