package hostshell

import (
	"context"
	"fmt"

	"github.com/soubeek/epn-solutions/go/internal/models"
)

// Config is the terminal configuration held by the native shell.
type Config struct {
	ServerURL          string `json:"server_url"`
	WSURL              string `json:"ws_url,omitempty"`
	KioskMode          bool   `json:"kiosk_mode"`
	KioskAdminPassword string `json:"kiosk_admin_password,omitempty"`
}

// HasAdminPassword reports whether the administrator challenge is available.
func (c Config) HasAdminPassword() bool {
	return c.KioskAdminPassword != ""
}

// SessionInfo is the shell's view of a session.
type SessionInfo struct {
	ID            int64  `json:"id"`
	Code          string `json:"code"`
	UserName      string `json:"user_name"`
	Workstation   string `json:"workstation"`
	TotalDuration int    `json:"total_duration"`
	RemainingTime int    `json:"remaining_time"`
	Status        string `json:"status"`
}

var statusToModel = map[string]models.SessionStatus{
	"pending":    models.SessionStatusPending,
	"active":     models.SessionStatusActive,
	"expired":    models.SessionStatusExpired,
	"terminated": models.SessionStatusTerminated,
}

// Record converts the shell's session into the shared model.
func (s SessionInfo) Record() models.SessionRecord {
	status, ok := statusToModel[s.Status]
	if !ok {
		status = models.SessionStatus(s.Status)
	}
	return models.SessionRecord{
		ID:            s.ID,
		AccessCode:    s.Code,
		User:          s.UserName,
		Workstation:   s.Workstation,
		Status:        status,
		TotalDuration: s.TotalDuration,
		RemainingTime: s.RemainingTime,
		PercentUsed:   models.Percentage(s.TotalDuration-s.RemainingTime, s.TotalDuration),
	}
}

// Notification is a desktop notification. Urgency is low, normal or critical.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Urgency string `json:"urgency"`
}

// Monitor describes the monitor holding the window.
type Monitor struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Shell is the native host's session and system surface.
type Shell interface {
	Initialize(ctx context.Context) error
	GetConfig(ctx context.Context) (Config, error)
	ValidateCode(ctx context.Context, code string) (SessionInfo, error)
	StartSession(ctx context.Context) (SessionInfo, error)
	GetRemainingTime(ctx context.Context) (int, error)
	EndSession(ctx context.Context) error
	RestartApp(ctx context.Context) error
	LockScreen(ctx context.Context) error
	VerifyAdminPassword(ctx context.Context, password string) (bool, error)
	ShowNotification(ctx context.Context, n Notification) error
}

// Window is the native host's window capability.
type Window interface {
	SetFullscreen(ctx context.Context, on bool) error
	SetDecorations(ctx context.Context, on bool) error
	SetAlwaysOnTop(ctx context.Context, on bool) error
	SetClosable(ctx context.Context, on bool) error
	SetSize(ctx context.Context, width, height int) error
	SetPosition(ctx context.Context, x, y int) error
	CurrentMonitor(ctx context.Context) (Monitor, error)
	Maximize(ctx context.Context) error
	StartDragging(ctx context.Context) error
	IsFullscreen(ctx context.Context) (bool, error)
	// PreventClose installs or removes the close-request guard.
	PreventClose(ctx context.Context, on bool) error
}

// HostCallError is a failed call into the native shell.
type HostCallError struct {
	Call string
	Err  error
}

func (e *HostCallError) Error() string {
	return fmt.Sprintf("host call %s: %v", e.Call, e.Err)
}

func (e *HostCallError) Unwrap() error {
	return e.Err
}
