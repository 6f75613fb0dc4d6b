package presentation

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/kiosk/hostshell"
)

const (
	WidgetWidth  = 320
	WidgetHeight = 80
	widgetMargin = 20

	fullscreenAttempts = 5
	fullscreenRetry    = 500 * time.Millisecond
)

// layout is a window arrangement applied through the host shell.
type layout int

const (
	layoutNone layout = iota
	layoutKiosk
	layoutWidget
	layoutUnlocked
)

func (l layout) String() string {
	switch l {
	case layoutKiosk:
		return "kiosk"
	case layoutWidget:
		return "widget"
	case layoutUnlocked:
		return "unlocked"
	default:
		return "none"
	}
}

func applyLayout(ctx context.Context, w hostshell.Window, clock clockwork.Clock, l layout) error {
	switch l {
	case layoutKiosk:
		return applyKiosk(ctx, w, clock)
	case layoutWidget:
		return applyWidget(ctx, w)
	case layoutUnlocked:
		return applyUnlocked(ctx, w)
	}
	return nil
}

// applyKiosk locks the window fullscreen. The host cannot confirm fullscreen
// synchronously, so it is requested again until IsFullscreen agrees.
func applyKiosk(ctx context.Context, w hostshell.Window, clock clockwork.Clock) error {
	if err := w.SetDecorations(ctx, false); err != nil {
		return err
	}
	if err := w.SetAlwaysOnTop(ctx, true); err != nil {
		return err
	}
	if err := w.SetClosable(ctx, false); err != nil {
		return err
	}
	if err := w.PreventClose(ctx, true); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= fullscreenAttempts; attempt++ {
		if err := w.SetFullscreen(ctx, true); err != nil {
			lastErr = err
		} else if on, err := w.IsFullscreen(ctx); err != nil {
			lastErr = err
		} else if on {
			return nil
		}

		log.Debug().Int("attempt", attempt).Msg("fullscreen not confirmed yet")
		if attempt == fullscreenAttempts {
			break
		}
		select {
		case <-clock.After(fullscreenRetry):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if lastErr != nil {
		return fmt.Errorf("fullscreen not confirmed after %d attempts: %w", fullscreenAttempts, lastErr)
	}
	return fmt.Errorf("fullscreen not confirmed after %d attempts", fullscreenAttempts)
}

// applyWidget shrinks the window to the floating reminder in the top-right corner.
func applyWidget(ctx context.Context, w hostshell.Window) error {
	if err := w.SetFullscreen(ctx, false); err != nil {
		return err
	}
	if err := w.SetDecorations(ctx, false); err != nil {
		return err
	}
	if err := w.SetAlwaysOnTop(ctx, true); err != nil {
		return err
	}
	if err := w.SetSize(ctx, WidgetWidth, WidgetHeight); err != nil {
		return err
	}

	monitor, err := w.CurrentMonitor(ctx)
	if err != nil {
		return err
	}
	x := monitor.Width - WidgetWidth - widgetMargin
	if x < 0 {
		x = 0
	}
	return w.SetPosition(ctx, x, widgetMargin)
}

// applyUnlocked restores a normal window.
func applyUnlocked(ctx context.Context, w hostshell.Window) error {
	if err := w.PreventClose(ctx, false); err != nil {
		return err
	}
	if err := w.SetFullscreen(ctx, false); err != nil {
		return err
	}
	if err := w.SetDecorations(ctx, true); err != nil {
		return err
	}
	if err := w.SetAlwaysOnTop(ctx, false); err != nil {
		return err
	}
	if err := w.SetClosable(ctx, true); err != nil {
		return err
	}
	return w.Maximize(ctx)
}
