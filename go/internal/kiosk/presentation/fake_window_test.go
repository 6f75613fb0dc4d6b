package presentation

import (
	"context"
	"fmt"
	"sync"

	"github.com/soubeek/epn-solutions/go/internal/kiosk/hostshell"
)

// fakeWindow records every call. gate, when set, blocks SetDecorations until
// it receives a value.
type fakeWindow struct {
	mu              sync.Mutex
	calls           []string
	fullscreen      bool
	fullscreenAfter int
	fullscreenReqs  int
	gate            chan struct{}
}

func (w *fakeWindow) record(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, fmt.Sprintf(format, args...))
}

func (w *fakeWindow) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *fakeWindow) has(call string) bool {
	for _, c := range w.Calls() {
		if c == call {
			return true
		}
	}
	return false
}

func (w *fakeWindow) SetFullscreen(_ context.Context, on bool) error {
	w.record("setFullscreen(%t)", on)
	w.mu.Lock()
	defer w.mu.Unlock()
	if on {
		w.fullscreenReqs++
		w.fullscreen = w.fullscreenReqs > w.fullscreenAfter
	} else {
		w.fullscreen = false
	}
	return nil
}

func (w *fakeWindow) SetDecorations(_ context.Context, on bool) error {
	w.mu.Lock()
	gate := w.gate
	w.mu.Unlock()
	if gate != nil {
		<-gate
	}
	w.record("setDecorations(%t)", on)
	return nil
}

func (w *fakeWindow) SetAlwaysOnTop(_ context.Context, on bool) error {
	w.record("setAlwaysOnTop(%t)", on)
	return nil
}

func (w *fakeWindow) SetClosable(_ context.Context, on bool) error {
	w.record("setClosable(%t)", on)
	return nil
}

func (w *fakeWindow) SetSize(_ context.Context, width, height int) error {
	w.record("setSize(%d,%d)", width, height)
	return nil
}

func (w *fakeWindow) SetPosition(_ context.Context, x, y int) error {
	w.record("setPosition(%d,%d)", x, y)
	return nil
}

func (w *fakeWindow) CurrentMonitor(context.Context) (hostshell.Monitor, error) {
	w.record("currentMonitor")
	return hostshell.Monitor{Width: 1920, Height: 1080}, nil
}

func (w *fakeWindow) Maximize(context.Context) error {
	w.record("maximize")
	return nil
}

func (w *fakeWindow) StartDragging(context.Context) error {
	w.record("startDragging")
	return nil
}

func (w *fakeWindow) IsFullscreen(context.Context) (bool, error) {
	w.record("isFullscreen")
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fullscreen, nil
}

func (w *fakeWindow) PreventClose(_ context.Context, on bool) error {
	w.record("preventClose(%t)", on)
	return nil
}
