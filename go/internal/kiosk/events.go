package kiosk

import (
	"github.com/soubeek/epn-solutions/go/internal/kiosk/countdown"
	"github.com/soubeek/epn-solutions/go/internal/kiosk/hostshell"
	"github.com/soubeek/epn-solutions/go/internal/kiosk/presentation"
	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
)

// Loop events. Each one is produced by a channel message, a timer, a user
// input or a host call completion.
type (
	submitCodeEvent struct {
		code string
	}

	codeValidatedEvent struct {
		info hostshell.SessionInfo
		err  error
	}

	sessionStartedEvent struct {
		info hostshell.SessionInfo
		err  error
	}

	sampleEvent struct {
		sample countdown.Sample
	}

	widgetDueEvent struct {
		session uint64
	}

	graceDueEvent struct {
		session uint64
	}

	recoveredEvent struct {
		session uint64
		err     error
	}

	hostCallDoneEvent struct {
		call string
		err  error
	}

	adminChallengeEvent struct{}

	adminPasswordEvent struct {
		password string
	}

	adminVerifiedEvent struct {
		ok  bool
		err error
	}

	remoteUnlockEvent struct {
		by string
	}

	expandWidgetEvent struct{}

	startDragEvent struct{}

	appliedEvent struct {
		applied presentation.Applied
	}

	channelEvent struct {
		ev channel.Event
	}

	heartbeatDueEvent struct{}
)
