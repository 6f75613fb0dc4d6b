package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/soubeek/epn-solutions/go/internal/models"
)

// StatsUpdatePayload carries the dashboard statistics.
type StatsUpdatePayload struct {
	Data models.Stats `json:"data"`
}

// SessionsUpdatePayload is a full snapshot of the session list.
type SessionsUpdatePayload struct {
	Data []models.SessionRecord `json:"data"`
}

// SessionPayload is used by session_update and session_created.
type SessionPayload struct {
	Data models.SessionRecord `json:"data"`
}

// SessionEndedPayload identifies the session that ended.
type SessionEndedPayload struct {
	Data struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

// TimeUpdatePayload is a remaining-time sample. SessionID is zero when the
// server pushes the update on a per-session endpoint.
type TimeUpdatePayload struct {
	SessionID   int64   `json:"session_id"`
	Remaining   int     `json:"temps_restant"`
	PercentUsed float64 `json:"pourcentage_utilise"`
	Status      string  `json:"statut,omitempty"`
}

// ConnectionEstablishedPayload is the server greeting.
type ConnectionEstablishedPayload struct {
	Message string `json:"message"`
	User    string `json:"user,omitempty"`
}

// ErrorPayload is a server-side error report.
type ErrorPayload struct {
	Message string `json:"message"`
}

// HeartbeatAckPayload answers a heartbeat.
type HeartbeatAckPayload struct {
	Timestamp string `json:"timestamp"`
}

// SessionTerminatedPayload tells a terminal its session was closed server-side.
type SessionTerminatedPayload struct {
	Reason  string `json:"raison"`
	Message string `json:"message"`
}

// WarningPayload is a server-issued time warning.
type WarningPayload struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Remaining int    `json:"temps_restant"`
}

// RemoteCommandPayload is an administrator command for a terminal.
type RemoteCommandPayload struct {
	Command string `json:"command"`
	Payload string `json:"payload,omitempty"`
}

// TimeAddedPayload reports an operator extending the running session.
// Remaining already includes the added seconds.
type TimeAddedPayload struct {
	Added     int    `json:"secondes_ajoutees"`
	Remaining int    `json:"temps_restant"`
	Operator  string `json:"operateur,omitempty"`
}

// DecodePayload parses the envelope into the payload struct for its type.
// Unknown types return nil, nil.
func DecodePayload(env Envelope) (interface{}, error) {
	var payload interface{}
	switch env.Type {
	case TypeStatsUpdate:
		payload = &StatsUpdatePayload{}
	case TypeSessionsUpdate:
		payload = &SessionsUpdatePayload{}
	case TypeSessionUpdate, TypeSessionCreated:
		payload = &SessionPayload{}
	case TypeSessionEnded:
		payload = &SessionEndedPayload{}
	case TypeTimeUpdate:
		payload = &TimeUpdatePayload{}
	case TypeConnectionEstablished:
		payload = &ConnectionEstablishedPayload{}
	case TypeError:
		payload = &ErrorPayload{}
	case TypeHeartbeatAck:
		payload = &HeartbeatAckPayload{}
	case TypeSessionTerminated:
		payload = &SessionTerminatedPayload{}
	case TypeWarning:
		payload = &WarningPayload{}
	case TypeRemoteCommand:
		payload = &RemoteCommandPayload{}
	case TypeTimeAdded:
		payload = &TimeAddedPayload{}
	default:
		return nil, nil
	}

	if err := json.Unmarshal(env.Raw, payload); err != nil {
		return nil, fmt.Errorf("%w: decode %s payload: %v", ErrProtocol, env.Type, err)
	}
	return payload, nil
}

// Outbound messages

// GetStats asks for a stats_update.
type GetStats struct{}

func (GetStats) MessageType() Type { return TypeGetStats }

// GetSessions asks for a full sessions_update.
type GetSessions struct{}

func (GetSessions) MessageType() Type { return TypeGetSessions }

// ValidateCode checks an access code, optionally bound to the terminal address.
type ValidateCode struct {
	Code      string `json:"code"`
	IPAddress string `json:"ip_address,omitempty"`
}

func (ValidateCode) MessageType() Type { return TypeValidateCode }

// StartSession starts a validated session.
type StartSession struct {
	SessionID int64 `json:"session_id"`
}

func (StartSession) MessageType() Type { return TypeStartSession }

// GetTime asks for a time_update for one session.
type GetTime struct {
	SessionID int64 `json:"session_id"`
}

func (GetTime) MessageType() Type { return TypeGetTime }

// Heartbeat keeps the connection considered alive by the server.
type Heartbeat struct{}

func (Heartbeat) MessageType() Type { return TypeHeartbeat }
