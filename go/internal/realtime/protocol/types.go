package protocol

// Type is the discriminator carried in every envelope's "type" field.
type Type string

// Statistics surface
const (
	TypeStatsUpdate Type = "stats_update"
	TypeGetStats    Type = "get_stats"
)

// Session-sync surface, inbound
const (
	TypeSessionsUpdate        Type = "sessions_update"
	TypeSessionUpdate         Type = "session_update"
	TypeSessionCreated        Type = "session_created"
	TypeSessionEnded          Type = "session_ended"
	TypeTimeUpdate            Type = "time_update"
	TypeConnectionEstablished Type = "connection_established"
	TypeError                 Type = "error"

	// Sent by the per-terminal endpoint.
	TypeHeartbeatAck      Type = "heartbeat_ack"
	TypeSessionTerminated Type = "session_terminated"
	TypeWarning           Type = "warning"
	TypeRemoteCommand     Type = "remote_command"
	TypeTimeAdded         Type = "time_added"
)

// Session-sync surface, outbound
const (
	TypeGetSessions  Type = "get_sessions"
	TypeValidateCode Type = "validate_code"
	TypeStartSession Type = "start_session"
	TypeGetTime      Type = "get_time"
	TypeHeartbeat    Type = "heartbeat"
)

// Remote commands carried by remote_command.
const (
	CommandUnlock  = "unlock"
	CommandLock    = "lock"
	CommandMessage = "message"
)
