package models

import "encoding/json"

// SessionStatus defines the lifecycle status of a session as reported by the backend.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "en_attente"
	SessionStatusActive     SessionStatus = "active"
	SessionStatusTerminated SessionStatus = "terminee"
	SessionStatusSuspended  SessionStatus = "suspendue"
	SessionStatusExpired    SessionStatus = "expiree"
)

// SessionRecord represents a time-boxed grant of terminal access.
// Durations are in seconds.
type SessionRecord struct {
	ID            int64         `json:"id"`
	AccessCode    string        `json:"code_acces,omitempty"`
	User          string        `json:"utilisateur_nom,omitempty"`
	Workstation   string        `json:"poste_nom,omitempty"`
	Status        SessionStatus `json:"statut,omitempty"`
	TotalDuration int           `json:"duree_totale"`
	RemainingTime int           `json:"temps_restant"`
	PercentUsed   float64       `json:"pourcentage_utilise"`
}

// IsActive reports whether the session is currently consuming time.
func (s SessionRecord) IsActive() bool {
	return s.Status == SessionStatusActive
}

// Percentage returns remaining/total*100, or 0 when total is unknown.
func (s SessionRecord) Percentage() float64 {
	return Percentage(s.RemainingTime, s.TotalDuration)
}

// Percentage computes remaining as a share of total. A zero or negative total yields 0.
func Percentage(remaining, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(remaining) / float64(total) * 100
}

// Stats is the dashboard statistics object pushed by the server.
// The shape is owned by the backend, so it is kept raw per section.
type Stats struct {
	Users        json.RawMessage `json:"utilisateurs,omitempty"`
	Workstations json.RawMessage `json:"postes,omitempty"`
	Sessions     json.RawMessage `json:"sessions,omitempty"`
}
