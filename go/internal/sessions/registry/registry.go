package registry

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/models"
)

// Registry holds the dashboard's ordered list of session records, keyed by id.
// It is mutated only by server deltas applied in arrival order. Reads may
// come from any goroutine.
type Registry struct {
	mu       sync.RWMutex
	sessions []models.SessionRecord
	index    map[int64]int
	current  int64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{index: make(map[int64]int)}
}

// ReplaceAll swaps the whole list. A repeated id keeps its first position and
// takes the last occurrence's contents.
func (r *Registry) ReplaceAll(list []models.SessionRecord) {
	sessions := make([]models.SessionRecord, 0, len(list))
	index := make(map[int64]int, len(list))
	for _, rec := range list {
		if i, ok := index[rec.ID]; ok {
			sessions[i] = rec
			continue
		}
		index[rec.ID] = len(sessions)
		sessions = append(sessions, rec)
	}
	if dupes := len(list) - len(sessions); dupes > 0 {
		log.Warn().Int("duplicates", dupes).Msg("sessions_update carried duplicate ids")
	}

	r.mu.Lock()
	r.sessions = sessions
	r.index = index
	r.mu.Unlock()
}

// Update replaces the record with the same id in place. It reports false,
// leaving the registry unchanged, when the id is not tracked.
func (r *Registry) Update(rec models.SessionRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[rec.ID]
	if !ok {
		log.Warn().Int64("session_id", rec.ID).Msg("session_update for unknown session")
		return false
	}
	r.sessions[i] = rec
	return true
}

// Add appends a new record; an id already present is replaced in place.
func (r *Registry) Add(rec models.SessionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.index[rec.ID]; ok {
		r.sessions[i] = rec
		return
	}
	r.index[rec.ID] = len(r.sessions)
	r.sessions = append(r.sessions, rec)
}

// Remove drops the record with id, keeping the order of the rest.
func (r *Registry) Remove(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.sessions); j++ {
		r.index[r.sessions[j].ID] = j
	}
	return true
}

// SetCurrent selects the session time updates apply to. Zero clears it.
func (r *Registry) SetCurrent(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = id
}

// Current returns the tracked session id, zero if none.
func (r *Registry) Current() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// ApplyTime applies a time sample to the tracked session. Samples for other
// sessions, or while nothing is tracked, are ignored. A sample without a
// session id is taken to be for the tracked session.
func (r *Registry) ApplyTime(sessionID int64, remaining int, percentage float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == 0 || (sessionID != 0 && sessionID != r.current) {
		return false
	}
	i, ok := r.index[r.current]
	if !ok {
		return false
	}
	r.sessions[i].RemainingTime = remaining
	r.sessions[i].PercentUsed = percentage
	return true
}

// Get returns a copy of the record with id.
func (r *Registry) Get(id int64) (models.SessionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return models.SessionRecord{}, false
	}
	return r.sessions[i], true
}

// Snapshot returns a copy of the list in order.
func (r *Registry) Snapshot() []models.SessionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.SessionRecord, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Len returns the number of tracked records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
