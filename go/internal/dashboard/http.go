package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/soubeek/epn-solutions/go/internal/models"
)

// SessionSource is the read side of a SessionSync.
type SessionSource interface {
	Sessions() []models.SessionRecord
	Session(id int64) (models.SessionRecord, bool)
	Connection() ConnectionStatus
}

// StatsSource is the read side of a StatsMonitor.
type StatsSource interface {
	Stats() (models.Stats, time.Time, bool)
	Connection() ConnectionStatus
}

// SessionsResponse is the body of GET /api/sessions.
type SessionsResponse struct {
	Sessions []models.SessionRecord `json:"sessions"`
	Count    int                    `json:"count"`
	Active   int                    `json:"active"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Stats     models.Stats `json:"stats"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ConnectionsResponse is the body of GET /api/connection.
type ConnectionsResponse struct {
	Sessions ConnectionStatus  `json:"sessions"`
	Stats    *ConnectionStatus `json:"stats,omitempty"`
}

// HTTPHandler serves read-only JSON snapshots of the dashboard state.
type HTTPHandler struct {
	sessions SessionSource
	stats    StatsSource
	health   http.Handler
}

// NewHTTPHandler creates the snapshot API. stats and health may be nil;
// without a health handler /health always answers OK.
func NewHTTPHandler(sessions SessionSource, stats StatsSource, health http.Handler) *HTTPHandler {
	return &HTTPHandler{sessions: sessions, stats: stats, health: health}
}

// RegisterRoutes registers the snapshot routes and /health on mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.handleSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.handleSession)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("GET /api/connection", h.handleConnection)
	if h.health != nil {
		mux.Handle("/health", h.health)
		return
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

// Handler returns the routes wrapped with CORS and h2c.
func (h *HTTPHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

func (h *HTTPHandler) handleSessions(w http.ResponseWriter, r *http.Request) {
	list := h.sessions.Sessions()
	resp := SessionsResponse{Sessions: list, Count: len(list)}
	for _, s := range list {
		if s.IsActive() {
			resp.Active++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}
	rec, ok := h.sessions.Session(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		http.Error(w, "Statistics are not monitored", http.StatusNotFound)
		return
	}
	stats, updated, ok := h.stats.Stats()
	if !ok {
		http.Error(w, "No statistics received yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Stats: stats, UpdatedAt: updated})
}

func (h *HTTPHandler) handleConnection(w http.ResponseWriter, r *http.Request) {
	resp := ConnectionsResponse{Sessions: h.sessions.Connection()}
	if h.stats != nil {
		c := h.stats.Connection()
		resp.Stats = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
