package kiosk

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/soubeek/epn-solutions/go/internal/kiosk/countdown"
	"github.com/soubeek/epn-solutions/go/internal/kiosk/presentation"
	"github.com/soubeek/epn-solutions/go/internal/models"
)

// Controller is the input surface of an Agent.
type Controller interface {
	Status() Status
	SubmitCode(code string)
	HandleKey(k presentation.Key) presentation.Action
	SubmitAdminPassword(password string)
	RemoteUnlock(by string)
	ExpandWidget()
	StartDrag()
}

// StatusView is the JSON form of a Status.
type StatusView struct {
	Ready       bool                  `json:"ready"`
	Mode        string                `json:"mode"`
	KioskActive bool                  `json:"kiosk_active"`
	Session     *models.SessionRecord `json:"session,omitempty"`
	Remaining   int                   `json:"remaining"`
	Percentage  float64               `json:"percentage"`
	Severity    countdown.Severity    `json:"severity"`
	Validating  bool                  `json:"validating"`
	AdminPrompt bool                  `json:"admin_prompt"`
	Channel     string                `json:"channel"`
	LastError   string                `json:"last_error,omitempty"`
}

// View converts s for the control API.
func (s Status) View() StatusView {
	v := StatusView{
		Ready:       s.Ready,
		Mode:        s.Mode.String(),
		KioskActive: s.KioskActive,
		Session:     s.Session,
		Remaining:   s.Remaining,
		Percentage:  s.Percentage,
		Severity:    s.Severity,
		Validating:  s.Validating,
		AdminPrompt: s.AdminPrompt,
		Channel:     s.Channel.String(),
	}
	if s.LastError != nil {
		v.LastError = s.LastError.Error()
	}
	return v
}

var _ Controller = (*Agent)(nil)

// ControlHandler lets the terminal UI drive the agent over local HTTP.
type ControlHandler struct {
	agent Controller
}

func NewControlHandler(agent Controller) *ControlHandler {
	return &ControlHandler{agent: agent}
}

// RegisterRoutes registers the control routes on mux.
func (h *ControlHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /agent/status", h.handleStatus)
	mux.HandleFunc("POST /agent/code", h.handleCode)
	mux.HandleFunc("POST /agent/key", h.handleKey)
	mux.HandleFunc("POST /agent/admin-password", h.handleAdminPassword)
	mux.HandleFunc("POST /agent/unlock", h.handleUnlock)
	mux.HandleFunc("POST /agent/expand", h.handleExpand)
	mux.HandleFunc("POST /agent/drag", h.handleDrag)
}

func (h *ControlHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.agent.Status().View())
}

func (h *ControlHandler) handleCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		http.Error(w, "Code is required", http.StatusBadRequest)
		return
	}
	h.agent.SubmitCode(req.Code)
	w.WriteHeader(http.StatusAccepted)
}

func (h *ControlHandler) handleKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string `json:"code"`
		Ctrl  bool   `json:"ctrl"`
		Alt   bool   `json:"alt"`
		Shift bool   `json:"shift"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	action := h.agent.HandleKey(presentation.Key{Code: req.Code, Ctrl: req.Ctrl, Alt: req.Alt, Shift: req.Shift})
	writeJSON(w, http.StatusOK, map[string]string{"action": action.String()})
}

func (h *ControlHandler) handleAdminPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	h.agent.SubmitAdminPassword(req.Password)
	w.WriteHeader(http.StatusAccepted)
}

func (h *ControlHandler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		By string `json:"by"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	h.agent.RemoteUnlock(req.By)
	w.WriteHeader(http.StatusAccepted)
}

func (h *ControlHandler) handleExpand(w http.ResponseWriter, r *http.Request) {
	h.agent.ExpandWidget()
	w.WriteHeader(http.StatusAccepted)
}

func (h *ControlHandler) handleDrag(w http.ResponseWriter, r *http.Request) {
	h.agent.StartDrag()
	w.WriteHeader(http.StatusAccepted)
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
