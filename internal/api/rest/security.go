package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/sndwiz/veriscase-backend/internal/auth"
	"github.com/sndwiz/veriscase-backend/internal/models"
	"github.com/sndwiz/veriscase-backend/internal/pkg/realip"
	"github.com/sndwiz/veriscase-backend/internal/repository"
	"github.com/sndwiz/veriscase-backend/internal/security"
)

// GetThreatSummary handles GET /security/threat-summary
func (h *Handler) GetThreatSummary(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	summary, err := h.events.Summarize(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to compute threat summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// ListSecurityEvents handles GET /security/events
func (h *Handler) ListSecurityEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	filter := models.SecurityEventFilter{}
	q := r.URL.Query()
	if v := q.Get("event_type"); v != "" {
		filter.EventType = &v
	}
	if v := q.Get("severity"); v != "" {
		filter.Severity = &v
	}
	if v := q.Get("resolved"); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid resolved parameter")
			return
		}
		filter.Resolved = &resolved
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		filter.Limit = limit
	}

	events, err := h.events.Query(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list security events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// ResolveSecurityEvent handles PATCH /security/events/{id}/resolve
func (h *Handler) ResolveSecurityEvent(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	id := mux.Vars(r)["id"]
	event, err := h.events.Resolve(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Security event not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to resolve security event")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

type sessionInfoResponse struct {
	InitialIP    string                 `json:"initial_ip"`
	LastIP       string                 `json:"last_ip"`
	History      []models.IPObservation `json:"history"`
	LastActivity *time.Time             `json:"last_activity"`
	CurrentIP    string                 `json:"current_ip"`
}

// GetSessionInfo handles GET /security/session-info. Any authenticated user
// may inspect their own session's tracked state. A session the monitor has
// not seen yet still gets a 200 with empty fields, so callers can always
// read their current resolved address.
func (h *Handler) GetSessionInfo(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	resp := sessionInfoResponse{CurrentIP: realip.FromRequest(r)}
	if state, ok := h.sessions.Info(claims.SessionID()); ok {
		resp.InitialIP = state.InitialIP
		resp.LastIP = state.LastIP
		resp.History = state.History
		resp.LastActivity = &state.LastActivity
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetKillSwitchStatus handles GET /security/kill-switch
func (h *Handler) GetKillSwitchStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.killSwitch.State())
}

// ActivateKillSwitch handles POST /security/kill-switch/activate. The
// response carries the recovery key: the only time it is ever surfaced.
func (h *Handler) ActivateKillSwitch(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// An empty body is fine and applies the default lockdown reason, but a
	// body that fails to parse must not trigger a lockdown.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := security.Actor{ID: claims.UserID, IP: realip.FromRequest(r), UserAgent: r.UserAgent()}
	key, err := h.killSwitch.Activate(actor, req.Reason)
	if err != nil {
		if errors.Is(err, security.ErrAlreadyActive) {
			respondError(w, http.StatusConflict, "Kill switch is already active")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to activate kill switch")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"recovery_key": key,
		"status":       h.killSwitch.State(),
	})
}

// DeactivateKillSwitch handles POST /security/kill-switch/deactivate
func (h *Handler) DeactivateKillSwitch(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req struct {
		RecoveryKey string `json:"recovery_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := security.Actor{ID: claims.UserID, IP: realip.FromRequest(r), UserAgent: r.UserAgent()}
	if err := h.killSwitch.Deactivate(actor, req.RecoveryKey); err != nil {
		switch {
		case errors.Is(err, security.ErrNotActive):
			respondError(w, http.StatusBadRequest, "Kill switch is not active")
		case errors.Is(err, security.ErrInvalidRecoveryKey):
			respondError(w, http.StatusBadRequest, "Invalid recovery key")
		default:
			respondError(w, http.StatusInternalServerError, "Failed to deactivate kill switch")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
