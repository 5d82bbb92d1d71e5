// Package rest exposes the security and audit read surface over HTTP.
// All endpoints here are operator-facing; mutation of domain records
// happens elsewhere in the application.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sndwiz/veriscase-backend/internal/auth"
	"github.com/sndwiz/veriscase-backend/internal/repository"
	"github.com/sndwiz/veriscase-backend/internal/security"
)

// Handler manages HTTP request handlers for the security surface.
type Handler struct {
	events     *security.EventRecorder
	killSwitch *security.KillSwitch
	sessions   *security.SessionMonitor
	auditStore repository.AuditLogStore
}

// NewHandler creates a new HTTP handler.
func NewHandler(events *security.EventRecorder, ks *security.KillSwitch, sm *security.SessionMonitor, auditStore repository.AuditLogStore) *Handler {
	return &Handler{
		events:     events,
		killSwitch: ks,
		sessions:   sm,
		auditStore: auditStore,
	}
}

// SetupRoutes configures the security and audit API routes on the given
// router, which is expected to be the /api/v1 subrouter.
func SetupRoutes(router *mux.Router, h *Handler) {
	router.HandleFunc("/security/threat-summary", h.GetThreatSummary).Methods("GET")
	router.HandleFunc("/security/events", h.ListSecurityEvents).Methods("GET")
	router.HandleFunc("/security/events/{id}/resolve", h.ResolveSecurityEvent).Methods("PATCH")
	router.HandleFunc("/security/session-info", h.GetSessionInfo).Methods("GET")
	router.HandleFunc("/security/kill-switch", h.GetKillSwitchStatus).Methods("GET")
	router.HandleFunc("/security/kill-switch/activate", h.ActivateKillSwitch).Methods("POST")
	router.HandleFunc("/security/kill-switch/deactivate", h.DeactivateKillSwitch).Methods("POST")

	router.HandleFunc("/security/audit-logs", h.ListAuditLogs).Methods("GET")
	router.HandleFunc("/security/audit-logs/export", h.ExportAuditLogs).Methods("GET")
}

// requireAdmin enforces the admin boundary: 401 for anonymous callers, 403
// for authenticated non-admins. Returns the claims when the caller may
// proceed.
func requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	if !auth.IsAdmin(claims) {
		respondError(w, http.StatusForbidden, "Admin access required")
		return nil, false
	}
	return claims, true
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
