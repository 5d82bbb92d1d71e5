package rest

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/sndwiz/veriscase-backend/internal/models"
)

// exportLimit caps one CSV export at the store's page ceiling; pagination
// via the JSON endpoint covers anything bigger.
const exportLimit = 1000

// ListAuditLogs handles GET /security/audit-logs
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		h.ExportAuditLogs(w, r)
		return
	}

	filter, ok := auditFilterFromQuery(w, r)
	if !ok {
		return
	}

	logs, total, err := h.auditStore.ListAuditLogs(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list audit logs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
	})
}

// ExportAuditLogs handles GET /security/audit-logs/export, streaming
// matching entries as CSV for offline review.
func (h *Handler) ExportAuditLogs(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	filter, ok := auditFilterFromQuery(w, r)
	if !ok {
		return
	}
	filter.Limit = exportLimit
	filter.Offset = 0

	logs, _, err := h.auditStore.ListAuditLogs(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to export audit logs")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		`attachment; filename="audit-logs-`+time.Now().UTC().Format("2006-01-02")+`.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "created_at", "user_id", "user_email", "action",
		"resource_type", "resource_id", "method", "path", "ip_address", "status_code", "severity"})
	for _, entry := range logs {
		_ = cw.Write([]string{
			entry.ID,
			entry.CreatedAt.UTC().Format(time.RFC3339),
			deref(entry.UserID),
			deref(entry.UserEmail),
			entry.Action,
			deref(entry.ResourceType),
			deref(entry.ResourceID),
			entry.Method,
			entry.Path,
			entry.IPAddress,
			strconv.Itoa(entry.StatusCode),
			entry.Severity,
		})
	}
	cw.Flush()
}

func auditFilterFromQuery(w http.ResponseWriter, r *http.Request) (models.AuditLogFilter, bool) {
	filter := models.AuditLogFilter{}
	q := r.URL.Query()
	if v := q.Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := q.Get("action"); v != "" {
		filter.Action = &v
	}
	if v := q.Get("resource_type"); v != "" {
		filter.ResourceType = &v
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit parameter")
			return filter, false
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			respondError(w, http.StatusBadRequest, "Invalid offset parameter")
			return filter, false
		}
		filter.Offset = offset
	}
	return filter, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
