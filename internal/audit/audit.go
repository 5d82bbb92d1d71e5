package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sndwiz/veriscase-backend/internal/models"
	"github.com/sndwiz/veriscase-backend/internal/pkg/metrics"
	"github.com/sndwiz/veriscase-backend/internal/repository"
)

// writeTimeout bounds each audit write made off the request path.
const writeTimeout = 10 * time.Second

// ActionName derives the semantic action name for a request:
// {verb}_{resource}, where verb maps from the HTTP method.
func ActionName(method, resource string) string {
	var verb string
	switch method {
	case http.MethodGet:
		verb = "view"
	case http.MethodPost:
		verb = "create"
	case http.MethodPut, http.MethodPatch:
		verb = "update"
	case http.MethodDelete:
		verb = "delete"
	default:
		verb = "access"
	}
	if resource == "" {
		resource = "api"
	}
	return verb + "_" + resource
}

// SeverityFor derives audit severity from response status and method.
// Pure function; see the corresponding table in the tests.
func SeverityFor(statusCode int, method string) string {
	switch {
	case statusCode >= 500:
		return models.SeverityError
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return models.SeverityWarning
	case method == http.MethodDelete:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

// Recorder writes audit log entries without blocking the response lifecycle.
type Recorder struct {
	store repository.AuditLogStore
	log   *slog.Logger
}

// NewRecorder creates a recorder over the given store.
func NewRecorder(store repository.AuditLogStore, log *slog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record persists one entry on its own goroutine. The context is detached
// from the request so a client disconnect cannot cancel the write; failures
// are logged and dropped.
func (r *Recorder) Record(entry *models.AuditLogEntry) {
	if r == nil || r.store == nil || entry == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.store.CreateAuditLog(ctx, entry); err != nil {
			metrics.AuditEntriesTotal.WithLabelValues("dropped").Inc()
			r.log.Warn("audit log write failed, dropping",
				"action", entry.Action, "path", entry.Path, "error", err)
			return
		}
		metrics.AuditEntriesTotal.WithLabelValues("written").Inc()
	}()
}

// BuildEntry assembles the audit record for a finished exchange.
func BuildEntry(policy Policy, r *http.Request, clientIP string, userID, userEmail *string, statusCode int, duration time.Duration, responseBytes int64) *models.AuditLogEntry {
	resourceType, resourceID := policy.ResourceFromPath(r.URL.Path)
	meta, _ := json.Marshal(models.AuditMetadata{
		DurationMs:    float64(duration.Microseconds()) / 1000.0,
		ResponseBytes: responseBytes,
	})

	entry := &models.AuditLogEntry{
		UserID:     userID,
		UserEmail:  userEmail,
		Action:     ActionName(r.Method, resourceType),
		Method:     r.Method,
		Path:       r.URL.Path,
		IPAddress:  clientIP,
		UserAgent:  r.UserAgent(),
		StatusCode: statusCode,
		Severity:   SeverityFor(statusCode, r.Method),
		Metadata:   string(meta),
		CreatedAt:  time.Now().UTC(),
	}
	if resourceType != "" {
		entry.ResourceType = &resourceType
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	return entry
}
