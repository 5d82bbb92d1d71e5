package models

import "time"

// Audit severity levels derived from response status and method.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// AuditLogEntry represents a single audit log record for a completed API request.
// Append-only: no UPDATE or DELETE on audit records.
type AuditLogEntry struct {
	ID           string    `json:"id" db:"id"`
	UserID       *string   `json:"user_id,omitempty" db:"user_id"`
	UserEmail    *string   `json:"user_email,omitempty" db:"user_email"`
	Action       string    `json:"action" db:"action"`
	ResourceType *string   `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID   *string   `json:"resource_id,omitempty" db:"resource_id"`
	Method       string    `json:"method" db:"method"`
	Path         string    `json:"path" db:"path"`
	IPAddress    string    `json:"ip_address" db:"ip_address"`
	UserAgent    string    `json:"user_agent,omitempty" db:"user_agent"`
	StatusCode   int       `json:"status_code" db:"status_code"`
	Severity     string    `json:"severity" db:"severity"`
	Metadata     string    `json:"metadata,omitempty" db:"metadata"` // JSON: duration_ms, response_bytes
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AuditMetadata is the JSON payload stored in AuditLogEntry.Metadata.
type AuditMetadata struct {
	DurationMs    float64 `json:"duration_ms"`
	ResponseBytes int64   `json:"response_bytes,omitempty"`
}

// AuditLogFilter narrows ListAuditLogs queries. Nil fields match everything.
type AuditLogFilter struct {
	UserID       *string
	Action       *string
	ResourceType *string
	Limit        int
	Offset       int
}
