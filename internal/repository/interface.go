package repository

import (
	"context"
	"time"

	"github.com/sndwiz/veriscase-backend/internal/models"
)

// AuditLogStore defines audit log data access. Append-only.
type AuditLogStore interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLogEntry) error
	ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLogEntry, int, error)
}

// SecurityEventStore defines security event data access. Events are never
// deleted; the only mutation is the resolve transition.
type SecurityEventStore interface {
	CreateSecurityEvent(ctx context.Context, event *models.SecurityEvent) error
	ListSecurityEvents(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error)
	ResolveSecurityEvent(ctx context.Context, id string) (*models.SecurityEvent, error)
	SummarizeSecurityEvents(ctx context.Context, window time.Duration) (*models.ThreatSummary, error)
}
