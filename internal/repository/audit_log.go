package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sndwiz/veriscase-backend/internal/models"
)

// CreateAuditLog appends one audit log entry. IDs and timestamps are filled
// in when the caller left them zero.
func (s *Store) CreateAuditLog(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := s.rebind(`
		INSERT INTO audit_log (id, user_id, user_email, action, resource_type, resource_id,
			method, path, ip_address, user_agent, status_code, severity, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.UserEmail,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.Method,
		entry.Path,
		entry.IPAddress,
		entry.UserAgent,
		entry.StatusCode,
		entry.Severity,
		entry.Metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

// ListAuditLogs returns entries newest-first plus the total count matching
// the filter (for pagination).
func (s *Store) ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLogEntry, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if filter.UserID != nil {
		where += " AND user_id = ?"
		args = append(args, *filter.UserID)
	}
	if filter.Action != nil {
		where += " AND action = ?"
		args = append(args, *filter.Action)
	}
	if filter.ResourceType != nil {
		where += " AND resource_type = ?"
		args = append(args, *filter.ResourceType)
	}

	var total int
	countQuery := s.rebind("SELECT COUNT(*) FROM audit_log" + where)
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit log entries: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	listQuery := s.rebind("SELECT * FROM audit_log" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	var entries []*models.AuditLogEntry
	if err := s.db.SelectContext(ctx, &entries, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	return entries, total, nil
}
