package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sndwiz/veriscase-backend/internal/models"
)

// CreateSecurityEvent appends one security event.
func (s *Store) CreateSecurityEvent(ctx context.Context, event *models.SecurityEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = models.SeverityInfo
	}

	query := s.rebind(`
		INSERT INTO security_events (id, event_type, user_id, ip_address, user_agent, details, severity, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.UserID,
		event.IPAddress,
		event.UserAgent,
		event.Details,
		event.Severity,
		event.Resolved,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create security event: %w", err)
	}
	return nil
}

// ListSecurityEvents returns events newest-first.
func (s *Store) ListSecurityEvents(ctx context.Context, filter models.SecurityEventFilter) ([]*models.SecurityEvent, error) {
	query := "SELECT * FROM security_events WHERE 1=1"
	args := []interface{}{}
	if filter.EventType != nil {
		query += " AND event_type = ?"
		args = append(args, *filter.EventType)
	}
	if filter.Severity != nil {
		query += " AND severity = ?"
		args = append(args, *filter.Severity)
	}
	if filter.Resolved != nil {
		query += " AND resolved = ?"
		args = append(args, *filter.Resolved)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	var events []*models.SecurityEvent
	if err := s.db.SelectContext(ctx, &events, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}
	return events, nil
}

// ResolveSecurityEvent marks the event resolved and returns the updated
// record, or ErrNotFound.
func (s *Store) ResolveSecurityEvent(ctx context.Context, id string) (*models.SecurityEvent, error) {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE security_events SET resolved = ? WHERE id = ?"), true, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve security event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	var event models.SecurityEvent
	err = s.db.GetContext(ctx, &event, s.rebind("SELECT * FROM security_events WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load security event: %w", err)
	}
	return &event, nil
}

// headlineEventTypes are always present in the ThreatSummary breakdown, even
// with a zero count.
var headlineEventTypes = []string{
	models.EventRateLimitExceeded,
	models.EventScannerTripwire,
	models.EventSessionIPChange,
	models.EventTurnstileFailed,
}

// SummarizeSecurityEvents computes the threat rollup over the given recent
// window. Pure read-side aggregation; no caching.
func (s *Store) SummarizeSecurityEvents(ctx context.Context, window time.Duration) (*models.ThreatSummary, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-window)

	summary := &models.ThreatSummary{
		EventsByType:     make(map[string]int),
		TopIPs:           []models.IPCount{},
		TopTripwirePaths: []models.PathCount{},
	}
	for _, t := range headlineEventTypes {
		summary.EventsByType[t] = 0
	}

	type countRow struct {
		Total      int `db:"total"`
		Last24h    int `db:"last_24h"`
		Last7d     int `db:"last_7d"`
		Unresolved int `db:"unresolved"`
	}
	var counts countRow
	countQuery := s.rebind(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS last_24h,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS last_7d,
			COALESCE(SUM(CASE WHEN resolved = ? THEN 0 ELSE 1 END), 0) AS unresolved
		FROM security_events WHERE created_at >= ?
	`)
	err := s.db.GetContext(ctx, &counts, countQuery,
		now.Add(-24*time.Hour), now.Add(-7*24*time.Hour), true, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to count security events: %w", err)
	}
	summary.TotalEvents = counts.Total
	summary.EventsLast24h = counts.Last24h
	summary.EventsLast7d = counts.Last7d
	summary.UnresolvedCount = counts.Unresolved

	var distinctIPs int
	err = s.db.GetContext(ctx, &distinctIPs,
		s.rebind("SELECT COUNT(DISTINCT ip_address) FROM security_events WHERE created_at >= ?"), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to count distinct addresses: %w", err)
	}
	summary.DistinctIPs = distinctIPs

	type typeRow struct {
		EventType string `db:"event_type"`
		Count     int    `db:"count"`
	}
	var typeRows []typeRow
	err = s.db.SelectContext(ctx, &typeRows, s.rebind(`
		SELECT event_type, COUNT(*) AS count FROM security_events
		WHERE created_at >= ? GROUP BY event_type
	`), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to group events by type: %w", err)
	}
	for _, row := range typeRows {
		if _, ok := summary.EventsByType[row.EventType]; ok {
			summary.EventsByType[row.EventType] = row.Count
		}
	}

	err = s.db.SelectContext(ctx, &summary.TopIPs, s.rebind(`
		SELECT ip_address, COUNT(*) AS count FROM security_events
		WHERE created_at >= ? GROUP BY ip_address ORDER BY count DESC, ip_address ASC LIMIT 10
	`), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to rank addresses: %w", err)
	}

	paths, err := s.topTripwirePaths(ctx, cutoff, 15)
	if err != nil {
		return nil, err
	}
	summary.TopTripwirePaths = paths

	return summary, nil
}

// topTripwirePaths extracts request paths from tripwire event details and
// ranks them. The details column is JSON, so the extraction happens here
// rather than in SQL to stay driver-portable.
func (s *Store) topTripwirePaths(ctx context.Context, cutoff time.Time, limit int) ([]models.PathCount, error) {
	var details []string
	err := s.db.SelectContext(ctx, &details, s.rebind(`
		SELECT details FROM security_events
		WHERE event_type = ? AND created_at >= ? AND details != ''
	`), models.EventScannerTripwire, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load tripwire events: %w", err)
	}

	counts := make(map[string]int)
	for _, raw := range details {
		var d models.TripwireDetails
		if err := json.Unmarshal([]byte(raw), &d); err != nil || d.Path == "" {
			continue
		}
		counts[d.Path]++
	}

	ranked := make([]models.PathCount, 0, len(counts))
	for path, count := range counts {
		ranked = append(ranked, models.PathCount{Path: path, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Path < ranked[j].Path
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
