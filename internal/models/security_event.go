package models

import (
	"encoding/json"
	"time"
)

// Security event types. The column is an open string enum: detectors may emit
// types not listed here and the store accepts them unchanged.
const (
	EventRateLimitExceeded    = "rate_limit_exceeded"
	EventScannerTripwire      = "scanner_tripwire"
	EventSessionIPChange      = "session_ip_change"
	EventTurnstileFailed      = "turnstile_failed"
	EventKillSwitchActivated  = "kill_switch_activated"
	EventKillSwitchDeactivated = "kill_switch_deactivated"
)

// SecurityEvent is one detected anomalous or policy-violating condition.
// Mutable only via the resolve transition; never deleted.
type SecurityEvent struct {
	ID        string    `json:"id" db:"id"`
	EventType string    `json:"event_type" db:"event_type"`
	UserID    *string   `json:"user_id,omitempty" db:"user_id"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty" db:"user_agent"`
	Details   string    `json:"details,omitempty" db:"details"` // JSON, shape keyed by event_type
	Severity  string    `json:"severity" db:"severity"`
	Resolved  bool      `json:"resolved" db:"resolved"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Per-type details payloads. Marshalled into SecurityEvent.Details so the
// column stays queryable while callers keep typed shapes.

// RateLimitDetails accompanies rate_limit_exceeded events.
type RateLimitDetails struct {
	Path          string `json:"path"`
	Limit         int    `json:"limit"`
	WindowSeconds int    `json:"window_seconds"`
}

// TripwireDetails accompanies scanner_tripwire events.
type TripwireDetails struct {
	Path      string `json:"path"`
	Signature string `json:"signature,omitempty"`
}

// SessionIPChangeDetails accompanies session_ip_change events.
type SessionIPChangeDetails struct {
	PreviousIP string `json:"previousIp"`
	NewIP      string `json:"newIp"`
	UserID     string `json:"userId,omitempty"`
}

// KillSwitchDetails accompanies kill_switch_activated / kill_switch_deactivated.
type KillSwitchDetails struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

// MarshalDetails encodes a typed details payload for storage. A marshal
// failure yields the empty string; the event is still recorded.
func MarshalDetails(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// SecurityEventFilter narrows ListSecurityEvents queries. Nil fields match everything.
type SecurityEventFilter struct {
	EventType *string
	Severity  *string
	Resolved  *bool
	Limit     int
}

// ThreatSummary is the read-side rollup over recent security events.
type ThreatSummary struct {
	TotalEvents     int            `json:"total_events"`
	EventsLast24h   int            `json:"events_last_24h"`
	EventsLast7d    int            `json:"events_last_7d"`
	DistinctIPs     int            `json:"distinct_ips"`
	UnresolvedCount int            `json:"unresolved_count"`
	EventsByType    map[string]int `json:"events_by_type"`
	TopIPs          []IPCount      `json:"top_ips"`
	TopTripwirePaths []PathCount   `json:"top_tripwire_paths"`
}

// IPCount pairs an address with its event count.
type IPCount struct {
	IPAddress string `json:"ip_address" db:"ip_address"`
	Count     int    `json:"count" db:"count"`
}

// PathCount pairs a request path with its occurrence count.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}
