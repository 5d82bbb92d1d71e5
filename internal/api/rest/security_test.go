package rest

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/sndwiz/veriscase-backend/internal/models"
)

func TestSecurityEndpoints_AdminBoundary(t *testing.T) {
	env := setupTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/security/threat-summary"},
		{http.MethodGet, "/api/v1/security/events"},
		{http.MethodGet, "/api/v1/security/kill-switch"},
		{http.MethodGet, "/api/v1/security/audit-logs"},
		{http.MethodGet, "/api/v1/security/audit-logs/export"},
	}
	for _, p := range paths {
		if rec := env.do(p.method, p.path, nil, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s anonymous: expected 401, got %d", p.path, rec.Code)
		}
		if rec := env.do(p.method, p.path, nil, viewerClaims()); rec.Code != http.StatusForbidden {
			t.Errorf("%s viewer: expected 403, got %d", p.path, rec.Code)
		}
	}
}

func TestListSecurityEvents(t *testing.T) {
	env := setupTestEnv(t)
	seedEvent(t, env.store, models.EventScannerTripwire, "203.0.113.1")
	seedEvent(t, env.store, models.EventRateLimitExceeded, "203.0.113.2")

	rec := env.do(http.MethodGet, "/api/v1/security/events", nil, adminClaims())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var events []*models.SecurityEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	rec = env.do(http.MethodGet, "/api/v1/security/events?event_type=scanner_tripwire", nil, adminClaims())
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode filtered response: %v", err)
	}
	if len(events) != 1 || events[0].EventType != models.EventScannerTripwire {
		t.Errorf("expected 1 tripwire event, got %+v", events)
	}
}

func TestResolveSecurityEvent(t *testing.T) {
	env := setupTestEnv(t)
	ev := seedEvent(t, env.store, models.EventScannerTripwire, "203.0.113.1")

	rec := env.do(http.MethodPatch, "/api/v1/security/events/"+ev.ID+"/resolve", nil, adminClaims())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resolved models.SecurityEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resolved.Resolved {
		t.Error("expected event to be marked resolved")
	}

	rec = env.do(http.MethodPatch, "/api/v1/security/events/no-such-id/resolve", nil, adminClaims())
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown event, got %d", rec.Code)
	}
}

func TestThreatSummary(t *testing.T) {
	env := setupTestEnv(t)
	seedEvent(t, env.store, models.EventScannerTripwire, "203.0.113.1")
	seedEvent(t, env.store, models.EventScannerTripwire, "203.0.113.1")
	seedEvent(t, env.store, models.EventRateLimitExceeded, "203.0.113.2")

	rec := env.do(http.MethodGet, "/api/v1/security/threat-summary", nil, adminClaims())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary models.ThreatSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalEvents != 3 {
		t.Errorf("expected 3 total events, got %d", summary.TotalEvents)
	}
	if summary.DistinctIPs != 2 {
		t.Errorf("expected 2 distinct addresses, got %d", summary.DistinctIPs)
	}
	if summary.EventsByType[models.EventScannerTripwire] != 2 {
		t.Errorf("expected 2 tripwire events, got %d", summary.EventsByType[models.EventScannerTripwire])
	}
}

func TestKillSwitchLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	// Initially inactive.
	rec := env.do(http.MethodGet, "/api/v1/security/kill-switch", nil, adminClaims())
	var status models.KillSwitchStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Active {
		t.Fatal("kill switch should start inactive")
	}

	// Activate.
	rec = env.do(http.MethodPost, "/api/v1/security/kill-switch/activate",
		strings.NewReader(`{"reason":"suspected breach"}`), adminClaims())
	if rec.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var activateResp struct {
		RecoveryKey string                  `json:"recovery_key"`
		Status      models.KillSwitchStatus `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &activateResp); err != nil {
		t.Fatalf("decode activate response: %v", err)
	}
	if len(activateResp.RecoveryKey) != 6 {
		t.Errorf("expected 6-character recovery key, got %q", activateResp.RecoveryKey)
	}
	if !activateResp.Status.Active || activateResp.Status.Reason != "suspected breach" {
		t.Errorf("unexpected status after activation: %+v", activateResp.Status)
	}

	// Status read never exposes the key.
	rec = env.do(http.MethodGet, "/api/v1/security/kill-switch", nil, adminClaims())
	if strings.Contains(rec.Body.String(), activateResp.RecoveryKey) {
		t.Error("status response must not contain the recovery key")
	}

	// Double activation conflicts.
	rec = env.do(http.MethodPost, "/api/v1/security/kill-switch/activate",
		strings.NewReader(`{}`), adminClaims())
	if rec.Code != http.StatusConflict {
		t.Errorf("second activate: expected 409, got %d", rec.Code)
	}

	// Wrong key rejected.
	rec = env.do(http.MethodPost, "/api/v1/security/kill-switch/deactivate",
		strings.NewReader(`{"recovery_key":"ZZZZZZ"}`), adminClaims())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong key: expected 400, got %d", rec.Code)
	}
	if !env.killSwitch.IsLocked() {
		t.Fatal("kill switch should remain locked after wrong key")
	}

	// Correct key deactivates.
	rec = env.do(http.MethodPost, "/api/v1/security/kill-switch/deactivate",
		strings.NewReader(`{"recovery_key":"`+activateResp.RecoveryKey+`"}`), adminClaims())
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var deactivateResp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &deactivateResp); err != nil {
		t.Fatalf("decode deactivate response: %v", err)
	}
	if !deactivateResp.Success {
		t.Error("expected success=true in deactivate response")
	}
	if env.killSwitch.IsLocked() {
		t.Error("kill switch should be inactive after deactivation")
	}

	// Deactivating again is a no-op error.
	rec = env.do(http.MethodPost, "/api/v1/security/kill-switch/deactivate",
		strings.NewReader(`{"recovery_key":"ABCDEF"}`), adminClaims())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("deactivate while inactive: expected 400, got %d", rec.Code)
	}
}

func TestActivateKillSwitchBody(t *testing.T) {
	env := setupTestEnv(t)

	// A body that does not parse must not trigger a lockdown.
	rec := env.do(http.MethodPost, "/api/v1/security/kill-switch/activate",
		strings.NewReader(`{"reason":`), adminClaims())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.killSwitch.IsLocked() {
		t.Fatal("kill switch must stay inactive after a malformed activation request")
	}

	// An absent body still activates with the default reason.
	rec = env.do(http.MethodPost, "/api/v1/security/kill-switch/activate", nil, adminClaims())
	if rec.Code != http.StatusOK {
		t.Fatalf("empty body: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !env.killSwitch.IsLocked() {
		t.Fatal("kill switch should be active after an empty-body activation")
	}
	if reason := env.killSwitch.State().Reason; reason != "Emergency lockdown activated" {
		t.Errorf("expected default reason, got %q", reason)
	}
}

func TestSessionInfo(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/security/session-info", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}

	// A session the monitor has not seen yet still answers 200, with empty
	// tracking fields and the caller's resolved address.
	claims := viewerClaims()
	rec = env.do(http.MethodGet, "/api/v1/security/session-info", nil, claims)
	if rec.Code != http.StatusOK {
		t.Fatalf("untracked session: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var info struct {
		InitialIP    string                 `json:"initial_ip"`
		LastIP       string                 `json:"last_ip"`
		History      []models.IPObservation `json:"history"`
		LastActivity *string                `json:"last_activity"`
		CurrentIP    string                 `json:"current_ip"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode untracked response: %v", err)
	}
	if info.InitialIP != "" || info.LastIP != "" || len(info.History) != 0 || info.LastActivity != nil {
		t.Errorf("expected empty tracking fields for an untracked session, got %+v", info)
	}
	if info.CurrentIP != "203.0.113.10" {
		t.Errorf("expected current address 203.0.113.10, got %q", info.CurrentIP)
	}

	env.sessions.Track(claims.SessionID(), claims.UserID, "203.0.113.10", "test-agent")
	rec = env.do(http.MethodGet, "/api/v1/security/session-info", nil, claims)
	if rec.Code != http.StatusOK {
		t.Fatalf("tracked session: expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode tracked response: %v", err)
	}
	if info.InitialIP != "203.0.113.10" {
		t.Errorf("expected initial address 203.0.113.10, got %q", info.InitialIP)
	}
	if info.CurrentIP != "203.0.113.10" {
		t.Errorf("expected current address 203.0.113.10, got %q", info.CurrentIP)
	}
	if info.LastActivity == nil {
		t.Error("expected last_activity to be set for a tracked session")
	}
}
