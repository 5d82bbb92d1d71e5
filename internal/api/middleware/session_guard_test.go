package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sndwiz/veriscase-backend/internal/auth"
	"github.com/sndwiz/veriscase-backend/internal/models"
	"github.com/sndwiz/veriscase-backend/internal/security"
)

func sessionRequest(h http.Handler, sessionID, userID, ip string) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/matters", nil)
	req.RemoteAddr = ip + ":4000"
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: sessionID},
		UserID:           userID,
	}
	req = req.WithContext(auth.WithClaims(req.Context(), claims))
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestSessionGuard_TracksAuthenticatedRequests(t *testing.T) {
	monitor, err := security.NewSessionMonitor(16, nil)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	h := SessionGuard(monitor)(okHandler())

	sessionRequest(h, "sess-1", "u-1", "203.0.113.1")

	state, ok := monitor.Info("sess-1")
	if !ok {
		t.Fatal("expected session to be tracked")
	}
	if state.InitialIP != "203.0.113.1" {
		t.Errorf("expected initial address 203.0.113.1, got %q", state.InitialIP)
	}
}

func TestSessionGuard_ReportsAddressDrift(t *testing.T) {
	sink := &sinkRecorder{}
	monitor, err := security.NewSessionMonitor(16, sink)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	h := SessionGuard(monitor)(okHandler())

	sessionRequest(h, "sess-1", "u-1", "203.0.113.1")
	sessionRequest(h, "sess-1", "u-1", "198.51.100.2")

	if sink.count() != 1 {
		t.Fatalf("expected 1 drift event, got %d", sink.count())
	}
	ev := sink.events[0]
	if ev.EventType != models.EventSessionIPChange {
		t.Errorf("expected %s, got %s", models.EventSessionIPChange, ev.EventType)
	}
	var details models.SessionIPChangeDetails
	if err := json.Unmarshal([]byte(ev.Details), &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if details.PreviousIP != "203.0.113.1" || details.NewIP != "198.51.100.2" {
		t.Errorf("unexpected drift details: %+v", details)
	}
}

func TestSessionGuard_IgnoresAnonymousRequests(t *testing.T) {
	monitor, err := security.NewSessionMonitor(16, nil)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	h := SessionGuard(monitor)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/matters", nil)
	req.RemoteAddr = "203.0.113.1:4000"
	h.ServeHTTP(httptest.NewRecorder(), req)

	if _, ok := monitor.Info(""); ok {
		t.Error("anonymous request should not create session state")
	}
}
