package rest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/sndwiz/veriscase-backend/internal/auth"
	"github.com/sndwiz/veriscase-backend/internal/models"
	"github.com/sndwiz/veriscase-backend/internal/repository"
	"github.com/sndwiz/veriscase-backend/internal/security"
	"github.com/sndwiz/veriscase-backend/migrations"
)

type testEnv struct {
	router     *mux.Router
	store      *repository.Store
	events     *security.EventRecorder
	killSwitch *security.KillSwitch
	sessions   *security.SessionMonitor
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := repository.New("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	migrationSQL, err := migrations.FS.ReadFile("001_initial_schema.sql")
	if err != nil {
		t.Fatalf("Failed to read migration: %v", err)
	}
	if err := store.RunMigrations(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	events := security.NewEventRecorder(store, slog.Default(), nil)
	t.Cleanup(events.Close)
	killSwitch := security.NewKillSwitch(events)
	sessions, err := security.NewSessionMonitor(64, events)
	if err != nil {
		t.Fatalf("Failed to create session monitor: %v", err)
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	SetupRoutes(api, NewHandler(events, killSwitch, sessions, store))

	return &testEnv{
		router:     router,
		store:      store,
		events:     events,
		killSwitch: killSwitch,
		sessions:   sessions,
	}
}

func adminClaims() *auth.Claims {
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "sess-admin"},
		UserID:           "admin-1",
		Email:            "admin@example.com",
		Role:             auth.RoleAdmin,
	}
}

func viewerClaims() *auth.Claims {
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "sess-viewer"},
		UserID:           "viewer-1",
		Email:            "viewer@example.com",
		Role:             auth.RoleViewer,
	}
}

// do issues a request through the router with the given claims (nil for
// anonymous).
func (e *testEnv) do(method, path string, body *strings.Reader, claims *auth.Claims) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	req.RemoteAddr = "203.0.113.10:5000"
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func seedEvent(t *testing.T, store *repository.Store, eventType, ip string) *models.SecurityEvent {
	t.Helper()
	ev := &models.SecurityEvent{
		EventType: eventType,
		IPAddress: ip,
		Severity:  models.SeverityWarning,
	}
	if err := store.CreateSecurityEvent(context.Background(), ev); err != nil {
		t.Fatalf("Failed to seed event: %v", err)
	}
	return ev
}
