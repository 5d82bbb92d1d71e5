package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sndwiz/veriscase-backend/internal/auth"
)

const testSecret = "test-secret-key"

func claimsEcho(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		if wantUser == "" {
			if claims != nil {
				t.Errorf("expected anonymous request, got claims for %q", claims.UserID)
			}
		} else {
			if claims == nil {
				t.Error("expected claims in context")
			} else if claims.UserID != wantUser {
				t.Errorf("expected user %q, got %q", wantUser, claims.UserID)
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidToken(t *testing.T) {
	token, err := auth.IssueToken(testSecret, "u-1", "a@example.com", auth.RoleAttorney, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	h := Auth(testSecret)(claimsEcho(t, "u-1"))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/matters", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_NoTokenPassesAnonymously(t *testing.T) {
	h := Auth(testSecret)(claimsEcho(t, ""))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/matters", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_InvalidTokenRejected(t *testing.T) {
	h := Auth(testSecret)(claimsEcho(t, ""))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/matters", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("expected WWW-Authenticate Bearer, got %q", got)
	}
}

func TestAuth_ExpiredTokenRejected(t *testing.T) {
	token, err := auth.IssueToken(testSecret, "u-1", "a@example.com", auth.RoleAttorney, -time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	h := Auth(testSecret)(claimsEcho(t, ""))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/matters", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
}

func TestAuth_WrongSecretRejected(t *testing.T) {
	token, err := auth.IssueToken("another-secret", "u-1", "a@example.com", auth.RoleAttorney, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	h := Auth(testSecret)(claimsEcho(t, ""))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/matters", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", rec.Code)
	}
}
