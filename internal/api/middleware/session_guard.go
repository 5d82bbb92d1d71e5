package middleware

import (
	"net/http"

	"github.com/sndwiz/veriscase-backend/internal/auth"
	"github.com/sndwiz/veriscase-backend/internal/pkg/realip"
	"github.com/sndwiz/veriscase-backend/internal/security"
)

// SessionGuard feeds each authenticated request into the session monitor so
// client address drift within a session is observed and reported. Anonymous
// requests pass through untouched.
func SessionGuard(monitor *security.SessionMonitor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
				if sid := claims.SessionID(); sid != "" {
					monitor.Track(sid, claims.UserID, realip.FromRequest(r), r.UserAgent())
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
