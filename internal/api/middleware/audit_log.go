package middleware

import (
	"net/http"
	"time"

	"github.com/sndwiz/veriscase-backend/internal/audit"
	"github.com/sndwiz/veriscase-backend/internal/auth"
	"github.com/sndwiz/veriscase-backend/internal/pkg/realip"
)

// AuditLog records every auditable exchange after the response is written.
// Which requests are auditable is the policy's call: mutations always, reads
// only when they touch a sensitive resource.
func AuditLog(policy audit.Policy, recorder *audit.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !policy.ShouldAudit(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rw, r)

			var userID, userEmail *string
			if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
				userID = &claims.UserID
				userEmail = &claims.Email
			}
			entry := audit.BuildEntry(policy, r, realip.FromRequest(r),
				userID, userEmail, rw.status, time.Since(start), rw.bytes)
			recorder.Record(entry)
		})
	}
}
