package middleware

import (
	"net/http"
	"strings"

	"github.com/sndwiz/veriscase-backend/internal/models"
	"github.com/sndwiz/veriscase-backend/internal/pkg/realip"
	"github.com/sndwiz/veriscase-backend/internal/security"
)

// Scanner tripwires. These paths exist in no legitimate deployment of this
// application; a hit means automated probing.
var defaultTripwireSignatures = []string{
	"/wp-admin",
	"/wp-login.php",
	"/.env",
	"/.git",
	"/phpmyadmin",
	"/admin.php",
	"/xmlrpc.php",
	"/vendor/phpunit",
	"/cgi-bin",
	"/actuator",
}

// Tripwire answers probes for well-known scanner paths with a 404 and raises
// a scanner_tripwire security event. signatures may be nil for the defaults.
func Tripwire(signatures []string, events security.EventSink) func(http.Handler) http.Handler {
	if signatures == nil {
		signatures = defaultTripwireSignatures
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, sig := range signatures {
				if strings.HasPrefix(r.URL.Path, sig) {
					if events != nil {
						events.Record(&models.SecurityEvent{
							EventType: models.EventScannerTripwire,
							IPAddress: realip.FromRequest(r),
							UserAgent: r.UserAgent(),
							Severity:  models.SeverityWarning,
							Details: models.MarshalDetails(models.TripwireDetails{
								Path:      r.URL.Path,
								Signature: sig,
							}),
						})
					}
					http.NotFound(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
