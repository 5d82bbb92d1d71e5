// Package realip resolves the originating client address of a request.
// The backend sits behind a reverse proxy that appends X-Forwarded-For; the
// first token is the address nearest the original client.
package realip

import (
	"net/http"
	"strings"
)

// Unknown is returned when no address can be determined.
const Unknown = "unknown"

// FromRequest returns the best-effort origin address for r. Pure and
// side-effect-free; never fails.
func FromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, token := range strings.Split(xff, ",") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if addr == "" {
		return Unknown
	}
	// Strip the port from host:port; keep bracketed IPv6 intact.
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		addr = addr[:idx]
	}
	addr = strings.Trim(addr, "[]")
	if addr == "" {
		return Unknown
	}
	return addr
}
