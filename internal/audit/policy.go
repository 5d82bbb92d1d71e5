// Package audit captures one audit log entry per completed API request
// matching the audit policy. Writes happen off the request path; a failed
// write is logged and dropped, never surfaced to the client.
package audit

import "strings"

// Policy decides which requests are audited. Kept as an explicit structure
// so it can be constructed in tests and tuned per deployment.
type Policy struct {
	// APIPrefix scopes auditing; requests outside it are ignored.
	APIPrefix string
	// SkipPaths are identity/session endpoints covered by the separate
	// authentication event log, never audited here.
	SkipPaths []string
	// SensitiveResources are the resource names whose GET requests are
	// audited. Non-GET requests are audited regardless of resource.
	SensitiveResources []string
}

// DefaultPolicy returns the production audit policy.
func DefaultPolicy() Policy {
	return Policy{
		APIPrefix: "/api/v1",
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/auth/callback",
			"/api/v1/auth/logout",
			"/api/v1/auth/me",
		},
		SensitiveResources: []string{
			"evidence",
			"documents",
			"approvals",
			"clients",
			"matters",
			"signatures",
			"trust-accounts",
			"users",
		},
	}
}

// ShouldAudit reports whether a request with the given method and path is
// subject to auditing.
func (p Policy) ShouldAudit(method, path string) bool {
	if !strings.HasPrefix(path, p.APIPrefix) {
		return false
	}
	for _, skip := range p.SkipPaths {
		if path == skip {
			return false
		}
	}
	if method != "GET" {
		return true
	}
	resource, _ := p.ResourceFromPath(path)
	for _, sensitive := range p.SensitiveResources {
		if resource == sensitive {
			return true
		}
	}
	return false
}

// ResourceFromPath extracts the resource type (first path segment after the
// API prefix) and resource id (second segment, if present).
func (p Policy) ResourceFromPath(path string) (resourceType, resourceID string) {
	rest := strings.TrimPrefix(path, p.APIPrefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", ""
	}
	segments := strings.Split(rest, "/")
	resourceType = segments[0]
	if len(segments) > 1 {
		resourceID = segments[1]
	}
	return resourceType, resourceID
}
