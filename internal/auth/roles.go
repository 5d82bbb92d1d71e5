package auth

// Roles recognized by the boundary checks. The kill switch endpoints require
// RoleAdmin; the services themselves trust whatever identity they are handed.
const (
	RoleViewer    = "viewer"
	RoleParalegal = "paralegal"
	RoleAttorney  = "attorney"
	RoleAdmin     = "admin"
)

// IsAdmin reports whether claims carry the admin role.
func IsAdmin(c *Claims) bool {
	return c != nil && c.Role == RoleAdmin
}
