// Package access resolves, caches and enforces effective permission
// contexts: the flattened set of permissions a user holds through their
// roles and every ancestor of those roles.
package access

// RoleRef is the slim role view carried in a resolved context.
type RoleRef struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Context is a user's effective authorization state. Permissions holds
// canonical permission strings sorted lexicographically, deduplicated across
// roles and ancestors. Roles lists only directly assigned roles.
type Context struct {
	UserID      int64     `json:"user_id"`
	Permissions []string  `json:"permissions"`
	Roles       []RoleRef `json:"roles"`
}

// Has reports whether the context carries the exact permission string.
func (c Context) Has(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
