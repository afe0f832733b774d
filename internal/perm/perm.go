// Package perm implements the permission string grammar: parsing, canonical
// construction and wildcard matching of resource:action[:scope] permissions.
package perm

import (
	"errors"
	"strings"
)

// Wildcard is the universal permission; it matches every request.
const Wildcard = "*"

// Scope qualifiers narrowing a permission to the caller's own resource or
// any resource. The empty scope denotes an unqualified grant.
const (
	ScopeNone = ""
	ScopeOwn  = "own"
	ScopeAll  = "all"
)

// ErrMalformedPermission is returned when a permission string does not follow
// the resource:action[:scope] grammar.
var ErrMalformedPermission = errors.New("perm: malformed permission")

// Permission is the structured form of a permission string. Identity is the
// (Resource, Action, Scope) triple.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Scope    string `json:"scope,omitempty"`
}

// IsUniversal reports whether the permission is the lone "*" grant.
func (p Permission) IsUniversal() bool {
	return p.Resource == Wildcard && p.Action == Wildcard && p.Scope == ScopeNone
}

// String returns the canonical string form: resource:action when the scope is
// empty, resource:action:scope otherwise. The universal permission renders
// as "*".
func (p Permission) String() string {
	if p.IsUniversal() {
		return Wildcard
	}
	if p.Scope == ScopeNone {
		return p.Resource + ":" + p.Action
	}
	return p.Resource + ":" + p.Action + ":" + p.Scope
}

// Build constructs the canonical permission string from its parts.
func Build(resource, action, scope string) string {
	return Permission{Resource: resource, Action: action, Scope: scope}.String()
}

// Parse splits a permission string on ":". Two segments are resource and
// action, three add a scope, and four are read as a compound resource
// (segments[0]:segments[1]) plus action and scope, letting a resource name
// itself contain one colon. The lone "*" parses to the universal permission.
// Any other segment count, or an empty segment, fails with
// ErrMalformedPermission.
func Parse(s string) (Permission, error) {
	if s == Wildcard {
		return Permission{Resource: Wildcard, Action: Wildcard}, nil
	}
	segments := strings.Split(s, ":")
	for _, seg := range segments {
		if seg == "" {
			return Permission{}, ErrMalformedPermission
		}
	}
	switch len(segments) {
	case 2:
		return Permission{Resource: segments[0], Action: segments[1]}, nil
	case 3:
		return Permission{Resource: segments[0], Action: segments[1], Scope: segments[2]}, nil
	case 4:
		return Permission{Resource: segments[0] + ":" + segments[1], Action: segments[2], Scope: segments[3]}, nil
	default:
		return Permission{}, ErrMalformedPermission
	}
}

// Normalize returns the canonical form of a permission string, failing when
// the string does not parse.
func Normalize(s string) (string, error) {
	p, err := Parse(s)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// ValidScope reports whether s is one of the recognised scope qualifiers.
func ValidScope(s string) bool {
	return s == ScopeNone || s == ScopeOwn || s == ScopeAll
}

// Matches reports whether the held grant pattern covers the requested
// permission. Matching is segment-wise and not symmetric: a pattern segment
// "*" matches the remainder of the permission, and the lone "*" pattern
// matches everything. A pattern with fewer or more segments than the
// permission does not match unless a wildcard swallows the difference, so a
// held "user:read" does not cover a requested "user:read:own".
func Matches(permission, pattern string) bool {
	if pattern == Wildcard {
		return true
	}
	patternSegs := strings.Split(pattern, ":")
	permSegs := strings.Split(permission, ":")
	for i, seg := range patternSegs {
		if seg == Wildcard {
			return true
		}
		if i >= len(permSegs) || seg != permSegs[i] {
			return false
		}
	}
	return len(permSegs) == len(patternSegs)
}

// MatchesAny reports whether any held pattern covers the requested permission.
func MatchesAny(permission string, patterns []string) bool {
	for _, pattern := range patterns {
		if Matches(permission, pattern) {
			return true
		}
	}
	return false
}
