package access

import (
	"context"
	"errors"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/perm"
)

var (
	// ErrUnauthenticated indicates no valid user identity on the request.
	ErrUnauthenticated = errors.New("access: unauthenticated")
	// ErrForbidden indicates the user's context does not cover the
	// required permission.
	ErrForbidden = errors.New("access: forbidden")
)

// Gate answers authorization questions against resolved contexts. Every
// check fails closed: no identity, no roles or no matching grant all deny.
type Gate struct {
	contexts ContextSource
}

// NewGate builds a Gate over a context source, typically the Cache.
func NewGate(contexts ContextSource) *Gate {
	return &Gate{contexts: contexts}
}

// Resolve exposes the underlying context for introspection endpoints.
func (g *Gate) Resolve(ctx context.Context, userID int64) (Context, error) {
	if userID <= 0 {
		return Context{}, ErrUnauthenticated
	}
	return g.contexts.Resolve(ctx, userID)
}

// HasPermission reports whether the user holds a grant covering the
// permission, through an exact match or a wildcard pattern.
func (g *Gate) HasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	resolved, err := g.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	// Exact hit skips the pattern scan.
	if resolved.Has(permission) {
		return true, nil
	}
	return perm.MatchesAny(permission, resolved.Permissions), nil
}

// HasAny reports whether the user holds a grant covering at least one of the
// permissions.
func (g *Gate) HasAny(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	resolved, err := g.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range permissions {
		if perm.MatchesAny(p, resolved.Permissions) {
			return true, nil
		}
	}
	return false, nil
}

// HasAll reports whether the user holds grants covering every permission.
func (g *Gate) HasAll(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	resolved, err := g.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range permissions {
		if !perm.MatchesAny(p, resolved.Permissions) {
			return false, nil
		}
	}
	return true, nil
}

// HasOwnOrAll checks a scoped permission pair: the ":all" variant of base
// always satisfies, the ":own" variant satisfies only when the caller owns
// the target resource.
func (g *Gate) HasOwnOrAll(ctx context.Context, userID int64, base string, ownsTarget bool) (bool, error) {
	resolved, err := g.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	if perm.MatchesAny(base+":"+perm.ScopeAll, resolved.Permissions) {
		return true, nil
	}
	if ownsTarget && perm.MatchesAny(base+":"+perm.ScopeOwn, resolved.Permissions) {
		return true, nil
	}
	return false, nil
}

// RequirePermission is HasPermission that returns ErrForbidden on denial.
func (g *Gate) RequirePermission(ctx context.Context, userID int64, permission string) error {
	ok, err := g.HasPermission(ctx, userID, permission)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// RequireOwnOrAll is HasOwnOrAll that returns ErrForbidden on denial.
func (g *Gate) RequireOwnOrAll(ctx context.Context, userID int64, base string, ownsTarget bool) error {
	ok, err := g.HasOwnOrAll(ctx, userID, base, ownsTarget)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
