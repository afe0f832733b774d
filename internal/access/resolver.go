package access

import (
	"context"
	"errors"
	"sort"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/perm"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
)

// HierarchySource walks the role hierarchy.
type HierarchySource interface {
	GetByID(ctx context.Context, id int64) (roles.Role, error)
	Count(ctx context.Context) (int64, error)
}

// AssociationSource reads user-role assignments and role-permission grants.
type AssociationSource interface {
	RolesForUser(ctx context.Context, userID int64) ([]roles.Role, error)
	PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]perm.Permission, error)
}

// Resolver computes effective permission contexts from storage. A user's
// context is the union of the permissions granted to their roles and to every
// ancestor of those roles, deduplicated and sorted.
type Resolver struct {
	hierarchy    HierarchySource
	associations AssociationSource
}

// NewResolver builds a Resolver instance.
func NewResolver(hierarchy HierarchySource, associations AssociationSource) *Resolver {
	return &Resolver{hierarchy: hierarchy, associations: associations}
}

// Resolve computes the effective context for a user. A user with no roles
// gets an empty context, never an error, so absence of grants fails closed
// at check time rather than erroring at resolve time.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (Context, error) {
	held, err := r.associations.RolesForUser(ctx, userID)
	if err != nil {
		return Context{}, err
	}
	result := Context{UserID: userID, Permissions: []string{}, Roles: []RoleRef{}}
	if len(held) == 0 {
		return result, nil
	}

	total, err := r.hierarchy.Count(ctx)
	if err != nil {
		return Context{}, err
	}

	// Closure over ancestors: bounded by the role count, tolerant of a
	// dangling parent link.
	closure := make(map[int64]bool)
	var roleIDs []int64
	for _, role := range held {
		result.Roles = append(result.Roles, RoleRef{ID: role.ID, Name: role.Name, DisplayName: role.DisplayName})
		if !closure[role.ID] {
			closure[role.ID] = true
			roleIDs = append(roleIDs, role.ID)
		}
		cur := role
		for hops := int64(0); cur.ParentID != nil && hops <= total; hops++ {
			pid := *cur.ParentID
			if closure[pid] {
				break
			}
			parent, err := r.hierarchy.GetByID(ctx, pid)
			if err != nil {
				if errors.Is(err, roles.ErrNotFound) {
					break
				}
				return Context{}, err
			}
			closure[pid] = true
			roleIDs = append(roleIDs, pid)
			cur = parent
		}
	}

	granted, err := r.associations.PermissionsForRoles(ctx, roleIDs)
	if err != nil {
		return Context{}, err
	}
	seen := make(map[string]bool)
	for _, p := range granted {
		s := p.String()
		if !seen[s] {
			seen[s] = true
			result.Permissions = append(result.Permissions, s)
		}
	}
	sort.Strings(result.Permissions)
	sort.Slice(result.Roles, func(i, j int) bool { return result.Roles[i].ID < result.Roles[j].ID })
	return result, nil
}
