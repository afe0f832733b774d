package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/perm"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
)

type memoryStore struct {
	roles     map[int64]roles.Role
	userRoles map[int64][]int64
	grants    map[int64][]perm.Permission
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		roles:     make(map[int64]roles.Role),
		userRoles: make(map[int64][]int64),
		grants:    make(map[int64][]perm.Permission),
	}
}

func (s *memoryStore) GetByID(ctx context.Context, id int64) (roles.Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return roles.Role{}, roles.ErrNotFound
	}
	return role, nil
}

func (s *memoryStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.roles)), nil
}

func (s *memoryStore) RolesForUser(ctx context.Context, userID int64) ([]roles.Role, error) {
	var result []roles.Role
	for _, id := range s.userRoles[userID] {
		result = append(result, s.roles[id])
	}
	return result, nil
}

func (s *memoryStore) PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]perm.Permission, error) {
	var result []perm.Permission
	for _, id := range roleIDs {
		result = append(result, s.grants[id]...)
	}
	return result, nil
}

func ptr(v int64) *int64 { return &v }

// root(1) <- mid(2) <- leaf(3), with a grant at each level.
func hierarchyFixture() *memoryStore {
	s := newMemoryStore()
	s.roles[1] = roles.Role{ID: 1, Name: "root", DisplayName: "Root"}
	s.roles[2] = roles.Role{ID: 2, Name: "mid", DisplayName: "Mid", ParentID: ptr(1), Level: 1}
	s.roles[3] = roles.Role{ID: 3, Name: "leaf", DisplayName: "Leaf", ParentID: ptr(2), Level: 2}
	s.grants[1] = []perm.Permission{{Resource: "system", Action: "admin"}}
	s.grants[2] = []perm.Permission{{Resource: "user", Action: "read", Scope: perm.ScopeAll}}
	s.grants[3] = []perm.Permission{{Resource: "user", Action: "read", Scope: perm.ScopeOwn}}
	return s
}

func TestResolveInheritsAncestorGrants(t *testing.T) {
	store := hierarchyFixture()
	store.userRoles[7] = []int64{3}
	resolver := NewResolver(store, store)

	resolved, err := resolver.Resolve(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []string{"system:admin", "user:read:all", "user:read:own"}, resolved.Permissions)
	require.Len(t, resolved.Roles, 1)
	require.Equal(t, "leaf", resolved.Roles[0].Name)
}

func TestResolveDirectRoleOnly(t *testing.T) {
	store := hierarchyFixture()
	store.userRoles[7] = []int64{1}
	resolver := NewResolver(store, store)

	resolved, err := resolver.Resolve(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []string{"system:admin"}, resolved.Permissions)
}

func TestResolveNoRolesEmptyContext(t *testing.T) {
	store := hierarchyFixture()
	resolver := NewResolver(store, store)

	resolved, err := resolver.Resolve(context.Background(), 42)
	require.NoError(t, err)
	require.Empty(t, resolved.Permissions)
	require.Empty(t, resolved.Roles)
	require.NotNil(t, resolved.Permissions)
}

func TestResolveDeduplicatesAcrossRoles(t *testing.T) {
	store := hierarchyFixture()
	// Both roles climb through root, and mid repeats root's grant directly.
	store.grants[2] = append(store.grants[2], perm.Permission{Resource: "system", Action: "admin"})
	store.userRoles[7] = []int64{2, 3}
	resolver := NewResolver(store, store)

	resolved, err := resolver.Resolve(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []string{"system:admin", "user:read:all", "user:read:own"}, resolved.Permissions)
	require.Len(t, resolved.Roles, 2)
}

func TestResolveDanglingParentTolerated(t *testing.T) {
	store := newMemoryStore()
	store.roles[5] = roles.Role{ID: 5, Name: "orphaned", ParentID: ptr(999)}
	store.grants[5] = []perm.Permission{{Resource: "report", Action: "export"}}
	store.userRoles[7] = []int64{5}
	resolver := NewResolver(store, store)

	resolved, err := resolver.Resolve(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []string{"report:export"}, resolved.Permissions)
}

func TestResolveStoredCycleTerminates(t *testing.T) {
	store := newMemoryStore()
	store.roles[1] = roles.Role{ID: 1, Name: "a", ParentID: ptr(2)}
	store.roles[2] = roles.Role{ID: 2, Name: "b", ParentID: ptr(1)}
	store.grants[1] = []perm.Permission{{Resource: "x", Action: "y"}}
	store.grants[2] = []perm.Permission{{Resource: "x", Action: "z"}}
	store.userRoles[7] = []int64{1}
	resolver := NewResolver(store, store)

	resolved, err := resolver.Resolve(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []string{"x:y", "x:z"}, resolved.Permissions)
}
