package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/perm"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
)

// Full resolution path over a seeded hierarchy: grant, check, re-parent,
// revoke, re-check.
func TestGrantRevokeLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.roles[1] = roles.Role{ID: 1, Name: "superAdmin"}
	store.roles[2] = roles.Role{ID: 2, Name: "admin", ParentID: ptr(1), Level: 1}
	store.roles[3] = roles.Role{ID: 3, Name: "user"}
	store.grants[2] = []perm.Permission{{Resource: "user", Action: "read", Scope: perm.ScopeAll}}
	store.userRoles[42] = []int64{2}

	gate := NewGate(NewResolver(store, store))

	ok, err := gate.HasPermission(ctx, 42, "user:read:all")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = gate.HasPermission(ctx, 42, "role:delete")
	require.NoError(t, err)
	require.False(t, ok)

	// Detach admin from superAdmin and revoke its only grant.
	admin := store.roles[2]
	admin.ParentID = nil
	admin.Level = 0
	store.roles[2] = admin
	store.grants[2] = nil

	ok, err = gate.HasPermission(ctx, 42, "user:read:all")
	require.NoError(t, err)
	require.False(t, ok)
}
