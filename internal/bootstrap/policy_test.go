package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
)

type fakeCounter struct{ total int64 }

func (f *fakeCounter) CountUsers(ctx context.Context) (int64, error) { return f.total, nil }

type fakeFinder struct{ byName map[string]roles.Role }

func (f *fakeFinder) GetByName(ctx context.Context, name string) (roles.Role, error) {
	role, ok := f.byName[name]
	if !ok {
		return roles.Role{}, roles.ErrNotFound
	}
	return role, nil
}

type fakeAssigner struct {
	assigned map[int64]int64
}

func (f *fakeAssigner) AssignRole(ctx context.Context, userID, roleID int64) error {
	if f.assigned == nil {
		f.assigned = make(map[int64]int64)
	}
	f.assigned[userID] = roleID
	return nil
}

func seededFinder() *fakeFinder {
	return &fakeFinder{byName: map[string]roles.Role{
		RoleSuperAdmin: {ID: 1, Name: RoleSuperAdmin, IsSystem: true},
		RoleUser:       {ID: 3, Name: RoleUser, IsSystem: true},
	}}
}

func TestFirstAccountBecomesSuperAdmin(t *testing.T) {
	assigner := &fakeAssigner{}
	policy := NewPolicy(&fakeCounter{total: 1}, seededFinder(), assigner)

	require.NoError(t, policy.AssignInitialRole(context.Background(), 100))
	require.Equal(t, int64(1), assigner.assigned[100])
}

func TestLaterAccountsGetDefaultRole(t *testing.T) {
	assigner := &fakeAssigner{}
	policy := NewPolicy(&fakeCounter{total: 2}, seededFinder(), assigner)

	require.NoError(t, policy.AssignInitialRole(context.Background(), 101))
	require.Equal(t, int64(3), assigner.assigned[101])
}

func TestPolicyFailsWhenSeedMissing(t *testing.T) {
	assigner := &fakeAssigner{}
	policy := NewPolicy(&fakeCounter{total: 5}, &fakeFinder{byName: map[string]roles.Role{}}, assigner)

	require.ErrorIs(t, policy.AssignInitialRole(context.Background(), 102), roles.ErrNotFound)
	require.Empty(t, assigner.assigned)
}
