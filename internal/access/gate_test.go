package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticSource struct {
	contexts map[int64]Context
}

func (s *staticSource) Resolve(ctx context.Context, userID int64) (Context, error) {
	return s.contexts[userID], nil
}

func gateWith(permissions ...string) *Gate {
	return NewGate(&staticSource{contexts: map[int64]Context{
		7: {UserID: 7, Permissions: permissions},
	}})
}

func TestHasPermissionExactMatch(t *testing.T) {
	gate := gateWith("user:read:own")
	ctx := context.Background()

	ok, err := gate.HasPermission(ctx, 7, "user:read:own")
	require.NoError(t, err)
	require.True(t, ok)

	// Holding the unscoped form does not cover the scoped request.
	ok, err = gate.HasPermission(ctx, 7, "user:read")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestContextHasIsExact(t *testing.T) {
	resolved := Context{UserID: 7, Permissions: []string{"user:*", "role:read"}}

	require.True(t, resolved.Has("role:read"))
	require.True(t, resolved.Has("user:*"))
	// Has never expands wildcards; only the gate's pattern scan does.
	require.False(t, resolved.Has("user:read"))
	require.False(t, resolved.Has("role:read:own"))
}

func TestHasPermissionUniversalWildcard(t *testing.T) {
	gate := gateWith("*")
	ok, err := gate.HasPermission(context.Background(), 7, "anything:at:all")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHasPermissionSegmentWildcard(t *testing.T) {
	gate := gateWith("user:*")
	ctx := context.Background()

	ok, err := gate.HasPermission(ctx, 7, "user:delete:all")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = gate.HasPermission(ctx, 7, "role:read")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasPermissionUnauthenticated(t *testing.T) {
	gate := gateWith("user:read:own")
	_, err := gate.HasPermission(context.Background(), 0, "user:read:own")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestHasAny(t *testing.T) {
	gate := gateWith("role:read")
	ctx := context.Background()

	ok, err := gate.HasAny(ctx, 7, "role:update", "role:read")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = gate.HasAny(ctx, 7, "role:update", "role:delete")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasAll(t *testing.T) {
	gate := gateWith("role:read", "role:update")
	ctx := context.Background()

	ok, err := gate.HasAll(ctx, 7, "role:read", "role:update")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = gate.HasAll(ctx, 7, "role:read", "role:delete")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasOwnOrAll(t *testing.T) {
	ctx := context.Background()

	allGate := gateWith("user:read:all")
	ok, err := allGate.HasOwnOrAll(ctx, 7, "user:read", false)
	require.NoError(t, err)
	require.True(t, ok)

	ownGate := gateWith("user:read:own")
	ok, err = ownGate.HasOwnOrAll(ctx, 7, "user:read", true)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ownGate.HasOwnOrAll(ctx, 7, "user:read", false)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRequirePermissionDeniesWithoutGrant(t *testing.T) {
	gate := gateWith()
	err := gate.RequirePermission(context.Background(), 7, "user:read")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRequireOwnOrAll(t *testing.T) {
	gate := gateWith("user:update:own")
	ctx := context.Background()

	require.NoError(t, gate.RequireOwnOrAll(ctx, 7, "user:update", true))
	require.ErrorIs(t, gate.RequireOwnOrAll(ctx, 7, "user:update", false), ErrForbidden)
}
