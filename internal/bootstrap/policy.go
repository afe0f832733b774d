package bootstrap

import (
	"context"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
)

// UserCounter reports the total number of accounts.
type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
}

// RoleFinder looks up seeded roles by name.
type RoleFinder interface {
	GetByName(ctx context.Context, name string) (roles.Role, error)
}

// RoleAssigner links a role to a user.
type RoleAssigner interface {
	AssignRole(ctx context.Context, userID, roleID int64) error
}

// Policy decides the initial role for a new account: the first-ever account
// becomes super admin, every later one gets the default role. The decision
// lives here, outside the resolution engine, so it stays visible and
// testable.
type Policy struct {
	counter  UserCounter
	finder   RoleFinder
	assigner RoleAssigner
}

// NewPolicy builds a Policy instance.
func NewPolicy(counter UserCounter, finder RoleFinder, assigner RoleAssigner) *Policy {
	return &Policy{counter: counter, finder: finder, assigner: assigner}
}

// AssignInitialRole grants the account its starting role. Called right after
// account creation, so a count of one means this is the first account.
func (p *Policy) AssignInitialRole(ctx context.Context, userID int64) error {
	total, err := p.counter.CountUsers(ctx)
	if err != nil {
		return err
	}
	name := RoleUser
	if total == 1 {
		name = RoleSuperAdmin
	}
	role, err := p.finder.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return p.assigner.AssignRole(ctx, userID, role.ID)
}
