package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

// RolePolicy grants a freshly created account its initial role.
type RolePolicy interface {
	AssignInitialRole(ctx context.Context, userID int64) error
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	policy RolePolicy
}

// NewService constructs a new Service. Policy may be nil when no initial
// role should be granted.
func NewService(repo Repository, policy RolePolicy) *Service {
	return &Service{repo: repo, policy: policy}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates an account and hands it to the role policy, which grants
// the first-ever account the super-admin role and every later one the
// default role.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.CreateUser(ctx, strings.ToLower(strings.TrimSpace(email)), string(hash), strings.TrimSpace(displayName))
	if err != nil {
		return nil, err
	}
	if s.policy != nil {
		if err := s.policy.AssignInitialRole(ctx, user.ID); err != nil {
			return nil, errors.Join(errors.New("auth: initial role assignment failed"), err)
		}
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
