package permissions

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/perm"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

// Invalidator clears cached permission contexts after catalog mutations.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// RegisterInput carries attributes for a new catalog entry. The permission
// string is parsed and validated by the grammar before anything is stored.
type RegisterInput struct {
	Permission  string
	DisplayName string
	Description string
}

// Service handles permission catalog business logic.
type Service struct {
	repo  Repository
	cache Invalidator
	audit *shared.AuditLogger
}

// NewService builds a Service instance. Cache and audit may be nil in tests.
func NewService(repo Repository, cache Invalidator, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, cache: cache, audit: audit}
}

// Register parses and upserts a catalog entry. A malformed permission string
// or an unrecognised scope qualifier fails with perm.ErrMalformedPermission;
// an existing triple has its metadata refreshed rather than duplicated.
func (s *Service) Register(ctx context.Context, actorID int64, input RegisterInput) (Permission, error) {
	parsed, err := perm.Parse(input.Permission)
	if err != nil {
		return Permission{}, err
	}
	if !perm.ValidScope(parsed.Scope) {
		return Permission{}, fmt.Errorf("%w: unknown scope %q", perm.ErrMalformedPermission, parsed.Scope)
	}
	entry, err := s.repo.Ensure(ctx, Permission{
		Resource:    parsed.Resource,
		Action:      parsed.Action,
		Scope:       parsed.Scope,
		DisplayName: input.DisplayName,
		Description: input.Description,
	})
	if err != nil {
		return Permission{}, err
	}
	s.record(ctx, actorID, "permission.registered", entry.ID, map[string]any{"permission": parsed.String()})
	return entry, nil
}

// Get fetches a catalog entry by id.
func (s *Service) Get(ctx context.Context, id int64) (Permission, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the full catalog.
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	return s.repo.List(ctx)
}

// Delete removes a catalog entry and invalidates the cached context of every
// user that held it through any role.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if s.cache != nil {
		for _, userID := range affected {
			_ = s.cache.Invalidate(ctx, userID)
		}
	}
	s.record(ctx, actorID, "permission.deleted", id, map[string]any{
		"permission": perm.Build(entry.Resource, entry.Action, entry.Scope),
	})
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, permissionID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "permission",
		EntityID: strconv.FormatInt(permissionID, 10),
		Meta:     meta,
	})
}
