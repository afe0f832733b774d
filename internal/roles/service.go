package roles

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

// Invalidator clears cached permission contexts after hierarchy mutations.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
	InvalidateAll(ctx context.Context) error
}

// HolderSource enumerates users currently holding a role, used to target
// cache invalidation when a role is deleted.
type HolderSource interface {
	UsersHoldingRole(ctx context.Context, roleID int64) ([]int64, error)
}

// CreateInput carries attributes for a new role.
type CreateInput struct {
	Name        string
	DisplayName string
	Description string
	ParentID    *int64
	IsSystem    bool
}

// Service handles role hierarchy business logic: CRUD plus cycle-safe
// parent mutation.
type Service struct {
	repo    Repository
	holders HolderSource
	cache   Invalidator
	audit   *shared.AuditLogger
}

// NewService builds a Service instance. Holders, cache and audit may be nil
// in tests or during bootstrap.
func NewService(repo Repository, holders HolderSource, cache Invalidator, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, holders: holders, cache: cache, audit: audit}
}

// Create inserts a new role. When a parent is given the role's level derives
// from it; a missing parent fails with ErrNotFound.
func (s *Service) Create(ctx context.Context, actorID int64, input CreateInput) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, errors.New("roles: name required")
	}
	level := 0
	if input.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, *input.ParentID)
		if err != nil {
			return Role{}, err
		}
		level = parent.Level + 1
	}
	role, err := s.repo.Create(ctx, Role{
		Name:        name,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Description: strings.TrimSpace(input.Description),
		ParentID:    input.ParentID,
		Level:       level,
		IsSystem:    input.IsSystem,
	})
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.created", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// Get fetches a role by id.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByName fetches a role by its unique name.
func (s *Service) GetByName(ctx context.Context, name string) (Role, error) {
	return s.repo.GetByName(ctx, name)
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Update renames or redescribes a role.
func (s *Service) Update(ctx context.Context, actorID, id int64, name, displayName, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: name required")
	}
	role, err := s.repo.Update(ctx, Role{ID: id, Name: name, DisplayName: strings.TrimSpace(displayName), Description: strings.TrimSpace(description)})
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.updated", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// SetParent moves a role in the hierarchy. Self-parenting and any parent
// whose ancestor chain reaches the role are rejected with ErrCycleDetected
// before anything is written, so a rejected attempt leaves the hierarchy
// unchanged. System roles are immovable. On success the role's level and all
// descendant levels are recomputed transactionally, and every cached
// permission context is invalidated since inherited grants may have changed.
func (s *Service) SetParent(ctx context.Context, actorID, roleID int64, parentID *int64) (Role, error) {
	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return Role{}, err
	}
	if sameParent(role.ParentID, parentID) {
		return role, nil
	}
	if role.IsSystem {
		return Role{}, ErrSystemRole
	}

	level := 0
	if parentID != nil {
		if *parentID == roleID {
			return Role{}, ErrCycleDetected
		}
		parentLevel, err := s.walkProposedParent(ctx, roleID, *parentID)
		if err != nil {
			return Role{}, err
		}
		level = parentLevel + 1
	}

	if err := s.repo.UpdateParent(ctx, roleID, parentID, level); err != nil {
		return Role{}, err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateAll(ctx)
	}
	meta := map[string]any{"name": role.Name}
	if parentID != nil {
		meta["parent_id"] = *parentID
	}
	s.record(ctx, actorID, "role.reparented", roleID, meta)
	return s.repo.GetByID(ctx, roleID)
}

// walkProposedParent climbs from the proposed parent to its root, bounded by
// the total role count, and returns the parent's level. Encountering the role
// being moved, or revisiting any role, is a cycle.
func (s *Service) walkProposedParent(ctx context.Context, roleID, parentID int64) (int, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	visited := make(map[int64]bool)
	parentLevel := 0
	cur := parentID
	for hops := int64(0); ; hops++ {
		if cur == roleID {
			return 0, ErrCycleDetected
		}
		if visited[cur] || hops > total {
			return 0, ErrCycleDetected
		}
		visited[cur] = true
		node, err := s.repo.GetByID(ctx, cur)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				if cur == parentID {
					// The proposed parent itself must exist.
					return 0, ErrNotFound
				}
				// A dangling ancestor link stops the walk.
				return parentLevel, nil
			}
			return 0, err
		}
		if cur == parentID {
			parentLevel = node.Level
		}
		if node.ParentID == nil {
			return parentLevel, nil
		}
		cur = *node.ParentID
	}
}

// Delete removes a non-system role, cascading its associations and
// invalidating the cached contexts of every user that held it.
func (s *Service) Delete(ctx context.Context, actorID, roleID int64) error {
	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	var affected []int64
	if s.holders != nil {
		if affected, err = s.holders.UsersHoldingRole(ctx, roleID); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, roleID); err != nil {
		return err
	}
	if s.cache != nil {
		for _, userID := range affected {
			_ = s.cache.Invalidate(ctx, userID)
		}
	}
	s.record(ctx, actorID, "role.deleted", roleID, map[string]any{"name": role.Name})
	return nil
}

// Ancestors returns the chain from the role up to its root, nearest parent
// first. The walk is bounded by the role count and tolerates a dangling
// parent link by stopping there.
func (s *Service) Ancestors(ctx context.Context, roleID int64) ([]Role, error) {
	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	visited := map[int64]bool{roleID: true}
	var chain []Role
	cur := role
	for cur.ParentID != nil && int64(len(chain)) <= total {
		pid := *cur.ParentID
		if visited[pid] {
			break
		}
		parent, err := s.repo.GetByID(ctx, pid)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				break
			}
			return nil, err
		}
		chain = append(chain, parent)
		visited[pid] = true
		cur = parent
	}
	return chain, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, roleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     meta,
	})
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
