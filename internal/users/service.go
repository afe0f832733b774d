package users

import (
	"context"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

// Service handles user directory reads.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of accounts with pagination metadata.
func (s *Service) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	pagination := shared.NewPagination(page, perPage, int(total))
	list, err := s.repo.List(ctx, pagination)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, pagination, nil
}
