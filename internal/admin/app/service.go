package app

import (
	"context"

	"taxi-fleet/internal/admin/domain"
	"taxi-fleet/internal/shared/apperrors"
	"taxi-fleet/internal/shared/permissions"
)

type AdminService struct {
	repo domain.OverviewRepository
}

func NewAdminService(repo domain.OverviewRepository) *AdminService {
	return &AdminService{repo: repo}
}

func (s *AdminService) Overview(ctx context.Context, actor permissions.Actor) (*domain.Overview, error) {
	if !permissions.Allowed(actor.Role, permissions.ActionViewOverview) {
		return nil, apperrors.ErrPermissionDenied
	}
	return s.repo.Overview(ctx)
}
