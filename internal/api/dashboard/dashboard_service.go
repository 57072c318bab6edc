package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/wrenchwise/workshop-api/internal/types"
)

var _ DashboardService = (*ServiceImpl)(nil)

type DashboardService interface {
	Summary(ctx context.Context) (*types.DashboardSummary, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   DashboardRepo
	now    func() time.Time
}

func NewServiceImpl(repo DashboardRepo, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, now: time.Now}
}

func (s *ServiceImpl) Summary(ctx context.Context) (*types.DashboardSummary, error) {
	return s.repo.Summary(ctx, s.now())
}
