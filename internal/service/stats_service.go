package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-api/internal/models"
	"storefront-api/internal/store"
)

// StatsStore reads the monthly stats view
type StatsStore interface {
	MonthlyStats(ctx context.Context, productID string) ([]models.MonthlyStat, error)
}

type StatsService struct {
	stats StatsStore
}

func NewStatsService(stats StatsStore) *StatsService {
	return &StatsService{stats: stats}
}

// MonthlyStats returns one row per month; ErrUnavailable when the view has
// not been created.
func (s *StatsService) MonthlyStats(ctx context.Context, productID string) ([]models.MonthlyStat, error) {
	rows, err := s.stats.MonthlyStats(ctx, productID)
	if errors.Is(err, store.ErrSchemaUnavailable) {
		return nil, fmt.Errorf("%w: %s has not been created", ErrUnavailable, store.MonthlyStatsView)
	}
	return rows, err
}
