package store

import (
	"context"

	"storefront-api/internal/models"
)

// MonthlyStatsView is refreshed after bulk loads and by the stats worker
const MonthlyStatsView = "product_monthly_stats"

// MonthlyStats reads the precomputed aggregates of one product
func (s *Store) MonthlyStats(ctx context.Context, productID string) ([]models.MonthlyStat, error) {
	stats := []models.MonthlyStat{}
	err := s.db.SelectContext(ctx, &stats, `
		SELECT product_id, month, order_count, units, revenue, avg_price
		FROM `+MonthlyStatsView+`
		WHERE product_id = $1
		ORDER BY month`, productID)
	if err != nil {
		return nil, wrap(err, "monthly stats")
	}
	return stats, nil
}

// RefreshMonthlyStats recomputes the materialized view
func (s *Store) RefreshMonthlyStats(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "REFRESH MATERIALIZED VIEW "+MonthlyStatsView)
	return wrap(err, "refresh monthly stats")
}
