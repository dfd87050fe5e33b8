package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const upsertBatchSize = 200

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, rows []domain.DailyMetric) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "metric_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"revenue",
				"ad_spend",
				"shipping_cost",
				"cogs",
				"total_orders",
				"new_customers",
				"returning_customers",
				"campaigns",
				"source",
				"updated_at",
			}),
		}).
		CreateInBatches(&rows, upsertBatchSize).Error
}

func (r *repo) FindByUserAndRange(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) ([]domain.DailyMetric, error) {
	var rows []domain.DailyMetric
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, metric_date, revenue, ad_spend, shipping_cost, cogs,
		        total_orders, new_customers, returning_customers, campaigns, source,
		        created_at, updated_at
		 FROM daily_metrics
		 WHERE user_id = ? AND metric_date >= ? AND metric_date <= ?
		 ORDER BY metric_date ASC`,
		userID,
		start,
		end,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Date = domain.NormalizeDay(rows[i].Date)
	}
	return rows, nil
}

func (r *repo) CountByUserAndRange(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM daily_metrics
		 WHERE user_id = ? AND metric_date >= ? AND metric_date <= ?`,
		userID,
		start,
		end,
	).Scan(&count).Error
	return count, err
}

func (r *repo) DeleteByUserAndRange(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM daily_metrics
		 WHERE user_id = ? AND metric_date >= ? AND metric_date <= ?`,
		userID,
		start,
		end,
	)
	return res.RowsAffected, res.Error
}
