package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, rows []DailyMetric) error
	FindByUserAndRange(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) ([]DailyMetric, error)
	CountByUserAndRange(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) (int64, error)
	DeleteByUserAndRange(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) (int64, error)
}
