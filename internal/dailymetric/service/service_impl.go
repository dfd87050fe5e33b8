package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pulseboard/internal/clock"
	"github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	obslogger "github.com/smallbiznis/pulseboard/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pulseboard/internal/observability/metrics"
	"github.com/smallbiznis/pulseboard/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// maxBatchRows caps a single ingest at roughly ten years of days.
	maxBatchRows = 3660

	maxTxAttempts = 3
	txRetryDelay  = 25 * time.Millisecond
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	Clock        clock.Clock
	Metrics      *obsmetrics.Metrics  `optional:"true"`
	Invalidators []domain.Invalidator `group:"dailymetric.invalidators"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	clock        clock.Clock
	metrics      *obsmetrics.Metrics
	invalidators []domain.Invalidator
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("dailymetric.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		clock:        p.Clock,
		metrics:      p.Metrics,
		invalidators: p.Invalidators,
	}
}

func (s *Service) FindByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]domain.DailyMetric, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	start, end, err := normalizeRange(start, end)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByUserAndRange(ctx, s.db, userID, start, end)
}

func (s *Service) CountByUserAndRange(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, domain.ErrInvalidUserID
	}
	start, end, err := normalizeRange(start, end)
	if err != nil {
		return 0, err
	}
	return s.repo.CountByUserAndRange(ctx, s.db, userID, start, end)
}

func (s *Service) Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.IngestResult{}, domain.ErrInvalidUserID
	}
	if len(req.Rows) == 0 {
		return domain.IngestResult{}, domain.ErrEmptyBatch
	}
	if len(req.Rows) > maxBatchRows {
		return domain.IngestResult{}, domain.ErrBatchTooLarge
	}

	seen := make(map[time.Time]int, len(req.Rows))
	for i, row := range req.Rows {
		if err := validateRow(i, row); err != nil {
			return domain.IngestResult{}, err
		}
		day := domain.NormalizeDay(row.Date)
		if prev, ok := seen[day]; ok {
			return domain.IngestResult{}, domain.NewFieldError(
				fmt.Sprintf("rows[%d].date", i),
				fmt.Errorf("%w: same day as rows[%d]", domain.ErrDuplicateDate, prev),
			)
		}
		seen[day] = i
	}

	now := s.clock.Now().UTC()
	source := strings.TrimSpace(req.Source)
	models := make([]domain.DailyMetric, 0, len(req.Rows))
	for _, row := range req.Rows {
		models = append(models, domain.DailyMetric{
			ID:                 s.genID.Generate(),
			UserID:             userID,
			Date:               domain.NormalizeDay(row.Date),
			Revenue:            row.Revenue,
			AdSpend:            row.AdSpend,
			ShippingCost:       row.ShippingCost,
			COGS:               row.COGS,
			TotalOrders:        row.TotalOrders,
			NewCustomers:       row.NewCustomers,
			ReturningCustomers: row.ReturningCustomers,
			Campaigns:          row.Campaigns,
			Source:             source,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Date.Before(models[j].Date) })

	err := s.withTxRetry(ctx, func(tx *gorm.DB) error {
		return s.repo.Upsert(ctx, tx, models)
	})
	if err != nil {
		return domain.IngestResult{}, err
	}

	s.metrics.RecordIngest(ctx, source, len(models))
	s.invalidate(ctx, userID)

	obslogger.WithUser(s.log, userID).Info("daily metrics ingested",
		zap.Int("rows", len(models)),
		zap.String("source", source),
	)

	return domain.IngestResult{
		UserID:    userID,
		Upserted:  len(models),
		StartDate: models[0].Date,
		EndDate:   models[len(models)-1].Date,
	}, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteRequest) (int64, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return 0, domain.ErrInvalidUserID
	}
	start, end, err := normalizeRange(req.Start, req.End)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = s.withTxRetry(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.DeleteByUserAndRange(ctx, tx, userID, start, end)
		deleted = n
		return err
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, userID)
	obslogger.WithUser(s.log, userID).Warn("daily metrics deleted",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int64("rows", deleted),
	)
	return deleted, nil
}

// withTxRetry reruns fn in a fresh transaction when the database reports a
// serialization conflict or a busy lock.
func (s *Service) withTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if err == nil || !db.IsRetryableTxErr(err) || attempt == maxTxAttempts {
			return err
		}
		s.log.Debug("retrying daily metric transaction", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * txRetryDelay):
		}
	}
	return err
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	for _, inv := range s.invalidators {
		if inv == nil {
			continue
		}
		if err := inv.InvalidateUser(ctx, userID); err != nil {
			obslogger.WithUser(s.log, userID).Warn("invalidate derived state failed", zap.Error(err))
		}
	}
}

func normalizeRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, domain.ErrInvalidDate
	}
	start = domain.NormalizeDay(start)
	end = domain.NormalizeDay(end)
	if start.After(end) {
		return time.Time{}, time.Time{}, domain.ErrInvalidRange
	}
	return start, end, nil
}

func validateRow(i int, row domain.MetricInput) error {
	field := func(name string) string { return fmt.Sprintf("rows[%d].%s", i, name) }

	if row.Date.IsZero() {
		return domain.NewFieldError(field("date"), domain.ErrInvalidDate)
	}

	amounts := []struct {
		name  string
		value float64
	}{
		{"revenue", row.Revenue},
		{"adSpend", row.AdSpend},
		{"shippingCost", row.ShippingCost},
		{"cogs", row.COGS},
	}
	for _, a := range amounts {
		if math.IsNaN(a.value) || math.IsInf(a.value, 0) {
			return domain.NewFieldError(field(a.name), domain.ErrNonFiniteValue)
		}
		if a.value < 0 {
			return domain.NewFieldError(field(a.name), domain.ErrNegativeValue)
		}
	}

	counts := []struct {
		name  string
		value int64
	}{
		{"totalOrders", row.TotalOrders},
		{"newCustomers", row.NewCustomers},
		{"returningCustomers", row.ReturningCustomers},
	}
	for _, c := range counts {
		if c.value < 0 {
			return domain.NewFieldError(field(c.name), domain.ErrNegativeValue)
		}
	}

	for j, campaign := range row.Campaigns {
		prefix := fmt.Sprintf("campaigns[%d].", j)
		if strings.TrimSpace(campaign.ID) == "" && strings.TrimSpace(campaign.Name) == "" {
			return domain.NewFieldError(field(prefix+"id"), domain.ErrInvalidCampaign)
		}
		if math.IsNaN(campaign.Spend) || math.IsInf(campaign.Spend, 0) ||
			math.IsNaN(campaign.Sales) || math.IsInf(campaign.Sales, 0) {
			return domain.NewFieldError(field(prefix+"spend"), domain.ErrNonFiniteValue)
		}
		switch {
		case campaign.Spend < 0:
			return domain.NewFieldError(field(prefix+"spend"), domain.ErrNegativeValue)
		case campaign.Sales < 0:
			return domain.NewFieldError(field(prefix+"sales"), domain.ErrNegativeValue)
		case campaign.Impressions < 0:
			return domain.NewFieldError(field(prefix+"impressions"), domain.ErrNegativeValue)
		case campaign.Clicks < 0:
			return domain.NewFieldError(field(prefix+"clicks"), domain.ErrNegativeValue)
		}
	}
	return nil
}
