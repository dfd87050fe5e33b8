package seed

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pulseboard/internal/clock"
	"github.com/smallbiznis/pulseboard/internal/config"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	DemoDays   = 90
	demoSource = "seed"

	baseRevenue      = 25000.0
	dailyGrowth      = 0.004
	weekendLift      = 1.25
	adSpendShare     = 0.22
	cogsShare        = 0.38
	averageOrder     = 850.0
	shippingPerOrder = 45.0
)

var Module = fx.Module("seed",
	fx.Invoke(func(cfg config.Config, svc dailymetricdomain.Service, clk clock.Clock, log *zap.Logger) error {
		if cfg.SeedDemoUserID == "" {
			return nil
		}
		seeded, err := EnsureDemoData(context.Background(), svc, clk, cfg.SeedDemoUserID)
		if err != nil {
			return err
		}
		if seeded {
			log.Info("demo metrics seeded", zap.String("user_id", cfg.SeedDemoUserID), zap.Int("days", DemoDays))
		}
		return nil
	}),
)

// EnsureDemoData writes DemoDays of generated metrics ending yesterday for
// userID unless the user already has rows in that window.
func EnsureDemoData(ctx context.Context, svc dailymetricdomain.Service, clk clock.Clock, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, errors.New("seed user id is required")
	}

	end := clock.Yesterday(clk)
	start := end.AddDate(0, 0, -(DemoDays - 1))
	existing, err := svc.CountByUserAndRange(ctx, userID, start, end)
	if err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	_, err = svc.Ingest(ctx, dailymetricdomain.IngestRequest{
		UserID: userID,
		Source: demoSource,
		Rows:   DemoRows(start, DemoDays),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// DemoRows generates a steadily growing store with a weekend lift and two
// campaigns. Output depends only on its arguments.
func DemoRows(start time.Time, days int) []dailymetricdomain.MetricInput {
	rows := make([]dailymetricdomain.MetricInput, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		revenue := baseRevenue * (1 + dailyGrowth*float64(i))
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			revenue *= weekendLift
		}
		adSpend := revenue * adSpendShare
		orders := int64(math.Round(revenue / averageOrder))
		newCustomers := int64(math.Round(float64(orders) * 0.6))

		brandSpend := adSpend * 0.65
		retargetSpend := adSpend - brandSpend

		rows = append(rows, dailymetricdomain.MetricInput{
			Date:               date,
			Revenue:            money(revenue),
			AdSpend:            money(adSpend),
			COGS:               money(revenue * cogsShare),
			ShippingCost:       money(float64(orders) * shippingPerOrder),
			TotalOrders:        orders,
			NewCustomers:       newCustomers,
			ReturningCustomers: orders - newCustomers,
			Campaigns: []dailymetricdomain.Campaign{
				demoCampaign("brand-search", "Brand Search", brandSpend, 3.2),
				demoCampaign("retargeting", "Retargeting", retargetSpend, 2.1),
			},
		})
	}
	return rows
}

func demoCampaign(id, name string, spend, roas float64) dailymetricdomain.Campaign {
	return dailymetricdomain.Campaign{
		ID:          id,
		Name:        name,
		Spend:       money(spend),
		Impressions: int64(math.Round(spend * 120)),
		Clicks:      int64(math.Round(spend * 1.8)),
		Sales:       money(spend * roas),
	}
}

func money(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
