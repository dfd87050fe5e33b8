package domain

import (
	"context"
	"errors"
	"time"

	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
)

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

type Request struct {
	UserID string
	Start  time.Time
	End    time.Time
}

type SeriesRequest struct {
	Request
	Granularity Granularity
}

// AggregateSummary is derived on demand from the daily rows of one window.
// Ratios are computed from the sums, never averaged across days.
type AggregateSummary struct {
	UserID             string    `json:"userId"`
	StartDate          time.Time `json:"startDate"`
	EndDate            time.Time `json:"endDate"`
	Days               int       `json:"days"`
	DaysWithData       int       `json:"daysWithData"`
	HasData            bool      `json:"hasData"`
	Revenue            float64   `json:"revenue"`
	AdSpend            float64   `json:"adSpend"`
	COGS               float64   `json:"cogs"`
	ShippingCost       float64   `json:"shippingCost"`
	GrossProfit        float64   `json:"grossProfit"`
	NetProfit          float64   `json:"netProfit"`
	TotalOrders        int64     `json:"totalOrders"`
	NewCustomers       int64     `json:"newCustomers"`
	ReturningCustomers int64     `json:"returningCustomers"`
	ROAS               float64   `json:"roas"`
	POAS               float64   `json:"poas"`
	AOV                float64   `json:"aov"`
	GrossProfitMargin  float64   `json:"grossProfitMargin"`
	NetProfitMargin    float64   `json:"netProfitMargin"`
}

type SeriesPoint struct {
	Period    string    `json:"period"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Revenue   float64   `json:"revenue"`
	AdSpend   float64   `json:"adSpend"`
	NetProfit float64   `json:"netProfit"`
	Orders    int64     `json:"orders"`
	ROAS      float64   `json:"roas"`
	HasData   bool      `json:"hasData"`
}

// Comparison holds the current window against the equally long window
// immediately before it. Growth values are percentages; nil when the
// previous value is zero.
type Comparison struct {
	Current  AggregateSummary    `json:"current"`
	Previous AggregateSummary    `json:"previous"`
	Growth   map[string]*float64 `json:"growth"`
}

type CampaignSummary struct {
	Key         string  `json:"key"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Days        int     `json:"days"`
	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Sales       float64 `json:"sales"`
	ROAS        float64 `json:"roas"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
}

type Service interface {
	Aggregate(ctx context.Context, req Request) (AggregateSummary, error)
	Series(ctx context.Context, req SeriesRequest) ([]SeriesPoint, error)
	Compare(ctx context.Context, req Request) (Comparison, error)
	Campaigns(ctx context.Context, req Request) ([]CampaignSummary, error)
}

// MetricSource is the read contract of the daily metric store.
type MetricSource interface {
	FindByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]dailymetricdomain.DailyMetric, error)
}

var (
	ErrInvalidUserID      = errors.New("invalid_user_id")
	ErrInvalidRange       = errors.New("invalid_range")
	ErrInvalidDate        = errors.New("invalid_date")
	ErrInvalidGranularity = errors.New("invalid_granularity")
)

func ParseGranularity(value string) (Granularity, error) {
	switch Granularity(value) {
	case "":
		return GranularityDay, nil
	case GranularityDay, GranularityWeek, GranularityMonth:
		return Granularity(value), nil
	default:
		return "", ErrInvalidGranularity
	}
}
