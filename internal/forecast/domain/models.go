package domain

import (
	"context"
	"errors"
	"time"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
)

type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Days() int {
	return dailymetricdomain.DaySpan(w.Start, w.End)
}

// GrowthFactors are period-over-period multipliers, 1 meaning flat.
type GrowthFactors struct {
	Revenue float64 `json:"revenue"`
	Orders  float64 `json:"orders"`
	AdSpend float64 `json:"adSpend"`
	Profit  float64 `json:"profit"`
}

// Growth expresses growth factors as percentages.
type Growth struct {
	Revenue float64 `json:"revenue"`
	Orders  float64 `json:"orders"`
	AdSpend float64 `json:"adSpend"`
	Profit  float64 `json:"profit"`
}

type InsightType string

const (
	InsightPositive InsightType = "positive"
	InsightWarning  InsightType = "warning"
	InsightInfo     InsightType = "info"
)

func (t InsightType) Valid() bool {
	switch t {
	case InsightPositive, InsightWarning, InsightInfo:
		return true
	default:
		return false
	}
}

type Insight struct {
	Type           InsightType `json:"type"`
	Metric         string      `json:"metric"`
	Message        string      `json:"message"`
	Recommendation string      `json:"recommendation"`
}

// Input is everything a strategy may look at.
type Input struct {
	UserID      string
	Horizon     Horizon
	AsOf        time.Time
	BasisWindow Window
	PriorWindow Window
	Basis       aggregation.AggregateSummary
	Prior       aggregation.AggregateSummary
	History     []dailymetricdomain.DailyMetric
	Trend       GrowthFactors
}

// PeriodValues is a raw projection for one period before clamping.
type PeriodValues struct {
	Revenue float64 `json:"revenue"`
	Orders  float64 `json:"orders"`
	AdSpend float64 `json:"adSpend"`
	Profit  float64 `json:"profit"`
}

type Projection struct {
	Periods  []PeriodValues
	Insights []Insight
}

type ProjectedPeriod struct {
	Period       int       `json:"period"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Revenue      float64   `json:"revenue"`
	Orders       float64   `json:"orders"`
	AdSpend      float64   `json:"adSpend"`
	Profit       float64   `json:"profit"`
	ROAS         float64   `json:"roas"`
	ProfitMargin float64   `json:"profitMargin"`
}

type ForecastResult struct {
	ID              string                       `json:"id"`
	UserID          string                       `json:"userId"`
	Horizon         Horizon                      `json:"horizon"`
	AsOf            time.Time                    `json:"asOf"`
	BasisWindow     Window                       `json:"basisWindow"`
	PriorWindow     Window                       `json:"priorWindow"`
	Current         aggregation.AggregateSummary `json:"current"`
	Previous        aggregation.AggregateSummary `json:"previous"`
	GrowthFactors   GrowthFactors                `json:"growthFactors"`
	Growth          Growth                       `json:"growth"`
	Projected       []ProjectedPeriod            `json:"projected"`
	Confidence      int                          `json:"confidence"`
	ConfidenceLevel string                       `json:"confidenceLevel"`
	AIGenerated     bool                         `json:"aiGenerated"`
	Strategy        StrategyName                 `json:"strategy"`
	FallbackReason  string                       `json:"fallbackReason,omitempty"`
	Insights        []Insight                    `json:"insights"`
	CachedAt        time.Time                    `json:"cachedAt"`
	ExpiresAt       time.Time                    `json:"expiresAt"`
	FromCache       bool                         `json:"fromCache"`
}

// Expired reports whether the result must no longer be served at now.
func (r ForecastResult) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Strategy produces a projection for Input.Horizon.Periods periods.
type Strategy interface {
	Name() StrategyName
	Project(ctx context.Context, in Input) Outcome
}

// Quota gates use of the delegated strategy per user.
type Quota interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

type Request struct {
	UserID  string
	Horizon Horizon
	AsOf    *time.Time
}

type Service interface {
	Forecast(ctx context.Context, req Request) (ForecastResult, error)
	Invalidate(ctx context.Context, userID string) error
}

var (
	ErrInvalidUserID  = errors.New("invalid_user_id")
	ErrInvalidHorizon = errors.New("invalid_horizon")
	ErrInvalidMonths  = errors.New("invalid_months")
	ErrInvalidAsOf    = errors.New("invalid_as_of")
)
