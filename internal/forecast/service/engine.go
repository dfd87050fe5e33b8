package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/oklog/ulid/v2"
	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	"github.com/smallbiznis/pulseboard/internal/clock"
	"github.com/smallbiznis/pulseboard/internal/config"
	"github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"github.com/smallbiznis/pulseboard/internal/forecast/statistical"
	obsmetrics "github.com/smallbiznis/pulseboard/internal/observability/metrics"
	"github.com/smallbiznis/pulseboard/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "pulseboard/forecast"

type EngineParams struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Config    *config.ForecastConfigHolder
	Delegated domain.Strategy     `name:"forecast.delegated" optional:"true"`
	Quota     domain.Quota        `optional:"true"`
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

// Engine turns basis and prior summaries into a ForecastResult. The
// delegated strategy is tried first when configured; any failure falls back
// to the statistical strategy.
type Engine struct {
	log         *zap.Logger
	clock       clock.Clock
	cfg         *config.ForecastConfigHolder
	statistical domain.Strategy
	delegated   domain.Strategy
	quota       domain.Quota
	metrics     *obsmetrics.Metrics
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{
		log:         p.Log.Named("forecast.engine"),
		clock:       p.Clock,
		cfg:         p.Config,
		statistical: statistical.New(),
		delegated:   p.Delegated,
		quota:       p.Quota,
		metrics:     p.Metrics,
	}
}

func (e *Engine) Run(ctx context.Context, in domain.Input) domain.ForecastResult {
	ctx, span := tracing.StartSpan(ctx, tracerName, "forecast.Engine.Run")
	defer span.End()

	cfg := e.cfg.Get()
	in.Trend = statistical.Trend(in.Basis, in.Prior)

	outcome := e.tryDelegated(ctx, in, cfg)
	fallback := ""
	projection, ok := outcome.Projection()
	if !ok {
		reason := outcome.Reason()
		if !errors.Is(reason, domain.ErrDelegatedDisabled) {
			fallback = domain.ReasonCode(reason)
			e.log.Warn("delegated forecast unavailable, using statistical",
				zap.String("user_id", in.UserID),
				zap.String("horizon", in.Horizon.Key()),
				zap.String("reason", fallback),
				zap.Error(reason),
			)
			e.metrics.RecordDelegatedFallback(ctx, fallback)
		}
		outcome = e.statistical.Project(ctx, in)
		projection, _ = outcome.Projection()
	}

	insights := projection.Insights
	if len(insights) == 0 {
		insights = statistical.Insights(in)
	}

	periodDays := in.Horizon.PeriodDays()
	confidence := domain.Confidence(in.Basis.DaysWithData+in.Prior.DaysWithData, periodDays, cfg.ConfidenceCeiling)

	result := domain.ForecastResult{
		ID:              ulid.MustNew(ulid.Timestamp(e.clock.Now()), ulid.DefaultEntropy()).String(),
		UserID:          in.UserID,
		Horizon:         in.Horizon,
		AsOf:            in.AsOf,
		BasisWindow:     in.BasisWindow,
		PriorWindow:     in.PriorWindow,
		Current:         in.Basis,
		Previous:        in.Prior,
		GrowthFactors:   in.Trend,
		Growth:          statistical.GrowthPercent(in.Trend),
		Projected:       finalizePeriods(in.AsOf, periodDays, projection.Periods),
		Confidence:      confidence,
		ConfidenceLevel: domain.ConfidenceLevel(confidence),
		Strategy:        outcome.Strategy(),
		AIGenerated:     outcome.Strategy() == domain.StrategyDelegated,
		FallbackReason:  fallback,
		Insights:        insights,
	}

	span.SetAttributes(
		attribute.String("strategy", string(result.Strategy)),
		attribute.String("horizon", in.Horizon.Key()),
	)
	e.metrics.RecordForecast(ctx, string(result.Strategy), string(in.Horizon.Kind))
	return result
}

func (e *Engine) tryDelegated(ctx context.Context, in domain.Input, cfg config.ForecastConfig) domain.Outcome {
	if e.delegated == nil {
		return domain.Unavailable(domain.ErrDelegatedDisabled)
	}

	if e.quota != nil {
		allowed, err := e.quota.Allow(ctx, in.UserID)
		if err != nil {
			return domain.Unavailable(fmt.Errorf("%w: %v", domain.ErrQuotaExceeded, err))
		}
		if !allowed {
			return domain.Unavailable(domain.ErrQuotaExceeded)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, config.ClampDelegatedTimeout(cfg.DelegatedTimeout))
	defer cancel()

	started := e.clock.Now()
	outcome := e.delegated.Project(ctx, in)
	elapsed := e.clock.Now().Sub(started)
	if _, ok := outcome.Projection(); !ok {
		e.metrics.RecordDelegatedLatency(ctx, elapsed, domain.ReasonCode(outcome.Reason()))
		return outcome
	}
	e.metrics.RecordDelegatedLatency(ctx, elapsed, "ok")
	return checkConsistency(in, outcome)
}

// checkConsistency rejects a delegated projection whose first period
// undercuts the basis while the observed revenue trend is not negative, or
// whose shape does not match the horizon.
func checkConsistency(in domain.Input, outcome domain.Outcome) domain.Outcome {
	projection, _ := outcome.Projection()
	if len(projection.Periods) != in.Horizon.Periods {
		return domain.Unavailable(domain.ErrMalformedResponse)
	}
	if in.Trend.Revenue >= 1 && projection.Periods[0].Revenue < in.Basis.Revenue {
		return domain.Unavailable(domain.ErrInconsistentProjection)
	}
	return outcome
}

// finalizePeriods clamps every additive metric at zero and derives ratios
// from the clamped values.
func finalizePeriods(asOf time.Time, periodDays int, periods []domain.PeriodValues) []domain.ProjectedPeriod {
	out := make([]domain.ProjectedPeriod, 0, len(periods))
	for i, p := range periods {
		revenue := nonNegative(p.Revenue)
		adSpend := nonNegative(p.AdSpend)
		profit := nonNegative(p.Profit)
		start := asOf.AddDate(0, 0, i*periodDays+1)
		out = append(out, domain.ProjectedPeriod{
			Period:       i + 1,
			StartDate:    start,
			EndDate:      start.AddDate(0, 0, periodDays-1),
			Revenue:      revenue,
			Orders:       nonNegative(p.Orders),
			AdSpend:      adSpend,
			Profit:       profit,
			ROAS:         aggregation.RatioFloat(revenue, adSpend),
			ProfitMargin: aggregation.PercentFloat(profit, revenue),
		})
	}
	return out
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
