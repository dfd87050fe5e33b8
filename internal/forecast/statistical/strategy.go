package statistical

import (
	"context"

	"github.com/smallbiznis/pulseboard/internal/forecast/domain"
)

// Strategy compounds the observed period-over-period growth. It is always
// available.
type Strategy struct{}

func New() *Strategy { return &Strategy{} }

func (*Strategy) Name() domain.StrategyName { return domain.StrategyStatistical }

func (*Strategy) Project(_ context.Context, in domain.Input) domain.Outcome {
	return domain.Ok(domain.StrategyStatistical, domain.Projection{
		Periods:  Project(in.Basis, in.Trend, in.Horizon.Periods),
		Insights: Insights(in),
	})
}
