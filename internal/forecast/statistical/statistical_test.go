package statistical

import (
	"context"
	"math"
	"testing"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	"github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowthFactor(t *testing.T) {
	tests := []struct {
		name           string
		current, prior float64
		want           float64
	}{
		{name: "scenario", current: 4080000, prior: 930000, want: 4.387},
		{name: "flat", current: 10, prior: 10, want: 1},
		{name: "halved", current: 5, prior: 10, want: 0.5},
		{name: "zero prior", current: 10, prior: 0, want: 1},
		{name: "negative prior", current: 10, prior: -5, want: 1},
		{name: "negative current floors at zero", current: -30, prior: 10, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, GrowthFactor(tt.current, tt.prior), 0.001)
		})
	}
}

func TestProjectCompounds(t *testing.T) {
	basis := aggregation.AggregateSummary{Revenue: 1000, TotalOrders: 10, AdSpend: 100, NetProfit: 200}
	g := domain.GrowthFactors{Revenue: 1.1, Orders: 1, AdSpend: 0.5, Profit: 2}

	periods := Project(basis, g, 3)
	require.Len(t, periods, 3)
	assert.InDelta(t, 1100, periods[0].Revenue, 1e-9)
	assert.InDelta(t, 1331, periods[2].Revenue, 1e-9)
	assert.InDelta(t, 10, periods[2].Orders, 1e-9)
	assert.InDelta(t, 12.5, periods[2].AdSpend, 1e-9)
	assert.InDelta(t, 1600, periods[2].Profit, 1e-9)
}

func TestGrowthPercent(t *testing.T) {
	got := GrowthPercent(domain.GrowthFactors{Revenue: 4.387096774, Orders: 1, AdSpend: 0.5, Profit: 0})
	assert.Equal(t, 338.71, got.Revenue)
	assert.Equal(t, 0.0, got.Orders)
	assert.Equal(t, -50.0, got.AdSpend)
	assert.Equal(t, -100.0, got.Profit)
}

func TestStrategyProjectsHorizonPeriods(t *testing.T) {
	in := domain.Input{
		Horizon: domain.Monthly(3),
		Basis:   aggregation.AggregateSummary{HasData: true, Revenue: 4080000, AdSpend: 180000, ROAS: 22.67, NetProfit: 100},
		Trend:   domain.GrowthFactors{Revenue: 4.387, Orders: 1, AdSpend: 1.2, Profit: 1},
	}
	out := New().Project(context.Background(), in)

	proj, ok := out.Projection()
	require.True(t, ok)
	assert.Equal(t, domain.StrategyStatistical, out.Strategy())
	assert.Len(t, proj.Periods, 3)
	for _, p := range proj.Periods {
		assert.False(t, math.IsNaN(p.Revenue) || math.IsInf(p.Revenue, 0))
	}
	require.NotEmpty(t, proj.Insights)
	assert.Equal(t, domain.InsightPositive, proj.Insights[0].Type)
}

func TestInsightsWithoutData(t *testing.T) {
	got := Insights(domain.Input{})
	require.Len(t, got, 1)
	assert.Equal(t, domain.InsightInfo, got[0].Type)
}

func TestInsightsFlagLossAndWeakROAS(t *testing.T) {
	in := domain.Input{
		Basis: aggregation.AggregateSummary{
			HasData: true, Revenue: 500, AdSpend: 800, ROAS: 0.63, NetProfit: -400, NetProfitMargin: -80,
		},
		Trend: domain.GrowthFactors{Revenue: 0.8, AdSpend: 1.5},
	}
	got := Insights(in)

	metrics := map[string]domain.InsightType{}
	for _, i := range got {
		metrics[i.Metric] = i.Type
		assert.True(t, i.Type.Valid())
	}
	assert.Equal(t, domain.InsightWarning, metrics["revenue"])
	assert.Equal(t, domain.InsightWarning, metrics["roas"])
	assert.Equal(t, domain.InsightWarning, metrics["profit"])
	assert.LessOrEqual(t, len(got), maxRuleInsights)
}
