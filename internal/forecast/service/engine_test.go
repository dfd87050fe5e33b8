package service

import (
	"math"
	"testing"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	"github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConsistency(t *testing.T) {
	in := domain.Input{
		Horizon: domain.Monthly(2),
		Basis:   aggregation.AggregateSummary{Revenue: 100},
		Trend:   domain.GrowthFactors{Revenue: 1},
	}

	ok := domain.Ok(domain.StrategyDelegated, domain.Projection{Periods: periodsOf(2, domain.PeriodValues{Revenue: 100})})
	_, isOK := checkConsistency(in, ok).Projection()
	assert.True(t, isOK, "equal to basis on a flat trend is consistent")

	low := domain.Ok(domain.StrategyDelegated, domain.Projection{Periods: periodsOf(2, domain.PeriodValues{Revenue: 99})})
	assert.ErrorIs(t, checkConsistency(in, low).Reason(), domain.ErrInconsistentProjection)

	short := domain.Ok(domain.StrategyDelegated, domain.Projection{Periods: periodsOf(1, domain.PeriodValues{Revenue: 200})})
	assert.ErrorIs(t, checkConsistency(in, short).Reason(), domain.ErrMalformedResponse)

	in.Trend.Revenue = 0.9
	_, isOK = checkConsistency(in, low).Projection()
	assert.True(t, isOK, "a falling trend may project below the basis")
}

func TestFinalizePeriods(t *testing.T) {
	asOf := date(2025, 9, 30)
	got := finalizePeriods(asOf, 7, []domain.PeriodValues{
		{Revenue: 700, Orders: 7, AdSpend: 100, Profit: 70},
		{Revenue: math.Inf(1), Orders: math.NaN(), AdSpend: -1, Profit: -5},
	})
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Period)
	assert.True(t, got[0].StartDate.Equal(date(2025, 10, 1)))
	assert.True(t, got[0].EndDate.Equal(date(2025, 10, 7)))
	assert.Equal(t, 7.0, got[0].ROAS)
	assert.Equal(t, 10.0, got[0].ProfitMargin)

	assert.True(t, got[1].StartDate.Equal(date(2025, 10, 8)))
	assert.Equal(t, 0.0, got[1].Revenue)
	assert.Equal(t, 0.0, got[1].Orders)
	assert.Equal(t, 0.0, got[1].AdSpend)
	assert.Equal(t, 0.0, got[1].Profit)
	assert.Equal(t, 0.0, got[1].ROAS)
}
