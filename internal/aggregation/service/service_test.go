package service

import (
	"context"
	"math"
	"testing"
	"time"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// -- Fakes --

type memorySource struct {
	rows []dailymetricdomain.DailyMetric
}

func (m *memorySource) FindByUserAndRange(_ context.Context, userID string, start, end time.Time) ([]dailymetricdomain.DailyMetric, error) {
	var out []dailymetricdomain.DailyMetric
	for _, row := range m.rows {
		if row.UserID != userID || row.Date.Before(start) || row.Date.After(end) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

type sourceMock struct {
	mock.Mock
}

func (m *sourceMock) FindByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]dailymetricdomain.DailyMetric, error) {
	args := m.Called(ctx, userID, start, end)
	rows, _ := args.Get(0).([]dailymetricdomain.DailyMetric)
	return rows, args.Error(1)
}

func newService(source aggregation.MetricSource) aggregation.Service {
	return NewService(Params{Log: zap.NewNop(), Source: source})
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthRows spreads totals evenly over every day of the month.
func monthRows(userID string, y int, m time.Month, revenue, adSpend float64) []dailymetricdomain.DailyMetric {
	first := date(y, m, 1)
	days := first.AddDate(0, 1, -1).Day()
	rows := make([]dailymetricdomain.DailyMetric, 0, days)
	for i := 0; i < days; i++ {
		rows = append(rows, dailymetricdomain.DailyMetric{
			UserID:      userID,
			Date:        first.AddDate(0, 0, i),
			Revenue:     revenue / float64(days),
			AdSpend:     adSpend / float64(days),
			TotalOrders: 10,
		})
	}
	return rows
}

func TestAggregateSeptemberScenario(t *testing.T) {
	svc := newService(&memorySource{rows: monthRows("user-a", 2025, time.September, 4_080_000, 180_000)})

	sum, err := svc.Aggregate(context.Background(), aggregation.Request{
		UserID: "user-a",
		Start:  date(2025, 9, 1),
		End:    date(2025, 9, 30),
	})
	require.NoError(t, err)
	assert.InDelta(t, 4_080_000, sum.Revenue, 1e-6)
	assert.InDelta(t, 180_000, sum.AdSpend, 1e-6)
	assert.Equal(t, 22.67, sum.ROAS)
	assert.Equal(t, 30, sum.DaysWithData)
	assert.True(t, sum.HasData)
}

func TestAggregateDerivations(t *testing.T) {
	rows := []dailymetricdomain.DailyMetric{
		{UserID: "u", Date: date(2025, 1, 1), Revenue: 1000, AdSpend: 200, COGS: 300, ShippingCost: 50, TotalOrders: 4},
		{UserID: "u", Date: date(2025, 1, 3), Revenue: 500, AdSpend: 100, COGS: 150, ShippingCost: 25, TotalOrders: 2},
	}
	svc := newService(&memorySource{rows: rows})

	sum, err := svc.Aggregate(context.Background(), aggregation.Request{UserID: "u", Start: date(2025, 1, 1), End: date(2025, 1, 3)})
	require.NoError(t, err)

	assert.Equal(t, 1500.0, sum.Revenue)
	assert.Equal(t, 1050.0, sum.GrossProfit)
	assert.Equal(t, 675.0, sum.NetProfit)
	assert.Equal(t, 5.0, sum.ROAS)
	assert.Equal(t, 2.25, sum.POAS)
	assert.Equal(t, 250.0, sum.AOV)
	assert.Equal(t, 70.0, sum.GrossProfitMargin)
	assert.Equal(t, 45.0, sum.NetProfitMargin)
	assert.Equal(t, 3, sum.Days)
	assert.Equal(t, 2, sum.DaysWithData)
}

func TestAggregateAdditivity(t *testing.T) {
	var rows []dailymetricdomain.DailyMetric
	for i := 0; i < 40; i++ {
		rows = append(rows, dailymetricdomain.DailyMetric{
			UserID:      "u",
			Date:        date(2025, 3, 1).AddDate(0, 0, i),
			Revenue:     float64(1000 + 37*i),
			AdSpend:     float64(90 + 3*i),
			COGS:        float64(250 + i),
			TotalOrders: int64(5 + i%4),
		})
	}
	svc := newService(&memorySource{rows: rows})
	ctx := context.Background()

	for split := 0; split < 39; split += 7 {
		whole, err := svc.Aggregate(ctx, aggregation.Request{UserID: "u", Start: date(2025, 3, 1), End: date(2025, 4, 9)})
		require.NoError(t, err)
		left, err := svc.Aggregate(ctx, aggregation.Request{UserID: "u", Start: date(2025, 3, 1), End: date(2025, 3, 1).AddDate(0, 0, split)})
		require.NoError(t, err)
		right, err := svc.Aggregate(ctx, aggregation.Request{UserID: "u", Start: date(2025, 3, 1).AddDate(0, 0, split+1), End: date(2025, 4, 9)})
		require.NoError(t, err)

		assert.InDelta(t, whole.Revenue, left.Revenue+right.Revenue, 1e-6)
		assert.InDelta(t, whole.AdSpend, left.AdSpend+right.AdSpend, 1e-6)
		assert.InDelta(t, whole.NetProfit, left.NetProfit+right.NetProfit, 1e-6)
		assert.Equal(t, whole.TotalOrders, left.TotalOrders+right.TotalOrders)
	}
}

func TestAggregateZeroDivisionSafety(t *testing.T) {
	rows := []dailymetricdomain.DailyMetric{
		{UserID: "u", Date: date(2025, 1, 1), Revenue: 0, AdSpend: 0, COGS: 10},
	}
	svc := newService(&memorySource{rows: rows})

	sum, err := svc.Aggregate(context.Background(), aggregation.Request{UserID: "u", Start: date(2025, 1, 1), End: date(2025, 1, 1)})
	require.NoError(t, err)
	for name, v := range map[string]float64{
		"roas": sum.ROAS, "poas": sum.POAS, "aov": sum.AOV,
		"grossProfitMargin": sum.GrossProfitMargin, "netProfitMargin": sum.NetProfitMargin,
	} {
		assert.Equal(t, 0.0, v, name)
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), name)
	}
}

func TestAggregateEmptyRange(t *testing.T) {
	svc := newService(&memorySource{})

	sum, err := svc.Aggregate(context.Background(), aggregation.Request{UserID: "u", Start: date(2025, 1, 1), End: date(2025, 1, 31)})
	require.NoError(t, err)
	assert.False(t, sum.HasData)
	assert.Equal(t, 0.0, sum.Revenue)
	assert.Equal(t, 0.0, sum.ROAS)
	assert.Equal(t, 31, sum.Days)
}

func TestAggregateValidation(t *testing.T) {
	source := &sourceMock{}
	svc := newService(source)
	ctx := context.Background()

	_, err := svc.Aggregate(ctx, aggregation.Request{Start: date(2025, 1, 1), End: date(2025, 1, 2)})
	assert.ErrorIs(t, err, aggregation.ErrInvalidUserID)

	_, err = svc.Aggregate(ctx, aggregation.Request{UserID: "u", Start: date(2025, 1, 3), End: date(2025, 1, 2)})
	assert.ErrorIs(t, err, aggregation.ErrInvalidRange)

	_, err = svc.Aggregate(ctx, aggregation.Request{UserID: "u"})
	assert.ErrorIs(t, err, aggregation.ErrInvalidDate)

	source.AssertNotCalled(t, "FindByUserAndRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAggregateNormalizesDatesBeforeQuery(t *testing.T) {
	source := &sourceMock{}
	source.On("FindByUserAndRange", mock.Anything, "u", date(2025, 1, 1), date(2025, 1, 2)).
		Return([]dailymetricdomain.DailyMetric{}, nil).Once()
	svc := newService(source)

	_, err := svc.Aggregate(context.Background(), aggregation.Request{
		UserID: " u ",
		Start:  time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 1, 2, 23, 59, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	source.AssertExpectations(t)
}

func TestSeriesWeeklyZeroFilled(t *testing.T) {
	rows := []dailymetricdomain.DailyMetric{
		{UserID: "u", Date: date(2025, 9, 1), Revenue: 100, AdSpend: 10, TotalOrders: 1},
		{UserID: "u", Date: date(2025, 9, 2), Revenue: 100, AdSpend: 10, TotalOrders: 1},
		{UserID: "u", Date: date(2025, 9, 20), Revenue: 300, AdSpend: 100, TotalOrders: 3},
	}
	svc := newService(&memorySource{rows: rows})

	points, err := svc.Series(context.Background(), aggregation.SeriesRequest{
		Request:     aggregation.Request{UserID: "u", Start: date(2025, 9, 1), End: date(2025, 9, 21)},
		Granularity: aggregation.GranularityWeek,
	})
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "2025-W36", points[0].Period)
	assert.Equal(t, 200.0, points[0].Revenue)
	assert.Equal(t, 10.0, points[0].ROAS)
	assert.False(t, points[1].HasData)
	assert.Equal(t, 0.0, points[1].Revenue)
	assert.Equal(t, 3.0, points[2].ROAS)
}

func TestSeriesDailyAndMonthlyBuckets(t *testing.T) {
	svc := newService(&memorySource{})
	ctx := context.Background()

	daily, err := svc.Series(ctx, aggregation.SeriesRequest{
		Request: aggregation.Request{UserID: "u", Start: date(2025, 1, 30), End: date(2025, 2, 2)},
	})
	require.NoError(t, err)
	assert.Len(t, daily, 4)

	monthly, err := svc.Series(ctx, aggregation.SeriesRequest{
		Request:     aggregation.Request{UserID: "u", Start: date(2025, 1, 15), End: date(2025, 3, 2)},
		Granularity: aggregation.GranularityMonth,
	})
	require.NoError(t, err)
	require.Len(t, monthly, 3)
	assert.Equal(t, "2025-01", monthly[0].Period)
	assert.True(t, monthly[0].StartDate.Equal(date(2025, 1, 15)))
	assert.True(t, monthly[2].EndDate.Equal(date(2025, 3, 2)))

	_, err = svc.Series(ctx, aggregation.SeriesRequest{
		Request:     aggregation.Request{UserID: "u", Start: date(2025, 1, 1), End: date(2025, 1, 2)},
		Granularity: "hour",
	})
	assert.ErrorIs(t, err, aggregation.ErrInvalidGranularity)
}

func TestCompareAgainstPreviousWindow(t *testing.T) {
	rows := append(
		monthRows("u", 2025, time.August, 930_000, 150_000),
		monthRows("u", 2025, time.September, 4_080_000, 180_000)...,
	)
	svc := newService(&memorySource{rows: rows})

	cmp, err := svc.Compare(context.Background(), aggregation.Request{UserID: "u", Start: date(2025, 9, 1), End: date(2025, 9, 30)})
	require.NoError(t, err)
	assert.True(t, cmp.Previous.StartDate.Equal(date(2025, 8, 2)))
	assert.True(t, cmp.Previous.EndDate.Equal(date(2025, 8, 31)))
	require.NotNil(t, cmp.Growth["revenue"])
	assert.Greater(t, *cmp.Growth["revenue"], 300.0)

	empty, err := svc.Compare(context.Background(), aggregation.Request{UserID: "u", Start: date(2025, 7, 1), End: date(2025, 7, 10)})
	require.NoError(t, err)
	assert.Nil(t, empty.Growth["revenue"], "growth is undefined when the previous window is empty")
}

func TestCampaignsKeyedBySlug(t *testing.T) {
	rows := []dailymetricdomain.DailyMetric{
		{UserID: "u", Date: date(2025, 9, 1), Campaigns: []dailymetricdomain.Campaign{
			{Name: "Diwali Sale", Spend: 100, Impressions: 1000, Clicks: 50, Sales: 500},
			{ID: "C-2", Name: "Retarget", Spend: 300, Impressions: 0, Clicks: 0, Sales: 0},
		}},
		{UserID: "u", Date: date(2025, 9, 2), Campaigns: []dailymetricdomain.Campaign{
			{Name: "Diwali Sale", Spend: 100, Impressions: 1000, Clicks: 50, Sales: 300},
		}},
	}
	svc := newService(&memorySource{rows: rows})

	out, err := svc.Campaigns(context.Background(), aggregation.Request{UserID: "u", Start: date(2025, 9, 1), End: date(2025, 9, 2)})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "c-2", out[0].Key)
	assert.Equal(t, 0.0, out[0].ROAS)
	assert.Equal(t, 0.0, out[0].CTR)
	assert.Equal(t, 0.0, out[0].CPC)

	assert.Equal(t, "diwali-sale", out[1].Key)
	assert.Equal(t, 2, out[1].Days)
	assert.Equal(t, 4.0, out[1].ROAS)
	assert.Equal(t, 5.0, out[1].CTR)
	assert.Equal(t, 2.0, out[1].CPC)
}
