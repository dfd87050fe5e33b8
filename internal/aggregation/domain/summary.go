package domain

import (
	"time"

	"github.com/shopspring/decimal"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
)

// Summarize sums rows and derives every ratio from the sums. Rows outside
// [start, end] are ignored; missing days contribute zero.
func Summarize(userID string, start, end time.Time, rows []dailymetricdomain.DailyMetric) AggregateSummary {
	start = dailymetricdomain.NormalizeDay(start)
	end = dailymetricdomain.NormalizeDay(end)

	var revenue, adSpend, cogs, shipping decimal.Decimal
	summary := AggregateSummary{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Days:      dailymetricdomain.DaySpan(start, end),
	}

	days := make(map[time.Time]struct{}, len(rows))
	for _, row := range rows {
		d := dailymetricdomain.NormalizeDay(row.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		days[d] = struct{}{}
		revenue = revenue.Add(decimal.NewFromFloat(row.Revenue))
		adSpend = adSpend.Add(decimal.NewFromFloat(row.AdSpend))
		cogs = cogs.Add(decimal.NewFromFloat(row.COGS))
		shipping = shipping.Add(decimal.NewFromFloat(row.ShippingCost))
		summary.TotalOrders += row.TotalOrders
		summary.NewCustomers += row.NewCustomers
		summary.ReturningCustomers += row.ReturningCustomers
	}

	gross := revenue.Sub(cogs)
	net := revenue.Sub(adSpend).Sub(cogs).Sub(shipping)

	summary.DaysWithData = len(days)
	summary.HasData = len(days) > 0
	summary.Revenue = revenue.InexactFloat64()
	summary.AdSpend = adSpend.InexactFloat64()
	summary.COGS = cogs.InexactFloat64()
	summary.ShippingCost = shipping.InexactFloat64()
	summary.GrossProfit = gross.InexactFloat64()
	summary.NetProfit = net.InexactFloat64()

	summary.ROAS = Ratio(revenue, adSpend)
	summary.POAS = Ratio(net, adSpend)
	summary.AOV = Ratio(revenue, decimal.NewFromInt(summary.TotalOrders))
	summary.GrossProfitMargin = Percent(gross, revenue)
	summary.NetProfitMargin = Percent(net, revenue)
	return summary
}

// Ratio divides and rounds to two places; a zero denominator yields 0.
func Ratio(num, den decimal.Decimal) float64 {
	if den.IsZero() {
		return 0
	}
	return num.DivRound(den, 8).Round(2).InexactFloat64()
}

// Percent is Ratio scaled by 100.
func Percent(num, den decimal.Decimal) float64 {
	if den.IsZero() {
		return 0
	}
	return num.Mul(decimal.NewFromInt(100)).DivRound(den, 8).Round(2).InexactFloat64()
}

// RatioFloat is Ratio for float inputs.
func RatioFloat(num, den float64) float64 {
	return Ratio(decimal.NewFromFloat(num), decimal.NewFromFloat(den))
}

// PercentFloat is Percent for float inputs.
func PercentFloat(num, den float64) float64 {
	return Percent(decimal.NewFromFloat(num), decimal.NewFromFloat(den))
}

// GrowthPercent returns (current-previous)/previous*100, or nil when
// previous is zero.
func GrowthPercent(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	v := Percent(decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(previous)), decimal.NewFromFloat(previous).Abs())
	return &v
}
