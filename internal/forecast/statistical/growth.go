package statistical

import (
	"math"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	"github.com/smallbiznis/pulseboard/internal/forecast/domain"
)

// GrowthFactor is 1 + (current-prior)/prior. A non-positive prior means the
// growth is undefined and no growth is assumed. The result is never
// negative.
func GrowthFactor(current, prior float64) float64 {
	if prior <= 0 || math.IsNaN(prior) || math.IsInf(prior, 0) {
		return 1
	}
	g := 1 + (current-prior)/prior
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return 1
	}
	if g < 0 {
		return 0
	}
	return g
}

// Trend computes per-metric growth factors of basis over prior.
func Trend(basis, prior aggregation.AggregateSummary) domain.GrowthFactors {
	return domain.GrowthFactors{
		Revenue: GrowthFactor(basis.Revenue, prior.Revenue),
		Orders:  GrowthFactor(float64(basis.TotalOrders), float64(prior.TotalOrders)),
		AdSpend: GrowthFactor(basis.AdSpend, prior.AdSpend),
		Profit:  GrowthFactor(basis.NetProfit, prior.NetProfit),
	}
}

// GrowthPercent converts factors to percentages rounded to 2 decimals.
func GrowthPercent(g domain.GrowthFactors) domain.Growth {
	return domain.Growth{
		Revenue: factorToPercent(g.Revenue),
		Orders:  factorToPercent(g.Orders),
		AdSpend: factorToPercent(g.AdSpend),
		Profit:  factorToPercent(g.Profit),
	}
}

func factorToPercent(g float64) float64 {
	return math.Round((g-1)*100*100) / 100
}

// Project compounds the basis by g for n = 1..periods.
func Project(basis aggregation.AggregateSummary, g domain.GrowthFactors, periods int) []domain.PeriodValues {
	out := make([]domain.PeriodValues, 0, periods)
	for n := 1; n <= periods; n++ {
		exp := float64(n)
		out = append(out, domain.PeriodValues{
			Revenue: basis.Revenue * math.Pow(g.Revenue, exp),
			Orders:  float64(basis.TotalOrders) * math.Pow(g.Orders, exp),
			AdSpend: basis.AdSpend * math.Pow(g.AdSpend, exp),
			Profit:  basis.NetProfit * math.Pow(g.Profit, exp),
		})
	}
	return out
}
