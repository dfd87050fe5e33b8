package statistical

import (
	"fmt"

	"github.com/smallbiznis/pulseboard/internal/forecast/domain"
)

const (
	trendBand       = 0.05
	healthyROAS     = 3.0
	maxRuleInsights = 4
)

// Insights derives rule-based observations from the basis and its trend.
func Insights(in domain.Input) []domain.Insight {
	basis := in.Basis
	if !basis.HasData {
		return []domain.Insight{{
			Type:           domain.InsightInfo,
			Metric:         "revenue",
			Message:        "No sales data in the most recent window.",
			Recommendation: "Import daily metrics to get a meaningful forecast.",
		}}
	}

	g := in.Trend
	var out []domain.Insight

	switch {
	case g.Revenue >= 1+trendBand:
		out = append(out, domain.Insight{
			Type:           domain.InsightPositive,
			Metric:         "revenue",
			Message:        fmt.Sprintf("Revenue grew %.1f%% over the previous period.", (g.Revenue-1)*100),
			Recommendation: "Make sure inventory and fulfilment can keep up with demand.",
		})
	case g.Revenue <= 1-trendBand:
		out = append(out, domain.Insight{
			Type:           domain.InsightWarning,
			Metric:         "revenue",
			Message:        fmt.Sprintf("Revenue fell %.1f%% over the previous period.", (1-g.Revenue)*100),
			Recommendation: "Review the campaigns and products that drove the previous period.",
		})
	default:
		out = append(out, domain.Insight{
			Type:           domain.InsightInfo,
			Metric:         "revenue",
			Message:        "Revenue is stable compared with the previous period.",
			Recommendation: "Test a new channel or offer to find the next growth lever.",
		})
	}

	if basis.AdSpend > 0 {
		switch {
		case basis.ROAS < 1:
			out = append(out, domain.Insight{
				Type:           domain.InsightWarning,
				Metric:         "roas",
				Message:        fmt.Sprintf("Ads return %.2fx, less than they cost.", basis.ROAS),
				Recommendation: "Pause the weakest campaigns and move budget to the best performers.",
			})
		case basis.ROAS >= healthyROAS:
			out = append(out, domain.Insight{
				Type:           domain.InsightPositive,
				Metric:         "roas",
				Message:        fmt.Sprintf("Ads return %.2fx their cost.", basis.ROAS),
				Recommendation: "Consider scaling spend gradually on the campaigns driving this return.",
			})
		}
		if g.AdSpend > g.Revenue+trendBand {
			out = append(out, domain.Insight{
				Type:           domain.InsightWarning,
				Metric:         "adSpend",
				Message:        "Ad spend is growing faster than revenue.",
				Recommendation: "Check whether the extra spend is reaching new customers.",
			})
		}
	}

	if basis.Revenue > 0 && basis.NetProfit < 0 {
		out = append(out, domain.Insight{
			Type:           domain.InsightWarning,
			Metric:         "profit",
			Message:        fmt.Sprintf("Net margin is %.2f%%; the business is losing money on sales.", basis.NetProfitMargin),
			Recommendation: "Revisit pricing, shipping costs and cost of goods.",
		})
	}

	if len(out) > maxRuleInsights {
		out = out[:maxRuleInsights]
	}
	return out
}
