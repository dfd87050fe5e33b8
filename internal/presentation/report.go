package presentation

import (
	"context"
	"io"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	"github.com/smallbiznis/pulseboard/internal/clock"
	forecastdomain "github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"github.com/smallbiznis/pulseboard/internal/providers/pdf"
)

const maxReportCampaigns = 10

// ReportInput is everything the dashboard report shows. Forecast and
// Campaigns are optional.
type ReportInput struct {
	Summary   aggregation.AggregateSummary
	Forecast  *forecastdomain.ForecastResult
	Campaigns []aggregation.CampaignSummary
}

type Reporter struct {
	provider pdf.Provider
	clock    clock.Clock
}

func NewReporter(provider pdf.Provider, c clock.Clock) *Reporter {
	return &Reporter{provider: provider, clock: c}
}

func (r *Reporter) Render(ctx context.Context, f *Formatter, in ReportInput) (io.Reader, error) {
	return r.provider.GenerateReport(ctx, f.ReportData(in, r.clock))
}

// ReportData formats in for the PDF provider.
func (f *Formatter) ReportData(in ReportInput, c clock.Clock) pdf.ReportData {
	summary := f.Summary(in.Summary)
	data := pdf.ReportData{
		Title:       "Business performance",
		Subtitle:    summary.Period,
		GeneratedAt: "Generated " + f.Date(c.Now()),
	}
	for _, card := range summary.Cards {
		data.KPIs = append(data.KPIs, pdf.ReportKPI{Label: card.Label, Value: card.Formatted})
	}

	campaigns := in.Campaigns
	if len(campaigns) > maxReportCampaigns {
		campaigns = campaigns[:maxReportCampaigns]
	}
	for _, row := range f.Campaigns(campaigns) {
		data.Campaigns = append(data.Campaigns, pdf.ReportCampaign{
			Name:  row.Name,
			Spend: row.SpendFormatted,
			Sales: row.SalesFormatted,
			ROAS:  row.ROASFormatted,
		})
	}

	if in.Forecast == nil {
		return data
	}
	view := f.Forecast(*in.Forecast)
	data.ForecastTitle = "Forecast (" + view.Horizon + ")"
	data.ForecastNote = "Confidence " + view.ConfidenceLabel
	if view.AIGenerated {
		data.ForecastNote += ", AI generated"
	} else {
		data.ForecastNote += ", statistical projection"
	}
	for _, p := range in.Forecast.Projected {
		data.Periods = append(data.Periods, pdf.ReportPeriod{
			Label:   f.Range(p.StartDate, p.EndDate),
			Revenue: f.Money(p.Revenue),
			Orders:  f.Count(p.Orders),
			Profit:  f.Money(p.Profit),
			ROAS:    f.Ratio(p.ROAS),
			Margin:  f.Percent(p.ProfitMargin),
		})
	}
	for _, insight := range view.Insights {
		data.Insights = append(data.Insights, pdf.ReportInsight{
			Type:           insight.TypeLabel,
			Message:        insight.Message,
			Recommendation: insight.Recommendation,
		})
	}
	return data
}
