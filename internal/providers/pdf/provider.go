package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

var Module = fx.Module("pdf",
	fx.Provide(New),
)

// Provider renders documents to PDF.
type Provider interface {
	GenerateReport(ctx context.Context, data ReportData) (io.Reader, error)
}

// ReportData is a fully formatted dashboard report; every value is already a
// display string.
type ReportData struct {
	Title       string
	Subtitle    string
	GeneratedAt string

	KPIs []ReportKPI

	ForecastTitle string
	ForecastNote  string
	Periods       []ReportPeriod

	Campaigns []ReportCampaign
	Insights  []ReportInsight
}

type ReportKPI struct {
	Label string
	Value string
}

type ReportPeriod struct {
	Label   string
	Revenue string
	Orders  string
	Profit  string
	ROAS    string
	Margin  string
}

type ReportCampaign struct {
	Name  string
	Spend string
	Sales string
	ROAS  string
}

type ReportInsight struct {
	Type           string
	Message        string
	Recommendation string
}
