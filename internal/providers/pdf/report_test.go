package pdf

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReport(t *testing.T) {
	r, err := New().GenerateReport(context.Background(), ReportData{
		Title:       "Dashboard report",
		Subtitle:    "01 Sep 2025 - 30 Sep 2025",
		GeneratedAt: "2025-10-01",
		KPIs: []ReportKPI{
			{Label: "Revenue", Value: "$4,080,000.00"},
			{Label: "ROAS", Value: "22.67x"},
			{Label: "Orders", Value: "1,200"},
			{Label: "AOV", Value: "$3,400.00"},
		},
		ForecastTitle: "Forecast",
		Periods: []ReportPeriod{
			{Label: "01 Oct - 30 Oct", Revenue: "$17,898,064.52", Orders: "1,200", Profit: "$1.00", ROAS: "22.67x", Margin: "10.00%"},
		},
		Campaigns: []ReportCampaign{{Name: "Diwali", Spend: "$10.00", Sales: "$100.00", ROAS: "10.00x"}},
		Insights:  []ReportInsight{{Type: "Positive", Message: "Revenue grew", Recommendation: "Keep going"}},
	})
	require.NoError(t, err)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestGenerateReportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().GenerateReport(ctx, ReportData{})
	assert.ErrorIs(t, err, context.Canceled)
}
