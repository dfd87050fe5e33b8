package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const kpisPerRow = 3

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) GenerateReport(ctx context.Context, data ReportData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(8, data.Title, props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, data.GeneratedAt, props.Text{Size: 8, Align: align.Right, Top: 4}),
	)
	if data.Subtitle != "" {
		m.AddRow(8, text.NewCol(12, data.Subtitle, props.Text{Size: 10}))
	}
	m.AddRow(4, line.NewCol(12))

	// KPI grid
	for i := 0; i < len(data.KPIs); i += kpisPerRow {
		cols := make([]core.Col, 0, kpisPerRow)
		for j := i; j < i+kpisPerRow; j++ {
			if j >= len(data.KPIs) {
				cols = append(cols, col.New(4))
				continue
			}
			kpi := data.KPIs[j]
			cols = append(cols, col.New(4).Add(
				text.New(kpi.Label, props.Text{Size: 8}),
				text.New(kpi.Value, props.Text{Size: 12, Style: fontstyle.Bold, Top: 4}),
			))
		}
		m.AddRow(14, cols...)
	}

	if len(data.Periods) > 0 {
		m.AddRow(12, text.NewCol(12, data.ForecastTitle, props.Text{Size: 13, Style: fontstyle.Bold, Top: 4}))
		if data.ForecastNote != "" {
			m.AddRow(6, text.NewCol(12, data.ForecastNote, props.Text{Size: 8}))
		}
		m.AddRow(8,
			text.NewCol(3, "Period", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Revenue", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Orders", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Profit", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(1, "ROAS", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Margin", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		for _, period := range data.Periods {
			m.AddRow(7,
				text.NewCol(3, period.Label, props.Text{Size: 9}),
				text.NewCol(2, period.Revenue, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, period.Orders, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, period.Profit, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(1, period.ROAS, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, period.Margin, props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	if len(data.Campaigns) > 0 {
		m.AddRow(12, text.NewCol(12, "Campaigns", props.Text{Size: 13, Style: fontstyle.Bold, Top: 4}))
		m.AddRow(8,
			text.NewCol(6, "Campaign", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Spend", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Sales", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "ROAS", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		for _, c := range data.Campaigns {
			m.AddRow(7,
				text.NewCol(6, c.Name, props.Text{Size: 9}),
				text.NewCol(2, c.Spend, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, c.Sales, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, c.ROAS, props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	if len(data.Insights) > 0 {
		m.AddRow(12, text.NewCol(12, "Insights", props.Text{Size: 13, Style: fontstyle.Bold, Top: 4}))
		for _, insight := range data.Insights {
			m.AddRow(14, col.New(12).Add(
				text.New(insight.Type+": "+insight.Message, props.Text{Size: 9, Style: fontstyle.Bold}),
				text.New(insight.Recommendation, props.Text{Size: 9, Top: 5}),
			))
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
