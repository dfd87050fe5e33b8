package presentation

import (
	"fmt"
	"time"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	forecastdomain "github.com/smallbiznis/pulseboard/internal/forecast/domain"
)

type Kind string

const (
	KindMoney   Kind = "money"
	KindRatio   Kind = "ratio"
	KindPercent Kind = "percent"
	KindCount   Kind = "count"
)

// KPI keeps the raw value next to its display string.
type KPI struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Kind      Kind    `json:"kind"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

type SummaryView struct {
	UserID       string `json:"userId"`
	Locale       string `json:"locale"`
	Currency     string `json:"currency"`
	Period       string `json:"period"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	HasData      bool   `json:"hasData"`
	DaysWithData int    `json:"daysWithData"`
	Cards        []KPI  `json:"cards"`
}

type Dataset struct {
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Kind      Kind      `json:"kind"`
	Data      []float64 `json:"data"`
	Formatted []string  `json:"formatted"`
}

type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type GrowthView struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
	Direction string  `json:"direction"`
}

type InsightView struct {
	Type           string `json:"type"`
	TypeLabel      string `json:"typeLabel"`
	Metric         string `json:"metric"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

type ForecastView struct {
	UserID          string        `json:"userId"`
	Locale          string        `json:"locale"`
	Currency        string        `json:"currency"`
	Horizon         string        `json:"horizon"`
	AsOf            string        `json:"asOf"`
	Basis           SummaryView   `json:"basis"`
	Chart           Chart         `json:"chart"`
	Growth          []GrowthView  `json:"growth"`
	Confidence      int           `json:"confidence"`
	ConfidenceLevel string        `json:"confidenceLevel"`
	ConfidenceLabel string        `json:"confidenceLabel"`
	AIGenerated     bool          `json:"aiGenerated"`
	Strategy        string        `json:"strategy"`
	FallbackReason  string        `json:"fallbackReason,omitempty"`
	Insights        []InsightView `json:"insights"`
	ExpiresAt       time.Time     `json:"expiresAt"`
	FromCache       bool          `json:"fromCache"`
}

type CampaignRow struct {
	Key            string  `json:"key"`
	Name           string  `json:"name"`
	Spend          float64 `json:"spend"`
	SpendFormatted string  `json:"spendFormatted"`
	Sales          float64 `json:"sales"`
	SalesFormatted string  `json:"salesFormatted"`
	ROAS           float64 `json:"roas"`
	ROASFormatted  string  `json:"roasFormatted"`
	CTR            string  `json:"ctr"`
	CPC            string  `json:"cpc"`
}

func (f *Formatter) kpi(key, label string, kind Kind, v float64) KPI {
	return KPI{Key: key, Label: label, Kind: kind, Value: v, Formatted: f.format(kind, v)}
}

func (f *Formatter) format(kind Kind, v float64) string {
	switch kind {
	case KindMoney:
		return f.Money(v)
	case KindRatio:
		return f.Ratio(v)
	case KindPercent:
		return f.Percent(v)
	default:
		return f.Count(v)
	}
}

func (f *Formatter) Summary(s aggregation.AggregateSummary) SummaryView {
	return SummaryView{
		UserID:       s.UserID,
		Locale:       f.Locale(),
		Currency:     f.Currency(),
		Period:       f.Range(s.StartDate, s.EndDate),
		StartDate:    s.StartDate.Format(time.DateOnly),
		EndDate:      s.EndDate.Format(time.DateOnly),
		HasData:      s.HasData,
		DaysWithData: s.DaysWithData,
		Cards: []KPI{
			f.kpi("revenue", "Revenue", KindMoney, s.Revenue),
			f.kpi("adSpend", "Ad spend", KindMoney, s.AdSpend),
			f.kpi("netProfit", "Net profit", KindMoney, s.NetProfit),
			f.kpi("grossProfit", "Gross profit", KindMoney, s.GrossProfit),
			f.kpi("totalOrders", "Orders", KindCount, float64(s.TotalOrders)),
			f.kpi("aov", "Average order value", KindMoney, s.AOV),
			f.kpi("roas", "ROAS", KindRatio, s.ROAS),
			f.kpi("poas", "POAS", KindRatio, s.POAS),
			f.kpi("grossProfitMargin", "Gross margin", KindPercent, s.GrossProfitMargin),
			f.kpi("netProfitMargin", "Net margin", KindPercent, s.NetProfitMargin),
			f.kpi("newCustomers", "New customers", KindCount, float64(s.NewCustomers)),
			f.kpi("returningCustomers", "Returning customers", KindCount, float64(s.ReturningCustomers)),
		},
	}
}

func (f *Formatter) dataset(key, label string, kind Kind, data []float64) Dataset {
	formatted := make([]string, len(data))
	for i, v := range data {
		formatted[i] = f.format(kind, v)
	}
	return Dataset{Key: key, Label: label, Kind: kind, Data: data, Formatted: formatted}
}

func (f *Formatter) Series(points []aggregation.SeriesPoint) Chart {
	labels := make([]string, len(points))
	revenue := make([]float64, len(points))
	adSpend := make([]float64, len(points))
	profit := make([]float64, len(points))
	orders := make([]float64, len(points))
	roas := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Period
		revenue[i] = p.Revenue
		adSpend[i] = p.AdSpend
		profit[i] = p.NetProfit
		orders[i] = float64(p.Orders)
		roas[i] = p.ROAS
	}
	return Chart{
		Labels: labels,
		Datasets: []Dataset{
			f.dataset("revenue", "Revenue", KindMoney, revenue),
			f.dataset("adSpend", "Ad spend", KindMoney, adSpend),
			f.dataset("netProfit", "Net profit", KindMoney, profit),
			f.dataset("orders", "Orders", KindCount, orders),
			f.dataset("roas", "ROAS", KindRatio, roas),
		},
	}
}

func (f *Formatter) Forecast(r forecastdomain.ForecastResult) ForecastView {
	n := len(r.Projected)
	labels := make([]string, n)
	revenue := make([]float64, n)
	orders := make([]float64, n)
	adSpend := make([]float64, n)
	profit := make([]float64, n)
	roas := make([]float64, n)
	margin := make([]float64, n)
	for i, p := range r.Projected {
		labels[i] = f.Range(p.StartDate, p.EndDate)
		revenue[i] = p.Revenue
		orders[i] = p.Orders
		adSpend[i] = p.AdSpend
		profit[i] = p.Profit
		roas[i] = p.ROAS
		margin[i] = p.ProfitMargin
	}

	insights := make([]InsightView, 0, len(r.Insights))
	for _, in := range r.Insights {
		insights = append(insights, InsightView{
			Type:           string(in.Type),
			TypeLabel:      f.Title(string(in.Type)),
			Metric:         in.Metric,
			Message:        in.Message,
			Recommendation: in.Recommendation,
		})
	}

	return ForecastView{
		UserID:   r.UserID,
		Locale:   f.Locale(),
		Currency: f.Currency(),
		Horizon:  r.Horizon.Key(),
		AsOf:     r.AsOf.Format(time.DateOnly),
		Basis:    f.Summary(r.Current),
		Chart: Chart{
			Labels: labels,
			Datasets: []Dataset{
				f.dataset("revenue", "Projected revenue", KindMoney, revenue),
				f.dataset("orders", "Projected orders", KindCount, orders),
				f.dataset("adSpend", "Projected ad spend", KindMoney, adSpend),
				f.dataset("profit", "Projected profit", KindMoney, profit),
				f.dataset("roas", "Projected ROAS", KindRatio, roas),
				f.dataset("profitMargin", "Projected margin", KindPercent, margin),
			},
		},
		Growth: []GrowthView{
			f.growth("revenue", "Revenue", r.Growth.Revenue),
			f.growth("orders", "Orders", r.Growth.Orders),
			f.growth("adSpend", "Ad spend", r.Growth.AdSpend),
			f.growth("profit", "Profit", r.Growth.Profit),
		},
		Confidence:      r.Confidence,
		ConfidenceLevel: r.ConfidenceLevel,
		ConfidenceLabel: fmt.Sprintf("%s (%d%%)", f.Title(r.ConfidenceLevel), r.Confidence),
		AIGenerated:     r.AIGenerated,
		Strategy:        string(r.Strategy),
		FallbackReason:  r.FallbackReason,
		Insights:        insights,
		ExpiresAt:       r.ExpiresAt,
		FromCache:       r.FromCache,
	}
}

func (f *Formatter) growth(key, label string, v float64) GrowthView {
	direction := "flat"
	switch {
	case v > 0:
		direction = "up"
	case v < 0:
		direction = "down"
	}
	return GrowthView{Key: key, Label: label, Value: v, Formatted: f.SignedPercent(v), Direction: direction}
}

func (f *Formatter) Campaigns(rows []aggregation.CampaignSummary) []CampaignRow {
	out := make([]CampaignRow, 0, len(rows))
	for _, c := range rows {
		out = append(out, CampaignRow{
			Key:            c.Key,
			Name:           c.Name,
			Spend:          c.Spend,
			SpendFormatted: f.Money(c.Spend),
			Sales:          c.Sales,
			SalesFormatted: f.Money(c.Sales),
			ROAS:           c.ROAS,
			ROASFormatted:  f.Ratio(c.ROAS),
			CTR:            f.Percent(c.CTR),
			CPC:            f.Money(c.CPC),
		})
	}
	return out
}
