package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"
	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	"github.com/smallbiznis/pulseboard/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "pulseboard/aggregation"

type Params struct {
	fx.In

	Log    *zap.Logger
	Source aggregation.MetricSource
}

type Service struct {
	log    *zap.Logger
	source aggregation.MetricSource
}

func NewService(p Params) aggregation.Service {
	return &Service{
		log:    p.Log.Named("aggregation.service"),
		source: p.Source,
	}
}

func (s *Service) Aggregate(ctx context.Context, req aggregation.Request) (aggregation.AggregateSummary, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "aggregation.Aggregate")
	userID, start, end, err := validateRequest(req)
	if err != nil {
		tracing.EndSpan(span, err)
		return aggregation.AggregateSummary{}, err
	}

	rows, err := s.source.FindByUserAndRange(ctx, userID, start, end)
	tracing.EndSpan(span, err)
	if err != nil {
		return aggregation.AggregateSummary{}, err
	}
	return aggregation.Summarize(userID, start, end, rows), nil
}

func (s *Service) Series(ctx context.Context, req aggregation.SeriesRequest) ([]aggregation.SeriesPoint, error) {
	userID, start, end, err := validateRequest(req.Request)
	if err != nil {
		return nil, err
	}
	granularity, err := aggregation.ParseGranularity(string(req.Granularity))
	if err != nil {
		return nil, err
	}

	rows, err := s.source.FindByUserAndRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	buckets := bucketize(start, end, granularity)
	points := make([]aggregation.SeriesPoint, 0, len(buckets))
	idx := 0
	for _, b := range buckets {
		var inBucket []dailymetricdomain.DailyMetric
		for idx < len(rows) && !dailymetricdomain.NormalizeDay(rows[idx].Date).After(b.end) {
			inBucket = append(inBucket, rows[idx])
			idx++
		}
		sum := aggregation.Summarize(userID, b.start, b.end, inBucket)
		points = append(points, aggregation.SeriesPoint{
			Period:    b.label,
			StartDate: b.start,
			EndDate:   b.end,
			Revenue:   sum.Revenue,
			AdSpend:   sum.AdSpend,
			NetProfit: sum.NetProfit,
			Orders:    sum.TotalOrders,
			ROAS:      sum.ROAS,
			HasData:   sum.HasData,
		})
	}
	return points, nil
}

func (s *Service) Compare(ctx context.Context, req aggregation.Request) (aggregation.Comparison, error) {
	userID, start, end, err := validateRequest(req)
	if err != nil {
		return aggregation.Comparison{}, err
	}
	prevStart, prevEnd := shiftRange(start, end)

	rows, err := s.source.FindByUserAndRange(ctx, userID, prevStart, end)
	if err != nil {
		return aggregation.Comparison{}, err
	}

	current := aggregation.Summarize(userID, start, end, rows)
	previous := aggregation.Summarize(userID, prevStart, prevEnd, rows)

	return aggregation.Comparison{
		Current:  current,
		Previous: previous,
		Growth: map[string]*float64{
			"revenue":     aggregation.GrowthPercent(current.Revenue, previous.Revenue),
			"adSpend":     aggregation.GrowthPercent(current.AdSpend, previous.AdSpend),
			"netProfit":   aggregation.GrowthPercent(current.NetProfit, previous.NetProfit),
			"totalOrders": aggregation.GrowthPercent(float64(current.TotalOrders), float64(previous.TotalOrders)),
			"roas":        aggregation.GrowthPercent(current.ROAS, previous.ROAS),
			"aov":         aggregation.GrowthPercent(current.AOV, previous.AOV),
		},
	}, nil
}

func (s *Service) Campaigns(ctx context.Context, req aggregation.Request) ([]aggregation.CampaignSummary, error) {
	userID, start, end, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	rows, err := s.source.FindByUserAndRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	byKey := map[string]*aggregation.CampaignSummary{}
	for _, row := range rows {
		for _, c := range row.Campaigns {
			key := campaignKey(c)
			if key == "" {
				continue
			}
			item, ok := byKey[key]
			if !ok {
				item = &aggregation.CampaignSummary{Key: key, ID: strings.TrimSpace(c.ID)}
				byKey[key] = item
			}
			if name := strings.TrimSpace(c.Name); name != "" {
				item.Name = name
			}
			item.Days++
			item.Spend += c.Spend
			item.Impressions += c.Impressions
			item.Clicks += c.Clicks
			item.Sales += c.Sales
		}
	}

	out := make([]aggregation.CampaignSummary, 0, len(byKey))
	for _, item := range byKey {
		item.ROAS = aggregation.RatioFloat(item.Sales, item.Spend)
		item.CTR = aggregation.PercentFloat(float64(item.Clicks), float64(item.Impressions))
		item.CPC = aggregation.RatioFloat(item.Spend, float64(item.Clicks))
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spend != out[j].Spend {
			return out[i].Spend > out[j].Spend
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func validateRequest(req aggregation.Request) (string, time.Time, time.Time, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return "", time.Time{}, time.Time{}, aggregation.ErrInvalidUserID
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return "", time.Time{}, time.Time{}, aggregation.ErrInvalidDate
	}
	start := dailymetricdomain.NormalizeDay(req.Start)
	end := dailymetricdomain.NormalizeDay(req.End)
	if start.After(end) {
		return "", time.Time{}, time.Time{}, aggregation.ErrInvalidRange
	}
	return userID, start, end, nil
}

func campaignKey(c dailymetricdomain.Campaign) string {
	if id := strings.TrimSpace(c.ID); id != "" {
		return slug.Make(id)
	}
	return slug.Make(strings.TrimSpace(c.Name))
}

// shiftRange returns the window of equal length ending the day before start.
func shiftRange(start, end time.Time) (time.Time, time.Time) {
	days := dailymetricdomain.DaySpan(start, end)
	return start.AddDate(0, 0, -days), end.AddDate(0, 0, -days)
}

type bucket struct {
	label string
	start time.Time
	end   time.Time
}

// bucketize splits [start, end] into contiguous periods clipped to the range.
func bucketize(start, end time.Time, granularity aggregation.Granularity) []bucket {
	var out []bucket
	for cursor := start; !cursor.After(end); {
		var next time.Time
		var label string
		switch granularity {
		case aggregation.GranularityWeek:
			periodStart := truncateToWeek(cursor)
			next = periodStart.AddDate(0, 0, 7)
			year, week := periodStart.ISOWeek()
			label = fmt.Sprintf("%d-W%02d", year, week)
		case aggregation.GranularityMonth:
			periodStart := truncateToMonth(cursor)
			next = periodStart.AddDate(0, 1, 0)
			label = periodStart.Format("2006-01")
		default:
			next = cursor.AddDate(0, 0, 1)
			label = cursor.Format("2006-01-02")
		}
		bEnd := next.AddDate(0, 0, -1)
		if bEnd.After(end) {
			bEnd = end
		}
		out = append(out, bucket{label: label, start: cursor, end: bEnd})
		cursor = next
	}
	return out
}

func truncateToWeek(value time.Time) time.Time {
	offset := (int(value.Weekday()) + 6) % 7
	return dailymetricdomain.NormalizeDay(value).AddDate(0, 0, -offset)
}

func truncateToMonth(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), 1, 0, 0, 0, 0, time.UTC)
}
