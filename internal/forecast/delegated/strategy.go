package delegated

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	"github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"go.uber.org/zap"
)

const maxInsights = 6

const systemPrompt = `You are a forecasting assistant for a small online business.
You receive JSON with the most recent window ("basis"), the window before it ("prior"),
their growth factors ("trend") and recent daily history.
Project the next periods of the requested length.
Answer with a single JSON object and nothing else:
{"periods":[{"revenue":0,"orders":0,"adSpend":0,"profit":0}],
 "insights":[{"type":"positive|warning|info","metric":"","message":"","recommendation":""}]}
"periods" must contain exactly the requested number of entries, in order.`

// Completer is the chat capability the strategy depends on.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Strategy asks the external reasoning service for a projection.
type Strategy struct {
	client Completer
	log    *zap.Logger
}

func NewStrategy(client *Client, log *zap.Logger) *Strategy {
	s := &Strategy{log: log.Named("delegated.strategy")}
	if client != nil {
		s.client = client
	}
	return s
}

func (*Strategy) Name() domain.StrategyName { return domain.StrategyDelegated }

// Enabled reports whether a client is configured.
func (s *Strategy) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *Strategy) Project(ctx context.Context, in domain.Input) domain.Outcome {
	if !s.Enabled() {
		return domain.Unavailable(domain.ErrDelegatedDisabled)
	}

	prompt, err := buildPrompt(in)
	if err != nil {
		return domain.Unavailable(err)
	}
	content, err := s.client.Complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			err = fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return domain.Unavailable(err)
	}

	projection, err := parseProjection(content, in.Horizon.Periods)
	if err != nil {
		return domain.Unavailable(err)
	}
	return domain.Ok(domain.StrategyDelegated, projection)
}

type promptHistoryRow struct {
	Date      string  `json:"date"`
	Revenue   float64 `json:"revenue"`
	AdSpend   float64 `json:"adSpend"`
	Orders    int64   `json:"orders"`
	NetProfit float64 `json:"netProfit"`
}

type promptPayload struct {
	Horizon    string                       `json:"horizon"`
	Periods    int                          `json:"periods"`
	PeriodDays int                          `json:"periodDays"`
	AsOf       string                       `json:"asOf"`
	Basis      aggregation.AggregateSummary `json:"basis"`
	Prior      aggregation.AggregateSummary `json:"prior"`
	Trend      domain.GrowthFactors         `json:"trend"`
	History    []promptHistoryRow           `json:"history"`
}

func buildPrompt(in domain.Input) (string, error) {
	history := make([]promptHistoryRow, 0, len(in.History))
	for _, row := range in.History {
		history = append(history, promptHistoryRow{
			Date:      row.Date.UTC().Format(time.DateOnly),
			Revenue:   row.Revenue,
			AdSpend:   row.AdSpend,
			Orders:    row.TotalOrders,
			NetProfit: row.Revenue - row.AdSpend - row.COGS - row.ShippingCost,
		})
	}
	payload, err := json.Marshal(promptPayload{
		Horizon:    in.Horizon.Key(),
		Periods:    in.Horizon.Periods,
		PeriodDays: in.Horizon.PeriodDays(),
		AsOf:       in.AsOf.UTC().Format(time.DateOnly),
		Basis:      in.Basis,
		Prior:      in.Prior,
		Trend:      in.Trend,
		History:    history,
	})
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}
	return string(payload), nil
}

type rawPeriod struct {
	Revenue *float64 `json:"revenue"`
	Orders  *float64 `json:"orders"`
	AdSpend *float64 `json:"adSpend"`
	Profit  *float64 `json:"profit"`
}

type rawProjection struct {
	Periods  []rawPeriod      `json:"periods"`
	Insights []domain.Insight `json:"insights"`
}

func parseProjection(content string, periods int) (domain.Projection, error) {
	body := extractJSON(content)
	if body == "" {
		return domain.Projection{}, fmt.Errorf("%w: no json object", domain.ErrMalformedResponse)
	}

	var raw rawProjection
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return domain.Projection{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if len(raw.Periods) != periods {
		return domain.Projection{}, fmt.Errorf("%w: expected %d periods, got %d", domain.ErrMalformedResponse, periods, len(raw.Periods))
	}

	out := domain.Projection{Periods: make([]domain.PeriodValues, 0, periods)}
	for i, p := range raw.Periods {
		values := []*float64{p.Revenue, p.Orders, p.AdSpend, p.Profit}
		for _, v := range values {
			if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
				return domain.Projection{}, fmt.Errorf("%w: period %d has a missing or non-finite value", domain.ErrMalformedResponse, i+1)
			}
		}
		out.Periods = append(out.Periods, domain.PeriodValues{
			Revenue: *p.Revenue,
			Orders:  *p.Orders,
			AdSpend: *p.AdSpend,
			Profit:  *p.Profit,
		})
	}

	for _, insight := range raw.Insights {
		if !insight.Type.Valid() || strings.TrimSpace(insight.Message) == "" {
			continue
		}
		out.Insights = append(out.Insights, insight)
		if len(out.Insights) == maxInsights {
			break
		}
	}
	return out, nil
}

// extractJSON returns the outermost JSON object in s, tolerating markdown
// code fences around it.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
