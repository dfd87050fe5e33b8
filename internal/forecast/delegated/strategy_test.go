package delegated

import (
	"context"
	"errors"
	"testing"
	"time"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	"github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func testInput(periods int) domain.Input {
	return domain.Input{
		UserID:  "user-a",
		Horizon: domain.Monthly(periods),
		AsOf:    time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC),
		Basis:   aggregation.AggregateSummary{Revenue: 4080000, AdSpend: 180000},
		Prior:   aggregation.AggregateSummary{Revenue: 930000, AdSpend: 150000},
		History: []dailymetricdomain.DailyMetric{
			{Date: time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC), Revenue: 100, AdSpend: 10, COGS: 20, ShippingCost: 5, TotalOrders: 2},
		},
	}
}

func TestStrategyParsesProjection(t *testing.T) {
	m := new(mockCompleter)
	m.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []Message) bool {
		return len(msgs) == 2 && msgs[0].Role == "system" && msgs[1].Role == "user"
	})).Return("```json\n"+`{"periods":[{"revenue":4500000,"orders":900,"adSpend":190000,"profit":800000}],
"insights":[{"type":"positive","metric":"revenue","message":"Strong month","recommendation":"Keep going"},
{"type":"bogus","metric":"x","message":"dropped"}]}`+"\n```", nil)

	s := &Strategy{client: m, log: zap.NewNop()}
	out := s.Project(context.Background(), testInput(1))

	proj, ok := out.Projection()
	require.True(t, ok, "reason: %v", out.Reason())
	assert.Equal(t, domain.StrategyDelegated, out.Strategy())
	require.Len(t, proj.Periods, 1)
	assert.Equal(t, 4500000.0, proj.Periods[0].Revenue)
	require.Len(t, proj.Insights, 1)
	assert.Equal(t, "Strong month", proj.Insights[0].Message)
	m.AssertExpectations(t)
}

func TestStrategyUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		want    error
	}{
		{name: "transport error", err: errors.New("connection refused"), want: domain.ErrUpstreamUnavailable},
		{name: "quota", err: domain.ErrQuotaExceeded, want: domain.ErrQuotaExceeded},
		{name: "not json", content: "I think revenue will go up", want: domain.ErrMalformedResponse},
		{name: "wrong period count", content: `{"periods":[]}`, want: domain.ErrMalformedResponse},
		{name: "missing field", content: `{"periods":[{"revenue":1,"orders":1,"adSpend":1}]}`, want: domain.ErrMalformedResponse},
		{name: "overflow", content: `{"periods":[{"revenue":1e999,"orders":1,"adSpend":1,"profit":1}]}`, want: domain.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockCompleter)
			m.On("Complete", mock.Anything, mock.Anything).Return(tt.content, tt.err)

			s := &Strategy{client: m, log: zap.NewNop()}
			out := s.Project(context.Background(), testInput(1))

			_, ok := out.Projection()
			assert.False(t, ok)
			assert.ErrorIs(t, out.Reason(), tt.want)
			assert.ErrorIs(t, out.Reason(), domain.ErrUpstreamUnavailable)
		})
	}
}

func TestStrategyDisabled(t *testing.T) {
	s := NewStrategy(nil, zap.NewNop())
	assert.False(t, s.Enabled())

	out := s.Project(context.Background(), testInput(1))
	assert.ErrorIs(t, out.Reason(), domain.ErrDelegatedDisabled)
	assert.Equal(t, "delegated_disabled", domain.ReasonCode(out.Reason()))
}

func TestBuildPromptCarriesHistory(t *testing.T) {
	prompt, err := buildPrompt(testInput(3))
	require.NoError(t, err)
	assert.Contains(t, prompt, `"horizon":"monthly:3"`)
	assert.Contains(t, prompt, `"periodDays":30`)
	assert.Contains(t, prompt, `"date":"2025-09-30"`)
	assert.Contains(t, prompt, `"netProfit":65`)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("Here you go: {\"a\":1} thanks"))
	assert.Equal(t, "", extractJSON("nothing"))
}
