package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	aggregationservice "github.com/smallbiznis/pulseboard/internal/aggregation/service"
	assistantservice "github.com/smallbiznis/pulseboard/internal/assistant/service"
	"github.com/smallbiznis/pulseboard/internal/authorization"
	"github.com/smallbiznis/pulseboard/internal/cache"
	"github.com/smallbiznis/pulseboard/internal/clock"
	"github.com/smallbiznis/pulseboard/internal/config"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	"github.com/smallbiznis/pulseboard/internal/dailymetric/repository"
	dailymetricservice "github.com/smallbiznis/pulseboard/internal/dailymetric/service"
	forecastservice "github.com/smallbiznis/pulseboard/internal/forecast/service"
	"github.com/smallbiznis/pulseboard/internal/migration"
	"github.com/smallbiznis/pulseboard/internal/observability"
	"github.com/smallbiznis/pulseboard/internal/presentation"
	"github.com/smallbiznis/pulseboard/internal/providers/pdf"
	"github.com/smallbiznis/pulseboard/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAdminKey = "admin-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC))
	holder := config.NewStaticForecastConfigHolder(config.DefaultForecastConfig())
	cfg := config.Config{
		AdminAPIKey:     testAdminKey,
		DefaultCurrency: "USD",
		DefaultLocale:   "en-US",
	}

	forecastCache := cache.NewMemoryForecastCache(clk)
	metricSvc := dailymetricservice.New(dailymetricservice.Params{
		DB:           conn,
		Log:          log,
		GenID:        node,
		Repo:         repository.Provide(),
		Clock:        clk,
		Invalidators: []dailymetricdomain.Invalidator{forecastCache},
	})
	analyticsSvc := aggregationservice.NewService(aggregationservice.Params{Log: log, Source: metricSvc})
	engine := forecastservice.NewEngine(forecastservice.EngineParams{Log: log, Clock: clk, Config: holder})
	forecastSvc := forecastservice.NewService(forecastservice.Params{
		Log:         log,
		Clock:       clk,
		Config:      holder,
		Aggregation: analyticsSvc,
		Source:      metricSvc,
		Cache:       forecastCache,
		Engine:      engine,
	})
	assistantSvc := assistantservice.NewService(assistantservice.Params{
		Log:         log,
		Clock:       clk,
		AppConfig:   cfg,
		Config:      holder,
		Aggregation: analyticsSvc,
	})

	return NewServer(ServerParams{
		Gin:          NewEngine(observability.Config{Environment: "test"}, nil),
		Cfg:          cfg,
		Clock:        clk,
		AuthzSvc:     authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		MetricSvc:    metricSvc,
		AnalyticsSvc: analyticsSvc,
		ForecastSvc:  forecastSvc,
		ForecastCfg:  holder,
		AssistantSvc: assistantSvc,
		Reporter:     presentation.NewReporter(pdf.New(), clk),
	})
}

func do(t *testing.T, s *Server, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func asUser(id string) map[string]string { return map[string]string{HeaderUserID: id} }

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

// seedSeptember ingests 30 days of September with August as the prior window.
func seedSeptember(t *testing.T, s *Server, userID string) {
	t.Helper()
	var rows []dailyMetricRow
	for d := 1; d <= 31; d++ {
		rows = append(rows, dailyMetricRow{
			Date:        time.Date(2025, 8, d, 0, 0, 0, 0, time.UTC).Format(dateOnlyLayout),
			Revenue:     100,
			AdSpend:     10,
			TotalOrders: 1,
		})
	}
	for d := 1; d <= 30; d++ {
		rows = append(rows, dailyMetricRow{
			Date:        time.Date(2025, 9, d, 0, 0, 0, 0, time.UTC).Format(dateOnlyLayout),
			Revenue:     200,
			AdSpend:     10,
			TotalOrders: 2,
			Campaigns:   []dailymetricdomain.Campaign{{ID: "brand", Name: "Brand", Spend: 10, Sales: 200}},
		})
	}
	rec := do(t, s, http.MethodPut, "/api/daily-metrics", ingestDailyMetricsRequest{Source: "test", Rows: rows}, asUser(userID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealthAndNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestMissingUserIsRejected(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/analytics/aggregate?start=2025-09-01&end=2025-09-30", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "invalid_request", payload.Type)
	assert.Equal(t, "userId", payload.Field)
}

func TestAggregateValidation(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/analytics/aggregate?start=2025-09-30&end=2025-09-01", nil, asUser("u1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "range", decodeError(t, rec).Field)

	rec = do(t, s, http.MethodGet, "/api/analytics/aggregate?start=yesterday&end=2025-09-01", nil, asUser("u1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "start", decodeError(t, rec).Field)

	rec = do(t, s, http.MethodGet, "/api/analytics/series?start=2025-09-01&end=2025-09-30&granularity=hour", nil, asUser("u1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "granularity", decodeError(t, rec).Field)
}

func TestIngestThenAggregate(t *testing.T) {
	s := newTestServer(t)
	seedSeptember(t, s, "u1")

	rec := do(t, s, http.MethodGet, "/api/analytics/aggregate?start=2025-09-01&end=2025-09-30", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Revenue     float64 `json:"revenue"`
			ROAS        float64 `json:"roas"`
			TotalOrders int64   `json:"totalOrders"`
			HasData     bool    `json:"hasData"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 6000, resp.Data.Revenue, 1e-9)
	assert.InDelta(t, 20, resp.Data.ROAS, 1e-9)
	assert.Equal(t, int64(60), resp.Data.TotalOrders)
	assert.True(t, resp.Data.HasData)

	// Another tenant sees nothing.
	rec = do(t, s, http.MethodGet, "/api/analytics/aggregate?start=2025-09-01&end=2025-09-30", nil, asUser("u2"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.HasData)
}

func TestIngestRejectsNegativeValues(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/api/daily-metrics", ingestDailyMetricsRequest{Rows: []dailyMetricRow{
		{Date: "2025-09-01", Revenue: 10},
		{Date: "2025-09-02", Revenue: 10, AdSpend: -1},
	}}, asUser("u1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "rows[1].adSpend", payload.Field)
	assert.Equal(t, "negative_value", payload.Code)

	rec = do(t, s, http.MethodPut, "/api/daily-metrics", ingestDailyMetricsRequest{Rows: []dailyMetricRow{
		{Date: "09/01/2025", Revenue: 10},
	}}, asUser("u1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rows[0].date", decodeError(t, rec).Field)
}

func TestForecastCachedAndInvalidated(t *testing.T) {
	s := newTestServer(t)
	seedSeptember(t, s, "u1")

	rec := do(t, s, http.MethodGet, "/api/analytics/forecast?horizon=monthly&months=2", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	var resp struct {
		Data struct {
			AIGenerated bool   `json:"aiGenerated"`
			Strategy    string `json:"strategy"`
			Projected   []struct {
				Revenue float64 `json:"revenue"`
			} `json:"projected"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.AIGenerated)
	assert.Equal(t, "statistical", resp.Data.Strategy)
	require.Len(t, resp.Data.Projected, 2)
	assert.Greater(t, resp.Data.Projected[1].Revenue, resp.Data.Projected[0].Revenue)

	rec = do(t, s, http.MethodGet, "/api/analytics/forecast?horizon=monthly&months=2", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	rec = do(t, s, http.MethodDelete, "/api/analytics/forecast/cache", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/analytics/forecast?horizon=monthly&months=2", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestForecastValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		query string
		field string
	}{
		{"horizon=yearly", "horizon"},
		{"horizon=monthly&months=13", "months"},
		{"horizon=monthly&months=0", "months"},
		{"horizon=monthly&months=abc", "months"},
		{"as_of=2030-01-01", "as_of"},
		{"as_of=soon", "as_of"},
	}
	for _, tc := range cases {
		rec := do(t, s, http.MethodGet, "/api/analytics/forecast?"+tc.query, nil, asUser("u1"))
		require.Equal(t, http.StatusBadRequest, rec.Code, tc.query)
		assert.Equal(t, tc.field, decodeError(t, rec).Field, tc.query)
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	seedSeptember(t, s, "u1")
	target := "/admin/users/u1/daily-metrics?start=2025-09-01&end=2025-09-30"

	rec := do(t, s, http.MethodDelete, target, nil, asUser("u1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodDelete, target, nil, map[string]string{HeaderAdminKey: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodDelete, target, nil, map[string]string{HeaderAdminKey: testAdminKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Data struct {
			Deleted int64 `json:"deleted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(30), resp.Data.Deleted)

	rec = do(t, s, http.MethodDelete, "/admin/users/u1/forecast-cache", nil, map[string]string{HeaderAdminKey: testAdminKey})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardSummaryIsFormatted(t *testing.T) {
	s := newTestServer(t)
	seedSeptember(t, s, "u1")

	rec := do(t, s, http.MethodGet, "/api/dashboard/summary?start=2025-09-01&end=2025-09-30", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "$6,000.00")
	assert.Contains(t, body, "20.00x")

	rec = do(t, s, http.MethodGet, "/api/dashboard/summary?currency=DOLLARS", nil, asUser("u1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "currency", decodeError(t, rec).Field)
}

func TestDashboardForecastAndReport(t *testing.T) {
	s := newTestServer(t)
	seedSeptember(t, s, "u1")

	rec := do(t, s, http.MethodGet, "/api/dashboard/forecast?horizon=next7Days", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "confidenceLabel")

	rec = do(t, s, http.MethodGet, "/api/dashboard/report.pdf?start=2025-09-01&end=2025-09-30", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "pulseboard-2025-09-01-2025-09-30.pdf")
}

func TestAssistantAsk(t *testing.T) {
	s := newTestServer(t)
	seedSeptember(t, s, "u1")

	rec := do(t, s, http.MethodPost, "/api/assistant/ask", askRequest{Question: "  "}, asUser("u1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "question", decodeError(t, rec).Field)

	rec = do(t, s, http.MethodPost, "/api/assistant/ask", askRequest{Question: "How am I doing?"}, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Data struct {
			Answer      string `json:"answer"`
			AIGenerated bool   `json:"aiGenerated"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.AIGenerated)
	assert.Contains(t, resp.Data.Answer, "$6,000.00")
}

func TestMapErrorFieldMapping(t *testing.T) {
	status, payload := mapError(dailymetricdomain.NewFieldError("rows[0].cogs", dailymetricdomain.ErrNonFiniteValue))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "rows[0].cogs", payload.Field)
	assert.Equal(t, "non_finite_value", payload.Code)

	status, payload = mapError(dailymetricdomain.ErrInvalidUserID)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "userId", payload.Field)

	status, payload = mapError(authorization.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", payload.Type)

	status, _ = mapError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
}
