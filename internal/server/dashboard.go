package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	aggregationdomain "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	forecastdomain "github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"github.com/smallbiznis/pulseboard/internal/observability/logger"
	"github.com/smallbiznis/pulseboard/internal/presentation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (s *Server) formatter(c *gin.Context) (*presentation.Formatter, error) {
	locale := strings.TrimSpace(c.Query("locale"))
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}
	currency := strings.TrimSpace(c.Query("currency"))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	return presentation.NewFormatter(locale, currency)
}

func (s *Server) GetDashboardSummary(c *gin.Context) {
	f, err := s.formatter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req, err := s.dashboardRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var (
		summary   aggregationdomain.AggregateSummary
		points    []aggregationdomain.SeriesPoint
		campaigns []aggregationdomain.CampaignSummary
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		summary, err = s.analyticsSvc.Aggregate(ctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		points, err = s.analyticsSvc.Series(ctx, aggregationdomain.SeriesRequest{
			Request:     req,
			Granularity: aggregationdomain.GranularityDay,
		})
		return err
	})
	g.Go(func() error {
		var err error
		campaigns, err = s.analyticsSvc.Campaigns(ctx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"summary":   f.Summary(summary),
		"chart":     f.Series(points),
		"campaigns": f.Campaigns(campaigns),
	}})
}

func (s *Server) GetDashboardForecast(c *gin.Context) {
	f, err := s.formatter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req, err := s.forecastRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	result, err := s.forecastSvc.Forecast(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	setCacheHeaders(c, result, s.clock.Now())
	c.JSON(http.StatusOK, gin.H{"data": f.Forecast(result)})
}

func (s *Server) GetDashboardReport(c *gin.Context) {
	f, err := s.formatter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req, err := s.dashboardRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ctx := c.Request.Context()

	var in presentation.ReportInput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Summary, err = s.analyticsSvc.Aggregate(gctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		in.Campaigns, err = s.analyticsSvc.Campaigns(gctx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		AbortWithError(c, err)
		return
	}

	// The forecast section is best effort; the report still renders without it.
	cfg := s.forecastCfg.Get()
	result, err := s.forecastSvc.Forecast(ctx, forecastdomain.Request{
		UserID:  req.UserID,
		Horizon: forecastdomain.Monthly(cfg.DefaultMonthlyPeriods),
	})
	if err != nil {
		logger.FromContext(ctx).Warn("report forecast unavailable", zap.Error(err))
	} else {
		in.Forecast = &result
	}

	reader, err := s.reporter.Render(ctx, f, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("pulseboard-%s-%s.pdf", req.Start.Format(dateOnlyLayout), req.End.Format(dateOnlyLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", body)
}
