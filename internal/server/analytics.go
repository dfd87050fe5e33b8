package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	aggregationdomain "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	"github.com/smallbiznis/pulseboard/internal/clock"
	forecastdomain "github.com/smallbiznis/pulseboard/internal/forecast/domain"
)

// defaultRangeDays is used by dashboard endpoints when no range is given.
const defaultRangeDays = 30

func (s *Server) analyticsRequest(c *gin.Context) (aggregationdomain.Request, error) {
	start, end, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		return aggregationdomain.Request{}, err
	}
	return aggregationdomain.Request{UserID: userIDFromContext(c), Start: start, End: end}, nil
}

// dashboardRequest behaves like analyticsRequest but falls back to the
// last defaultRangeDays complete days when both bounds are omitted.
func (s *Server) dashboardRequest(c *gin.Context) (aggregationdomain.Request, error) {
	if strings.TrimSpace(c.Query("start")) == "" && strings.TrimSpace(c.Query("end")) == "" {
		end := clock.Yesterday(s.clock)
		return aggregationdomain.Request{
			UserID: userIDFromContext(c),
			Start:  end.AddDate(0, 0, -(defaultRangeDays - 1)),
			End:    end,
		}, nil
	}
	return s.analyticsRequest(c)
}

func (s *Server) GetAggregate(c *gin.Context) {
	req, err := s.analyticsRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	summary, err := s.analyticsSvc.Aggregate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) GetSeries(c *gin.Context) {
	req, err := s.analyticsRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	granularity, err := aggregationdomain.ParseGranularity(strings.ToLower(strings.TrimSpace(c.Query("granularity"))))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	points, err := s.analyticsSvc.Series(c.Request.Context(), aggregationdomain.SeriesRequest{
		Request:     req,
		Granularity: granularity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": points, "granularity": granularity})
}

func (s *Server) GetComparison(c *gin.Context) {
	req, err := s.analyticsRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	comparison, err := s.analyticsSvc.Compare(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": comparison})
}

func (s *Server) GetCampaigns(c *gin.Context) {
	req, err := s.analyticsRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	campaigns, err := s.analyticsSvc.Campaigns(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": campaigns})
}

func (s *Server) forecastRequest(c *gin.Context) (forecastdomain.Request, error) {
	cfg := s.forecastCfg.Get()

	monthsRaw := c.Query("months")
	months, err := parseOptionalInt("months", monthsRaw)
	if err != nil {
		return forecastdomain.Request{}, err
	}
	if strings.TrimSpace(monthsRaw) != "" && months <= 0 {
		return forecastdomain.Request{}, forecastdomain.ErrInvalidMonths
	}

	horizon, err := forecastdomain.ParseHorizon(c.Query("horizon"), months, cfg.DefaultMonthlyPeriods, cfg.MaxMonthlyPeriods)
	if err != nil {
		return forecastdomain.Request{}, err
	}
	c.Set("forecast_horizon", horizon.Key())

	asOf, err := parseOptionalDate("as_of", c.Query("as_of"))
	if err != nil {
		return forecastdomain.Request{}, err
	}

	return forecastdomain.Request{
		UserID:  userIDFromContext(c),
		Horizon: horizon,
		AsOf:    asOf,
	}, nil
}

func (s *Server) GetForecast(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) InvalidateOwnForecasts(c *gin.Context) {
	userID := userIDFromContext(c)
	if err := s.forecastSvc.Invalidate(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "userId": userID})
}

func (s *Server) InvalidateUserForecasts(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	if err := s.forecastSvc.Invalidate(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "userId": userID})
}

func setCacheHeaders(c *gin.Context, result forecastdomain.ForecastResult, now time.Time) {
	if result.FromCache {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	if !result.ExpiresAt.IsZero() {
		c.Header("Expires", result.ExpiresAt.UTC().Format(http.TimeFormat))
		if ttl := result.ExpiresAt.Sub(now); ttl > 0 {
			c.Header("Cache-Control", "private, max-age="+strconv.Itoa(int(ttl.Seconds())))
		}
	}
}
