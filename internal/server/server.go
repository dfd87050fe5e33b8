package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	aggregationdomain "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	assistantdomain "github.com/smallbiznis/pulseboard/internal/assistant/domain"
	"github.com/smallbiznis/pulseboard/internal/authorization"
	"github.com/smallbiznis/pulseboard/internal/clock"
	"github.com/smallbiznis/pulseboard/internal/config"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	forecastdomain "github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"github.com/smallbiznis/pulseboard/internal/observability"
	obsmiddleware "github.com/smallbiznis/pulseboard/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pulseboard/internal/observability/metrics"
	obstracing "github.com/smallbiznis/pulseboard/internal/observability/tracing"
	"github.com/smallbiznis/pulseboard/internal/presentation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	clock        clock.Clock
	authzSvc     authorization.Service
	metricSvc    dailymetricdomain.Service
	analyticsSvc aggregationdomain.Service
	forecastSvc  forecastdomain.Service
	forecastCfg  *config.ForecastConfigHolder
	assistantSvc assistantdomain.Service
	reporter     *presentation.Reporter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Clock        clock.Clock
	AuthzSvc     authorization.Service
	MetricSvc    dailymetricdomain.Service
	AnalyticsSvc aggregationdomain.Service
	ForecastSvc  forecastdomain.Service
	ForecastCfg  *config.ForecastConfigHolder
	AssistantSvc assistantdomain.Service
	Reporter     *presentation.Reporter
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		clock:        p.Clock,
		authzSvc:     p.AuthzSvc,
		metricSvc:    p.MetricSvc,
		analyticsSvc: p.AnalyticsSvc,
		forecastSvc:  p.ForecastSvc,
		forecastCfg:  p.ForecastCfg,
		assistantSvc: p.AssistantSvc,
		reporter:     p.Reporter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.UserContext())

	// -------- Analytics --------
	analytics := api.Group("/analytics", s.authorizeAction(authorization.ObjectAnalytics, authorization.ActionAnalyticsView))
	{
		analytics.GET("/aggregate", s.GetAggregate)
		analytics.GET("/series", s.GetSeries)
		analytics.GET("/compare", s.GetComparison)
		analytics.GET("/campaigns", s.GetCampaigns)
		analytics.GET("/forecast", s.GetForecast)
	}
	api.DELETE("/analytics/forecast/cache",
		s.authorizeAction(authorization.ObjectForecastCache, authorization.ActionForecastCacheInvalidate),
		s.InvalidateOwnForecasts,
	)

	// -------- Daily metrics --------
	api.PUT("/daily-metrics",
		s.authorizeAction(authorization.ObjectDailyMetric, authorization.ActionDailyMetricIngest),
		s.IngestDailyMetrics,
	)

	// -------- Assistant --------
	api.POST("/assistant/ask", s.authorizeAction(authorization.ObjectAnalytics, authorization.ActionAnalyticsView), s.AskAssistant)

	// -------- Dashboard --------
	dashboard := api.Group("/dashboard", s.authorizeAction(authorization.ObjectAnalytics, authorization.ActionAnalyticsView))
	{
		dashboard.GET("/summary", s.GetDashboardSummary)
		dashboard.GET("/forecast", s.GetDashboardForecast)
		dashboard.GET("/report.pdf", s.GetDashboardReport)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AdminRequired())

	admin.DELETE("/users/:userId/daily-metrics",
		s.authorizeAction(authorization.ObjectDailyMetric, authorization.ActionDailyMetricDelete),
		s.DeleteDailyMetrics,
	)
	admin.DELETE("/users/:userId/forecast-cache",
		s.authorizeAction(authorization.ObjectForecastCache, authorization.ActionForecastCacheInvalidateAny),
		s.InvalidateUserForecasts,
	)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
