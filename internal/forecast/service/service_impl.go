package service

import (
	"context"
	"strings"
	"time"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	"github.com/smallbiznis/pulseboard/internal/clock"
	"github.com/smallbiznis/pulseboard/internal/config"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	"github.com/smallbiznis/pulseboard/internal/forecast/domain"
	obsmetrics "github.com/smallbiznis/pulseboard/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultPollInterval = 250 * time.Millisecond

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	Config      *config.ForecastConfigHolder
	Aggregation aggregation.Service
	Source      aggregation.MetricSource
	Cache       domain.ResultCache
	Engine      *Engine
	Locker      domain.Locker       `optional:"true"`
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	clock        clock.Clock
	cfg          *config.ForecastConfigHolder
	aggregation  aggregation.Service
	source       aggregation.MetricSource
	cache        domain.ResultCache
	engine       *Engine
	locker       domain.Locker
	metrics      *obsmetrics.Metrics
	group        singleflight.Group
	pollInterval time.Duration
}

func NewService(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	return &Service{
		log:          p.Log.Named("forecast.service"),
		clock:        p.Clock,
		cfg:          p.Config,
		aggregation:  p.Aggregation,
		source:       p.Source,
		cache:        p.Cache,
		engine:       p.Engine,
		locker:       p.Locker,
		metrics:      p.Metrics,
		pollInterval: defaultPollInterval,
	}
}

type plan struct {
	userID  string
	horizon domain.Horizon
	asOf    time.Time
	basis   domain.Window
	prior   domain.Window
	key     domain.CacheKey
	cfg     config.ForecastConfig
}

func (s *Service) Forecast(ctx context.Context, req domain.Request) (domain.ForecastResult, error) {
	p, err := s.plan(req)
	if err != nil {
		return domain.ForecastResult{}, err
	}

	if cached, ok := s.lookup(ctx, p.key); ok {
		return cached, nil
	}

	// The recompute outlives a cancelled caller so its result still lands
	// in the cache.
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(p.key.String(), func() (interface{}, error) {
		return s.recompute(detached, p)
	})

	select {
	case <-ctx.Done():
		return domain.ForecastResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.ForecastResult{}, res.Err
		}
		return res.Val.(domain.ForecastResult), nil
	}
}

func (s *Service) Invalidate(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		return err
	}
	s.log.Info("forecast cache invalidated", zap.String("user_id", userID))
	return nil
}

func (s *Service) plan(req domain.Request) (plan, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return plan{}, domain.ErrInvalidUserID
	}

	cfg := s.cfg.Get()
	if err := req.Horizon.Validate(cfg.MaxMonthlyPeriods); err != nil {
		return plan{}, err
	}

	yesterday := clock.Yesterday(s.clock)
	asOf := yesterday
	if req.AsOf != nil {
		if req.AsOf.IsZero() {
			return plan{}, domain.ErrInvalidAsOf
		}
		asOf = dailymetricdomain.NormalizeDay(*req.AsOf)
		if asOf.After(yesterday) {
			return plan{}, domain.ErrInvalidAsOf
		}
	}

	days := req.Horizon.PeriodDays()
	basis := domain.Window{Start: asOf.AddDate(0, 0, -(days - 1)), End: asOf}
	prior := domain.Window{Start: basis.Start.AddDate(0, 0, -days), End: basis.Start.AddDate(0, 0, -1)}

	return plan{
		userID:  userID,
		horizon: req.Horizon,
		asOf:    asOf,
		basis:   basis,
		prior:   prior,
		key: domain.CacheKey{
			UserID:     userID,
			Horizon:    req.Horizon.Key(),
			BasisStart: basis.Start,
			BasisEnd:   basis.End,
		},
		cfg: cfg,
	}, nil
}

// lookup reads the cache and records the hit or miss.
func (s *Service) lookup(ctx context.Context, key domain.CacheKey) (domain.ForecastResult, bool) {
	result, ok := s.read(ctx, key)
	s.metrics.RecordCacheLookup(ctx, s.cache.Backend(), ok)
	return result, ok
}

// read returns a cached result only while it is unexpired by the injected
// clock. Expired or unreadable entries count as a miss.
func (s *Service) read(ctx context.Context, key domain.CacheKey) (domain.ForecastResult, bool) {
	result, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("forecast cache read failed", zap.String("key", key.String()), zap.Error(err))
		ok = false
	}
	if ok && result.Expired(s.clock.Now()) {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.Warn("forecast cache delete failed", zap.String("key", key.String()), zap.Error(err))
		}
		ok = false
	}
	if !ok {
		return domain.ForecastResult{}, false
	}
	result.FromCache = true
	return result, true
}

func (s *Service) recompute(ctx context.Context, p plan) (domain.ForecastResult, error) {
	// a caller that finished just before us may already have filled it
	if cached, ok := s.read(ctx, p.key); ok {
		return cached, nil
	}

	if s.locker != nil {
		lockKey := "forecast:" + p.key.String()
		token, acquired, err := s.locker.TryLock(ctx, lockKey, p.cfg.LockTTL)
		switch {
		case err != nil:
			s.log.Warn("forecast lock unavailable, computing without it", zap.Error(err))
		case acquired:
			defer func() {
				if err := s.locker.Release(ctx, lockKey, token); err != nil {
					s.log.Warn("forecast lock release failed", zap.Error(err))
				}
			}()
		default:
			if cached, ok := s.waitForPeer(ctx, p); ok {
				return cached, nil
			}
		}
	}

	in, err := s.load(ctx, p)
	if err != nil {
		return domain.ForecastResult{}, err
	}

	result := s.engine.Run(ctx, in)
	now := s.clock.Now()
	ttl := ttlFor(p.horizon, p.cfg)
	result.CachedAt = now
	result.ExpiresAt = now.Add(ttl)

	if err := s.cache.Set(ctx, p.key, result, ttl); err != nil {
		s.log.Warn("forecast cache write failed", zap.String("key", p.key.String()), zap.Error(err))
	}
	return result, nil
}

// waitForPeer polls the cache while another instance holds the recompute
// lock, giving up once the lock TTL has passed.
func (s *Service) waitForPeer(ctx context.Context, p plan) (domain.ForecastResult, bool) {
	deadline := time.NewTimer(p.cfg.LockTTL)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-deadline.C:
			return domain.ForecastResult{}, false
		case <-ticker.C:
			result, ok, err := s.cache.Get(ctx, p.key)
			if err == nil && ok && !result.Expired(s.clock.Now()) {
				result.FromCache = true
				return result, true
			}
		}
	}
}

func (s *Service) load(ctx context.Context, p plan) (domain.Input, error) {
	in := domain.Input{
		UserID:      p.userID,
		Horizon:     p.horizon,
		AsOf:        p.asOf,
		BasisWindow: p.basis,
		PriorWindow: p.prior,
	}

	historyDays := p.cfg.HistoryDays
	if historyDays <= 0 {
		historyDays = p.basis.Days()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Basis, err = s.aggregation.Aggregate(gctx, aggregation.Request{UserID: p.userID, Start: p.basis.Start, End: p.basis.End})
		return err
	})
	g.Go(func() error {
		var err error
		in.Prior, err = s.aggregation.Aggregate(gctx, aggregation.Request{UserID: p.userID, Start: p.prior.Start, End: p.prior.End})
		return err
	})
	g.Go(func() error {
		var err error
		in.History, err = s.source.FindByUserAndRange(gctx, p.userID, p.asOf.AddDate(0, 0, -(historyDays-1)), p.asOf)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Input{}, err
	}
	return in, nil
}

func ttlFor(h domain.Horizon, cfg config.ForecastConfig) time.Duration {
	if h.Kind == domain.HorizonNext7Days {
		return cfg.Next7DaysTTL
	}
	return cfg.MonthlyTTL
}
