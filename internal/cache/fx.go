package cache

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pulseboard/internal/clock"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	forecastdomain "github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("cache",
	fx.Provide(NewRedisClient),
	fx.Provide(NewForecastCache),
	fx.Provide(
		fx.Annotate(
			asInvalidator,
			fx.ResultTags(`group:"dailymetric.invalidators"`),
		),
	),
)

// NewForecastCache picks Redis when a client is configured and the
// in-process cache otherwise.
func NewForecastCache(client *redis.Client, c clock.Clock, log *zap.Logger) forecastdomain.ResultCache {
	if client != nil {
		log.Named("cache").Info("forecast cache backend", zap.String("backend", BackendRedis))
		return NewRedisForecastCache(client)
	}
	log.Named("cache").Info("forecast cache backend", zap.String("backend", BackendMemory))
	return NewMemoryForecastCache(c)
}

func asInvalidator(c forecastdomain.ResultCache) dailymetricdomain.Invalidator {
	return c
}
