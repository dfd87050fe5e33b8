package forecast

import (
	"github.com/smallbiznis/pulseboard/internal/forecast/delegated"
	"github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"github.com/smallbiznis/pulseboard/internal/forecast/service"
	"github.com/smallbiznis/pulseboard/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("forecast.service",
	fx.Provide(delegated.NewClient),
	fx.Provide(
		fx.Annotate(
			newDelegatedStrategy,
			fx.ResultTags(`name:"forecast.delegated"`),
		),
	),
	fx.Provide(asQuota),
	fx.Provide(asLocker),
	fx.Provide(service.NewEngine),
	fx.Provide(service.NewService),
)

// newDelegatedStrategy yields a nil Strategy when no client is configured so
// the engine goes straight to the statistical path.
func newDelegatedStrategy(client *delegated.Client, log *zap.Logger) domain.Strategy {
	if client == nil {
		return nil
	}
	return delegated.NewStrategy(client, log)
}

func asQuota(q *ratelimit.DelegatedQuota) domain.Quota {
	if q == nil {
		return nil
	}
	return q
}

func asLocker(l *ratelimit.Locker) domain.Locker {
	if l == nil {
		return nil
	}
	return l
}
