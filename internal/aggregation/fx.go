package aggregation

import (
	"github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	"github.com/smallbiznis/pulseboard/internal/aggregation/service"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("aggregation.service",
	fx.Provide(asMetricSource),
	fx.Provide(service.NewService),
)

func asMetricSource(svc dailymetricdomain.Service) domain.MetricSource {
	return svc
}
