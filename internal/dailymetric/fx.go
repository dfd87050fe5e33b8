package dailymetric

import (
	"github.com/smallbiznis/pulseboard/internal/dailymetric/repository"
	"github.com/smallbiznis/pulseboard/internal/dailymetric/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dailymetric.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
