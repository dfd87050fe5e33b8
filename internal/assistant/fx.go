package assistant

import (
	"github.com/smallbiznis/pulseboard/internal/assistant/service"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	"github.com/smallbiznis/pulseboard/internal/forecast/delegated"
	"go.uber.org/fx"
)

var Module = fx.Module("assistant.service",
	fx.Provide(
		fx.Annotate(
			asCompleter,
			fx.ResultTags(`name:"assistant.chat"`),
		),
	),
	fx.Provide(service.NewSnapshotCache),
	fx.Provide(service.NewService),
	fx.Provide(
		fx.Annotate(
			asInvalidator,
			fx.ResultTags(`group:"dailymetric.invalidators"`),
		),
	),
)

func asCompleter(client *delegated.Client) delegated.Completer {
	if client == nil {
		return nil
	}
	return client
}

func asInvalidator(c *service.SnapshotCache) dailymetricdomain.Invalidator {
	return c
}
