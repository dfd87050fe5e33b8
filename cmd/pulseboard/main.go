package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pulseboard/internal/aggregation"
	"github.com/smallbiznis/pulseboard/internal/assistant"
	"github.com/smallbiznis/pulseboard/internal/authorization"
	"github.com/smallbiznis/pulseboard/internal/cache"
	"github.com/smallbiznis/pulseboard/internal/clock"
	"github.com/smallbiznis/pulseboard/internal/config"
	"github.com/smallbiznis/pulseboard/internal/dailymetric"
	"github.com/smallbiznis/pulseboard/internal/forecast"
	"github.com/smallbiznis/pulseboard/internal/migration"
	"github.com/smallbiznis/pulseboard/internal/observability"
	"github.com/smallbiznis/pulseboard/internal/presentation"
	"github.com/smallbiznis/pulseboard/internal/providers"
	"github.com/smallbiznis/pulseboard/internal/ratelimit"
	"github.com/smallbiznis/pulseboard/internal/seed"
	"github.com/smallbiznis/pulseboard/internal/server"
	"github.com/smallbiznis/pulseboard/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		cache.Module,
		ratelimit.Module,
		providers.Module,

		// Domains
		dailymetric.Module,
		aggregation.Module,
		forecast.Module,
		assistant.Module,
		presentation.Module,
		authorization.Module,

		seed.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
