package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pulseboard/internal/clock"
	"github.com/smallbiznis/pulseboard/internal/dailymetric/repository"
	dailymetricservice "github.com/smallbiznis/pulseboard/internal/dailymetric/service"
	"github.com/smallbiznis/pulseboard/internal/migration"
	"github.com/smallbiznis/pulseboard/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDemoRowsAreDeterministic(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	a := DemoRows(start, 14)
	b := DemoRows(start, 14)

	require.Len(t, a, 14)
	assert.Equal(t, a, b)
	for i, row := range a {
		assert.True(t, row.Date.Equal(start.AddDate(0, 0, i)))
		assert.Positive(t, row.Revenue)
		assert.Equal(t, row.TotalOrders, row.NewCustomers+row.ReturningCustomers)
		assert.Len(t, row.Campaigns, 2)
	}
	// 2025-07-05 is a Saturday.
	assert.Greater(t, a[4].Revenue, a[3].Revenue*1.2)
}

func TestEnsureDemoDataOnce(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC))
	svc := dailymetricservice.New(dailymetricservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
	ctx := context.Background()

	seeded, err := EnsureDemoData(ctx, svc, clk, "demo")
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = EnsureDemoData(ctx, svc, clk, "demo")
	require.NoError(t, err)
	assert.False(t, seeded)

	end := clock.Yesterday(clk)
	rows, err := svc.FindByUserAndRange(ctx, "demo", end.AddDate(0, 0, -(DemoDays-1)), end)
	require.NoError(t, err)
	assert.Len(t, rows, DemoDays)
	for _, row := range rows {
		assert.Equal(t, "seed", row.Source)
	}

}
