package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vsinha/mrp-aps/pkg/application/services/planning"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/config"
)

func bicycleConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.DataDir = "../../../data/bicycle"
	return cfg
}

func TestNew_RunsBicycleScenario(t *testing.T) {
	a, err := New(context.Background(), bicycleConfig(), zap.NewNop())
	require.NoError(t, err)

	result, err := a.Planner.Execute(context.Background(), planning.RunRequest{
		Horizon: entities.Horizon{
			Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC),
		},
		Include: entities.DemandInclude{MPS: true, Forecasts: true, SalesOrders: true},
		RunDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, result.Run.Status.ProducedPlan(), "status %s", result.Run.Status)
	assert.NotEmpty(t, result.Orders)

	stored, err := a.Plans.GetRun(context.Background(), result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Run.Status, stored.Status)

	a.Events.Wait()
	evts, err := a.Events.ReadEvents(result.Run.ID, 1)
	require.NoError(t, err)
	assert.Len(t, evts, 3)

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "mrp_runs_total")
	assert.Contains(t, names, "mrp_lifecycle_events_total", "the collector is subscribed to run events")
}

func TestNew_WithoutMetrics(t *testing.T) {
	cfg := bicycleConfig()
	cfg.Metrics.Enabled = false

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, a.Metrics)
	assert.NotNil(t, a.WhatIf)
}

func TestNew_BadDataDir(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()

	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load data from")
}

func TestPlanningConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Planning.BucketDays = 14
	cfg.Planning.Workers = 2
	cfg.Planning.FirmTolerancePercent = 12.5
	cfg.Planning.MissingParameterPolicy = config.PolicyException
	cfg.Planning.DefaultParameter.LeadTimeDays = 3
	cfg.Capacity.DispatchRule = "SPT"

	out, err := PlanningConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 14, out.BucketDays)
	assert.Equal(t, 2, out.Workers)
	assert.Equal(t, "12.5", out.FirmTolerancePercent.String())
	assert.Equal(t, "50", out.ExcessThresholdPercent.String())
	assert.Equal(t, planning.MissingParameterException, out.MissingParameterPolicy)
	assert.Equal(t, 3, out.DefaultParameter.LeadTimeDays)
	assert.Equal(t, entities.LotForLot, out.DefaultParameter.LotSizing.Kind)
	assert.Equal(t, "SPT", out.DispatchRule)
	assert.Equal(t, planning.DefaultConfig().SnapshotRetention, out.SnapshotRetention)
}

func TestPlanningConfig_BadLotSizing(t *testing.T) {
	cfg := config.Default()
	cfg.Planning.DefaultParameter.LotSizing = "NOPE"

	_, err := PlanningConfig(cfg)
	assert.Error(t, err)
}
