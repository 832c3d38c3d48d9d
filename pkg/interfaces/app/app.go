// Package app wires configuration, repositories and services into one planning process
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mrp-aps/pkg/application/services/planning"
	"github.com/vsinha/mrp-aps/pkg/application/services/whatif"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/config"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/events"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/metrics"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/repositories/dynamo"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/repositories/memory"
)

// App holds the services of one process
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Collector
	Events   *events.InMemoryEventStore
	Plans    repositories.PlanRepository
	Planner  *planning.Planner
	WhatIf   *whatif.Service
}

// New builds the process. Master data is read from cfg.Storage.DataDir into memory when
// set; run output goes to the configured storage backend.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...planning.Option) (*App, error) {
	planningCfg, err := PlanningConfig(cfg)
	if err != nil {
		return nil, err
	}

	items := memory.NewItemRepository(0)
	boms := memory.NewBOMRepository(0)
	inventory := memory.NewInventoryRepository()
	demand := memory.NewDemandRepository()
	params := memory.NewParameterRepository()
	capacity := memory.NewCapacityRepository()

	if cfg.Storage.DataDir != "" {
		ds, err := csv.NewLoader().LoadDir(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load data from %s: %w", cfg.Storage.DataDir, err)
		}
		if err := ds.Populate(csv.Repositories{
			Items: items, BOMs: boms, Inventory: inventory, Demand: demand, Parameters: params, Capacity: capacity,
		}); err != nil {
			return nil, err
		}
		logger.Info("master data loaded",
			zap.String("dir", cfg.Storage.DataDir),
			zap.Int("items", len(ds.Items)),
			zap.Int("boms", len(ds.BOMs)),
			zap.Int("demands", len(ds.Demands)))
	}

	plans, err := planRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Events:   events.NewInMemoryEventStore(logger),
		Plans:    plans,
	}

	plannerOpts := []planning.Option{planning.WithLogger(logger), planning.WithEventStore(a.Events)}
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewCollector(a.Registry)
		plannerOpts = append(plannerOpts, planning.WithMetrics(a.Metrics))
		if err := a.Events.Subscribe(events.LifecycleEventTypes, a.Metrics); err != nil {
			return nil, fmt.Errorf("failed to subscribe metrics to events: %w", err)
		}
	}
	a.Planner, err = planning.NewPlanner(planningCfg, planning.Repositories{
		Items:      items,
		BOMs:       boms,
		Inventory:  inventory,
		Demand:     demand,
		Parameters: params,
		Capacity:   capacity,
		Plans:      plans,
	}, append(plannerOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create planner: %w", err)
	}
	a.WhatIf = whatif.NewService(a.Planner, plans, whatif.WithLogger(logger), whatif.WithEventStore(a.Events))
	return a, nil
}

func planRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.PlanRepository, error) {
	switch cfg.Storage.Backend {
	case config.BackendDynamoDB:
		client, err := dynamo.NewClientFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create dynamodb client: %w", err)
		}
		tables := dynamo.TablesWithPrefix(cfg.Storage.TablePrefix)
		logger.Info("using dynamodb plan repository", zap.String("runs_table", tables.Runs))
		return dynamo.NewPlanRepository(client, tables), nil
	default:
		return memory.NewPlanRepository(), nil
	}
}

// PlanningConfig converts the file configuration into planner tunables
func PlanningConfig(cfg *config.Config) (planning.Config, error) {
	param, err := cfg.DefaultParameter()
	if err != nil {
		return planning.Config{}, err
	}
	out := planning.DefaultConfig()
	out.BucketDays = cfg.Planning.BucketDays
	out.Workers = cfg.Planning.Workers
	out.DefaultParameter = param
	out.MissingParameterPolicy = cfg.Planning.MissingParameterPolicy
	out.FirmTolerancePercent = decimal.NewFromFloat(cfg.Planning.FirmTolerancePercent)
	out.ExcessThresholdPercent = decimal.NewFromFloat(cfg.Planning.ExcessThresholdPercent)
	out.DispatchRule = cfg.Capacity.DispatchRule
	return out, nil
}
