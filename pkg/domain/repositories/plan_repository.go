package repositories

import (
	"context"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// PlanRepository is the sink for run output. Orders, exceptions and capacity of a
// run are written while it is in progress; once the run is terminal every write
// for it fails with ErrRunFrozen.
type PlanRepository interface {
	CreateRun(ctx context.Context, run *entities.MRPRun) error
	UpdateRun(ctx context.Context, run *entities.MRPRun) error
	GetRun(ctx context.Context, runID string) (*entities.MRPRun, error)
	ListRuns(ctx context.Context) ([]*entities.MRPRun, error)

	SavePlannedOrders(ctx context.Context, runID string, orders []entities.PlannedOrder) error
	ListPlannedOrders(ctx context.Context, runID string) ([]entities.PlannedOrder, error)

	SaveExceptions(ctx context.Context, runID string, exceptions []entities.PlanningException) error
	ListExceptions(ctx context.Context, runID string) ([]entities.PlanningException, error)

	SaveCapacity(ctx context.Context, runID string, cells []entities.ResourceCapacity) error
	ListCapacity(ctx context.Context, runID string) ([]entities.ResourceCapacity, error)

	SaveScenario(ctx context.Context, scenario *entities.WhatIfScenario) error
	GetScenario(ctx context.Context, scenarioID string) (*entities.WhatIfScenario, error)
}
