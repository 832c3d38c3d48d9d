package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

// PlanRepository keeps run output in memory. Every read returns copies so callers can
// never reach a frozen run's records.
type PlanRepository struct {
	mu         sync.RWMutex
	runs       map[string]entities.MRPRun
	runOrder   []string
	orders     map[string][]entities.PlannedOrder
	exceptions map[string][]entities.PlanningException
	capacity   map[string][]entities.ResourceCapacity
	scenarios  map[string]entities.WhatIfScenario
}

// NewPlanRepository creates an empty in-memory plan repository
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{
		runs:       make(map[string]entities.MRPRun),
		orders:     make(map[string][]entities.PlannedOrder),
		exceptions: make(map[string][]entities.PlanningException),
		capacity:   make(map[string][]entities.ResourceCapacity),
		scenarios:  make(map[string]entities.WhatIfScenario),
	}
}

// Verify interface compliance
var _ repositories.PlanRepository = (*PlanRepository)(nil)

// CreateRun stores a new run
func (r *PlanRepository) CreateRun(_ context.Context, run *entities.MRPRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	r.runs[run.ID] = run.Clone()
	r.runOrder = append(r.runOrder, run.ID)
	return nil
}

// UpdateRun replaces a run that has not yet reached a terminal status
func (r *PlanRepository) UpdateRun(_ context.Context, run *entities.MRPRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := r.writableRun(run.ID)
	if err != nil {
		return err
	}
	if stored.Status != run.Status && !stored.Status.CanTransition(run.Status) {
		return fmt.Errorf("%w: run %s %s -> %s", entities.ErrInvalidTransition, run.ID, stored.Status, run.Status)
	}
	r.runs[run.ID] = run.Clone()
	return nil
}

// GetRun returns a copy of the run
func (r *PlanRepository) GetRun(_ context.Context, runID string) (*entities.MRPRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, repositories.ErrNotFound)
	}
	out := run.Clone()
	return &out, nil
}

// ListRuns returns copies of all runs in creation order
func (r *PlanRepository) ListRuns(_ context.Context) ([]*entities.MRPRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.MRPRun, 0, len(r.runOrder))
	for _, id := range r.runOrder {
		run := r.runs[id].Clone()
		out = append(out, &run)
	}
	return out, nil
}

// SavePlannedOrders appends orders to a run in progress
func (r *PlanRepository) SavePlannedOrders(_ context.Context, runID string, orders []entities.PlannedOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.writableRun(runID); err != nil {
		return err
	}
	for _, o := range orders {
		r.orders[runID] = append(r.orders[runID], o.Clone())
	}
	return nil
}

// ListPlannedOrders returns copies of a run's planned orders
func (r *PlanRepository) ListPlannedOrders(_ context.Context, runID string) ([]entities.PlannedOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.runs[runID]; !ok {
		return nil, fmt.Errorf("run %s: %w", runID, repositories.ErrNotFound)
	}
	out := make([]entities.PlannedOrder, 0, len(r.orders[runID]))
	for _, o := range r.orders[runID] {
		out = append(out, o.Clone())
	}
	return out, nil
}

// SaveExceptions appends exceptions to a run in progress
func (r *PlanRepository) SaveExceptions(_ context.Context, runID string, exceptions []entities.PlanningException) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.writableRun(runID); err != nil {
		return err
	}
	r.exceptions[runID] = append(r.exceptions[runID], exceptions...)
	return nil
}

// ListExceptions returns copies of a run's exceptions
func (r *PlanRepository) ListExceptions(_ context.Context, runID string) ([]entities.PlanningException, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.runs[runID]; !ok {
		return nil, fmt.Errorf("run %s: %w", runID, repositories.ErrNotFound)
	}
	return append([]entities.PlanningException(nil), r.exceptions[runID]...), nil
}

// SaveCapacity stores the capacity ledger of a run in progress
func (r *PlanRepository) SaveCapacity(_ context.Context, runID string, cells []entities.ResourceCapacity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.writableRun(runID); err != nil {
		return err
	}
	r.capacity[runID] = append(r.capacity[runID], cells...)
	return nil
}

// ListCapacity returns a run's capacity ledger ordered by work center and bucket
func (r *PlanRepository) ListCapacity(_ context.Context, runID string) ([]entities.ResourceCapacity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.runs[runID]; !ok {
		return nil, fmt.Errorf("run %s: %w", runID, repositories.ErrNotFound)
	}
	out := append([]entities.ResourceCapacity(nil), r.capacity[runID]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkCenterID != out[j].WorkCenterID {
			return out[i].WorkCenterID < out[j].WorkCenterID
		}
		return out[i].Bucket.Before(out[j].Bucket)
	})
	return out, nil
}

// SaveScenario stores a what-if scenario
func (r *PlanRepository) SaveScenario(_ context.Context, scenario *entities.WhatIfScenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.scenarios[scenario.ID]; exists {
		return fmt.Errorf("scenario %s already exists", scenario.ID)
	}
	r.scenarios[scenario.ID] = *scenario
	return nil
}

// GetScenario returns a stored scenario
func (r *PlanRepository) GetScenario(_ context.Context, scenarioID string) (*entities.WhatIfScenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[scenarioID]
	if !ok {
		return nil, fmt.Errorf("scenario %s: %w", scenarioID, repositories.ErrNotFound)
	}
	return &s, nil
}

// writableRun must be called with the write lock held
func (r *PlanRepository) writableRun(runID string) (entities.MRPRun, error) {
	run, ok := r.runs[runID]
	if !ok {
		return run, fmt.Errorf("run %s: %w", runID, repositories.ErrNotFound)
	}
	if run.Status.IsTerminal() {
		return run, fmt.Errorf("run %s is %s: %w", runID, run.Status, repositories.ErrRunFrozen)
	}
	return run, nil
}
