package whatif

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/application/services/planning"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/events"
)

var (
	// ErrBaselineNotPlannable is returned when the baseline run ended without a usable plan
	ErrBaselineNotPlannable = errors.New("baseline run did not produce a plan")
	ErrScenarioNotFound     = errors.New("scenario not found")
	// ErrInvalidDelta is returned for a delta that is malformed or names an unknown target
	ErrInvalidDelta = errors.New("invalid scenario delta")
)

// Planner is the part of the planning service a scenario needs
type Planner interface {
	GetRun(ctx context.Context, runID string) (*entities.MRPRun, error)
	ListSuggestions(ctx context.Context, runID string) ([]entities.PlannedOrder, error)
	Snapshot(ctx context.Context, run *entities.MRPRun) (*dto.Snapshot, error)
	RunWithSnapshot(ctx context.Context, req planning.RunRequest, snap *dto.Snapshot, scenarioID string) (*dto.PlanResult, error)
	Calendar() *services.Calendar
	DefaultParameter(key entities.PlanningKey) (entities.MRPParameter, bool)
}

// Service re-plans a baseline run in an isolated scenario namespace
type Service struct {
	planner Planner
	plans   repositories.PlanRepository
	events  events.EventStore
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Service)

func WithEventStore(store events.EventStore) Option {
	return func(s *Service) { s.events = store }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(planner Planner, plans repositories.PlanRepository, opts ...Option) *Service {
	s := &Service{
		planner: planner,
		plans:   plans,
		logger:  zap.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("whatif")
	return s
}

// CreateWhatIf copies the baseline snapshot, applies deltas and runs the full pipeline on
// the copy under a new scenario id. Nothing stored for the baseline run is written.
func (s *Service) CreateWhatIf(ctx context.Context, baselineRunID string, deltas entities.ScenarioDeltas) (*entities.WhatIfScenario, error) {
	if err := deltas.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDelta, err)
	}
	baseline, err := s.planner.GetRun(ctx, baselineRunID)
	if err != nil {
		return nil, err
	}
	if !baseline.Status.ProducedPlan() {
		return nil, fmt.Errorf("%w: run %s is %s", ErrBaselineNotPlannable, baseline.ID, baseline.Status)
	}

	snap, err := s.planner.Snapshot(ctx, baseline)
	if err != nil {
		return nil, fmt.Errorf("failed to copy baseline snapshot: %w", err)
	}
	orders, err := s.planner.ListSuggestions(ctx, baseline.ID)
	if err != nil {
		return nil, err
	}
	snap.FirmedOrders = snap.FirmedOrders[:0]
	for _, o := range orders {
		if o.Firmed {
			snap.FirmedOrders = append(snap.FirmedOrders, o.Clone())
		}
	}

	if err := applyParameters(snap, s.planner, deltas.Parameters); err != nil {
		return nil, err
	}
	if err := applyCapacity(snap, s.planner.Calendar(), deltas.Capacity); err != nil {
		return nil, err
	}

	scenarioID := s.newID()
	result, runErr := s.planner.RunWithSnapshot(ctx, planning.RunRequest{
		Horizon: baseline.Horizon,
		Include: baseline.Include,
		RunDate: baseline.RunDate,
	}, snap, scenarioID)
	if result == nil {
		return nil, runErr
	}

	scenario := &entities.WhatIfScenario{
		ID:            scenarioID,
		BaselineRunID: baseline.ID,
		RunID:         result.Run.ID,
		Deltas:        deltas,
		CreatedAt:     s.now(),
	}
	if err := s.plans.SaveScenario(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to save scenario: %w", err)
	}
	s.publish(scenario)

	s.logger.Info("scenario planned",
		zap.String("scenario_id", scenario.ID),
		zap.String("baseline_run_id", baseline.ID),
		zap.String("run_id", scenario.RunID),
		zap.String("status", result.Run.Status.String()),
		zap.Int("parameter_deltas", len(deltas.Parameters)),
		zap.Int("capacity_deltas", len(deltas.Capacity)))
	return scenario, runErr
}

// GetScenario returns a stored scenario
func (s *Service) GetScenario(ctx context.Context, scenarioID string) (*entities.WhatIfScenario, error) {
	scenario, err := s.plans.GetScenario(ctx, scenarioID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, scenarioID)
		}
		return nil, err
	}
	return scenario, nil
}

// applyParameters changes stored parameters in place. A key without one starts from the
// default the baseline planned it with.
func applyParameters(snap *dto.Snapshot, planner Planner, deltas []entities.ParameterDelta) error {
	for _, d := range deltas {
		key := entities.PlanningKey{ItemID: d.ItemID, WarehouseID: d.WarehouseID}
		base, ok := snap.Parameters[key]
		if !ok {
			if _, known := snap.Items[d.ItemID]; !known {
				return fmt.Errorf("%w: parameter delta for unknown item %s", ErrInvalidDelta, d.ItemID)
			}
			if base, ok = planner.DefaultParameter(key); !ok {
				base = entities.MRPParameter{ItemID: d.ItemID, WarehouseID: d.WarehouseID}
			}
		}
		next := d.Apply(base)
		if err := next.Validate(); err != nil {
			return fmt.Errorf("%w: parameter delta for %s: %v", ErrInvalidDelta, key, err)
		}
		snap.Parameters[key] = next
	}
	return nil
}

// applyCapacity sets one bucket when the delta names it, otherwise every bucket of the work center
func applyCapacity(snap *dto.Snapshot, calendar *services.Calendar, deltas []entities.CapacityDelta) error {
	for _, d := range deltas {
		wc, ok := snap.WorkCenters[d.WorkCenterID]
		if !ok {
			return fmt.Errorf("%w: capacity delta for unknown work center %s", ErrInvalidDelta, d.WorkCenterID)
		}
		if d.Bucket != nil {
			snap.Capacity[entities.CellKey{WorkCenterID: d.WorkCenterID, Bucket: calendar.BucketStart(*d.Bucket)}] = d.AvailableHours
			continue
		}
		wc.BucketHours = d.AvailableHours
		snap.WorkCenters[d.WorkCenterID] = wc
		for key := range snap.Capacity {
			if key.WorkCenterID == d.WorkCenterID {
				snap.Capacity[key] = d.AvailableHours
			}
		}
	}
	return nil
}

func (s *Service) publish(scenario *entities.WhatIfScenario) {
	if s.events == nil {
		return
	}
	ev := events.NewEvent(events.ScenarioCreatedEvent, scenario.ID, events.ScenarioCreated{
		ScenarioID:    scenario.ID,
		BaselineRunID: scenario.BaselineRunID,
		RunID:         scenario.RunID,
	}, s.now())
	if err := s.events.AppendEvent(scenario.ID, ev); err != nil {
		s.logger.Warn("failed to append scenario event", zap.String("scenario_id", scenario.ID), zap.Error(err))
	}
}

// ItemDelta is the change in planned supply of one planning key
type ItemDelta struct {
	ItemID           entities.ItemID      `json:"item_id"`
	WarehouseID      entities.WarehouseID `json:"warehouse_id"`
	BaselineOrders   int                  `json:"baseline_orders"`
	ScenarioOrders   int                  `json:"scenario_orders"`
	BaselineQuantity entities.Quantity    `json:"baseline_quantity"`
	ScenarioQuantity entities.Quantity    `json:"scenario_quantity"`
}

// Comparison sets a scenario run against its baseline
type Comparison struct {
	Scenario entities.WhatIfScenario `json:"scenario"`
	Baseline entities.MRPRun         `json:"baseline"`
	Run      entities.MRPRun         `json:"run"`
	Changed  []ItemDelta             `json:"changed"`
}

// Compare lists the planning keys whose planned orders differ between baseline and scenario
func (s *Service) Compare(ctx context.Context, scenarioID string) (*Comparison, error) {
	scenario, err := s.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	baseline, err := s.planner.GetRun(ctx, scenario.BaselineRunID)
	if err != nil {
		return nil, err
	}
	run, err := s.planner.GetRun(ctx, scenario.RunID)
	if err != nil {
		return nil, err
	}
	before, err := s.planner.ListSuggestions(ctx, baseline.ID)
	if err != nil {
		return nil, err
	}
	after, err := s.planner.ListSuggestions(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	byKey := make(map[entities.PlanningKey]*ItemDelta)
	at := func(k entities.PlanningKey) *ItemDelta {
		d, ok := byKey[k]
		if !ok {
			d = &ItemDelta{ItemID: k.ItemID, WarehouseID: k.WarehouseID}
			byKey[k] = d
		}
		return d
	}
	for _, o := range before {
		d := at(o.Key())
		d.BaselineOrders++
		d.BaselineQuantity += o.Quantity
	}
	for _, o := range after {
		d := at(o.Key())
		d.ScenarioOrders++
		d.ScenarioQuantity += o.Quantity
	}

	out := &Comparison{Scenario: *scenario, Baseline: *baseline, Run: *run, Changed: []ItemDelta{}}
	for _, d := range byKey {
		if d.BaselineOrders != d.ScenarioOrders || d.BaselineQuantity != d.ScenarioQuantity {
			out.Changed = append(out.Changed, *d)
		}
	}
	sort.Slice(out.Changed, func(i, j int) bool {
		if out.Changed[i].ItemID != out.Changed[j].ItemID {
			return out.Changed[i].ItemID < out.Changed[j].ItemID
		}
		return out.Changed[i].WarehouseID < out.Changed[j].WarehouseID
	})
	return out, nil
}
