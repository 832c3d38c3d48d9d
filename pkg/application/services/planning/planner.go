package planning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/application/services/capacity"
	"github.com/vsinha/mrp-aps/pkg/application/services/demand"
	"github.com/vsinha/mrp-aps/pkg/application/services/explosion"
	"github.com/vsinha/mrp-aps/pkg/application/services/lotsizing"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/events"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunNotActive = errors.New("run is not in progress")
)

// Repositories are the read-only inputs and the plan sink of a planner
type Repositories struct {
	Items      repositories.ItemRepository
	BOMs       repositories.BOMRepository
	Inventory  repositories.InventoryRepository
	Demand     repositories.DemandRepository
	Parameters repositories.ParameterRepository
	Capacity   repositories.CapacityRepository
	Plans      repositories.PlanRepository
}

// MetricsRecorder receives every finished run
type MetricsRecorder interface {
	RecordRun(run entities.MRPRun, duration time.Duration, exceptions []entities.PlanningException)
}

// RunRequest asks for one planning run. A zero RunDate means today.
type RunRequest struct {
	Horizon entities.Horizon
	Include entities.DemandInclude
	RunDate time.Time
}

// Planner runs the planning pipeline and answers queries about finished runs
type Planner struct {
	cfg        Config
	repos      Repositories
	calendar   *services.Calendar
	aggregator *demand.Aggregator
	resolver   *lotsizing.Resolver
	explosion  *explosion.Engine
	leveler    *capacity.Leveler

	logger  *zap.Logger
	events  events.EventStore
	metrics MetricsRecorder
	now     func() time.Time
	newID   func() string

	mu            sync.Mutex
	cancels       map[string]context.CancelFunc
	snapshots     map[string]*dto.Snapshot
	snapshotOrder []string
}

type Option func(*Planner)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

func WithEventStore(store events.EventStore) Option {
	return func(p *Planner) { p.events = store }
}

func WithMetrics(m MetricsRecorder) Option {
	return func(p *Planner) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(p *Planner) { p.newID = newID }
}

// NewPlanner creates a planner over repos
func NewPlanner(cfg Config, repos Repositories, opts ...Option) (*Planner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if repos.Plans == nil {
		return nil, fmt.Errorf("plan repository is required")
	}
	calendar, err := services.NewCalendar(cfg.BucketDays)
	if err != nil {
		return nil, err
	}
	rule, err := capacity.RuleByName(cfg.DispatchRule)
	if err != nil {
		return nil, err
	}

	p := &Planner{
		cfg:        cfg,
		repos:      repos,
		calendar:   calendar,
		aggregator: demand.NewAggregator(),
		resolver:   lotsizing.NewResolver(),
		logger:     zap.NewNop(),
		now:        time.Now,
		newID:      uuid.NewString,
		cancels:    make(map[string]context.CancelFunc),
		snapshots:  make(map[string]*dto.Snapshot),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("planner")
	p.explosion = explosion.NewEngine(cfg.Workers, p.logger)
	p.leveler = capacity.NewLeveler(calendar, rule, p.logger)
	return p, nil
}

// Calendar returns the capacity bucket calendar
func (p *Planner) Calendar() *services.Calendar {
	return p.calendar
}

// DefaultParameter returns the parameter planned for a key without a stored one. The second
// result is false under the exception policy, where such keys are not planned.
func (p *Planner) DefaultParameter(key entities.PlanningKey) (entities.MRPParameter, bool) {
	if p.cfg.MissingParameterPolicy == MissingParameterException {
		return entities.MRPParameter{}, false
	}
	param := p.cfg.DefaultParameter
	param.ItemID = key.ItemID
	param.WarehouseID = key.WarehouseID
	return param, true
}

// CreateRun reads a fresh snapshot and runs the whole pipeline. Validation errors return
// before any run is created; a run that fails afterwards is returned together with the error.
func (p *Planner) CreateRun(ctx context.Context, req RunRequest) (*entities.MRPRun, error) {
	result, err := p.Execute(ctx, req)
	if result == nil {
		return nil, err
	}
	return &result.Run, err
}

// Execute is CreateRun returning the full plan result, trace included
func (p *Planner) Execute(ctx context.Context, req RunRequest) (*dto.PlanResult, error) {
	return p.execute(ctx, req, "", func(ctx context.Context, h entities.Horizon) (*dto.Snapshot, error) {
		return p.readSnapshot(ctx, h)
	})
}

// RunWithSnapshot runs the pipeline over a caller-owned snapshot under scenarioID
func (p *Planner) RunWithSnapshot(ctx context.Context, req RunRequest, snap *dto.Snapshot, scenarioID string) (*dto.PlanResult, error) {
	return p.execute(ctx, req, scenarioID, func(context.Context, entities.Horizon) (*dto.Snapshot, error) {
		return snap, nil
	})
}

type snapshotLoader func(ctx context.Context, horizon entities.Horizon) (*dto.Snapshot, error)

func (p *Planner) execute(ctx context.Context, req RunRequest, scenarioID string, load snapshotLoader) (*dto.PlanResult, error) {
	if !req.Include.Any() {
		return nil, demand.ErrNoDemandSources
	}
	now := p.now()
	runDate := req.RunDate
	if runDate.IsZero() {
		runDate = now
	}
	run, err := entities.NewMRPRun(p.newID(), req.Horizon, services.Day(runDate), req.Include, now)
	if err != nil {
		return nil, err
	}
	run.ScenarioID = scenarioID

	if err := p.repos.Plans.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	p.publish(*run, 0)

	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancels[run.ID] = cancel
	p.mu.Unlock()
	defer func() {
		cancel()
		p.mu.Lock()
		delete(p.cancels, run.ID)
		p.mu.Unlock()
	}()

	started := p.now()
	if err := run.Transition(entities.RunInProgress, started); err != nil {
		return nil, err
	}
	if err := p.repos.Plans.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	p.publish(*run, 0)
	p.logger.Info("run started",
		zap.String("run_id", run.ID),
		zap.String("scenario_id", scenarioID),
		zap.Time("horizon_start", run.Horizon.Start),
		zap.Time("horizon_end", run.Horizon.End))

	snap, err := load(runCtx, run.Horizon)
	if err != nil {
		if runCtx.Err() != nil {
			return p.cancelled(ctx, run, started)
		}
		result := &dto.PlanResult{}
		p.finish(ctx, run, result, entities.RunFailed, started, fmt.Sprintf("snapshot read failed: %v", err))
		return result, fmt.Errorf("failed to read planning snapshot: %w", err)
	}
	p.retainSnapshot(run.ID, snap)

	result, err := p.plan(runCtx, run, snap)
	if err != nil {
		if runCtx.Err() != nil {
			return p.cancelled(ctx, run, started)
		}
		result = &dto.PlanResult{}
		p.finish(ctx, run, result, entities.RunFailed, started, err.Error())
		return result, err
	}
	if runCtx.Err() != nil {
		return p.cancelled(ctx, run, started)
	}

	if err := p.persist(ctx, run.ID, result); err != nil {
		failed := &dto.PlanResult{}
		p.finish(ctx, run, failed, entities.RunFailed, started, err.Error())
		return failed, err
	}
	p.finish(ctx, run, result, result.Run.Status, started, result.Run.Message)
	return result, nil
}

// persist writes planned orders last so a run that fails while saving never exposes
// suggestions; its exceptions and capacity may already be stored.
func (p *Planner) persist(ctx context.Context, runID string, result *dto.PlanResult) error {
	if len(result.Exceptions) > 0 {
		if err := p.repos.Plans.SaveExceptions(ctx, runID, result.Exceptions); err != nil {
			return fmt.Errorf("failed to save exceptions: %w", err)
		}
	}
	if len(result.Capacity) > 0 {
		if err := p.repos.Plans.SaveCapacity(ctx, runID, result.Capacity); err != nil {
			return fmt.Errorf("failed to save capacity: %w", err)
		}
	}
	if len(result.Orders) > 0 {
		if err := p.repos.Plans.SavePlannedOrders(ctx, runID, result.Orders); err != nil {
			return fmt.Errorf("failed to save planned orders: %w", err)
		}
	}
	return nil
}

// finish moves run to its terminal status, then publishes and records it
func (p *Planner) finish(ctx context.Context, run *entities.MRPRun, result *dto.PlanResult, status entities.RunStatus, started time.Time, message string) {
	// persistence of the final state must survive a cancelled caller context
	ctx = context.WithoutCancel(ctx)
	completed := p.now()
	run.Totals = result.Run.Totals
	run.Message = message
	if err := run.Transition(status, completed); err != nil {
		p.logger.Error("invalid run transition", zap.String("run_id", run.ID), zap.Error(err))
	}
	if err := p.repos.Plans.UpdateRun(ctx, run); err != nil {
		p.logger.Error("failed to update run", zap.String("run_id", run.ID), zap.Error(err))
	}

	duration := completed.Sub(started)
	result.Run = run.Clone()
	result.Duration = duration
	p.publish(*run, duration)
	if p.metrics != nil {
		p.metrics.RecordRun(*run, duration, result.Exceptions)
	}

	fields := []zap.Field{
		zap.String("run_id", run.ID),
		zap.String("status", run.Status.String()),
		zap.Int("planned_orders", run.Totals.PlannedOrders),
		zap.Int("exceptions", run.Totals.Exceptions),
		zap.Duration("duration", duration),
	}
	if status == entities.RunFailed {
		p.logger.Warn("run failed", append(fields, zap.String("message", message))...)
		return
	}
	p.logger.Info("run finished", fields...)
}

func (p *Planner) cancelled(ctx context.Context, run *entities.MRPRun, started time.Time) (*dto.PlanResult, error) {
	result := &dto.PlanResult{}
	p.finish(ctx, run, result, entities.RunCancelled, started, "cancelled")
	return result, nil
}

// CancelRun asks an in-flight run to stop at its next item boundary
func (p *Planner) CancelRun(runID string) error {
	p.mu.Lock()
	cancel, ok := p.cancels[runID]
	p.mu.Unlock()
	if ok {
		cancel()
		return nil
	}

	if _, err := p.GetRun(context.Background(), runID); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
}

func (p *Planner) publish(run entities.MRPRun, duration time.Duration) {
	if p.events == nil {
		return
	}
	if err := p.events.AppendEvent(run.ID, events.NewRunEvent(run, duration, p.now())); err != nil {
		p.logger.Warn("failed to append run event", zap.String("run_id", run.ID), zap.Error(err))
	}
}
