package planning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/application/services/capacity"
	"github.com/vsinha/mrp-aps/pkg/application/services/exceptions"
	"github.com/vsinha/mrp-aps/pkg/application/services/explosion"
	"github.com/vsinha/mrp-aps/pkg/application/services/netting"
	"github.com/vsinha/mrp-aps/pkg/application/services/scheduling"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
)

// plan runs aggregation, explosion, leveling and exception resolution over snap. The
// returned result carries the terminal status in Run.Status; only errors that leave no
// usable outcome (bad demand data, cancellation) are returned as errors.
func (p *Planner) plan(ctx context.Context, run *entities.MRPRun, snap *dto.Snapshot) (*dto.PlanResult, error) {
	independent, err := p.aggregator.Aggregate(ctx, snap.Demands, run.Horizon, run.Include)
	if err != nil {
		return nil, err
	}

	guard := scheduling.NewGuard(run.RunDate, p.cfg.FirmTolerancePercent)
	netter := netting.NewEngine(p.resolver, guard, p.calendar, p.cfg.ExcessThresholdPercent)
	manager := exceptions.NewManager(run.ID)
	result := &dto.PlanResult{}

	exploded, err := p.explosion.Explode(ctx, explosion.Input{
		Snapshot:    snap,
		Horizon:     run.Horizon,
		Independent: independent,
	}, p.itemPlanner(snap, run.Horizon, netter))
	if err != nil {
		var cyclic *services.CyclicBOMError
		if !errors.As(err, &cyclic) {
			return nil, err
		}
		manager.Add(entities.PlanningException{
			Type:     entities.CyclicBOM,
			ItemID:   cyclic.Item,
			Bucket:   services.Day(run.Horizon.Start),
			Quantity: decimal.Zero,
			Message:  cyclic.Error(),
		})
		result.Exceptions = manager.Exceptions()
		result.Run.Status = manager.Resolve()
		result.Run.Message = cyclic.Error()
		result.Run.Totals.Exceptions = manager.Len()
		return result, nil
	}

	proposals := assignOrderIDs(run.ID, exploded.Orders)
	for _, o := range proposals {
		if o.StartDate.Before(guard.RunDate()) {
			manager.Add(guard.LateOrder(o))
		}
	}

	orders := make([]entities.PlannedOrder, 0, len(snap.FirmedOrders)+len(proposals))
	for _, o := range snap.FirmedOrders {
		firmed := o.Clone()
		firmed.RunID = run.ID
		orders = append(orders, firmed)
	}
	orders = append(orders, proposals...)

	leveled, err := p.leveler.Level(ctx, capacity.Input{
		Orders:      orders,
		BOMs:        snap.BOMs,
		WorkCenters: snap.WorkCenters,
		Capacity:    snap.Capacity,
	})
	if err != nil {
		return nil, err
	}

	manager.Add(exploded.Exceptions...)
	manager.Add(leveled.Exceptions...)

	result.Orders = orders
	result.Exceptions = manager.Exceptions()
	result.Capacity = leveled.Cells
	result.NetRequirements = exploded.Net
	result.Trace = exploded.Trace
	result.CriticalPath = exploded.CriticalPath
	result.Run.Status = manager.Resolve()
	result.Run.Totals = totals(result, exploded.Skipped)

	p.logger.Debug("pipeline finished",
		zap.String("run_id", run.ID),
		zap.Int("proposals", len(proposals)),
		zap.Int("firmed", len(snap.FirmedOrders)),
		zap.Int("cells", len(leveled.Cells)),
		zap.Any("exceptions_by_type", manager.CountByType()))
	return result, nil
}

// itemPlanner returns the per-key planning step handed to the explosion engine. It is
// called from several tree workers at once and only reads snap.
func (p *Planner) itemPlanner(snap *dto.Snapshot, horizon entities.Horizon, netter *netting.Engine) explosion.ItemPlanFunc {
	safetyStockDate := services.Day(horizon.Start)
	windowEnd := services.Day(horizon.End)

	return func(ctx context.Context, key entities.PlanningKey, gross []entities.GrossRequirement) (explosion.ItemOutcome, error) {
		if err := ctx.Err(); err != nil {
			return explosion.ItemOutcome{}, err
		}

		param, ok := snap.Parameters[key]
		if !ok {
			if param, ok = p.DefaultParameter(key); !ok {
				return explosion.ItemOutcome{
					Exceptions: []entities.PlanningException{missingParameter(key, gross, safetyStockDate)},
				}, nil
			}
		}

		var receipts []entities.ScheduledReceipt
		for _, r := range snap.Receipts[key] {
			if !services.Day(r.DueDate).After(windowEnd) {
				receipts = append(receipts, r)
			}
		}

		res, err := netter.Net(netting.Input{
			Item:            snap.Items[key.ItemID],
			Parameter:       param,
			OnHand:          snap.OnHand[key],
			Receipts:        receipts,
			Firmed:          snap.FirmedOrdersFor(key),
			Gross:           gross,
			SafetyStockDate: safetyStockDate,
		})
		if err != nil {
			return explosion.ItemOutcome{}, err
		}
		return explosion.ItemOutcome{Orders: res.Orders, Net: res.Requirements, Exceptions: res.Exceptions}, nil
	}
}

func missingParameter(key entities.PlanningKey, gross []entities.GrossRequirement, fallback time.Time) entities.PlanningException {
	var total entities.Quantity
	bucket := fallback
	for i, g := range gross {
		total += g.Quantity
		if i == 0 {
			bucket = g.Date
		}
	}
	return entities.PlanningException{
		Type:        entities.Shortage,
		ItemID:      key.ItemID,
		WarehouseID: key.WarehouseID,
		Bucket:      bucket,
		Quantity:    decimal.NewFromInt(int64(total)),
		Message:     fmt.Sprintf("%s left unplanned: no MRP parameter", key),
	}
}

// assignOrderIDs numbers proposals "<run>-00001".. in (due date, item, warehouse, quantity)
// order. Ties keep explosion order, which is itself deterministic.
func assignOrderIDs(runID string, orders []entities.PlannedOrder) []entities.PlannedOrder {
	out := make([]entities.PlannedOrder, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.Quantity < b.Quantity
	})
	for i := range out {
		out[i].ID = fmt.Sprintf("%s-%05d", runID, i+1)
		out[i].RunID = runID
	}
	return out
}

func totals(result *dto.PlanResult, skipped int) entities.RunTotals {
	t := entities.RunTotals{
		ItemsPlanned:   len(result.Trace),
		PlannedOrders:  len(result.Orders),
		Exceptions:     len(result.Exceptions),
		SkippedRecords: skipped,
	}
	for _, o := range result.Orders {
		t.PlannedQuantity += o.Quantity
		if o.RequiresConfirmation {
			t.ConfirmationsDue++
		}
	}
	for _, c := range result.Capacity {
		if c.Overloaded() {
			t.OverloadedCells++
		}
	}
	return t
}
