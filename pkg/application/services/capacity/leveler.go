package capacity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
)

// Load is the hours one routing operation of one order puts on a work center bucket
type Load struct {
	OrderID      string
	ItemID       entities.ItemID
	WorkCenterID entities.WorkCenterID
	Sequence     int
	Bucket       time.Time
	Start        time.Time
	End          time.Time
	Hours        decimal.Decimal
	DueDate      time.Time
}

// Input is the leveling scope of one run
type Input struct {
	Orders      []entities.PlannedOrder
	BOMs        map[entities.ItemID]entities.BillOfMaterial
	WorkCenters map[entities.WorkCenterID]entities.WorkCenter
	Capacity    map[entities.CellKey]decimal.Decimal
}

// Result holds every cell touched or explicitly provisioned and one Overload per overloaded cell
type Result struct {
	Cells      []entities.ResourceCapacity
	Loads      []Load
	Exceptions []entities.PlanningException
}

// Leveler loads make orders onto finite work center capacity. Orders are never moved;
// overloads are only reported.
type Leveler struct {
	calendar *services.Calendar
	rule     DispatchRule
	logger   *zap.Logger
}

// NewLeveler creates a leveler bucketing by calendar and allocating in rule order
func NewLeveler(calendar *services.Calendar, rule DispatchRule, logger *zap.Logger) *Leveler {
	if rule == nil {
		rule = EarliestDueDate{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Leveler{calendar: calendar, rule: rule, logger: logger.Named("capacity")}
}

// Schedule backward-schedules the operations of a make order from its due date, highest
// sequence first. Each operation occupies ceil(hours / hours per day) days.
func (l *Leveler) Schedule(order entities.PlannedOrder, bom entities.BillOfMaterial, wcs map[entities.WorkCenterID]entities.WorkCenter) []Load {
	ops := append([]entities.Operation(nil), bom.Operations...)
	sort.Slice(ops, func(i, j int) bool { return ops[i].Sequence > ops[j].Sequence })

	loads := make([]Load, 0, len(ops))
	end := services.Day(order.DueDate)
	for _, op := range ops {
		hours := op.RequiredHours(order.Quantity)
		days := 1
		if wc, ok := wcs[op.WorkCenterID]; ok && wc.HoursPerDay.IsPositive() {
			days = int(hours.Div(wc.HoursPerDay).Ceil().IntPart())
		}
		start := end.AddDate(0, 0, -days)
		loads = append(loads, Load{
			OrderID:      order.ID,
			ItemID:       order.ItemID,
			WorkCenterID: op.WorkCenterID,
			Sequence:     op.Sequence,
			Bucket:       l.calendar.BucketStart(start),
			Start:        start,
			End:          end,
			Hours:        hours,
			DueDate:      order.DueDate,
		})
		end = start
	}
	return loads
}

// Level allocates all make-order operations. Each work center is allocated by its own
// goroutine in dispatch rule order, so overload attribution is independent of scheduling.
func (l *Leveler) Level(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byWorkCenter := make(map[entities.WorkCenterID][]Load)
	var all []Load
	for _, order := range in.Orders {
		if order.OrderType != entities.Make {
			continue
		}
		bom, ok := in.BOMs[order.ItemID]
		if !ok || len(bom.Operations) == 0 {
			continue
		}
		for _, load := range l.Schedule(order, bom, in.WorkCenters) {
			byWorkCenter[load.WorkCenterID] = append(byWorkCenter[load.WorkCenterID], load)
			all = append(all, load)
		}
	}

	ledger := NewLedger()
	for key, hours := range in.Capacity {
		ledger.Open(key, hours)
	}

	var (
		mu      sync.Mutex
		crossed = make(map[entities.CellKey]Load)
	)
	g, gctx := errgroup.WithContext(ctx)
	for wcID, loads := range byWorkCenter {
		g.Go(func() error {
			sort.SliceStable(loads, func(i, j int) bool { return l.rule.Less(loads[i], loads[j]) })
			for _, load := range loads {
				if err := gctx.Err(); err != nil {
					return err
				}
				key := entities.CellKey{WorkCenterID: wcID, Bucket: load.Bucket}
				if _, crossedNow := ledger.Allocate(key, l.available(in, key), load.Hours); crossedNow {
					mu.Lock()
					crossed[key] = load
					mu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Cells: ledger.Cells(), Loads: all}
	for _, cell := range res.Cells {
		if !cell.Overloaded() {
			continue
		}
		key := entities.CellKey{WorkCenterID: cell.WorkCenterID, Bucket: cell.Bucket}
		res.Exceptions = append(res.Exceptions, l.overload(in, cell, crossed[key]))
	}

	l.logger.Debug("capacity leveled",
		zap.String("rule", l.rule.Name()),
		zap.Int("loads", len(all)),
		zap.Int("cells", len(res.Cells)),
		zap.Int("overloads", len(res.Exceptions)))
	return res, nil
}

// available is the explicit capacity of the cell, else the work center's bucket hours.
// Unknown work centers have no capacity.
func (l *Leveler) available(in Input, key entities.CellKey) decimal.Decimal {
	if hours, ok := in.Capacity[key]; ok {
		return hours
	}
	if wc, ok := in.WorkCenters[key.WorkCenterID]; ok {
		return wc.BucketHours
	}
	return decimal.Zero
}

func (l *Leveler) overload(in Input, cell entities.ResourceCapacity, culprit Load) entities.PlanningException {
	msg := fmt.Sprintf("work center %s overloaded in bucket %s: %s of %s hours allocated",
		cell.WorkCenterID, cell.Bucket.Format("2006-01-02"), cell.AllocatedHours.String(), cell.AvailableHours.String())
	if _, known := in.WorkCenters[cell.WorkCenterID]; !known {
		msg = fmt.Sprintf("unknown work center %s loaded with %s hours in bucket %s",
			cell.WorkCenterID, cell.AllocatedHours.String(), cell.Bucket.Format("2006-01-02"))
	}
	return entities.PlanningException{
		Type:         entities.Overload,
		Severity:     entities.Overload.DefaultSeverity(),
		WorkCenterID: cell.WorkCenterID,
		ItemID:       culprit.ItemID,
		Bucket:       cell.Bucket,
		Quantity:     cell.Excess(),
		OrderID:      culprit.OrderID,
		Message:      msg,
	}
}
