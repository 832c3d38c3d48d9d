package explosion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/application/services/demand"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
)

// ItemOutcome is what planning one (item, warehouse) produced. Orders holds new proposals
// only; firmed orders of the key are exploded by the engine itself.
type ItemOutcome struct {
	Orders     []entities.PlannedOrder
	Net        []entities.NetRequirement
	Exceptions []entities.PlanningException
}

// ItemPlanFunc nets, sizes and schedules one planning key given its complete gross requirements
type ItemPlanFunc func(ctx context.Context, key entities.PlanningKey, gross []entities.GrossRequirement) (ItemOutcome, error)

// Input is the explosion scope of one run
type Input struct {
	Snapshot    *dto.Snapshot
	Horizon     entities.Horizon
	Independent map[entities.ItemID][]entities.GrossRequirement
}

// Result is the merged outcome over all BOM trees
type Result struct {
	Orders       []entities.PlannedOrder
	Net          []entities.NetRequirement
	Exceptions   []entities.PlanningException
	Trace        []dto.TraceEntry
	Skipped      int
	Window       entities.Horizon
	CriticalPath entities.CriticalPath
}

// Engine walks the BOM graph in low-level-code order, netting each item once all of its
// parents have contributed dependent demand
type Engine struct {
	workers int
	logger  *zap.Logger
}

// NewEngine creates an explosion engine that processes up to workers BOM trees at once
func NewEngine(workers int, logger *zap.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{workers: workers, logger: logger.Named("explosion")}
}

type treeResult struct {
	orders     []entities.PlannedOrder
	net        []entities.NetRequirement
	exceptions []entities.PlanningException
	trace      []dto.TraceEntry
	skipped    int
	err        error
}

// scope holds the lookups shared read-only by all tree workers
type scope struct {
	in          Input
	codes       map[entities.ItemID]int
	window      entities.Horizon
	safetyKeys  map[entities.ItemID][]entities.WarehouseID
	firmedKeys  map[entities.ItemID][]entities.WarehouseID
	independent map[entities.PlanningKey][]entities.GrossRequirement
}

// Explode computes low-level codes, then plans every reachable item. A cyclic BOM returns a
// *services.CyclicBOMError before any item is planned. Context cancellation stops the walk
// between items and returns the context error.
func (e *Engine) Explode(ctx context.Context, in Input, plan ItemPlanFunc) (*Result, error) {
	snap := in.Snapshot
	graph := services.NewBOMGraph(sortedBOMs(snap))

	sc := &scope{
		in:          in,
		safetyKeys:  make(map[entities.ItemID][]entities.WarehouseID),
		firmedKeys:  make(map[entities.ItemID][]entities.WarehouseID),
		independent: make(map[entities.PlanningKey][]entities.GrossRequirement),
	}
	rootSet := make(map[entities.ItemID]bool)
	for item, reqs := range in.Independent {
		rootSet[item] = true
		for _, r := range reqs {
			sc.independent[r.Key()] = append(sc.independent[r.Key()], r)
		}
	}
	for key, p := range snap.Parameters {
		if p.SafetyStock > 0 {
			rootSet[key.ItemID] = true
			sc.safetyKeys[key.ItemID] = append(sc.safetyKeys[key.ItemID], key.WarehouseID)
		}
	}
	for _, o := range snap.FirmedOrders {
		rootSet[o.ItemID] = true
		sc.firmedKeys[o.ItemID] = append(sc.firmedKeys[o.ItemID], o.WarehouseID)
	}
	roots := make([]entities.ItemID, 0, len(rootSet))
	for item := range rootSet {
		roots = append(roots, item)
	}

	codes, err := graph.LowLevelCodes(roots)
	if err != nil {
		return nil, err
	}
	sc.codes = codes

	cp := graph.CriticalPath(codes, snap.MaxLeadTime)
	sc.window = entities.Horizon{
		Start: services.Day(in.Horizon.Start).AddDate(0, 0, -cp.TotalLeadTime),
		End:   services.Day(in.Horizon.End),
	}

	trees := graph.IndependentTrees(codes)
	results := make([]treeResult, len(trees))

	// the first failing tree cancels the trees still running
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range trees {
		g.Go(func() error {
			results[i] = e.explodeTree(gctx, sc, i, trees[i], plan)
			return results[i].err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{Window: sc.window, CriticalPath: cp}
	for _, r := range results {
		out.Orders = append(out.Orders, r.orders...)
		out.Net = append(out.Net, r.net...)
		out.Exceptions = append(out.Exceptions, r.exceptions...)
		out.Trace = append(out.Trace, r.trace...)
		out.Skipped += r.skipped
	}

	e.logger.Debug("explosion finished",
		zap.Int("items", len(codes)),
		zap.Int("trees", len(trees)),
		zap.Int("cumulative_lead_time", cp.TotalLeadTime),
		zap.Int("skipped", out.Skipped))
	return out, nil
}

func (e *Engine) explodeTree(
	ctx context.Context,
	sc *scope,
	tree int,
	items []entities.ItemID,
	plan ItemPlanFunc,
) treeResult {
	var res treeResult
	snap := sc.in.Snapshot
	dependent := make(map[entities.PlanningKey][]entities.GrossRequirement)
	dependentWarehouses := make(map[entities.ItemID]map[entities.WarehouseID]bool)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}

		master, known := snap.Items[item]
		for _, wh := range sc.warehousesFor(item, dependentWarehouses[item]) {
			key := entities.PlanningKey{ItemID: item, WarehouseID: wh}
			gross := append(append([]entities.GrossRequirement(nil), sc.independent[key]...), dependent[key]...)
			demand.SortRequirements(gross)

			res.trace = append(res.trace, dto.TraceEntry{
				Tree:         tree,
				Sequence:     len(res.trace),
				ItemID:       item,
				WarehouseID:  wh,
				LowLevelCode: sc.codes[item],
			})

			if !known {
				res.exceptions = append(res.exceptions, shortage(key, gross, sc.in.Horizon.Start, "item not found in item master"))
				continue
			}

			outcome, err := plan(ctx, key, gross)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					res.err = ctxErr
					return res
				}
				res.exceptions = append(res.exceptions, shortage(key, gross, sc.in.Horizon.Start, err.Error()))
				continue
			}
			res.orders = append(res.orders, outcome.Orders...)
			res.net = append(res.net, outcome.Net...)
			res.exceptions = append(res.exceptions, outcome.Exceptions...)

			if _, hasBOM := snap.BOMs[master.ID]; !hasBOM {
				continue
			}
			supply := append(snap.FirmedOrdersFor(key), outcome.Orders...)
			for _, order := range supply {
				if order.OrderType != entities.Make {
					continue
				}
				for _, req := range sc.componentDemand(order) {
					if !sc.window.Contains(req.Date) {
						res.skipped++
						continue
					}
					ck := req.Key()
					dependent[ck] = append(dependent[ck], req)
					if dependentWarehouses[ck.ItemID] == nil {
						dependentWarehouses[ck.ItemID] = make(map[entities.WarehouseID]bool)
					}
					dependentWarehouses[ck.ItemID][ck.WarehouseID] = true
				}
			}
		}
	}

	e.logger.Debug("tree exploded", zap.Int("tree", tree), zap.Int("items", len(items)), zap.Int("orders", len(res.orders)))
	return res
}

// componentDemand derives the dependent gross requirements of one make order, dated at the
// order's start date
func (sc *scope) componentDemand(order entities.PlannedOrder) []entities.GrossRequirement {
	bom := sc.in.Snapshot.BOMs[order.ItemID]
	out := make([]entities.GrossRequirement, 0, len(bom.Components))
	for _, comp := range bom.Components {
		unit := entities.Quantity(1)
		if ci, ok := sc.in.Snapshot.Items[comp.ItemID]; ok {
			unit = ci.OrderableUnit
		}
		qty := comp.GrossFor(order.Quantity, unit)
		if qty <= 0 {
			continue
		}
		out = append(out, entities.GrossRequirement{
			ItemID:          comp.ItemID,
			WarehouseID:     order.WarehouseID,
			Date:            services.Day(order.StartDate),
			Quantity:        qty,
			Source:          entities.Dependent,
			SourceDemandIDs: append([]string(nil), order.SourceDemandIDs...),
		})
	}
	return out
}

// warehousesFor lists, in order, the warehouses an item must be planned in
func (sc *scope) warehousesFor(item entities.ItemID, dependent map[entities.WarehouseID]bool) []entities.WarehouseID {
	set := make(map[entities.WarehouseID]bool)
	for _, r := range sc.in.Independent[item] {
		set[r.WarehouseID] = true
	}
	for wh := range dependent {
		set[wh] = true
	}
	for _, wh := range sc.safetyKeys[item] {
		set[wh] = true
	}
	for _, wh := range sc.firmedKeys[item] {
		set[wh] = true
	}

	out := make([]entities.WarehouseID, 0, len(set))
	for wh := range set {
		out = append(out, wh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func shortage(key entities.PlanningKey, gross []entities.GrossRequirement, fallback time.Time, reason string) entities.PlanningException {
	var total entities.Quantity
	bucket := services.Day(fallback)
	for i, g := range gross {
		total += g.Quantity
		if i == 0 {
			bucket = g.Date
		}
	}
	return entities.PlanningException{
		Type:        entities.Shortage,
		Severity:    entities.Shortage.DefaultSeverity(),
		ItemID:      key.ItemID,
		WarehouseID: key.WarehouseID,
		Bucket:      bucket,
		Quantity:    decimal.NewFromInt(int64(total)),
		Message:     fmt.Sprintf("%s left unplanned: %s", key, reason),
	}
}

func sortedBOMs(snap *dto.Snapshot) []*entities.BillOfMaterial {
	out := make([]*entities.BillOfMaterial, 0, len(snap.BOMs))
	for _, b := range snap.BOMs {
		bom := b
		out = append(out, &bom)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParentID < out[j].ParentID })
	return out
}
