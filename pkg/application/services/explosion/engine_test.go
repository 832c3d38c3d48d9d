package explosion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
)

var horizon = entities.Horizon{
	Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC),
}

func june(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	snap *dto.Snapshot
}

func newFixture() *fixture {
	return &fixture{snap: dto.NewSnapshot(horizon.Start)}
}

func (f *fixture) item(id entities.ItemID, proc entities.ProcurementType, lead int) *fixture {
	f.snap.Items[id] = entities.Item{ID: id, OrderableUnit: 1, Procurement: proc}
	f.snap.Parameters[entities.PlanningKey{ItemID: id, WarehouseID: "MAIN"}] = entities.MRPParameter{
		ItemID: id, WarehouseID: "MAIN", LeadTimeDays: lead,
	}
	return f
}

func (f *fixture) bom(parent entities.ItemID, comps ...entities.BOMComponent) *fixture {
	f.snap.BOMs[parent] = entities.BillOfMaterial{ParentID: parent, Version: "1", Components: comps}
	return f
}

func comp(id entities.ItemID, per int64, scrap int64) entities.BOMComponent {
	return entities.BOMComponent{ItemID: id, QuantityPer: decimal.NewFromInt(per), ScrapPercent: decimal.NewFromInt(scrap)}
}

func independent(id entities.ItemID, date time.Time, qty entities.Quantity, src string) map[entities.ItemID][]entities.GrossRequirement {
	return map[entities.ItemID][]entities.GrossRequirement{
		id: {{ItemID: id, WarehouseID: "MAIN", Date: date, Quantity: qty, Source: entities.SalesOrder, SourceDemandIDs: []string{src}}},
	}
}

// recorder plans every key lot-for-lot at its earliest requirement and remembers the gross it saw
type recorder struct {
	snap  *dto.Snapshot
	mu    sync.Mutex
	gross map[entities.PlanningKey]entities.Quantity
}

func newRecorder(snap *dto.Snapshot) *recorder {
	return &recorder{snap: snap, gross: make(map[entities.PlanningKey]entities.Quantity)}
}

func (r *recorder) plan(_ context.Context, key entities.PlanningKey, gross []entities.GrossRequirement) (ItemOutcome, error) {
	var total entities.Quantity
	for _, g := range gross {
		total += g.Quantity
	}
	r.mu.Lock()
	r.gross[key] += total
	r.mu.Unlock()
	if total == 0 {
		return ItemOutcome{}, nil
	}

	p := r.snap.Parameters[key]
	item := r.snap.Items[key.ItemID]
	order, err := entities.NewPlannedOrder(key.ItemID, key.WarehouseID, item.Procurement.OrderType(),
		total, gross[0].Date, p.LeadTimeDays, gross[0].SourceDemandIDs)
	if err != nil {
		return ItemOutcome{}, err
	}
	return ItemOutcome{Orders: []entities.PlannedOrder{*order}}, nil
}

func TestExplode_ComponentGrossIncludesScrap(t *testing.T) {
	f := newFixture().
		item("P", entities.Manufacture, 3).
		item("C", entities.Buy, 2).
		bom("P", comp("C", 2, 5))
	rec := newRecorder(f.snap)

	res, err := NewEngine(2, nil).Explode(context.Background(), Input{
		Snapshot: f.snap, Horizon: horizon, Independent: independent("P", june(20), 50, "SO-1"),
	}, rec.plan)
	require.NoError(t, err)

	assert.Equal(t, entities.Quantity(106), rec.gross[entities.PlanningKey{ItemID: "C", WarehouseID: "MAIN"}])
	require.Len(t, res.Orders, 2)

	child := res.Orders[1]
	assert.Equal(t, entities.ItemID("C"), child.ItemID)
	assert.Equal(t, june(17), child.DueDate, "component is due at the parent's start date")
	assert.Equal(t, []string{"SO-1"}, child.SourceDemandIDs)
	assert.Equal(t, 5, res.CriticalPath.TotalLeadTime)
	assert.Equal(t, horizon.Start.AddDate(0, 0, -5), res.Window.Start)
}

func TestExplode_TraceRespectsLowLevelCodes(t *testing.T) {
	// A uses B and C; B uses C and D; C uses D
	f := newFixture().
		item("A", entities.Manufacture, 1).
		item("B", entities.Manufacture, 1).
		item("C", entities.Manufacture, 1).
		item("D", entities.Buy, 1).
		bom("A", comp("B", 1, 0), comp("C", 1, 0)).
		bom("B", comp("C", 1, 0), comp("D", 1, 0)).
		bom("C", comp("D", 2, 0))
	rec := newRecorder(f.snap)

	res, err := NewEngine(4, nil).Explode(context.Background(), Input{
		Snapshot: f.snap, Horizon: horizon, Independent: independent("A", june(30), 10, "MPS-1"),
	}, rec.plan)
	require.NoError(t, err)

	position := make(map[entities.ItemID]int)
	for i, tr := range res.Trace {
		position[tr.ItemID] = i
	}
	require.Len(t, position, 4)

	graph := services.NewBOMGraph(sortedBOMs(f.snap))
	for item, pos := range position {
		for _, parent := range graph.Parents(item) {
			assert.Less(t, position[parent], pos, "%s netted before its parent %s", item, parent)
		}
	}
	assert.Equal(t, 3, res.Trace[position["D"]].LowLevelCode)

	// D collects demand from B (10) and C (2 x 20)
	assert.Equal(t, entities.Quantity(50), rec.gross[entities.PlanningKey{ItemID: "D", WarehouseID: "MAIN"}])
}

func TestExplode_CyclicBOMNamesFirstRepeatedItem(t *testing.T) {
	f := newFixture().
		item("A", entities.Manufacture, 1).
		item("B", entities.Manufacture, 1).
		bom("A", comp("B", 1, 0)).
		bom("B", comp("A", 1, 0))
	rec := newRecorder(f.snap)

	for i := 0; i < 5; i++ {
		_, err := NewEngine(2, nil).Explode(context.Background(), Input{
			Snapshot: f.snap, Horizon: horizon, Independent: independent("A", june(10), 1, "SO-1"),
		}, rec.plan)

		var cyc *services.CyclicBOMError
		require.True(t, errors.As(err, &cyc))
		assert.Equal(t, entities.ItemID("A"), cyc.Item)
	}
	assert.Empty(t, rec.gross, "nothing is planned when the graph is cyclic")
}

func TestExplode_UnknownItemRaisesShortageAndContinues(t *testing.T) {
	f := newFixture().
		item("P", entities.Manufacture, 1).
		bom("P", comp("GHOST", 1, 0))
	rec := newRecorder(f.snap)

	res, err := NewEngine(1, nil).Explode(context.Background(), Input{
		Snapshot: f.snap, Horizon: horizon, Independent: independent("P", june(10), 4, "SO-1"),
	}, rec.plan)
	require.NoError(t, err)

	require.Len(t, res.Exceptions, 1)
	exc := res.Exceptions[0]
	assert.Equal(t, entities.Shortage, exc.Type)
	assert.Equal(t, entities.ItemID("GHOST"), exc.ItemID)
	assert.True(t, decimal.NewFromInt(4).Equal(exc.Quantity))
	assert.Len(t, res.Orders, 1)
}

func TestExplode_PlanErrorBecomesShortage(t *testing.T) {
	f := newFixture().item("X", entities.Buy, 1)
	failing := func(context.Context, entities.PlanningKey, []entities.GrossRequirement) (ItemOutcome, error) {
		return ItemOutcome{}, fmt.Errorf("no parameter")
	}

	res, err := NewEngine(1, nil).Explode(context.Background(), Input{
		Snapshot: f.snap, Horizon: horizon, Independent: independent("X", june(10), 4, "SO-1"),
	}, failing)
	require.NoError(t, err)
	require.Len(t, res.Exceptions, 1)
	assert.Contains(t, res.Exceptions[0].Message, "no parameter")
}

func TestExplode_FirmedMakeOrdersExplodeAndOutOfWindowIsSkipped(t *testing.T) {
	f := newFixture().
		item("P", entities.Manufacture, 2).
		item("C", entities.Buy, 1).
		bom("P", comp("C", 3, 0))
	f.snap.FirmedOrders = []entities.PlannedOrder{
		{ID: "FIRM-1", ItemID: "P", WarehouseID: "MAIN", OrderType: entities.Make, Quantity: 5,
			StartDate: june(8), DueDate: june(10), LeadTimeDays: 2, Firmed: true},
		{ID: "FIRM-2", ItemID: "P", WarehouseID: "MAIN", OrderType: entities.Make, Quantity: 5,
			StartDate: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), DueDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), LeadTimeDays: 2, Firmed: true},
	}
	rec := newRecorder(f.snap)

	res, err := NewEngine(1, nil).Explode(context.Background(), Input{
		Snapshot: f.snap, Horizon: horizon, Independent: map[entities.ItemID][]entities.GrossRequirement{},
	}, rec.plan)
	require.NoError(t, err)

	assert.Equal(t, entities.Quantity(15), rec.gross[entities.PlanningKey{ItemID: "C", WarehouseID: "MAIN"}])
	assert.Equal(t, 1, res.Skipped)
}

func TestExplode_IndependentTreesAreDeterministic(t *testing.T) {
	build := func() *fixture {
		f := newFixture()
		for i := 0; i < 6; i++ {
			top := entities.ItemID(fmt.Sprintf("TOP-%d", i))
			sub := entities.ItemID(fmt.Sprintf("SUB-%d", i))
			f.item(top, entities.Manufacture, 1).item(sub, entities.Buy, 1).bom(top, comp(sub, 2, 0))
		}
		return f
	}
	demand := make(map[entities.ItemID][]entities.GrossRequirement)
	for i := 0; i < 6; i++ {
		top := entities.ItemID(fmt.Sprintf("TOP-%d", i))
		demand[top] = independent(top, june(10+i), entities.Quantity(i+1), fmt.Sprintf("SO-%d", i))[top]
	}

	var baseline *Result
	for _, workers := range []int{1, 3, 8} {
		f := build()
		res, err := NewEngine(workers, nil).Explode(context.Background(), Input{
			Snapshot: f.snap, Horizon: horizon, Independent: demand,
		}, newRecorder(f.snap).plan)
		require.NoError(t, err)
		if baseline == nil {
			baseline = res
			continue
		}
		assert.Equal(t, baseline.Trace, res.Trace)
		assert.Equal(t, baseline.Orders, res.Orders)
	}
	require.Len(t, baseline.Trace, 12)
	assert.Equal(t, 5, baseline.Trace[len(baseline.Trace)-1].Tree)
}

func TestExplode_Cancelled(t *testing.T) {
	f := newFixture().item("X", entities.Buy, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(1, nil).Explode(ctx, Input{
		Snapshot: f.snap, Horizon: horizon, Independent: independent("X", june(10), 1, "SO-1"),
	}, newRecorder(f.snap).plan)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExplode_CancelledMidRunStopsEveryTree(t *testing.T) {
	f := newFixture()
	demand := make(map[entities.ItemID][]entities.GrossRequirement)
	for i := 0; i < 12; i++ {
		id := entities.ItemID(fmt.Sprintf("PART-%02d", i))
		f.item(id, entities.Buy, 1)
		demand[id] = independent(id, june(10), 1, fmt.Sprintf("SO-%d", i))[id]
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	planned := 0
	plan := func(ctx context.Context, _ entities.PlanningKey, _ []entities.GrossRequirement) (ItemOutcome, error) {
		mu.Lock()
		defer mu.Unlock()
		planned++
		if planned == 3 {
			cancel()
			return ItemOutcome{}, errors.New("interrupted")
		}
		return ItemOutcome{}, ctx.Err()
	}

	_, err := NewEngine(3, nil).Explode(ctx, Input{Snapshot: f.snap, Horizon: horizon, Independent: demand}, plan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, planned, 12)
}
