package netting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-aps/pkg/application/services/lotsizing"
	"github.com/vsinha/mrp-aps/pkg/application/services/scheduling"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
)

var runDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func june(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func newEngine() *Engine {
	weeks, _ := services.NewCalendar(7)
	return NewEngine(lotsizing.NewResolver(), scheduling.NewGuard(runDate, decimal.NewFromInt(10)), weeks, decimal.NewFromInt(50))
}

func buyItem(id entities.ItemID) entities.Item {
	return entities.Item{ID: id, OrderableUnit: 1, Procurement: entities.Buy}
}

func param(id entities.ItemID, lead int, lot entities.LotSizingMethod) entities.MRPParameter {
	return entities.MRPParameter{ItemID: id, WarehouseID: "MAIN", LeadTimeDays: lead, LotSizing: lot}
}

func gross(id entities.ItemID, date time.Time, qty entities.Quantity, src string) entities.GrossRequirement {
	return entities.GrossRequirement{ItemID: id, WarehouseID: "MAIN", Date: date, Quantity: qty, SourceDemandIDs: []string{src}}
}

func TestNet_SinglePurchaseOrder(t *testing.T) {
	res, err := newEngine().Net(Input{
		Item:      buyItem("WIDGET"),
		Parameter: param("WIDGET", 5, entities.LotSizingMethod{Kind: entities.LotForLot}),
		Gross:     []entities.GrossRequirement{gross("WIDGET", june(10), 100, "SO-1")},
	})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)

	o := res.Orders[0]
	assert.Equal(t, entities.Purchase, o.OrderType)
	assert.Equal(t, entities.Quantity(100), o.Quantity)
	assert.Equal(t, june(5), o.StartDate)
	assert.Equal(t, june(10), o.DueDate)
	assert.Equal(t, []string{"SO-1"}, o.SourceDemandIDs)
	assert.False(t, o.RequiresConfirmation)
	assert.Empty(t, res.Exceptions)
}

func TestNet_FixedOrderResidualReducesNextBucket(t *testing.T) {
	res, err := newEngine().Net(Input{
		Item:      buyItem("BOLT"),
		Parameter: param("BOLT", 0, entities.LotSizingMethod{Kind: entities.FixedOrderQuantity, FixedQty: 50}),
		Gross: []entities.GrossRequirement{
			gross("BOLT", june(10), 30, "SO-1"),
			gross("BOLT", june(11), 25, "SO-2"),
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Requirements, 2)

	first, second := res.Requirements[0], res.Requirements[1]
	assert.Equal(t, entities.Quantity(30), first.Net)
	assert.Equal(t, entities.Quantity(50), first.Planned)
	assert.Equal(t, entities.Quantity(20), first.ProjectedAfter)
	assert.Equal(t, entities.Quantity(20), second.ProjectedBefore)
	assert.Equal(t, entities.Quantity(5), second.Net, "residual 20 reduces the next net from 25 to 5")
	assert.Len(t, res.Orders, 2)
}

func TestNet_ScheduledReceiptsAndOnHand(t *testing.T) {
	res, err := newEngine().Net(Input{
		Item:      buyItem("NUT"),
		Parameter: param("NUT", 2, entities.LotSizingMethod{Kind: entities.LotForLot}),
		OnHand:    40,
		Receipts: []entities.ScheduledReceipt{
			{ID: "PO-1", Kind: entities.PurchaseOrderSupply, ItemID: "NUT", WarehouseID: "MAIN", DueDate: june(8), Quantity: 30},
		},
		Gross: []entities.GrossRequirement{gross("NUT", june(10), 100, "MPS-1")},
	})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, entities.Quantity(30), res.Orders[0].Quantity)
	require.Len(t, res.Requirements, 2)
	assert.Equal(t, entities.Quantity(70), res.Requirements[1].ProjectedBefore)
}

func TestNet_SafetyStockRestoredOnce(t *testing.T) {
	p := param("GASKET", 0, entities.LotSizingMethod{Kind: entities.LotForLot})
	p.SafetyStock = 20

	res, err := newEngine().Net(Input{
		Item:            buyItem("GASKET"),
		Parameter:       p,
		OnHand:          5,
		Gross:           []entities.GrossRequirement{gross("GASKET", june(10), 10, "SO-1")},
		SafetyStockDate: runDate,
	})
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)
	assert.Equal(t, entities.Quantity(15), res.Orders[0].Quantity)
	assert.Equal(t, entities.Quantity(10), res.Orders[1].Quantity)
	assert.Equal(t, entities.Quantity(20), res.Requirements[1].ProjectedAfter)
}

func TestNet_PeriodOrderQuantityStopsAtFence(t *testing.T) {
	demand := []entities.GrossRequirement{
		gross("RIM", june(10), 10, "F-1"),
		gross("RIM", june(11), 20, "F-2"),
		gross("RIM", june(12), 30, "F-3"),
		gross("RIM", june(13), 40, "F-4"),
	}

	open := param("RIM", 0, entities.LotSizingMethod{Kind: entities.PeriodOrderQuantity, Periods: 4})
	res, err := newEngine().Net(Input{Item: buyItem("RIM"), Parameter: open, Gross: demand})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, entities.Quantity(100), res.Orders[0].Quantity)
	assert.Equal(t, []string{"F-1", "F-2", "F-3", "F-4"}, res.Orders[0].SourceDemandIDs)

	fenced := open
	fenced.PlanningTimeFenceDays = 12 // need dates before 06-13 sit inside the fence
	res, err = newEngine().Net(Input{Item: buyItem("RIM"), Parameter: fenced, Gross: demand})
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)
	assert.Equal(t, entities.Quantity(60), res.Orders[0].Quantity)
	assert.True(t, res.Orders[0].RequiresConfirmation)
	assert.Equal(t, entities.Quantity(40), res.Orders[1].Quantity)
	assert.False(t, res.Orders[1].RequiresConfirmation)
}

func TestNet_PeriodOrderQuantityCoversCalendarPeriods(t *testing.T) {
	// two weekly periods from Monday 06-10 end before 06-24
	demand := []entities.GrossRequirement{
		gross("HUB", june(10), 10, "H-1"),
		gross("HUB", june(12), 20, "H-2"),
		gross("HUB", june(20), 30, "H-3"),
		gross("HUB", june(24), 40, "H-4"),
		gross("HUB", time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), 50, "H-5"),
	}

	res, err := newEngine().Net(Input{
		Item:      buyItem("HUB"),
		Parameter: param("HUB", 0, entities.LotSizingMethod{Kind: entities.PeriodOrderQuantity, Periods: 2}),
		Gross:     demand,
	})
	require.NoError(t, err)
	require.Len(t, res.Orders, 3)
	assert.Equal(t, entities.Quantity(60), res.Orders[0].Quantity)
	assert.Equal(t, []string{"H-1", "H-2", "H-3"}, res.Orders[0].SourceDemandIDs)
	assert.Equal(t, entities.Quantity(40), res.Orders[1].Quantity)
	assert.Equal(t, june(24), res.Orders[1].DueDate)
	assert.Equal(t, entities.Quantity(50), res.Orders[2].Quantity)
	assert.Equal(t, []string{"H-5"}, res.Orders[2].SourceDemandIDs)
}

func firmedFrame(qty entities.Quantity, start, due time.Time) entities.PlannedOrder {
	return entities.PlannedOrder{ID: "FIRM-1", ItemID: "FRAME", WarehouseID: "MAIN", OrderType: entities.Make,
		Quantity: qty, StartDate: start, DueDate: due, LeadTimeDays: 2, Firmed: true}
}

func TestNet_FirmedOrderInsideFenceIsLeftAlone(t *testing.T) {
	p := param("FRAME", 2, entities.LotSizingMethod{Kind: entities.LotForLot})
	p.PlanningTimeFenceDays = 10
	item := entities.Item{ID: "FRAME", OrderableUnit: 1, Procurement: entities.Manufacture}

	tests := []struct {
		name     string
		gross    entities.Quantity
		conflict bool
	}{
		{"shortfall beyond tolerance", 150, true},
		{"shortfall within tolerance", 105, false},
		{"surplus beyond tolerance", 60, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newEngine().Net(Input{
				Item:      item,
				Parameter: p,
				Firmed:    []entities.PlannedOrder{firmedFrame(100, june(3), june(5))},
				Gross:     []entities.GrossRequirement{gross("FRAME", june(5), tt.gross, "SO-9")},
			})
			require.NoError(t, err)

			assert.Empty(t, res.Orders, "no order is added beside a firmed order inside the fence")
			require.Len(t, res.Requirements, 1)
			assert.Equal(t, entities.Quantity(0), res.Requirements[0].Planned)

			var conflicts []entities.PlanningException
			for _, exc := range res.Exceptions {
				if exc.Type == entities.FirmOrderConflict {
					conflicts = append(conflicts, exc)
				}
			}
			if !tt.conflict {
				assert.Empty(t, conflicts)
				return
			}
			require.Len(t, conflicts, 1)
			assert.Equal(t, "FIRM-1", conflicts[0].OrderID)
		})
	}
}

func TestNet_FirmedOrderOutsideFenceIsSupply(t *testing.T) {
	p := param("FRAME", 2, entities.LotSizingMethod{Kind: entities.LotForLot})
	p.PlanningTimeFenceDays = 10
	item := entities.Item{ID: "FRAME", OrderableUnit: 1, Procurement: entities.Manufacture}

	res, err := newEngine().Net(Input{
		Item:      item,
		Parameter: p,
		Firmed:    []entities.PlannedOrder{firmedFrame(100, june(20), june(22))},
		Gross:     []entities.GrossRequirement{gross("FRAME", june(22), 150, "SO-9")},
	})
	require.NoError(t, err)

	require.Len(t, res.Orders, 1)
	assert.Equal(t, entities.Make, res.Orders[0].OrderType)
	assert.Equal(t, entities.Quantity(50), res.Orders[0].Quantity)
	assert.False(t, res.Orders[0].RequiresConfirmation)
	assert.Empty(t, res.Exceptions)
}

func TestNet_ExcessInventory(t *testing.T) {
	res, err := newEngine().Net(Input{
		Item:      buyItem("PAINT"),
		Parameter: param("PAINT", 1, entities.LotSizingMethod{Kind: entities.LotForLot}),
		OnHand:    500,
		Gross:     []entities.GrossRequirement{gross("PAINT", june(10), 10, "SO-1")},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Orders)
	require.Len(t, res.Exceptions, 1)
	assert.Equal(t, entities.ExcessInventory, res.Exceptions[0].Type)
	assert.True(t, decimal.NewFromInt(490).Equal(res.Exceptions[0].Quantity))
}

func TestNet_NetNeverNegativeAndOrdersCoverNet(t *testing.T) {
	methods := []entities.LotSizingMethod{
		{Kind: entities.LotForLot},
		{Kind: entities.FixedOrderQuantity, FixedQty: 12},
		{Kind: entities.MinMaxMultiple, Min: 5, Max: 30, Multiple: 5},
		{Kind: entities.PeriodOrderQuantity, Periods: 3},
	}

	for _, m := range methods {
		t.Run(m.String(), func(t *testing.T) {
			var demand []entities.GrossRequirement
			for d := 2; d <= 28; d += 3 {
				demand = append(demand, gross("SPOKE", june(d), entities.Quantity((d*7)%23+1), "D"))
			}
			p := param("SPOKE", 1, m)
			p.SafetyStock = 4

			res, err := newEngine().Net(Input{
				Item: buyItem("SPOKE"), Parameter: p, OnHand: 9, Gross: demand, SafetyStockDate: runDate,
				Receipts: []entities.ScheduledReceipt{{ID: "PO-1", ItemID: "SPOKE", WarehouseID: "MAIN", DueDate: june(14), Quantity: 11}},
			})
			require.NoError(t, err)
			for _, r := range res.Requirements {
				assert.GreaterOrEqual(t, int64(r.Net), int64(0))
				assert.GreaterOrEqual(t, int64(r.Planned), int64(r.Net))
				assert.GreaterOrEqual(t, int64(r.ProjectedAfter), int64(0))
			}
			for _, o := range res.Orders {
				assert.Equal(t, o.DueDate.AddDate(0, 0, -o.LeadTimeDays), o.StartDate)
			}
		})
	}
}

func TestNet_RejectsMismatchedParameter(t *testing.T) {
	_, err := newEngine().Net(Input{Item: buyItem("A"), Parameter: param("B", 0, entities.LotSizingMethod{})})
	assert.Error(t, err)
}
