package csv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/repositories/memory"
)

func TestLoadDir_Bicycle(t *testing.T) {
	ds, err := NewLoader().LoadDir(filepath.Join("testdata", "bicycle"))
	require.NoError(t, err)

	assert.Len(t, ds.Items, 6)
	assert.Len(t, ds.Parameters, 6)
	assert.Len(t, ds.Demands, 4)
	assert.Len(t, ds.WorkCenters, 3)
	assert.Len(t, ds.Capacity, 1)
	assert.Len(t, ds.OnHand, 3)
	assert.Len(t, ds.Receipts, 2)
	require.Len(t, ds.Firmed, 1)
	assert.True(t, ds.Firmed[0].Firmed)
	assert.Equal(t, "FO-1", ds.Firmed[0].ID)

	require.Len(t, ds.BOMs, 3)
	frame := ds.BOMs[1]
	assert.Equal(t, entities.ItemID("FRAME"), frame.ParentID)
	require.Len(t, frame.Components, 1)
	assert.True(t, decimal.NewFromFloat(2.5).Equal(frame.Components[0].QuantityPer))
	assert.True(t, decimal.NewFromInt(5).Equal(frame.Components[0].ScrapPercent))
	assert.Len(t, frame.Operations, 2)

	params := map[entities.ItemID]entities.MRPParameter{}
	for _, p := range ds.Parameters {
		params[p.ItemID] = *p
	}
	assert.Equal(t, entities.LotSizingMethod{Kind: entities.MinMaxMultiple, Min: 10, Max: 60, Multiple: 10}, params["WHEEL"].LotSizing)
	assert.Equal(t, entities.Quantity(10), params["WHEEL"].SafetyStock)
	assert.Equal(t, 1, params["TUBE"].SafetyTimeDays)
	assert.Equal(t, 3, params["BIKE"].PlanningTimeFenceDays)

	sources := map[entities.DemandSource]int{}
	for _, d := range ds.Demands {
		sources[d.Source]++
	}
	assert.Equal(t, map[entities.DemandSource]int{entities.SalesOrder: 2, entities.Forecast: 1, entities.MasterSchedule: 1}, sources)
}

func TestDataset_Populate(t *testing.T) {
	ds, err := NewLoader().LoadDir(filepath.Join("testdata", "bicycle"))
	require.NoError(t, err)

	items := memory.NewItemRepository(8)
	boms := memory.NewBOMRepository(8)
	inventory := memory.NewInventoryRepository()
	demand := memory.NewDemandRepository()
	params := memory.NewParameterRepository()
	capacity := memory.NewCapacityRepository()
	require.NoError(t, ds.Populate(Repositories{
		Items: items, BOMs: boms, Inventory: inventory, Demand: demand, Parameters: params, Capacity: capacity,
	}))

	item, err := items.GetItem("SPOKE")
	require.NoError(t, err)
	assert.Equal(t, entities.Quantity(36), item.OrderableUnit)

	bom, err := boms.GetBOM("WHEEL", "")
	require.NoError(t, err)
	assert.Len(t, bom.Components, 2)

	onHand, err := inventory.GetOnHand("TUBE", "WH1")
	require.NoError(t, err)
	assert.Equal(t, entities.Quantity(30), onHand)

	firmed, err := inventory.GetFirmedOrders()
	require.NoError(t, err)
	assert.Len(t, firmed, 1)

	wc, err := capacity.GetWorkCenter("WELD")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(wc.BucketHours))
}

func TestLoadDir_HeaderMismatch(t *testing.T) {
	_, err := NewLoader().LoadDir(filepath.Join("testdata", "bad_header"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items CSV header mismatch")
}

func TestLoadDir_MissingRequiredFile(t *testing.T) {
	_, err := NewLoader().LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open items file")
}

func TestLoaders_RowErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	l := NewLoader()

	tests := []struct {
		name    string
		load    func() error
		message string
	}{
		{
			name: "bad demand quantity",
			load: func() error {
				_, err := l.LoadDemands(write("d.csv", "demand_id,source,item_id,warehouse_id,date,quantity\nSO-1,SalesOrder,BIKE,WH1,2024-06-14,x\n"))
				return err
			},
			message: "demands CSV row 2: invalid quantity: x",
		},
		{
			name: "unknown demand source",
			load: func() error {
				_, err := l.LoadDemands(write("d2.csv", "demand_id,source,item_id,warehouse_id,date,quantity\nX-1,Rumour,BIKE,WH1,2024-06-14,3\n"))
				return err
			},
			message: "unknown demand source",
		},
		{
			name: "bad date",
			load: func() error {
				_, err := l.LoadReceipts(write("r.csv", "receipt_id,kind,item_id,warehouse_id,due_date,quantity\nPO-1,PO,RIM,WH1,14/06/2024,3\n"))
				return err
			},
			message: "invalid due_date format",
		},
		{
			name: "bad lot sizing",
			load: func() error {
				_, err := l.LoadParameters(write("p.csv", "item_id,warehouse_id,lead_time_days,safety_stock,safety_time_days,lot_sizing,planning_time_fence_days,service_level_percent\nRIM,WH1,1,0,0,FOQ:0,0,90\n"))
				return err
			},
			message: "parameters CSV row 2",
		},
		{
			name: "short row",
			load: func() error {
				_, err := l.LoadInventory(write("i.csv", "item_id,warehouse_id,quantity\nRIM,WH1\n"))
				return err
			},
			message: "inventory CSV row 2: expected 3 columns, got 2",
		},
		{
			name: "duplicate component",
			load: func() error {
				_, err := l.LoadBOMs(write("b.csv", "parent_id,version,component_id,quantity_per,unit,scrap_percent\nP,A,C,1,EA,0\nP,A,C,2,EA,0\n"), "")
				return err
			},
			message: "duplicate component C",
		},
		{
			name: "bad order type",
			load: func() error {
				_, err := l.LoadFirmedOrders(write("f.csv", "order_id,item_id,warehouse_id,order_type,quantity,due_date,lead_time_days\nFO-1,P,WH1,Borrow,1,2024-06-14,1\n"))
				return err
			},
			message: "invalid order_type: Borrow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadCapacity_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capacity.csv")
	require.NoError(t, os.WriteFile(path, []byte("work_center_id,bucket,available_hours\n"), 0o644))

	cells, err := NewLoader().LoadCapacity(path)
	require.NoError(t, err)
	assert.Empty(t, cells)
}
