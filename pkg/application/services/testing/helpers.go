package testing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-aps/pkg/application/services/planning"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/repositories/memory"
)

// Warehouse is the warehouse used when a test does not care which one
const Warehouse = "WH1"

// Date parses a YYYY-MM-DD test date - panics on bad input
func Date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// Dec parses a decimal literal - panics on bad input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DataSet bundles the in-memory repositories a planner reads and writes
type DataSet struct {
	Items      *memory.ItemRepository
	BOMs       *memory.BOMRepository
	Inventory  *memory.InventoryRepository
	Demands    *memory.DemandRepository
	Parameters *memory.ParameterRepository
	Capacity   *memory.CapacityRepository
	Plans      *memory.PlanRepository

	demandSeq  int
	receiptSeq int
}

// NewDataSet creates empty repositories
func NewDataSet() *DataSet {
	return &DataSet{
		Items:      memory.NewItemRepository(16),
		BOMs:       memory.NewBOMRepository(16),
		Inventory:  memory.NewInventoryRepository(),
		Demands:    memory.NewDemandRepository(),
		Parameters: memory.NewParameterRepository(),
		Capacity:   memory.NewCapacityRepository(),
		Plans:      memory.NewPlanRepository(),
	}
}

// Repositories wires the data set into a planner
func (d *DataSet) Repositories() planning.Repositories {
	return planning.Repositories{
		Items:      d.Items,
		BOMs:       d.BOMs,
		Inventory:  d.Inventory,
		Demand:     d.Demands,
		Parameters: d.Parameters,
		Capacity:   d.Capacity,
		Plans:      d.Plans,
	}
}

// Item adds an item with an orderable unit of 1
func (d *DataSet) Item(id string, procurement entities.ProcurementType) *DataSet {
	item, err := entities.NewItem(entities.ItemID(id), id, "EA", 1, procurement)
	if err != nil {
		panic(err)
	}
	d.Items.AddItem(*item)
	return d
}

// Param adds an MRP parameter for item in the default warehouse
func (d *DataSet) Param(item string, leadTimeDays int, lot entities.LotSizingMethod) *DataSet {
	return d.ParamWith(entities.MRPParameter{
		ItemID:       entities.ItemID(item),
		WarehouseID:  Warehouse,
		LeadTimeDays: leadTimeDays,
		LotSizing:    lot,
	})
}

// ParamWith adds a fully specified MRP parameter
func (d *DataSet) ParamWith(p entities.MRPParameter) *DataSet {
	if p.WarehouseID == "" {
		p.WarehouseID = Warehouse
	}
	if err := d.Parameters.SaveParameter(&p); err != nil {
		panic(err)
	}
	return d
}

// Component builds a BOM line - panics on validation error
func Component(item string, qtyPer, scrapPercent string) entities.BOMComponent {
	c, err := entities.NewBOMComponent(entities.ItemID(item), Dec(qtyPer), "EA", Dec(scrapPercent))
	if err != nil {
		panic(err)
	}
	return *c
}

// Op builds a routing operation - panics on validation error
func Op(sequence int, workCenter string, setupHours, runHoursPerUnit string) entities.Operation {
	op, err := entities.NewOperation(sequence, entities.WorkCenterID(workCenter), Dec(setupHours), Dec(runHoursPerUnit))
	if err != nil {
		panic(err)
	}
	return *op
}

// BOM adds version "A" of parent's bill of material
func (d *DataSet) BOM(parent string, components []entities.BOMComponent, ops ...entities.Operation) *DataSet {
	bom, err := entities.NewBillOfMaterial(entities.ItemID(parent), "A", components, ops)
	if err != nil {
		panic(err)
	}
	if err := d.BOMs.AddBOM(*bom); err != nil {
		panic(err)
	}
	return d
}

// WorkCenter adds a work center
func (d *DataSet) WorkCenter(id string, hoursPerDay, bucketHours string) *DataSet {
	wc, err := entities.NewWorkCenter(entities.WorkCenterID(id), id, Dec(hoursPerDay), Dec(bucketHours))
	if err != nil {
		panic(err)
	}
	if err := d.Capacity.LoadWorkCenters([]*entities.WorkCenter{wc}); err != nil {
		panic(err)
	}
	return d
}

// CapacityCell sets explicit available hours for a work center bucket
func (d *DataSet) CapacityCell(workCenter string, bucket time.Time, hours string) *DataSet {
	cell := &entities.ResourceCapacity{
		WorkCenterID:   entities.WorkCenterID(workCenter),
		Bucket:         bucket,
		AvailableHours: Dec(hours),
	}
	if err := d.Capacity.LoadCapacity([]*entities.ResourceCapacity{cell}); err != nil {
		panic(err)
	}
	return d
}

// Demand adds an independent demand record in the default warehouse
func (d *DataSet) Demand(source entities.DemandSource, item string, date time.Time, qty entities.Quantity) *DataSet {
	d.demandSeq++
	rec, err := entities.NewDemandRecord(demandID(source, d.demandSeq), source, entities.ItemID(item), Warehouse, date, qty)
	if err != nil {
		panic(err)
	}
	if err := d.Demands.LoadDemands([]*entities.DemandRecord{rec}); err != nil {
		panic(err)
	}
	return d
}

// OnHand adds stock in the default warehouse
func (d *DataSet) OnHand(item string, qty entities.Quantity) *DataSet {
	b, err := entities.NewOnHandBalance(entities.ItemID(item), Warehouse, qty)
	if err != nil {
		panic(err)
	}
	if err := d.Inventory.LoadOnHand([]*entities.OnHandBalance{b}); err != nil {
		panic(err)
	}
	return d
}

// Receipt adds an open purchase order in the default warehouse
func (d *DataSet) Receipt(item string, due time.Time, qty entities.Quantity) *DataSet {
	d.receiptSeq++
	r, err := entities.NewScheduledReceipt(receiptID(d.receiptSeq), entities.PurchaseOrderSupply, entities.ItemID(item), Warehouse, due, qty)
	if err != nil {
		panic(err)
	}
	if err := d.Inventory.LoadScheduledReceipts([]*entities.ScheduledReceipt{r}); err != nil {
		panic(err)
	}
	return d
}

// Firmed adds a planner-firmed order in the default warehouse
func (d *DataSet) Firmed(id, item string, orderType entities.OrderType, qty entities.Quantity, due time.Time, leadTimeDays int) *DataSet {
	o, err := entities.NewPlannedOrder(entities.ItemID(item), Warehouse, orderType, qty, due, leadTimeDays, nil)
	if err != nil {
		panic(err)
	}
	o.ID = id
	o.Firmed = true
	if err := d.Inventory.LoadFirmedOrders([]*entities.PlannedOrder{o}); err != nil {
		panic(err)
	}
	return d
}

func demandID(source entities.DemandSource, seq int) string {
	return fmt.Sprintf("%s-%03d", source, seq)
}

func receiptID(seq int) string {
	return fmt.Sprintf("PO-%03d", seq)
}
