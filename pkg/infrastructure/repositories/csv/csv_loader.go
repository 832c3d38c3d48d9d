package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

const dateLayout = "2006-01-02"

// File names read by LoadDir
const (
	ItemsFile        = "items.csv"
	BOMsFile         = "boms.csv"
	RoutingsFile     = "routings.csv"
	WorkCentersFile  = "work_centers.csv"
	CapacityFile     = "capacity.csv"
	ParametersFile   = "parameters.csv"
	InventoryFile    = "inventory.csv"
	ReceiptsFile     = "receipts.csv"
	FirmedOrdersFile = "firmed_orders.csv"
	DemandsFile      = "demands.csv"
)

var (
	itemsHeader       = []string{"item_id", "description", "unit_of_measure", "orderable_unit", "procurement"}
	bomsHeader        = []string{"parent_id", "version", "component_id", "quantity_per", "unit", "scrap_percent"}
	routingsHeader    = []string{"parent_id", "version", "sequence", "work_center_id", "setup_hours", "run_hours_per_unit"}
	workCentersHeader = []string{"work_center_id", "description", "hours_per_day", "bucket_hours"}
	capacityHeader    = []string{"work_center_id", "bucket", "available_hours"}
	parametersHeader  = []string{"item_id", "warehouse_id", "lead_time_days", "safety_stock", "safety_time_days", "lot_sizing", "planning_time_fence_days", "service_level_percent"}
	inventoryHeader   = []string{"item_id", "warehouse_id", "quantity"}
	receiptsHeader    = []string{"receipt_id", "kind", "item_id", "warehouse_id", "due_date", "quantity"}
	firmedHeader      = []string{"order_id", "item_id", "warehouse_id", "order_type", "quantity", "due_date", "lead_time_days"}
	demandsHeader     = []string{"demand_id", "source", "item_id", "warehouse_id", "date", "quantity"}
)

// Loader handles loading planning data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// Dataset is the content of one scenario directory
type Dataset struct {
	Items       []*entities.Item
	BOMs        []*entities.BillOfMaterial
	WorkCenters []*entities.WorkCenter
	Capacity    []*entities.ResourceCapacity
	Parameters  []*entities.MRPParameter
	OnHand      []*entities.OnHandBalance
	Receipts    []*entities.ScheduledReceipt
	Firmed      []*entities.PlannedOrder
	Demands     []*entities.DemandRecord
}

// Repositories are the stores a Dataset is loaded into
type Repositories struct {
	Items      repositories.ItemRepository
	BOMs       repositories.BOMRepository
	Inventory  repositories.InventoryRepository
	Demand     repositories.DemandRepository
	Parameters repositories.ParameterRepository
	Capacity   repositories.CapacityRepository
}

// LoadDir reads a scenario directory. items, parameters and demands are required; every
// other file may be absent.
func (l *Loader) LoadDir(dir string) (*Dataset, error) {
	ds := &Dataset{}
	var err error

	if ds.Items, err = l.LoadItems(filepath.Join(dir, ItemsFile)); err != nil {
		return nil, err
	}
	if ds.Parameters, err = l.LoadParameters(filepath.Join(dir, ParametersFile)); err != nil {
		return nil, err
	}
	if ds.Demands, err = l.LoadDemands(filepath.Join(dir, DemandsFile)); err != nil {
		return nil, err
	}

	optional := func(name string) (string, bool) {
		path := filepath.Join(dir, name)
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return path, false
		}
		return path, true
	}

	bomsPath, hasBOMs := optional(BOMsFile)
	routingsPath, hasRoutings := optional(RoutingsFile)
	if hasBOMs || hasRoutings {
		if !hasBOMs {
			bomsPath = ""
		}
		if !hasRoutings {
			routingsPath = ""
		}
		if ds.BOMs, err = l.LoadBOMs(bomsPath, routingsPath); err != nil {
			return nil, err
		}
	}
	if path, ok := optional(WorkCentersFile); ok {
		if ds.WorkCenters, err = l.LoadWorkCenters(path); err != nil {
			return nil, err
		}
	}
	if path, ok := optional(CapacityFile); ok {
		if ds.Capacity, err = l.LoadCapacity(path); err != nil {
			return nil, err
		}
	}
	if path, ok := optional(InventoryFile); ok {
		if ds.OnHand, err = l.LoadInventory(path); err != nil {
			return nil, err
		}
	}
	if path, ok := optional(ReceiptsFile); ok {
		if ds.Receipts, err = l.LoadReceipts(path); err != nil {
			return nil, err
		}
	}
	if path, ok := optional(FirmedOrdersFile); ok {
		if ds.Firmed, err = l.LoadFirmedOrders(path); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Populate loads the dataset into repos. Work centers are loaded before capacity so
// capacity rows can be checked against them.
func (ds *Dataset) Populate(repos Repositories) error {
	if err := repos.Items.LoadItems(ds.Items); err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}
	if err := repos.BOMs.LoadBOMs(ds.BOMs); err != nil {
		return fmt.Errorf("failed to load boms: %w", err)
	}
	if err := repos.Capacity.LoadWorkCenters(ds.WorkCenters); err != nil {
		return fmt.Errorf("failed to load work centers: %w", err)
	}
	if err := repos.Capacity.LoadCapacity(ds.Capacity); err != nil {
		return fmt.Errorf("failed to load capacity: %w", err)
	}
	for _, p := range ds.Parameters {
		if err := repos.Parameters.SaveParameter(p); err != nil {
			return fmt.Errorf("failed to load parameters: %w", err)
		}
	}
	if err := repos.Inventory.LoadOnHand(ds.OnHand); err != nil {
		return fmt.Errorf("failed to load inventory: %w", err)
	}
	if err := repos.Inventory.LoadScheduledReceipts(ds.Receipts); err != nil {
		return fmt.Errorf("failed to load receipts: %w", err)
	}
	if err := repos.Inventory.LoadFirmedOrders(ds.Firmed); err != nil {
		return fmt.Errorf("failed to load firmed orders: %w", err)
	}
	if err := repos.Demand.LoadDemands(ds.Demands); err != nil {
		return fmt.Errorf("failed to load demands: %w", err)
	}
	return nil
}

// LoadItems loads items from a CSV file
func (l *Loader) LoadItems(filename string) ([]*entities.Item, error) {
	rows, err := readRecords(filename, "items", itemsHeader)
	if err != nil {
		return nil, err
	}

	var items []*entities.Item
	for _, row := range rows {
		r := row.fields
		orderable, err := parseQuantity("orderable_unit", r[3])
		if err != nil {
			return nil, row.errorf("items", err)
		}
		procurement, err := entities.ParseProcurementType(r[4])
		if err != nil {
			return nil, row.errorf("items", err)
		}
		item, err := entities.NewItem(entities.ItemID(r[0]), r[1], r[2], orderable, procurement)
		if err != nil {
			return nil, row.errorf("items", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadBOMs loads component lines and routing operations and groups them per parent and
// version. Either file name may be empty.
func (l *Loader) LoadBOMs(bomsFile, routingsFile string) ([]*entities.BillOfMaterial, error) {
	type bomKey struct {
		parent  entities.ItemID
		version string
	}
	var order []bomKey
	byKey := make(map[bomKey]*entities.BillOfMaterial)
	at := func(parent, version string) *entities.BillOfMaterial {
		k := bomKey{entities.ItemID(parent), version}
		b, ok := byKey[k]
		if !ok {
			b = &entities.BillOfMaterial{ParentID: k.parent, Version: version}
			byKey[k] = b
			order = append(order, k)
		}
		return b
	}

	if bomsFile != "" {
		rows, err := readRecords(bomsFile, "boms", bomsHeader)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			r := row.fields
			qtyPer, err := parseDecimal("quantity_per", r[3])
			if err != nil {
				return nil, row.errorf("boms", err)
			}
			scrap, err := parseDecimal("scrap_percent", r[5])
			if err != nil {
				return nil, row.errorf("boms", err)
			}
			c, err := entities.NewBOMComponent(entities.ItemID(r[2]), qtyPer, r[4], scrap)
			if err != nil {
				return nil, row.errorf("boms", err)
			}
			b := at(r[0], r[1])
			b.Components = append(b.Components, *c)
		}
	}

	if routingsFile != "" {
		rows, err := readRecords(routingsFile, "routings", routingsHeader)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			r := row.fields
			seq, err := strconv.Atoi(r[2])
			if err != nil {
				return nil, row.errorf("routings", fmt.Errorf("invalid sequence: %s", r[2]))
			}
			setup, err := parseDecimal("setup_hours", r[4])
			if err != nil {
				return nil, row.errorf("routings", err)
			}
			run, err := parseDecimal("run_hours_per_unit", r[5])
			if err != nil {
				return nil, row.errorf("routings", err)
			}
			op, err := entities.NewOperation(seq, entities.WorkCenterID(r[3]), setup, run)
			if err != nil {
				return nil, row.errorf("routings", err)
			}
			b := at(r[0], r[1])
			b.Operations = append(b.Operations, *op)
		}
	}

	boms := make([]*entities.BillOfMaterial, 0, len(order))
	for _, k := range order {
		b := byKey[k]
		validated, err := entities.NewBillOfMaterial(b.ParentID, b.Version, b.Components, b.Operations)
		if err != nil {
			return nil, fmt.Errorf("bom %s/%s: %w", k.parent, k.version, err)
		}
		boms = append(boms, validated)
	}
	return boms, nil
}

// LoadWorkCenters loads work centers from a CSV file
func (l *Loader) LoadWorkCenters(filename string) ([]*entities.WorkCenter, error) {
	rows, err := readRecords(filename, "work centers", workCentersHeader)
	if err != nil {
		return nil, err
	}

	var centers []*entities.WorkCenter
	for _, row := range rows {
		r := row.fields
		perDay, err := parseDecimal("hours_per_day", r[2])
		if err != nil {
			return nil, row.errorf("work centers", err)
		}
		perBucket, err := parseDecimal("bucket_hours", r[3])
		if err != nil {
			return nil, row.errorf("work centers", err)
		}
		wc, err := entities.NewWorkCenter(entities.WorkCenterID(r[0]), r[1], perDay, perBucket)
		if err != nil {
			return nil, row.errorf("work centers", err)
		}
		centers = append(centers, wc)
	}
	return centers, nil
}

// LoadCapacity loads explicit available hours per work center and bucket
func (l *Loader) LoadCapacity(filename string) ([]*entities.ResourceCapacity, error) {
	rows, err := readRecords(filename, "capacity", capacityHeader)
	if err != nil {
		return nil, err
	}

	var cells []*entities.ResourceCapacity
	for _, row := range rows {
		r := row.fields
		bucket, err := parseDate("bucket", r[1])
		if err != nil {
			return nil, row.errorf("capacity", err)
		}
		hours, err := parseDecimal("available_hours", r[2])
		if err != nil {
			return nil, row.errorf("capacity", err)
		}
		if hours.IsNegative() {
			return nil, row.errorf("capacity", fmt.Errorf("available_hours cannot be negative, got %s", hours))
		}
		cells = append(cells, &entities.ResourceCapacity{
			WorkCenterID:   entities.WorkCenterID(r[0]),
			Bucket:         bucket,
			AvailableHours: hours,
		})
	}
	return cells, nil
}

// LoadParameters loads MRP parameters from a CSV file
func (l *Loader) LoadParameters(filename string) ([]*entities.MRPParameter, error) {
	rows, err := readRecords(filename, "parameters", parametersHeader)
	if err != nil {
		return nil, err
	}

	var params []*entities.MRPParameter
	for _, row := range rows {
		r := row.fields
		ints := make([]int, 0, 4)
		for _, col := range []int{2, 4, 6, 7} {
			v, err := strconv.Atoi(r[col])
			if err != nil {
				return nil, row.errorf("parameters", fmt.Errorf("invalid %s: %s", parametersHeader[col], r[col]))
			}
			ints = append(ints, v)
		}
		ss, err := parseQuantity("safety_stock", r[3])
		if err != nil {
			return nil, row.errorf("parameters", err)
		}
		lot, err := entities.ParseLotSizingMethod(r[5])
		if err != nil {
			return nil, row.errorf("parameters", err)
		}
		p := &entities.MRPParameter{
			ItemID:                entities.ItemID(r[0]),
			WarehouseID:           entities.WarehouseID(r[1]),
			LeadTimeDays:          ints[0],
			SafetyStock:           ss,
			SafetyTimeDays:        ints[1],
			LotSizing:             lot,
			PlanningTimeFenceDays: ints[2],
			ServiceLevelPercent:   ints[3],
		}
		if err := p.Validate(); err != nil {
			return nil, row.errorf("parameters", err)
		}
		params = append(params, p)
	}
	return params, nil
}

// LoadInventory loads on-hand balances from a CSV file
func (l *Loader) LoadInventory(filename string) ([]*entities.OnHandBalance, error) {
	rows, err := readRecords(filename, "inventory", inventoryHeader)
	if err != nil {
		return nil, err
	}

	var balances []*entities.OnHandBalance
	for _, row := range rows {
		r := row.fields
		qty, err := parseQuantity("quantity", r[2])
		if err != nil {
			return nil, row.errorf("inventory", err)
		}
		b, err := entities.NewOnHandBalance(entities.ItemID(r[0]), entities.WarehouseID(r[1]), qty)
		if err != nil {
			return nil, row.errorf("inventory", err)
		}
		balances = append(balances, b)
	}
	return balances, nil
}

// LoadReceipts loads open purchase, work and transfer orders from a CSV file
func (l *Loader) LoadReceipts(filename string) ([]*entities.ScheduledReceipt, error) {
	rows, err := readRecords(filename, "receipts", receiptsHeader)
	if err != nil {
		return nil, err
	}

	var receipts []*entities.ScheduledReceipt
	for _, row := range rows {
		r := row.fields
		kind, err := parseSupplyKind(r[1])
		if err != nil {
			return nil, row.errorf("receipts", err)
		}
		due, err := parseDate("due_date", r[4])
		if err != nil {
			return nil, row.errorf("receipts", err)
		}
		qty, err := parseQuantity("quantity", r[5])
		if err != nil {
			return nil, row.errorf("receipts", err)
		}
		rec, err := entities.NewScheduledReceipt(r[0], kind, entities.ItemID(r[2]), entities.WarehouseID(r[3]), due, qty)
		if err != nil {
			return nil, row.errorf("receipts", err)
		}
		receipts = append(receipts, rec)
	}
	return receipts, nil
}

// LoadFirmedOrders loads planner-firmed planned orders from a CSV file
func (l *Loader) LoadFirmedOrders(filename string) ([]*entities.PlannedOrder, error) {
	rows, err := readRecords(filename, "firmed orders", firmedHeader)
	if err != nil {
		return nil, err
	}

	var orders []*entities.PlannedOrder
	for _, row := range rows {
		r := row.fields
		if r[0] == "" {
			return nil, row.errorf("firmed orders", fmt.Errorf("order_id cannot be empty"))
		}
		orderType, err := parseOrderType(r[3])
		if err != nil {
			return nil, row.errorf("firmed orders", err)
		}
		qty, err := parseQuantity("quantity", r[4])
		if err != nil {
			return nil, row.errorf("firmed orders", err)
		}
		due, err := parseDate("due_date", r[5])
		if err != nil {
			return nil, row.errorf("firmed orders", err)
		}
		lt, err := strconv.Atoi(r[6])
		if err != nil {
			return nil, row.errorf("firmed orders", fmt.Errorf("invalid lead_time_days: %s", r[6]))
		}
		o, err := entities.NewPlannedOrder(entities.ItemID(r[1]), entities.WarehouseID(r[2]), orderType, qty, due, lt, nil)
		if err != nil {
			return nil, row.errorf("firmed orders", err)
		}
		o.ID = r[0]
		o.Firmed = true
		orders = append(orders, o)
	}
	return orders, nil
}

// LoadDemands loads MPS entries, sales orders, forecasts and work-order demand from a CSV file
func (l *Loader) LoadDemands(filename string) ([]*entities.DemandRecord, error) {
	rows, err := readRecords(filename, "demands", demandsHeader)
	if err != nil {
		return nil, err
	}

	var demands []*entities.DemandRecord
	for _, row := range rows {
		r := row.fields
		source, err := entities.ParseDemandSource(r[1])
		if err != nil {
			return nil, row.errorf("demands", err)
		}
		date, err := parseDate("date", r[4])
		if err != nil {
			return nil, row.errorf("demands", err)
		}
		qty, err := parseQuantity("quantity", r[5])
		if err != nil {
			return nil, row.errorf("demands", err)
		}
		d, err := entities.NewDemandRecord(r[0], source, entities.ItemID(r[2]), entities.WarehouseID(r[3]), date, qty)
		if err != nil {
			return nil, row.errorf("demands", err)
		}
		demands = append(demands, d)
	}
	return demands, nil
}

// Helper functions for parsing CSV records

type record struct {
	line   int
	fields []string
}

func (r record) errorf(name string, err error) error {
	return fmt.Errorf("%s CSV row %d: %w", name, r.line, err)
}

// readRecords opens filename, validates its header and returns the trimmed data rows.
// A file with only a header yields no rows.
func readRecords(filename, name string, expectedHeader []string) ([]record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", name, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", name, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header", name)
	}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", name, expectedHeader, records[0])
	}

	rows := make([]record, 0, len(records)-1)
	for i, fields := range records[1:] {
		if len(fields) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", name, i+2, len(expectedHeader), len(fields))
		}
		for j := range fields {
			fields[j] = strings.TrimSpace(fields[j])
		}
		rows = append(rows, record{line: i + 2, fields: fields})
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseQuantity(column, s string) (entities.Quantity, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", column, s)
	}
	return entities.Quantity(v), nil
}

func parseDecimal(column, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", column, s)
	}
	return d, nil
}

func parseDate(column, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %s (expected YYYY-MM-DD)", column, s)
	}
	return t, nil
}

func parseSupplyKind(s string) (entities.SupplyKind, error) {
	switch strings.ToLower(s) {
	case "po", "purchaseorder", "purchase_order":
		return entities.PurchaseOrderSupply, nil
	case "wo", "workorder", "work_order":
		return entities.WorkOrderSupply, nil
	case "to", "transferorder", "transfer_order":
		return entities.TransferOrderSupply, nil
	default:
		return entities.PurchaseOrderSupply, fmt.Errorf("invalid kind: %s (expected: PO, WO, or TO)", s)
	}
}

func parseOrderType(s string) (entities.OrderType, error) {
	switch strings.ToLower(s) {
	case "purchase":
		return entities.Purchase, nil
	case "make":
		return entities.Make, nil
	case "transfer":
		return entities.Transfer, nil
	default:
		return entities.Purchase, fmt.Errorf("invalid order_type: %s (expected: Purchase, Make, or Transfer)", s)
	}
}
