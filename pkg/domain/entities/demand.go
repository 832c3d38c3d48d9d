package entities

import (
	"fmt"
	"time"
)

// DemandSource classifies where a demand record comes from
type DemandSource int

const (
	MasterSchedule DemandSource = iota
	SalesOrder
	Forecast
	WorkOrder
	Dependent
)

// String method for DemandSource enum
func (s DemandSource) String() string {
	switch s {
	case MasterSchedule:
		return "MPS"
	case SalesOrder:
		return "SalesOrder"
	case Forecast:
		return "Forecast"
	case WorkOrder:
		return "WorkOrder"
	case Dependent:
		return "Dependent"
	default:
		return "Unknown"
	}
}

// ParseDemandSource converts a textual source into its enum value
func ParseDemandSource(s string) (DemandSource, error) {
	switch s {
	case "MPS", "mps":
		return MasterSchedule, nil
	case "SalesOrder", "sales_order", "SO":
		return SalesOrder, nil
	case "Forecast", "forecast", "FC":
		return Forecast, nil
	case "WorkOrder", "work_order", "WO":
		return WorkOrder, nil
	default:
		return MasterSchedule, fmt.Errorf("unknown demand source: %s", s)
	}
}

// DemandRecord is one independent demand line read from the demand repository.
// MPS entries are demand records with the MasterSchedule source.
type DemandRecord struct {
	ID          string       `json:"id"`
	Source      DemandSource `json:"source"`
	ItemID      ItemID       `json:"item_id"`
	WarehouseID WarehouseID  `json:"warehouse_id"`
	Date        time.Time    `json:"date"`
	Quantity    Quantity     `json:"quantity"`
}

// NewDemandRecord creates a validated DemandRecord
func NewDemandRecord(id string, source DemandSource, itemID ItemID, warehouse WarehouseID, date time.Time, qty Quantity) (*DemandRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("demand id cannot be empty")
	}
	if string(itemID) == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if string(warehouse) == "" {
		return nil, fmt.Errorf("warehouse cannot be empty")
	}
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", qty)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("demand date cannot be empty")
	}

	return &DemandRecord{
		ID:          id,
		Source:      source,
		ItemID:      itemID,
		WarehouseID: warehouse,
		Date:        date,
		Quantity:    qty,
	}, nil
}

// GrossRequirement represents a dated requirement before netting, independent or dependent
type GrossRequirement struct {
	ItemID          ItemID       `json:"item_id"`
	WarehouseID     WarehouseID  `json:"warehouse_id"`
	Date            time.Time    `json:"date"`
	Quantity        Quantity     `json:"quantity"`
	Source          DemandSource `json:"source"`
	SourceDemandIDs []string     `json:"source_demand_ids"`
}

// Key returns the planning key of the requirement
func (g GrossRequirement) Key() PlanningKey {
	return PlanningKey{ItemID: g.ItemID, WarehouseID: g.WarehouseID}
}

// NetRequirement is the netting result of one item in one bucket
type NetRequirement struct {
	ItemID          ItemID      `json:"item_id"`
	WarehouseID     WarehouseID `json:"warehouse_id"`
	Bucket          time.Time   `json:"bucket"`
	Gross           Quantity    `json:"gross"`
	Receipts        Quantity    `json:"receipts"`
	ProjectedBefore Quantity    `json:"projected_before"`
	Net             Quantity    `json:"net"`
	Planned         Quantity    `json:"planned"`
	ProjectedAfter  Quantity    `json:"projected_after"`
	SourceDemandIDs []string    `json:"source_demand_ids"`
}
