package entities

import (
	"fmt"
	"time"
)

// SupplyKind represents the origin of an open supply order
type SupplyKind int

const (
	PurchaseOrderSupply SupplyKind = iota
	WorkOrderSupply
	TransferOrderSupply
)

// String method for SupplyKind enum
func (k SupplyKind) String() string {
	switch k {
	case PurchaseOrderSupply:
		return "PurchaseOrder"
	case WorkOrderSupply:
		return "WorkOrder"
	case TransferOrderSupply:
		return "TransferOrder"
	default:
		return "Unknown"
	}
}

// OnHandBalance is the unrestricted stock of an item in a warehouse
type OnHandBalance struct {
	ItemID      ItemID      `json:"item_id"`
	WarehouseID WarehouseID `json:"warehouse_id"`
	Quantity    Quantity    `json:"quantity"`
}

// NewOnHandBalance creates a validated OnHandBalance
func NewOnHandBalance(itemID ItemID, warehouse WarehouseID, qty Quantity) (*OnHandBalance, error) {
	if string(itemID) == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if string(warehouse) == "" {
		return nil, fmt.Errorf("warehouse cannot be empty")
	}
	if qty < 0 {
		return nil, fmt.Errorf("quantity cannot be negative, got %d", qty)
	}
	return &OnHandBalance{ItemID: itemID, WarehouseID: warehouse, Quantity: qty}, nil
}

// ScheduledReceipt is open supply already on the books: a released PO, WO or transfer
type ScheduledReceipt struct {
	ID          string      `json:"id"`
	Kind        SupplyKind  `json:"kind"`
	ItemID      ItemID      `json:"item_id"`
	WarehouseID WarehouseID `json:"warehouse_id"`
	DueDate     time.Time   `json:"due_date"`
	Quantity    Quantity    `json:"quantity"`
}

// NewScheduledReceipt creates a validated ScheduledReceipt
func NewScheduledReceipt(id string, kind SupplyKind, itemID ItemID, warehouse WarehouseID, due time.Time, qty Quantity) (*ScheduledReceipt, error) {
	if id == "" {
		return nil, fmt.Errorf("receipt id cannot be empty")
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
	return &ScheduledReceipt{ID: id, Kind: kind, ItemID: itemID, WarehouseID: warehouse, DueDate: due, Quantity: qty}, nil
}
