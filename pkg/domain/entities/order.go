package entities

import (
	"fmt"
	"time"
)

// OrderType represents the type of planned order
type OrderType int

const (
	Purchase OrderType = iota
	Make
	Transfer
)

// String method for OrderType enum
func (o OrderType) String() string {
	switch o {
	case Purchase:
		return "Purchase"
	case Make:
		return "Make"
	case Transfer:
		return "Transfer"
	default:
		return "Unknown"
	}
}

// PlannedOrderStatus is the lifecycle state of a planned order
type PlannedOrderStatus int

const (
	OrderOpen PlannedOrderStatus = iota
	OrderReleased
	OrderConverted
	OrderCancelled
)

// String method for PlannedOrderStatus enum
func (s PlannedOrderStatus) String() string {
	switch s {
	case OrderOpen:
		return "Open"
	case OrderReleased:
		return "Released"
	case OrderConverted:
		return "Converted"
	case OrderCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// CanTransition reports whether a planned order may move from s to next
func (s PlannedOrderStatus) CanTransition(next PlannedOrderStatus) bool {
	switch s {
	case OrderOpen:
		return next == OrderReleased || next == OrderCancelled
	case OrderReleased:
		return next == OrderConverted || next == OrderCancelled
	case OrderConverted, OrderCancelled:
		return false
	default:
		return false
	}
}

// PlannedOrder represents a planned manufacturing, procurement or transfer order
type PlannedOrder struct {
	ID                   string             `json:"id"`
	RunID                string             `json:"run_id"`
	ItemID               ItemID             `json:"item_id"`
	WarehouseID          WarehouseID        `json:"warehouse_id"`
	OrderType            OrderType          `json:"order_type"`
	Quantity             Quantity           `json:"quantity"`
	StartDate            time.Time          `json:"start_date"`
	DueDate              time.Time          `json:"due_date"`
	LeadTimeDays         int                `json:"lead_time_days"`
	SourceDemandIDs      []string           `json:"source_demand_ids"`
	Firmed               bool               `json:"firmed"`
	RequiresConfirmation bool               `json:"requires_confirmation"`
	Status               PlannedOrderStatus `json:"status"`
	ConvertedType        string             `json:"converted_type,omitempty"`
	ConvertedID          string             `json:"converted_id,omitempty"`
}

// NewPlannedOrder creates a validated open PlannedOrder; the start date is derived
// from the due date and lead time.
func NewPlannedOrder(
	itemID ItemID,
	warehouse WarehouseID,
	orderType OrderType,
	quantity Quantity,
	dueDate time.Time,
	leadTimeDays int,
	sourceDemandIDs []string,
) (*PlannedOrder, error) {
	if string(itemID) == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if string(warehouse) == "" {
		return nil, fmt.Errorf("warehouse cannot be empty")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if leadTimeDays < 0 {
		return nil, fmt.Errorf("lead time cannot be negative, got %d", leadTimeDays)
	}

	return &PlannedOrder{
		ItemID:          itemID,
		WarehouseID:     warehouse,
		OrderType:       orderType,
		Quantity:        quantity,
		StartDate:       dueDate.AddDate(0, 0, -leadTimeDays),
		DueDate:         dueDate,
		LeadTimeDays:    leadTimeDays,
		SourceDemandIDs: append([]string(nil), sourceDemandIDs...),
		Status:          OrderOpen,
	}, nil
}

// Key returns the planning key of the order
func (o PlannedOrder) Key() PlanningKey {
	return PlanningKey{ItemID: o.ItemID, WarehouseID: o.WarehouseID}
}

// Transition moves the order to next or returns ErrInvalidTransition
func (o *PlannedOrder) Transition(next PlannedOrderStatus) error {
	if !o.Status.CanTransition(next) {
		return fmt.Errorf("%w: planned order %s %s -> %s", ErrInvalidTransition, o.ID, o.Status, next)
	}
	o.Status = next
	return nil
}

// Convert links a released order to the real purchase or work order created from it
func (o *PlannedOrder) Convert(convertedType, convertedID string) error {
	if convertedID == "" {
		return fmt.Errorf("converted id cannot be empty")
	}
	if err := o.Transition(OrderConverted); err != nil {
		return err
	}
	o.ConvertedType = convertedType
	o.ConvertedID = convertedID
	return nil
}

// Clone returns a deep copy of the order
func (o PlannedOrder) Clone() PlannedOrder {
	out := o
	out.SourceDemandIDs = append([]string(nil), o.SourceDemandIDs...)
	return out
}
