package entities

import "fmt"

// ItemID represents a unique item identifier
type ItemID string

// WarehouseID identifies the stocking location an item is planned for
type WarehouseID string

// Quantity represents an integer quantity value for discrete manufacturing units
type Quantity int64

// RoundUpTo rounds q up to the next multiple of unit. Units below 2 leave q unchanged.
func (q Quantity) RoundUpTo(unit Quantity) Quantity {
	if unit <= 1 || q <= 0 {
		return q
	}
	if rem := q % unit; rem != 0 {
		return q + unit - rem
	}
	return q
}

// ProcurementType decides which kind of planned order replenishes an item
type ProcurementType int

const (
	Buy ProcurementType = iota
	Manufacture
	TransferIn
)

// String method for ProcurementType enum
func (p ProcurementType) String() string {
	switch p {
	case Buy:
		return "Buy"
	case Manufacture:
		return "Manufacture"
	case TransferIn:
		return "Transfer"
	default:
		return "Unknown"
	}
}

// ParseProcurementType converts a textual procurement type into its enum value
func ParseProcurementType(s string) (ProcurementType, error) {
	switch s {
	case "Buy", "buy", "":
		return Buy, nil
	case "Manufacture", "manufacture", "Make", "make":
		return Manufacture, nil
	case "Transfer", "transfer":
		return TransferIn, nil
	default:
		return Buy, fmt.Errorf("unknown procurement type: %s", s)
	}
}

// OrderType returns the planned order type that replenishes this procurement type
func (p ProcurementType) OrderType() OrderType {
	switch p {
	case Manufacture:
		return Make
	case TransferIn:
		return Transfer
	default:
		return Purchase
	}
}

// Item represents item master data as seen by the planning engine
type Item struct {
	ID            ItemID          `json:"id"`
	Description   string          `json:"description"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	OrderableUnit Quantity        `json:"orderable_unit"` // smallest orderable unit
	Procurement   ProcurementType `json:"procurement"`
}

// NewItem creates a validated Item
func NewItem(id ItemID, description, uom string, orderableUnit Quantity, procurement ProcurementType) (*Item, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if orderableUnit < 0 {
		return nil, fmt.Errorf("orderable unit cannot be negative, got %d", orderableUnit)
	}
	if orderableUnit == 0 {
		orderableUnit = 1
	}
	if uom == "" {
		uom = "EA"
	}

	return &Item{
		ID:            id,
		Description:   description,
		UnitOfMeasure: uom,
		OrderableUnit: orderableUnit,
		Procurement:   procurement,
	}, nil
}
