package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BOMComponent represents a single component line of a bill of material
type BOMComponent struct {
	ItemID       ItemID          `json:"item_id"`
	QuantityPer  decimal.Decimal `json:"quantity_per"`
	Unit         string          `json:"unit"`
	ScrapPercent decimal.Decimal `json:"scrap_percent"`
}

// NewBOMComponent creates a validated BOMComponent
func NewBOMComponent(itemID ItemID, qtyPer decimal.Decimal, unit string, scrapPercent decimal.Decimal) (*BOMComponent, error) {
	if string(itemID) == "" {
		return nil, fmt.Errorf("component item id cannot be empty")
	}
	if !qtyPer.IsPositive() {
		return nil, fmt.Errorf("quantity per must be positive, got %s", qtyPer)
	}
	if scrapPercent.IsNegative() || scrapPercent.GreaterThanOrEqual(hundred) {
		return nil, fmt.Errorf("scrap percent must be in [0, 100), got %s", scrapPercent)
	}

	return &BOMComponent{
		ItemID:       itemID,
		QuantityPer:  qtyPer,
		Unit:         unit,
		ScrapPercent: scrapPercent,
	}, nil
}

// GrossFor returns the component quantity needed to build parentQty units of the parent:
// parentQty × quantity-per ÷ (1 − scrap), rounded up to the component's orderable unit.
func (c BOMComponent) GrossFor(parentQty Quantity, orderableUnit Quantity) Quantity {
	if parentQty <= 0 {
		return 0
	}
	yield := decimal.NewFromInt(1).Sub(c.ScrapPercent.Div(hundred))
	raw := decimal.NewFromInt(int64(parentQty)).Mul(c.QuantityPer).Div(yield)
	return Quantity(raw.Ceil().IntPart()).RoundUpTo(orderableUnit)
}

// Operation represents one routing step of a bill of material
type Operation struct {
	Sequence        int             `json:"sequence"`
	WorkCenterID    WorkCenterID    `json:"work_center_id"`
	SetupHours      decimal.Decimal `json:"setup_hours"`
	RunHoursPerUnit decimal.Decimal `json:"run_hours_per_unit"`
}

// NewOperation creates a validated Operation
func NewOperation(sequence int, workCenter WorkCenterID, setupHours, runHours decimal.Decimal) (*Operation, error) {
	if sequence <= 0 {
		return nil, fmt.Errorf("operation sequence must be positive, got %d", sequence)
	}
	if string(workCenter) == "" {
		return nil, fmt.Errorf("work center cannot be empty")
	}
	if setupHours.IsNegative() || runHours.IsNegative() {
		return nil, fmt.Errorf("operation hours cannot be negative")
	}

	return &Operation{
		Sequence:        sequence,
		WorkCenterID:    workCenter,
		SetupHours:      setupHours,
		RunHoursPerUnit: runHours,
	}, nil
}

// RequiredHours is setup plus run time for the given quantity
func (o Operation) RequiredHours(qty Quantity) decimal.Decimal {
	return o.SetupHours.Add(o.RunHoursPerUnit.Mul(decimal.NewFromInt(int64(qty))))
}

// BillOfMaterial is the versioned recipe of a parent item
type BillOfMaterial struct {
	ParentID   ItemID         `json:"parent_id"`
	Version    string         `json:"version"`
	Components []BOMComponent `json:"components"`
	Operations []Operation    `json:"operations"`
}

// NewBillOfMaterial creates a validated BillOfMaterial
func NewBillOfMaterial(parentID ItemID, version string, components []BOMComponent, operations []Operation) (*BillOfMaterial, error) {
	if string(parentID) == "" {
		return nil, fmt.Errorf("parent item id cannot be empty")
	}
	if version == "" {
		return nil, fmt.Errorf("bom version cannot be empty")
	}
	seen := make(map[ItemID]bool, len(components))
	for _, c := range components {
		if seen[c.ItemID] {
			return nil, fmt.Errorf("duplicate component %s in bom %s/%s", c.ItemID, parentID, version)
		}
		seen[c.ItemID] = true
	}

	return &BillOfMaterial{
		ParentID:   parentID,
		Version:    version,
		Components: components,
		Operations: operations,
	}, nil
}

// Clone returns a deep copy of the bill of material
func (b BillOfMaterial) Clone() BillOfMaterial {
	out := b
	out.Components = append([]BOMComponent(nil), b.Components...)
	out.Operations = append([]Operation(nil), b.Operations...)
	return out
}
