package entities

import (
	"fmt"
	"strconv"
	"strings"
)

// LotSizingKind selects the lot sizing rule for an item
type LotSizingKind int

const (
	LotForLot LotSizingKind = iota
	FixedOrderQuantity
	MinMaxMultiple
	PeriodOrderQuantity
)

// String method for LotSizingKind enum
func (k LotSizingKind) String() string {
	switch k {
	case LotForLot:
		return "LotForLot"
	case FixedOrderQuantity:
		return "FixedOrderQuantity"
	case MinMaxMultiple:
		return "MinMaxMultiple"
	case PeriodOrderQuantity:
		return "PeriodOrderQuantity"
	default:
		return "Unknown"
	}
}

// LotSizingMethod is a lot sizing rule together with its arguments
type LotSizingMethod struct {
	Kind     LotSizingKind `json:"kind"`
	FixedQty Quantity      `json:"fixed_qty,omitempty"`
	Min      Quantity      `json:"min,omitempty"`
	Max      Quantity      `json:"max,omitempty"`
	Multiple Quantity      `json:"multiple,omitempty"`
	Periods  int           `json:"periods,omitempty"`
}

// Validate checks the arguments of the lot sizing method
func (m LotSizingMethod) Validate() error {
	switch m.Kind {
	case LotForLot:
		return nil
	case FixedOrderQuantity:
		if m.FixedQty <= 0 {
			return fmt.Errorf("fixed order quantity must be positive, got %d", m.FixedQty)
		}
	case MinMaxMultiple:
		if m.Min < 0 || m.Multiple < 0 {
			return fmt.Errorf("min and multiple cannot be negative")
		}
		if m.Max <= 0 || m.Max < m.Min {
			return fmt.Errorf("max must be positive and >= min, got min=%d max=%d", m.Min, m.Max)
		}
	case PeriodOrderQuantity:
		if m.Periods <= 0 {
			return fmt.Errorf("period order quantity periods must be positive, got %d", m.Periods)
		}
	default:
		return fmt.Errorf("unknown lot sizing kind %d", m.Kind)
	}
	return nil
}

// String renders the method in the same form ParseLotSizingMethod accepts
func (m LotSizingMethod) String() string {
	switch m.Kind {
	case FixedOrderQuantity:
		return fmt.Sprintf("FOQ:%d", m.FixedQty)
	case MinMaxMultiple:
		return fmt.Sprintf("MMM:%d:%d:%d", m.Min, m.Max, m.Multiple)
	case PeriodOrderQuantity:
		return fmt.Sprintf("POQ:%d", m.Periods)
	default:
		return "L4L"
	}
}

// ParseLotSizingMethod parses "L4L", "FOQ:50", "MMM:10:500:10" or "POQ:3"
func ParseLotSizingMethod(s string) (LotSizingMethod, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	args := make([]int64, 0, len(parts)-1)
	for _, p := range parts[1:] {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return LotSizingMethod{}, fmt.Errorf("invalid lot sizing argument %q in %q", p, s)
		}
		args = append(args, v)
	}

	var m LotSizingMethod
	switch strings.ToUpper(parts[0]) {
	case "", "L4L", "LOTFORLOT":
		m = LotSizingMethod{Kind: LotForLot}
	case "FOQ", "FIXEDORDERQUANTITY":
		if len(args) != 1 {
			return m, fmt.Errorf("FOQ expects 1 argument, got %d", len(args))
		}
		m = LotSizingMethod{Kind: FixedOrderQuantity, FixedQty: Quantity(args[0])}
	case "MMM", "MINMAXMULTIPLE":
		if len(args) != 3 {
			return m, fmt.Errorf("MMM expects 3 arguments, got %d", len(args))
		}
		m = LotSizingMethod{Kind: MinMaxMultiple, Min: Quantity(args[0]), Max: Quantity(args[1]), Multiple: Quantity(args[2])}
	case "POQ", "PERIODORDERQUANTITY":
		if len(args) != 1 {
			return m, fmt.Errorf("POQ expects 1 argument, got %d", len(args))
		}
		m = LotSizingMethod{Kind: PeriodOrderQuantity, Periods: int(args[0])}
	default:
		return m, fmt.Errorf("unknown lot sizing method: %s", s)
	}
	return m, m.Validate()
}

// OrderPolicy controls scheduling direction for an item
type OrderPolicy int

const (
	Backward OrderPolicy = iota
	Forward
)

// String method for OrderPolicy enum
func (p OrderPolicy) String() string {
	switch p {
	case Backward:
		return "Backward"
	case Forward:
		return "Forward"
	default:
		return "Unknown"
	}
}

// MRPParameter holds the planning parameters of one item in one warehouse
type MRPParameter struct {
	ItemID                ItemID          `json:"item_id"`
	WarehouseID           WarehouseID     `json:"warehouse_id"`
	LeadTimeDays          int             `json:"lead_time_days"`
	SafetyStock           Quantity        `json:"safety_stock"`
	SafetyTimeDays        int             `json:"safety_time_days"`
	LotSizing             LotSizingMethod `json:"lot_sizing"`
	OrderPolicy           OrderPolicy     `json:"order_policy"`
	PlanningTimeFenceDays int             `json:"planning_time_fence_days"`
	ServiceLevelPercent   int             `json:"service_level_percent"`
}

// Validate checks an MRPParameter for consistency
func (p MRPParameter) Validate() error {
	if string(p.ItemID) == "" {
		return fmt.Errorf("item id cannot be empty")
	}
	if string(p.WarehouseID) == "" {
		return fmt.Errorf("warehouse cannot be empty")
	}
	if p.LeadTimeDays < 0 {
		return fmt.Errorf("lead time cannot be negative, got %d", p.LeadTimeDays)
	}
	if p.SafetyStock < 0 {
		return fmt.Errorf("safety stock cannot be negative, got %d", p.SafetyStock)
	}
	if p.SafetyTimeDays < 0 || p.PlanningTimeFenceDays < 0 {
		return fmt.Errorf("safety time and time fence cannot be negative")
	}
	if p.ServiceLevelPercent < 0 || p.ServiceLevelPercent > 100 {
		return fmt.Errorf("service level must be in [0, 100], got %d", p.ServiceLevelPercent)
	}
	return p.LotSizing.Validate()
}

// PlanningKey identifies an item in a warehouse, the unit netting works on
type PlanningKey struct {
	ItemID      ItemID
	WarehouseID WarehouseID
}

func (k PlanningKey) String() string {
	return string(k.ItemID) + "@" + string(k.WarehouseID)
}
