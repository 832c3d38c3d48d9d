package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ParameterDelta overrides selected MRPParameter fields of one item in one warehouse.
// Nil fields keep the baseline value.
type ParameterDelta struct {
	ItemID                ItemID           `json:"item_id"`
	WarehouseID           WarehouseID      `json:"warehouse_id"`
	LeadTimeDays          *int             `json:"lead_time_days,omitempty"`
	SafetyStock           *Quantity        `json:"safety_stock,omitempty"`
	SafetyTimeDays        *int             `json:"safety_time_days,omitempty"`
	LotSizing             *LotSizingMethod `json:"lot_sizing,omitempty"`
	PlanningTimeFenceDays *int             `json:"planning_time_fence_days,omitempty"`
}

// Apply returns a copy of p with the delta applied
func (d ParameterDelta) Apply(p MRPParameter) MRPParameter {
	if d.LeadTimeDays != nil {
		p.LeadTimeDays = *d.LeadTimeDays
	}
	if d.SafetyStock != nil {
		p.SafetyStock = *d.SafetyStock
	}
	if d.SafetyTimeDays != nil {
		p.SafetyTimeDays = *d.SafetyTimeDays
	}
	if d.LotSizing != nil {
		p.LotSizing = *d.LotSizing
	}
	if d.PlanningTimeFenceDays != nil {
		p.PlanningTimeFenceDays = *d.PlanningTimeFenceDays
	}
	return p
}

// CapacityDelta overrides the available hours of a work center, optionally for one bucket only
type CapacityDelta struct {
	WorkCenterID   WorkCenterID    `json:"work_center_id"`
	Bucket         *time.Time      `json:"bucket,omitempty"`
	AvailableHours decimal.Decimal `json:"available_hours"`
}

// ScenarioDeltas is the full set of changes a what-if scenario applies to its baseline
type ScenarioDeltas struct {
	Parameters []ParameterDelta `json:"parameters"`
	Capacity   []CapacityDelta  `json:"capacity"`
}

// Validate checks that every delta names its target
func (d ScenarioDeltas) Validate() error {
	for i, p := range d.Parameters {
		if p.ItemID == "" || p.WarehouseID == "" {
			return fmt.Errorf("parameter delta %d: item and warehouse are required", i)
		}
		if p.LotSizing != nil {
			if err := p.LotSizing.Validate(); err != nil {
				return fmt.Errorf("parameter delta %d: %w", i, err)
			}
		}
	}
	for i, c := range d.Capacity {
		if c.WorkCenterID == "" {
			return fmt.Errorf("capacity delta %d: work center is required", i)
		}
		if c.AvailableHours.IsNegative() {
			return fmt.Errorf("capacity delta %d: available hours cannot be negative", i)
		}
	}
	return nil
}

// WhatIfScenario is an isolated re-plan of a baseline run with modified inputs
type WhatIfScenario struct {
	ID            string         `json:"id"`
	BaselineRunID string         `json:"baseline_run_id"`
	RunID         string         `json:"run_id"`
	Deltas        ScenarioDeltas `json:"deltas"`
	CreatedAt     time.Time      `json:"created_at"`
}
