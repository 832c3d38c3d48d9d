package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// TraceEntry records one item netted during explosion, in processing order
type TraceEntry struct {
	Tree         int                  `json:"tree"`
	Sequence     int                  `json:"sequence"`
	ItemID       entities.ItemID      `json:"item_id"`
	WarehouseID  entities.WarehouseID `json:"warehouse_id"`
	LowLevelCode int                  `json:"low_level_code"`
}

// PlanResult is the full output of a run's pipeline
type PlanResult struct {
	Run             entities.MRPRun              `json:"run"`
	Orders          []entities.PlannedOrder      `json:"planned_orders"`
	Exceptions      []entities.PlanningException `json:"exceptions"`
	Capacity        []entities.ResourceCapacity  `json:"capacity"`
	NetRequirements []entities.NetRequirement    `json:"net_requirements"`
	Trace           []TraceEntry                 `json:"trace"`
	CriticalPath    entities.CriticalPath        `json:"critical_path"`
	Duration        time.Duration                `json:"duration"`
}

// CapacityRow is one (work center, bucket) line of a capacity analysis
type CapacityRow struct {
	WorkCenterID   entities.WorkCenterID `json:"work_center_id"`
	Bucket         time.Time             `json:"bucket"`
	AvailableHours decimal.Decimal       `json:"available_hours"`
	AllocatedHours decimal.Decimal       `json:"allocated_hours"`
	Utilization    decimal.Decimal       `json:"utilization_percent"`
	ExcessHours    decimal.Decimal       `json:"excess_hours"`
	Overloaded     bool                  `json:"overloaded"`
}

// CapacityReport answers analyze_capacity for one run
type CapacityReport struct {
	RunID          string        `json:"run_id"`
	Rows           []CapacityRow `json:"rows"`
	OverloadedRows int           `json:"overloaded_rows"`
}

// NewCapacityRow derives the reporting fields of a capacity cell
func NewCapacityRow(c entities.ResourceCapacity) CapacityRow {
	return CapacityRow{
		WorkCenterID:   c.WorkCenterID,
		Bucket:         c.Bucket,
		AvailableHours: c.AvailableHours,
		AllocatedHours: c.AllocatedHours,
		Utilization:    c.Utilization(),
		ExcessHours:    c.Excess(),
		Overloaded:     c.Overloaded(),
	}
}
