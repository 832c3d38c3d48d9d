package scheduling

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
)

var hundred = decimal.NewFromInt(100)

// Guard offsets orders by lead time and applies the planning time fence relative to the run date
type Guard struct {
	runDate          time.Time
	tolerancePercent decimal.Decimal
}

// NewGuard creates a guard for one run. tolerancePercent bounds how far a firmed order may
// differ from the computed requirement before a FirmOrderConflict is raised.
func NewGuard(runDate time.Time, tolerancePercent decimal.Decimal) *Guard {
	return &Guard{runDate: services.Day(runDate), tolerancePercent: tolerancePercent}
}

// RunDate returns the day the fence is measured from
func (g *Guard) RunDate() time.Time {
	return g.runDate
}

// Schedule is the dated placement of an order derived from its need date
type Schedule struct {
	NeedDate             time.Time
	DueDate              time.Time
	StartDate            time.Time
	RequiresConfirmation bool
	Late                 bool
}

// FenceEnd returns the first day outside the item's planning time fence
func (g *Guard) FenceEnd(p entities.MRPParameter) time.Time {
	return g.runDate.AddDate(0, 0, p.PlanningTimeFenceDays)
}

// NeedDateBoundary returns the first need date whose order would start outside the fence.
// Period order quantity must not pull requirements across it.
func (g *Guard) NeedDateBoundary(p entities.MRPParameter) time.Time {
	return g.FenceEnd(p).AddDate(0, 0, p.LeadTimeDays+p.SafetyTimeDays)
}

// Schedule computes due and start dates for a requirement needed on needDate
func (g *Guard) Schedule(needDate time.Time, p entities.MRPParameter) Schedule {
	need := services.Day(needDate)
	due := need.AddDate(0, 0, -p.SafetyTimeDays)
	start := due.AddDate(0, 0, -p.LeadTimeDays)
	return Schedule{
		NeedDate:             need,
		DueDate:              due,
		StartDate:            start,
		RequiresConfirmation: start.Before(g.FenceEnd(p)),
		Late:                 start.Before(g.runDate),
	}
}

// InFence reports whether an order starting at start lies inside the planning time fence
func (g *Guard) InFence(start time.Time, p entities.MRPParameter) bool {
	return services.Day(start).Before(g.FenceEnd(p))
}

// LateOrder builds the exception for an order that should already have started
func (g *Guard) LateOrder(order entities.PlannedOrder) entities.PlanningException {
	days := services.DaysBetween(order.StartDate, g.runDate)
	return entities.PlanningException{
		Type:        entities.LateOrder,
		Severity:    entities.LateOrder.DefaultSeverity(),
		ItemID:      order.ItemID,
		WarehouseID: order.WarehouseID,
		Bucket:      order.DueDate,
		Quantity:    decimal.NewFromInt(int64(order.Quantity)),
		OrderID:     order.ID,
		Message:     fmt.Sprintf("order for %d %s should have started %d day(s) before run date", order.Quantity, order.ItemID, days),
	}
}

// CheckFirmed compares a firmed order with the quantity the plan computes for its bucket.
// It returns nil when the firmed order lies outside the fence or the difference stays within
// tolerance.
func (g *Guard) CheckFirmed(order entities.PlannedOrder, required entities.Quantity, p entities.MRPParameter) *entities.PlanningException {
	if !g.InFence(order.StartDate, p) {
		return nil
	}
	firmed := decimal.NewFromInt(int64(order.Quantity))
	diff := decimal.NewFromInt(int64(required - order.Quantity)).Abs()
	limit := firmed.Mul(g.tolerancePercent).Div(hundred)
	if !diff.GreaterThan(limit) {
		return nil
	}
	return &entities.PlanningException{
		Type:        entities.FirmOrderConflict,
		Severity:    entities.FirmOrderConflict.DefaultSeverity(),
		ItemID:      order.ItemID,
		WarehouseID: order.WarehouseID,
		Bucket:      order.DueDate,
		Quantity:    diff,
		OrderID:     order.ID,
		Message: fmt.Sprintf("firmed order %s holds %d but plan requires %d (tolerance %s%%)",
			order.ID, order.Quantity, required, g.tolerancePercent.String()),
	}
}
