package dto

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// Snapshot is the immutable input of one run, read once when the run starts
type Snapshot struct {
	TakenAt      time.Time
	Items        map[entities.ItemID]entities.Item
	BOMs         map[entities.ItemID]entities.BillOfMaterial
	Parameters   map[entities.PlanningKey]entities.MRPParameter
	OnHand       map[entities.PlanningKey]entities.Quantity
	Receipts     map[entities.PlanningKey][]entities.ScheduledReceipt
	FirmedOrders []entities.PlannedOrder
	Demands      []entities.DemandRecord
	WorkCenters  map[entities.WorkCenterID]entities.WorkCenter
	Capacity     map[entities.CellKey]decimal.Decimal
}

// NewSnapshot returns an empty snapshot with all maps allocated
func NewSnapshot(takenAt time.Time) *Snapshot {
	return &Snapshot{
		TakenAt:     takenAt,
		Items:       make(map[entities.ItemID]entities.Item),
		BOMs:        make(map[entities.ItemID]entities.BillOfMaterial),
		Parameters:  make(map[entities.PlanningKey]entities.MRPParameter),
		OnHand:      make(map[entities.PlanningKey]entities.Quantity),
		Receipts:    make(map[entities.PlanningKey][]entities.ScheduledReceipt),
		WorkCenters: make(map[entities.WorkCenterID]entities.WorkCenter),
		Capacity:    make(map[entities.CellKey]decimal.Decimal),
	}
}

// Clone deep-copies the snapshot
func (s *Snapshot) Clone() *Snapshot {
	out := NewSnapshot(s.TakenAt)
	for k, v := range s.Items {
		out.Items[k] = v
	}
	for k, v := range s.BOMs {
		out.BOMs[k] = v.Clone()
	}
	for k, v := range s.Parameters {
		out.Parameters[k] = v
	}
	for k, v := range s.OnHand {
		out.OnHand[k] = v
	}
	for k, v := range s.Receipts {
		out.Receipts[k] = append([]entities.ScheduledReceipt(nil), v...)
	}
	out.FirmedOrders = make([]entities.PlannedOrder, 0, len(s.FirmedOrders))
	for _, o := range s.FirmedOrders {
		out.FirmedOrders = append(out.FirmedOrders, o.Clone())
	}
	out.Demands = append([]entities.DemandRecord(nil), s.Demands...)
	for k, v := range s.WorkCenters {
		out.WorkCenters[k] = v
	}
	for k, v := range s.Capacity {
		out.Capacity[k] = v
	}
	return out
}

// FirmedOrdersFor returns the firmed orders of one planning key ordered by due date
func (s *Snapshot) FirmedOrdersFor(key entities.PlanningKey) []entities.PlannedOrder {
	var out []entities.PlannedOrder
	for _, o := range s.FirmedOrders {
		if o.Key() == key {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MaxLeadTime returns the longest lead time of an item over all warehouses
func (s *Snapshot) MaxLeadTime(item entities.ItemID) int {
	longest := 0
	for key, p := range s.Parameters {
		if key.ItemID == item && p.LeadTimeDays > longest {
			longest = p.LeadTimeDays
		}
	}
	return longest
}
