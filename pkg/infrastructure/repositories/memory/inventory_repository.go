package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

// InventoryRepository provides in-memory on-hand, open supply and firmed orders
type InventoryRepository struct {
	onHand   map[entities.PlanningKey]entities.Quantity
	receipts []entities.ScheduledReceipt
	// receiptIndex groups receipts by item and warehouse
	receiptIndex map[entities.PlanningKey][]int
	firmed       []entities.PlannedOrder
}

// NewInventoryRepository creates a new in-memory inventory repository
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		onHand:       make(map[entities.PlanningKey]entities.Quantity),
		receiptIndex: make(map[entities.PlanningKey][]int),
	}
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

// LoadOnHand adds balances; repeated balances for the same key are summed
func (r *InventoryRepository) LoadOnHand(balances []*entities.OnHandBalance) error {
	for _, b := range balances {
		if b.Quantity < 0 {
			return fmt.Errorf("on-hand for %s@%s cannot be negative", b.ItemID, b.WarehouseID)
		}
		key := entities.PlanningKey{ItemID: b.ItemID, WarehouseID: b.WarehouseID}
		r.onHand[key] += b.Quantity
	}
	return nil
}

// LoadScheduledReceipts adds open supply orders
func (r *InventoryRepository) LoadScheduledReceipts(receipts []*entities.ScheduledReceipt) error {
	for _, rec := range receipts {
		key := entities.PlanningKey{ItemID: rec.ItemID, WarehouseID: rec.WarehouseID}
		r.receiptIndex[key] = append(r.receiptIndex[key], len(r.receipts))
		r.receipts = append(r.receipts, *rec)
	}
	return nil
}

// LoadFirmedOrders adds planner-firmed planned orders
func (r *InventoryRepository) LoadFirmedOrders(orders []*entities.PlannedOrder) error {
	for _, o := range orders {
		if !o.Firmed {
			return fmt.Errorf("planned order %s is not firmed", o.ID)
		}
		r.firmed = append(r.firmed, o.Clone())
	}
	return nil
}

// GetOnHand returns the on-hand balance, zero when none is recorded
func (r *InventoryRepository) GetOnHand(item entities.ItemID, warehouse entities.WarehouseID) (entities.Quantity, error) {
	return r.onHand[entities.PlanningKey{ItemID: item, WarehouseID: warehouse}], nil
}

// GetAllOnHand returns every balance ordered by item and warehouse
func (r *InventoryRepository) GetAllOnHand() ([]*entities.OnHandBalance, error) {
	out := make([]*entities.OnHandBalance, 0, len(r.onHand))
	for key, qty := range r.onHand {
		out = append(out, &entities.OnHandBalance{ItemID: key.ItemID, WarehouseID: key.WarehouseID, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		return out[i].WarehouseID < out[j].WarehouseID
	})
	return out, nil
}

// GetScheduledReceipts returns open supply due in [from, to]
func (r *InventoryRepository) GetScheduledReceipts(
	item entities.ItemID,
	warehouse entities.WarehouseID,
	from, to time.Time,
) ([]*entities.ScheduledReceipt, error) {
	var out []*entities.ScheduledReceipt
	for _, idx := range r.receiptIndex[entities.PlanningKey{ItemID: item, WarehouseID: warehouse}] {
		rec := r.receipts[idx]
		if rec.DueDate.Before(from) || rec.DueDate.After(to) {
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// GetAllScheduledReceipts returns every open supply order in load order
func (r *InventoryRepository) GetAllScheduledReceipts() ([]*entities.ScheduledReceipt, error) {
	out := make([]*entities.ScheduledReceipt, 0, len(r.receipts))
	for i := range r.receipts {
		rec := r.receipts[i]
		out = append(out, &rec)
	}
	return out, nil
}

// GetFirmedOrders returns copies of the firmed planned orders
func (r *InventoryRepository) GetFirmedOrders() ([]*entities.PlannedOrder, error) {
	out := make([]*entities.PlannedOrder, 0, len(r.firmed))
	for i := range r.firmed {
		o := r.firmed[i].Clone()
		out = append(out, &o)
	}
	return out, nil
}
