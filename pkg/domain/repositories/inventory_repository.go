package repositories

import (
	"time"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// InventoryRepository provides on-hand stock and open supply
type InventoryRepository interface {
	GetOnHand(item entities.ItemID, warehouse entities.WarehouseID) (entities.Quantity, error)
	GetAllOnHand() ([]*entities.OnHandBalance, error)
	GetScheduledReceipts(
		item entities.ItemID,
		warehouse entities.WarehouseID,
		from, to time.Time,
	) ([]*entities.ScheduledReceipt, error)
	GetAllScheduledReceipts() ([]*entities.ScheduledReceipt, error)
	// GetFirmedOrders returns planner-firmed planned orders that automatic replanning must keep
	GetFirmedOrders() ([]*entities.PlannedOrder, error)
	LoadOnHand(balances []*entities.OnHandBalance) error
	LoadScheduledReceipts(receipts []*entities.ScheduledReceipt) error
	LoadFirmedOrders(orders []*entities.PlannedOrder) error
}
