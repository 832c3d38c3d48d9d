package repositories

import "github.com/vsinha/mrp-aps/pkg/domain/entities"

// ItemRepository provides access to item master data
type ItemRepository interface {
	GetItem(id entities.ItemID) (*entities.Item, error)
	GetAllItems() ([]*entities.Item, error)
	LoadItems(items []*entities.Item) error
}
