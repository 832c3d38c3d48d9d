package repositories

import "github.com/vsinha/mrp-aps/pkg/domain/entities"

// ParameterRepository provides MRP parameters per item and warehouse
type ParameterRepository interface {
	GetParameter(item entities.ItemID, warehouse entities.WarehouseID) (*entities.MRPParameter, error)
	GetAllParameters() ([]*entities.MRPParameter, error)
	SaveParameter(param *entities.MRPParameter) error
}
