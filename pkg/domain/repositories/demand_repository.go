package repositories

import "github.com/vsinha/mrp-aps/pkg/domain/entities"

// DemandRepository provides MPS entries, sales orders, forecasts and work-order demand
type DemandRepository interface {
	GetDemands(horizon entities.Horizon) ([]*entities.DemandRecord, error)
	LoadDemands(demands []*entities.DemandRecord) error
}
