package repositories

import (
	"time"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// CapacityRepository provides work centers and their available hours per bucket
type CapacityRepository interface {
	GetWorkCenter(id entities.WorkCenterID) (*entities.WorkCenter, error)
	GetAllWorkCenters() ([]*entities.WorkCenter, error)
	// GetAvailableCapacity returns explicit capacity records with a bucket in [from, to]
	GetAvailableCapacity(from, to time.Time) ([]*entities.ResourceCapacity, error)
	LoadWorkCenters(centers []*entities.WorkCenter) error
	LoadCapacity(capacity []*entities.ResourceCapacity) error
}
