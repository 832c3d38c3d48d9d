package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

// CapacityRepository provides in-memory work centers and explicit bucket capacity
type CapacityRepository struct {
	centers    []entities.WorkCenter
	centersMap map[entities.WorkCenterID]int
	capacity   map[entities.CellKey]entities.ResourceCapacity
}

// NewCapacityRepository creates a new in-memory capacity repository
func NewCapacityRepository() *CapacityRepository {
	return &CapacityRepository{
		centersMap: make(map[entities.WorkCenterID]int),
		capacity:   make(map[entities.CellKey]entities.ResourceCapacity),
	}
}

// Verify interface compliance
var _ repositories.CapacityRepository = (*CapacityRepository)(nil)

// LoadWorkCenters loads work centers, replacing existing ones with the same id
func (r *CapacityRepository) LoadWorkCenters(centers []*entities.WorkCenter) error {
	for _, wc := range centers {
		if idx, ok := r.centersMap[wc.ID]; ok {
			r.centers[idx] = *wc
			continue
		}
		r.centersMap[wc.ID] = len(r.centers)
		r.centers = append(r.centers, *wc)
	}
	return nil
}

// LoadCapacity loads explicit available hours per (work center, bucket)
func (r *CapacityRepository) LoadCapacity(capacity []*entities.ResourceCapacity) error {
	for _, c := range capacity {
		if _, ok := r.centersMap[c.WorkCenterID]; !ok {
			return fmt.Errorf("capacity references unknown work center %s", c.WorkCenterID)
		}
		r.capacity[entities.CellKey{WorkCenterID: c.WorkCenterID, Bucket: c.Bucket}] = *c
	}
	return nil
}

// GetWorkCenter returns one work center
func (r *CapacityRepository) GetWorkCenter(id entities.WorkCenterID) (*entities.WorkCenter, error) {
	idx, ok := r.centersMap[id]
	if !ok {
		return nil, fmt.Errorf("work center %s: %w", id, repositories.ErrNotFound)
	}
	wc := r.centers[idx]
	return &wc, nil
}

// GetAllWorkCenters returns every work center in load order
func (r *CapacityRepository) GetAllWorkCenters() ([]*entities.WorkCenter, error) {
	out := make([]*entities.WorkCenter, 0, len(r.centers))
	for i := range r.centers {
		wc := r.centers[i]
		out = append(out, &wc)
	}
	return out, nil
}

// GetAvailableCapacity returns explicit capacity with a bucket in [from, to]
func (r *CapacityRepository) GetAvailableCapacity(from, to time.Time) ([]*entities.ResourceCapacity, error) {
	var out []*entities.ResourceCapacity
	for _, c := range r.capacity {
		if c.Bucket.Before(from) || c.Bucket.After(to) {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkCenterID != out[j].WorkCenterID {
			return out[i].WorkCenterID < out[j].WorkCenterID
		}
		return out[i].Bucket.Before(out[j].Bucket)
	})
	return out, nil
}
