package memory

import (
	"fmt"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

// DemandRepository provides in-memory demand storage
type DemandRepository struct {
	demands []entities.DemandRecord
	ids     map[string]bool
}

// NewDemandRepository creates a new in-memory demand repository
func NewDemandRepository() *DemandRepository {
	return &DemandRepository{ids: make(map[string]bool)}
}

// Verify interface compliance
var _ repositories.DemandRepository = (*DemandRepository)(nil)

// LoadDemands loads demand records; ids must be unique
func (r *DemandRepository) LoadDemands(demands []*entities.DemandRecord) error {
	for _, d := range demands {
		if r.ids[d.ID] {
			return fmt.Errorf("duplicate demand id %s", d.ID)
		}
		r.ids[d.ID] = true
		r.demands = append(r.demands, *d)
	}
	return nil
}

// GetDemands returns demand records dated inside the horizon
func (r *DemandRepository) GetDemands(horizon entities.Horizon) ([]*entities.DemandRecord, error) {
	var out []*entities.DemandRecord
	for i := range r.demands {
		d := r.demands[i]
		if horizon.Contains(d.Date) {
			out = append(out, &d)
		}
	}
	return out, nil
}
