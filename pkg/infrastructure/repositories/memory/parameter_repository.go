package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

// ParameterRepository stores MRP parameters; planners may update it while runs read it
type ParameterRepository struct {
	mu     sync.RWMutex
	params map[entities.PlanningKey]entities.MRPParameter
}

// NewParameterRepository creates a new in-memory parameter repository
func NewParameterRepository() *ParameterRepository {
	return &ParameterRepository{params: make(map[entities.PlanningKey]entities.MRPParameter)}
}

// Verify interface compliance
var _ repositories.ParameterRepository = (*ParameterRepository)(nil)

// LoadParameters saves each parameter
func (r *ParameterRepository) LoadParameters(params []*entities.MRPParameter) error {
	for _, p := range params {
		if err := r.SaveParameter(p); err != nil {
			return err
		}
	}
	return nil
}

// SaveParameter validates and stores a parameter, replacing any existing one
func (r *ParameterRepository) SaveParameter(param *entities.MRPParameter) error {
	if err := param.Validate(); err != nil {
		return fmt.Errorf("invalid parameter for %s@%s: %w", param.ItemID, param.WarehouseID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params[entities.PlanningKey{ItemID: param.ItemID, WarehouseID: param.WarehouseID}] = *param
	return nil
}

// GetParameter returns a copy of the parameter for item and warehouse
func (r *ParameterRepository) GetParameter(item entities.ItemID, warehouse entities.WarehouseID) (*entities.MRPParameter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.params[entities.PlanningKey{ItemID: item, WarehouseID: warehouse}]
	if !ok {
		return nil, fmt.Errorf("parameter %s@%s: %w", item, warehouse, repositories.ErrNotFound)
	}
	return &p, nil
}

// GetAllParameters returns copies of every parameter ordered by item and warehouse
func (r *ParameterRepository) GetAllParameters() ([]*entities.MRPParameter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.MRPParameter, 0, len(r.params))
	for _, p := range r.params {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		return out[i].WarehouseID < out[j].WarehouseID
	})
	return out, nil
}
