package memory

import (
	"fmt"
	"sort"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
)

// BOMRepository stores every version of every bill of material
type BOMRepository struct {
	boms        []entities.BillOfMaterial
	bomIndexes  map[entities.ItemID][]int
	versionComp *services.VersionComparator
}

// NewBOMRepository creates an in-memory BOM repository
func NewBOMRepository(expectedBOMs int) *BOMRepository {
	return &BOMRepository{
		boms:        make([]entities.BillOfMaterial, 0, expectedBOMs),
		bomIndexes:  make(map[entities.ItemID][]int, expectedBOMs),
		versionComp: services.NewVersionComparator(),
	}
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)

// LoadBOMs loads bills of material into the repository
func (r *BOMRepository) LoadBOMs(boms []*entities.BillOfMaterial) error {
	for _, b := range boms {
		if err := r.AddBOM(*b); err != nil {
			return err
		}
	}
	return nil
}

// AddBOM adds one version of a bill of material
func (r *BOMRepository) AddBOM(bom entities.BillOfMaterial) error {
	for _, idx := range r.bomIndexes[bom.ParentID] {
		if r.boms[idx].Version == bom.Version {
			return fmt.Errorf("bom %s version %s already loaded", bom.ParentID, bom.Version)
		}
	}
	r.bomIndexes[bom.ParentID] = append(r.bomIndexes[bom.ParentID], len(r.boms))
	r.boms = append(r.boms, bom.Clone())
	return nil
}

// GetBOM returns the requested version, or the current one when version is empty
func (r *BOMRepository) GetBOM(parent entities.ItemID, version string) (*entities.BillOfMaterial, error) {
	indexes, exists := r.bomIndexes[parent]
	if !exists {
		return nil, fmt.Errorf("bom for %s: %w", parent, repositories.ErrNotFound)
	}

	if version == "" {
		candidates := make([]*entities.BillOfMaterial, 0, len(indexes))
		for _, idx := range indexes {
			candidates = append(candidates, &r.boms[idx])
		}
		latest := r.versionComp.Latest(candidates).Clone()
		return &latest, nil
	}

	for _, idx := range indexes {
		if r.boms[idx].Version == version {
			found := r.boms[idx].Clone()
			return &found, nil
		}
	}
	return nil, fmt.Errorf("bom for %s version %s: %w", parent, version, repositories.ErrNotFound)
}

// GetCurrentBOMs returns the current version of each parent, ordered by parent id
func (r *BOMRepository) GetCurrentBOMs() ([]*entities.BillOfMaterial, error) {
	parents := make([]entities.ItemID, 0, len(r.bomIndexes))
	for parent := range r.bomIndexes {
		parents = append(parents, parent)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	out := make([]*entities.BillOfMaterial, 0, len(parents))
	for _, parent := range parents {
		b, err := r.GetBOM(parent, "")
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
