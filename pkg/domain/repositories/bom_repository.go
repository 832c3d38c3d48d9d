package repositories

import "github.com/vsinha/mrp-aps/pkg/domain/entities"

// BOMRepository provides access to bills of material and their routings
type BOMRepository interface {
	// GetBOM returns the bill of material of parent as of version; an empty version
	// selects the current (highest) version.
	GetBOM(parent entities.ItemID, version string) (*entities.BillOfMaterial, error)
	// GetCurrentBOMs returns the current version of every bill of material
	GetCurrentBOMs() ([]*entities.BillOfMaterial, error)
	LoadBOMs(boms []*entities.BillOfMaterial) error
}
