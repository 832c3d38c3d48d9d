package memory

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

func TestBOMRepository_Versions(t *testing.T) {
	repo := NewBOMRepository(4)
	comp := func(id entities.ItemID) []entities.BOMComponent {
		return []entities.BOMComponent{{ItemID: id, QuantityPer: decimal.NewFromInt(1)}}
	}

	err := repo.LoadBOMs([]*entities.BillOfMaterial{
		{ParentID: "P", Version: "V2", Components: comp("OLD")},
		{ParentID: "P", Version: "V10", Components: comp("NEW")},
		{ParentID: "Q", Version: "A", Components: comp("X")},
	})
	if err != nil {
		t.Fatalf("LoadBOMs failed: %v", err)
	}

	current, err := repo.GetBOM("P", "")
	if err != nil {
		t.Fatalf("GetBOM failed: %v", err)
	}
	if current.Version != "V10" || current.Components[0].ItemID != "NEW" {
		t.Errorf("Expected current version V10, got %s", current.Version)
	}

	asOf, err := repo.GetBOM("P", "V2")
	if err != nil {
		t.Fatalf("GetBOM as-of failed: %v", err)
	}
	if asOf.Components[0].ItemID != "OLD" {
		t.Errorf("Expected V2 component OLD, got %s", asOf.Components[0].ItemID)
	}

	all, _ := repo.GetCurrentBOMs()
	if len(all) != 2 || all[0].ParentID != "P" || all[1].ParentID != "Q" {
		t.Errorf("Expected current BOMs for P and Q, got %d", len(all))
	}

	if _, err := repo.GetBOM("P", "V3"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown version, got %v", err)
	}
	if err := repo.AddBOM(entities.BillOfMaterial{ParentID: "P", Version: "V2"}); err == nil {
		t.Error("Expected duplicate version to be rejected")
	}
}
