package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewBOMComponent_Validation(t *testing.T) {
	testCases := []struct {
		name        string
		item        ItemID
		qtyPer      decimal.Decimal
		scrap       decimal.Decimal
		expectError string
	}{
		{"empty item", "", decimal.NewFromInt(1), decimal.Zero, "component item id cannot be empty"},
		{"zero quantity", "C", decimal.Zero, decimal.Zero, "quantity per must be positive, got 0"},
		{"negative scrap", "C", decimal.NewFromInt(1), decimal.NewFromInt(-1), "scrap percent must be in [0, 100), got -1"},
		{"full scrap", "C", decimal.NewFromInt(1), decimal.NewFromInt(100), "scrap percent must be in [0, 100), got 100"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBOMComponent(tc.item, tc.qtyPer, "EA", tc.scrap)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestBOMComponent_GrossFor(t *testing.T) {
	testCases := []struct {
		name     string
		qtyPer   string
		scrap    string
		parent   Quantity
		unit     Quantity
		expected Quantity
	}{
		{"two per with five percent scrap", "2", "5", 50, 1, 106},
		{"no scrap", "3", "0", 10, 1, 30},
		{"fractional quantity per rounds up", "0.25", "0", 10, 1, 3},
		{"orderable unit rounding", "2", "5", 50, 25, 125},
		{"zero parent", "2", "5", 0, 1, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewBOMComponent("C", decimal.RequireFromString(tc.qtyPer), "EA", decimal.RequireFromString(tc.scrap))
			if err != nil {
				t.Fatalf("NewBOMComponent failed: %v", err)
			}
			if got := c.GrossFor(tc.parent, tc.unit); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestNewBillOfMaterial_RejectsDuplicateComponents(t *testing.T) {
	c := BOMComponent{ItemID: "C", QuantityPer: decimal.NewFromInt(1)}
	_, err := NewBillOfMaterial("P", "A", []BOMComponent{c, c}, nil)
	if err == nil {
		t.Fatal("Expected duplicate component error")
	}
	if _, err := NewBillOfMaterial("P", "", nil, nil); err == nil {
		t.Fatal("Expected empty version error")
	}
}

func TestOperation_RequiredHours(t *testing.T) {
	op, err := NewOperation(10, "WC1", decimal.RequireFromString("1.5"), decimal.RequireFromString("0.25"))
	if err != nil {
		t.Fatalf("NewOperation failed: %v", err)
	}
	got := op.RequiredHours(10)
	if !got.Equal(decimal.RequireFromString("4")) {
		t.Errorf("Expected 4 hours, got %s", got)
	}
}
