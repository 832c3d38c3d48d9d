package entities

import (
	"testing"
	"time"
)

func TestNewOnHandBalance_Validation(t *testing.T) {
	if _, err := NewOnHandBalance("X", "MAIN", 0); err != nil {
		t.Fatalf("Expected zero on-hand to be valid: %v", err)
	}
	if _, err := NewOnHandBalance("X", "MAIN", -1); err == nil {
		t.Error("Expected negative on-hand to fail")
	}
	if _, err := NewOnHandBalance("X", "", 1); err == nil {
		t.Error("Expected empty warehouse to fail")
	}
}

func TestNewScheduledReceipt_Validation(t *testing.T) {
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	receipt, err := NewScheduledReceipt("PO-1", PurchaseOrderSupply, "X", "MAIN", due, 40)
	if err != nil {
		t.Fatalf("Expected valid receipt: %v", err)
	}
	if receipt.Kind.String() != "PurchaseOrder" {
		t.Errorf("Expected PurchaseOrder kind, got %s", receipt.Kind)
	}
	if _, err := NewScheduledReceipt("", WorkOrderSupply, "X", "MAIN", due, 40); err == nil {
		t.Error("Expected empty id to fail")
	}
	if _, err := NewScheduledReceipt("WO-1", WorkOrderSupply, "X", "MAIN", due, 0); err == nil {
		t.Error("Expected zero quantity to fail")
	}
}
