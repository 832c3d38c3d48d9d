package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExceptionType classifies a planning exception
type ExceptionType int

const (
	Shortage ExceptionType = iota
	Overload
	LateOrder
	ExcessInventory
	FirmOrderConflict
	CyclicBOM
)

// String method for ExceptionType enum
func (t ExceptionType) String() string {
	switch t {
	case Shortage:
		return "Shortage"
	case Overload:
		return "Overload"
	case LateOrder:
		return "LateOrder"
	case ExcessInventory:
		return "ExcessInventory"
	case FirmOrderConflict:
		return "FirmOrderConflict"
	case CyclicBOM:
		return "CyclicBOM"
	default:
		return "Unknown"
	}
}

// IsFatal reports whether the exception aborts the run
func (t ExceptionType) IsFatal() bool {
	return t == CyclicBOM
}

// Severity ranks exceptions for planner review
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
	SeverityFatal
)

// String method for Severity enum
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "Info"
	case SeverityWarning:
		return "Warning"
	case SeverityCritical:
		return "Critical"
	case SeverityFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// DefaultSeverity returns the severity an exception type is raised with
func (t ExceptionType) DefaultSeverity() Severity {
	switch t {
	case CyclicBOM:
		return SeverityFatal
	case Shortage, Overload:
		return SeverityCritical
	case LateOrder, FirmOrderConflict:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// PlanningException is an anomaly recorded for planner review
type PlanningException struct {
	RunID        string          `json:"run_id"`
	Type         ExceptionType   `json:"type"`
	Severity     Severity        `json:"severity"`
	ItemID       ItemID          `json:"item_id,omitempty"`
	WarehouseID  WarehouseID     `json:"warehouse_id,omitempty"`
	WorkCenterID WorkCenterID    `json:"work_center_id,omitempty"`
	Bucket       time.Time       `json:"bucket"`
	Quantity     decimal.Decimal `json:"quantity"` // shortage/excess units or overload hours
	OrderID      string          `json:"order_id,omitempty"`
	Message      string          `json:"message"`
}

// Reference returns the item or work center the exception is about
func (e PlanningException) Reference() string {
	if e.WorkCenterID != "" {
		return "wc:" + string(e.WorkCenterID)
	}
	return "item:" + string(e.ItemID) + "@" + string(e.WarehouseID)
}
