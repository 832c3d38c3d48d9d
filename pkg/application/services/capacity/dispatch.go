package capacity

import (
	"fmt"
	"strings"
)

// DispatchRule orders competing operation loads before they are allocated
type DispatchRule interface {
	Name() string
	Less(a, b Load) bool
}

// EarliestDueDate allocates loads of earlier-due orders first, tie-broken by order id
type EarliestDueDate struct{}

func (EarliestDueDate) Name() string { return "EDD" }

func (EarliestDueDate) Less(a, b Load) bool {
	if !a.DueDate.Equal(b.DueDate) {
		return a.DueDate.Before(b.DueDate)
	}
	if a.OrderID != b.OrderID {
		return a.OrderID < b.OrderID
	}
	return a.Sequence < b.Sequence
}

// ShortestProcessingTime allocates the smallest loads first, tie-broken by order id
type ShortestProcessingTime struct{}

func (ShortestProcessingTime) Name() string { return "SPT" }

func (ShortestProcessingTime) Less(a, b Load) bool {
	if c := a.Hours.Cmp(b.Hours); c != 0 {
		return c < 0
	}
	if a.OrderID != b.OrderID {
		return a.OrderID < b.OrderID
	}
	return a.Sequence < b.Sequence
}

// RuleByName resolves a configured dispatch rule; an empty name selects EDD
func RuleByName(name string) (DispatchRule, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "EDD":
		return EarliestDueDate{}, nil
	case "SPT":
		return ShortestProcessingTime{}, nil
	default:
		return nil, fmt.Errorf("unknown dispatch rule: %s", name)
	}
}
