package lotsizing

import (
	"fmt"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// Resolver turns a net requirement into one or more order quantities
type Resolver struct{}

// NewResolver creates a lot sizing resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve applies method to net. lookahead holds the nets of the following buckets that a
// period order quantity pulls forward; the caller has already cut it to the Periods calendar
// periods starting at the order's bucket and at the planning time fence boundary. A
// non-positive net yields no orders.
func (r *Resolver) Resolve(method entities.LotSizingMethod, net entities.Quantity, lookahead []entities.Quantity) ([]entities.Quantity, error) {
	if net <= 0 {
		return nil, nil
	}
	if err := method.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lot sizing method: %w", err)
	}

	switch method.Kind {
	case entities.LotForLot:
		return []entities.Quantity{net}, nil

	case entities.FixedOrderQuantity:
		q := method.FixedQty
		return []entities.Quantity{((net + q - 1) / q) * q}, nil

	case entities.MinMaxMultiple:
		return minMaxMultiple(net, method.Min, method.Max, method.Multiple), nil

	case entities.PeriodOrderQuantity:
		total := net
		for _, n := range lookahead {
			if n > 0 {
				total += n
			}
		}
		return []entities.Quantity{total}, nil

	default:
		return nil, fmt.Errorf("unsupported lot sizing kind %s", method.Kind)
	}
}

// minMaxMultiple splits net into orders of max while the remainder exceeds max; the last
// order is rounded up to the multiple and clamped into [min, max].
func minMaxMultiple(net, min, max, multiple entities.Quantity) []entities.Quantity {
	var orders []entities.Quantity
	remaining := net
	for remaining > max {
		orders = append(orders, max)
		remaining -= max
	}

	last := remaining.RoundUpTo(multiple)
	if last < min {
		last = min
	}
	if last > max {
		last = max
	}
	return append(orders, last)
}

// Sum adds up order quantities
func Sum(orders []entities.Quantity) entities.Quantity {
	var total entities.Quantity
	for _, q := range orders {
		total += q
	}
	return total
}
