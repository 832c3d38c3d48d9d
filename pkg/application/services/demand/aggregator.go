package demand

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
)

// ErrNoDemandSources is returned when the include flags select no demand source
var ErrNoDemandSources = errors.New("no demand sources selected")

// Aggregator turns independent demand records into dated gross requirements per item
type Aggregator struct{}

// NewAggregator creates a demand aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate filters records by source and horizon and groups them per item. Records are
// kept one-to-one with their source so overlapping sources add up during netting and every
// requirement keeps its source demand id. Each item's sequence is ordered by date,
// warehouse and source id.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	records []entities.DemandRecord,
	horizon entities.Horizon,
	include entities.DemandInclude,
) (map[entities.ItemID][]entities.GrossRequirement, error) {
	if err := horizon.Validate(); err != nil {
		return nil, err
	}
	if !include.Any() {
		return nil, ErrNoDemandSources
	}

	out := make(map[entities.ItemID][]entities.GrossRequirement)
	for i, r := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !include.Includes(r.Source) {
			continue
		}
		date := services.Day(r.Date)
		if !horizon.Contains(date) {
			continue
		}
		if r.Quantity <= 0 {
			return nil, fmt.Errorf("demand %s: quantity must be positive, got %d", r.ID, r.Quantity)
		}
		out[r.ItemID] = append(out[r.ItemID], entities.GrossRequirement{
			ItemID:          r.ItemID,
			WarehouseID:     r.WarehouseID,
			Date:            date,
			Quantity:        r.Quantity,
			Source:          r.Source,
			SourceDemandIDs: []string{r.ID},
		})
	}

	for _, reqs := range out {
		SortRequirements(reqs)
	}
	return out, nil
}

// SortRequirements orders requirements by date, warehouse and first source id
func SortRequirements(reqs []entities.GrossRequirement) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if !reqs[i].Date.Equal(reqs[j].Date) {
			return reqs[i].Date.Before(reqs[j].Date)
		}
		if reqs[i].WarehouseID != reqs[j].WarehouseID {
			return reqs[i].WarehouseID < reqs[j].WarehouseID
		}
		return firstID(reqs[i]) < firstID(reqs[j])
	})
}

func firstID(r entities.GrossRequirement) string {
	if len(r.SourceDemandIDs) == 0 {
		return ""
	}
	return r.SourceDemandIDs[0]
}
