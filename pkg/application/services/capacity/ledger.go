package capacity

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// Ledger holds the capacity cells of one run. All allocation goes through Allocate.
type Ledger struct {
	mu    sync.Mutex
	cells map[entities.CellKey]*entities.ResourceCapacity
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{cells: make(map[entities.CellKey]*entities.ResourceCapacity)}
}

// Open registers a cell with its available hours if it is not known yet
func (l *Ledger) Open(key entities.CellKey, available decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open(key, available)
}

func (l *Ledger) open(key entities.CellKey, available decimal.Decimal) *entities.ResourceCapacity {
	cell, ok := l.cells[key]
	if !ok {
		cell = &entities.ResourceCapacity{
			WorkCenterID:   key.WorkCenterID,
			Bucket:         key.Bucket,
			AvailableHours: available,
			AllocatedHours: decimal.Zero,
		}
		l.cells[key] = cell
	}
	return cell
}

// Allocate adds hours to a cell and reports whether this allocation pushed it over capacity
func (l *Ledger) Allocate(key entities.CellKey, available, hours decimal.Decimal) (entities.ResourceCapacity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cell := l.open(key, available)
	wasOver := cell.Overloaded()
	cell.AllocatedHours = cell.AllocatedHours.Add(hours)
	return *cell, !wasOver && cell.Overloaded()
}

// Cell returns a copy of one cell
func (l *Ledger) Cell(key entities.CellKey) (entities.ResourceCapacity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cell, ok := l.cells[key]
	if !ok {
		return entities.ResourceCapacity{}, false
	}
	return *cell, true
}

// Cells returns all cells ordered by work center and bucket
func (l *Ledger) Cells() []entities.ResourceCapacity {
	l.mu.Lock()
	out := make([]entities.ResourceCapacity, 0, len(l.cells))
	for _, c := range l.cells {
		out = append(out, *c)
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkCenterID != out[j].WorkCenterID {
			return out[i].WorkCenterID < out[j].WorkCenterID
		}
		return out[i].Bucket.Before(out[j].Bucket)
	})
	return out
}
