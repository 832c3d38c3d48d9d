package exceptions

import (
	"sort"
	"sync"
	"time"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

type dedupeKey struct {
	kind      entities.ExceptionType
	reference string
	bucket    time.Time
}

// Manager collects the exceptions of one run. Exceptions sharing type, reference and bucket
// collapse into the first one recorded with their quantities summed. Safe for concurrent use.
type Manager struct {
	runID string

	mu    sync.Mutex
	index map[dedupeKey]int
	items []entities.PlanningException
}

// NewManager creates an exception manager for runID
func NewManager(runID string) *Manager {
	return &Manager{runID: runID, index: make(map[dedupeKey]int)}
}

// Add records exceptions, stamping the run id and default severity where missing
func (m *Manager) Add(excs ...entities.PlanningException) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range excs {
		e.RunID = m.runID
		if e.Severity == entities.SeverityInfo {
			e.Severity = e.Type.DefaultSeverity()
		}
		k := dedupeKey{kind: e.Type, reference: e.Reference(), bucket: e.Bucket}
		if i, ok := m.index[k]; ok {
			m.items[i].Quantity = m.items[i].Quantity.Add(e.Quantity)
			continue
		}
		m.index[k] = len(m.items)
		m.items = append(m.items, e)
	}
}

// HasFatal reports whether a run-aborting exception was recorded
func (m *Manager) HasFatal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.items {
		if e.Type.IsFatal() {
			return true
		}
	}
	return false
}

// Len returns the number of distinct exceptions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// CountByType returns distinct exception counts per type
func (m *Manager) CountByType() map[entities.ExceptionType]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[entities.ExceptionType]int)
	for _, e := range m.items {
		out[e.Type]++
	}
	return out
}

// Exceptions returns the collected exceptions ordered by severity (highest first), type,
// bucket and reference
func (m *Manager) Exceptions() []entities.PlanningException {
	m.mu.Lock()
	out := append([]entities.PlanningException(nil), m.items...)
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if !a.Bucket.Equal(b.Bucket) {
			return a.Bucket.Before(b.Bucket)
		}
		return a.Reference() < b.Reference()
	})
	return out
}

// Resolve returns the terminal status of a run that finished its pipeline
func (m *Manager) Resolve() entities.RunStatus {
	if m.HasFatal() {
		return entities.RunFailed
	}
	if m.Len() > 0 {
		return entities.RunCompletedWithExceptions
	}
	return entities.RunCompleted
}
