package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/events"
)

func value(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			if h := m.GetHistogram(); h != nil {
				return float64(h.GetSampleCount())
			}
		}
	}
	return 0
}

func TestCollector_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	run := entities.MRPRun{ID: "run-1", Status: entities.RunCompletedWithExceptions,
		Totals: entities.RunTotals{PlannedOrders: 7, SkippedRecords: 2}}
	c.RecordRun(run, 250*time.Millisecond, []entities.PlanningException{
		{Type: entities.Overload, Quantity: decimal.NewFromInt(15)},
		{Type: entities.Overload, Quantity: decimal.NewFromFloat(2.5)},
		{Type: entities.LateOrder, Quantity: decimal.NewFromInt(3)},
	})
	scenario := entities.MRPRun{ID: "run-2", ScenarioID: "sc-1", Status: entities.RunCompleted}
	c.RecordRun(scenario, time.Second, nil)

	assert.Equal(t, 1.0, value(t, reg, "mrp_runs_total", map[string]string{"status": "CompletedWithExceptions", "kind": "baseline"}))
	assert.Equal(t, 1.0, value(t, reg, "mrp_runs_total", map[string]string{"status": "Completed", "kind": "scenario"}))
	assert.Equal(t, 7.0, value(t, reg, "mrp_planned_orders_total", nil))
	assert.Equal(t, 2.0, value(t, reg, "mrp_exceptions_total", map[string]string{"type": "Overload"}))
	assert.Equal(t, 17.5, value(t, reg, "mrp_overload_hours_total", nil))
	assert.Equal(t, 2.0, value(t, reg, "mrp_run_duration_seconds", nil))
}

func TestCollector_HandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPRequest(http.MethodGet, "/v1/runs/:id", "200", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/v1/runs/:id",status="200"} 1`)
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}

func TestCollector_CountsSubscribedEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	store := events.NewInMemoryEventStore(nil)
	require.NoError(t, store.Subscribe(events.LifecycleEventTypes, c))

	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	run := entities.MRPRun{ID: "run-1", Status: entities.RunDraft}
	require.NoError(t, store.AppendEvent(run.ID, events.NewRunEvent(run, 0, at)))
	run.Status = entities.RunInProgress
	require.NoError(t, store.AppendEvent(run.ID, events.NewRunEvent(run, 0, at)))
	run.Status = entities.RunCompleted
	require.NoError(t, store.AppendEvent(run.ID, events.NewRunEvent(run, time.Second, at)))
	require.NoError(t, store.AppendEvent("other", events.NewEvent("audit.note", "other", nil, at)))
	store.Wait()

	assert.Equal(t, 1.0, value(t, reg, "mrp_lifecycle_events_total", map[string]string{"type": events.RunCreatedEvent}))
	assert.Equal(t, 1.0, value(t, reg, "mrp_lifecycle_events_total", map[string]string{"type": events.RunCompletedEvent}))
	assert.Equal(t, 0.0, value(t, reg, "mrp_lifecycle_events_total", map[string]string{"type": "audit.note"}))
	assert.False(t, c.CanHandle("audit.note"))
}
