package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/events"
)

// Collector exposes planning run and HTTP adapter metrics
type Collector struct {
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	plannedOrders   prometheus.Counter
	exceptionsTotal *prometheus.CounterVec
	overloadHours   prometheus.Counter
	skippedRecords  prometheus.Counter
	eventsTotal     *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates the collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrp_runs_total",
			Help: "Total number of planning runs by final status and kind",
		}, []string{"status", "kind"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mrp_run_duration_seconds",
			Help:    "Wall time of planning runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		plannedOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mrp_planned_orders_total",
			Help: "Total number of planned orders proposed",
		}),
		exceptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrp_exceptions_total",
			Help: "Total number of planning exceptions by type",
		}, []string{"type"}),
		overloadHours: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mrp_overload_hours_total",
			Help: "Total work center hours allocated above capacity",
		}),
		skippedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mrp_explosion_skipped_records_total",
			Help: "Dependent requirements dropped for falling outside the explosion window",
		}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrp_lifecycle_events_total",
			Help: "Total number of run and scenario lifecycle events by type",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(
		c.runsTotal,
		c.runDuration,
		c.plannedOrders,
		c.exceptionsTotal,
		c.overloadHours,
		c.skippedRecords,
		c.eventsTotal,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// RecordRun records a finished run
func (c *Collector) RecordRun(run entities.MRPRun, duration time.Duration, exceptions []entities.PlanningException) {
	kind := "baseline"
	if run.ScenarioID != "" {
		kind = "scenario"
	}
	c.runsTotal.WithLabelValues(run.Status.String(), kind).Inc()
	c.runDuration.Observe(duration.Seconds())
	c.plannedOrders.Add(float64(run.Totals.PlannedOrders))
	c.skippedRecords.Add(float64(run.Totals.SkippedRecords))

	overload := decimal.Zero
	for _, e := range exceptions {
		c.exceptionsTotal.WithLabelValues(e.Type.String()).Inc()
		if e.Type == entities.Overload {
			overload = overload.Add(e.Quantity)
		}
	}
	hours, _ := overload.Float64()
	c.overloadHours.Add(hours)
}

// Handle counts a lifecycle event; subscribe the collector to events.LifecycleEventTypes
func (c *Collector) Handle(ev events.Event) error {
	c.eventsTotal.WithLabelValues(ev.Type()).Inc()
	return nil
}

func (c *Collector) CanHandle(eventType string) bool {
	for _, t := range events.LifecycleEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// RecordHTTPRequest records one served HTTP request
func (c *Collector) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, path, status).Inc()
	c.httpDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
