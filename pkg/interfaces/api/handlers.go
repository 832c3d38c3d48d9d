package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/application/services/planning"
	"github.com/vsinha/mrp-aps/pkg/application/services/whatif"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/events"
)

// Planner is the part of the planning service exposed over HTTP
type Planner interface {
	CreateRun(ctx context.Context, req planning.RunRequest) (*entities.MRPRun, error)
	GetRun(ctx context.Context, runID string) (*entities.MRPRun, error)
	ListSuggestions(ctx context.Context, runID string) ([]entities.PlannedOrder, error)
	ListExceptions(ctx context.Context, runID string) ([]entities.PlanningException, error)
	AnalyzeCapacity(ctx context.Context, q planning.CapacityQuery) (*dto.CapacityReport, error)
	CancelRun(runID string) error
}

// Scenarios is the part of the what-if service exposed over HTTP
type Scenarios interface {
	CreateWhatIf(ctx context.Context, baselineRunID string, deltas entities.ScenarioDeltas) (*entities.WhatIfScenario, error)
	Compare(ctx context.Context, scenarioID string) (*whatif.Comparison, error)
}

// EventReader reads the lifecycle stream of a run
type EventReader interface {
	ReadEvents(streamID string, fromVersion int) ([]events.Event, error)
}

type Handler struct {
	planner   Planner
	scenarios Scenarios
	events    EventReader
}

func NewHandler(planner Planner, scenarios Scenarios, store EventReader) *Handler {
	return &Handler{planner: planner, scenarios: scenarios, events: store}
}

// CreateRun plans synchronously and answers with the finished run. A run that ends
// Failed is still created and is returned with 201.
func (h *Handler) CreateRun(c *gin.Context) {
	var body CreateRunRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithAPIError(c, badRequest(err))
		return
	}
	req, err := body.ToRunRequest()
	if err != nil {
		abortWithAPIError(c, badRequest(err))
		return
	}

	run, err := h.planner.CreateRun(c.Request.Context(), req)
	if run == nil {
		abortWithError(c, err)
		return
	}
	if err != nil {
		RequestLogger(c).Warn("run ended with error", zap.String("run_id", run.ID), zap.Error(err))
	}
	c.JSON(http.StatusCreated, FromRun(run))
}

func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.planner.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, FromRun(run))
}

func (h *Handler) ListSuggestions(c *gin.Context) {
	orders, err := h.planner.ListSuggestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("id"), "planned_orders": FromOrders(orders)})
}

func (h *Handler) ListExceptions(c *gin.Context) {
	excs, err := h.planner.ListExceptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("id"), "exceptions": FromExceptions(excs)})
}

// ListEvents answers GET /v1/runs/:id/events?from=N with the run's lifecycle events from
// version N on
func (h *Handler) ListEvents(c *gin.Context) {
	runID := c.Param("id")
	from := 1
	if v := c.Query("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			abortWithAPIError(c, badRequest(fmt.Errorf("from: expected a positive version, got %q", v)))
			return
		}
		from = n
	}
	if _, err := h.planner.GetRun(c.Request.Context(), runID); err != nil {
		abortWithError(c, err)
		return
	}
	evs, err := h.events.ReadEvents(runID, from)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "events": FromEvents(evs)})
}

// CancelRun asks an in-flight run to stop; the run reaches Cancelled asynchronously
func (h *Handler) CancelRun(c *gin.Context) {
	runID := c.Param("id")
	if err := h.planner.CancelRun(runID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "status": "cancelling"})
}

// AnalyzeCapacity answers GET /v1/capacity?run_id=&work_center=&from=&to=
func (h *Handler) AnalyzeCapacity(c *gin.Context) {
	q := planning.CapacityQuery{
		RunID:        c.Query("run_id"),
		WorkCenterID: entities.WorkCenterID(c.Query("work_center")),
	}
	var err error
	if v := c.Query("from"); v != "" {
		if q.From, err = parseDate("from", v); err != nil {
			abortWithAPIError(c, badRequest(err))
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if q.To, err = parseDate("to", v); err != nil {
			abortWithAPIError(c, badRequest(err))
			return
		}
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		abortWithAPIError(c, badRequest(fmt.Errorf("to %s is before from %s", q.To.Format(dateLayout), q.From.Format(dateLayout))))
		return
	}

	report, err := h.planner.AnalyzeCapacity(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// CreateWhatIf re-plans the run named in the path with the deltas of the body
func (h *Handler) CreateWhatIf(c *gin.Context) {
	var deltas entities.ScenarioDeltas
	if err := c.ShouldBindJSON(&deltas); err != nil {
		abortWithAPIError(c, badRequest(err))
		return
	}

	scenario, err := h.scenarios.CreateWhatIf(c.Request.Context(), c.Param("id"), deltas)
	if scenario == nil {
		abortWithError(c, err)
		return
	}
	if err != nil {
		RequestLogger(c).Warn("scenario run ended with error", zap.String("scenario_id", scenario.ID), zap.Error(err))
	}
	c.JSON(http.StatusCreated, scenario)
}

type comparisonResponse struct {
	ScenarioID string                  `json:"scenario_id"`
	Baseline   RunResponse             `json:"baseline"`
	Run        RunResponse             `json:"run"`
	Changed    []whatif.ItemDelta      `json:"changed"`
	Deltas     entities.ScenarioDeltas `json:"deltas"`
}

func (h *Handler) CompareScenario(c *gin.Context) {
	cmp, err := h.scenarios.Compare(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, comparisonResponse{
		ScenarioID: cmp.Scenario.ID,
		Baseline:   FromRun(&cmp.Baseline),
		Run:        FromRun(&cmp.Run),
		Changed:    cmp.Changed,
		Deltas:     cmp.Scenario.Deltas,
	})
}
