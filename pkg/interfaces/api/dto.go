package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/vsinha/mrp-aps/pkg/application/services/planning"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/events"
)

const dateLayout = "2006-01-02"

// CreateRunRequest is the body of POST /v1/runs. Dates are YYYY-MM-DD; an empty
// run_date means today.
type CreateRunRequest struct {
	HorizonStart string                 `json:"horizon_start" binding:"required"`
	HorizonEnd   string                 `json:"horizon_end" binding:"required"`
	RunDate      string                 `json:"run_date"`
	Include      entities.DemandInclude `json:"include"`
}

// ToRunRequest parses the dates of the body
func (r CreateRunRequest) ToRunRequest() (planning.RunRequest, error) {
	start, err := parseDate("horizon_start", r.HorizonStart)
	if err != nil {
		return planning.RunRequest{}, err
	}
	end, err := parseDate("horizon_end", r.HorizonEnd)
	if err != nil {
		return planning.RunRequest{}, err
	}
	var runDate time.Time
	if r.RunDate != "" {
		if runDate, err = parseDate("run_date", r.RunDate); err != nil {
			return planning.RunRequest{}, err
		}
	}
	return planning.RunRequest{
		Horizon: entities.Horizon{Start: start, End: end},
		Include: r.Include,
		RunDate: runDate,
	}, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", field, value)
	}
	return t, nil
}

// RunResponse is the wire form of a run with its status spelled out
type RunResponse struct {
	ID          string                 `json:"id"`
	ScenarioID  string                 `json:"scenario_id,omitempty"`
	Status      string                 `json:"status"`
	HorizonFrom string                 `json:"horizon_start"`
	HorizonTo   string                 `json:"horizon_end"`
	RunDate     string                 `json:"run_date"`
	Include     entities.DemandInclude `json:"include"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Totals      entities.RunTotals     `json:"totals"`
	Message     string                 `json:"message,omitempty"`
}

func FromRun(run *entities.MRPRun) RunResponse {
	return RunResponse{
		ID:          run.ID,
		ScenarioID:  run.ScenarioID,
		Status:      run.Status.String(),
		HorizonFrom: run.Horizon.Start.Format(dateLayout),
		HorizonTo:   run.Horizon.End.Format(dateLayout),
		RunDate:     run.RunDate.Format(dateLayout),
		Include:     run.Include,
		CreatedAt:   run.CreatedAt,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Totals:      run.Totals,
		Message:     run.Message,
	}
}

// OrderResponse is one planned order
type OrderResponse struct {
	ID                   string               `json:"id"`
	ItemID               entities.ItemID      `json:"item_id"`
	WarehouseID          entities.WarehouseID `json:"warehouse_id"`
	Type                 string               `json:"type"`
	Quantity             entities.Quantity    `json:"quantity"`
	StartDate            string               `json:"start_date"`
	DueDate              string               `json:"due_date"`
	Firmed               bool                 `json:"firmed"`
	RequiresConfirmation bool                 `json:"requires_confirmation"`
}

func FromOrders(orders []entities.PlannedOrder) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderResponse{
			ID:                   o.ID,
			ItemID:               o.ItemID,
			WarehouseID:          o.WarehouseID,
			Type:                 o.OrderType.String(),
			Quantity:             o.Quantity,
			StartDate:            o.StartDate.Format(dateLayout),
			DueDate:              o.DueDate.Format(dateLayout),
			Firmed:               o.Firmed,
			RequiresConfirmation: o.RequiresConfirmation,
		})
	}
	return out
}

// ExceptionResponse is one planning exception
type ExceptionResponse struct {
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Reference string `json:"reference"`
	Bucket    string `json:"bucket,omitempty"`
	Quantity  string `json:"quantity"`
	OrderID   string `json:"order_id,omitempty"`
	Message   string `json:"message"`
}

func FromExceptions(excs []entities.PlanningException) []ExceptionResponse {
	out := make([]ExceptionResponse, 0, len(excs))
	for _, e := range excs {
		r := ExceptionResponse{
			Type:      e.Type.String(),
			Severity:  e.Severity.String(),
			Reference: e.Reference(),
			Quantity:  e.Quantity.String(),
			OrderID:   e.OrderID,
			Message:   e.Message,
		}
		if !e.Bucket.IsZero() {
			r.Bucket = e.Bucket.Format(dateLayout)
		}
		out = append(out, r)
	}
	return out
}

// EventResponse is one lifecycle event. Run events carry their status by name.
type EventResponse struct {
	Type      string    `json:"type"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type runEventData struct {
	Status     string             `json:"status"`
	ScenarioID string             `json:"scenario_id,omitempty"`
	Totals     entities.RunTotals `json:"totals"`
	DurationMS int64              `json:"duration_ms"`
	Message    string             `json:"message,omitempty"`
}

func FromEvents(evs []events.Event) []EventResponse {
	out := make([]EventResponse, 0, len(evs))
	for _, ev := range evs {
		data := ev.Data()
		if lc, ok := data.(events.RunLifecycle); ok {
			data = runEventData{
				Status:     lc.Status.String(),
				ScenarioID: lc.ScenarioID,
				Totals:     lc.Totals,
				DurationMS: lc.Duration.Milliseconds(),
				Message:    lc.Message,
			}
		}
		out = append(out, EventResponse{Type: ev.Type(), Version: ev.Version(), Timestamp: ev.Timestamp(), Data: data})
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
