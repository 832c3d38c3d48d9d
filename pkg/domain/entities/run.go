package entities

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTransition is returned when a state machine is asked for a move it does not allow
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidHorizon is returned for a planning horizon whose end is not after its start
	ErrInvalidHorizon = errors.New("planning horizon must be positive")
)

// RunStatus is the lifecycle state of an MRP run
type RunStatus int

const (
	RunDraft RunStatus = iota
	RunInProgress
	RunCompleted
	RunCompletedWithExceptions
	RunFailed
	RunCancelled
)

// String method for RunStatus enum
func (s RunStatus) String() string {
	switch s {
	case RunDraft:
		return "Draft"
	case RunInProgress:
		return "InProgress"
	case RunCompleted:
		return "Completed"
	case RunCompletedWithExceptions:
		return "CompletedWithExceptions"
	case RunFailed:
		return "Failed"
	case RunCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// ParseRunStatus converts the String form back into a RunStatus
func ParseRunStatus(s string) (RunStatus, error) {
	for st := RunDraft; st <= RunCancelled; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return RunDraft, fmt.Errorf("unknown run status: %s", s)
}

// IsTerminal reports whether no further transition is possible
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunCompleted, RunCompletedWithExceptions, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// ProducedPlan reports whether the run ended with a usable planned-order set
func (s RunStatus) ProducedPlan() bool {
	return s == RunCompleted || s == RunCompletedWithExceptions
}

// CanTransition reports whether a run may move from s to next
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case RunDraft:
		return next == RunInProgress || next == RunCancelled
	case RunInProgress:
		switch next {
		case RunCompleted, RunCompletedWithExceptions, RunFailed, RunCancelled:
			return true
		default:
			return false
		}
	case RunCompleted, RunCompletedWithExceptions, RunFailed, RunCancelled:
		return false
	default:
		return false
	}
}

// Horizon is the closed planning window [Start, End]
type Horizon struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate returns ErrInvalidHorizon when the horizon has no positive length
func (h Horizon) Validate() error {
	if h.Start.IsZero() || h.End.IsZero() || !h.End.After(h.Start) {
		return fmt.Errorf("%w: start=%s end=%s", ErrInvalidHorizon, h.Start.Format("2006-01-02"), h.End.Format("2006-01-02"))
	}
	return nil
}

// Contains reports whether t lies inside the horizon, both ends inclusive
func (h Horizon) Contains(t time.Time) bool {
	return !t.Before(h.Start) && !t.After(h.End)
}

// DemandInclude selects which independent demand sources feed a run
type DemandInclude struct {
	MPS         bool `json:"mps"`
	Forecasts   bool `json:"forecasts"`
	SalesOrders bool `json:"sales_orders"`
	WorkOrders  bool `json:"work_orders"`
}

// Any reports whether at least one source is selected
func (d DemandInclude) Any() bool {
	return d.MPS || d.Forecasts || d.SalesOrders || d.WorkOrders
}

// Includes reports whether records of the given source are selected
func (d DemandInclude) Includes(source DemandSource) bool {
	switch source {
	case MasterSchedule:
		return d.MPS
	case Forecast:
		return d.Forecasts
	case SalesOrder:
		return d.SalesOrders
	case WorkOrder:
		return d.WorkOrders
	default:
		return false
	}
}

// RunTotals summarises the outcome of a run
type RunTotals struct {
	ItemsPlanned     int      `json:"items_planned"`
	PlannedOrders    int      `json:"planned_orders"`
	PlannedQuantity  Quantity `json:"planned_quantity"`
	Exceptions       int      `json:"exceptions"`
	SkippedRecords   int      `json:"skipped_records"`
	OverloadedCells  int      `json:"overloaded_cells"`
	ConfirmationsDue int      `json:"confirmations_due"`
}

// MRPRun is one batch planning run
type MRPRun struct {
	ID          string        `json:"id"`
	ScenarioID  string        `json:"scenario_id,omitempty"`
	Horizon     Horizon       `json:"horizon"`
	RunDate     time.Time     `json:"run_date"`
	Include     DemandInclude `json:"include"`
	Status      RunStatus     `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Totals      RunTotals     `json:"totals"`
	Message     string        `json:"message,omitempty"`
}

// NewMRPRun creates a Draft run after validating the horizon and demand selection
func NewMRPRun(id string, horizon Horizon, runDate time.Time, include DemandInclude, now time.Time) (*MRPRun, error) {
	if id == "" {
		return nil, fmt.Errorf("run id cannot be empty")
	}
	if err := horizon.Validate(); err != nil {
		return nil, err
	}
	return &MRPRun{
		ID:        id,
		Horizon:   horizon,
		RunDate:   runDate,
		Include:   include,
		Status:    RunDraft,
		CreatedAt: now,
	}, nil
}

// Transition moves the run to next, stamping start/completion times
func (r *MRPRun) Transition(next RunStatus, at time.Time) error {
	if !r.Status.CanTransition(next) {
		return fmt.Errorf("%w: run %s %s -> %s", ErrInvalidTransition, r.ID, r.Status, next)
	}
	r.Status = next
	if next == RunInProgress {
		r.StartedAt = &at
	}
	if next.IsTerminal() {
		r.CompletedAt = &at
	}
	return nil
}

// Clone returns a copy that shares no pointers with r
func (r MRPRun) Clone() MRPRun {
	out := r
	if r.StartedAt != nil {
		t := *r.StartedAt
		out.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
