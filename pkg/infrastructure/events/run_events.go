package events

import (
	"time"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

const (
	RunCreatedEvent   = "run.created"
	RunStartedEvent   = "run.started"
	RunCompletedEvent = "run.completed"
	RunFailedEvent    = "run.failed"
	RunCancelledEvent = "run.cancelled"

	ScenarioCreatedEvent = "scenario.created"
)

// LifecycleEventTypes lists every event type the planner and scenario service publish
var LifecycleEventTypes = []string{
	RunCreatedEvent,
	RunStartedEvent,
	RunCompletedEvent,
	RunFailedEvent,
	RunCancelledEvent,
	ScenarioCreatedEvent,
}

// RunLifecycle is the payload of every run.* event
type RunLifecycle struct {
	RunID      string             `json:"run_id"`
	ScenarioID string             `json:"scenario_id,omitempty"`
	Status     entities.RunStatus `json:"status"`
	Totals     entities.RunTotals `json:"totals"`
	Duration   time.Duration      `json:"duration"`
	Message    string             `json:"message,omitempty"`
}

type ScenarioCreated struct {
	ScenarioID    string `json:"scenario_id"`
	BaselineRunID string `json:"baseline_run_id"`
	RunID         string `json:"run_id"`
}

// RunEventType maps a terminal run status to the event announcing it
func RunEventType(status entities.RunStatus) string {
	switch status {
	case entities.RunDraft:
		return RunCreatedEvent
	case entities.RunInProgress:
		return RunStartedEvent
	case entities.RunFailed:
		return RunFailedEvent
	case entities.RunCancelled:
		return RunCancelledEvent
	default:
		return RunCompletedEvent
	}
}

// NewRunEvent builds the lifecycle event of run in its current status
func NewRunEvent(run entities.MRPRun, duration time.Duration, at time.Time) Event {
	return NewEvent(RunEventType(run.Status), run.ID, RunLifecycle{
		RunID:      run.ID,
		ScenarioID: run.ScenarioID,
		Status:     run.Status,
		Totals:     run.Totals,
		Duration:   duration,
		Message:    run.Message,
	}, at)
}
