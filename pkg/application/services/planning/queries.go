package planning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

// CapacityQuery selects the cells of analyze_capacity. An empty RunID means the latest
// baseline run that produced a plan; zero From/To leave that side open.
type CapacityQuery struct {
	RunID        string
	WorkCenterID entities.WorkCenterID
	From         time.Time
	To           time.Time
}

// GetRun returns the stored state of a run
func (p *Planner) GetRun(ctx context.Context, runID string) (*entities.MRPRun, error) {
	run, err := p.repos.Plans.GetRun(ctx, runID)
	if err != nil {
		return nil, notFound(runID, err)
	}
	return run, nil
}

// ListRuns returns every stored run in creation order
func (p *Planner) ListRuns(ctx context.Context) ([]*entities.MRPRun, error) {
	return p.repos.Plans.ListRuns(ctx)
}

// ListSuggestions returns the planned orders of a run, firmed orders included
func (p *Planner) ListSuggestions(ctx context.Context, runID string) ([]entities.PlannedOrder, error) {
	orders, err := p.repos.Plans.ListPlannedOrders(ctx, runID)
	if err != nil {
		return nil, notFound(runID, err)
	}
	return orders, nil
}

// ListExceptions returns the exceptions of a run in review order
func (p *Planner) ListExceptions(ctx context.Context, runID string) ([]entities.PlanningException, error) {
	excs, err := p.repos.Plans.ListExceptions(ctx, runID)
	if err != nil {
		return nil, notFound(runID, err)
	}
	return excs, nil
}

// AnalyzeCapacity reports the capacity ledger of a run filtered by work center and bucket range
func (p *Planner) AnalyzeCapacity(ctx context.Context, q CapacityQuery) (*dto.CapacityReport, error) {
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, fmt.Errorf("capacity range end %s is before start %s", q.To.Format("2006-01-02"), q.From.Format("2006-01-02"))
	}

	runID := q.RunID
	if runID == "" {
		latest, err := p.latestBaseline(ctx)
		if err != nil {
			return nil, err
		}
		runID = latest
	}

	cells, err := p.repos.Plans.ListCapacity(ctx, runID)
	if err != nil {
		return nil, notFound(runID, err)
	}

	var from, to time.Time
	if !q.From.IsZero() {
		from = p.calendar.BucketStart(q.From)
	}
	if !q.To.IsZero() {
		to = p.calendar.BucketStart(q.To)
	}

	report := &dto.CapacityReport{RunID: runID, Rows: []dto.CapacityRow{}}
	for _, c := range cells {
		if q.WorkCenterID != "" && c.WorkCenterID != q.WorkCenterID {
			continue
		}
		if !from.IsZero() && c.Bucket.Before(from) {
			continue
		}
		if !to.IsZero() && c.Bucket.After(to) {
			continue
		}
		row := dto.NewCapacityRow(c)
		if row.Overloaded {
			report.OverloadedRows++
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

func (p *Planner) latestBaseline(ctx context.Context) (string, error) {
	runs, err := p.repos.Plans.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].ScenarioID == "" && runs[i].Status.ProducedPlan() {
			return runs[i].ID, nil
		}
	}
	return "", fmt.Errorf("%w: no completed baseline run", ErrRunNotFound)
}

func notFound(runID string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return err
}
