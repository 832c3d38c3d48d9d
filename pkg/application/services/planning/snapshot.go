package planning

import (
	"context"
	"fmt"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// capacityLookbackDays bounds how far before the horizon explicit capacity is read;
// backward scheduled operations of long lead-time items start before the horizon.
const capacityLookbackDays = 366

// Snapshot returns the input snapshot of run. Snapshots of recent runs are retained;
// older ones are re-read from the repositories using the run's horizon.
func (p *Planner) Snapshot(ctx context.Context, run *entities.MRPRun) (*dto.Snapshot, error) {
	p.mu.Lock()
	snap, ok := p.snapshots[run.ID]
	p.mu.Unlock()
	if ok {
		return snap.Clone(), nil
	}
	return p.readSnapshot(ctx, run.Horizon)
}

func (p *Planner) retainSnapshot(runID string, snap *dto.Snapshot) {
	limit := p.cfg.SnapshotRetention
	if limit <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[runID] = snap
	p.snapshotOrder = append(p.snapshotOrder, runID)
	for len(p.snapshotOrder) > limit {
		delete(p.snapshots, p.snapshotOrder[0])
		p.snapshotOrder = p.snapshotOrder[1:]
	}
}

// readSnapshot reads every input repository once
func (p *Planner) readSnapshot(ctx context.Context, horizon entities.Horizon) (*dto.Snapshot, error) {
	snap := dto.NewSnapshot(p.now())
	r := p.repos

	steps := []struct {
		name string
		read func() error
	}{
		{"items", func() error {
			if r.Items == nil {
				return nil
			}
			items, err := r.Items.GetAllItems()
			for _, it := range items {
				snap.Items[it.ID] = *it
			}
			return err
		}},
		{"boms", func() error {
			if r.BOMs == nil {
				return nil
			}
			boms, err := r.BOMs.GetCurrentBOMs()
			for _, b := range boms {
				snap.BOMs[b.ParentID] = b.Clone()
			}
			return err
		}},
		{"parameters", func() error {
			if r.Parameters == nil {
				return nil
			}
			params, err := r.Parameters.GetAllParameters()
			for _, prm := range params {
				snap.Parameters[entities.PlanningKey{ItemID: prm.ItemID, WarehouseID: prm.WarehouseID}] = *prm
			}
			return err
		}},
		{"inventory", func() error {
			if r.Inventory == nil {
				return nil
			}
			balances, err := r.Inventory.GetAllOnHand()
			if err != nil {
				return err
			}
			for _, b := range balances {
				snap.OnHand[entities.PlanningKey{ItemID: b.ItemID, WarehouseID: b.WarehouseID}] += b.Quantity
			}
			receipts, err := r.Inventory.GetAllScheduledReceipts()
			if err != nil {
				return err
			}
			for _, rc := range receipts {
				key := entities.PlanningKey{ItemID: rc.ItemID, WarehouseID: rc.WarehouseID}
				snap.Receipts[key] = append(snap.Receipts[key], *rc)
			}
			firmed, err := r.Inventory.GetFirmedOrders()
			for _, o := range firmed {
				snap.FirmedOrders = append(snap.FirmedOrders, o.Clone())
			}
			return err
		}},
		{"demand", func() error {
			if r.Demand == nil {
				return nil
			}
			demands, err := r.Demand.GetDemands(horizon)
			for _, d := range demands {
				snap.Demands = append(snap.Demands, *d)
			}
			return err
		}},
		{"capacity", func() error {
			if r.Capacity == nil {
				return nil
			}
			centers, err := r.Capacity.GetAllWorkCenters()
			if err != nil {
				return err
			}
			for _, wc := range centers {
				snap.WorkCenters[wc.ID] = *wc
			}
			cells, err := r.Capacity.GetAvailableCapacity(horizon.Start.AddDate(0, 0, -capacityLookbackDays), horizon.End)
			for _, c := range cells {
				key := entities.CellKey{WorkCenterID: c.WorkCenterID, Bucket: p.calendar.BucketStart(c.Bucket)}
				snap.Capacity[key] = snap.Capacity[key].Add(c.AvailableHours)
			}
			return err
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step.read(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", step.name, err)
		}
	}
	return snap, nil
}
