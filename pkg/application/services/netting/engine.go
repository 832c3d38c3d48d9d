package netting

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-aps/pkg/application/services/lotsizing"
	"github.com/vsinha/mrp-aps/pkg/application/services/scheduling"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/services"
)

var hundred = decimal.NewFromInt(100)

// Input is everything needed to net one item in one warehouse
type Input struct {
	Item      entities.Item
	Parameter entities.MRPParameter
	OnHand    entities.Quantity
	Receipts  []entities.ScheduledReceipt
	Firmed    []entities.PlannedOrder
	Gross     []entities.GrossRequirement
	// SafetyStockDate is the bucket used to restore safety stock when no requirement is dated earlier
	SafetyStockDate time.Time
}

// Result holds the per-bucket netting lines and the orders proposed for them
type Result struct {
	Requirements []entities.NetRequirement
	Orders       []entities.PlannedOrder
	Exceptions   []entities.PlanningException
}

// Engine nets gross requirements bucket by bucket against on-hand and scheduled receipts
type Engine struct {
	resolver               *lotsizing.Resolver
	guard                  *scheduling.Guard
	calendar               *services.Calendar
	excessThresholdPercent decimal.Decimal
}

// NewEngine creates a netting engine for one run. Period order quantities cover whole
// periods of calendar.
func NewEngine(resolver *lotsizing.Resolver, guard *scheduling.Guard, calendar *services.Calendar, excessThresholdPercent decimal.Decimal) *Engine {
	return &Engine{resolver: resolver, guard: guard, calendar: calendar, excessThresholdPercent: excessThresholdPercent}
}

type bucket struct {
	date     time.Time
	gross    entities.Quantity
	receipts entities.Quantity
	firmed   []entities.PlannedOrder
	ids      []string
}

func (b *bucket) firmedQuantity() entities.Quantity {
	var total entities.Quantity
	for _, o := range b.firmed {
		total += o.Quantity
	}
	return total
}

// Net runs the netting loop for one planning key. Firmed orders count as receipts on the
// date they cover and are never changed; new orders are returned without ids.
func (e *Engine) Net(in Input) (*Result, error) {
	p := in.Parameter
	if p.ItemID != in.Item.ID {
		return nil, fmt.Errorf("parameter for %s used to net item %s", p.ItemID, in.Item.ID)
	}

	buckets := e.buildBuckets(in)
	result := &Result{}
	ss := p.SafetyStock
	boundary := e.guard.NeedDateBoundary(p)
	orderType := in.Item.Procurement.OrderType()

	projected := in.OnHand
	var totalGross, totalReceipts entities.Quantity

	for i := range buckets {
		b := &buckets[i]
		totalGross += b.gross
		totalReceipts += b.receipts

		before := projected
		available := projected + b.receipts
		net := max0(b.gross + ss - available)

		// a firmed order inside the fence owns its bucket: a shortfall is only reported
		protected := false
		if len(b.firmed) > 0 {
			required := max0(b.gross + ss - (available - b.firmedQuantity()))
			combined := b.firmed[0].Clone()
			combined.Quantity = b.firmedQuantity()
			if exc := e.guard.CheckFirmed(combined, required, p); exc != nil {
				result.Exceptions = append(result.Exceptions, *exc)
			}
			protected = e.firmedInFence(b.firmed, p)
		}

		var planned entities.Quantity
		if net > 0 && !protected {
			var lookahead []entities.Quantity
			if p.LotSizing.Kind == entities.PeriodOrderQuantity {
				periodEnd := e.calendar.BucketStart(b.date).AddDate(0, 0, p.LotSizing.Periods*e.calendar.BucketDays)
				lookahead = periodLookahead(buckets, i, ss, boundary, periodEnd)
			}
			quantities, err := e.resolver.Resolve(p.LotSizing, net, lookahead)
			if err != nil {
				return nil, fmt.Errorf("failed to size lots for %s on %s: %w", in.Item.ID, b.date.Format("2006-01-02"), err)
			}

			ids := append([]string(nil), b.ids...)
			for j, n := range lookahead {
				if n > 0 {
					ids = append(ids, buckets[i+1+j].ids...)
				}
			}

			sched := e.guard.Schedule(b.date, p)
			for _, q := range quantities {
				order, err := entities.NewPlannedOrder(in.Item.ID, p.WarehouseID, orderType, q, sched.DueDate, p.LeadTimeDays, ids)
				if err != nil {
					return nil, fmt.Errorf("failed to create planned order for %s: %w", in.Item.ID, err)
				}
				order.RequiresConfirmation = sched.RequiresConfirmation
				result.Orders = append(result.Orders, *order)
			}
			planned = lotsizing.Sum(quantities)
		}

		projected = max0(available + planned - b.gross)

		result.Requirements = append(result.Requirements, entities.NetRequirement{
			ItemID:          in.Item.ID,
			WarehouseID:     p.WarehouseID,
			Bucket:          b.date,
			Gross:           b.gross,
			Receipts:        b.receipts,
			ProjectedBefore: before,
			Net:             net,
			Planned:         planned,
			ProjectedAfter:  projected,
			SourceDemandIDs: append([]string(nil), b.ids...),
		})
	}

	if len(result.Orders) == 0 {
		if exc := e.excess(in, totalGross, totalReceipts, buckets); exc != nil {
			result.Exceptions = append(result.Exceptions, *exc)
		}
	}
	return result, nil
}

func (e *Engine) firmedInFence(firmed []entities.PlannedOrder, p entities.MRPParameter) bool {
	for _, o := range firmed {
		if e.guard.InFence(o.StartDate, p) {
			return true
		}
	}
	return false
}

func (e *Engine) buildBuckets(in Input) []bucket {
	byDate := make(map[time.Time]*bucket)
	at := func(t time.Time) *bucket {
		d := services.Day(t)
		b, ok := byDate[d]
		if !ok {
			b = &bucket{date: d}
			byDate[d] = b
		}
		return b
	}

	for _, g := range in.Gross {
		b := at(g.Date)
		b.gross += g.Quantity
		b.ids = appendUnique(b.ids, g.SourceDemandIDs...)
	}
	for _, r := range in.Receipts {
		at(r.DueDate).receipts += r.Quantity
	}
	for _, f := range in.Firmed {
		// a firmed order covers the need date its due date was offset from
		b := at(f.DueDate.AddDate(0, 0, in.Parameter.SafetyTimeDays))
		b.receipts += f.Quantity
		b.firmed = append(b.firmed, f)
	}
	if in.Parameter.SafetyStock > 0 && !in.SafetyStockDate.IsZero() {
		at(in.SafetyStockDate)
	}

	out := make([]bucket, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

// periodLookahead simulates the buckets a period order may cover: the current bucket is
// assumed to end exactly at safety stock and each later bucket's net is recomputed from
// there. The walk stops at periodEnd or at the fence boundary.
func periodLookahead(buckets []bucket, i int, ss entities.Quantity, boundary, periodEnd time.Time) []entities.Quantity {
	var out []entities.Quantity
	inside := buckets[i].date.Before(boundary)
	trial := ss
	for j := i + 1; j < len(buckets) && buckets[j].date.Before(periodEnd); j++ {
		if inside && !buckets[j].date.Before(boundary) {
			break
		}
		n := max0(buckets[j].gross + ss - (trial + buckets[j].receipts))
		out = append(out, n)
		trial = trial + buckets[j].receipts + n - buckets[j].gross
	}
	return out
}

func (e *Engine) excess(in Input, totalGross, totalReceipts entities.Quantity, buckets []bucket) *entities.PlanningException {
	ss := in.Parameter.SafetyStock
	surplus := in.OnHand + totalReceipts - totalGross - ss
	if surplus <= 0 {
		return nil
	}
	limit := decimal.NewFromInt(int64(totalGross + ss)).Mul(e.excessThresholdPercent).Div(hundred)
	excess := decimal.NewFromInt(int64(surplus))
	if !excess.GreaterThan(limit) {
		return nil
	}

	bucketDate := in.SafetyStockDate
	if len(buckets) > 0 {
		bucketDate = buckets[len(buckets)-1].date
	}
	return &entities.PlanningException{
		Type:        entities.ExcessInventory,
		Severity:    entities.ExcessInventory.DefaultSeverity(),
		ItemID:      in.Item.ID,
		WarehouseID: in.Parameter.WarehouseID,
		Bucket:      bucketDate,
		Quantity:    excess,
		Message: fmt.Sprintf("%d %s projected above requirements plus safety stock (%d)",
			surplus, in.Item.ID, totalGross+ss),
	}
}

func max0(q entities.Quantity) entities.Quantity {
	if q < 0 {
		return 0
	}
	return q
}

func appendUnique(dst []string, ids ...string) []string {
	for _, id := range ids {
		found := false
		for _, existing := range dst {
			if existing == id {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, id)
		}
	}
	return dst
}
