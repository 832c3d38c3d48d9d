package dynamo

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

// fakeDynamo understands exactly the expressions PlanRepository writes
type fakeDynamo struct {
	mu            sync.Mutex
	keys          map[string][]string
	items         map[string]map[string]map[string]types.AttributeValue
	unprocessOnce bool
	neverProcess  bool
	batchCalls    int
}

func newFakeDynamo(t Tables) *fakeDynamo {
	f := &fakeDynamo{
		keys: map[string][]string{
			t.Runs:       {"id"},
			t.Scenarios:  {"id"},
			t.Orders:     {"run_id", "seq"},
			t.Exceptions: {"run_id", "seq"},
			t.Capacity:   {"run_id", "seq"},
		},
		items: make(map[string]map[string]map[string]types.AttributeValue),
	}
	for table := range f.keys {
		f.items[table] = make(map[string]map[string]types.AttributeValue)
	}
	return f
}

func attrString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	default:
		return ""
	}
}

func (f *fakeDynamo) key(table string, item map[string]types.AttributeValue) string {
	parts := make([]string, 0, 2)
	for _, k := range f.keys[table] {
		parts = append(parts, attrString(item[k]))
	}
	return strings.Join(parts, "|")
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(in.TableName)
	k := f.key(table, in.Item)
	if _, exists := f.items[table][k]; exists && aws.ToString(in.ConditionExpression) == "attribute_not_exists(#id)" {
		return nil, conditionFailed()
	}
	f.items[table][k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(in.TableName)
	return &dynamodb.GetItemOutput{Item: f.items[table][f.key(table, in.Key)]}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(in.TableName)
	k := f.key(table, in.Key)
	item, exists := f.items[table][k]
	if !exists {
		return nil, conditionFailed()
	}
	allowed := false
	for name, v := range in.ExpressionAttributeValues {
		if strings.HasPrefix(name, ":allowed") && attrString(v) == attrString(item["status"]) {
			allowed = true
		}
	}
	if !allowed {
		return nil, conditionFailed()
	}

	updated := make(map[string]types.AttributeValue, len(item)+1)
	for name, v := range item {
		updated[name] = v
	}
	out := &dynamodb.UpdateItemOutput{}
	expr := aws.ToString(in.UpdateExpression)
	switch {
	case strings.HasPrefix(expr, "SET"):
		updated["status"] = in.ExpressionAttributeValues[":status"]
		updated["payload"] = in.ExpressionAttributeValues[":payload"]
	case strings.HasPrefix(expr, "ADD"):
		counter := in.ExpressionAttributeNames["#count"]
		current, _ := strconv.Atoi(attrString(updated[counter]))
		n, _ := strconv.Atoi(attrString(in.ExpressionAttributeValues[":n"]))
		total := &types.AttributeValueMemberN{Value: strconv.Itoa(current + n)}
		updated[counter] = total
		out.Attributes = map[string]types.AttributeValue{counter: total}
	}
	f.items[table][k] = updated
	return out, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	runID := attrString(in.ExpressionAttributeValues[":run_id"])
	var items []map[string]types.AttributeValue
	for _, item := range f.items[aws.ToString(in.TableName)] {
		if attrString(item["run_id"]) == runID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		a, _ := strconv.Atoi(attrString(items[i]["seq"]))
		b, _ := strconv.Atoi(attrString(items[j]["seq"]))
		return a < b
	})
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []map[string]types.AttributeValue
	for _, item := range f.items[aws.ToString(in.TableName)] {
		items = append(items, item)
	}
	return &dynamodb.ScanOutput{Items: items}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for table, requests := range in.RequestItems {
		if f.neverProcess {
			out.UnprocessedItems[table] = requests
			continue
		}
		if f.unprocessOnce && len(requests) > 1 {
			f.unprocessOnce = false
			half := len(requests) / 2
			out.UnprocessedItems[table] = requests[half:]
			requests = requests[:half]
		}
		for _, req := range requests {
			f.items[table][f.key(table, req.PutRequest.Item)] = req.PutRequest.Item
		}
	}
	return out, nil
}

var june = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) (*PlanRepository, *fakeDynamo) {
	t.Helper()
	tables := TablesWithPrefix("test")
	fake := newFakeDynamo(tables)
	return NewPlanRepository(fake, tables, WithRetryBackoff(time.Millisecond)), fake
}

func draftRun(t *testing.T, id string, createdAt time.Time) *entities.MRPRun {
	t.Helper()
	run, err := entities.NewMRPRun(id,
		entities.Horizon{Start: createdAt, End: createdAt.AddDate(0, 3, 0)},
		createdAt, entities.DemandInclude{SalesOrders: true}, createdAt)
	require.NoError(t, err)
	return run
}

func startedRun(t *testing.T, repo *PlanRepository, id string) *entities.MRPRun {
	t.Helper()
	ctx := context.Background()
	run := draftRun(t, id, june)
	require.NoError(t, repo.CreateRun(ctx, run))
	require.NoError(t, run.Transition(entities.RunInProgress, june))
	require.NoError(t, repo.UpdateRun(ctx, run))
	return run
}

func order(t *testing.T, runID string, seq int, qty entities.Quantity) entities.PlannedOrder {
	t.Helper()
	o, err := entities.NewPlannedOrder("WIDGET", "WH1", entities.Make, qty, june.AddDate(0, 0, 14), 3, []string{"SO-1"})
	require.NoError(t, err)
	o.ID = runID + "-" + strconv.Itoa(seq)
	o.RunID = runID
	return *o
}

func TestTablesWithPrefix(t *testing.T) {
	assert.Equal(t, Tables{
		Runs:       "mrp_runs",
		Orders:     "mrp_planned_orders",
		Exceptions: "mrp_exceptions",
		Capacity:   "mrp_capacity",
		Scenarios:  "mrp_scenarios",
	}, TablesWithPrefix(""))
	assert.Equal(t, "prod_runs", TablesWithPrefix("prod").Runs)
}

func TestPlanRepository_RunRoundTrip(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	run := startedRun(t, repo, "RUN-1")

	got, err := repo.GetRun(ctx, "RUN-1")
	require.NoError(t, err)
	assert.Equal(t, entities.RunInProgress, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.Equal(june))
	assert.True(t, got.Include.SalesOrders)
	assert.True(t, got.Horizon.End.Equal(run.Horizon.End))

	require.Error(t, repo.CreateRun(ctx, draftRun(t, "RUN-1", june)))

	_, err = repo.GetRun(ctx, "RUN-404")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestPlanRepository_RecordsKeepSaveOrder(t *testing.T) {
	repo, fake := newRepo(t)
	ctx := context.Background()
	startedRun(t, repo, "RUN-1")

	var first []entities.PlannedOrder
	for i := 0; i < 30; i++ {
		first = append(first, order(t, "RUN-1", i, entities.Quantity(i+1)))
	}
	fake.unprocessOnce = true
	require.NoError(t, repo.SavePlannedOrders(ctx, "RUN-1", first))
	require.NoError(t, repo.SavePlannedOrders(ctx, "RUN-1", []entities.PlannedOrder{order(t, "RUN-1", 30, 99)}))
	// 25 + retry of the unprocessed half + 5, then the single order
	assert.Equal(t, 4, fake.batchCalls)

	orders, err := repo.ListPlannedOrders(ctx, "RUN-1")
	require.NoError(t, err)
	require.Len(t, orders, 31)
	for i, o := range orders {
		assert.Equal(t, "RUN-1-"+strconv.Itoa(i), o.ID)
	}
	assert.Equal(t, entities.Quantity(99), orders[30].Quantity)
	assert.Equal(t, []string{"SO-1"}, orders[0].SourceDemandIDs)
	assert.True(t, orders[0].DueDate.Equal(june.AddDate(0, 0, 14)))
}

func TestPlanRepository_ExceptionsAndCapacity(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	startedRun(t, repo, "RUN-1")

	bucket := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveExceptions(ctx, "RUN-1", []entities.PlanningException{{
		RunID: "RUN-1", Type: entities.Overload, Severity: entities.SeverityCritical,
		WorkCenterID: "WELD", Bucket: bucket, Quantity: decimal.RequireFromString("15"), Message: "overloaded",
	}}))
	require.NoError(t, repo.SaveCapacity(ctx, "RUN-1", []entities.ResourceCapacity{
		{WorkCenterID: "WELD", Bucket: bucket.AddDate(0, 0, 7), AvailableHours: decimal.NewFromInt(40), AllocatedHours: decimal.NewFromInt(10)},
		{WorkCenterID: "ASSY", Bucket: bucket, AvailableHours: decimal.NewFromInt(80), AllocatedHours: decimal.NewFromInt(20)},
		{WorkCenterID: "WELD", Bucket: bucket, AvailableHours: decimal.NewFromInt(40), AllocatedHours: decimal.RequireFromString("55")},
	}))

	exceptions, err := repo.ListExceptions(ctx, "RUN-1")
	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, entities.Overload, exceptions[0].Type)
	assert.True(t, decimal.NewFromInt(15).Equal(exceptions[0].Quantity))

	cells, err := repo.ListCapacity(ctx, "RUN-1")
	require.NoError(t, err)
	require.Len(t, cells, 3)
	assert.Equal(t, entities.WorkCenterID("ASSY"), cells[0].WorkCenterID)
	assert.True(t, cells[1].Bucket.Equal(bucket))
	assert.True(t, cells[1].Overloaded())
	assert.True(t, cells[2].Bucket.After(cells[1].Bucket))
}

func TestPlanRepository_FreezesTerminalRuns(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	run := startedRun(t, repo, "RUN-1")

	require.NoError(t, run.Transition(entities.RunCompleted, june.Add(time.Minute)))
	require.NoError(t, repo.UpdateRun(ctx, run))

	assert.ErrorIs(t, repo.SavePlannedOrders(ctx, "RUN-1", []entities.PlannedOrder{order(t, "RUN-1", 0, 1)}), repositories.ErrRunFrozen)
	assert.ErrorIs(t, repo.SaveExceptions(ctx, "RUN-1", nil), repositories.ErrRunFrozen)
	assert.ErrorIs(t, repo.SaveCapacity(ctx, "RUN-1", nil), repositories.ErrRunFrozen)

	run.Status = entities.RunFailed
	assert.ErrorIs(t, repo.UpdateRun(ctx, run), repositories.ErrRunFrozen)

	got, err := repo.GetRun(ctx, "RUN-1")
	require.NoError(t, err)
	assert.Equal(t, entities.RunCompleted, got.Status)
}

func TestPlanRepository_RejectsBackwardsTransition(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	run := draftRun(t, "RUN-1", june)
	require.NoError(t, repo.CreateRun(ctx, run))

	run.Status = entities.RunCompleted
	assert.ErrorIs(t, repo.UpdateRun(ctx, run), entities.ErrInvalidTransition)

	run.Status = entities.RunInProgress
	run.ID = "RUN-404"
	assert.ErrorIs(t, repo.UpdateRun(ctx, run), repositories.ErrNotFound)
}

func TestPlanRepository_UnknownRun(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.SavePlannedOrders(ctx, "RUN-404", nil), repositories.ErrNotFound)
	_, err := repo.ListPlannedOrders(ctx, "RUN-404")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repo.ListExceptions(ctx, "RUN-404")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repo.ListCapacity(ctx, "RUN-404")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestPlanRepository_ListRunsByCreation(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateRun(ctx, draftRun(t, "RUN-B", june.Add(time.Hour))))
	require.NoError(t, repo.CreateRun(ctx, draftRun(t, "RUN-C", june)))
	require.NoError(t, repo.CreateRun(ctx, draftRun(t, "RUN-A", june.Add(time.Hour))))

	runs, err := repo.ListRuns(ctx)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"RUN-C", "RUN-A", "RUN-B"}, ids)
}

func TestPlanRepository_Scenarios(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	lt := 5
	scenario := &entities.WhatIfScenario{
		ID:            "SCN-1",
		BaselineRunID: "RUN-1",
		RunID:         "RUN-2",
		Deltas: entities.ScenarioDeltas{
			Parameters: []entities.ParameterDelta{{ItemID: "WIDGET", WarehouseID: "WH1", LeadTimeDays: &lt}},
			Capacity:   []entities.CapacityDelta{{WorkCenterID: "WELD", AvailableHours: decimal.NewFromInt(60)}},
		},
		CreatedAt: june,
	}
	require.NoError(t, repo.SaveScenario(ctx, scenario))
	require.Error(t, repo.SaveScenario(ctx, scenario))

	got, err := repo.GetScenario(ctx, "SCN-1")
	require.NoError(t, err)
	assert.Equal(t, "RUN-2", got.RunID)
	require.Len(t, got.Deltas.Parameters, 1)
	require.NotNil(t, got.Deltas.Parameters[0].LeadTimeDays)
	assert.Equal(t, 5, *got.Deltas.Parameters[0].LeadTimeDays)
	assert.True(t, decimal.NewFromInt(60).Equal(got.Deltas.Capacity[0].AvailableHours))

	_, err = repo.GetScenario(ctx, "SCN-404")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestPlanRepository_UnprocessedItemsBackOff(t *testing.T) {
	repo, fake := newRepo(t)
	run := startedRun(t, repo, "run-1")
	fake.neverProcess = true

	began := time.Now()
	err := repo.SavePlannedOrders(context.Background(), run.ID, []entities.PlannedOrder{order(t, run.ID, 1, 5)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unprocessed after 5 attempts")
	assert.Equal(t, 5, fake.batchCalls)
	// 1 + 2 + 4 + 8 ms between the five attempts
	assert.GreaterOrEqual(t, time.Since(began), 15*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake.batchCalls = 0
	slow := NewPlanRepository(fake, TablesWithPrefix("test"), WithRetryBackoff(time.Hour))
	err = slow.SavePlannedOrders(ctx, run.ID, []entities.PlannedOrder{order(t, run.ID, 2, 5)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.batchCalls, "a cancelled context stops the resend wait")
}
