package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

const (
	defaultTablePrefix = "mrp"
	maxBatchSize       = 25
	maxBatchRetries    = 5
	defaultBackoff     = 50 * time.Millisecond

	orderCount     = "order_count"
	exceptionCount = "exception_count"
	capacityCount  = "capacity_count"
)

// Tables names the DynamoDB tables of the plan repository.
//
// Table requirements:
//   - Runs, Scenarios: PK id (string)
//   - Orders, Exceptions, Capacity: PK run_id (string), SK seq (number)
type Tables struct {
	Runs       string
	Orders     string
	Exceptions string
	Capacity   string
	Scenarios  string
}

// TablesWithPrefix returns the table names used under the given prefix
func TablesWithPrefix(prefix string) Tables {
	if prefix == "" {
		prefix = defaultTablePrefix
	}
	return Tables{
		Runs:       prefix + "_runs",
		Orders:     prefix + "_planned_orders",
		Exceptions: prefix + "_exceptions",
		Capacity:   prefix + "_capacity",
		Scenarios:  prefix + "_scenarios",
	}
}

// runItem stores the run as a JSON payload next to the attributes conditions are written on
type runItem struct {
	ID             string `dynamodbav:"id"`
	Status         string `dynamodbav:"status"`
	CreatedAt      string `dynamodbav:"created_at"`
	Payload        string `dynamodbav:"payload"`
	OrderCount     int    `dynamodbav:"order_count"`
	ExceptionCount int    `dynamodbav:"exception_count"`
	CapacityCount  int    `dynamodbav:"capacity_count"`
}

type recordItem struct {
	RunID   string `dynamodbav:"run_id"`
	Seq     int    `dynamodbav:"seq"`
	Payload string `dynamodbav:"payload"`
}

type scenarioItem struct {
	ID            string `dynamodbav:"id"`
	BaselineRunID string `dynamodbav:"baseline_run_id"`
	RunID         string `dynamodbav:"run_id"`
	Payload       string `dynamodbav:"payload"`
}

// PlanRepository persists run output in DynamoDB. Orders, exceptions and capacity cells
// are appended under a per-run counter on the run item; the counter update is
// conditioned on a non-terminal status so a frozen run rejects every write.
type PlanRepository struct {
	ddb     API
	tables  Tables
	backoff time.Duration
}

var _ repositories.PlanRepository = (*PlanRepository)(nil)

type Option func(*PlanRepository)

// WithRetryBackoff sets the wait before the first resend of unprocessed batch items. It
// doubles on every further attempt.
func WithRetryBackoff(d time.Duration) Option {
	return func(r *PlanRepository) { r.backoff = d }
}

// NewPlanRepository creates a repository over the given client and tables
func NewPlanRepository(ddb API, tables Tables, opts ...Option) *PlanRepository {
	r := &PlanRepository{ddb: ddb, tables: tables, backoff: defaultBackoff}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRun stores a new run
func (r *PlanRepository) CreateRun(ctx context.Context, run *entities.MRPRun) error {
	item, err := toRunItem(run)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", run.ID, err)
	}
	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tables.Runs),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return nil
}

// UpdateRun replaces the status and payload of a run that has not reached a terminal status
func (r *PlanRepository) UpdateRun(ctx context.Context, run *entities.MRPRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}

	var from []entities.RunStatus
	for st := entities.RunDraft; st <= entities.RunCancelled; st++ {
		if (st == run.Status && !st.IsTerminal()) || st.CanTransition(run.Status) {
			from = append(from, st)
		}
	}
	cond, values := statusCondition(from)
	values[":status"] = &types.AttributeValueMemberS{Value: run.Status.String()}
	values[":payload"] = &types.AttributeValueMemberS{Value: string(payload)}

	_, err = r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tables.Runs),
		Key:                       idKey(run.ID),
		UpdateExpression:          aws.String("SET #status = :status, #payload = :payload"),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  map[string]string{"#id": "id", "#status": "status", "#payload": "payload"},
		ExpressionAttributeValues: values,
	})
	if isConditionFailed(err) {
		stored, getErr := r.getRunItem(ctx, run.ID)
		if getErr != nil {
			return getErr
		}
		status, _ := entities.ParseRunStatus(stored.Status)
		if status.IsTerminal() {
			return fmt.Errorf("run %s is %s: %w", run.ID, status, repositories.ErrRunFrozen)
		}
		return fmt.Errorf("%w: run %s %s -> %s", entities.ErrInvalidTransition, run.ID, status, run.Status)
	}
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun reads one run
func (r *PlanRepository) GetRun(ctx context.Context, runID string) (*entities.MRPRun, error) {
	item, err := r.getRunItem(ctx, runID)
	if err != nil {
		return nil, err
	}
	return decodeRun(item)
}

// ListRuns scans the runs table and orders the runs by creation time
func (r *PlanRepository) ListRuns(ctx context.Context) ([]*entities.MRPRun, error) {
	var runs []*entities.MRPRun
	var start map[string]types.AttributeValue
	for {
		out, err := r.ddb.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tables.Runs),
			ExclusiveStartKey: start,
			ConsistentRead:    aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan runs: %w", err)
		}
		var items []runItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal runs: %w", err)
		}
		for _, it := range items {
			run, err := decodeRun(it)
			if err != nil {
				return nil, err
			}
			runs = append(runs, run)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		start = out.LastEvaluatedKey
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

// SavePlannedOrders appends orders to a run in progress
func (r *PlanRepository) SavePlannedOrders(ctx context.Context, runID string, orders []entities.PlannedOrder) error {
	payloads := make([]any, len(orders))
	for i := range orders {
		payloads[i] = orders[i]
	}
	return r.appendRecords(ctx, runID, r.tables.Orders, orderCount, payloads)
}

// ListPlannedOrders returns a run's planned orders in the order they were saved
func (r *PlanRepository) ListPlannedOrders(ctx context.Context, runID string) ([]entities.PlannedOrder, error) {
	var orders []entities.PlannedOrder
	err := r.queryRecords(ctx, runID, r.tables.Orders, func(payload []byte) error {
		var o entities.PlannedOrder
		if err := json.Unmarshal(payload, &o); err != nil {
			return err
		}
		orders = append(orders, o)
		return nil
	})
	return orders, err
}

// SaveExceptions appends exceptions to a run in progress
func (r *PlanRepository) SaveExceptions(ctx context.Context, runID string, exceptions []entities.PlanningException) error {
	payloads := make([]any, len(exceptions))
	for i := range exceptions {
		payloads[i] = exceptions[i]
	}
	return r.appendRecords(ctx, runID, r.tables.Exceptions, exceptionCount, payloads)
}

// ListExceptions returns a run's exceptions in the order they were saved
func (r *PlanRepository) ListExceptions(ctx context.Context, runID string) ([]entities.PlanningException, error) {
	var exceptions []entities.PlanningException
	err := r.queryRecords(ctx, runID, r.tables.Exceptions, func(payload []byte) error {
		var e entities.PlanningException
		if err := json.Unmarshal(payload, &e); err != nil {
			return err
		}
		exceptions = append(exceptions, e)
		return nil
	})
	return exceptions, err
}

// SaveCapacity stores the capacity ledger of a run in progress
func (r *PlanRepository) SaveCapacity(ctx context.Context, runID string, cells []entities.ResourceCapacity) error {
	payloads := make([]any, len(cells))
	for i := range cells {
		payloads[i] = cells[i]
	}
	return r.appendRecords(ctx, runID, r.tables.Capacity, capacityCount, payloads)
}

// ListCapacity returns a run's capacity ledger ordered by work center and bucket
func (r *PlanRepository) ListCapacity(ctx context.Context, runID string) ([]entities.ResourceCapacity, error) {
	var cells []entities.ResourceCapacity
	err := r.queryRecords(ctx, runID, r.tables.Capacity, func(payload []byte) error {
		var c entities.ResourceCapacity
		if err := json.Unmarshal(payload, &c); err != nil {
			return err
		}
		cells = append(cells, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].WorkCenterID != cells[j].WorkCenterID {
			return cells[i].WorkCenterID < cells[j].WorkCenterID
		}
		return cells[i].Bucket.Before(cells[j].Bucket)
	})
	return cells, nil
}

// SaveScenario stores a what-if scenario
func (r *PlanRepository) SaveScenario(ctx context.Context, scenario *entities.WhatIfScenario) error {
	payload, err := json.Marshal(scenario)
	if err != nil {
		return fmt.Errorf("failed to encode scenario %s: %w", scenario.ID, err)
	}
	av, err := attributevalue.MarshalMap(scenarioItem{
		ID:            scenario.ID,
		BaselineRunID: scenario.BaselineRunID,
		RunID:         scenario.RunID,
		Payload:       string(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal scenario %s: %w", scenario.ID, err)
	}
	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tables.Scenarios),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("scenario %s already exists", scenario.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to save scenario %s: %w", scenario.ID, err)
	}
	return nil
}

// GetScenario reads one scenario
func (r *PlanRepository) GetScenario(ctx context.Context, scenarioID string) (*entities.WhatIfScenario, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Scenarios),
		Key:            idKey(scenarioID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario %s: %w", scenarioID, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("scenario %s: %w", scenarioID, repositories.ErrNotFound)
	}
	var it scenarioItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario %s: %w", scenarioID, err)
	}
	var s entities.WhatIfScenario
	if err := json.Unmarshal([]byte(it.Payload), &s); err != nil {
		return nil, fmt.Errorf("failed to decode scenario %s: %w", scenarioID, err)
	}
	return &s, nil
}

// appendRecords reserves len(payloads) sequence numbers on the run item, then batch-writes
// the records under them
func (r *PlanRepository) appendRecords(ctx context.Context, runID, table, counter string, payloads []any) error {
	cond, values := statusCondition([]entities.RunStatus{entities.RunDraft, entities.RunInProgress})
	values[":n"] = &types.AttributeValueMemberN{Value: strconv.Itoa(len(payloads))}

	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tables.Runs),
		Key:                       idKey(runID),
		UpdateExpression:          aws.String("ADD #count :n"),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  map[string]string{"#id": "id", "#status": "status", "#count": counter},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if isConditionFailed(err) {
		stored, getErr := r.getRunItem(ctx, runID)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("run %s is %s: %w", runID, stored.Status, repositories.ErrRunFrozen)
	}
	if err != nil {
		return fmt.Errorf("failed to reserve %s for run %s: %w", counter, runID, err)
	}
	if len(payloads) == 0 {
		return nil
	}

	n, ok := out.Attributes[counter].(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("run %s: %s missing from update result", runID, counter)
	}
	total, err := strconv.Atoi(n.Value)
	if err != nil {
		return fmt.Errorf("run %s: invalid %s %q", runID, counter, n.Value)
	}
	base := total - len(payloads)

	requests := make([]types.WriteRequest, 0, len(payloads))
	for i, p := range payloads {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode record for run %s: %w", runID, err)
		}
		av, err := attributevalue.MarshalMap(recordItem{RunID: runID, Seq: base + i, Payload: string(payload)})
		if err != nil {
			return fmt.Errorf("failed to marshal record for run %s: %w", runID, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	return r.batchWrite(ctx, table, requests)
}

func (r *PlanRepository) batchWrite(ctx context.Context, table string, requests []types.WriteRequest) error {
	for len(requests) > 0 {
		end := min(maxBatchSize, len(requests))
		pending := requests[:end]
		requests = requests[end:]

		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == maxBatchRetries {
				return fmt.Errorf("failed to write %d records to %s: unprocessed after %d attempts", len(pending), table, attempt)
			}
			if attempt > 0 {
				if err := r.wait(ctx, attempt); err != nil {
					return fmt.Errorf("failed to write %d records to %s: %w", len(pending), table, err)
				}
			}
			out, err := r.ddb.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{table: pending},
			})
			if err != nil {
				return fmt.Errorf("failed to write records to %s: %w", table, err)
			}
			pending = out.UnprocessedItems[table]
		}
	}
	return nil
}

func (r *PlanRepository) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(r.backoff << (attempt - 1))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *PlanRepository) queryRecords(ctx context.Context, runID, table string, decode func([]byte) error) error {
	if _, err := r.getRunItem(ctx, runID); err != nil {
		return err
	}
	var start map[string]types.AttributeValue
	for {
		out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(table),
			KeyConditionExpression:    aws.String("#run_id = :run_id"),
			ExpressionAttributeNames:  map[string]string{"#run_id": "run_id"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":run_id": &types.AttributeValueMemberS{Value: runID}},
			ExclusiveStartKey:         start,
			ConsistentRead:            aws.Bool(true),
			ScanIndexForward:          aws.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("failed to query %s for run %s: %w", table, runID, err)
		}
		var items []recordItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return fmt.Errorf("failed to unmarshal %s records: %w", table, err)
		}
		for _, it := range items {
			if err := decode([]byte(it.Payload)); err != nil {
				return fmt.Errorf("failed to decode %s record %d of run %s: %w", table, it.Seq, runID, err)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		start = out.LastEvaluatedKey
	}
}

func (r *PlanRepository) getRunItem(ctx context.Context, runID string) (runItem, error) {
	var it runItem
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Runs),
		Key:            idKey(runID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return it, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	if len(out.Item) == 0 {
		return it, fmt.Errorf("run %s: %w", runID, repositories.ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return it, fmt.Errorf("failed to unmarshal run %s: %w", runID, err)
	}
	return it, nil
}

func toRunItem(run *entities.MRPRun) (runItem, error) {
	payload, err := json.Marshal(run)
	if err != nil {
		return runItem{}, fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}
	return runItem{
		ID:        run.ID,
		Status:    run.Status.String(),
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339Nano),
		Payload:   string(payload),
	}, nil
}

func decodeRun(it runItem) (*entities.MRPRun, error) {
	var run entities.MRPRun
	if err := json.Unmarshal([]byte(it.Payload), &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", it.ID, err)
	}
	return &run, nil
}

// statusCondition builds "the run exists and its status is one of statuses"
func statusCondition(statuses []entities.RunStatus) (string, map[string]types.AttributeValue) {
	values := make(map[string]types.AttributeValue, len(statuses)+2)
	placeholders := make([]string, len(statuses))
	for i, st := range statuses {
		key := ":allowed" + strconv.Itoa(i)
		placeholders[i] = key
		values[key] = &types.AttributeValueMemberS{Value: st.String()}
	}
	return "attribute_exists(#id) AND #status IN (" + strings.Join(placeholders, ", ") + ")", values
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func isConditionFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return errors.As(err, &cfe)
}
