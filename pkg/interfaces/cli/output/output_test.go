package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/application/services/whatif"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

func date(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleResult() *dto.PlanResult {
	bucket := date("2024-06-10")
	return &dto.PlanResult{
		Run: entities.MRPRun{
			ID:      "RUN-1",
			Status:  entities.RunCompletedWithExceptions,
			Horizon: entities.Horizon{Start: date("2024-06-01"), End: date("2024-08-31")},
			RunDate: date("2024-06-01"),
			Totals:  entities.RunTotals{ItemsPlanned: 2, PlannedOrders: 2, PlannedQuantity: 50, Exceptions: 1, OverloadedCells: 1},
		},
		Orders: []entities.PlannedOrder{
			{ID: "RUN-1-00001", ItemID: "FRAME", WarehouseID: "WH1", OrderType: entities.Make, Quantity: 20,
				StartDate: date("2024-06-05"), DueDate: date("2024-06-12"), Firmed: true},
			{ID: "RUN-1-00002", ItemID: "TUBE", WarehouseID: "WH1", OrderType: entities.Purchase, Quantity: 30,
				StartDate: date("2024-05-30"), DueDate: date("2024-06-04"), RequiresConfirmation: true},
		},
		Exceptions: []entities.PlanningException{{
			RunID: "RUN-1", Type: entities.Overload, Severity: entities.SeverityCritical,
			WorkCenterID: "WELD", Bucket: bucket, Quantity: decimal.NewFromInt(15), Message: "WELD overloaded by 15 hours",
		}},
		Capacity: []entities.ResourceCapacity{{
			WorkCenterID: "WELD", Bucket: bucket, AvailableHours: decimal.NewFromInt(40), AllocatedHours: decimal.NewFromInt(55),
		}},
	}
}

func TestGenerate_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, sampleResult(), Config{Format: FormatText}))

	out := buf.String()
	assert.Contains(t, out, "MRP Run RUN-1")
	assert.Contains(t, out, "CompletedWithExceptions")
	assert.Contains(t, out, "RUN-1-00002")
	assert.Contains(t, out, "wc:WELD")
	assert.Contains(t, out, "137.5")
}

func TestGenerate_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, sampleResult(), Config{Format: FormatJSON}))

	var decoded dto.PlanResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "RUN-1", decoded.Run.ID)
	assert.Len(t, decoded.Orders, 2)
}

func TestGenerate_CSVWritesFiles(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, sampleResult(), Config{Format: FormatCSV, OutputDir: dir, Verbose: true}))

	orders, err := os.ReadFile(filepath.Join(dir, "planned_orders.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(orders)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "order_id,item_id,warehouse_id,order_type,quantity,start_date,due_date,firmed,requires_confirmation", lines[0])
	assert.Equal(t, "RUN-1-00001,FRAME,WH1,Make,20,2024-06-05,2024-06-12,true,false", lines[1])

	capacity, err := os.ReadFile(filepath.Join(dir, "capacity.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(capacity), "WELD,2024-06-10,40,55,137.5,15,true")

	_, err = os.Stat(filepath.Join(dir, "exceptions.csv"))
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Results saved to")
}

func TestGenerate_CSVNeedsDirectory(t *testing.T) {
	err := Generate(&bytes.Buffer{}, sampleResult(), Config{Format: FormatCSV})
	assert.ErrorContains(t, err, "output directory required")
}

func TestGenerate_UnknownFormat(t *testing.T) {
	err := Generate(&bytes.Buffer{}, sampleResult(), Config{Format: "xml"})
	assert.ErrorContains(t, err, "unsupported output format: xml")
}

func TestGanttChart_SVG(t *testing.T) {
	result := sampleResult()
	svg := NewGanttChart(result).GenerateSVG(result)

	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Contains(t, svg, "FRAME@WH1")
	assert.Contains(t, svg, "TUBE@WH1")
	assert.Contains(t, svg, "order-bar firmed")
	assert.Contains(t, svg, "#FF9800")

	empty := &dto.PlanResult{Run: result.Run}
	assert.Contains(t, NewGanttChart(empty).GenerateSVG(empty), "No Planned Orders")
}

func TestGanttChart_RowsOrderedByEarliestStart(t *testing.T) {
	result := sampleResult()
	gc := NewGanttChart(result)
	rows := gc.organizeBars(gc.createBars(result.Orders))
	require.Len(t, rows, 2)
	assert.Equal(t, entities.ItemID("TUBE"), rows[0].key.ItemID)
	// TUBE starts before the horizon so the chart widens to it
	assert.True(t, gc.StartTime.Equal(date("2024-05-30")))
}

func TestGenerateCapacity(t *testing.T) {
	report := &dto.CapacityReport{RunID: "RUN-1", OverloadedRows: 1, Rows: []dto.CapacityRow{dto.NewCapacityRow(sampleResult().Capacity[0])}}

	var text bytes.Buffer
	require.NoError(t, GenerateCapacity(&text, report, Config{}))
	assert.Contains(t, text.String(), "1 overloaded")

	var csvOut bytes.Buffer
	require.NoError(t, GenerateCapacity(&csvOut, report, Config{Format: FormatCSV}))
	assert.Contains(t, csvOut.String(), "WELD,2024-06-10")
}

func TestGenerateComparison(t *testing.T) {
	cmp := &whatif.Comparison{
		Scenario: entities.WhatIfScenario{ID: "SCN-1"},
		Baseline: entities.MRPRun{ID: "RUN-1", Status: entities.RunCompleted},
		Run:      entities.MRPRun{ID: "RUN-2", Status: entities.RunCompleted},
	}
	var buf bytes.Buffer
	require.NoError(t, GenerateComparison(&buf, cmp, Config{}))
	assert.Contains(t, buf.String(), "No planned orders changed.")

	cmp.Changed = []whatif.ItemDelta{{ItemID: "TUBE", WarehouseID: "WH1", BaselineOrders: 1, ScenarioOrders: 2, BaselineQuantity: 30, ScenarioQuantity: 45}}
	buf.Reset()
	require.NoError(t, GenerateComparison(&buf, cmp, Config{}))
	assert.Contains(t, buf.String(), "TUBE")

	assert.Error(t, GenerateComparison(&buf, cmp, Config{Format: FormatCSV}))
}
