package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/application/services/whatif"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatSVG  = "svg"
)

const dateLayout = "2006-01-02"

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
}

// Generate writes a run result in the configured format. text and json go to w unless an
// output directory is set; csv and svg always write files.
func Generate(w io.Writer, result *dto.PlanResult, config Config) error {
	switch config.Format {
	case FormatText, "":
		return writeOrText(w, config, "mrp_results.txt", func(out io.Writer) error {
			return writeResultText(out, result)
		})
	case FormatJSON:
		return writeOrText(w, config, "mrp_results.json", func(out io.Writer) error {
			return writeJSON(out, result)
		})
	case FormatCSV:
		return generateResultCSV(w, result, config)
	case FormatSVG:
		if config.OutputDir == "" {
			return fmt.Errorf("output directory required for svg format")
		}
		return writeFile(w, config, "schedule.svg", func(out io.Writer) error {
			_, err := io.WriteString(out, NewGanttChart(result).GenerateSVG(result))
			return err
		})
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// GenerateCapacity writes a capacity report
func GenerateCapacity(w io.Writer, report *dto.CapacityReport, config Config) error {
	switch config.Format {
	case FormatText, "":
		return writeOrText(w, config, "capacity.txt", func(out io.Writer) error {
			return writeCapacityText(out, report.RunID, report.Rows, report.OverloadedRows)
		})
	case FormatJSON:
		return writeOrText(w, config, "capacity.json", func(out io.Writer) error {
			return writeJSON(out, report)
		})
	case FormatCSV:
		if config.OutputDir == "" {
			return writeCapacityCSV(w, report.Rows)
		}
		return writeFile(w, config, "capacity.csv", func(out io.Writer) error {
			return writeCapacityCSV(out, report.Rows)
		})
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// GenerateComparison writes a scenario comparison
func GenerateComparison(w io.Writer, cmp *whatif.Comparison, config Config) error {
	switch config.Format {
	case FormatText, "":
		return writeOrText(w, config, "comparison.txt", func(out io.Writer) error {
			return writeComparisonText(out, cmp)
		})
	case FormatJSON:
		return writeOrText(w, config, "comparison.json", func(out io.Writer) error {
			return writeJSON(out, cmp)
		})
	default:
		return fmt.Errorf("unsupported output format for comparison: %s", config.Format)
	}
}

func writeOrText(w io.Writer, config Config, name string, render func(io.Writer) error) error {
	if config.OutputDir == "" {
		return render(w)
	}
	return writeFile(w, config, name, render)
}

func writeFile(w io.Writer, config Config, name string, render func(io.Writer) error) error {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, name)
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}
	if config.Verbose {
		fmt.Fprintf(w, "Results saved to: %s\n", filename)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func writeResultText(w io.Writer, result *dto.PlanResult) error {
	run := result.Run
	fmt.Fprintf(w, "MRP Run %s\n", run.ID)
	fmt.Fprintf(w, "======================\n\n")
	fmt.Fprintf(w, "Status:           %s\n", run.Status)
	if run.Message != "" {
		fmt.Fprintf(w, "Message:          %s\n", run.Message)
	}
	fmt.Fprintf(w, "Horizon:          %s .. %s\n", run.Horizon.Start.Format(dateLayout), run.Horizon.End.Format(dateLayout))
	fmt.Fprintf(w, "Items Planned:    %d\n", run.Totals.ItemsPlanned)
	fmt.Fprintf(w, "Planned Orders:   %d (qty %d)\n", run.Totals.PlannedOrders, run.Totals.PlannedQuantity)
	fmt.Fprintf(w, "Confirmations:    %d\n", run.Totals.ConfirmationsDue)
	fmt.Fprintf(w, "Exceptions:       %d\n", run.Totals.Exceptions)
	fmt.Fprintf(w, "Overloaded Cells: %d\n", run.Totals.OverloadedCells)
	fmt.Fprintf(w, "Duration:         %v\n\n", result.Duration)

	if len(result.Orders) > 0 {
		fmt.Fprintf(w, "Planned Orders:\n")
		fmt.Fprintf(w, "%-16s %-10s %-6s %-9s %8s %-10s %-10s %-6s %-7s\n",
			"Order", "Item", "WH", "Type", "Qty", "Start", "Due", "Firmed", "Confirm")
		for _, o := range result.Orders {
			fmt.Fprintf(w, "%-16s %-10s %-6s %-9s %8d %-10s %-10s %-6t %-7t\n",
				o.ID, o.ItemID, o.WarehouseID, o.OrderType, o.Quantity,
				o.StartDate.Format(dateLayout), o.DueDate.Format(dateLayout),
				o.Firmed, o.RequiresConfirmation)
		}
		fmt.Fprintln(w)
	}

	if len(result.Exceptions) > 0 {
		fmt.Fprintf(w, "Exceptions:\n")
		fmt.Fprintf(w, "%-18s %-9s %-18s %-10s %s\n", "Type", "Severity", "Reference", "Bucket", "Message")
		for _, e := range result.Exceptions {
			bucket := ""
			if !e.Bucket.IsZero() {
				bucket = e.Bucket.Format(dateLayout)
			}
			fmt.Fprintf(w, "%-18s %-9s %-18s %-10s %s\n", e.Type, e.Severity, e.Reference(), bucket, e.Message)
		}
		fmt.Fprintln(w)
	}

	if len(result.Capacity) > 0 {
		rows := make([]dto.CapacityRow, len(result.Capacity))
		overloaded := 0
		for i, c := range result.Capacity {
			rows[i] = dto.NewCapacityRow(c)
			if rows[i].Overloaded {
				overloaded++
			}
		}
		if err := writeCapacityText(w, run.ID, rows, overloaded); err != nil {
			return err
		}
	}

	if len(result.CriticalPath.Path) > 0 {
		fmt.Fprintf(w, "Critical Path: %v (%d days, bottleneck %s)\n",
			result.CriticalPath.Path, result.CriticalPath.TotalLeadTime, result.CriticalPath.BottleneckItem)
	}
	return nil
}

func writeCapacityText(w io.Writer, runID string, rows []dto.CapacityRow, overloaded int) error {
	fmt.Fprintf(w, "Capacity (run %s, %d overloaded):\n", runID, overloaded)
	fmt.Fprintf(w, "%-10s %-10s %10s %10s %8s %8s\n", "Work Ctr", "Bucket", "Available", "Allocated", "Util %", "Excess")
	for _, r := range rows {
		marker := ""
		if r.Overloaded {
			marker = " !"
		}
		fmt.Fprintf(w, "%-10s %-10s %10s %10s %8s %8s%s\n",
			r.WorkCenterID, r.Bucket.Format(dateLayout),
			r.AvailableHours.StringFixed(2), r.AllocatedHours.StringFixed(2),
			r.Utilization.StringFixed(1), r.ExcessHours.StringFixed(2), marker)
	}
	fmt.Fprintln(w)
	return nil
}

func writeComparisonText(w io.Writer, cmp *whatif.Comparison) error {
	fmt.Fprintf(w, "Scenario %s (run %s) vs baseline %s\n", cmp.Scenario.ID, cmp.Run.ID, cmp.Baseline.ID)
	fmt.Fprintf(w, "Scenario status: %s, baseline status: %s\n\n", cmp.Run.Status, cmp.Baseline.Status)
	if len(cmp.Changed) == 0 {
		fmt.Fprintln(w, "No planned orders changed.")
		return nil
	}
	fmt.Fprintf(w, "%-10s %-6s %8s %8s %10s %10s\n", "Item", "WH", "Base #", "Scen #", "Base Qty", "Scen Qty")
	for _, d := range cmp.Changed {
		fmt.Fprintf(w, "%-10s %-6s %8d %8d %10d %10d\n",
			d.ItemID, d.WarehouseID, d.BaselineOrders, d.ScenarioOrders, d.BaselineQuantity, d.ScenarioQuantity)
	}
	return nil
}

func generateResultCSV(w io.Writer, result *dto.PlanResult, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}
	if err := writeFile(w, config, "planned_orders.csv", func(out io.Writer) error {
		return writeOrdersCSV(out, result.Orders)
	}); err != nil {
		return err
	}
	if err := writeFile(w, config, "exceptions.csv", func(out io.Writer) error {
		return writeExceptionsCSV(out, result.Exceptions)
	}); err != nil {
		return err
	}
	rows := make([]dto.CapacityRow, len(result.Capacity))
	for i, c := range result.Capacity {
		rows[i] = dto.NewCapacityRow(c)
	}
	return writeFile(w, config, "capacity.csv", func(out io.Writer) error {
		return writeCapacityCSV(out, rows)
	})
}

func writeOrdersCSV(w io.Writer, orders []entities.PlannedOrder) error {
	cw := csv.NewWriter(w)
	records := [][]string{{"order_id", "item_id", "warehouse_id", "order_type", "quantity", "start_date", "due_date", "firmed", "requires_confirmation"}}
	for _, o := range orders {
		records = append(records, []string{
			o.ID, string(o.ItemID), string(o.WarehouseID), o.OrderType.String(),
			strconv.FormatInt(int64(o.Quantity), 10),
			o.StartDate.Format(dateLayout), o.DueDate.Format(dateLayout),
			strconv.FormatBool(o.Firmed), strconv.FormatBool(o.RequiresConfirmation),
		})
	}
	return cw.WriteAll(records)
}

func writeExceptionsCSV(w io.Writer, exceptions []entities.PlanningException) error {
	cw := csv.NewWriter(w)
	records := [][]string{{"type", "severity", "item_id", "warehouse_id", "work_center_id", "bucket", "quantity", "order_id", "message"}}
	for _, e := range exceptions {
		bucket := ""
		if !e.Bucket.IsZero() {
			bucket = e.Bucket.Format(dateLayout)
		}
		records = append(records, []string{
			e.Type.String(), e.Severity.String(), string(e.ItemID), string(e.WarehouseID),
			string(e.WorkCenterID), bucket, e.Quantity.String(), e.OrderID, e.Message,
		})
	}
	return cw.WriteAll(records)
}

func writeCapacityCSV(w io.Writer, rows []dto.CapacityRow) error {
	cw := csv.NewWriter(w)
	records := [][]string{{"work_center_id", "bucket", "available_hours", "allocated_hours", "utilization_percent", "excess_hours", "overloaded"}}
	for _, r := range rows {
		records = append(records, []string{
			string(r.WorkCenterID), r.Bucket.Format(dateLayout),
			r.AvailableHours.String(), r.AllocatedHours.String(),
			r.Utilization.String(), r.ExcessHours.String(), strconv.FormatBool(r.Overloaded),
		})
	}
	return cw.WriteAll(records)
}
