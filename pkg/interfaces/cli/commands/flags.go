package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/mrp-aps/pkg/application/services/planning"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/interfaces/cli/output"
)

const dateLayout = "2006-01-02"

// planFlags describe the baseline run a command plans
type planFlags struct {
	start   string
	end     string
	runDate string
	include []string
}

func addPlanFlags(cmd *cobra.Command, f *planFlags) {
	cmd.Flags().StringVar(&f.start, "start", "", "horizon start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "horizon end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.runDate, "run-date", "", "run date (YYYY-MM-DD, default today)")
	cmd.Flags().StringSliceVar(&f.include, "include", []string{"mps", "forecasts", "sales_orders", "work_orders"},
		"demand sources: mps, forecasts, sales_orders, work_orders")
}

func (f *planFlags) request() (planning.RunRequest, error) {
	if f.start == "" || f.end == "" {
		return planning.RunRequest{}, fmt.Errorf("--start and --end are required")
	}
	start, err := parseDate("--start", f.start)
	if err != nil {
		return planning.RunRequest{}, err
	}
	end, err := parseDate("--end", f.end)
	if err != nil {
		return planning.RunRequest{}, err
	}
	var runDate time.Time
	if f.runDate != "" {
		if runDate, err = parseDate("--run-date", f.runDate); err != nil {
			return planning.RunRequest{}, err
		}
	}
	include, err := parseInclude(f.include)
	if err != nil {
		return planning.RunRequest{}, err
	}
	return planning.RunRequest{
		Horizon: entities.Horizon{Start: start, End: end},
		Include: include,
		RunDate: runDate,
	}, nil
}

func parseInclude(sources []string) (entities.DemandInclude, error) {
	var inc entities.DemandInclude
	for _, s := range sources {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "mps":
			inc.MPS = true
		case "forecasts", "forecast":
			inc.Forecasts = true
		case "sales_orders", "sales":
			inc.SalesOrders = true
		case "work_orders", "work":
			inc.WorkOrders = true
		case "":
		default:
			return inc, fmt.Errorf("unknown demand source: %s", s)
		}
	}
	return inc, nil
}

func parseDate(flag, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", flag, value)
	}
	return t, nil
}

// outputFlags select the renderer of a command's result
type outputFlags struct {
	format    string
	outputDir string
	verbose   bool
}

func addOutputFlags(cmd *cobra.Command, f *outputFlags) {
	cmd.Flags().StringVarP(&f.format, "format", "f", output.FormatText, "output format: text, json, csv, svg")
	cmd.Flags().StringVarP(&f.outputDir, "output", "o", "", "output directory (default stdout)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "report written files")
}

func (f *outputFlags) config() output.Config {
	return output.Config{Format: f.format, OutputDir: f.outputDir, Verbose: f.verbose}
}
