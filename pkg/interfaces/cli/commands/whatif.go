package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/interfaces/cli/output"
)

func buildWhatIfCommand(opts *rootOptions) *cobra.Command {
	var (
		plan       planFlags
		out        outputFlags
		deltasFile string
		baselineID string
	)

	cmd := &cobra.Command{
		Use:   "whatif",
		Short: "Re-plan a baseline with parameter or capacity changes and compare",
		Long: `whatif applies the deltas of a JSON file to a copy of a baseline run's inputs and
plans the copy. Without --baseline a baseline is planned first from --start/--end.

Deltas file:
  {
    "parameters": [{"item_id": "TUBE", "warehouse_id": "WH1", "lead_time_days": 10}],
    "capacity":   [{"work_center_id": "WELD", "available_hours": "60"}]
  }`,
		Example: `  mrp whatif -d data/bicycle --start 2024-06-01 --end 2024-08-31 --deltas deltas.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deltas, err := readDeltas(deltasFile)
			if err != nil {
				return err
			}
			a, err := opts.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Logger.Sync() //nolint:errcheck

			if baselineID == "" {
				if baselineID, err = planBaseline(cmd.Context(), a, &plan); err != nil {
					return err
				}
			}

			scenario, err := a.WhatIf.CreateWhatIf(cmd.Context(), baselineID, deltas)
			if scenario == nil {
				return err
			}
			if err != nil {
				a.Logger.Warn("scenario run ended with error", zap.String("scenario_id", scenario.ID), zap.Error(err))
			}

			cmp, err := a.WhatIf.Compare(cmd.Context(), scenario.ID)
			if err != nil {
				return err
			}
			if err := output.GenerateComparison(cmd.OutOrStdout(), cmp, out.config()); err != nil {
				return fmt.Errorf("error generating output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&deltasFile, "deltas", "", "JSON file with the scenario deltas")
	cmd.Flags().StringVar(&baselineID, "baseline", "", "baseline run id (requires persistent storage)")
	_ = cmd.MarkFlagRequired("deltas")
	addPlanFlags(cmd, &plan)
	addOutputFlags(cmd, &out)
	return cmd
}

func readDeltas(path string) (entities.ScenarioDeltas, error) {
	var deltas entities.ScenarioDeltas
	data, err := os.ReadFile(path)
	if err != nil {
		return deltas, fmt.Errorf("failed to read deltas file: %w", err)
	}
	if err := json.Unmarshal(data, &deltas); err != nil {
		return deltas, fmt.Errorf("failed to parse deltas file %s: %w", path, err)
	}
	return deltas, nil
}
