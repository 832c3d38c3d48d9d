package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/mrp-aps/pkg/application/services/planning"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/interfaces/cli/output"
)

func buildCapacityCommand(opts *rootOptions) *cobra.Command {
	var (
		plan       planFlags
		out        outputFlags
		runID      string
		workCenter string
		from       string
		to         string
	)

	cmd := &cobra.Command{
		Use:   "capacity",
		Short: "Report work center load per capacity bucket",
		Long: `capacity prints the capacity ledger of a run. Without --run a baseline is planned
first from --start/--end.`,
		Example: `  mrp capacity -d data/bicycle --start 2024-06-01 --end 2024-08-31 --work-center WELD`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := planning.CapacityQuery{RunID: runID, WorkCenterID: entities.WorkCenterID(workCenter)}
			var err error
			if from != "" {
				if q.From, err = parseDate("--from", from); err != nil {
					return err
				}
			}
			if to != "" {
				if q.To, err = parseDate("--to", to); err != nil {
					return err
				}
			}

			a, err := opts.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Logger.Sync() //nolint:errcheck

			if q.RunID == "" {
				if q.RunID, err = planBaseline(cmd.Context(), a, &plan); err != nil {
					return err
				}
			}

			report, err := a.Planner.AnalyzeCapacity(cmd.Context(), q)
			if err != nil {
				return err
			}
			if err := output.GenerateCapacity(cmd.OutOrStdout(), report, out.config()); err != nil {
				return fmt.Errorf("error generating output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "run id to report (requires persistent storage)")
	cmd.Flags().StringVar(&workCenter, "work-center", "", "only this work center")
	cmd.Flags().StringVar(&from, "from", "", "first bucket date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last bucket date (YYYY-MM-DD)")
	addPlanFlags(cmd, &plan)
	addOutputFlags(cmd, &out)
	return cmd
}
