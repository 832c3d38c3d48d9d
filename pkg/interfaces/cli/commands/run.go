package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/interfaces/app"
	"github.com/vsinha/mrp-aps/pkg/interfaces/cli/output"
)

func buildRunCommand(opts *rootOptions) *cobra.Command {
	var (
		plan planFlags
		out  outputFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan a baseline run and print its result",
		Example: `  mrp run -d data/bicycle --start 2024-06-01 --end 2024-08-31
  mrp run -d data/bicycle --start 2024-06-01 --end 2024-08-31 --include sales_orders,mps -f csv -o results/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := plan.request()
			if err != nil {
				return err
			}
			a, err := opts.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Logger.Sync() //nolint:errcheck

			result, runErr := a.Planner.Execute(cmd.Context(), req)
			if result == nil {
				return runErr
			}
			if err := output.Generate(cmd.OutOrStdout(), result, out.config()); err != nil {
				return fmt.Errorf("error generating output: %w", err)
			}
			if runErr != nil {
				return fmt.Errorf("run %s failed: %w", result.Run.ID, runErr)
			}
			return planOutcome(result)
		},
	}

	addPlanFlags(cmd, &plan)
	addOutputFlags(cmd, &out)
	return cmd
}

// planOutcome turns a run that ended without a plan into an error
func planOutcome(result *dto.PlanResult) error {
	if result.Run.Status.ProducedPlan() {
		return nil
	}
	if result.Run.Message != "" {
		return fmt.Errorf("run %s ended %s: %s", result.Run.ID, result.Run.Status, result.Run.Message)
	}
	return fmt.Errorf("run %s ended %s", result.Run.ID, result.Run.Status)
}

// planBaseline runs the baseline a query command reads from
func planBaseline(ctx context.Context, a *app.App, plan *planFlags) (string, error) {
	req, err := plan.request()
	if err != nil {
		return "", err
	}
	result, err := a.Planner.Execute(ctx, req)
	if result == nil {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("baseline run %s failed: %w", result.Run.ID, err)
	}
	if err := planOutcome(result); err != nil {
		return "", err
	}
	return result.Run.ID, nil
}
