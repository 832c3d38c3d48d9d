// Package commands holds the cobra command tree of the mrp binary
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/mrp-aps/pkg/infrastructure/config"
	"github.com/vsinha/mrp-aps/pkg/infrastructure/logging"
	"github.com/vsinha/mrp-aps/pkg/interfaces/app"
)

const defaultConfigFile = "configs/default.yaml"

// rootOptions are the persistent flags shared by every subcommand
type rootOptions struct {
	configFile string
	dataDir    string
}

// BuildCLI returns the root command
func BuildCLI() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "mrp",
		Short: "MRP/APS planning engine",
		Long: `mrp plans material and capacity for a multi-level manufacturing network:
- demand aggregation from MPS, forecasts, sales and work orders
- low-level-code BOM explosion with netting and lot sizing
- lead-time offsetting with planning time fences
- finite capacity checks per work center and bucket
- what-if scenarios against a baseline run`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVarP(&opts.dataDir, "data", "d", "", "scenario directory with the master data CSV files (overrides storage.data_dir)")

	rootCmd.AddCommand(buildRunCommand(opts))
	rootCmd.AddCommand(buildWhatIfCommand(opts))
	rootCmd.AddCommand(buildCapacityCommand(opts))
	rootCmd.AddCommand(buildServeCommand(opts))

	return rootCmd
}

// loadConfig reads the config file. A missing default file falls back to built-in defaults;
// a missing file named explicitly is an error.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	path := o.configFile
	if path == defaultConfigFile {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.dataDir != "" {
		cfg.Storage.DataDir = o.dataDir
	}
	return cfg, nil
}

// bootstrap loads configuration and builds the process services
func (o *rootOptions) bootstrap(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	logger.Debug("configuration loaded",
		zap.String("config", o.configFile),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("workers", cfg.Planning.Workers))
	return a, nil
}
