// Package cli provides the command-line interface for the customer ETL
// pipeline.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dvloznov/customer-etl/internal/app"
	"github.com/dvloznov/customer-etl/internal/config"
	"github.com/dvloznov/customer-etl/internal/logger"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "customer-etl",
		Short: "Customer ETL - extract, clean, aggregate and load customer spending",
		Long: `customer-etl extracts customers and transactions from the configured
sources, cleans and validates them, aggregates spending per customer and
loads the high-value customers into the warehouse.

Configuration is read from etl.yaml (or --config), ETL_ environment
variables and the flags below, in increasing order of precedence.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
			ctx := logger.WithContext(cmd.Context(), log)
			ctx = context.WithValue(ctx, configKey{}, cfg)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./etl.yaml)")
	rootCmd.PersistentFlags().String("log.level", "", "Log level (debug|info|warn|error|disabled)")
	rootCmd.PersistentFlags().String("log.format", "", "Log format (console|json)")
	rootCmd.PersistentFlags().String("warehouse.table", "", "Warehouse table for the customer summary")
	rootCmd.PersistentFlags().Float64("transform.min-total-spent", 0, "Minimum total spend for a customer to be loaded")
	rootCmd.PersistentFlags().Bool("quality.enforce", false, "Fail the run when the quality gate is violated")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newReportCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// getConfig retrieves the config from the command context.
func getConfig(ctx context.Context) (*config.Config, error) {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c, nil
	}
	return nil, fmt.Errorf("configuration not loaded")
}

// newApp builds the pipeline from the loaded configuration. The caller must
// Close the result.
func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := getConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg)
}
