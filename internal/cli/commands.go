package cli

import (
	"fmt"

	"github.com/dvloznov/customer-etl/internal/logger"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "customer-etl v%s (%s)\n", Version, GitCommit)
		},
	}
}

func newRunCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Long: `Extract both sources, transform them, load the customer summary into the
warehouse and write the backup file. The run statistics are printed and,
when a run store is configured, recorded.`,
		Example: `  # Run with etl.yaml from the working directory
  customer-etl run

  # Override the threshold and print the statistics as JSON
  customer-etl run --transform.min-total-spent 250 --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, runErr := a.Runner.Run(cmd.Context())
			if err := renderStats(cmd.OutOrStdout(), format, stats); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format (table|json|yaml)")
	return cmd
}

func newReportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Profile the sources without loading anything",
		Long: `Extract both sources and print a data quality report for each: record
count, missing values per column, duplicate records and column types.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			reports, err := a.Runner.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return renderReports(cmd.OutOrStdout(), format, reports)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format (table|json|yaml)")
	return cmd
}

func newRunsCommand() *cobra.Command {
	var (
		format string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Runs == nil {
				return fmt.Errorf("no run store configured (set run_store.type)")
			}

			runs, err := a.Runs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			log := logger.FromContext(cmd.Context())
			log.Debug().Int("count", len(runs)).Msg("Listed runs")
			return renderRuns(cmd.OutOrStdout(), format, runs)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format (table|json|yaml)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}
