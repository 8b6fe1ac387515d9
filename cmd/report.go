package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/compliance-notifier/internal/observability"
	"github.com/ethanolivertroy/compliance-notifier/internal/pipeline"
	"github.com/ethanolivertroy/compliance-notifier/internal/reporter"
)

var flagOutput string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the summary report without sending notifications",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file path (default: stdout)")
	reportCmd.Flags().StringP("format", "f", "json", "Output format: terminal, json, sarif")
	bindFlags(reportCmd.Flags(), map[string]string{"output.format": "format"})
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := *appConfig
	cfg.Notify.ReportOnly = true
	logger := observability.GetLogger()

	deps, cleanup, err := pipeline.Wire(cmd.Context(), &cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	res, err := pipeline.New(&cfg, deps, logger).Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	output, err := reporter.Get(cfg.Output.Format).Report(res.Document)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	if flagOutput != "" {
		if err := os.WriteFile(flagOutput, output, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", flagOutput)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), string(output))
	}
	return nil
}
