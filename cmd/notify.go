package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
	"github.com/ethanolivertroy/compliance-notifier/internal/observability"
	"github.com/ethanolivertroy/compliance-notifier/internal/pipeline"
)

var (
	flagDryRun bool
	flagNoFail bool
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Build the report and email one notification per app code",
	Long: `notify builds the report, writes it to --report, archives it and sends one
notification per app code with the report attached.

Exit status is 0 when every app code was notified, 1 when some or all
notifications failed (unless --no-fail), and 2 on configuration or I/O
errors.`,
	RunE: runNotify,
}

func init() {
	f := notifyCmd.Flags()
	f.BoolVar(&flagDryRun, "dry-run", false, "Write .eml files to the spool directory instead of sending")
	f.BoolVar(&flagNoFail, "no-fail", false, "Exit 0 even when some notifications failed")
	f.StringSlice("app-code", nil, "Only notify these app codes (repeatable)")
	f.String("spool-dir", "outbox", "Directory for spooled messages")
	f.Bool("digest", false, "Also send the cross-app digest")
	f.Int("concurrency", 1, "Number of app codes notified in parallel")
	bindFlags(f, map[string]string{
		"notify.app_codes":   "app-code",
		"mail.spool_dir":     "spool-dir",
		"notify.digest":      "digest",
		"notify.concurrency": "concurrency",
	})
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg := *appConfig
	cfg.Notify.ReportOnly = false
	if flagDryRun {
		cfg.Mail.Transport = "spool"
	}
	logger := observability.GetLogger()

	deps, cleanup, err := pipeline.Wire(cmd.Context(), &cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	res, err := pipeline.New(&cfg, deps, logger).Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printSummary(cmd, res)
	if res.Summary.Status != models.RunSucceeded && !flagNoFail {
		cleanup()
		observability.Sync()
		os.Exit(1)
	}
	return nil
}

func printSummary(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Run %s: %s\n", res.RunID, res.Summary.String())
	if res.Degraded {
		fmt.Fprintln(out, "Input could not be parsed; an empty report was sent.")
	}
	for _, r := range res.Summary.Results {
		line := fmt.Sprintf("  %-10s %-8s %s (%s)", r.AppCode, r.Status, r.Recipient.Address, r.Recipient.Source)
		if r.Reason != "" {
			line += ": " + r.Reason
		}
		fmt.Fprintln(out, line)
	}
	if failed := res.Summary.FailedAppCodes(); len(failed) > 0 {
		fmt.Fprintf(out, "Not notified: %s\n", strings.Join(failed, ", "))
	}
	if res.Digest != nil {
		fmt.Fprintf(out, "  %-10s %-8s %s\n", "digest", res.Digest.Status, res.Digest.Reason)
	}
	fmt.Fprintf(out, "Report: %s\n", res.ReportPath)
	if res.ArchiveRef != "" {
		fmt.Fprintf(out, "Archived: %s\n", res.ArchiveRef)
	}
	if res.ArchiveErr != nil {
		fmt.Fprintf(out, "Archive unavailable: %v\n", res.ArchiveErr)
	}
}
