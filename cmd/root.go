package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ethanolivertroy/compliance-notifier/internal/config"
	"github.com/ethanolivertroy/compliance-notifier/internal/models"
	"github.com/ethanolivertroy/compliance-notifier/internal/observability"
	"github.com/ethanolivertroy/compliance-notifier/internal/reporter"
)

var (
	cfgFile string

	// appConfig is populated by PersistentPreRunE for every subcommand
	appConfig *models.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "compliance-notifier",
	Short: "Summarize compliance findings and notify app code custodians",
	Long: `compliance-notifier turns search results describing server compliance and
vulnerability findings into a summary report, then emails one notification
per application code to the custodians recorded in Vault (or a recipients
file), falling back to a default address when no recipient can be found.

The input may be a raw search response ({"hits":{"hits":[{"_source":...}]}})
or a flat JSON list of findings. A missing or empty input still produces a
report and a single "zero findings" notification.

Examples:
  # Build the report only
  compliance-notifier report --input results.json --format terminal

  # Send notifications using ./compliance.toml
  compliance-notifier notify --environment prod

  # Write .eml files to ./outbox instead of sending
  compliance-notifier notify --dry-run

  # Preview the rendered mail for one app code
  compliance-notifier preview --app-code ATU0`,
	Version:       reporter.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		config.Configure(v, cfgFile)
		if err := config.Read(v); err != nil {
			observability.InitializeLogger(models.DefaultConfig().Logger)
			return err
		}

		cfg, err := config.FromViper(v)
		if err != nil {
			observability.InitializeLogger(models.DefaultConfig().Logger)
			return err
		}
		observability.InitializeLogger(cfg.Logger)
		appConfig = cfg

		observability.GetLogger().Debug("Configuration loaded",
			zap.String("version", reporter.Version),
			zap.String("config_file", v.ConfigFileUsed()))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer observability.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		observability.Sync()
		os.Exit(2)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (default: ./compliance.{toml,yaml})")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "console", "Log format: console, json")
	pf.StringP("input", "i", "results.json", "Search results file")
	pf.String("report", "report.json", "Path of the JSON report document")
	pf.StringP("environment", "e", "dev", "Environment used for recipient lookup")
	pf.String("start-date", "", "Query window start (YYYY-MM-DD)")
	pf.String("end-date", "", "Query window end (YYYY-MM-DD)")
	pf.Int("window-days", 7, "Default query window length in days")

	bindFlags(pf, map[string]string{
		"logger.level":           "log-level",
		"logger.format":          "log-format",
		"input.path":             "input",
		"output.report_path":     "report",
		"recipients.environment": "environment",
		"input.start_date":       "start-date",
		"input.end_date":         "end-date",
		"input.window_days":      "window-days",
	})

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
