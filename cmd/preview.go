package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ethanolivertroy/compliance-notifier/internal/archive"
	"github.com/ethanolivertroy/compliance-notifier/internal/models"
	"github.com/ethanolivertroy/compliance-notifier/internal/notify"
	"github.com/ethanolivertroy/compliance-notifier/internal/observability"
	"github.com/ethanolivertroy/compliance-notifier/internal/pipeline"
	"github.com/ethanolivertroy/compliance-notifier/internal/reporter"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the rendered notifications without sending or writing anything",
	Long: `preview renders the notification for every app code and prints it.

By default the report is built from --input. With --archived the document
stored under that key in the local archive (archive.dir) is rendered
instead, e.g. --archived 2024-05-08/<run id>.json.`,
	RunE: runPreview,
}

var (
	flagPreviewCodes []string
	flagArchived     string
)

func init() {
	previewCmd.Flags().StringSliceVar(&flagPreviewCodes, "app-code", nil, "Only preview these app codes (repeatable)")
	previewCmd.Flags().StringVar(&flagArchived, "archived", "", "Render an archived report by key instead of the input")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	logger := observability.GetLogger()

	doc, attachment, err := previewDocument(cfg, logger)
	if err != nil {
		return err
	}

	coord := notify.NewCoordinator(nil, nil, notify.Options{
		DefaultAppCode: cfg.Notify.DefaultAppCode,
		Attachments:    []string{attachment},
		Templates:      cfg.Templates,
	}, logger)

	out := cmd.OutOrStdout()
	sep := strings.Repeat("=", 60)
	for _, p := range coord.Targets(doc, flagPreviewCodes) {
		rcpt := models.Recipient{AppCode: p.AppCode, Address: "<resolved at send time>"}
		n, err := coord.Compose(doc, p, rcpt, cfg.Recipients.Environment)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, sep)
		fmt.Fprintf(out, "App code: %s\nSubject:  %s\n", n.AppCode, n.Subject)
		fmt.Fprintln(out, sep)
		fmt.Fprintln(out, n.Body)
	}
	return nil
}

// previewDocument returns the document to render and the path that would be
// attached
func previewDocument(cfg *models.Config, logger *zap.Logger) (*models.ReportDocument, string, error) {
	if flagArchived == "" {
		doc, _, _ := pipeline.New(cfg, pipeline.Deps{}, logger).Build(nil)
		return doc, cfg.Output.ReportPath, nil
	}

	local, err := archive.NewLocal(cfg.Archive.Dir, cfg.Archive.Retention)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open archive: %w", err)
	}
	data, ok := local.Get(flagArchived)
	if !ok {
		return nil, "", fmt.Errorf("no archived report %q in %s", flagArchived, cfg.Archive.Dir)
	}
	doc, err := reporter.Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("archived report %q: %w", flagArchived, err)
	}
	path, _ := local.Path(flagArchived)
	return doc, path, nil
}
