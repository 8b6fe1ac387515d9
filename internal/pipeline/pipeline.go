// Package pipeline runs one report and notification job end to end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ethanolivertroy/compliance-notifier/internal/archive"
	"github.com/ethanolivertroy/compliance-notifier/internal/models"
	"github.com/ethanolivertroy/compliance-notifier/internal/notify"
	"github.com/ethanolivertroy/compliance-notifier/internal/parsers"
	"github.com/ethanolivertroy/compliance-notifier/internal/reporter"
)

// ErrNoMatchingAppCodes is returned when an app code filter selects
// nothing from a report that has findings
var ErrNoMatchingAppCodes = errors.New("none of the requested app codes are in the report")

// Result is everything a run produced
type Result struct {
	RunID      string
	Document   *models.ReportDocument
	ReportPath string
	ArchiveRef string
	// ArchiveErr is set when the archive could not be opened or written
	ArchiveErr error
	Problems   int
	Degraded   bool

	// Dispatched is false for report-only runs
	Dispatched bool
	Summary    models.RunSummary
	Digest     *models.DispatchResult
}

// Runner orchestrates load, build, persist and dispatch
type Runner struct {
	cfg    *models.Config
	deps   Deps
	logger *zap.Logger

	// Now is the clock for GeneratedAt and the default query window
	Now func() time.Time
	// NewRunID generates the run identifier
	NewRunID func() string
}

// New creates a Runner
func New(cfg *models.Config, deps Deps, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Archive == nil {
		deps.Archive = archive.Nop{}
	}
	return &Runner{
		cfg:      cfg,
		deps:     deps,
		logger:   logger.Named("pipeline"),
		Now:      time.Now,
		NewRunID: uuid.NewString,
	}
}

// Window returns the configured query window, or the default window ending
// now
func (r *Runner) Window() models.QueryWindow {
	w := models.DefaultWindow(r.Now(), r.cfg.Input.WindowDays)
	if r.cfg.Input.StartDate != "" {
		w.StartDate = r.cfg.Input.StartDate
	}
	if r.cfg.Input.EndDate != "" {
		w.EndDate = r.cfg.Input.EndDate
	}
	return w
}

// Run executes the job. Only failures to persist the report are returned as
// errors; per-record and per-app problems are reported in the Result.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: r.NewRunID(), ArchiveErr: r.deps.ArchiveErr}
	log := r.logger.With(zap.String("run_id", res.RunID))

	doc, degraded, problems := r.Build(log)
	res.Document, res.Degraded, res.Problems = doc, degraded, problems

	log.Info("Report built",
		zap.Int("findings", doc.Summary.TotalCount),
		zap.Int("reported_total", doc.Summary.ReportedTotal),
		zap.Strings("app_codes", doc.Summary.AppCodes),
		zap.Strings("non_compliant", doc.Summary.NonCompliantApps),
		zap.Bool("degraded", degraded))

	data, err := reporter.Encode(doc)
	if err != nil {
		return res, err
	}
	if err := writeReport(r.cfg.Output.ReportPath, data); err != nil {
		return res, err
	}
	res.ReportPath = r.cfg.Output.ReportPath

	key := archive.Key(doc.Summary.GeneratedAt, res.RunID)
	if ref, err := r.deps.Archive.Put(ctx, key, data); err != nil {
		log.Error("Failed to archive report", zap.String("key", key), zap.Error(err))
		res.ArchiveErr = err
	} else if ref != "" {
		res.ArchiveRef = ref
		log.Info("Report archived", zap.String("ref", ref))
	}

	if r.cfg.Notify.ReportOnly {
		log.Info("Report-only run, skipping notifications")
		return res, nil
	}
	if r.deps.Resolver == nil || r.deps.Sender == nil {
		return res, fmt.Errorf("notification requires a recipient resolver and a mail sender")
	}

	if !selectsAny(doc, r.cfg.Notify.AppCodes) {
		return res, fmt.Errorf("%w: %s", ErrNoMatchingAppCodes, strings.Join(r.cfg.Notify.AppCodes, ", "))
	}

	coord := notify.NewCoordinator(r.deps.Resolver, r.deps.Sender, notify.Options{
		From:           r.cfg.Mail.From,
		ExtraCC:        r.cfg.Mail.ExtraCC,
		DigestTo:       r.cfg.Recipients.DigestTo,
		DefaultAppCode: r.cfg.Notify.DefaultAppCode,
		Concurrency:    r.cfg.Notify.Concurrency,
		Attachments:    []string{res.ReportPath},
		Templates:      r.cfg.Templates,
	}, log)

	env := r.cfg.Recipients.Environment
	results := coord.Dispatch(ctx, doc, r.cfg.Notify.AppCodes, env)
	res.Dispatched = true
	res.Summary = notify.Summarize(results, degraded)

	if r.cfg.Notify.Digest {
		d := coord.SendDigest(ctx, doc, env)
		res.Digest = &d
	}

	fields := []zap.Field{
		zap.String("status", string(res.Summary.Status)),
		zap.Int("notified", res.Summary.Notified),
		zap.Int("total", res.Summary.Total),
	}
	if failed := res.Summary.FailedAppCodes(); len(failed) > 0 {
		log.Warn("Run "+res.Summary.String(), append(fields, zap.Strings("not_notified", failed))...)
	} else {
		log.Info("Run "+res.Summary.String(), fields...)
	}
	return res, nil
}

// Build loads and normalizes the input and returns the document, whether it
// was degraded, and the number of records normalized with defaults.
// Malformed input degrades to an empty document.
func (r *Runner) Build(log *zap.Logger) (*models.ReportDocument, bool, int) {
	if log == nil {
		log = r.logger
	}
	b := reporter.NewBuilder(r.cfg.Compliance)
	b.Now = r.Now
	window := r.Window()

	batch, err := parsers.LoadFile(r.cfg.Input.Path)
	if err != nil {
		log.Error("Input could not be parsed, continuing with an empty report",
			zap.String("path", r.cfg.Input.Path), zap.Error(err))
		return b.Empty(window), true, 0
	}

	doc, problems := b.BuildFromBatch(batch, window)
	indexes := make([]int, 0, len(problems))
	for i := range problems {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		log.Warn("Record normalized with defaults", zap.Int("record", i), zap.Error(problems[i]))
	}
	return doc, false, len(problems)
}

// selectsAny reports whether filter leaves anything to notify. An empty
// filter or an empty report always does.
func selectsAny(doc *models.ReportDocument, filter []string) bool {
	if len(filter) == 0 || len(doc.Partitions) == 0 {
		return true
	}
	present := make(map[string]bool, len(doc.Partitions))
	for _, code := range doc.PartitionCodes() {
		present[code] = true
	}
	for _, code := range filter {
		if present[strings.ToUpper(strings.TrimSpace(code))] {
			return true
		}
	}
	return false
}

func writeReport(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("output.report_path must be set")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
