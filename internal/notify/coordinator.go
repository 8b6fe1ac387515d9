// Package notify fans a report out to one notification per app code.
package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ethanolivertroy/compliance-notifier/internal/mail"
	"github.com/ethanolivertroy/compliance-notifier/internal/models"
	"github.com/ethanolivertroy/compliance-notifier/internal/render"
)

// RecipientResolver maps an app code to its recipient. It must not fail.
type RecipientResolver interface {
	Resolve(ctx context.Context, appCode, environment string) models.Recipient
}

// Options configures a Coordinator
type Options struct {
	From           string
	ExtraCC        []string
	DigestTo       string
	DefaultAppCode string
	Concurrency    int
	Attachments    []string
	Templates      models.TemplateConfig
}

// Coordinator drives the per-app-code loop
type Coordinator struct {
	resolver RecipientResolver
	sender   mail.Sender
	renderer *render.Renderer
	opts     Options
	logger   *zap.Logger

	app       render.Set
	appErr    error
	digest    render.Set
	digestErr error
}

// NewCoordinator loads the templates up front. A template that fails to
// load is not fatal here: every notification of that family fails with the
// load error instead.
func NewCoordinator(resolver RecipientResolver, sender mail.Sender, opts Options, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultAppCode == "" {
		opts.DefaultAppCode = "ATU0"
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	c := &Coordinator{
		resolver: resolver,
		sender:   sender,
		renderer: render.New(opts.Templates.Default),
		opts:     opts,
		logger:   logger.Named("notify"),
	}
	c.app, c.appErr = render.LoadSet(opts.Templates.AppSubject, render.AppSubjectTemplate,
		opts.Templates.AppReport, render.AppReportTemplate)
	c.digest, c.digestErr = render.LoadSet(opts.Templates.DigestSubject, render.DigestSubjectTemplate,
		opts.Templates.Digest, render.DigestTemplate)
	return c
}

// Targets returns the partitions to notify in partition order. An empty
// report yields a single zero-findings partition for the default app code.
func (c *Coordinator) Targets(doc *models.ReportDocument, appCodes []string) []models.AppPartition {
	if len(doc.Partitions) == 0 {
		return []models.AppPartition{emptyPartition(c.opts.DefaultAppCode)}
	}
	if len(appCodes) == 0 {
		return doc.Partitions
	}

	want := make(map[string]bool, len(appCodes))
	for _, code := range appCodes {
		want[strings.ToUpper(strings.TrimSpace(code))] = true
	}
	var out []models.AppPartition
	for _, p := range doc.Partitions {
		if want[p.AppCode] {
			out = append(out, p)
			delete(want, p.AppCode)
		}
	}
	for code := range want {
		c.logger.Warn("Requested app code has no findings in this report", zap.String("app_code", code))
	}
	return out
}

func emptyPartition(appCode string) models.AppPartition {
	return models.AppPartition{
		AppCode: appCode,
		Stats: models.Stats{
			IssueTypes:  []string{},
			ByIssueType: map[string]int{},
			ByState:     map[string]int{},
		},
		Findings:           []models.Finding{},
		OpenIssues:         []models.Finding{},
		HighSeverityIssues: []models.Finding{},
		Compliance:         models.Compliance{Compliant: true, Reasons: []string{}},
	}
}

// Dispatch sends one notification per app code and returns one result per
// app code in partition order. Failures are isolated per app code. Once ctx
// is cancelled no further app codes are started; those are reported as
// skipped.
func (c *Coordinator) Dispatch(ctx context.Context, doc *models.ReportDocument, appCodes []string, environment string) []models.DispatchResult {
	targets := c.Targets(doc, appCodes)
	results := make([]models.DispatchResult, len(targets))
	for i, p := range targets {
		results[i] = models.DispatchResult{AppCode: p.AppCode, Status: models.DispatchSkipped, Reason: "run cancelled"}
	}

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for i, p := range targets {
		if ctx.Err() != nil {
			c.logger.Warn("Dispatch cancelled", zap.Int("remaining", len(targets)-i))
			break
		}
		g.Go(func() error {
			results[i] = c.dispatchOne(ctx, doc, p, environment)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Coordinator) dispatchOne(ctx context.Context, doc *models.ReportDocument, p models.AppPartition, environment string) (res models.DispatchResult) {
	log := c.logger.With(zap.String("app_code", p.AppCode))
	res.AppCode = p.AppCode
	defer func() {
		if r := recover(); r != nil {
			res.Status = models.DispatchFailed
			res.Reason = fmt.Sprintf("panic: %v", r)
			log.Error("Notification panicked", zap.Any("panic", r))
		}
	}()

	rcpt := c.resolver.Resolve(ctx, p.AppCode, environment)
	res.Recipient = rcpt

	n, err := c.Compose(doc, p, rcpt, environment)
	if err != nil {
		res.Status = models.DispatchFailed
		res.Reason = "render: " + err.Error()
		log.Error("Failed to render notification", zap.Error(err))
		return res
	}

	if err := c.sender.Send(ctx, c.message(n)); err != nil {
		res.Status = models.DispatchFailed
		res.Reason = "send: " + err.Error()
		log.Error("Mail sender rejected notification", zap.String("to", n.To), zap.Error(err))
		return res
	}

	res.Status = models.DispatchSent
	log.Info("Notification sent",
		zap.String("to", n.To),
		zap.String("recipient_source", string(rcpt.Source)),
		zap.Int("findings", p.Stats.TotalCount))
	return res
}

// Compose renders the notification for one partition
func (c *Coordinator) Compose(doc *models.ReportDocument, p models.AppPartition, rcpt models.Recipient, environment string) (models.RenderedNotification, error) {
	if c.appErr != nil {
		return models.RenderedNotification{}, c.appErr
	}
	ctx := render.AppContext(doc, p, environment)
	return models.RenderedNotification{
		AppCode:     p.AppCode,
		To:          rcpt.Address,
		CC:          mergeCC(rcpt.CC, c.opts.ExtraCC, rcpt.Address),
		Subject:     oneLine(c.renderer.Execute(c.app.Subject, ctx)),
		Body:        c.renderer.Execute(c.app.Body, ctx),
		Attachments: append([]string(nil), c.opts.Attachments...),
	}, nil
}

// SendDigest sends the cross-app digest to the configured digest address
func (c *Coordinator) SendDigest(ctx context.Context, doc *models.ReportDocument, environment string) models.DispatchResult {
	res := models.DispatchResult{AppCode: "digest"}
	if c.opts.DigestTo == "" {
		res.Status = models.DispatchSkipped
		res.Reason = "no digest recipient configured"
		return res
	}
	res.Recipient = models.Recipient{AppCode: "digest", Address: c.opts.DigestTo, Source: models.SourceFallback}
	if c.digestErr != nil {
		res.Status = models.DispatchFailed
		res.Reason = "render: " + c.digestErr.Error()
		return res
	}

	rctx := render.DigestContext(doc, environment)
	n := models.RenderedNotification{
		AppCode:     "digest",
		To:          c.opts.DigestTo,
		CC:          mergeCC(nil, c.opts.ExtraCC, c.opts.DigestTo),
		Subject:     oneLine(c.renderer.Execute(c.digest.Subject, rctx)),
		Body:        c.renderer.Execute(c.digest.Body, rctx),
		Attachments: append([]string(nil), c.opts.Attachments...),
	}
	if err := c.sender.Send(ctx, c.message(n)); err != nil {
		res.Status = models.DispatchFailed
		res.Reason = "send: " + err.Error()
		c.logger.Error("Failed to send digest", zap.Error(err))
		return res
	}
	res.Status = models.DispatchSent
	c.logger.Info("Digest sent", zap.String("to", c.opts.DigestTo))
	return res
}

func (c *Coordinator) message(n models.RenderedNotification) mail.Message {
	return mail.Message{
		From:        c.opts.From,
		To:          []string{n.To},
		CC:          n.CC,
		Subject:     n.Subject,
		Body:        n.Body,
		Attachments: n.Attachments,
	}
}

// mergeCC joins the CC lists without duplicates or the To address
func mergeCC(a, b []string, to string) []string {
	seen := map[string]bool{strings.ToLower(to): true}
	var out []string
	for _, list := range [][]string{a, b} {
		for _, addr := range list {
			key := strings.ToLower(strings.TrimSpace(addr))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(addr))
		}
	}
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Summarize derives the run status from the per-app results
func Summarize(results []models.DispatchResult, degraded bool) models.RunSummary {
	s := models.RunSummary{
		Total:    len(results),
		Degraded: degraded,
		Results:  results,
	}
	for _, r := range results {
		if r.Status == models.DispatchSent {
			s.Notified++
		}
	}
	switch {
	case s.Total > 0 && s.Notified == s.Total:
		s.Status = models.RunSucceeded
	case s.Notified > 0:
		s.Status = models.RunPartial
	default:
		s.Status = models.RunFailed
	}
	return s
}
