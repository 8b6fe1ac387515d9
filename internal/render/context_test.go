package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/compliance-notifier/internal/aggregate"
	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

var thresholds = models.ComplianceConfig{Critical: 0, High: 2, Medium: 5}

// document assembles a report the way the builder does, without importing it
func document(findings []models.Finding) *models.ReportDocument {
	summary := aggregate.Aggregate(findings)
	partitions := aggregate.Partition(findings, thresholds)
	summary.NonCompliantApps = aggregate.NonCompliant(partitions)
	summary.GeneratedAt = time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)
	summary.StartDate = "2024-05-01"
	summary.EndDate = "2024-05-08"
	return &models.ReportDocument{Summary: summary, Partitions: partitions}
}

func fixture() *models.ReportDocument {
	return document([]models.Finding{
		{IssueType: "CVE", Severity: models.SeverityCritical, AppCode: "ATU0", IssueState: models.StateOpen, Component: "openssl", RemediationLink: "https://example.com/fix"},
		{IssueType: "CVE", Severity: models.SeverityHigh, AppCode: "ATU0", IssueState: models.StateOpen},
		{IssueType: "TSS", Severity: models.SeverityLow, AppCode: "ATU1", IssueState: models.StateClosed},
	})
}

func TestAppContext(t *testing.T) {
	doc := fixture()
	p, ok := doc.Partition("ATU0")
	require.True(t, ok)

	ctx := AppContext(doc, p, "prod")
	assert.Equal(t, "ATU0", ctx["app_code"])
	assert.Equal(t, "prod", ctx["environment"])
	assert.Equal(t, 2, ctx["total_vulnerabilities"])
	assert.Equal(t, 1, ctx["high_severity_count"])
	assert.Equal(t, 1, ctx["critical_count"])
	assert.Equal(t, "CVE", ctx["issue_types"])
	assert.Equal(t, "2024-05-08 12:00:00", ctx["report_date"])
	assert.Equal(t, false, ctx["is_compliant"])
	assert.Equal(t, false, ctx["zero_findings"])

	rows := ctx["high_severity_issues"].([]map[string]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "openssl", rows[0]["component"])
	_, hasComponent := rows[1]["component"]
	assert.False(t, hasComponent)

	nc := ctx["non_compliant_apps"].([]map[string]any)
	require.Len(t, nc, 1)
	assert.Equal(t, "ATU0", nc[0]["app_code"])

	global := ctx["global"].(map[string]any)
	assert.Equal(t, 3, global["total_vulnerabilities"])
	assert.Equal(t, 1, global["non_compliant_count"])
}

func TestAppContextCompliantAppHasNoAlert(t *testing.T) {
	doc := fixture()
	p, _ := doc.Partition("ATU1")

	ctx := AppContext(doc, p, "dev")
	assert.Empty(t, ctx["non_compliant_apps"])
	assert.Equal(t, true, ctx["is_compliant"])
}

func TestDigestContext(t *testing.T) {
	ctx := DigestContext(fixture(), "prod")
	assert.Equal(t, "ATU0,ATU1", ctx["app_code"])
	assert.Equal(t, 2, ctx["app_count"])
	assert.Equal(t, 1, ctx["non_compliant_count"])
	assert.Len(t, ctx["apps"], 2)
}

func TestDefaultAppTemplate(t *testing.T) {
	doc := fixture()
	p, _ := doc.Partition("ATU0")
	set, err := LoadSet("", AppSubjectTemplate, "", AppReportTemplate)
	require.NoError(t, err)

	r := New("")
	ctx := AppContext(doc, p, "prod")
	subject := r.Execute(set.Subject, ctx)
	body := r.Execute(set.Body, ctx)

	assert.Equal(t, "[PROD] Compliance report for ATU0: 2 findings (2024-05-01 to 2024-05-08)", subject)
	assert.Contains(t, body, "app code ATU0 (prod)")
	assert.Contains(t, body, "| CVE | critical | openssl | N/A | https://example.com/fix |")
	assert.Contains(t, body, "| CVE | high | N/A | N/A | N/A |")
	assert.Contains(t, body, "COMPLIANCE ALERT: ATU0 is not compliant.")
	assert.Contains(t, body, "- Has 1 critical findings (threshold: 0)")
	assert.NotContains(t, body, "{{")
	assert.NotContains(t, body, "{%")
}

func TestDefaultAppTemplateZeroFindings(t *testing.T) {
	doc := document(nil)
	p := models.AppPartition{AppCode: "ATU0", Compliance: models.Compliance{Compliant: true}}

	out, err := New("").Render(AppReportTemplate, AppContext(doc, p, "dev"))
	require.NoError(t, err)
	assert.Contains(t, out, "No findings were reported")
	assert.NotContains(t, out, "COMPLIANCE ALERT")
}

func TestDefaultDigestTemplate(t *testing.T) {
	set, err := LoadSet("", DigestSubjectTemplate, "", DigestTemplate)
	require.NoError(t, err)

	r := New("")
	ctx := DigestContext(fixture(), "prod")
	assert.Equal(t, "[PROD] Compliance digest: 1 of 2 non-compliant app codes", r.Execute(set.Subject, ctx))

	body := r.Execute(set.Body, ctx)
	assert.Contains(t, body, "| ATU0 | 2 | 2 | 1 | 1 | 0 | NON-COMPLIANT |")
	assert.Contains(t, body, "| ATU1 | 1 | 0 | 0 | 0 | 0 | compliant |")
	assert.Contains(t, body, "  - Has 1 critical findings (threshold: 0)")
}

func TestLoadSetBadSubject(t *testing.T) {
	_, err := LoadSet("{{ broken", AppSubjectTemplate, "", AppReportTemplate)
	require.Error(t, err)
}
