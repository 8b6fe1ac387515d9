package render

import (
	"strings"
	"time"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

const dateTimeLayout = "2006-01-02 15:04:05"

// AppContext builds the render context for one app code's notification.
// Top-level keys describe the partition, so non_compliant_apps holds at most
// this app. The whole-run figures are under "global".
func AppContext(doc *models.ReportDocument, p models.AppPartition, environment string) map[string]any {
	s := doc.Summary
	ctx := map[string]any{
		"environment":          environment,
		"app_code":             p.AppCode,
		"report_date":          s.GeneratedAt.Format(dateTimeLayout),
		"generated_at":         s.GeneratedAt.Format(dateTimeLayout),
		"start_date":           s.StartDate,
		"end_date":             s.EndDate,
		"zero_findings":        p.Stats.TotalCount == 0,
		"is_compliant":         p.Compliance.Compliant,
		"compliance_reasons":   stringsOrEmpty(p.Compliance.Reasons),
		"open_count":           p.Stats.OpenCount,
		"high_severity_issues": issueRows(p.HighSeverityIssues),
		"open_issues":          issueRows(p.OpenIssues),
		"findings":             issueRows(p.Findings),
		"issue_type_counts":    countRows(p.Stats.IssueTypes, p.Stats.ByIssueType),
		"non_compliant_apps":   nonCompliantRows(doc, []string{p.AppCode}),
		"global":               globalContext(doc),
	}
	addStats(ctx, p.Stats)
	return ctx
}

// DigestContext builds the context for the cross-app compliance digest
func DigestContext(doc *models.ReportDocument, environment string) map[string]any {
	s := doc.Summary
	ctx := map[string]any{
		"environment":          environment,
		"app_code":             strings.Join(s.AppCodes, ","),
		"app_codes":            stringsOrEmpty(s.AppCodes),
		"app_count":            len(doc.Partitions),
		"non_compliant_count":  len(s.NonCompliantApps),
		"report_date":          s.GeneratedAt.Format(dateTimeLayout),
		"generated_at":         s.GeneratedAt.Format(dateTimeLayout),
		"start_date":           s.StartDate,
		"end_date":             s.EndDate,
		"zero_findings":        s.TotalCount == 0,
		"open_count":           s.OpenCount,
		"reported_total":       s.ReportedTotal,
		"high_severity_issues": issueRows(s.HighSeverityIssues),
		"issue_type_counts":    countRows(s.IssueTypes, s.ByIssueType),
		"non_compliant_apps":   nonCompliantRows(doc, doc.Summary.NonCompliantApps),
		"apps":                 appRows(doc),
	}
	addStats(ctx, s.Stats)
	return ctx
}

func globalContext(doc *models.ReportDocument) map[string]any {
	s := doc.Summary
	g := map[string]any{
		"app_codes":            stringsOrEmpty(s.AppCodes),
		"open_count":           s.OpenCount,
		"reported_total":       s.ReportedTotal,
		"non_compliant_count":  len(s.NonCompliantApps),
		"non_compliant_apps":   nonCompliantRows(doc, s.NonCompliantApps),
		"high_severity_issues": issueRows(s.HighSeverityIssues),
	}
	addStats(g, s.Stats)
	return g
}

func addStats(ctx map[string]any, st models.Stats) {
	b := st.SeverityBreakdown
	ctx["total_vulnerabilities"] = st.TotalCount
	ctx["total_count"] = st.TotalCount
	ctx["high_severity_count"] = st.HighSeverityCount()
	ctx["critical_count"] = b.Critical
	ctx["high_count"] = b.High
	ctx["medium_count"] = b.Medium
	ctx["low_count"] = b.Low
	ctx["info_count"] = b.Info
	ctx["other_count"] = b.Other
	ctx["issue_types"] = issueTypes(st.IssueTypes)
}

func issueTypes(types []string) string {
	if len(types) == 0 {
		return "Vulnerability"
	}
	return strings.Join(types, ", ")
}

// issueRows flattens findings into template rows. Empty optional fields are
// left out so templates fall back to their defaults.
func issueRows(findings []models.Finding) []map[string]any {
	rows := make([]map[string]any, 0, len(findings))
	for _, f := range findings {
		row := map[string]any{
			"type":     f.IssueType,
			"severity": string(f.Severity),
			"app_code": f.AppCode,
			"state":    string(f.IssueState),
		}
		optional(row, "affected_item", f.AffectedItemName)
		optional(row, "affected_item_type", f.AffectedItemType)
		optional(row, "component", f.Component)
		optional(row, "remediation_link", f.RemediationLink)
		optional(row, "priority", f.Priority)
		if f.DetectedAt != nil {
			row["detected_at"] = f.DetectedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows
}

func optional(row map[string]any, key, value string) {
	if value != "" {
		row[key] = value
	}
}

func countRows(keys []string, counts map[string]int) []map[string]any {
	rows := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, map[string]any{"type": k, "count": counts[k]})
	}
	return rows
}

func nonCompliantRows(doc *models.ReportDocument, codes []string) []map[string]any {
	rows := make([]map[string]any, 0, len(codes))
	for _, code := range codes {
		p, ok := doc.Partition(code)
		if !ok || p.Compliance.Compliant {
			continue
		}
		rows = append(rows, map[string]any{
			"app_code":        code,
			"reasons":         stringsOrEmpty(p.Compliance.Reasons),
			"severity_counts": severityCounts(p.Stats.SeverityBreakdown),
		})
	}
	return rows
}

func appRows(doc *models.ReportDocument) []map[string]any {
	rows := make([]map[string]any, 0, len(doc.Partitions))
	for _, p := range doc.Partitions {
		rows = append(rows, map[string]any{
			"app_code":            p.AppCode,
			"total_count":         p.Stats.TotalCount,
			"open_count":          p.Stats.OpenCount,
			"high_severity_count": p.Stats.HighSeverityCount(),
			"is_compliant":        p.Compliance.Compliant,
			"reasons":             stringsOrEmpty(p.Compliance.Reasons),
			"severity_counts":     severityCounts(p.Stats.SeverityBreakdown),
		})
	}
	return rows
}

func severityCounts(b models.SeverityBreakdown) map[string]any {
	return map[string]any{
		"critical": b.Critical,
		"high":     b.High,
		"medium":   b.Medium,
		"low":      b.Low,
		"info":     b.Info,
		"other":    b.Other,
	}
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
