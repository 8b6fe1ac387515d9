package reporter

import (
	"fmt"
	"strings"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// TerminalReporter outputs the report in a human-readable terminal format
type TerminalReporter struct{}

// Report generates terminal output for the given document
func (r *TerminalReporter) Report(doc *models.ReportDocument) ([]byte, error) {
	s := doc.Summary
	if s.TotalCount == 0 {
		return []byte(fmt.Sprintf("No compliance findings between %s and %s.\n", s.StartDate, s.EndDate)), nil
	}

	var sb strings.Builder

	sb.WriteString("\nCOMPLIANCE FINDINGS\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	sb.WriteString(fmt.Sprintf("Found %d findings across %d app codes (%s to %s)\n",
		s.TotalCount, len(s.AppCodes), s.StartDate, s.EndDate))
	if s.ReportedTotal > s.TotalCount {
		sb.WriteString(fmt.Sprintf("Backend reported %d hits; only %d were returned\n", s.ReportedTotal, s.TotalCount))
	}
	sb.WriteString(fmt.Sprintf("Open: %d\n", s.OpenCount))
	writeBreakdown(&sb, "", s.SeverityBreakdown)
	if len(s.NonCompliantApps) > 0 {
		sb.WriteString(fmt.Sprintf("🚨 Non-compliant app codes: %s\n", strings.Join(s.NonCompliantApps, ", ")))
	}
	sb.WriteString("\n")

	for _, p := range doc.Partitions {
		sb.WriteString(fmt.Sprintf("📦 %s  (%d findings, %d open)\n", p.AppCode, p.Stats.TotalCount, p.Stats.OpenCount))
		writeBreakdown(&sb, "   ", p.Stats.SeverityBreakdown)

		if !p.Compliance.Compliant {
			for _, reason := range p.Compliance.Reasons {
				sb.WriteString(fmt.Sprintf("   🔴 %s\n", reason))
			}
		}

		for _, f := range p.HighSeverityIssues {
			sb.WriteString(fmt.Sprintf("   - [%s] %s", strings.ToUpper(string(f.Severity)), f.IssueType))
			if f.AffectedItemName != "" {
				sb.WriteString(" on " + f.AffectedItemName)
			}
			if f.RemediationLink != "" {
				sb.WriteString(" (" + f.RemediationLink + ")")
			}
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Repeat("-", 60) + "\n")
	}

	return []byte(sb.String()), nil
}

func writeBreakdown(sb *strings.Builder, indent string, b models.SeverityBreakdown) {
	sb.WriteString(fmt.Sprintf("%sCritical: %d | High: %d | Medium: %d | Low: %d | Info: %d",
		indent, b.Critical, b.High, b.Medium, b.Low, b.Info))
	if b.Other > 0 {
		sb.WriteString(fmt.Sprintf(" | Other: %d", b.Other))
	}
	sb.WriteString("\n")
}
