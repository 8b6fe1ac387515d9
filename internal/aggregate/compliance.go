package aggregate

import (
	"fmt"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// Evaluate checks stats against the thresholds. A count strictly above its
// threshold makes the app non-compliant and adds one reason.
func Evaluate(stats models.Stats, thresholds models.ComplianceConfig) models.Compliance {
	c := models.Compliance{Compliant: true, Reasons: []string{}}

	checks := []struct {
		severity  models.Severity
		threshold int
	}{
		{models.SeverityCritical, thresholds.Critical},
		{models.SeverityHigh, thresholds.High},
		{models.SeverityMedium, thresholds.Medium},
	}
	for _, chk := range checks {
		n := stats.SeverityBreakdown.Count(chk.severity)
		if n > chk.threshold {
			c.Compliant = false
			c.Reasons = append(c.Reasons,
				fmt.Sprintf("Has %d %s findings (threshold: %d)", n, chk.severity, chk.threshold))
		}
	}
	return c
}

// NonCompliant returns the app codes of non-compliant partitions in order
func NonCompliant(partitions []models.AppPartition) []string {
	codes := []string{}
	for _, p := range partitions {
		if !p.Compliance.Compliant {
			codes = append(codes, p.AppCode)
		}
	}
	return codes
}
