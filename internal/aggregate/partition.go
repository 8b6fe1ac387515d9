package aggregate

import "github.com/ethanolivertroy/compliance-notifier/internal/models"

// Partition groups findings by app code. Partitions appear in the order
// their app code was first seen and each keeps the relative input order of
// its findings. Every partition carries its own stats and compliance verdict.
func Partition(findings []models.Finding, thresholds models.ComplianceConfig) []models.AppPartition {
	index := make(map[string]int)
	var groups [][]models.Finding
	var codes []string

	for _, f := range findings {
		i, ok := index[f.AppCode]
		if !ok {
			i = len(groups)
			index[f.AppCode] = i
			groups = append(groups, nil)
			codes = append(codes, f.AppCode)
		}
		groups[i] = append(groups[i], f)
	}

	partitions := make([]models.AppPartition, 0, len(groups))
	for i, group := range groups {
		t := newTally()
		for _, f := range group {
			t.add(f)
		}
		stats := t.finish()
		partitions = append(partitions, models.AppPartition{
			AppCode:            codes[i],
			Findings:           group,
			Stats:              stats,
			OpenIssues:         t.open,
			HighSeverityIssues: t.high,
			Compliance:         Evaluate(stats, thresholds),
		})
	}
	return partitions
}
