// Package aggregate reduces normalized findings into summary statistics,
// per-app partitions and compliance verdicts.
package aggregate

import (
	"sort"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// tally accumulates Stats in a single pass
type tally struct {
	stats      models.Stats
	issueTypes map[string]struct{}
	open       []models.Finding
	high       []models.Finding
}

func newTally() *tally {
	return &tally{
		stats: models.Stats{
			ByIssueType: make(map[string]int),
			ByState:     make(map[string]int),
			SeverityBreakdown: models.SeverityBreakdown{
				Unrecognized: make(map[string]int),
			},
		},
		issueTypes: make(map[string]struct{}),
		open:       []models.Finding{},
		high:       []models.Finding{},
	}
}

func (t *tally) add(f models.Finding) {
	t.stats.TotalCount++
	t.stats.SeverityBreakdown.Add(f.Severity)

	if f.IssueType != "" {
		t.issueTypes[f.IssueType] = struct{}{}
		t.stats.ByIssueType[f.IssueType]++
	}
	if f.IssueState != "" {
		t.stats.ByState[string(f.IssueState)]++
	}
	if f.IsOpen() {
		t.stats.OpenCount++
		t.open = append(t.open, f)
	}
	if f.IsHighSeverity() {
		t.high = append(t.high, f)
	}
}

func (t *tally) finish() models.Stats {
	t.stats.IssueTypes = sortedKeys(t.issueTypes)
	return t.stats
}

// Aggregate reduces findings into a SummaryReport. Open and high severity
// issues keep input order; sets are sorted so repeated runs over the same
// input produce identical values. GeneratedAt and the query window are left
// for the caller to stamp.
func Aggregate(findings []models.Finding) models.SummaryReport {
	t := newTally()
	appCodes := make(map[string]struct{})
	byApp := make(map[string]int)

	for _, f := range findings {
		t.add(f)
		appCodes[f.AppCode] = struct{}{}
		byApp[f.AppCode]++
	}

	return models.SummaryReport{
		Stats:              t.finish(),
		AppCodes:           sortedKeys(appCodes),
		ByAppCode:          byApp,
		OpenIssues:         t.open,
		HighSeverityIssues: t.high,
		NonCompliantApps:   []string{},
		ReportedTotal:      len(findings),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
