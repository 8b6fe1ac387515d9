package models

import "time"

// SeverityBreakdown counts findings per severity tier. Values outside the
// five canonical tiers are counted in Other.
type SeverityBreakdown struct {
	Critical     int            `json:"critical"`
	High         int            `json:"high"`
	Medium       int            `json:"medium"`
	Low          int            `json:"low"`
	Info         int            `json:"info"`
	Other        int            `json:"other"`
	Unrecognized map[string]int `json:"unrecognized"`
}

// Add increments the bucket for s
func (b *SeverityBreakdown) Add(s Severity) {
	switch s {
	case SeverityCritical:
		b.Critical++
	case SeverityHigh:
		b.High++
	case SeverityMedium:
		b.Medium++
	case SeverityLow:
		b.Low++
	case SeverityInfo:
		b.Info++
	default:
		b.Other++
		if b.Unrecognized == nil {
			b.Unrecognized = make(map[string]int)
		}
		b.Unrecognized[string(s)]++
	}
}

// Count returns the count for a canonical tier
func (b SeverityBreakdown) Count(s Severity) int {
	switch s {
	case SeverityCritical:
		return b.Critical
	case SeverityHigh:
		return b.High
	case SeverityMedium:
		return b.Medium
	case SeverityLow:
		return b.Low
	case SeverityInfo:
		return b.Info
	}
	return 0
}

// Canonical returns the sum of the five canonical buckets
func (b SeverityBreakdown) Canonical() int {
	return b.Critical + b.High + b.Medium + b.Low + b.Info
}

// Total returns the sum of all buckets including Other
func (b SeverityBreakdown) Total() int {
	return b.Canonical() + b.Other
}

// Stats holds the counters shared by the global summary and each partition
type Stats struct {
	TotalCount        int               `json:"totalCount"`
	SeverityBreakdown SeverityBreakdown `json:"severityBreakdown"`
	IssueTypes        []string          `json:"issueTypes"`
	ByIssueType       map[string]int    `json:"byIssueType"`
	ByState           map[string]int    `json:"byState"`
	OpenCount         int               `json:"openCount"`
}

// HighSeverityCount returns the number of high severity findings
func (s Stats) HighSeverityCount() int {
	return s.SeverityBreakdown.High
}

// SummaryReport aggregates a finding set for one run
type SummaryReport struct {
	Stats

	AppCodes           []string       `json:"appCodes"`
	ByAppCode          map[string]int `json:"byAppCode"`
	OpenIssues         []Finding      `json:"openIssues"`
	HighSeverityIssues []Finding      `json:"highSeverityIssues"`
	NonCompliantApps   []string       `json:"nonCompliantApps"`

	// ReportedTotal is the hit count claimed by the search backend, which
	// can exceed TotalCount when the query was size-limited.
	ReportedTotal int `json:"reportedTotal"`

	GeneratedAt time.Time `json:"generatedAt"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
}

// Compliance is the threshold verdict for one app code
type Compliance struct {
	Compliant bool     `json:"compliant"`
	Reasons   []string `json:"reasons"`
}

// AppPartition is the view of the findings owned by one app code
type AppPartition struct {
	AppCode            string     `json:"appCode"`
	Findings           []Finding  `json:"findings"`
	Stats              Stats      `json:"stats"`
	OpenIssues         []Finding  `json:"openIssues"`
	HighSeverityIssues []Finding  `json:"highSeverityIssues"`
	Compliance         Compliance `json:"compliance"`
}

// ReportDocument is the serialized output of one run
type ReportDocument struct {
	Summary    SummaryReport  `json:"summary"`
	Partitions []AppPartition `json:"partitions"`
}

// Partition returns the partition for appCode, if present
func (d *ReportDocument) Partition(appCode string) (AppPartition, bool) {
	for _, p := range d.Partitions {
		if p.AppCode == appCode {
			return p, true
		}
	}
	return AppPartition{}, false
}

// PartitionCodes returns app codes in partition order
func (d *ReportDocument) PartitionCodes() []string {
	codes := make([]string, 0, len(d.Partitions))
	for _, p := range d.Partitions {
		codes = append(codes, p.AppCode)
	}
	return codes
}

// QueryWindow is the date range the upstream query covered
type QueryWindow struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// DefaultWindow returns the window ending at now and spanning days days
func DefaultWindow(now time.Time, days int) QueryWindow {
	if days <= 0 {
		days = 7
	}
	return QueryWindow{
		StartDate: now.AddDate(0, 0, -days).Format("2006-01-02"),
		EndDate:   now.Format("2006-01-02"),
	}
}
