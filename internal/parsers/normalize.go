package parsers

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// NormalizationError lists the data-quality problems found in one record.
// The finding returned alongside it is still usable.
type NormalizationError struct {
	Problems []string
}

func (e *NormalizationError) Error() string {
	return "normalization: " + strings.Join(e.Problems, "; ")
}

func (e *NormalizationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// fieldAliases maps each canonical field to the keys it may arrive under
var fieldAliases = map[string][]string{
	"issueType":        {"issueType", "issue_type"},
	"severity":         {"severity"},
	"affectedItemName": {"affectedItemName", "affected_item_name", "server_name"},
	"affectedItemType": {"affectedItemType", "affected_item_type"},
	"appCode":          {"appCode", "app_code"},
	"issueState":       {"issueState", "issue_state"},
	"detectedAt":       {"detectedAt", "detected_at", "timestamp", "@timestamp"},
	"component":        {"component"},
	"remediationLink":  {"remediationLink", "remediation_link"},
	"priority":         {"priority"},
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize flattens a raw record into a Finding. It never drops a record:
// a missing severity becomes info, a missing app code becomes UNKNOWN, and
// unrecognised severities and states are kept verbatim. The returned error,
// when non-nil, is a *NormalizationError describing what was defaulted.
func Normalize(raw map[string]any) (models.Finding, error) {
	nerr := &NormalizationError{}

	f := models.Finding{
		IssueType:        field(raw, "issueType", nerr),
		AffectedItemName: field(raw, "affectedItemName", nerr),
		AffectedItemType: field(raw, "affectedItemType", nerr),
		Component:        field(raw, "component", nerr),
		RemediationLink:  field(raw, "remediationLink", nerr),
		Priority:         field(raw, "priority", nerr),
	}

	f.Severity = normalizeSeverity(field(raw, "severity", nerr))
	if !f.Severity.Canonical() {
		nerr.add("unrecognised severity %q", f.Severity)
	}

	f.AppCode = strings.ToUpper(field(raw, "appCode", nerr))
	if f.AppCode == "" {
		f.AppCode = models.UnknownAppCode
		nerr.add("missing app code, assigned %s", models.UnknownAppCode)
	}

	f.IssueState = normalizeState(field(raw, "issueState", nerr))

	if ts := field(raw, "detectedAt", nerr); ts != "" {
		if t, ok := parseTime(ts); ok {
			f.DetectedAt = &t
		} else {
			nerr.add("unparseable timestamp %q", ts)
		}
	}

	if len(nerr.Problems) > 0 {
		return f, nerr
	}
	return f, nil
}

// NormalizeAll normalizes every record of a batch in order. Problems are
// returned per record index and do not affect the result length.
func NormalizeAll(records []map[string]any) ([]models.Finding, map[int]error) {
	findings := make([]models.Finding, 0, len(records))
	problems := make(map[int]error)
	for i, rec := range records {
		f, err := Normalize(rec)
		if err != nil {
			problems[i] = err
		}
		findings = append(findings, f)
	}
	return findings, problems
}

func normalizeSeverity(s string) models.Severity {
	if s == "" {
		return models.SeverityInfo
	}
	lower := models.Severity(strings.ToLower(s))
	if lower.Canonical() {
		return lower
	}
	return models.Severity(s)
}

func normalizeState(s string) models.IssueState {
	switch upper := models.IssueState(strings.ToUpper(s)); upper {
	case models.StateOpen, models.StateClosed:
		return upper
	}
	return models.IssueState(s)
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// field returns the first alias present in raw as a trimmed string
func field(raw map[string]any, name string, nerr *NormalizationError) string {
	for _, key := range fieldAliases[name] {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return strings.TrimSpace(val)
		case float64, bool:
			return fmt.Sprint(val)
		default:
			nerr.add("field %s has unsupported type %T", key, v)
			return ""
		}
	}
	return ""
}
