package render

import (
	_ "embed"
)

var (
	//go:embed templates/app_report.tmpl
	AppReportTemplate string

	//go:embed templates/digest.tmpl
	DigestTemplate string
)

// Default subject lines, rendered against AppContext and DigestContext
const (
	AppSubjectTemplate    = "[{{ environment | upper }}] Compliance report for {{ app_code }}: {{ total_vulnerabilities }} findings ({{ start_date }} to {{ end_date }})"
	DigestSubjectTemplate = "[{{ environment | upper }}] Compliance digest: {{ non_compliant_count }} of {{ app_count }} non-compliant app codes"
)

// Set groups the parsed templates for one notification family
type Set struct {
	Subject *Template
	Body    *Template
}

// LoadSet parses the subject and body for a family. Empty paths or inline
// values select the built-in defaults.
func LoadSet(subject, subjectFallback, bodyPath, bodyFallback string) (Set, error) {
	var set Set
	var err error

	if subject == "" {
		subject = subjectFallback
	}
	if set.Subject, err = Parse(subject); err != nil {
		return Set{}, err
	}

	if bodyPath == "" {
		set.Body, err = Parse(bodyFallback)
	} else {
		set.Body, err = LoadTemplate(bodyPath)
	}
	if err != nil {
		return Set{}, err
	}
	return set, nil
}
