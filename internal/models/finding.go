package models

import (
	"strings"
	"time"
)

// Severity is the severity tier reported for a finding
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists the canonical tiers from most to least severe
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Canonical reports whether s is one of the five known tiers
func (s Severity) Canonical() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// IssueState is the lifecycle state of a finding
type IssueState string

const (
	StateOpen   IssueState = "OPEN"
	StateClosed IssueState = "CLOSED"
)

// UnknownAppCode is assigned to findings that arrive without an app code
const UnknownAppCode = "UNKNOWN"

// Finding represents one compliance or vulnerability record
type Finding struct {
	IssueType        string     `json:"issueType"`
	Severity         Severity   `json:"severity"`
	AffectedItemName string     `json:"affectedItemName,omitempty"`
	AffectedItemType string     `json:"affectedItemType,omitempty"`
	AppCode          string     `json:"appCode"`
	IssueState       IssueState `json:"issueState,omitempty"`
	DetectedAt       *time.Time `json:"detectedAt,omitempty"`

	// Optional fields carried through to notification tables
	Component       string `json:"component,omitempty"`
	RemediationLink string `json:"remediationLink,omitempty"`
	Priority        string `json:"priority,omitempty"`
}

// IsOpen returns true if the finding is still open
func (f Finding) IsOpen() bool {
	return f.IssueState == StateOpen
}

// IsHighSeverity returns true for critical and high findings
func (f Finding) IsHighSeverity() bool {
	return f.Severity == SeverityCritical || f.Severity == SeverityHigh
}

// String returns a short human-readable label
func (f Finding) String() string {
	var sb strings.Builder
	sb.WriteString(f.AppCode)
	sb.WriteString(":")
	sb.WriteString(f.IssueType)
	if f.AffectedItemName != "" {
		sb.WriteString("@")
		sb.WriteString(f.AffectedItemName)
	}
	return sb.String()
}
