package models

import "fmt"

// RecipientSource records where a recipient address came from
type RecipientSource string

const (
	SourceVault    RecipientSource = "vault"
	SourceFallback RecipientSource = "default-fallback"
)

// Recipient is the resolved destination for one app code
type Recipient struct {
	AppCode string          `json:"appCode"`
	Address string          `json:"address"`
	CC      []string        `json:"cc,omitempty"`
	Source  RecipientSource `json:"source"`
}

// RenderedNotification is a fully rendered email ready for hand-off
type RenderedNotification struct {
	AppCode     string
	To          string
	CC          []string
	Subject     string
	Body        string
	Attachments []string // file references, in attachment order
}

// DispatchStatus is the outcome of one app code's notification
type DispatchStatus string

const (
	DispatchSent    DispatchStatus = "sent"
	DispatchFailed  DispatchStatus = "failed"
	DispatchSkipped DispatchStatus = "skipped"
)

// DispatchResult records what happened for one app code
type DispatchResult struct {
	AppCode   string         `json:"appCode"`
	Status    DispatchStatus `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	Recipient Recipient      `json:"recipient"`
}

// RunStatus is the overall outcome of a run
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// RunSummary is the operator-facing result of a notification run
type RunSummary struct {
	Status   RunStatus        `json:"status"`
	Notified int              `json:"notified"`
	Total    int              `json:"total"`
	Degraded bool             `json:"degraded"`
	Results  []DispatchResult `json:"results"`
}

// FailedAppCodes returns the app codes that did not receive mail
func (s RunSummary) FailedAppCodes() []string {
	var codes []string
	for _, r := range s.Results {
		if r.Status != DispatchSent {
			codes = append(codes, r.AppCode)
		}
	}
	return codes
}

// String returns the human-readable run status
func (s RunSummary) String() string {
	switch s.Status {
	case RunSucceeded:
		return "fully succeeded"
	case RunPartial:
		return fmt.Sprintf("partially succeeded (%d/%d app codes notified)", s.Notified, s.Total)
	default:
		return "failed before any notification"
	}
}
