package reporter

import "github.com/ethanolivertroy/compliance-notifier/internal/models"

// Reporter is the interface for output formatters
type Reporter interface {
	// Report generates output for the given document
	Report(doc *models.ReportDocument) ([]byte, error)
}

// Get returns a reporter for the specified format
func Get(format string) Reporter {
	switch format {
	case "terminal":
		return &TerminalReporter{}
	case "sarif":
		return &SARIFReporter{}
	default:
		return &JSONReporter{}
	}
}
