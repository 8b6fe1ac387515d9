package reporter

import "github.com/ethanolivertroy/compliance-notifier/internal/models"

// JSONReporter outputs the report document as JSON
type JSONReporter struct{}

// Report generates JSON output for the given document
func (r *JSONReporter) Report(doc *models.ReportDocument) ([]byte, error) {
	return Encode(doc)
}
