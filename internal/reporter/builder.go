package reporter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethanolivertroy/compliance-notifier/internal/aggregate"
	"github.com/ethanolivertroy/compliance-notifier/internal/models"
	"github.com/ethanolivertroy/compliance-notifier/internal/parsers"
)

// Builder assembles report documents from normalized findings
type Builder struct {
	Thresholds models.ComplianceConfig

	// Now is the clock used to stamp GeneratedAt
	Now func() time.Time
}

// NewBuilder creates a Builder using the wall clock
func NewBuilder(thresholds models.ComplianceConfig) *Builder {
	return &Builder{Thresholds: thresholds, Now: time.Now}
}

// Build aggregates and partitions findings into one document. GeneratedAt
// is stamped once, in UTC at second precision.
func (b *Builder) Build(findings []models.Finding, window models.QueryWindow) *models.ReportDocument {
	summary := aggregate.Aggregate(findings)
	partitions := aggregate.Partition(findings, b.Thresholds)

	summary.NonCompliantApps = aggregate.NonCompliant(partitions)
	summary.GeneratedAt = b.now()
	summary.StartDate = window.StartDate
	summary.EndDate = window.EndDate

	return &models.ReportDocument{
		Summary:    summary,
		Partitions: partitions,
	}
}

// BuildFromBatch normalizes a parsed batch and builds its document. A window
// carried by the batch takes precedence over the supplied one. Normalization
// problems are returned by record index.
func (b *Builder) BuildFromBatch(batch *parsers.Batch, window models.QueryWindow) (*models.ReportDocument, map[int]error) {
	if batch.Window != nil {
		window = *batch.Window
	}
	findings, problems := parsers.NormalizeAll(batch.Records)
	doc := b.Build(findings, window)
	if batch.ReportedTotal > doc.Summary.ReportedTotal {
		doc.Summary.ReportedTotal = batch.ReportedTotal
	}
	return doc, problems
}

// Empty returns the zero-valued document used when the input could not be
// parsed at all
func (b *Builder) Empty(window models.QueryWindow) *models.ReportDocument {
	return b.Build(nil, window)
}

func (b *Builder) now() time.Time {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	return now().UTC().Truncate(time.Second)
}

// Encode serializes a document as indented JSON
func Encode(doc *models.ReportDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}

// Decode parses a document written by Encode
func Decode(data []byte) (*models.ReportDocument, error) {
	var doc models.ReportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &doc, nil
}
