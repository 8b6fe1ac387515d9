package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlatListParser parses pre-flattened finding lists, either a bare JSON
// array or an object with a "findings" array
type FlatListParser struct{}

type flatDocument struct {
	Findings  []json.RawMessage `json:"findings"`
	StartDate string            `json:"startDate"`
	EndDate   string            `json:"endDate"`
}

// CanParse returns true for JSON arrays and objects with a "findings" key
func (p *FlatListParser) CanParse(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return true
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return false
	}
	_, ok := probe["findings"]
	return ok
}

// Parse extracts every element of the list as a record
func (p *FlatListParser) Parse(content []byte) (*Batch, error) {
	trimmed := bytes.TrimSpace(content)

	var doc flatDocument
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &doc.Findings); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	} else if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	batch := &Batch{
		Records: make([]map[string]any, 0, len(doc.Findings)),
		Window:  windowFrom(doc.StartDate, doc.EndDate),
	}
	for _, raw := range doc.Findings {
		rec := decodeRecord(raw)
		// Tolerate search hits mixed into a flat list
		if src, ok := rec["_source"].(map[string]any); ok {
			rec = src
		}
		batch.Records = append(batch.Records, rec)
	}
	batch.ReportedTotal = len(batch.Records)
	return batch, nil
}
