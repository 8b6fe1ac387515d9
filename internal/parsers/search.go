package parsers

import (
	"encoding/json"
	"fmt"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// SearchResponseParser parses raw search backend responses of the form
// {"hits": {"total": {"value": N}, "hits": [{"_source": {...}}]}}
type SearchResponseParser struct{}

type searchResponse struct {
	Hits *struct {
		Total json.RawMessage   `json:"total"`
		Hits  []json.RawMessage `json:"hits"`
	} `json:"hits"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// CanParse returns true for objects carrying a top-level "hits" key
func (p *SearchResponseParser) CanParse(content []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	_, ok := probe["hits"]
	return ok
}

// Parse extracts the _source of every hit. A hit that is not an object, or
// has no object _source, becomes an empty record so it is still counted.
func (p *SearchResponseParser) Parse(content []byte) (*Batch, error) {
	var resp searchResponse
	if err := json.Unmarshal(content, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	batch := &Batch{Window: windowFrom(resp.StartDate, resp.EndDate)}
	if resp.Hits == nil {
		return batch, nil
	}

	batch.Records = make([]map[string]any, 0, len(resp.Hits.Hits))
	for _, raw := range resp.Hits.Hits {
		source, _ := decodeRecord(raw)["_source"].(map[string]any)
		if source == nil {
			source = map[string]any{}
		}
		batch.Records = append(batch.Records, source)
	}

	batch.ReportedTotal = parseTotal(resp.Hits.Total)
	if batch.ReportedTotal < len(batch.Records) {
		batch.ReportedTotal = len(batch.Records)
	}
	return batch, nil
}

// parseTotal accepts both {"value": N, "relation": "eq"} and a bare N
func parseTotal(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var obj struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

// decodeRecord turns a hit source into a record. Anything that is not a
// JSON object becomes an empty record so it is still counted.
func decodeRecord(raw json.RawMessage) map[string]any {
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
		return map[string]any{}
	}
	return rec
}

func windowFrom(start, end string) *models.QueryWindow {
	if start == "" && end == "" {
		return nil
	}
	return &models.QueryWindow{StartDate: start, EndDate: end}
}
