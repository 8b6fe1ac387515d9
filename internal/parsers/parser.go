package parsers

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// ErrMalformedInput is returned when the top-level document cannot be parsed
var ErrMalformedInput = errors.New("malformed input document")

// Batch is the raw, not yet normalized content of one input document
type Batch struct {
	Records []map[string]any

	// ReportedTotal is the backend's hit count, or len(Records) when the
	// input carried no total.
	ReportedTotal int

	// Window is set when the document carries its own query window
	Window *models.QueryWindow
}

// Parser is the interface for input document parsers
type Parser interface {
	// CanParse returns true if this parser recognises the document shape
	CanParse(content []byte) bool

	// Parse extracts raw finding records from the document
	Parse(content []byte) (*Batch, error)
}

// GetAllParsers returns all available parsers
func GetAllParsers() []Parser {
	return []Parser{
		&SearchResponseParser{},
		&FlatListParser{},
	}
}

// Parse picks the first parser that recognises content. Blank content is an
// empty batch.
func Parse(content []byte) (*Batch, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return &Batch{}, nil
	}
	for _, p := range GetAllParsers() {
		if p.CanParse(content) {
			return p.Parse(content)
		}
	}
	return nil, fmt.Errorf("%w: unrecognised top-level structure", ErrMalformedInput)
}

// LoadFile reads and parses an input file. A missing file is treated as a
// search response with zero hits.
func LoadFile(path string) (*Batch, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Batch{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return Parse(content)
}
