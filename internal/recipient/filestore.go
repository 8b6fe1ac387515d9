package recipient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileStore is a SecretStore backed by a TOML file of nested tables:
//
//	[dev.notification]
//	to = "custodians@example.com"
//	cc = ["audit@example.com"]
//
//	[prod.notification.to]
//	ATU0 = "atu0-team@example.com"
//	default = "custodians@example.com"
type FileStore struct {
	data map[string]any
}

// LoadFileStore reads and parses a TOML recipients file
func LoadFileStore(path string) (*FileStore, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients file: %w", err)
	}
	return ParseFileStore(string(content))
}

// ParseFileStore parses TOML content
func ParseFileStore(content string) (*FileStore, error) {
	data := make(map[string]any)
	if _, err := toml.Decode(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse recipients: %w", err)
	}
	return &FileStore{data: data}, nil
}

// Read walks the slash separated path through nested tables
func (s *FileStore) Read(_ context.Context, path string) (map[string]any, error) {
	node := s.data
	for _, key := range strings.Split(strings.Trim(path, "/"), "/") {
		next, ok := node[key]
		if !ok {
			return nil, fmt.Errorf("%s: key %q not found", path, key)
		}
		table, ok := next.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: %q is not a table", path, key)
		}
		node = table
	}
	return node, nil
}
