package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/google/uuid"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SpoolSender writes each message as an .eml file instead of sending it.
// Used for dry runs and for handing mail to an external relay.
type SpoolSender struct {
	dir string

	mu   sync.Mutex
	sent []string
}

// NewSpoolSender creates the spool directory if needed
func NewSpoolSender(dir string) (*SpoolSender, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &SpoolSender{dir: dir}, nil
}

// Send writes msg to <dir>/<subject-prefix>-<uuid>.eml
func (s *SpoolSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Compose(msg)
	if err != nil {
		return err
	}

	prefix := "message"
	if len(msg.To) > 0 {
		prefix = unsafeName.ReplaceAllString(msg.To[0], "_")
	}
	path := filepath.Join(s.dir, prefix+"-"+uuid.NewString()+".eml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to spool message: %w", err)
	}

	s.mu.Lock()
	s.sent = append(s.sent, path)
	s.mu.Unlock()
	return nil
}

// Files returns the paths written so far, in send order
func (s *SpoolSender) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}
