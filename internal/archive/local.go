package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DefaultRetention is how long local archives are kept when unset
const DefaultRetention = 90 * 24 * time.Hour

// Local stores documents as files under Dir
type Local struct {
	Dir       string
	Retention time.Duration
}

// NewLocal creates the archive directory
func NewLocal(dir string, retention time.Duration) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory must be set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if retention == 0 {
		retention = DefaultRetention
	}
	return &Local{Dir: dir, Retention: retention}, nil
}

// Path returns the file path for key
func (l *Local) Path(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.Dir, filepath.FromSlash(k)), nil
}

// Put writes data atomically and returns the file path
func (l *Local) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := l.Path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return p, nil
}

// Get returns a stored document if it exists and has not expired
func (l *Local) Get(key string) ([]byte, bool) {
	p, err := l.Path(key)
	if err != nil {
		return nil, false
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > l.Retention {
		return nil, false
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Prune removes files older than the retention period and returns how many
// were removed
func (l *Local) Prune() (int, error) {
	removed := 0
	cutoff := time.Now().Add(-l.Retention)
	err := filepath.WalkDir(l.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(p); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
