// Package archive keeps a durable copy of every report document.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// ErrUnknownBackend is returned by New for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown archive backend")

// Archive stores report documents under a key and returns a reference to
// the stored copy
type Archive interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// Key returns the archive key for a run: <date>/<run id>.json
func Key(generatedAt time.Time, runID string) string {
	return path.Join(generatedAt.UTC().Format("2006-01-02"), runID+".json")
}

func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("empty archive key")
	}
	return k, nil
}

// Nop discards documents
type Nop struct{}

// Put implements Archive
func (Nop) Put(context.Context, string, []byte) (string, error) { return "", nil }

// New returns the archive selected by cfg.Backend. The returned close
// function releases backend resources and is never nil.
func New(ctx context.Context, cfg models.ArchiveConfig, logger *zap.Logger) (Archive, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() {}
	switch cfg.Backend {
	case "local", "":
		a, err := NewLocal(cfg.Dir, cfg.Retention)
		if err != nil {
			return nil, noop, err
		}
		if n, err := a.Prune(); err != nil {
			logger.Warn("Failed to prune archive", zap.String("dir", cfg.Dir), zap.Error(err))
		} else if n > 0 {
			logger.Info("Pruned expired reports", zap.String("dir", cfg.Dir), zap.Int("removed", n))
		}
		return a, noop, nil
	case "s3":
		a, err := NewS3(ctx, cfg.Region, cfg.Bucket, cfg.Prefix)
		return a, noop, err
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		a, err := NewPostgres(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return a, pool.Close, nil
	case "none":
		return Nop{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("%w %q", ErrUnknownBackend, cfg.Backend)
	}
}
