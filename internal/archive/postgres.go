package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBPool abstracts pgxpool.Pool for mocking in tests
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlCreateArchive = `
        CREATE TABLE IF NOT EXISTS report_archive (
            key         TEXT PRIMARY KEY,
            document    JSONB NOT NULL,
            archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );
    `
	sqlInsertArchive = `
        INSERT INTO report_archive (key, document)
        VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET
            document = EXCLUDED.document,
            archived_at = now();
    `
)

// Postgres stores documents in the report_archive table
type Postgres struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgres verifies the connection and creates the table if needed
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, sqlCreateArchive); err != nil {
		return nil, fmt.Errorf("failed to create report_archive: %w", err)
	}
	return &Postgres{pool: pool, log: logger.Named("archive")}, nil
}

// Put upserts the document and returns a table reference
func (p *Postgres) Put(ctx context.Context, key string, data []byte) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	tag, err := p.pool.Exec(ctx, sqlInsertArchive, k, string(data))
	if err != nil {
		return "", fmt.Errorf("failed to archive report: %w", err)
	}
	if tag.RowsAffected() != 1 {
		p.log.Warn("Unexpected row count archiving report", zap.String("key", k), zap.Int64("rows", tag.RowsAffected()))
	}
	return "report_archive/" + k, nil
}
