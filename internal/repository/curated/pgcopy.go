package curated

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CopyWriter is the bulk columnar strategy used by the background ingestion
// path on Postgres deployments: one COPY per batch instead of row-by-row
// inserts.
type CopyWriter struct {
	pool *pgxpool.Pool
}

func NewCopyWriter(pool *pgxpool.Pool) *CopyWriter {
	return &CopyWriter{pool: pool}
}

// CopyCurated loads one batch of column-ordered rows via COPY FROM.
func (w *CopyWriter) CopyCurated(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := w.pool.CopyFrom(ctx,
		pgx.Identifier{"curated_records"},
		columns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return n, fmt.Errorf("copy curated: %w", err)
	}
	return n, nil
}
