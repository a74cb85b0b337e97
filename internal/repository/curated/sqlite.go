package curated

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cobrancalabs/analytics-api/internal/record"
)

const timeFormat = "2006-01-02T15:04:05Z"

// insertChunk keeps each statement well under sqlite's bound-variable limit
// (22 columns per row).
const insertChunk = 500

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveCurated persists one materializer flush as a single transaction: the
// whole batch commits or none of it does.
func (r *Repository) SaveCurated(ctx context.Context, recs []record.CuratedRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save curated: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for i := 0; i < len(recs); i += insertChunk {
		end := min(i+insertChunk, len(recs))
		chunk := recs[i:end]

		rowHolder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(record.Columns)), ", ") + ")"
		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(record.Columns))
		for j, rec := range chunk {
			placeholders[j] = rowHolder
			for _, v := range rec.Values() {
				if t, ok := v.(time.Time); ok {
					v = t.Format(timeFormat)
				}
				args = append(args, v)
			}
		}

		query := fmt.Sprintf("INSERT INTO curated_records (%s) VALUES %s", //nolint:gosec // column list and placeholders are not user input
			strings.Join(record.Columns, ", "),
			strings.Join(placeholders, ", "),
		)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("save curated: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save curated: commit: %w", err)
	}
	return total, nil
}

func (r *Repository) CountByTenant(ctx context.Context, organizationID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM curated_records WHERE organization_id = ?`, organizationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count curated: %w", err)
	}
	return n, nil
}

// ClearTenant is the only way curated data is removed: a tenant-scoped bulk
// delete issued by collaborators.
func (r *Repository) ClearTenant(ctx context.Context, organizationID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM curated_records WHERE organization_id = ?`, organizationID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear curated: %w", err)
	}
	return res.RowsAffected()
}
