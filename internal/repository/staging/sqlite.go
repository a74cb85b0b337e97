package staging

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cobrancalabs/analytics-api/internal/record"
)

const insertChunk = 500

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveStaging persists raw rows verbatim. Records are immutable once written;
// there is no update path.
func (r *Repository) SaveStaging(ctx context.Context, recs []record.StagingRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	var total int64
	for i := 0; i < len(recs); i += insertChunk {
		end := min(i+insertChunk, len(recs))
		chunk := recs[i:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*3)
		for j, rec := range chunk {
			placeholders[j] = "(?, ?, ?)"
			args = append(args, rec.OrganizationID, rec.RawJSON, rec.Checksum)
		}

		query := fmt.Sprintf( //nolint:gosec // placeholders are not user input
			"INSERT INTO staging_records (organization_id, raw_json, checksum) VALUES %s",
			strings.Join(placeholders, ", "),
		)

		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("save staging: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	return total, nil
}

func (r *Repository) CountByTenant(ctx context.Context, organizationID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM staging_records WHERE organization_id = ?`, organizationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count staging: %w", err)
	}
	return n, nil
}

func (r *Repository) ClearTenant(ctx context.Context, organizationID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM staging_records WHERE organization_id = ?`, organizationID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear staging: %w", err)
	}
	return res.RowsAffected()
}
