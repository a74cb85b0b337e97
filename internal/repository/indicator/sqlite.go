package indicator

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cobrancalabs/analytics-api/internal/apperror"
	domain "github.com/cobrancalabs/analytics-api/internal/indicator"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Upsert(ctx context.Context, ind *domain.Indicator) error {
	const query = `INSERT INTO indicators
		(organization_id, key, name, dataset, formula_sql, default_filters_json, fmt, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (organization_id, key) DO UPDATE SET
			name = excluded.name,
			dataset = excluded.dataset,
			formula_sql = excluded.formula_sql,
			default_filters_json = excluded.default_filters_json,
			fmt = excluded.fmt,
			category = excluded.category`

	_, err := r.db.ExecContext(ctx, query,
		ind.OrganizationID, ind.Key, ind.Name,
		nullable(ind.Dataset), ind.FormulaSQL, nullable(ind.DefaultFiltersJSON),
		nullable(ind.Fmt), nullable(ind.Category),
	)
	if err != nil {
		return fmt.Errorf("upsert indicator: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM indicators WHERE organization_id = ? AND key = ?`,
		ind.OrganizationID, ind.Key,
	).Scan(&ind.ID, &createdScanner{&ind.CreatedAt})
	if err != nil {
		return fmt.Errorf("upsert indicator: reload: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, organizationID, id int64) (*domain.Indicator, error) {
	const query = `SELECT id, organization_id, key, name, dataset, formula_sql,
		default_filters_json, fmt, category, created_at
		FROM indicators WHERE id = ? AND organization_id = ?`

	ind := &domain.Indicator{}
	var dataset, filters, fmtCol, category sql.NullString
	var createdStr string

	err := r.db.QueryRowContext(ctx, query, id, organizationID).Scan(
		&ind.ID, &ind.OrganizationID, &ind.Key, &ind.Name,
		&dataset, &ind.FormulaSQL, &filters, &fmtCol, &category, &createdStr,
	)
	if err == sql.ErrNoRows {
		return nil, apperror.New(apperror.NotFound, "indicator not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get indicator: %w", err)
	}

	ind.Dataset = dataset.String
	ind.DefaultFiltersJSON = filters.String
	ind.Fmt = fmtCol.String
	ind.Category = category.String
	ind.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return ind, nil
}

func (r *Repository) List(ctx context.Context, organizationID int64) ([]domain.Indicator, error) {
	const query = `SELECT id, organization_id, key, name, dataset, formula_sql,
		default_filters_json, fmt, category, created_at
		FROM indicators WHERE organization_id = ?
		ORDER BY COALESCE(NULLIF(category, ''), '~'), name`

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list indicators: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var inds []domain.Indicator
	for rows.Next() {
		var ind domain.Indicator
		var dataset, filters, fmtCol, category sql.NullString
		var createdStr string

		if err := rows.Scan(
			&ind.ID, &ind.OrganizationID, &ind.Key, &ind.Name,
			&dataset, &ind.FormulaSQL, &filters, &fmtCol, &category, &createdStr,
		); err != nil {
			return nil, fmt.Errorf("scan indicator: %w", err)
		}

		ind.Dataset = dataset.String
		ind.DefaultFiltersJSON = filters.String
		ind.Fmt = fmtCol.String
		ind.Category = category.String
		ind.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		inds = append(inds, ind)
	}

	return inds, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, organizationID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM indicators WHERE id = ? AND organization_id = ?`,
		id, organizationID,
	)
	if err != nil {
		return fmt.Errorf("delete indicator: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "indicator not found")
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// createdScanner parses the sqlite timestamp text into a time.Time in place.
type createdScanner struct {
	t *time.Time
}

func (c *createdScanner) Scan(src any) error {
	s, ok := src.(string)
	if !ok {
		if b, ok := src.([]byte); ok {
			s = string(b)
		} else {
			return nil
		}
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err == nil {
		*c.t = parsed
	}
	return nil
}
