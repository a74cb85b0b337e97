package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cobrancalabs/analytics-api/internal/apperror"
)

// Row caps applied by the outer bounded selection.
const (
	PreviewLimit = 200
	DatasetLimit = 50
)

// Executor screens, expands and runs tenant-authored query text against the
// curated store. Execution is stateless and read-only; any timeout is
// delegated to the store.
type Executor struct {
	db *sql.DB
}

func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Preview runs the template wrapped in an outer bounded selection.
func (e *Executor) Preview(ctx context.Context, text string, qc Context, limit int) ([]map[string]any, error) {
	if !IsReadOnlySelect(text) {
		return nil, apperror.New(apperror.UnsafeQuery, "only SELECT statements are allowed")
	}
	expanded, params := ExpandTemplate(trimStatement(text), qc)
	wrapped := fmt.Sprintf("SELECT * FROM (%s) t LIMIT %d", expanded, limit)
	return e.execute(ctx, wrapped, params)
}

// Run executes the template without a row cap.
func (e *Executor) Run(ctx context.Context, text string, qc Context) ([]map[string]any, error) {
	if !IsReadOnlySelect(text) {
		return nil, apperror.New(apperror.UnsafeQuery, "only SELECT statements are allowed")
	}
	expanded, params := ExpandTemplate(trimStatement(text), qc)
	return e.execute(ctx, expanded, params)
}

// execute reports store-side failures as a query error, distinct from the
// pre-execution safety rejection, so tenants can tell "your text is unsafe"
// from "your query ran but the store rejected it".
func (e *Executor) execute(ctx context.Context, stmt string, params []any) ([]map[string]any, error) {
	rows, err := e.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, apperror.New(apperror.QueryError, fmt.Sprintf("query error: %v", err))
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, apperror.New(apperror.QueryError, fmt.Sprintf("query error: %v", err))
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperror.New(apperror.QueryError, fmt.Sprintf("query error: %v", err))
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				m[c] = string(b)
			} else {
				m[c] = values[i]
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.New(apperror.QueryError, fmt.Sprintf("query error: %v", err))
	}
	return out, nil
}
