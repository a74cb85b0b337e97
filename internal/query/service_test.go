package query

import (
	"context"
	"testing"

	"github.com/cobrancalabs/analytics-api/internal/apperror"
	"github.com/cobrancalabs/analytics-api/internal/platform/sqlite"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedCurated(t *testing.T, db *sqlite.DB) {
	t.Helper()
	rows := []struct {
		org   int64
		uf    string
		valor float64
		faixa string
		dtCad string
	}{
		{7, "SP", 100, "30-60", "2024-01-10T00:00:00Z"},
		{7, "SP", 50, "60-90", "2024-02-10T00:00:00Z"},
		{7, "RJ", 25, "30-60", "2024-02-15T00:00:00Z"},
		{8, "MG", 999, "30-60", "2024-01-01T00:00:00Z"},
	}
	for _, r := range rows {
		_, err := db.DB.Exec(
			`INSERT INTO curated_records (organization_id, uf, vl_titulo, faixa_vencimento, dt_cadastro)
			VALUES (?, ?, ?, ?, ?)`,
			r.org, r.uf, r.valor, r.faixa, r.dtCad,
		)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestExecutor_Run_TenantScoped(t *testing.T) {
	db := setupTestDB(t)
	seedCurated(t, db)
	exec := NewExecutor(db.DB)

	rows, err := exec.Run(context.Background(),
		"SELECT uf, SUM(vl_titulo) AS total FROM curated_records WHERE organization_id={{tenant_id}} GROUP BY uf ORDER BY total DESC",
		Context{TenantID: 7},
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["uf"] != "SP" {
		t.Errorf("expected SP first, got %v", rows[0]["uf"])
	}
	// Tenant 8's record must never leak into tenant 7's result.
	for _, r := range rows {
		if r["uf"] == "MG" {
			t.Fatal("foreign tenant row leaked into result")
		}
	}
}

func TestExecutor_Run_DateRangeAndFilter(t *testing.T) {
	db := setupTestDB(t)
	seedCurated(t, db)
	exec := NewExecutor(db.DB)

	from, to := "2024-02-01", "2024-02-28"
	rows, err := exec.Run(context.Background(),
		`SELECT COUNT(*) AS n FROM curated_records
		WHERE organization_id={{tenant_id}}
		AND ({{from}} IS NULL OR {{date_field}} >= {{from}})
		AND ({{to}} IS NULL OR {{date_field}} <= {{to}}) {{filter:uf}}`,
		Context{TenantID: 7, From: &from, To: &to, Filters: map[string]any{"uf": "SP"}},
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if n, ok := rows[0]["n"].(int64); !ok || n != 1 {
		t.Errorf("expected count 1, got %v", rows[0]["n"])
	}
}

func TestExecutor_Preview_Capped(t *testing.T) {
	db := setupTestDB(t)
	seedCurated(t, db)
	exec := NewExecutor(db.DB)

	rows, err := exec.Preview(context.Background(),
		"SELECT id FROM curated_records WHERE organization_id={{tenant_id}} ORDER BY id",
		Context{TenantID: 7}, 2,
	)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected preview capped at 2 rows, got %d", len(rows))
	}
}

func TestExecutor_Preview_TrailingSemicolon(t *testing.T) {
	db := setupTestDB(t)
	seedCurated(t, db)
	exec := NewExecutor(db.DB)

	// The trailing semicolon must not break the outer wrapping selection.
	if _, err := exec.Preview(context.Background(),
		"SELECT uf FROM curated_records WHERE organization_id={{tenant_id}};",
		Context{TenantID: 7}, 10,
	); err != nil {
		t.Fatalf("preview: %v", err)
	}
}

func TestExecutor_RejectsUnsafeText(t *testing.T) {
	db := setupTestDB(t)
	exec := NewExecutor(db.DB)

	_, err := exec.Run(context.Background(), "DROP TABLE curated_records", Context{TenantID: 7})
	if err == nil {
		t.Fatal("expected rejection")
	}
	ae, ok := err.(*apperror.AppError)
	if !ok || ae.Code() != apperror.UnsafeQuery {
		t.Errorf("expected UNSAFE_QUERY, got %v", err)
	}

	// Table must still exist.
	var n int
	if err := db.DB.QueryRow("SELECT COUNT(*) FROM curated_records").Scan(&n); err != nil {
		t.Fatalf("table gone: %v", err)
	}
}

func TestExecutor_StoreErrorIsQueryError(t *testing.T) {
	db := setupTestDB(t)
	exec := NewExecutor(db.DB)

	_, err := exec.Run(context.Background(),
		"SELECT no_such_column FROM curated_records WHERE organization_id={{tenant_id}}",
		Context{TenantID: 7},
	)
	if err == nil {
		t.Fatal("expected store error")
	}
	ae, ok := err.(*apperror.AppError)
	if !ok || ae.Code() != apperror.QueryError {
		t.Errorf("expected QUERY_ERROR, got %v", err)
	}
}
