package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cobrancalabs/analytics-api/internal/indicator"
	"github.com/cobrancalabs/analytics-api/internal/ingest"
	"github.com/cobrancalabs/analytics-api/internal/job"
	"github.com/cobrancalabs/analytics-api/internal/platform/sqlite"
	"github.com/cobrancalabs/analytics-api/internal/query"
	curatedrepo "github.com/cobrancalabs/analytics-api/internal/repository/curated"
	indicatorrepo "github.com/cobrancalabs/analytics-api/internal/repository/indicator"
	jobrepo "github.com/cobrancalabs/analytics-api/internal/repository/job"
	stagingrepo "github.com/cobrancalabs/analytics-api/internal/repository/staging"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	curated := curatedrepo.NewRepository(db.DB)
	staging := stagingrepo.NewRepository(db.DB)
	jobs := jobrepo.NewRepository(db.DB)
	inds := indicatorrepo.NewRepository(db.DB)

	ingestSvc := ingest.NewService(curated, staging, jobs, t.TempDir())
	jobSvc := job.NewService(jobs)
	indicatorSvc := indicator.NewService(inds, query.NewExecutor(db.DB))

	srv := httptest.NewServer(NewHandler(Deps{
		Ingest:    ingestSvc,
		Jobs:      jobSvc,
		Indicator: indicatorSvc,
		Curated:   curated,
		Staging:   staging,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, org string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if org != "" {
		req.Header.Set("X-Organization-ID", org)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, out.Bytes()
}

func TestHealth(t *testing.T) {
	srv := setupServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMissingTenantHeader(t *testing.T) {
	srv := setupServer(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/v1/ingest/rows"},
		{http.MethodGet, "/api/v1/jobs"},
		{http.MethodGet, "/api/v1/indicators"},
		{http.MethodDelete, "/api/v1/records"},
	}
	for _, p := range paths {
		resp, _ := doJSON(t, p.method, srv.URL+p.path, "", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s %s: expected 400 without tenant header, got %d", p.method, p.path, resp.StatusCode)
		}
	}
}

func TestIngestRowsEndpoint(t *testing.T) {
	srv := setupServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/ingest/rows", "7", map[string]any{
		"rows": []map[string]any{
			{"UF": "sp", "Vl. Título": "1.234,56"},
			{"UF": "rj", "Vl. Título": "50"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var parsed APIResponse[struct {
		Run  job.Run `json:"run"`
		Rows int64   `json:"rows"`
	}]
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.Data.Rows != 2 {
		t.Errorf("expected 2 rows, got %d", parsed.Data.Rows)
	}
	if parsed.Data.Run.Status != job.StatusSuccess {
		t.Errorf("expected success, got %s", parsed.Data.Run.Status)
	}

	// Stats reflect both stores.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/records/stats", "7", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: %d", resp.StatusCode)
	}
	var stats APIResponse[recordStats]
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Data.Curated != 2 || stats.Data.Staging != 2 {
		t.Errorf("unexpected stats %+v", stats.Data)
	}

	// The run shows up in the tenant's job list, and only there.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/jobs", "7", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("jobs: %d", resp.StatusCode)
	}
	var runs APIResponse[[]job.Run]
	if err := json.Unmarshal(body, &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs.Data) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs.Data))
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+fmt.Sprintf("/api/v1/jobs/%d", parsed.Data.Run.ID), "8", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign tenant should get 404, got %d", resp.StatusCode)
	}
}

func TestIndicatorLifecycle(t *testing.T) {
	srv := setupServer(t)

	// Seed some curated data through the API.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/ingest/rows", "7", map[string]any{
		"rows": []map[string]any{{"UF": "sp", "Vl. Título": "100"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatal("seed failed")
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/indicators", "7", map[string]any{
		"key":        "por_uf",
		"name":       "Por UF",
		"formulaSql": "SELECT uf, SUM(vl_titulo) AS total FROM curated_records WHERE organization_id={{tenant_id}} GROUP BY uf",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save: %d: %s", resp.StatusCode, body)
	}
	var saved APIResponse[indicator.Indicator]
	if err := json.Unmarshal(body, &saved); err != nil {
		t.Fatal(err)
	}

	resp, body = doJSON(t, http.MethodPost,
		srv.URL+fmt.Sprintf("/api/v1/indicators/%d/run", saved.Data.ID), "7", map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run: %d: %s", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodDelete,
		srv.URL+fmt.Sprintf("/api/v1/indicators/%d", saved.Data.ID), "7", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete,
		srv.URL+fmt.Sprintf("/api/v1/indicators/%d", saved.Data.ID), "7", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete should 404, got %d", resp.StatusCode)
	}
}

func TestIndicatorSave_Unsafe(t *testing.T) {
	srv := setupServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/indicators", "7", map[string]any{
		"key":        "bad",
		"name":       "Bad",
		"formulaSql": "DROP TABLE curated_records",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unsafe formula, got %d", resp.StatusCode)
	}
}

func TestIndicatorPreview_StoreError(t *testing.T) {
	srv := setupServer(t)

	// Passes the screen but fails at the store: 422, not 400.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/indicators/preview", "7", map[string]any{
		"formulaSql": "SELECT no_such_column FROM curated_records WHERE organization_id={{tenant_id}}",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
}

func TestBootstrapEndpoint(t *testing.T) {
	srv := setupServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/indicators/bootstrap", "7", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bootstrap: %d: %s", resp.StatusCode, body)
	}
	var created APIResponse[[]indicator.Indicator]
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	if len(created.Data) == 0 {
		t.Fatal("expected provisioned indicators")
	}

	// Another tenant's list stays empty.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/indicators", "8", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatal(resp.StatusCode)
	}
	var listed APIResponse[[]indicator.Indicator]
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Data) != 0 {
		t.Errorf("tenant 8 should have no indicators, got %d", len(listed.Data))
	}
}

func TestClearRecordsEndpoint(t *testing.T) {
	srv := setupServer(t)

	for _, org := range []string{"7", "8"} {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/ingest/rows", org, map[string]any{
			"rows": []map[string]any{{"UF": "sp"}},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatal("seed failed")
		}
	}

	resp, body := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/records", "7", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear: %d", resp.StatusCode)
	}
	var cleared APIResponse[recordStats]
	if err := json.Unmarshal(body, &cleared); err != nil {
		t.Fatal(err)
	}
	if cleared.Data.Curated != 1 || cleared.Data.Staging != 1 {
		t.Errorf("unexpected clear counts %+v", cleared.Data)
	}

	// Tenant 8 keeps its data.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/records/stats", "8", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatal(resp.StatusCode)
	}
	var stats APIResponse[recordStats]
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Data.Curated != 1 {
		t.Errorf("tenant 8 data lost: %+v", stats.Data)
	}
}
