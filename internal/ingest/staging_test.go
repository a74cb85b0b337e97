package ingest

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/cobrancalabs/analytics-api/internal/canonical"
	"github.com/cobrancalabs/analytics-api/internal/record"
)

type mockStagingRepo struct {
	mu   sync.Mutex
	recs []record.StagingRecord
}

func (m *mockStagingRepo) SaveStaging(_ context.Context, recs []record.StagingRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, recs...)
	return int64(len(recs)), nil
}

func (m *mockStagingRepo) CountByTenant(_ context.Context, _ int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.recs)), nil
}

func (m *mockStagingRepo) ClearTenant(_ context.Context, _ int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.recs))
	m.recs = nil
	return n, nil
}

func TestStage_PreservesKeysVerbatim(t *testing.T) {
	repo := &mockStagingRepo{}
	rows := []canonical.RawRow{
		{"Cód. Cliente": "77", "Vl. Título": "1.234,56"},
	}

	n, err := Stage(context.Background(), rows, 7, repo)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1, got %d", n)
	}

	rec := repo.recs[0]
	if rec.OrganizationID != 7 {
		t.Errorf("org: got %d", rec.OrganizationID)
	}

	// Raw keys must survive unnormalized.
	var decoded map[string]any
	if err := json.Unmarshal([]byte(rec.RawJSON), &decoded); err != nil {
		t.Fatalf("stored payload is not valid JSON: %v", err)
	}
	if decoded["Cód. Cliente"] != "77" {
		t.Errorf("raw key lost: %v", decoded)
	}
	if rec.Checksum == "" || len(rec.Checksum) != 16 {
		t.Errorf("unexpected checksum %q", rec.Checksum)
	}
}

func TestStage_ChecksumDeterministic(t *testing.T) {
	row := canonical.RawRow{"uf": "SP", "valor": "10"}

	a := &mockStagingRepo{}
	b := &mockStagingRepo{}
	if _, err := Stage(context.Background(), []canonical.RawRow{row}, 1, a); err != nil {
		t.Fatal(err)
	}
	if _, err := Stage(context.Background(), []canonical.RawRow{row}, 1, b); err != nil {
		t.Fatal(err)
	}

	if a.recs[0].Checksum != b.recs[0].Checksum {
		t.Errorf("checksums differ for identical payloads: %s vs %s",
			a.recs[0].Checksum, b.recs[0].Checksum)
	}
}

func TestStage_ScrubsNonFiniteFloats(t *testing.T) {
	repo := &mockStagingRepo{}
	rows := []canonical.RawRow{
		{"vl_titulo": math.NaN(), "vl_saldo": math.Inf(1), "uf": "SP"},
	}

	if _, err := Stage(context.Background(), rows, 1, repo); err != nil {
		t.Fatalf("stage: %v", err)
	}

	payload := repo.recs[0].RawJSON
	if strings.Contains(payload, "NaN") || strings.Contains(payload, "Inf") {
		t.Errorf("non-finite value leaked into payload: %s", payload)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if decoded["vl_titulo"] != nil {
		t.Errorf("NaN should become null, got %v", decoded["vl_titulo"])
	}
}

func TestStage_Empty(t *testing.T) {
	repo := &mockStagingRepo{}
	n, err := Stage(context.Background(), nil, 1, repo)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || len(repo.recs) != 0 {
		t.Errorf("expected no writes, got n=%d recs=%d", n, len(repo.recs))
	}
}
