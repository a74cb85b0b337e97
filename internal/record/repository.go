package record

import (
	"context"
	"time"
)

// CuratedWriter persists a batch of curated records in one commit. The
// materializer calls it once per flush; a failed flush aborts the ingestion
// while earlier flushes stay committed.
type CuratedWriter interface {
	SaveCurated(ctx context.Context, recs []CuratedRecord) (int64, error)
}

// ColumnarWriter is the bulk strategy for the background path: rows arrive
// as column-ordered value slices and are loaded in one columnar operation
// (COPY on Postgres) instead of row-by-row inserts.
type ColumnarWriter interface {
	CopyCurated(ctx context.Context, columns []string, rows [][]any) (int64, error)
}

// StagingWriter persists raw rows verbatim.
type StagingWriter interface {
	SaveStaging(ctx context.Context, recs []StagingRecord) (int64, error)
}

// CuratedRepository adds the tenant-scoped read/clear operations owned by
// collaborators (bulk clear is the only way curated data is ever removed).
type CuratedRepository interface {
	CuratedWriter
	CountByTenant(ctx context.Context, organizationID int64) (int64, error)
	ClearTenant(ctx context.Context, organizationID int64) (int64, error)
}

// StagingRepository mirrors CuratedRepository for the audit store.
type StagingRepository interface {
	StagingWriter
	CountByTenant(ctx context.Context, organizationID int64) (int64, error)
	ClearTenant(ctx context.Context, organizationID int64) (int64, error)
}

// Columns lists the curated table's business columns in insert order, shared
// by the row writer and the columnar writer.
var Columns = []string{
	"organization_id",
	"credor_code",
	"uf",
	"processo",
	"devedor",
	"cpf_cnpj",
	"faixa_vencimento",
	"dt_vencimento",
	"vl_titulo",
	"situacao_processo",
	"vl_total_repasse",
	"vl_saldo",
	"dt_ultimo_credito",
	"portador",
	"motivo_devolucao",
	"vl_honorario_devedor",
	"vl_tx_contrato",
	"comercial",
	"cobrador",
	"dt_encerrado",
	"dias_vencidos_cadastro",
	"dt_cadastro",
}

// Values flattens a record into the column order of Columns. Timestamps stay
// typed so the columnar writer can encode them natively; the sqlite writer
// formats them itself.
func (c CuratedRecord) Values() []any {
	return []any{
		c.OrganizationID,
		ptr(c.CredorCode),
		ptr(c.UF),
		ptr(c.Processo),
		ptr(c.Devedor),
		ptr(c.CPFCNPJ),
		ptr(c.FaixaVencimento),
		timePtr(c.DtVencimento),
		floatPtr(c.VlTitulo),
		ptr(c.SituacaoProcesso),
		floatPtr(c.VlTotalRepasse),
		floatPtr(c.VlSaldo),
		timePtr(c.DtUltimoCredito),
		ptr(c.Portador),
		ptr(c.MotivoDevolucao),
		floatPtr(c.VlHonorarioDevedor),
		floatPtr(c.VlTxContrato),
		ptr(c.Comercial),
		ptr(c.Cobrador),
		timePtr(c.DtEncerrado),
		intPtr(c.DiasVencidosCadastro),
		timePtr(c.DtCadastro),
	}
}

func ptr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func floatPtr(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func intPtr(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
