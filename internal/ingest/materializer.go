package ingest

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/cobrancalabs/analytics-api/internal/canonical"
	"github.com/cobrancalabs/analytics-api/internal/coerce"
	"github.com/cobrancalabs/analytics-api/internal/record"
)

// BatchSize is the row-by-row flush threshold. Each full buffer is persisted
// and committed before ingestion continues; a failed flush aborts the rest of
// the call while earlier flushes stay committed.
const BatchSize = 2000

// BuildRecord maps one raw source row onto a curated record: header
// resolution first, then lenient type coercion. Unmatched or unparseable
// cells become nil, never an error.
func BuildRecord(raw canonical.RawRow, organizationID int64, credorCode string) record.CuratedRecord {
	rec := record.CuratedRecord{
		OrganizationID:       organizationID,
		UF:                   coerce.ToUF(canonical.Resolve(raw, canonical.FieldUF)),
		Processo:             coerce.ToText(canonical.Resolve(raw, canonical.FieldProcesso), record.MaxTextLen),
		Devedor:              coerce.ToText(canonical.Resolve(raw, canonical.FieldDevedor), record.MaxTextLen),
		CPFCNPJ:              coerce.ToText(canonical.Resolve(raw, canonical.FieldCPFCNPJ), record.MaxTextLen),
		FaixaVencimento:      coerce.ToText(canonical.Resolve(raw, canonical.FieldFaixaVencimento), record.MaxTextLen),
		DtVencimento:         coerce.ToTime(canonical.Resolve(raw, canonical.FieldDtVencimento)),
		VlTitulo:             coerce.ToFloat(canonical.Resolve(raw, canonical.FieldVlTitulo)),
		SituacaoProcesso:     coerce.ToText(canonical.Resolve(raw, canonical.FieldSituacaoProcesso), record.MaxTextLen),
		VlTotalRepasse:       coerce.ToFloat(canonical.Resolve(raw, canonical.FieldVlTotalRepasse)),
		VlSaldo:              coerce.ToFloat(canonical.Resolve(raw, canonical.FieldVlSaldo)),
		DtUltimoCredito:      coerce.ToTime(canonical.Resolve(raw, canonical.FieldDtUltimoCredito)),
		Portador:             coerce.ToText(canonical.Resolve(raw, canonical.FieldPortador), record.MaxTextLen),
		MotivoDevolucao:      coerce.ToText(canonical.Resolve(raw, canonical.FieldMotivoDevolucao), record.MaxReasonLen),
		VlHonorarioDevedor:   coerce.ToFloat(canonical.Resolve(raw, canonical.FieldVlHonorarioDevedor)),
		VlTxContrato:         coerce.ToFloat(canonical.Resolve(raw, canonical.FieldVlTxContrato)),
		Comercial:            coerce.ToText(canonical.Resolve(raw, canonical.FieldComercial), record.MaxTextLen),
		Cobrador:             coerce.ToText(canonical.Resolve(raw, canonical.FieldCobrador), record.MaxTextLen),
		DtEncerrado:          coerce.ToTime(canonical.Resolve(raw, canonical.FieldDtEncerrado)),
		DiasVencidosCadastro: coerce.ToInt(canonical.Resolve(raw, canonical.FieldDiasVencidosCadastro)),
		DtCadastro:           coerce.ToTime(canonical.Resolve(raw, canonical.FieldDtCadastro)),
		CreatedAt:            time.Now().UTC(),
	}

	if credorCode != "" {
		cc := credorCode
		rec.CredorCode = &cc
	} else {
		rec.CredorCode = coerce.ToText(canonical.Resolve(raw, canonical.FieldCredorCode), record.MaxTextLen)
	}
	return rec
}

// Materialize normalizes raw rows for one tenant and persists them in bounded
// batches through the writer, returning the total row count processed.
func Materialize(ctx context.Context, rows iter.Seq[canonical.RawRow], organizationID int64, credorCode string, w record.CuratedWriter) (int64, error) {
	batch := make([]record.CuratedRecord, 0, BatchSize)
	var count int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := w.SaveCurated(ctx, batch); err != nil {
			return fmt.Errorf("flush curated batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for raw := range rows {
		batch = append(batch, BuildRecord(raw, organizationID, credorCode))
		count++
		if len(batch) >= BatchSize {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	if err := flush(); err != nil {
		return count, err
	}
	return count, nil
}
