package record

import "time"

// Text bounds applied during normalization. Values longer than the bound are
// truncated, not rejected.
const (
	MaxUFLen     = 2
	MaxTextLen   = 120
	MaxReasonLen = 240
)

// CuratedRecord is a canonicalized, typed business record derived from one
// ingested raw row. OrganizationID is always set; every other field is either
// a valid typed value or nil, never a raw string passthrough.
type CuratedRecord struct {
	ID                   int64      `json:"id"`
	OrganizationID       int64      `json:"organizationId"`
	CredorCode           *string    `json:"credorCode"`
	UF                   *string    `json:"uf"`
	Processo             *string    `json:"processo"`
	Devedor              *string    `json:"devedor"`
	CPFCNPJ              *string    `json:"cpfCnpj"`
	FaixaVencimento      *string    `json:"faixaVencimento"`
	DtVencimento         *time.Time `json:"dtVencimento"`
	VlTitulo             *float64   `json:"vlTitulo"`
	SituacaoProcesso     *string    `json:"situacaoProcesso"`
	VlTotalRepasse       *float64   `json:"vlTotalRepasse"`
	VlSaldo              *float64   `json:"vlSaldo"`
	DtUltimoCredito      *time.Time `json:"dtUltimoCredito"`
	Portador             *string    `json:"portador"`
	MotivoDevolucao      *string    `json:"motivoDevolucao"`
	VlHonorarioDevedor   *float64   `json:"vlHonorarioDevedor"`
	VlTxContrato         *float64   `json:"vlTxContrato"`
	Comercial            *string    `json:"comercial"`
	Cobrador             *string    `json:"cobrador"`
	DtEncerrado          *time.Time `json:"dtEncerrado"`
	DiasVencidosCadastro *int64     `json:"diasVencidosCadastro"`
	DtCadastro           *time.Time `json:"dtCadastro"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// StagingRecord preserves one raw ingested row verbatim for audit/replay.
// Immutable once written.
type StagingRecord struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organizationId"`
	RawJSON        string    `json:"rawJson"`
	Checksum       string    `json:"checksum"`
	CreatedAt      time.Time `json:"createdAt"`
}
