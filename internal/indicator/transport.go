package indicator

import (
	"github.com/cobrancalabs/analytics-api/internal/apperror"
	"github.com/cobrancalabs/analytics-api/internal/query"
)

type SaveRequest struct {
	OrganizationID int64
	Key            string `json:"key"`
	Name           string `json:"name"`
	Dataset        string `json:"dataset,omitempty"`
	FormulaSQL     string `json:"formulaSql"`
	Fmt            string `json:"fmt,omitempty"`
	Category       string `json:"category,omitempty"`
}

func (r SaveRequest) Validate() *apperror.AppError {
	if r.OrganizationID <= 0 {
		return apperror.New(apperror.BadRequest, "missing tenant id")
	}
	if r.Key == "" {
		return apperror.New(apperror.BadRequest, "key is required")
	}
	if r.Name == "" {
		return apperror.New(apperror.BadRequest, "name is required")
	}
	if !query.IsReadOnlySelect(r.FormulaSQL) {
		return apperror.New(apperror.UnsafeQuery, "only SELECT statements are allowed")
	}
	return nil
}

// RunRequest carries the per-invocation filter values for one execution.
type RunRequest struct {
	OrganizationID   int64
	IndicatorID      int64
	From             *string `json:"from,omitempty"`
	To               *string `json:"to,omitempty"`
	UF               *string `json:"uf,omitempty"`
	SituacaoProcesso *string `json:"situacaoProcesso,omitempty"`
	CredorCode       *string `json:"credorCode,omitempty"`
	DateField        string  `json:"dateField,omitempty"`
}

func (r RunRequest) Validate() *apperror.AppError {
	if r.OrganizationID <= 0 {
		return apperror.New(apperror.BadRequest, "missing tenant id")
	}
	if r.IndicatorID <= 0 {
		return apperror.New(apperror.BadRequest, "invalid indicator id")
	}
	return nil
}

// queryContext translates the request into the engine's execution context.
// The tenant id always comes from the caller, never from the request body.
func (r RunRequest) queryContext() query.Context {
	filters := map[string]any{}
	if r.UF != nil {
		filters["uf"] = *r.UF
	}
	if r.SituacaoProcesso != nil {
		filters["situacao_processo"] = *r.SituacaoProcesso
	}
	if r.CredorCode != nil {
		filters["credor_code"] = *r.CredorCode
	}
	return query.Context{
		TenantID:  r.OrganizationID,
		From:      r.From,
		To:        r.To,
		DateField: r.DateField,
		Filters:   filters,
	}
}

type PreviewRequest struct {
	OrganizationID int64
	FormulaSQL     string `json:"formulaSql"`
}

func (r PreviewRequest) Validate() *apperror.AppError {
	if r.OrganizationID <= 0 {
		return apperror.New(apperror.BadRequest, "missing tenant id")
	}
	if !query.IsReadOnlySelect(r.FormulaSQL) {
		return apperror.New(apperror.UnsafeQuery, "only SELECT statements are allowed")
	}
	return nil
}
