package indicator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cobrancalabs/analytics-api/internal/query"
)

type Service struct {
	repo     Repository
	executor *query.Executor
}

func NewService(repo Repository, executor *query.Executor) *Service {
	return &Service{repo: repo, executor: executor}
}

// Save creates or replaces an indicator by (tenant, key). The formula is
// screened before anything touches the store.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*Indicator, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ind := &Indicator{
		OrganizationID: req.OrganizationID,
		Key:            req.Key,
		Name:           req.Name,
		Dataset:        req.Dataset,
		FormulaSQL:     req.FormulaSQL,
		Fmt:            req.Fmt,
		Category:       req.Category,
	}
	if err := s.repo.Upsert(ctx, ind); err != nil {
		return nil, fmt.Errorf("save indicator: %w", err)
	}
	return ind, nil
}

func (s *Service) List(ctx context.Context, organizationID int64) ([]Indicator, error) {
	return s.repo.List(ctx, organizationID)
}

func (s *Service) Delete(ctx context.Context, organizationID, id int64) error {
	return s.repo.Delete(ctx, organizationID, id)
}

// Preview runs candidate formula text with only the tenant binding, capped by
// the preview row limit.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) ([]map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	qc := query.Context{TenantID: req.OrganizationID}
	return s.executor.Preview(ctx, req.FormulaSQL, qc, query.PreviewLimit)
}

// PreviewDataset returns the tenant's most recent curated rows, capped by the
// dataset row limit, for the authoring UI's sample pane.
func (s *Service) PreviewDataset(ctx context.Context, organizationID int64) ([]map[string]any, error) {
	const text = "SELECT * FROM curated_records WHERE organization_id={{tenant_id}} ORDER BY id DESC"
	qc := query.Context{TenantID: organizationID}
	return s.executor.Preview(ctx, text, qc, query.DatasetLimit)
}

// Run executes a saved indicator with the supplied filters. The stored
// formula is re-screened: an indicator saved before a screen tightening must
// not slip through.
func (s *Service) Run(ctx context.Context, req RunRequest) ([]map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ind, err := s.repo.Get(ctx, req.OrganizationID, req.IndicatorID)
	if err != nil {
		return nil, err
	}

	return s.executor.Run(ctx, ind.FormulaSQL, req.queryContext())
}

// bootstrapTemplates is the standard indicator set provisioned for every
// tenant. Keys are stable so Bootstrap stays idempotent.
var bootstrapTemplates = []SaveRequest{
	{
		Key: "valor_mes_a_mes", Name: "Valor Mês a Mês", Fmt: "line", Category: "Cobrança",
		FormulaSQL: `SELECT strftime('%Y-%m', dt_cadastro) AS ym, SUM(vl_titulo) AS total
FROM curated_records
WHERE organization_id={{tenant_id}}
GROUP BY ym
ORDER BY ym`,
	},
	{
		Key: "mapa_por_uf", Name: "Mapa por UF", Fmt: "map_br", Category: "Cobrança",
		FormulaSQL: `SELECT uf, SUM(vl_titulo) AS total
FROM curated_records
WHERE organization_id={{tenant_id}}
GROUP BY uf
ORDER BY total DESC`,
	},
	{
		Key: "total_por_faixa_vencimento", Name: "Total por Faixa de Vencimento", Fmt: "bar", Category: "Cobrança",
		FormulaSQL: `SELECT faixa_vencimento, SUM(vl_titulo) AS total
FROM curated_records
WHERE organization_id={{tenant_id}}
GROUP BY faixa_vencimento
ORDER BY total DESC`,
	},
	{
		Key: "recuperado_por_faixa_vencimento", Name: "Recuperado por Faixa de Vencimento", Fmt: "bar", Category: "Cobrança",
		FormulaSQL: `SELECT faixa_vencimento, SUM(vl_total_repasse) AS total
FROM curated_records
WHERE organization_id={{tenant_id}}
GROUP BY faixa_vencimento
ORDER BY total DESC`,
	},
}

// Bootstrap provisions the standard indicator set for a tenant, upserting by
// key so repeated calls are idempotent.
func (s *Service) Bootstrap(ctx context.Context, organizationID int64) ([]Indicator, error) {
	created := make([]Indicator, 0, len(bootstrapTemplates))
	for _, tpl := range bootstrapTemplates {
		tpl.OrganizationID = organizationID
		ind, err := s.Save(ctx, tpl)
		if err != nil {
			return created, fmt.Errorf("bootstrap %s: %w", tpl.Key, err)
		}
		created = append(created, *ind)
	}
	slog.Info("bootstrapped indicators", "org", organizationID, "count", len(created))
	return created, nil
}
