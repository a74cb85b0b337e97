package indicator

import "context"

type Repository interface {
	// Upsert creates or replaces the indicator identified by (tenant, key).
	Upsert(ctx context.Context, ind *Indicator) error
	Get(ctx context.Context, organizationID, id int64) (*Indicator, error)
	List(ctx context.Context, organizationID int64) ([]Indicator, error)
	Delete(ctx context.Context, organizationID, id int64) error
}
