package job

import "context"

type Repository interface {
	Create(ctx context.Context, r *Run) error
	// Finish moves a run to a terminal status and stamps FinishedAt. Runs
	// already terminal are left untouched.
	Finish(ctx context.Context, id int64, status Status, logs string) error
	Get(ctx context.Context, id int64) (*Run, error)
	ListByTenant(ctx context.Context, organizationID int64, limit int) ([]Run, error)
	// ClaimQueued atomically picks the oldest queued run and marks it running.
	// Returns nil when no queued run exists.
	ClaimQueued(ctx context.Context) (*Run, error)
	// RecoverStale re-queues runs left running by a previous process.
	RecoverStale(ctx context.Context) (int64, error)
}
