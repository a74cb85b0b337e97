package job

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cobrancalabs/analytics-api/internal/apperror"
	domain "github.com/cobrancalabs/analytics-api/internal/job"
)

const runColumns = `id, organization_id, target_type, target_id, target_ref,
	status, logs, started_at, finished_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, run *domain.Run) error {
	const query = `INSERT INTO job_runs (organization_id, target_type, target_id, target_ref, status)
		VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		run.OrganizationID, string(run.TargetType), run.TargetID, run.TargetRef,
		string(run.Status),
	)
	if err != nil {
		return fmt.Errorf("create job run: %w", err)
	}

	run.ID, _ = res.LastInsertId()
	run.StartedAt = time.Now().UTC()
	return nil
}

// Finish stamps the terminal status, logs and finish timestamp exactly once:
// runs already terminal are not touched again.
func (r *Repository) Finish(ctx context.Context, id int64, status domain.Status, logs string) error {
	if !status.Terminal() {
		return fmt.Errorf("finish job run: %q is not a terminal status", status)
	}

	const query = `UPDATE job_runs SET status = ?, logs = ?,
		finished_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ? AND status IN ('queued', 'running')`

	res, err := r.db.ExecContext(ctx, query, string(status), logs, id)
	if err != nil {
		return fmt.Errorf("finish job run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish job run: run %d not found or already finished", id)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM job_runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperror.New(apperror.NotFound, "job run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get job run: %w", err)
	}
	return run, nil
}

func (r *Repository) ListByTenant(ctx context.Context, organizationID int64, limit int) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM job_runs
		WHERE organization_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

func (r *Repository) ClaimQueued(ctx context.Context) (*domain.Run, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim queued: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM job_runs WHERE status = 'queued' ORDER BY id ASC LIMIT 1`,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim queued: select: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE job_runs SET status = 'running' WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("claim queued: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim queued: commit: %w", err)
	}

	return r.Get(ctx, id)
}

// RecoverStale re-queues deferred runs left running by a crashed process so
// workers pick them up again. Interrupted synchronous runs cannot be resumed
// and are finalized as errors instead. Terminal runs are never reopened.
func (r *Repository) RecoverStale(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE job_runs SET status = 'queued'
		WHERE status = 'running' AND COALESCE(target_ref, '') != ''`)
	if err != nil {
		return 0, fmt.Errorf("recover stale runs: %w", err)
	}
	requeued, _ := res.RowsAffected()

	_, err = r.db.ExecContext(ctx,
		`UPDATE job_runs SET status = 'error', logs = 'interrupted',
		finished_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE status = 'running' AND COALESCE(target_ref, '') = ''`)
	if err != nil {
		return requeued, fmt.Errorf("recover stale runs: %w", err)
	}

	return requeued, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*domain.Run, error) {
	run := &domain.Run{}
	var targetType, status, startedStr string
	var targetID sql.NullInt64
	var targetRef, logs, finishedStr sql.NullString

	err := s.Scan(
		&run.ID, &run.OrganizationID, &targetType, &targetID, &targetRef,
		&status, &logs, &startedStr, &finishedStr,
	)
	if err != nil {
		return nil, err
	}

	run.TargetType = domain.TargetType(targetType)
	run.Status = domain.Status(status)
	run.TargetID = targetID.Int64
	run.TargetRef = targetRef.String
	run.Logs = logs.String
	run.StartedAt, _ = time.Parse(time.RFC3339, startedStr)
	if finishedStr.Valid {
		t, _ := time.Parse(time.RFC3339, finishedStr.String)
		run.FinishedAt = &t
	}
	return run, nil
}
