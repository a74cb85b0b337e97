package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/cobrancalabs/analytics-api/internal/apperror"
	"github.com/cobrancalabs/analytics-api/internal/canonical"
	"github.com/cobrancalabs/analytics-api/internal/job"
	"github.com/cobrancalabs/analytics-api/internal/record"
)

// Service owns the ingestion surface: synchronous staging+materialization of
// loader-produced rows, and the deferred bulk path for large files. Every
// attempt, interactive or deferred, is recorded as a job run.
type Service struct {
	curated   record.CuratedRepository
	staging   record.StagingRepository
	bulk      record.ColumnarWriter // optional; nil falls back to the row writer
	jobs      job.Repository
	uploadDir string
	notify    func() // optional: wake worker pool
}

func NewService(curated record.CuratedRepository, staging record.StagingRepository, jobs job.Repository, uploadDir string) *Service {
	return &Service{
		curated:   curated,
		staging:   staging,
		jobs:      jobs,
		uploadDir: uploadDir,
	}
}

// SetBulkWriter installs the columnar strategy used by the background path.
func (s *Service) SetBulkWriter(w record.ColumnarWriter) { s.bulk = w }

// SetNotify sets a callback invoked when a new queued run is created.
func (s *Service) SetNotify(fn func()) { s.notify = fn }

type IngestRequest struct {
	OrganizationID int64
	TargetType     job.TargetType
	TargetID       int64
	CredorCode     string
	Rows           []canonical.RawRow
}

func (r IngestRequest) Validate() *apperror.AppError {
	if r.OrganizationID <= 0 {
		return apperror.New(apperror.BadRequest, "missing tenant id")
	}
	return nil
}

// IngestRows stages and materializes rows within the calling request,
// wrapped in a running job run that is finalized exactly once whatever the
// outcome. Rows committed by earlier flushes stay committed when a later
// flush fails.
func (s *Service) IngestRows(ctx context.Context, req IngestRequest) (*job.Run, int64, error) {
	if err := req.Validate(); err != nil {
		return nil, 0, err
	}

	run := &job.Run{
		OrganizationID: req.OrganizationID,
		TargetType:     req.TargetType,
		TargetID:       req.TargetID,
		Status:         job.StatusRunning,
	}
	if err := s.jobs.Create(ctx, run); err != nil {
		return nil, 0, fmt.Errorf("create job run: %w", err)
	}

	if _, err := Stage(ctx, req.Rows, req.OrganizationID, s.staging); err != nil {
		return run, 0, s.fail(ctx, run, err)
	}

	count, err := Materialize(ctx, slices.Values(req.Rows), req.OrganizationID, req.CredorCode, s.curated)
	if err != nil {
		return run, count, s.fail(ctx, run, err)
	}

	logs := fmt.Sprintf("ingested %d records", count)
	if ferr := s.jobs.Finish(ctx, run.ID, job.StatusSuccess, logs); ferr != nil {
		slog.Error("finalize job run", "run", run.ID, "error", ferr)
	}
	run.Status = job.StatusSuccess
	run.Logs = logs
	slog.Info("ingestion complete", "org", req.OrganizationID, "run", run.ID, "rows", count)
	return run, count, nil
}

// Stage persists raw rows verbatim without materializing, for callers that
// replay curated data later.
func (s *Service) Stage(ctx context.Context, rows []canonical.RawRow, organizationID int64) (int64, error) {
	if organizationID <= 0 {
		return 0, apperror.New(apperror.BadRequest, "missing tenant id")
	}
	return Stage(ctx, rows, organizationID, s.staging)
}

// Materialize normalizes and persists rows without staging them.
func (s *Service) Materialize(ctx context.Context, rows []canonical.RawRow, organizationID int64, credorCode string) (int64, error) {
	if organizationID <= 0 {
		return 0, apperror.New(apperror.BadRequest, "missing tenant id")
	}
	return Materialize(ctx, slices.Values(rows), organizationID, credorCode, s.curated)
}

// EnqueueFile spools a large source to temporary storage and records a
// queued run for the worker pool; materialization happens on a background
// worker decoupled from this request.
func (s *Service) EnqueueFile(ctx context.Context, organizationID int64, src io.Reader) (*job.Run, error) {
	if organizationID <= 0 {
		return nil, apperror.New(apperror.BadRequest, "missing tenant id")
	}

	tmp, err := os.CreateTemp(s.uploadDir, "upload-*.csv")
	if err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	run := &job.Run{
		OrganizationID: organizationID,
		TargetType:     job.TargetUpload,
		TargetRef:      tmp.Name(),
		Status:         job.StatusQueued,
	}
	if err := s.jobs.Create(ctx, run); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("create job run: %w", err)
	}
	if s.notify != nil {
		s.notify()
	}
	slog.Info("upload queued", "org", organizationID, "run", run.ID)
	return run, nil
}

// fail finalizes the run with the raw failure text and passes the error
// through. No retries: the committed prefix stays, the rest is abandoned.
func (s *Service) fail(ctx context.Context, run *job.Run, err error) error {
	if ferr := s.jobs.Finish(ctx, run.ID, job.StatusError, err.Error()); ferr != nil {
		slog.Error("finalize job run", "run", run.ID, "error", ferr)
	}
	run.Status = job.StatusError
	run.Logs = err.Error()
	return err
}
