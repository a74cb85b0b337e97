package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/cobrancalabs/analytics-api/internal/canonical"
	"github.com/cobrancalabs/analytics-api/internal/job"
	"github.com/cobrancalabs/analytics-api/internal/record"
)

// Process implements job.Processor. Called by the worker pool with a claimed
// (running) upload run: the spooled file is streamed in batches, each batch
// normalized by the same stage as the interactive path, and loaded through
// the columnar writer. The temporary file is removed whatever the outcome.
func (s *Service) Process(ctx context.Context, r *job.Run) error {
	if r.TargetType != job.TargetUpload {
		return s.fail(ctx, r, fmt.Errorf("unsupported target type %q", r.TargetType))
	}
	defer func() {
		if err := os.Remove(r.TargetRef); err != nil && !os.IsNotExist(err) {
			slog.Error("remove spooled upload", "run", r.ID, "path", r.TargetRef, "error", err)
		}
	}()

	count, err := s.bulkMaterialize(ctx, r.TargetRef, r.OrganizationID)
	if err != nil {
		return s.fail(ctx, r, err)
	}

	logs := fmt.Sprintf("ingested %d records", count)
	if ferr := s.jobs.Finish(ctx, r.ID, job.StatusSuccess, logs); ferr != nil {
		slog.Error("finalize job run", "run", r.ID, "error", ferr)
	}
	slog.Info("bulk ingestion complete", "org", r.OrganizationID, "run", r.ID, "rows", count)
	return nil
}

// bulkMaterialize streams row batches from the spooled file on one goroutine
// and loads them on another, so parsing and persistence overlap. The columnar
// writer is preferred; deployments without one fall back to the row writer.
func (s *Service) bulkMaterialize(ctx context.Context, path string, organizationID int64) (int64, error) {
	batches := make(chan []canonical.RawRow, 1)

	g, ctx := errgroup.WithContext(ctx)

	var total int64
	g.Go(func() error {
		defer close(batches)
		n, err := StreamBatches(ctx, path, BulkBatchSize, func(rows []canonical.RawRow) error {
			// Hand off a copy: StreamBatches reuses its buffer.
			batch := make([]canonical.RawRow, len(rows))
			copy(batch, rows)
			select {
			case batches <- batch:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		total = n
		return err
	})

	g.Go(func() error {
		for batch := range batches {
			if err := s.loadBatch(ctx, batch, organizationID); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

func (s *Service) loadBatch(ctx context.Context, batch []canonical.RawRow, organizationID int64) error {
	if s.bulk == nil {
		_, err := Materialize(ctx, slices.Values(batch), organizationID, "", s.curated)
		return err
	}

	rows := make([][]any, len(batch))
	for i, raw := range batch {
		rows[i] = BuildRecord(raw, organizationID, "").Values()
	}
	if _, err := s.bulk.CopyCurated(ctx, record.Columns, rows); err != nil {
		return fmt.Errorf("bulk load batch: %w", err)
	}
	return nil
}
