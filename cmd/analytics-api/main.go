package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cobrancalabs/analytics-api/internal/config"
	"github.com/cobrancalabs/analytics-api/internal/indicator"
	"github.com/cobrancalabs/analytics-api/internal/ingest"
	"github.com/cobrancalabs/analytics-api/internal/job"
	"github.com/cobrancalabs/analytics-api/internal/platform/postgres"
	"github.com/cobrancalabs/analytics-api/internal/platform/sqlite"
	"github.com/cobrancalabs/analytics-api/internal/query"
	curatedrepo "github.com/cobrancalabs/analytics-api/internal/repository/curated"
	indicatorrepo "github.com/cobrancalabs/analytics-api/internal/repository/indicator"
	jobrepo "github.com/cobrancalabs/analytics-api/internal/repository/job"
	stagingrepo "github.com/cobrancalabs/analytics-api/internal/repository/staging"
	"github.com/cobrancalabs/analytics-api/internal/server"
)

func main() {
	cfg := config.Load()

	// Root context: cancelled on SIGINT/SIGTERM so in-flight ingestion
	// workers stop promptly during graceful shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Open database
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Repositories
	curatedRepo := curatedrepo.NewRepository(db.DB)
	stagingRepo := stagingrepo.NewRepository(db.DB)
	jobRepo := jobrepo.NewRepository(db.DB)
	indRepo := indicatorrepo.NewRepository(db.DB)

	// Services
	jobSvc := job.NewService(jobRepo)
	executor := query.NewExecutor(db.DB)
	indicatorSvc := indicator.NewService(indRepo, executor)
	ingestSvc := ingest.NewService(curatedRepo, stagingRepo, jobRepo, cfg.UploadDir)

	// Optional columnar bulk path: only deployments with PG_URL set load
	// background batches via COPY; everyone else uses the row writer.
	if cfg.PGURL != "" {
		pool, err := postgres.Open(rootCtx, cfg.PGURL)
		if err != nil {
			slog.Error("failed to open postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		ingestSvc.SetBulkWriter(curatedrepo.NewCopyWriter(pool))
	}

	// Worker pool: picks up queued runs in the background
	pool := job.NewWorkerPool(jobRepo, ingestSvc, cfg.Workers)
	ingestSvc.SetNotify(pool.Notify)
	poolDone := make(chan struct{})
	go func() {
		pool.Run(rootCtx)
		close(poolDone)
	}()

	// Re-queue interrupted runs so workers pick them up.
	if err := jobSvc.RecoverStaleRuns(rootCtx); err != nil {
		slog.Error("failed to recover stale runs", "error", err)
	}
	pool.Notify()

	// HTTP server — rootCtx is used as BaseContext so every request context
	// inherits from it and is cancelled on shutdown.
	srv := server.New(rootCtx, cfg.Port, server.Deps{
		Ingest:    ingestSvc,
		Jobs:      jobSvc,
		Indicator: indicatorSvc,
		Curated:   curatedRepo,
		Staging:   stagingRepo,
	})

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	<-done

	// Cancel root context first so in-flight work begins winding down
	// immediately.
	rootCancel()

	// Wait for worker pool to drain before shutting down HTTP.
	<-poolDone

	// Then drain connections with a deadline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
