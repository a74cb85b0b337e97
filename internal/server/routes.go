package server

import (
	"net/http"

	"github.com/cobrancalabs/analytics-api/internal/indicator"
	"github.com/cobrancalabs/analytics-api/internal/ingest"
	"github.com/cobrancalabs/analytics-api/internal/job"
	"github.com/cobrancalabs/analytics-api/internal/record"
)

// Deps holds everything the HTTP layer needs. Repositories appear directly
// only for the tenant record endpoints, which have no service of their own.
type Deps struct {
	Ingest    *ingest.Service
	Jobs      *job.Service
	Indicator *indicator.Service
	Curated   record.CuratedRepository
	Staging   record.StagingRepository
}

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(deps Deps) http.Handler {
	return newMux(deps)
}

func newMux(deps Deps) http.Handler {
	h := &handler{
		ingestSvc:    deps.Ingest,
		jobSvc:       deps.Jobs,
		indicatorSvc: deps.Indicator,
		curated:      deps.Curated,
		staging:      deps.Staging,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)

	mux.HandleFunc("POST /api/v1/ingest/rows", h.ingestRows)
	mux.HandleFunc("POST /api/v1/ingest/upload", h.ingestUpload)

	mux.HandleFunc("GET /api/v1/jobs", h.listRuns)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.getRun)

	mux.HandleFunc("GET /api/v1/indicators", h.listIndicators)
	mux.HandleFunc("POST /api/v1/indicators", h.saveIndicator)
	mux.HandleFunc("POST /api/v1/indicators/preview", h.previewIndicator)
	mux.HandleFunc("POST /api/v1/indicators/bootstrap", h.bootstrapIndicators)
	mux.HandleFunc("POST /api/v1/indicators/{id}/run", h.runIndicator)
	mux.HandleFunc("DELETE /api/v1/indicators/{id}", h.deleteIndicator)

	mux.HandleFunc("GET /api/v1/records/preview", h.previewRecords)
	mux.HandleFunc("GET /api/v1/records/stats", h.recordCounts)
	mux.HandleFunc("DELETE /api/v1/records", h.clearRecords)

	// Apply middleware stack: recovery -> requestID -> logging
	var handler http.Handler = mux
	handler = logging(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
