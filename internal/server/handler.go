package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cobrancalabs/analytics-api/internal/apperror"
	"github.com/cobrancalabs/analytics-api/internal/canonical"
	"github.com/cobrancalabs/analytics-api/internal/indicator"
	"github.com/cobrancalabs/analytics-api/internal/ingest"
	"github.com/cobrancalabs/analytics-api/internal/job"
	"github.com/cobrancalabs/analytics-api/internal/record"
)

// tenantHeader carries the tenant id resolved by the identity/session layer
// in front of this service. Every core operation is scoped by it.
const tenantHeader = "X-Organization-ID"

type handler struct {
	ingestSvc    *ingest.Service
	jobSvc       *job.Service
	indicatorSvc *indicator.Service
	curated      record.CuratedRepository
	staging      record.StagingRepository
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func tenantID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get(tenantHeader), 10, 64)
	return id, err == nil && id > 0
}

func writeServiceError(w http.ResponseWriter, err error) {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		writeError(w, ae.HTTPStatus(), ae.Message())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// --- ingestion ---

type ingestRowsBody struct {
	Rows       []canonical.RawRow `json:"rows"`
	CredorCode string             `json:"credorCode,omitempty"`
	SourceID   int64              `json:"sourceId,omitempty"`
}

type ingestRowsResponse struct {
	Run  *job.Run `json:"run"`
	Rows int64    `json:"rows"`
}

func (h *handler) ingestRows(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	var body ingestRowsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target := job.TargetUpload
	if body.SourceID != 0 {
		target = job.TargetDataSource
	}

	run, count, err := h.ingestSvc.IngestRows(r.Context(), ingest.IngestRequest{
		OrganizationID: org,
		TargetType:     target,
		TargetID:       body.SourceID,
		CredorCode:     body.CredorCode,
		Rows:           body.Rows,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestRowsResponse{Run: run, Rows: count})
}

// ingestUpload spools the request body and queues a background run; the
// response returns immediately with the queued run.
func (h *handler) ingestUpload(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	run, err := h.ingestSvc.EnqueueFile(r.Context(), org, r.Body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, run)
}

// --- job runs ---

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job run id")
		return
	}

	run, err := h.jobSvc.Get(r.Context(), job.GetRunRequest{ID: id, OrganizationID: org})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.jobSvc.List(r.Context(), job.ListRunsRequest{OrganizationID: org, Limit: limit})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}

// --- indicators ---

func (h *handler) listIndicators(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	inds, err := h.indicatorSvc.List(r.Context(), org)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inds)
}

func (h *handler) saveIndicator(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	var req indicator.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OrganizationID = org

	ind, err := h.indicatorSvc.Save(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ind)
}

func (h *handler) previewIndicator(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	var req indicator.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OrganizationID = org

	rows, err := h.indicatorSvc.Preview(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *handler) runIndicator(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid indicator id")
		return
	}

	var req indicator.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OrganizationID = org
	req.IndicatorID = id

	rows, err := h.indicatorSvc.Run(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *handler) deleteIndicator(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid indicator id")
		return
	}

	if err := h.indicatorSvc.Delete(r.Context(), org, id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) bootstrapIndicators(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	created, err := h.indicatorSvc.Bootstrap(r.Context(), org)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, created)
}

// --- tenant records ---

func (h *handler) previewRecords(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	rows, err := h.indicatorSvc.PreviewDataset(r.Context(), org)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

type recordStats struct {
	Curated int64 `json:"curated"`
	Staging int64 `json:"staging"`
}

func (h *handler) recordCounts(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	curated, err := h.curated.CountByTenant(r.Context(), org)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	staging, err := h.staging.CountByTenant(r.Context(), org)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordStats{Curated: curated, Staging: staging})
}

// clearRecords drops both stores for the tenant; this is the only way
// curated data is ever removed.
func (h *handler) clearRecords(w http.ResponseWriter, r *http.Request) {
	org, ok := tenantID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+tenantHeader+" header")
		return
	}

	curated, err := h.curated.ClearTenant(r.Context(), org)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	staging, err := h.staging.ClearTenant(r.Context(), org)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordStats{Curated: curated, Staging: staging})
}
