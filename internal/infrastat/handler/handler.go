// Package handler wires the declaration pipeline to HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"infrastat/internal/infrastat/models"
	"infrastat/internal/infrastat/service"
	id "infrastat/pkg/domain"
	dErrors "infrastat/pkg/domain-errors"
	"infrastat/pkg/platform/httputil"
	"infrastat/pkg/requestcontext"
)

// Service defines the pipeline operations the handler exposes.
type Service interface {
	IngestAndValidate(ctx context.Context, params service.IngestParams) (*service.IngestResult, error)
	Submit(ctx context.Context, tenantID id.TenantID, batchID id.BatchID, params service.SubmitParams) (*service.SubmitResult, error)
	Archive(ctx context.Context, tenantID id.TenantID, batchID id.BatchID) (*models.DeclarationBatch, error)
	GetBatch(ctx context.Context, tenantID id.TenantID, batchID id.BatchID) (*service.BatchDetail, error)
	ListBatches(ctx context.Context, tenantID id.TenantID) ([]models.DeclarationBatch, error)
}

// Handler wires declaration endpoints to the pipeline service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a declaration handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts declaration endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/infrastat/batches", func(r chi.Router) {
		r.Post("/ingest", h.HandleIngest)
		r.Get("/", h.HandleList)
		r.Get("/{batchID}", h.HandleGet)
		r.Post("/{batchID}/submit", h.HandleSubmit)
		r.Post("/{batchID}/archive", h.HandleArchive)
	})
}

func (h *Handler) tenant(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	tenantID := requestcontext.TenantID(r.Context())
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.TenantID{}, false
	}
	return tenantID, true
}

func (h *Handler) batchID(w http.ResponseWriter, r *http.Request) (id.BatchID, bool) {
	batchID, err := id.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.BatchID{}, false
	}
	return batchID, true
}

// HandleIngest handles POST /infrastat/batches/ingest requests.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[IngestRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.IngestAndValidate(ctx, service.IngestParams{
		TenantID:  tenantID,
		FlowType:  req.ParsedFlow(),
		RefPeriod: req.ParsedPeriod(),
		Metadata:  req.BatchMetadata(),
		Records:   req.Records,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "ingestion failed",
			"request_id", requestID,
			"tenant_id", tenantID.String(),
			"reference_period", req.RefPeriod,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch ingested",
		"request_id", requestID,
		"tenant_id", tenantID.String(),
		"batch_id", result.Batch.ID.String(),
		"status", result.Batch.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromIngestResult(result))
}

// HandleList handles GET /infrastat/batches requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	batches, err := h.service.ListBatches(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := ListResponse{Batches: make([]BatchResponse, 0, len(batches))}
	for _, b := range batches {
		resp.Batches = append(resp.Batches, fromBatch(b))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /infrastat/batches/{batchID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	batchID, ok := h.batchID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.GetBatch(r.Context(), tenantID, batchID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBatchDetail(detail))
}

// HandleSubmit handles POST /infrastat/batches/{batchID}/submit requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	batchID, ok := h.batchID(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	if r.ContentLength > 0 {
		req, ok = httputil.DecodeJSON[SubmitRequest](w, r, h.logger)
		if !ok {
			return
		}
	}

	result, err := h.service.Submit(ctx, tenantID, batchID, service.SubmitParams{
		DryRun:    req.DryRun,
		Reference: strings.TrimSpace(req.Reference),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "submission failed",
			"request_id", requestID,
			"tenant_id", tenantID.String(),
			"batch_id", batchID.String(),
			"dry_run", req.DryRun,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch submitted",
		"request_id", requestID,
		"tenant_id", tenantID.String(),
		"batch_id", batchID.String(),
		"dry_run", req.DryRun,
		"reference", result.Log.Reference,
	)
	httputil.WriteJSON(w, http.StatusOK, FromSubmitResult(result))
}

// HandleArchive handles POST /infrastat/batches/{batchID}/archive requests.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	batchID, ok := h.batchID(w, r)
	if !ok {
		return
	}

	batch, err := h.service.Archive(r.Context(), tenantID, batchID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromBatch(*batch))
}
