// This file implements the DUERP export endpoints:
//
//	POST /api/exports
//	GET  /api/exports
//	GET  /api/exports/{id}
//	GET  /api/exports/{id}/download
//
// Exports are generated asynchronously by the worker; POST returns a
// pending record and the client polls or waits for the notification email.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/auth"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/service"
)

// ExportHandler handles DUERP export endpoints.
type ExportHandler struct {
	exports service.ExportService
	logger  *slog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exports service.ExportService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{exports: exports, logger: logger}
}

type exportResponse struct {
	ID          uuid.UUID           `json:"id"`
	CompanyID   uuid.UUID           `json:"company_id"`
	Format      domain.ExportFormat `json:"format"`
	Status      domain.ExportStatus `json:"status"`
	ErrorDetail string              `json:"error_detail,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

func newExportResponse(e *domain.Export) exportResponse {
	return exportResponse{
		ID:          e.ID,
		CompanyID:   e.CompanyID,
		Format:      e.Format,
		Status:      e.Status,
		ErrorDetail: e.ErrorDetail,
		CreatedAt:   e.CreatedAt,
		CompletedAt: e.CompletedAt,
	}
}

// Create requests a DUERP export. The format must be granted by the
// tenant's plan and the yearly export quota applies.
func (h *ExportHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		CompanyID string `json:"company_id"`
		Format    string `json:"format"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_export", "A valid company_id is required"))
		return
	}

	export, err := h.exports.Create(r.Context(), actor, domain.CreateExportParams{
		TenantID:    actor.TenantID,
		CompanyID:   companyID,
		Format:      domain.ExportFormat(req.Format),
		RequestedBy: actor.ID,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusAccepted, newExportResponse(export))
}

// Get returns one export record with its status.
func (h *ExportHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	export, err := h.exports.Get(r.Context(), actor, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newExportResponse(export))
}

// List returns the tenant's export history.
func (h *ExportHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	exports, err := h.exports.List(r.Context(), actor)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]exportResponse, 0, len(exports))
	for _, e := range exports {
		out = append(out, newExportResponse(e))
	}
	respondJSON(w, http.StatusOK, map[string]any{"exports": out})
}

// Download returns a short-lived URL for a completed export's file.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	url, err := h.exports.DownloadURL(r.Context(), actor, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
