// This file implements the field observation endpoints:
//
//	POST   /api/observations          (JSON, or multipart with a photo part)
//	GET    /api/observations?site_id=...
//	GET    /api/observations/{id}
//	GET    /api/observations/{id}/photo-url?thumb=true
//	PUT    /api/observations/{id}
//	DELETE /api/observations/{id}
package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/auth"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/service"
)

// maxPhotoUpload caps the multipart photo size. Thumbnails are generated
// asynchronously by the worker, the original is stored as-is.
const maxPhotoUpload = 10 << 20 // 10 MB

// ObservationHandler handles field observation endpoints.
type ObservationHandler struct {
	observations service.ObservationService
	logger       *slog.Logger
}

// NewObservationHandler creates a new ObservationHandler.
func NewObservationHandler(observations service.ObservationService, logger *slog.Logger) *ObservationHandler {
	return &ObservationHandler{observations: observations, logger: logger}
}

// =============================================================================
// Request / Response types
// =============================================================================

type observationResponse struct {
	ID          uuid.UUID  `json:"id"`
	SiteID      uuid.UUID  `json:"site_id"`
	WorkUnitID  *uuid.UUID `json:"work_unit_id,omitempty"`
	Description string     `json:"description"`
	HasPhoto    bool       `json:"has_photo"`
	HasThumb    bool       `json:"has_thumb"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newObservationResponse(o *domain.Observation) observationResponse {
	return observationResponse{
		ID:          o.ID,
		SiteID:      o.SiteID,
		WorkUnitID:  o.WorkUnitID,
		Description: o.Description,
		HasPhoto:    o.HasPhoto(),
		HasThumb:    o.ThumbKey != "",
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

type observationRequest struct {
	SiteID      string `json:"site_id,omitempty"`
	WorkUnitID  string `json:"work_unit_id,omitempty"`
	Description string `json:"description"`
}

// =============================================================================
// Handlers
// =============================================================================

// Create records an observation. Multipart requests may carry a "photo"
// part; JSON requests create a photo-less observation. The monthly
// observation quota applies either way.
func (h *ObservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.createWithPhoto(w, r, actor)
		return
	}

	var req observationRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params, err := h.buildParams(actor, req.SiteID, req.WorkUnitID, req.Description)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	obs, err := h.observations.Create(r.Context(), actor, params)
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, newObservationResponse(obs))
}

func (h *ObservationHandler) createWithPhoto(w http.ResponseWriter, r *http.Request, actor *domain.User) {
	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		ErrorResponse(w, r, h.logger,
			domain.Errorf(domain.ETOOLARGE, "handler.create_observation", "Photo upload exceeds the size limit"))
		return
	}

	params, err := h.buildParams(actor, r.FormValue("site_id"), r.FormValue("work_unit_id"), r.FormValue("description"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_observation", "A photo part is required for multipart uploads"))
		return
	}
	defer file.Close()

	obs, err := h.observations.CreateWithPhoto(r.Context(), actor, params, file, header.Filename)
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, newObservationResponse(obs))
}

func (h *ObservationHandler) buildParams(actor *domain.User, siteID, workUnitID, description string) (domain.CreateObservationParams, error) {
	sid, err := uuid.Parse(siteID)
	if err != nil {
		return domain.CreateObservationParams{}, domain.Invalid("handler.create_observation", "A valid site_id is required")
	}
	wuID, err := optionalUUID(workUnitID)
	if err != nil {
		return domain.CreateObservationParams{}, err
	}
	return domain.CreateObservationParams{
		TenantID:    actor.TenantID,
		SiteID:      sid,
		WorkUnitID:  wuID,
		Description: description,
		CreatedBy:   actor.ID,
	}, nil
}

// Get returns one observation.
func (h *ObservationHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	obs, err := h.observations.Get(r.Context(), actor, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newObservationResponse(obs))
}

// ListBySite returns the observations of a site (?site_id=...).
func (h *ObservationHandler) ListBySite(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	siteID, err := uuid.Parse(r.URL.Query().Get("site_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.list_observations", "A valid site_id query parameter is required"))
		return
	}

	observations, err := h.observations.ListBySite(r.Context(), actor, siteID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]observationResponse, 0, len(observations))
	for _, o := range observations {
		out = append(out, newObservationResponse(o))
	}
	respondJSON(w, http.StatusOK, map[string]any{"observations": out})
}

// PhotoURL returns a short-lived URL for the observation photo, or the
// thumbnail with ?thumb=true.
func (h *ObservationHandler) PhotoURL(w http.ResponseWriter, r *http.Request) {
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

	thumb := r.URL.Query().Get("thumb") == "true"
	url, err := h.observations.PhotoURL(r.Context(), actor, id, thumb)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Update edits an observation's description or work unit.
func (h *ObservationHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req observationRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	wuID, err := optionalUUID(req.WorkUnitID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err = h.observations.Update(r.Context(), actor, domain.UpdateObservationParams{
		ID:          id,
		TenantID:    actor.TenantID,
		Description: req.Description,
		WorkUnitID:  wuID,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Delete removes an observation and its stored photo.
func (h *ObservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.observations.Delete(r.Context(), actor, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
