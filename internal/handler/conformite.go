// This file implements the conformity endpoints (PAPRIPACT and worker
// participation log):
//
//	POST /api/papripacts
//	GET  /api/papripacts?company_id=...          (list, or one with &year=...)
//	PUT  /api/papripacts/{id}/summary
//	POST /api/papripacts/{id}/publish
//	GET  /api/papripacts/required?company_id=...
//	POST /api/participation
//	GET  /api/participation?company_id=...
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/auth"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/service"
)

// ConformiteHandler handles PAPRIPACT and participation endpoints.
type ConformiteHandler struct {
	conformite service.ConformiteService
	logger     *slog.Logger
}

// NewConformiteHandler creates a new ConformiteHandler.
func NewConformiteHandler(conformite service.ConformiteService, logger *slog.Logger) *ConformiteHandler {
	return &ConformiteHandler{conformite: conformite, logger: logger}
}

// =============================================================================
// Response types
// =============================================================================

type papripactResponse struct {
	ID          uuid.UUID              `json:"id"`
	CompanyID   uuid.UUID              `json:"company_id"`
	Year        int                    `json:"year"`
	Status      domain.PapripactStatus `json:"status"`
	Summary     string                 `json:"summary,omitempty"`
	PublishedAt *time.Time             `json:"published_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func newPapripactResponse(p *domain.Papripact) papripactResponse {
	return papripactResponse{
		ID:          p.ID,
		CompanyID:   p.CompanyID,
		Year:        p.Year,
		Status:      p.Status,
		Summary:     p.Summary,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type participationResponse struct {
	ID          uuid.UUID                `json:"id"`
	CompanyID   uuid.UUID                `json:"company_id"`
	Kind        domain.ParticipationKind `json:"kind"`
	Description string                   `json:"description"`
	OccurredOn  time.Time                `json:"occurred_on"`
	CreatedAt   time.Time                `json:"created_at"`
}

func newParticipationResponse(e *domain.ParticipationEntry) participationResponse {
	return participationResponse{
		ID:          e.ID,
		CompanyID:   e.CompanyID,
		Kind:        e.Kind,
		Description: e.Description,
		OccurredOn:  e.OccurredOn,
		CreatedAt:   e.CreatedAt,
	}
}

// =============================================================================
// PAPRIPACT
// =============================================================================

// CreatePapripact opens a draft annual prevention plan for a company.
func (h *ConformiteHandler) CreatePapripact(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		CompanyID string `json:"company_id"`
		Year      int    `json:"year"`
		Summary   string `json:"summary,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_papripact", "A valid company_id is required"))
		return
	}

	plan, err := h.conformite.CreatePapripact(r.Context(), actor, domain.CreatePapripactParams{
		TenantID:  actor.TenantID,
		CompanyID: companyID,
		Year:      req.Year,
		Summary:   req.Summary,
		CreatedBy: actor.ID,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, newPapripactResponse(plan))
}

// ListPapripacts lists a company's prevention plans. With &year=... it
// returns the single plan for that year.
func (h *ConformiteHandler) ListPapripacts(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	q := r.URL.Query()
	companyID, err := uuid.Parse(q.Get("company_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.list_papripacts", "A valid company_id query parameter is required"))
		return
	}

	if rawYear := q.Get("year"); rawYear != "" {
		year, err := strconv.Atoi(rawYear)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("handler.list_papripacts", "Invalid year"))
			return
		}
		plan, err := h.conformite.GetPapripact(r.Context(), actor, companyID, year)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		respondJSON(w, http.StatusOK, newPapripactResponse(plan))
		return
	}

	plans, err := h.conformite.ListPapripacts(r.Context(), actor, companyID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]papripactResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, newPapripactResponse(p))
	}
	respondJSON(w, http.StatusOK, map[string]any{"papripacts": out})
}

// UpdateSummary edits a draft plan's summary. Published plans are immutable.
func (h *ConformiteHandler) UpdateSummary(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Summary string `json:"summary"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.conformite.UpdatePapripactSummary(r.Context(), actor, id, req.Summary); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Publish freezes a draft plan.
func (h *ConformiteHandler) Publish(w http.ResponseWriter, r *http.Request) {
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

	if err := h.conformite.PublishPapripact(r.Context(), actor, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Required reports whether the company's headcount obliges it to maintain a
// PAPRIPACT (50 staff and above).
func (h *ConformiteHandler) Required(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	companyID, err := uuid.Parse(r.URL.Query().Get("company_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.papripact_required", "A valid company_id query parameter is required"))
		return
	}

	required, err := h.conformite.PapripactRequired(r.Context(), actor, companyID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"required": required})
}

// =============================================================================
// Participation log
// =============================================================================

// AddParticipation appends a worker consultation entry (CSE meeting,
// interview, signature round).
func (h *ConformiteHandler) AddParticipation(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		CompanyID   string    `json:"company_id"`
		Kind        string    `json:"kind"`
		Description string    `json:"description"`
		OccurredOn  time.Time `json:"occurred_on"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.add_participation", "A valid company_id is required"))
		return
	}

	entry, err := h.conformite.AddParticipationEntry(r.Context(), actor, domain.CreateParticipationParams{
		TenantID:    actor.TenantID,
		CompanyID:   companyID,
		Kind:        domain.ParticipationKind(req.Kind),
		Description: req.Description,
		OccurredOn:  req.OccurredOn,
		RecordedBy:  actor.ID,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, newParticipationResponse(entry))
}

// ListParticipation returns a company's participation log.
func (h *ConformiteHandler) ListParticipation(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	companyID, err := uuid.Parse(r.URL.Query().Get("company_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.list_participation", "A valid company_id query parameter is required"))
		return
	}

	entries, err := h.conformite.ListParticipation(r.Context(), actor, companyID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]participationResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newParticipationResponse(e))
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": out})
}
