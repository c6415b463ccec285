// This file implements the risk evaluation endpoints:
//
//	POST   /api/evaluations
//	GET    /api/evaluations?work_unit_id=...&q=...&limit=...&offset=...
//	GET    /api/evaluations/{id}
//	PUT    /api/evaluations/{id}
//	POST   /api/evaluations/{id}/reassign
//	DELETE /api/evaluations/{id}
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

// EvaluationHandler handles risk evaluation endpoints.
type EvaluationHandler struct {
	evaluations service.EvaluationService
	logger      *slog.Logger
}

// NewEvaluationHandler creates a new EvaluationHandler.
func NewEvaluationHandler(evaluations service.EvaluationService, logger *slog.Logger) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations, logger: logger}
}

// =============================================================================
// Request / Response types
// =============================================================================

type evaluationResponse struct {
	ID          uuid.UUID               `json:"id"`
	WorkUnitID  uuid.UUID               `json:"work_unit_id"`
	Method      domain.EvaluationMethod `json:"method"`
	Hazard      string                  `json:"hazard"`
	Description string                  `json:"description,omitempty"`
	Severity    int                     `json:"severity"`
	Probability int                     `json:"probability"`
	Score       int                     `json:"score"`
	Priority    domain.RiskPriority     `json:"priority"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func newEvaluationResponse(e *domain.RiskEvaluation) evaluationResponse {
	return evaluationResponse{
		ID:          e.ID,
		WorkUnitID:  e.WorkUnitID,
		Method:      e.Method,
		Hazard:      e.Hazard,
		Description: e.Description,
		Severity:    e.Severity,
		Probability: e.Probability,
		Score:       e.Score,
		Priority:    e.Priority,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

type createEvaluationRequest struct {
	WorkUnitID  string `json:"work_unit_id"`
	Method      string `json:"method"`
	Hazard      string `json:"hazard"`
	Description string `json:"description,omitempty"`
	Severity    int    `json:"severity"`
	Probability int    `json:"probability"`
}

type updateEvaluationRequest struct {
	Hazard      string `json:"hazard"`
	Description string `json:"description,omitempty"`
	Severity    int    `json:"severity"`
	Probability int    `json:"probability"`
}

// =============================================================================
// Handlers
// =============================================================================

// Create scores and stores a new evaluation. The method must be available in
// the tenant's plan and the monthly risk quota applies.
func (h *EvaluationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req createEvaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	workUnitID, err := uuid.Parse(req.WorkUnitID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_evaluation", "A valid work_unit_id is required"))
		return
	}

	eval, err := h.evaluations.Create(r.Context(), actor, domain.CreateEvaluationParams{
		TenantID:    actor.TenantID,
		WorkUnitID:  workUnitID,
		Method:      domain.EvaluationMethod(req.Method),
		Hazard:      req.Hazard,
		Description: req.Description,
		Severity:    req.Severity,
		Probability: req.Probability,
		CreatedBy:   actor.ID,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, newEvaluationResponse(eval))
}

// Get returns one evaluation.
func (h *EvaluationHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	eval, err := h.evaluations.Get(r.Context(), actor, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newEvaluationResponse(eval))
}

// List returns a page of evaluations, optionally filtered by work unit and
// an accent-insensitive search term.
func (h *EvaluationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	q := r.URL.Query()
	params := domain.ListEvaluationsParams{
		TenantID: actor.TenantID,
		Search:   q.Get("q"),
		Limit:    int32(queryInt(q.Get("limit"), 50)),
		Offset:   int32(queryInt(q.Get("offset"), 0)),
	}

	workUnitID, err := optionalUUID(q.Get("work_unit_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	params.WorkUnitID = workUnitID

	result, err := h.evaluations.List(r.Context(), actor, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]evaluationResponse, 0, len(result.Evaluations))
	for i := range result.Evaluations {
		out = append(out, newEvaluationResponse(&result.Evaluations[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"evaluations": out,
		"total":       result.Total,
		"limit":       result.Limit,
		"offset":      result.Offset,
	})
}

// Update rescales an evaluation. The scoring method is fixed at creation.
func (h *EvaluationHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req updateEvaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err = h.evaluations.Update(r.Context(), actor, domain.UpdateEvaluationParams{
		ID:          id,
		TenantID:    actor.TenantID,
		Hazard:      req.Hazard,
		Description: req.Description,
		Severity:    req.Severity,
		Probability: req.Probability,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Reassign moves an evaluation to another work unit. Site managers need a
// matching site assignment for both units.
func (h *EvaluationHandler) Reassign(w http.ResponseWriter, r *http.Request) {
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
		WorkUnitID string `json:"work_unit_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	workUnitID, err := uuid.Parse(req.WorkUnitID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.reassign_evaluation", "A valid work_unit_id is required"))
		return
	}

	if err := h.evaluations.Reassign(r.Context(), actor, id, workUnitID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Delete removes an evaluation and its action plans.
func (h *EvaluationHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.evaluations.Delete(r.Context(), actor, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// queryInt parses a positive integer query parameter with a fallback.
func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
