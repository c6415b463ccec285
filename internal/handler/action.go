// This file implements the action plan endpoints:
//
//	POST   /api/actions
//	GET    /api/actions?evaluation_id=...
//	GET    /api/actions/counts?company_id=...
//	GET    /api/actions/{id}
//	PUT    /api/actions/{id}
//	DELETE /api/actions/{id}
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

// ActionHandler handles prevention action plan endpoints.
type ActionHandler struct {
	actions service.ActionService
	logger  *slog.Logger
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(actions service.ActionService, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{actions: actions, logger: logger}
}

// =============================================================================
// Request / Response types
// =============================================================================

type actionResponse struct {
	ID           uuid.UUID           `json:"id"`
	EvaluationID uuid.UUID           `json:"evaluation_id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Status       domain.ActionStatus `json:"status"`
	AssigneeID   *uuid.UUID          `json:"assignee_id,omitempty"`
	DueDate      *time.Time          `json:"due_date,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func newActionResponse(a *domain.ActionPlan) actionResponse {
	return actionResponse{
		ID:           a.ID,
		EvaluationID: a.EvaluationID,
		Title:        a.Title,
		Description:  a.Description,
		Status:       a.Status,
		AssigneeID:   a.AssigneeID,
		DueDate:      a.DueDate,
		CompletedAt:  a.CompletedAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

type actionRequest struct {
	EvaluationID string     `json:"evaluation_id,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status,omitempty"`
	AssigneeID   string     `json:"assignee_id,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

// =============================================================================
// Handlers
// =============================================================================

// Create adds an action plan to an evaluation, subject to the monthly
// action plan quota.
func (h *ActionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	evaluationID, err := uuid.Parse(req.EvaluationID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_action", "A valid evaluation_id is required"))
		return
	}

	assigneeID, err := optionalUUID(req.AssigneeID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	action, err := h.actions.Create(r.Context(), actor, domain.CreateActionParams{
		TenantID:     actor.TenantID,
		EvaluationID: evaluationID,
		Title:        req.Title,
		Description:  req.Description,
		AssigneeID:   assigneeID,
		DueDate:      req.DueDate,
		CreatedBy:    actor.ID,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, newActionResponse(action))
}

// Get returns one action plan.
func (h *ActionHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	action, err := h.actions.Get(r.Context(), actor, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newActionResponse(action))
}

// ListByEvaluation returns the action plans attached to an evaluation
// (?evaluation_id=...).
func (h *ActionHandler) ListByEvaluation(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	evaluationID, err := uuid.Parse(r.URL.Query().Get("evaluation_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.list_actions", "A valid evaluation_id query parameter is required"))
		return
	}

	actions, err := h.actions.ListByEvaluation(r.Context(), actor, evaluationID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]actionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, newActionResponse(a))
	}
	respondJSON(w, http.StatusOK, map[string]any{"actions": out})
}

// Counts returns the status distribution of a company's action plans for
// the dashboard and the PAPRIPACT rollup.
func (h *ActionHandler) Counts(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	companyID, err := uuid.Parse(r.URL.Query().Get("company_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.action_counts", "A valid company_id query parameter is required"))
		return
	}

	counts, err := h.actions.Counts(r.Context(), actor, companyID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{
		"total":       counts.Total,
		"todo":        counts.Todo,
		"in_progress": counts.InProgress,
		"done":        counts.Done,
		"overdue":     counts.Overdue,
	})
}

// Update edits an action plan. Moving to "done" stamps completed_at.
func (h *ActionHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	assigneeID, err := optionalUUID(req.AssigneeID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err = h.actions.Update(r.Context(), actor, domain.UpdateActionParams{
		ID:          id,
		TenantID:    actor.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.ActionStatus(req.Status),
		AssigneeID:  assigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Delete removes an action plan.
func (h *ActionHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.actions.Delete(r.Context(), actor, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
