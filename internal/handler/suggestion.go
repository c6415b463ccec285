// This file implements the AI suggestion endpoints:
//
//	POST /api/suggestions/risks     {"work_unit_id": ...}
//	POST /api/suggestions/actions   {"evaluation_id": ...}
//	GET  /api/suggestions?target_id=...
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

// SuggestionHandler handles AI-assisted suggestion endpoints.
type SuggestionHandler struct {
	suggestions service.SuggestionService
	logger      *slog.Logger
}

// NewSuggestionHandler creates a new SuggestionHandler.
func NewSuggestionHandler(suggestions service.SuggestionService, logger *slog.Logger) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions, logger: logger}
}

type suggestionResponse struct {
	ID        uuid.UUID               `json:"id"`
	Kind      domain.SuggestionKind   `json:"kind"`
	TargetID  uuid.UUID               `json:"target_id"`
	Items     []domain.SuggestionItem `json:"items"`
	CreatedAt time.Time               `json:"created_at"`
}

func newSuggestionResponse(s *domain.Suggestion) suggestionResponse {
	return suggestionResponse{
		ID:        s.ID,
		Kind:      s.Kind,
		TargetID:  s.TargetID,
		Items:     s.Items,
		CreatedAt: s.CreatedAt,
	}
}

// SuggestRisks proposes risks for a work unit. Counts against the monthly
// AI risk suggestion quota; requires a plan with AI access.
func (h *SuggestionHandler) SuggestRisks(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
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
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.suggest_risks", "A valid work_unit_id is required"))
		return
	}

	suggestion, err := h.suggestions.SuggestRisks(r.Context(), actor, workUnitID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, newSuggestionResponse(suggestion))
}

// SuggestActions proposes prevention actions for an evaluated risk.
func (h *SuggestionHandler) SuggestActions(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		EvaluationID string `json:"evaluation_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	evaluationID, err := uuid.Parse(req.EvaluationID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.suggest_actions", "A valid evaluation_id is required"))
		return
	}

	suggestion, err := h.suggestions.SuggestActions(r.Context(), actor, evaluationID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, newSuggestionResponse(suggestion))
}

// History returns past suggestions for a work unit or evaluation
// (?target_id=...).
func (h *SuggestionHandler) History(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	targetID, err := uuid.Parse(r.URL.Query().Get("target_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.suggestion_history", "A valid target_id query parameter is required"))
		return
	}

	history, err := h.suggestions.History(r.Context(), actor, targetID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]suggestionResponse, 0, len(history))
	for _, s := range history {
		out = append(out, newSuggestionResponse(s))
	}
	respondJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}
