// Package service contains the business logic layer.
//
// This file implements the AI suggestion service. Every accepted call is
// persisted as an ai_suggestions row; the monthly AI quotas are counted from
// those rows.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/ai"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
	"github.com/sqlc-dev/pqtype"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SuggestionService runs AI suggestions and persists the results.
type SuggestionService interface {
	// SuggestRisks proposes risks for a work unit.
	SuggestRisks(ctx context.Context, actor *domain.User, workUnitID uuid.UUID) (*domain.Suggestion, error)

	// SuggestActions proposes prevention actions for an evaluated risk.
	SuggestActions(ctx context.Context, actor *domain.User, evaluationID uuid.UUID) (*domain.Suggestion, error)

	// History returns past suggestions for a work unit or evaluation.
	History(ctx context.Context, actor *domain.User, targetID uuid.UUID) ([]*domain.Suggestion, error)
}

// =============================================================================
// Implementation
// =============================================================================

type suggestionService struct {
	queries  *repository.Queries
	quota    QuotaService
	provider ai.AIProvider
	catalog  *domain.Catalog
	logger   *slog.Logger
}

// NewSuggestionService creates a new SuggestionService.
func NewSuggestionService(queries *repository.Queries, quota QuotaService, provider ai.AIProvider, catalog *domain.Catalog, logger *slog.Logger) SuggestionService {
	return &suggestionService{
		queries:  queries,
		quota:    quota,
		provider: provider,
		catalog:  catalog,
		logger:   logger,
	}
}

// SuggestRisks proposes risks for a work unit and stores the result.
func (s *suggestionService) SuggestRisks(ctx context.Context, actor *domain.User, workUnitID uuid.UUID) (*domain.Suggestion, error) {
	const op = "suggestion.suggest_risks"

	workUnit, err := s.queries.GetWorkUnitByID(ctx, workUnitID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "work unit", workUnitID.String())
		}
		return nil, domain.Internal(err, op, "failed to check work unit")
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceAI, domain.ActionCreate, siteScope(actor, workUnit.SiteID)) {
		return nil, domain.Forbidden(op, "you cannot use AI suggestions")
	}

	plan, err := s.tenantPlan(ctx, op, actor.TenantID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAIAccess(op, plan, domain.FeatureAIRisksPerMonth); err != nil {
		return nil, err
	}
	if err := s.quota.CheckQuota(ctx, actor.TenantID, plan, domain.FeatureAIRisksPerMonth); err != nil {
		return nil, err
	}

	result, err := s.provider.SuggestRisks(ctx, ai.SuggestRisksParams{
		WorkUnitName:        workUnit.Name,
		WorkUnitDescription: domain.NullStringValue(workUnit.Description),
		Headcount:           int(workUnit.Headcount),
	})
	if err != nil {
		return nil, s.mapProviderError(op, err)
	}

	return s.store(ctx, op, actor, domain.SuggestionRisks, workUnitID, result)
}

// SuggestActions proposes prevention actions for an evaluation and stores the
// result.
func (s *suggestionService) SuggestActions(ctx context.Context, actor *domain.User, evaluationID uuid.UUID) (*domain.Suggestion, error) {
	const op = "suggestion.suggest_actions"

	evaluation, err := s.queries.GetEvaluationByID(ctx, evaluationID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "evaluation", evaluationID.String())
		}
		return nil, domain.Internal(err, op, "failed to check evaluation")
	}

	scope := func() bool {
		if actor.SiteID == nil {
			return true
		}
		workUnit, err := s.queries.GetWorkUnitByID(ctx, evaluation.WorkUnitID, actor.TenantID)
		if err != nil {
			return false
		}
		return workUnit.SiteID == *actor.SiteID
	}
	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceAI, domain.ActionCreate, scope) {
		return nil, domain.Forbidden(op, "you cannot use AI suggestions")
	}

	plan, err := s.tenantPlan(ctx, op, actor.TenantID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAIAccess(op, plan, domain.FeatureAIActionsPerMonth); err != nil {
		return nil, err
	}
	if err := s.quota.CheckQuota(ctx, actor.TenantID, plan, domain.FeatureAIActionsPerMonth); err != nil {
		return nil, err
	}

	result, err := s.provider.SuggestActions(ctx, ai.SuggestActionsParams{
		RiskTitle:       evaluation.Hazard,
		RiskDescription: domain.NullStringValue(evaluation.Description),
		Severity:        evaluation.Severity,
		Probability:     evaluation.Probability,
	})
	if err != nil {
		return nil, s.mapProviderError(op, err)
	}

	return s.store(ctx, op, actor, domain.SuggestionActions, evaluationID, result)
}

// History returns stored suggestions for a target, newest first.
func (s *suggestionService) History(ctx context.Context, actor *domain.User, targetID uuid.UUID) ([]*domain.Suggestion, error) {
	const op = "suggestion.history"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceAI, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view AI suggestions")
	}

	rows, err := s.queries.ListSuggestionsByTarget(ctx, actor.TenantID, targetID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list suggestions")
	}

	suggestions := make([]*domain.Suggestion, 0, len(rows))
	for _, row := range rows {
		suggestion, err := mapSuggestion(row)
		if err != nil {
			s.logger.Warn("skipping malformed suggestion row", "suggestion_id", row.ID, "error", err)
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

// checkAIAccess rejects plans whose catalog entry grants no AI allowance at
// all, naming the cheapest plan that does.
func (s *suggestionService) checkAIAccess(op string, plan domain.Plan, feature domain.FeatureKey) error {
	if s.catalog.HasFeatureAccess(plan, feature) {
		return nil
	}
	required := s.catalog.RequiredPlan(feature)
	return domain.PaymentRequired(op, "AI suggestions require the "+s.catalog.DisplayName(required)+" plan or above")
}

// store persists the provider's result and returns the domain record.
func (s *suggestionService) store(ctx context.Context, op string, actor *domain.User, kind domain.SuggestionKind, targetID uuid.UUID, result *ai.SuggestionResult) (*domain.Suggestion, error) {
	items := make([]domain.SuggestionItem, len(result.Items))
	for i, item := range result.Items {
		items[i] = domain.SuggestionItem{Title: item.Title, Description: item.Description}
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode suggestions")
	}

	row, err := s.queries.CreateSuggestion(ctx, repository.CreateSuggestionParams{
		TenantID:  actor.TenantID,
		Kind:      string(kind),
		TargetID:  targetID,
		Items:     pqtype.NullRawMessage{RawMessage: itemsJSON, Valid: true},
		CreatedBy: actor.ID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store suggestion")
	}

	s.logger.Info("ai suggestion stored",
		"tenant_id", actor.TenantID,
		"kind", kind,
		"target_id", targetID,
		"items", len(items),
		"model", result.Usage.Model,
		"cost_cents", result.Usage.CostCents,
	)

	return &domain.Suggestion{
		ID:        row.ID,
		TenantID:  row.TenantID,
		Kind:      kind,
		TargetID:  row.TargetID,
		Items:     items,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
	}, nil
}

// tenantPlan loads the tenant's current plan.
func (s *suggestionService) tenantPlan(ctx context.Context, op string, tenantID uuid.UUID) (domain.Plan, error) {
	tenant, err := s.queries.GetTenantByID(ctx, tenantID)
	if err != nil {
		return "", domain.Internal(err, op, "failed to load tenant")
	}
	return domain.Plan(tenant.Plan), nil
}

// mapProviderError translates ai package errors into domain errors.
func (s *suggestionService) mapProviderError(op string, err error) error {
	switch {
	case errors.Is(err, ai.EAIRateLimit), errors.Is(err, ai.EAIUnavailable), errors.Is(err, ai.EAITimeout):
		return domain.Errorf(domain.EUNAVAILABLE, op, "the suggestion service is temporarily unavailable, try again shortly")
	case errors.Is(err, ai.EAIInvalidInput):
		return domain.Invalid(op, "the record does not carry enough context for a suggestion")
	default:
		return domain.Internal(err, op, "suggestion request failed")
	}
}

// =============================================================================
// Mapping helpers
// =============================================================================

func mapSuggestion(row repository.Suggestion) (*domain.Suggestion, error) {
	var items []domain.SuggestionItem
	if row.Items.Valid {
		if err := json.Unmarshal(row.Items.RawMessage, &items); err != nil {
			return nil, err
		}
	}
	return &domain.Suggestion{
		ID:        row.ID,
		TenantID:  row.TenantID,
		Kind:      domain.SuggestionKind(row.Kind),
		TargetID:  row.TargetID,
		Items:     items,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
	}, nil
}
