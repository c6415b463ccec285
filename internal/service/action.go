// Package service contains the business logic layer.
//
// This file implements the action plan service: prevention measures attached
// to risk evaluations, gated by the monthly action quota.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ActionService manages prevention action plans.
type ActionService interface {
	Create(ctx context.Context, actor *domain.User, params domain.CreateActionParams) (*domain.ActionPlan, error)
	Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.ActionPlan, error)
	ListByEvaluation(ctx context.Context, actor *domain.User, evaluationID uuid.UUID) ([]*domain.ActionPlan, error)

	// Counts tallies the status distribution of a company's actions for the
	// dashboard and the PAPRIPACT rollup.
	Counts(ctx context.Context, actor *domain.User, companyID uuid.UUID) (domain.ActionCounts, error)

	Update(ctx context.Context, actor *domain.User, params domain.UpdateActionParams) error
	Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type actionService struct {
	queries *repository.Queries
	quota   QuotaService
	logger  *slog.Logger
}

// NewActionService creates a new ActionService.
func NewActionService(queries *repository.Queries, quota QuotaService, logger *slog.Logger) ActionService {
	return &actionService{
		queries: queries,
		quota:   quota,
		logger:  logger,
	}
}

// Create stores a new action plan against an evaluation.
func (s *actionService) Create(ctx context.Context, actor *domain.User, params domain.CreateActionParams) (*domain.ActionPlan, error) {
	const op = "action.create"

	if params.Title == "" {
		return nil, domain.Invalid(op, "action title is required")
	}

	evaluation, err := s.queries.GetEvaluationByID(ctx, params.EvaluationID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "evaluation", params.EvaluationID.String())
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
	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceActions, domain.ActionCreate, scope) {
		return nil, domain.Forbidden(op, "you cannot create actions for this evaluation")
	}

	tenant, err := s.queries.GetTenantByID(ctx, actor.TenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load tenant")
	}
	if err := s.quota.CheckQuota(ctx, actor.TenantID, domain.Plan(tenant.Plan), domain.FeatureActionPlansPerMonth); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateAction(ctx, repository.CreateActionParams{
		TenantID:     actor.TenantID,
		EvaluationID: params.EvaluationID,
		Title:        params.Title,
		Description:  domain.ToNullString(params.Description),
		Status:       string(domain.ActionStatusTodo),
		AssigneeID:   domain.ToNullUUID(params.AssigneeID),
		DueDate:      domain.ToNullTime(params.DueDate),
		CreatedBy:    actor.ID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create action")
	}

	s.logger.Info("action created", "tenant_id", actor.TenantID, "action_id", row.ID, "evaluation_id", params.EvaluationID)
	return mapAction(row), nil
}

// Get retrieves an action plan.
func (s *actionService) Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.ActionPlan, error) {
	const op = "action.get"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceActions, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view actions")
	}

	row, err := s.queries.GetActionByID(ctx, id, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "action", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get action")
	}
	return mapAction(row), nil
}

// ListByEvaluation returns the actions attached to one evaluation.
func (s *actionService) ListByEvaluation(ctx context.Context, actor *domain.User, evaluationID uuid.UUID) ([]*domain.ActionPlan, error) {
	const op = "action.list_by_evaluation"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceActions, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view actions")
	}

	rows, err := s.queries.ListActionsByEvaluation(ctx, actor.TenantID, evaluationID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list actions")
	}

	actions := make([]*domain.ActionPlan, len(rows))
	for i, row := range rows {
		actions[i] = mapAction(row)
	}
	return actions, nil
}

// Counts tallies the status distribution of a company's actions.
func (s *actionService) Counts(ctx context.Context, actor *domain.User, companyID uuid.UUID) (domain.ActionCounts, error) {
	const op = "action.counts"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceActions, domain.ActionView, tenantScope(actor)) {
		return domain.ActionCounts{}, domain.Forbidden(op, "you cannot view actions")
	}

	rows, err := s.queries.ListActionsByCompany(ctx, actor.TenantID, companyID)
	if err != nil {
		return domain.ActionCounts{}, domain.Internal(err, op, "failed to list actions")
	}

	actions := make([]domain.ActionPlan, len(rows))
	for i, row := range rows {
		actions[i] = *mapAction(row)
	}
	return domain.CalculateActionCounts(actions, time.Now()), nil
}

// Update rewrites an action plan. Moving to 'done' stamps completed_at.
func (s *actionService) Update(ctx context.Context, actor *domain.User, params domain.UpdateActionParams) error {
	const op = "action.update"

	if !domain.ValidActionStatus(params.Status) {
		return domain.Invalid(op, "unknown action status")
	}
	if params.Title == "" {
		return domain.Invalid(op, "action title is required")
	}

	row, err := s.queries.GetActionByID(ctx, params.ID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "action", params.ID.String())
		}
		return domain.Internal(err, op, "failed to get action")
	}

	scope := func() bool {
		if actor.SiteID == nil {
			return true
		}
		evaluation, err := s.queries.GetEvaluationByID(ctx, row.EvaluationID, actor.TenantID)
		if err != nil {
			return false
		}
		workUnit, err := s.queries.GetWorkUnitByID(ctx, evaluation.WorkUnitID, actor.TenantID)
		if err != nil {
			return false
		}
		return workUnit.SiteID == *actor.SiteID
	}
	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceActions, domain.ActionUpdate, scope) {
		return domain.Forbidden(op, "you cannot update this action")
	}

	err = s.queries.UpdateAction(ctx, repository.UpdateActionParams{
		ID:          params.ID,
		TenantID:    actor.TenantID,
		Title:       params.Title,
		Description: domain.ToNullString(params.Description),
		Status:      string(params.Status),
		AssigneeID:  domain.ToNullUUID(params.AssigneeID),
		DueDate:     domain.ToNullTime(params.DueDate),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to update action")
	}
	return nil
}

// Delete removes an action plan.
func (s *actionService) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	const op = "action.delete"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceActions, domain.ActionDelete, tenantScope(actor)) {
		return domain.Forbidden(op, "you cannot delete actions")
	}

	if err := s.queries.DeleteAction(ctx, id, actor.TenantID); err != nil {
		return domain.Internal(err, op, "failed to delete action")
	}
	s.logger.Info("action deleted", "tenant_id", actor.TenantID, "action_id", id)
	return nil
}

// =============================================================================
// Mapping helpers
// =============================================================================

func mapAction(row repository.ActionPlan) *domain.ActionPlan {
	return &domain.ActionPlan{
		ID:           row.ID,
		TenantID:     row.TenantID,
		EvaluationID: row.EvaluationID,
		Title:        row.Title,
		Description:  domain.NullStringValue(row.Description),
		Status:       domain.ActionStatus(row.Status),
		AssigneeID:   domain.NullUUIDValue(row.AssigneeID),
		DueDate:      domain.NullTimeValue(row.DueDate),
		CompletedAt:  domain.NullTimeValue(row.CompletedAt),
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
