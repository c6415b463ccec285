// Package service contains the business logic layer.
//
// This file implements the risk evaluation service: creation gated by plan
// method access and monthly quota, scoring, accent-insensitive search, and
// the work-unit reassignment operation.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/metrics"
	"github.com/jbaudry/previsk/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EvaluationService manages risk evaluations.
type EvaluationService interface {
	// Create scores and stores a new evaluation. The method must be included
	// in the tenant's plan and the monthly risk quota must not be reached.
	Create(ctx context.Context, actor *domain.User, params domain.CreateEvaluationParams) (*domain.RiskEvaluation, error)

	Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.RiskEvaluation, error)
	List(ctx context.Context, actor *domain.User, params domain.ListEvaluationsParams) (*domain.ListEvaluationsResult, error)

	// Update rescoring keeps the original method; switching methods means
	// deleting and recreating the evaluation.
	Update(ctx context.Context, actor *domain.User, params domain.UpdateEvaluationParams) error

	// Reassign moves an evaluation to another work unit. This is the
	// modify_scope action: site managers need a matching site assignment.
	Reassign(ctx context.Context, actor *domain.User, id, workUnitID uuid.UUID) error

	Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type evaluationService struct {
	queries *repository.Queries
	quota   QuotaService
	catalog *domain.Catalog
	logger  *slog.Logger
}

// NewEvaluationService creates a new EvaluationService.
func NewEvaluationService(queries *repository.Queries, quota QuotaService, catalog *domain.Catalog, logger *slog.Logger) EvaluationService {
	return &evaluationService{
		queries: queries,
		quota:   quota,
		catalog: catalog,
		logger:  logger,
	}
}

// Create scores and stores a new evaluation.
func (s *evaluationService) Create(ctx context.Context, actor *domain.User, params domain.CreateEvaluationParams) (*domain.RiskEvaluation, error) {
	const op = "evaluation.create"

	workUnit, err := s.queries.GetWorkUnitByID(ctx, params.WorkUnitID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "work unit", params.WorkUnitID.String())
		}
		return nil, domain.Internal(err, op, "failed to check work unit")
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceEvaluations, domain.ActionCreate, siteScope(actor, workUnit.SiteID)) {
		return nil, domain.Forbidden(op, "you cannot create evaluations on this site")
	}

	if params.Hazard == "" {
		return nil, domain.Invalid(op, "hazard is required")
	}
	scale := domain.MethodScale(params.Method)
	if params.Severity < 1 || params.Severity > scale {
		return nil, domain.Errorf(domain.EINVALID, op, "severity must be between 1 and %d for this method", scale)
	}
	if params.Probability < 1 || params.Probability > scale {
		return nil, domain.Errorf(domain.EINVALID, op, "probability must be between 1 and %d for this method", scale)
	}

	tenant, err := s.queries.GetTenantByID(ctx, actor.TenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load tenant")
	}
	plan := domain.Plan(tenant.Plan)

	if !s.catalog.HasMethodAccess(plan, params.Method) {
		required := s.catalog.RequiredPlanForMethod(params.Method)
		return nil, domain.PaymentRequired(op, "the "+string(params.Method)+" method requires the "+s.catalog.DisplayName(required)+" plan")
	}

	if err := s.quota.CheckQuota(ctx, actor.TenantID, plan, domain.FeatureRisksPerMonth); err != nil {
		return nil, err
	}

	score, priority := domain.ScoreRisk(params.Method, params.Severity, params.Probability)

	row, err := s.queries.CreateEvaluation(ctx, repository.CreateEvaluationParams{
		TenantID:    actor.TenantID,
		WorkUnitID:  params.WorkUnitID,
		Method:      string(params.Method),
		Hazard:      params.Hazard,
		Description: domain.ToNullString(params.Description),
		SearchText:  foldSearchText(params.Hazard, params.Description),
		Severity:    int32(params.Severity),
		Probability: int32(params.Probability),
		Score:       int32(score),
		Priority:    string(priority),
		CreatedBy:   actor.ID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create evaluation")
	}

	metrics.EvaluationsCreated.WithLabelValues(row.Method).Inc()
	s.logger.Info("evaluation created",
		"tenant_id", actor.TenantID,
		"evaluation_id", row.ID,
		"method", row.Method,
		"priority", row.Priority,
	)
	return mapEvaluation(row), nil
}

// Get retrieves an evaluation.
func (s *evaluationService) Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.RiskEvaluation, error) {
	const op = "evaluation.get"

	row, err := s.getRow(ctx, op, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceEvaluations, domain.ActionView, s.evaluationScope(ctx, actor, row)) {
		return nil, domain.Forbidden(op, "you cannot view this evaluation")
	}
	return mapEvaluation(row), nil
}

// List returns a filtered, paginated page of evaluations.
func (s *evaluationService) List(ctx context.Context, actor *domain.User, params domain.ListEvaluationsParams) (*domain.ListEvaluationsResult, error) {
	const op = "evaluation.list"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceEvaluations, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view evaluations")
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	search := ""
	if params.Search != "" {
		search = foldSearchText(params.Search)
	}

	workUnitID := domain.ToNullUUID(params.WorkUnitID)

	rows, err := s.queries.ListEvaluations(ctx, repository.ListEvaluationsParams{
		TenantID:   actor.TenantID,
		WorkUnitID: workUnitID,
		Search:     search,
		Limit:      limit,
		Offset:     params.Offset,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list evaluations")
	}

	total, err := s.queries.CountEvaluations(ctx, repository.CountEvaluationsParams{
		TenantID:   actor.TenantID,
		WorkUnitID: workUnitID,
		Search:     search,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count evaluations")
	}

	evals := make([]domain.RiskEvaluation, len(rows))
	for i, row := range rows {
		evals[i] = *mapEvaluation(row)
	}

	return &domain.ListEvaluationsResult{
		Evaluations: evals,
		Total:       total,
		Limit:       limit,
		Offset:      params.Offset,
	}, nil
}

// Update rescales and rewrites an evaluation, keeping its method.
func (s *evaluationService) Update(ctx context.Context, actor *domain.User, params domain.UpdateEvaluationParams) error {
	const op = "evaluation.update"

	row, err := s.getRow(ctx, op, actor.TenantID, params.ID)
	if err != nil {
		return err
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceEvaluations, domain.ActionUpdate, s.evaluationScope(ctx, actor, row)) {
		return domain.Forbidden(op, "you cannot update this evaluation")
	}

	if params.Hazard == "" {
		return domain.Invalid(op, "hazard is required")
	}
	method := domain.EvaluationMethod(row.Method)
	scale := domain.MethodScale(method)
	if params.Severity < 1 || params.Severity > scale {
		return domain.Errorf(domain.EINVALID, op, "severity must be between 1 and %d for this method", scale)
	}
	if params.Probability < 1 || params.Probability > scale {
		return domain.Errorf(domain.EINVALID, op, "probability must be between 1 and %d for this method", scale)
	}

	score, priority := domain.ScoreRisk(method, params.Severity, params.Probability)

	err = s.queries.UpdateEvaluation(ctx, repository.UpdateEvaluationParams{
		ID:          params.ID,
		TenantID:    actor.TenantID,
		Hazard:      params.Hazard,
		Description: domain.ToNullString(params.Description),
		SearchText:  foldSearchText(params.Hazard, params.Description),
		Severity:    int32(params.Severity),
		Probability: int32(params.Probability),
		Score:       int32(score),
		Priority:    string(priority),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to update evaluation")
	}
	return nil
}

// Reassign moves an evaluation to another work unit.
func (s *evaluationService) Reassign(ctx context.Context, actor *domain.User, id, workUnitID uuid.UUID) error {
	const op = "evaluation.reassign"

	row, err := s.getRow(ctx, op, actor.TenantID, id)
	if err != nil {
		return err
	}

	target, err := s.queries.GetWorkUnitByID(ctx, workUnitID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "work unit", workUnitID.String())
		}
		return domain.Internal(err, op, "failed to check work unit")
	}

	// The actor needs scope over both the source and the destination site.
	scope := func() bool {
		if actor.SiteID == nil {
			return true
		}
		source, err := s.queries.GetWorkUnitByID(ctx, row.WorkUnitID, actor.TenantID)
		if err != nil {
			return false
		}
		return source.SiteID == *actor.SiteID && target.SiteID == *actor.SiteID
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceEvaluations, domain.ActionModifyScope, scope) {
		return domain.Forbidden(op, "you cannot move this evaluation")
	}

	if err := s.queries.UpdateEvaluationWorkUnit(ctx, id, actor.TenantID, workUnitID); err != nil {
		return domain.Internal(err, op, "failed to reassign evaluation")
	}

	s.logger.Info("evaluation reassigned",
		"tenant_id", actor.TenantID,
		"evaluation_id", id,
		"work_unit_id", workUnitID,
	)
	return nil
}

// Delete removes an evaluation; its action plans cascade.
func (s *evaluationService) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	const op = "evaluation.delete"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceEvaluations, domain.ActionDelete, tenantScope(actor)) {
		return domain.Forbidden(op, "you cannot delete evaluations")
	}

	if err := s.queries.DeleteEvaluation(ctx, id, actor.TenantID); err != nil {
		return domain.Internal(err, op, "failed to delete evaluation")
	}
	s.logger.Info("evaluation deleted", "tenant_id", actor.TenantID, "evaluation_id", id)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *evaluationService) getRow(ctx context.Context, op string, tenantID, id uuid.UUID) (repository.RiskEvaluation, error) {
	row, err := s.queries.GetEvaluationByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.RiskEvaluation{}, domain.NotFound(op, "evaluation", id.String())
		}
		return repository.RiskEvaluation{}, domain.Internal(err, op, "failed to get evaluation")
	}
	return row, nil
}

// evaluationScope resolves the evaluation's site lazily: the lookup only
// happens when a limited permission actually needs it.
func (s *evaluationService) evaluationScope(ctx context.Context, actor *domain.User, row repository.RiskEvaluation) domain.ScopeCheck {
	return func() bool {
		if actor.SiteID == nil {
			return true
		}
		workUnit, err := s.queries.GetWorkUnitByID(ctx, row.WorkUnitID, actor.TenantID)
		if err != nil {
			return false
		}
		return workUnit.SiteID == *actor.SiteID
	}
}

func mapEvaluation(row repository.RiskEvaluation) *domain.RiskEvaluation {
	return &domain.RiskEvaluation{
		ID:          row.ID,
		TenantID:    row.TenantID,
		WorkUnitID:  row.WorkUnitID,
		Method:      domain.EvaluationMethod(row.Method),
		Hazard:      row.Hazard,
		Description: domain.NullStringValue(row.Description),
		Severity:    int(row.Severity),
		Probability: int(row.Probability),
		Score:       int(row.Score),
		Priority:    domain.RiskPriority(row.Priority),
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
