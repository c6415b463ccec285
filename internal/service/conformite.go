// Package service contains the business logic layer.
//
// This file implements the compliance service: PAPRIPACT annual prevention
// plans and the worker-participation register kept alongside the DUERP.
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

// ConformiteService manages PAPRIPACT plans and participation entries.
type ConformiteService interface {
	CreatePapripact(ctx context.Context, actor *domain.User, params domain.CreatePapripactParams) (*domain.Papripact, error)
	GetPapripact(ctx context.Context, actor *domain.User, companyID uuid.UUID, year int) (*domain.Papripact, error)
	ListPapripacts(ctx context.Context, actor *domain.User, companyID uuid.UUID) ([]*domain.Papripact, error)

	// UpdatePapripactSummary only touches drafts; published plans are
	// immutable.
	UpdatePapripactSummary(ctx context.Context, actor *domain.User, id uuid.UUID, summary string) error

	PublishPapripact(ctx context.Context, actor *domain.User, id uuid.UUID) error

	// PapripactRequired reports whether the company's headcount obliges it to
	// maintain a PAPRIPACT.
	PapripactRequired(ctx context.Context, actor *domain.User, companyID uuid.UUID) (bool, error)

	AddParticipationEntry(ctx context.Context, actor *domain.User, params domain.CreateParticipationParams) (*domain.ParticipationEntry, error)
	ListParticipation(ctx context.Context, actor *domain.User, companyID uuid.UUID) ([]*domain.ParticipationEntry, error)
}

// =============================================================================
// Implementation
// =============================================================================

type conformiteService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewConformiteService creates a new ConformiteService.
func NewConformiteService(queries *repository.Queries, logger *slog.Logger) ConformiteService {
	return &conformiteService{
		queries: queries,
		logger:  logger,
	}
}

// CreatePapripact opens a draft annual prevention plan for a company. One
// plan per company and year; a second create for the same year conflicts.
func (s *conformiteService) CreatePapripact(ctx context.Context, actor *domain.User, params domain.CreatePapripactParams) (*domain.Papripact, error) {
	const op = "conformite.create_papripact"

	if params.Year < 2000 || params.Year > time.Now().Year()+1 {
		return nil, domain.Invalid(op, "year is out of range")
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceConformite, domain.ActionCreate, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot manage compliance plans")
	}

	if _, err := s.queries.GetCompanyByID(ctx, params.CompanyID, actor.TenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "company", params.CompanyID.String())
		}
		return nil, domain.Internal(err, op, "failed to check company")
	}

	row, err := s.queries.CreatePapripact(ctx, repository.CreatePapripactParams{
		TenantID:  actor.TenantID,
		CompanyID: params.CompanyID,
		Year:      int32(params.Year),
		Status:    string(domain.PapripactDraft),
		Summary:   domain.ToNullString(params.Summary),
		CreatedBy: actor.ID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, "a plan already exists for this company and year")
		}
		return nil, domain.Internal(err, op, "failed to create papripact")
	}

	s.logger.Info("papripact created", "tenant_id", actor.TenantID, "papripact_id", row.ID, "year", row.Year)
	return mapPapripact(row), nil
}

// GetPapripact retrieves the plan for a company and year.
func (s *conformiteService) GetPapripact(ctx context.Context, actor *domain.User, companyID uuid.UUID, year int) (*domain.Papripact, error) {
	const op = "conformite.get_papripact"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceConformite, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view compliance plans")
	}

	row, err := s.queries.GetPapripactByCompanyYear(ctx, actor.TenantID, companyID, int32(year))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "papripact", companyID.String())
		}
		return nil, domain.Internal(err, op, "failed to get papripact")
	}
	return mapPapripact(row), nil
}

// ListPapripacts returns a company's plans, newest year first.
func (s *conformiteService) ListPapripacts(ctx context.Context, actor *domain.User, companyID uuid.UUID) ([]*domain.Papripact, error) {
	const op = "conformite.list_papripacts"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceConformite, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view compliance plans")
	}

	rows, err := s.queries.ListPapripactsByCompany(ctx, actor.TenantID, companyID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list papripacts")
	}

	plans := make([]*domain.Papripact, len(rows))
	for i, row := range rows {
		plans[i] = mapPapripact(row)
	}
	return plans, nil
}

// UpdatePapripactSummary rewrites a draft's summary. The WHERE status='draft'
// guard makes publishing races safe: zero rows affected means the plan is
// either gone or no longer a draft.
func (s *conformiteService) UpdatePapripactSummary(ctx context.Context, actor *domain.User, id uuid.UUID, summary string) error {
	const op = "conformite.update_papripact"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceConformite, domain.ActionUpdate, tenantScope(actor)) {
		return domain.Forbidden(op, "you cannot manage compliance plans")
	}

	affected, err := s.queries.UpdatePapripactSummary(ctx, id, actor.TenantID, domain.ToNullString(summary))
	if err != nil {
		return domain.Internal(err, op, "failed to update papripact")
	}
	if affected == 0 {
		return s.explainUnaffected(ctx, op, actor.TenantID, id)
	}
	return nil
}

// PublishPapripact moves a draft to published and stamps published_at.
func (s *conformiteService) PublishPapripact(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	const op = "conformite.publish_papripact"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceConformite, domain.ActionUpdate, tenantScope(actor)) {
		return domain.Forbidden(op, "you cannot manage compliance plans")
	}

	affected, err := s.queries.PublishPapripact(ctx, id, actor.TenantID)
	if err != nil {
		return domain.Internal(err, op, "failed to publish papripact")
	}
	if affected == 0 {
		return s.explainUnaffected(ctx, op, actor.TenantID, id)
	}

	s.logger.Info("papripact published", "tenant_id", actor.TenantID, "papripact_id", id)
	return nil
}

// PapripactRequired reports whether the company must maintain a PAPRIPACT.
func (s *conformiteService) PapripactRequired(ctx context.Context, actor *domain.User, companyID uuid.UUID) (bool, error) {
	const op = "conformite.papripact_required"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceConformite, domain.ActionView, tenantScope(actor)) {
		return false, domain.Forbidden(op, "you cannot view compliance plans")
	}

	row, err := s.queries.GetCompanyByID(ctx, companyID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.NotFound(op, "company", companyID.String())
		}
		return false, domain.Internal(err, op, "failed to get company")
	}

	company := domain.Company{Headcount: int(row.Headcount)}
	return company.RequiresPapripact(), nil
}

// AddParticipationEntry appends to the worker-participation register. The
// register is append-only: there is no update or delete path.
func (s *conformiteService) AddParticipationEntry(ctx context.Context, actor *domain.User, params domain.CreateParticipationParams) (*domain.ParticipationEntry, error) {
	const op = "conformite.add_participation"

	if params.Description == "" {
		return nil, domain.Invalid(op, "participation description is required")
	}
	switch params.Kind {
	case domain.ParticipationCSEMeeting, domain.ParticipationInterview, domain.ParticipationSignature, domain.ParticipationOther:
	default:
		return nil, domain.Invalid(op, "unknown participation kind")
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceConformite, domain.ActionCreate, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot record participation entries")
	}

	if _, err := s.queries.GetCompanyByID(ctx, params.CompanyID, actor.TenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "company", params.CompanyID.String())
		}
		return nil, domain.Internal(err, op, "failed to check company")
	}

	occurredOn := params.OccurredOn
	if occurredOn.IsZero() {
		occurredOn = time.Now()
	}

	row, err := s.queries.CreateParticipationEntry(ctx, repository.CreateParticipationEntryParams{
		TenantID:    actor.TenantID,
		CompanyID:   params.CompanyID,
		Kind:        string(params.Kind),
		Description: params.Description,
		OccurredOn:  occurredOn,
		RecordedBy:  actor.ID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to record participation entry")
	}
	return mapParticipation(row), nil
}

// ListParticipation returns a company's participation register, most recent
// first.
func (s *conformiteService) ListParticipation(ctx context.Context, actor *domain.User, companyID uuid.UUID) ([]*domain.ParticipationEntry, error) {
	const op = "conformite.list_participation"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceConformite, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view participation entries")
	}

	rows, err := s.queries.ListParticipationByCompany(ctx, actor.TenantID, companyID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list participation entries")
	}

	entries := make([]*domain.ParticipationEntry, len(rows))
	for i, row := range rows {
		entries[i] = mapParticipation(row)
	}
	return entries, nil
}

// explainUnaffected turns a zero-rows-affected draft update into the right
// domain error: not found if the plan is gone, conflict if it left draft.
func (s *conformiteService) explainUnaffected(ctx context.Context, op string, tenantID, id uuid.UUID) error {
	_, err := s.queries.GetPapripactByID(ctx, id, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(op, "papripact", id.String())
	}
	if err != nil {
		return domain.Internal(err, op, "failed to check papripact")
	}
	return domain.Conflict(op, "plan is not in draft state")
}

// =============================================================================
// Mapping helpers
// =============================================================================

func mapPapripact(row repository.Papripact) *domain.Papripact {
	return &domain.Papripact{
		ID:          row.ID,
		TenantID:    row.TenantID,
		CompanyID:   row.CompanyID,
		Year:        int(row.Year),
		Status:      domain.PapripactStatus(row.Status),
		Summary:     domain.NullStringValue(row.Summary),
		PublishedAt: domain.NullTimeValue(row.PublishedAt),
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func mapParticipation(row repository.ParticipationEntry) *domain.ParticipationEntry {
	return &domain.ParticipationEntry{
		ID:          row.ID,
		TenantID:    row.TenantID,
		CompanyID:   row.CompanyID,
		Kind:        domain.ParticipationKind(row.Kind),
		Description: row.Description,
		OccurredOn:  row.OccurredOn,
		RecordedBy:  row.RecordedBy,
		CreatedAt:   row.CreatedAt,
	}
}
