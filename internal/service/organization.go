// Package service contains the business logic layer.
//
// This file implements the organization service: companies, sites and work
// units, the hierarchy the DUERP is organized around.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// OrganizationService manages companies, sites and work units.
type OrganizationService interface {
	CreateCompany(ctx context.Context, actor *domain.User, params domain.CreateCompanyParams) (*domain.Company, error)
	GetCompany(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Company, error)
	ListCompanies(ctx context.Context, actor *domain.User) ([]*domain.Company, error)
	UpdateCompany(ctx context.Context, actor *domain.User, params domain.UpdateCompanyParams) error
	DeleteCompany(ctx context.Context, actor *domain.User, id uuid.UUID) error

	CreateSite(ctx context.Context, actor *domain.User, params domain.CreateSiteParams) (*domain.Site, error)
	ListSites(ctx context.Context, actor *domain.User) ([]*domain.Site, error)
	UpdateSite(ctx context.Context, actor *domain.User, params domain.UpdateSiteParams) error
	// DeleteSite refuses to delete a site that still has work units.
	DeleteSite(ctx context.Context, actor *domain.User, id uuid.UUID) error

	CreateWorkUnit(ctx context.Context, actor *domain.User, params domain.CreateWorkUnitParams) (*domain.WorkUnit, error)
	GetWorkUnit(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.WorkUnit, error)
	ListWorkUnits(ctx context.Context, actor *domain.User, siteID uuid.UUID) ([]*domain.WorkUnit, error)
	// SearchWorkUnits is accent-insensitive: "échafaudage" finds "Echafaudage".
	SearchWorkUnits(ctx context.Context, actor *domain.User, term string) ([]*domain.WorkUnit, error)
	UpdateWorkUnit(ctx context.Context, actor *domain.User, params domain.UpdateWorkUnitParams) error
	DeleteWorkUnit(ctx context.Context, actor *domain.User, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type organizationService struct {
	queries *repository.Queries
	quota   QuotaService
	logger  *slog.Logger
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(queries *repository.Queries, quota QuotaService, logger *slog.Logger) OrganizationService {
	return &organizationService{
		queries: queries,
		quota:   quota,
		logger:  logger,
	}
}

// tenantScope passes the limited-permission check only for users without a
// site assignment: site-bound users cannot touch tenant-level records.
func tenantScope(actor *domain.User) domain.ScopeCheck {
	return func() bool { return actor.SiteID == nil }
}

// siteScope passes for users without a site assignment, or whose assigned
// site matches the target.
func siteScope(actor *domain.User, siteID uuid.UUID) domain.ScopeCheck {
	return func() bool { return actor.SiteID == nil || *actor.SiteID == siteID }
}

func (s *organizationService) tenantPlan(ctx context.Context, op string, tenantID uuid.UUID) (domain.Plan, error) {
	tenant, err := s.queries.GetTenantByID(ctx, tenantID)
	if err != nil {
		return "", domain.Internal(err, op, "failed to load tenant")
	}
	return domain.Plan(tenant.Plan), nil
}

// =============================================================================
// Companies
// =============================================================================

func (s *organizationService) CreateCompany(ctx context.Context, actor *domain.User, params domain.CreateCompanyParams) (*domain.Company, error) {
	const op = "organization.create_company"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionCreate, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot create companies")
	}
	if params.Name == "" {
		return nil, domain.Invalid(op, "company name is required")
	}
	if params.Siret != "" && len(params.Siret) != 14 {
		return nil, domain.Invalid(op, "SIRET must be 14 digits")
	}

	plan, err := s.tenantPlan(ctx, op, actor.TenantID)
	if err != nil {
		return nil, err
	}
	if err := s.quota.CheckQuota(ctx, actor.TenantID, plan, domain.FeatureCompanies); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateCompany(ctx, repository.CreateCompanyParams{
		TenantID:  actor.TenantID,
		Name:      params.Name,
		Siret:     domain.ToNullString(params.Siret),
		NafCode:   domain.ToNullString(params.NafCode),
		Headcount: int32(params.Headcount),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create company")
	}

	s.logger.Info("company created", "tenant_id", actor.TenantID, "company_id", row.ID)
	return mapCompany(row), nil
}

func (s *organizationService) GetCompany(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Company, error) {
	const op = "organization.get_company"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view this organization")
	}

	row, err := s.queries.GetCompanyByID(ctx, id, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "company", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get company")
	}
	return mapCompany(row), nil
}

func (s *organizationService) ListCompanies(ctx context.Context, actor *domain.User) ([]*domain.Company, error) {
	const op = "organization.list_companies"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view this organization")
	}

	rows, err := s.queries.ListCompaniesByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list companies")
	}

	companies := make([]*domain.Company, len(rows))
	for i, row := range rows {
		companies[i] = mapCompany(row)
	}
	return companies, nil
}

func (s *organizationService) UpdateCompany(ctx context.Context, actor *domain.User, params domain.UpdateCompanyParams) error {
	const op = "organization.update_company"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionUpdate, tenantScope(actor)) {
		return domain.Forbidden(op, "you cannot update this organization")
	}
	if params.Name == "" {
		return domain.Invalid(op, "company name is required")
	}

	err := s.queries.UpdateCompany(ctx, repository.UpdateCompanyParams{
		ID:        params.ID,
		TenantID:  actor.TenantID,
		Name:      params.Name,
		Siret:     domain.ToNullString(params.Siret),
		NafCode:   domain.ToNullString(params.NafCode),
		Headcount: int32(params.Headcount),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to update company")
	}
	return nil
}

func (s *organizationService) DeleteCompany(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	const op = "organization.delete_company"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionDelete, tenantScope(actor)) {
		return domain.Forbidden(op, "you cannot delete companies")
	}

	if err := s.queries.DeleteCompany(ctx, id, actor.TenantID); err != nil {
		return domain.Internal(err, op, "failed to delete company")
	}
	s.logger.Info("company deleted", "tenant_id", actor.TenantID, "company_id", id)
	return nil
}

// =============================================================================
// Sites
// =============================================================================

func (s *organizationService) CreateSite(ctx context.Context, actor *domain.User, params domain.CreateSiteParams) (*domain.Site, error) {
	const op = "organization.create_site"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionCreate, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot create sites")
	}
	if params.Name == "" {
		return nil, domain.Invalid(op, "site name is required")
	}

	// The parent company must belong to the same tenant.
	if _, err := s.queries.GetCompanyByID(ctx, params.CompanyID, actor.TenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "company", params.CompanyID.String())
		}
		return nil, domain.Internal(err, op, "failed to check company")
	}

	plan, err := s.tenantPlan(ctx, op, actor.TenantID)
	if err != nil {
		return nil, err
	}
	if err := s.quota.CheckQuota(ctx, actor.TenantID, plan, domain.FeatureSites); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateSite(ctx, repository.CreateSiteParams{
		TenantID:  actor.TenantID,
		CompanyID: params.CompanyID,
		Name:      params.Name,
		Address:   domain.ToNullString(params.Address),
		City:      domain.ToNullString(params.City),
		PostCode:  domain.ToNullString(params.PostCode),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create site")
	}

	s.logger.Info("site created", "tenant_id", actor.TenantID, "site_id", row.ID)
	return mapSite(row), nil
}

func (s *organizationService) ListSites(ctx context.Context, actor *domain.User) ([]*domain.Site, error) {
	const op = "organization.list_sites"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view this organization")
	}

	rows, err := s.queries.ListSitesByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list sites")
	}

	sites := make([]*domain.Site, len(rows))
	for i, row := range rows {
		sites[i] = mapSite(row)
	}
	return sites, nil
}

func (s *organizationService) UpdateSite(ctx context.Context, actor *domain.User, params domain.UpdateSiteParams) error {
	const op = "organization.update_site"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionUpdate, siteScope(actor, params.ID)) {
		return domain.Forbidden(op, "you cannot update this site")
	}
	if params.Name == "" {
		return domain.Invalid(op, "site name is required")
	}

	err := s.queries.UpdateSite(ctx, repository.UpdateSiteParams{
		ID:       params.ID,
		TenantID: actor.TenantID,
		Name:     params.Name,
		Address:  domain.ToNullString(params.Address),
		City:     domain.ToNullString(params.City),
		PostCode: domain.ToNullString(params.PostCode),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to update site")
	}
	return nil
}

func (s *organizationService) DeleteSite(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	const op = "organization.delete_site"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionDelete, tenantScope(actor)) {
		return domain.Forbidden(op, "you cannot delete sites")
	}

	count, err := s.queries.CountWorkUnitsBySite(ctx, id)
	if err != nil {
		return domain.Internal(err, op, "failed to count work units")
	}
	if count > 0 {
		return domain.Conflict(op, "this site still has work units; move or delete them first")
	}

	if err := s.queries.DeleteSite(ctx, id, actor.TenantID); err != nil {
		return domain.Internal(err, op, "failed to delete site")
	}
	s.logger.Info("site deleted", "tenant_id", actor.TenantID, "site_id", id)
	return nil
}

// =============================================================================
// Work units
// =============================================================================

func (s *organizationService) CreateWorkUnit(ctx context.Context, actor *domain.User, params domain.CreateWorkUnitParams) (*domain.WorkUnit, error) {
	const op = "organization.create_work_unit"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionCreate, siteScope(actor, params.SiteID)) {
		return nil, domain.Forbidden(op, "you cannot create work units on this site")
	}
	if params.Name == "" {
		return nil, domain.Invalid(op, "work unit name is required")
	}

	if _, err := s.queries.GetSiteByID(ctx, params.SiteID, actor.TenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "site", params.SiteID.String())
		}
		return nil, domain.Internal(err, op, "failed to check site")
	}

	plan, err := s.tenantPlan(ctx, op, actor.TenantID)
	if err != nil {
		return nil, err
	}
	if err := s.quota.CheckQuota(ctx, actor.TenantID, plan, domain.FeatureWorkUnits); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateWorkUnit(ctx, repository.CreateWorkUnitParams{
		TenantID:    actor.TenantID,
		SiteID:      params.SiteID,
		Name:        params.Name,
		Description: domain.ToNullString(params.Description),
		SearchText:  foldSearchText(params.Name, params.Description),
		Headcount:   int32(params.Headcount),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create work unit")
	}

	s.logger.Info("work unit created", "tenant_id", actor.TenantID, "work_unit_id", row.ID)
	return mapWorkUnit(row), nil
}

func (s *organizationService) GetWorkUnit(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.WorkUnit, error) {
	const op = "organization.get_work_unit"

	row, err := s.queries.GetWorkUnitByID(ctx, id, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "work unit", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get work unit")
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionView, siteScope(actor, row.SiteID)) {
		return nil, domain.Forbidden(op, "you cannot view this work unit")
	}
	return mapWorkUnit(row), nil
}

func (s *organizationService) ListWorkUnits(ctx context.Context, actor *domain.User, siteID uuid.UUID) ([]*domain.WorkUnit, error) {
	const op = "organization.list_work_units"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionView, siteScope(actor, siteID)) {
		return nil, domain.Forbidden(op, "you cannot view this site")
	}

	rows, err := s.queries.ListWorkUnitsBySite(ctx, actor.TenantID, siteID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list work units")
	}

	units := make([]*domain.WorkUnit, len(rows))
	for i, row := range rows {
		units[i] = mapWorkUnit(row)
	}
	return units, nil
}

func (s *organizationService) SearchWorkUnits(ctx context.Context, actor *domain.User, term string) ([]*domain.WorkUnit, error) {
	const op = "organization.search_work_units"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view this organization")
	}

	rows, err := s.queries.SearchWorkUnits(ctx, actor.TenantID, foldSearchText(term))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to search work units")
	}

	units := make([]*domain.WorkUnit, len(rows))
	for i, row := range rows {
		units[i] = mapWorkUnit(row)
	}
	return units, nil
}

func (s *organizationService) UpdateWorkUnit(ctx context.Context, actor *domain.User, params domain.UpdateWorkUnitParams) error {
	const op = "organization.update_work_unit"

	row, err := s.queries.GetWorkUnitByID(ctx, params.ID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "work unit", params.ID.String())
		}
		return domain.Internal(err, op, "failed to get work unit")
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionUpdate, siteScope(actor, row.SiteID)) {
		return domain.Forbidden(op, "you cannot update this work unit")
	}
	if params.Name == "" {
		return domain.Invalid(op, "work unit name is required")
	}

	err = s.queries.UpdateWorkUnit(ctx, repository.UpdateWorkUnitParams{
		ID:          params.ID,
		TenantID:    actor.TenantID,
		Name:        params.Name,
		Description: domain.ToNullString(params.Description),
		SearchText:  foldSearchText(params.Name, params.Description),
		Headcount:   int32(params.Headcount),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to update work unit")
	}
	return nil
}

func (s *organizationService) DeleteWorkUnit(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	const op = "organization.delete_work_unit"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionDelete, tenantScope(actor)) {
		return domain.Forbidden(op, "you cannot delete work units")
	}

	if err := s.queries.DeleteWorkUnit(ctx, id, actor.TenantID); err != nil {
		return domain.Internal(err, op, "failed to delete work unit")
	}
	s.logger.Info("work unit deleted", "tenant_id", actor.TenantID, "work_unit_id", id)
	return nil
}

// =============================================================================
// Mapping helpers
// =============================================================================

func mapCompany(row repository.Company) *domain.Company {
	return &domain.Company{
		ID:        row.ID,
		TenantID:  row.TenantID,
		Name:      row.Name,
		Siret:     domain.NullStringValue(row.Siret),
		NafCode:   domain.NullStringValue(row.NafCode),
		Headcount: int(row.Headcount),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func mapSite(row repository.Site) *domain.Site {
	return &domain.Site{
		ID:        row.ID,
		TenantID:  row.TenantID,
		CompanyID: row.CompanyID,
		Name:      row.Name,
		Address:   domain.NullStringValue(row.Address),
		City:      domain.NullStringValue(row.City),
		PostCode:  domain.NullStringValue(row.PostCode),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func mapWorkUnit(row repository.WorkUnit) *domain.WorkUnit {
	return &domain.WorkUnit{
		ID:          row.ID,
		TenantID:    row.TenantID,
		SiteID:      row.SiteID,
		Name:        row.Name,
		Description: domain.NullStringValue(row.Description),
		Headcount:   int(row.Headcount),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
