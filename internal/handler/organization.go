// This file implements the company / site / work-unit endpoints:
//
//	POST   /api/companies                  GET /api/companies
//	GET    /api/companies/{id}             PUT /api/companies/{id}   DELETE /api/companies/{id}
//	POST   /api/sites                      GET /api/sites
//	PUT    /api/sites/{id}                 DELETE /api/sites/{id}
//	POST   /api/work-units                 GET /api/work-units?site_id=...
//	GET    /api/work-units/search?q=...
//	GET    /api/work-units/{id}            PUT /api/work-units/{id}  DELETE /api/work-units/{id}
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

// OrganizationHandler handles the tenant's organizational structure.
type OrganizationHandler struct {
	orgs   service.OrganizationService
	logger *slog.Logger
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(orgs service.OrganizationService, logger *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, logger: logger}
}

// =============================================================================
// Response types
// =============================================================================

type companyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Siret     string    `json:"siret,omitempty"`
	NafCode   string    `json:"naf_code,omitempty"`
	Headcount int       `json:"headcount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newCompanyResponse(c *domain.Company) companyResponse {
	return companyResponse{
		ID:        c.ID,
		Name:      c.Name,
		Siret:     c.Siret,
		NafCode:   c.NafCode,
		Headcount: c.Headcount,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type siteResponse struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	PostCode  string    `json:"post_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newSiteResponse(s *domain.Site) siteResponse {
	return siteResponse{
		ID:        s.ID,
		CompanyID: s.CompanyID,
		Name:      s.Name,
		Address:   s.Address,
		City:      s.City,
		PostCode:  s.PostCode,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type workUnitResponse struct {
	ID          uuid.UUID `json:"id"`
	SiteID      uuid.UUID `json:"site_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Headcount   int       `json:"headcount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newWorkUnitResponse(wu *domain.WorkUnit) workUnitResponse {
	return workUnitResponse{
		ID:          wu.ID,
		SiteID:      wu.SiteID,
		Name:        wu.Name,
		Description: wu.Description,
		Headcount:   wu.Headcount,
		CreatedAt:   wu.CreatedAt,
		UpdatedAt:   wu.UpdatedAt,
	}
}

// =============================================================================
// Companies
// =============================================================================

type companyRequest struct {
	Name      string `json:"name"`
	Siret     string `json:"siret,omitempty"`
	NafCode   string `json:"naf_code,omitempty"`
	Headcount int    `json:"headcount"`
}

// CreateCompany creates a company, subject to the plan's company ceiling.
func (h *OrganizationHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	var req companyRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	company, err := h.orgs.CreateCompany(r.Context(), actor, domain.CreateCompanyParams{
		TenantID:  actor.TenantID,
		Name:      req.Name,
		Siret:     req.Siret,
		NafCode:   req.NafCode,
		Headcount: req.Headcount,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, newCompanyResponse(company))
}

// GetCompany returns one company.
func (h *OrganizationHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
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

	company, err := h.orgs.GetCompany(r.Context(), actor, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newCompanyResponse(company))
}

// ListCompanies returns the tenant's companies.
func (h *OrganizationHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	companies, err := h.orgs.ListCompanies(r.Context(), actor)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, newCompanyResponse(c))
	}
	respondJSON(w, http.StatusOK, map[string]any{"companies": out})
}

// UpdateCompany updates a company's identity fields.
func (h *OrganizationHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
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

	var req companyRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err = h.orgs.UpdateCompany(r.Context(), actor, domain.UpdateCompanyParams{
		ID:        id,
		TenantID:  actor.TenantID,
		Name:      req.Name,
		Siret:     req.Siret,
		NafCode:   req.NafCode,
		Headcount: req.Headcount,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteCompany removes a company and everything under it.
func (h *OrganizationHandler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
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

	if err := h.orgs.DeleteCompany(r.Context(), actor, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// Sites
// =============================================================================

type siteRequest struct {
	CompanyID string `json:"company_id,omitempty"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	PostCode  string `json:"post_code,omitempty"`
}

// CreateSite creates a site under a company.
func (h *OrganizationHandler) CreateSite(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	var req siteRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_site", "A valid company_id is required"))
		return
	}

	site, err := h.orgs.CreateSite(r.Context(), actor, domain.CreateSiteParams{
		TenantID:  actor.TenantID,
		CompanyID: companyID,
		Name:      req.Name,
		Address:   req.Address,
		City:      req.City,
		PostCode:  req.PostCode,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, newSiteResponse(site))
}

// ListSites returns the tenant's sites.
func (h *OrganizationHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	sites, err := h.orgs.ListSites(r.Context(), actor)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]siteResponse, 0, len(sites))
	for _, s := range sites {
		out = append(out, newSiteResponse(s))
	}
	respondJSON(w, http.StatusOK, map[string]any{"sites": out})
}

// UpdateSite updates a site's address fields.
func (h *OrganizationHandler) UpdateSite(w http.ResponseWriter, r *http.Request) {
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

	var req siteRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err = h.orgs.UpdateSite(r.Context(), actor, domain.UpdateSiteParams{
		ID:       id,
		TenantID: actor.TenantID,
		Name:     req.Name,
		Address:  req.Address,
		City:     req.City,
		PostCode: req.PostCode,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteSite removes an empty site. Sites that still hold work units are
// refused with a conflict.
func (h *OrganizationHandler) DeleteSite(w http.ResponseWriter, r *http.Request) {
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

	if err := h.orgs.DeleteSite(r.Context(), actor, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// Work units
// =============================================================================

type workUnitRequest struct {
	SiteID      string `json:"site_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Headcount   int    `json:"headcount"`
}

// CreateWorkUnit creates a work unit under a site.
func (h *OrganizationHandler) CreateWorkUnit(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	var req workUnitRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	siteID, err := uuid.Parse(req.SiteID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.create_work_unit", "A valid site_id is required"))
		return
	}

	unit, err := h.orgs.CreateWorkUnit(r.Context(), actor, domain.CreateWorkUnitParams{
		TenantID:    actor.TenantID,
		SiteID:      siteID,
		Name:        req.Name,
		Description: req.Description,
		Headcount:   req.Headcount,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, newWorkUnitResponse(unit))
}

// GetWorkUnit returns one work unit.
func (h *OrganizationHandler) GetWorkUnit(w http.ResponseWriter, r *http.Request) {
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

	unit, err := h.orgs.GetWorkUnit(r.Context(), actor, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newWorkUnitResponse(unit))
}

// ListWorkUnits returns the work units of a site (?site_id=...).
func (h *OrganizationHandler) ListWorkUnits(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	siteID, err := uuid.Parse(r.URL.Query().Get("site_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.list_work_units", "A valid site_id query parameter is required"))
		return
	}

	units, err := h.orgs.ListWorkUnits(r.Context(), actor, siteID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]workUnitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, newWorkUnitResponse(u))
	}
	respondJSON(w, http.StatusOK, map[string]any{"work_units": out})
}

// SearchWorkUnits matches work units by name, accent-insensitively
// ("échafaudage" finds "Echafaudage").
func (h *OrganizationHandler) SearchWorkUnits(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	term := r.URL.Query().Get("q")

	units, err := h.orgs.SearchWorkUnits(r.Context(), actor, term)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]workUnitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, newWorkUnitResponse(u))
	}
	respondJSON(w, http.StatusOK, map[string]any{"work_units": out})
}

// UpdateWorkUnit updates a work unit.
func (h *OrganizationHandler) UpdateWorkUnit(w http.ResponseWriter, r *http.Request) {
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

	var req workUnitRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err = h.orgs.UpdateWorkUnit(r.Context(), actor, domain.UpdateWorkUnitParams{
		ID:          id,
		TenantID:    actor.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Headcount:   req.Headcount,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteWorkUnit removes a work unit and its evaluations.
func (h *OrganizationHandler) DeleteWorkUnit(w http.ResponseWriter, r *http.Request) {
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

	if err := h.orgs.DeleteWorkUnit(r.Context(), actor, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
