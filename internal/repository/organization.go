package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// =============================================================================
// Companies
// =============================================================================

const companyColumns = `id, tenant_id, name, siret, naf_code, headcount, created_at, updated_at`

const createCompany = `
INSERT INTO companies (tenant_id, name, siret, naf_code, headcount)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + companyColumns

type CreateCompanyParams struct {
	TenantID  uuid.UUID
	Name      string
	Siret     sql.NullString
	NafCode   sql.NullString
	Headcount int32
}

func (q *Queries) CreateCompany(ctx context.Context, arg CreateCompanyParams) (Company, error) {
	row := q.db.QueryRowContext(ctx, createCompany, arg.TenantID, arg.Name, arg.Siret, arg.NafCode, arg.Headcount)
	return scanCompany(row)
}

const getCompanyByID = `
SELECT ` + companyColumns + `
FROM companies
WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) GetCompanyByID(ctx context.Context, id, tenantID uuid.UUID) (Company, error) {
	return scanCompany(q.db.QueryRowContext(ctx, getCompanyByID, id, tenantID))
}

const listCompaniesByTenant = `
SELECT ` + companyColumns + `
FROM companies
WHERE tenant_id = $1
ORDER BY name
`

func (q *Queries) ListCompaniesByTenant(ctx context.Context, tenantID uuid.UUID) ([]Company, error) {
	rows, err := q.db.QueryContext(ctx, listCompaniesByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Siret, &c.NafCode, &c.Headcount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

const updateCompany = `
UPDATE companies
SET name = $3, siret = $4, naf_code = $5, headcount = $6, updated_at = now()
WHERE id = $1 AND tenant_id = $2
`

type UpdateCompanyParams struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Siret     sql.NullString
	NafCode   sql.NullString
	Headcount int32
}

func (q *Queries) UpdateCompany(ctx context.Context, arg UpdateCompanyParams) error {
	_, err := q.db.ExecContext(ctx, updateCompany, arg.ID, arg.TenantID, arg.Name, arg.Siret, arg.NafCode, arg.Headcount)
	return err
}

const deleteCompany = `
DELETE FROM companies WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) DeleteCompany(ctx context.Context, id, tenantID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteCompany, id, tenantID)
	return err
}

const countCompaniesByTenant = `
SELECT count(*) FROM companies WHERE tenant_id = $1
`

func (q *Queries) CountCompaniesByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countCompaniesByTenant, tenantID).Scan(&count)
	return count, err
}

// =============================================================================
// Sites
// =============================================================================

const siteColumns = `id, tenant_id, company_id, name, address, city, post_code, created_at, updated_at`

const createSite = `
INSERT INTO sites (tenant_id, company_id, name, address, city, post_code)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + siteColumns

type CreateSiteParams struct {
	TenantID  uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Address   sql.NullString
	City      sql.NullString
	PostCode  sql.NullString
}

func (q *Queries) CreateSite(ctx context.Context, arg CreateSiteParams) (Site, error) {
	row := q.db.QueryRowContext(ctx, createSite, arg.TenantID, arg.CompanyID, arg.Name, arg.Address, arg.City, arg.PostCode)
	return scanSite(row)
}

const getSiteByID = `
SELECT ` + siteColumns + `
FROM sites
WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) GetSiteByID(ctx context.Context, id, tenantID uuid.UUID) (Site, error) {
	return scanSite(q.db.QueryRowContext(ctx, getSiteByID, id, tenantID))
}

const listSitesByTenant = `
SELECT ` + siteColumns + `
FROM sites
WHERE tenant_id = $1
ORDER BY name
`

func (q *Queries) ListSitesByTenant(ctx context.Context, tenantID uuid.UUID) ([]Site, error) {
	rows, err := q.db.QueryContext(ctx, listSitesByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.TenantID, &s.CompanyID, &s.Name, &s.Address, &s.City, &s.PostCode, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

const listSitesByCompany = `
SELECT ` + siteColumns + `
FROM sites
WHERE tenant_id = $1 AND company_id = $2
ORDER BY name
`

func (q *Queries) ListSitesByCompany(ctx context.Context, tenantID, companyID uuid.UUID) ([]Site, error) {
	rows, err := q.db.QueryContext(ctx, listSitesByCompany, tenantID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.TenantID, &s.CompanyID, &s.Name, &s.Address, &s.City, &s.PostCode, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

const updateSite = `
UPDATE sites
SET name = $3, address = $4, city = $5, post_code = $6, updated_at = now()
WHERE id = $1 AND tenant_id = $2
`

type UpdateSiteParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Address  sql.NullString
	City     sql.NullString
	PostCode sql.NullString
}

func (q *Queries) UpdateSite(ctx context.Context, arg UpdateSiteParams) error {
	_, err := q.db.ExecContext(ctx, updateSite, arg.ID, arg.TenantID, arg.Name, arg.Address, arg.City, arg.PostCode)
	return err
}

const deleteSite = `
DELETE FROM sites WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) DeleteSite(ctx context.Context, id, tenantID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteSite, id, tenantID)
	return err
}

const countSitesByTenant = `
SELECT count(*) FROM sites WHERE tenant_id = $1
`

func (q *Queries) CountSitesByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countSitesByTenant, tenantID).Scan(&count)
	return count, err
}

const countWorkUnitsBySite = `
SELECT count(*) FROM work_units WHERE site_id = $1
`

func (q *Queries) CountWorkUnitsBySite(ctx context.Context, siteID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countWorkUnitsBySite, siteID).Scan(&count)
	return count, err
}

// =============================================================================
// Work units
// =============================================================================

const workUnitColumns = `id, tenant_id, site_id, name, description, search_text, headcount, created_at, updated_at`

const createWorkUnit = `
INSERT INTO work_units (tenant_id, site_id, name, description, search_text, headcount)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + workUnitColumns

type CreateWorkUnitParams struct {
	TenantID    uuid.UUID
	SiteID      uuid.UUID
	Name        string
	Description sql.NullString
	SearchText  string
	Headcount   int32
}

func (q *Queries) CreateWorkUnit(ctx context.Context, arg CreateWorkUnitParams) (WorkUnit, error) {
	row := q.db.QueryRowContext(ctx, createWorkUnit,
		arg.TenantID, arg.SiteID, arg.Name, arg.Description, arg.SearchText, arg.Headcount)
	return scanWorkUnit(row)
}

const getWorkUnitByID = `
SELECT ` + workUnitColumns + `
FROM work_units
WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) GetWorkUnitByID(ctx context.Context, id, tenantID uuid.UUID) (WorkUnit, error) {
	return scanWorkUnit(q.db.QueryRowContext(ctx, getWorkUnitByID, id, tenantID))
}

const listWorkUnitsBySite = `
SELECT ` + workUnitColumns + `
FROM work_units
WHERE tenant_id = $1 AND site_id = $2
ORDER BY name
`

func (q *Queries) ListWorkUnitsBySite(ctx context.Context, tenantID, siteID uuid.UUID) ([]WorkUnit, error) {
	return q.queryWorkUnits(ctx, listWorkUnitsBySite, tenantID, siteID)
}

const searchWorkUnits = `
SELECT ` + workUnitColumns + `
FROM work_units
WHERE tenant_id = $1 AND search_text LIKE '%' || $2 || '%'
ORDER BY name
`

// SearchWorkUnits matches against the pre-normalized search column; the
// caller is responsible for folding accents out of the term.
func (q *Queries) SearchWorkUnits(ctx context.Context, tenantID uuid.UUID, term string) ([]WorkUnit, error) {
	return q.queryWorkUnits(ctx, searchWorkUnits, tenantID, term)
}

const updateWorkUnit = `
UPDATE work_units
SET name = $3, description = $4, search_text = $5, headcount = $6, updated_at = now()
WHERE id = $1 AND tenant_id = $2
`

type UpdateWorkUnitParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description sql.NullString
	SearchText  string
	Headcount   int32
}

func (q *Queries) UpdateWorkUnit(ctx context.Context, arg UpdateWorkUnitParams) error {
	_, err := q.db.ExecContext(ctx, updateWorkUnit,
		arg.ID, arg.TenantID, arg.Name, arg.Description, arg.SearchText, arg.Headcount)
	return err
}

const deleteWorkUnit = `
DELETE FROM work_units WHERE id = $1 AND tenant_id = $2
`

func (q *Queries) DeleteWorkUnit(ctx context.Context, id, tenantID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteWorkUnit, id, tenantID)
	return err
}

const countWorkUnitsByTenant = `
SELECT count(*) FROM work_units WHERE tenant_id = $1
`

func (q *Queries) CountWorkUnitsByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countWorkUnitsByTenant, tenantID).Scan(&count)
	return count, err
}

func (q *Queries) queryWorkUnits(ctx context.Context, query string, args ...interface{}) ([]WorkUnit, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []WorkUnit
	for rows.Next() {
		var w WorkUnit
		if err := rows.Scan(&w.ID, &w.TenantID, &w.SiteID, &w.Name, &w.Description, &w.SearchText, &w.Headcount, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		units = append(units, w)
	}
	return units, rows.Err()
}

func scanCompany(row *sql.Row) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Siret, &c.NafCode, &c.Headcount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanSite(row *sql.Row) (Site, error) {
	var s Site
	err := row.Scan(&s.ID, &s.TenantID, &s.CompanyID, &s.Name, &s.Address, &s.City, &s.PostCode, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func scanWorkUnit(row *sql.Row) (WorkUnit, error) {
	var w WorkUnit
	err := row.Scan(&w.ID, &w.TenantID, &w.SiteID, &w.Name, &w.Description, &w.SearchText, &w.Headcount, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}
