// Package domain contains core business types and interfaces.
//
// This file defines the organization hierarchy the DUERP is built on:
// company -> site -> work unit.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Company is a legal entity within a tenant. Most tenants have exactly one;
// multi-company tenants appear on the business plan and above.
type Company struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Siret     string // 14-digit establishment number, optional
	NafCode   string // activity code, optional
	Headcount int    // drives PAPRIPACT obligation (>= 50 staff)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RequiresPapripact reports whether the company must maintain a PAPRIPACT
// (mandatory above 50 staff).
func (c *Company) RequiresPapripact() bool {
	return c.Headcount >= 50
}

// Site is a physical location belonging to a company.
type Site struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Address   string
	City      string
	PostCode  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkUnit is an "unité de travail": the grouping of workers exposed to
// similar risks that the DUERP is organized around.
type WorkUnit struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	SiteID      uuid.UUID
	Name        string
	Description string
	Headcount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateCompanyParams contains the validated parameters for company creation.
type CreateCompanyParams struct {
	TenantID  uuid.UUID
	Name      string
	Siret     string
	NafCode   string
	Headcount int
}

// UpdateCompanyParams contains the parameters for updating a company.
type UpdateCompanyParams struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Siret     string
	NafCode   string
	Headcount int
}

// CreateSiteParams contains the validated parameters for site creation.
type CreateSiteParams struct {
	TenantID  uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Address   string
	City      string
	PostCode  string
}

// UpdateSiteParams contains the parameters for updating a site.
type UpdateSiteParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Address  string
	City     string
	PostCode string
}

// CreateWorkUnitParams contains the validated parameters for work unit
// creation.
type CreateWorkUnitParams struct {
	TenantID    uuid.UUID
	SiteID      uuid.UUID
	Name        string
	Description string
	Headcount   int
}

// UpdateWorkUnitParams contains the parameters for updating a work unit.
type UpdateWorkUnitParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description string
	Headcount   int
}
