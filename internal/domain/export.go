// Package domain contains core business types and interfaces.
//
// This file defines DUERP export records. Exports are generated by the
// background worker and count against the annual export quota.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExportFormat is the output format of a DUERP export.
type ExportFormat string

const (
	ExportPDF ExportFormat = "pdf"
	ExportCSV ExportFormat = "csv" // requires the export_formats feature
)

// IsValid reports whether the format is a supported export format.
func (f ExportFormat) IsValid() bool {
	return f == ExportPDF || f == ExportCSV
}

// ContentType returns the MIME type of the generated file.
func (f ExportFormat) ContentType() string {
	if f == ExportCSV {
		return "text/csv"
	}
	return "application/pdf"
}

// ExportStatus is the lifecycle state of an export job.
type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportRunning   ExportStatus = "running"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

// Export is a generated DUERP document for a company.
type Export struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CompanyID   uuid.UUID
	Format      ExportFormat
	Status      ExportStatus
	StorageKey  string // set once completed
	ErrorDetail string
	RequestedBy uuid.UUID
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// CreateExportParams contains the validated parameters for requesting an
// export.
type CreateExportParams struct {
	TenantID    uuid.UUID
	CompanyID   uuid.UUID
	Format      ExportFormat
	RequestedBy uuid.UUID
}

// ImportRecord is one processed work-unit import. Imports count against the
// monthly import quota.
type ImportRecord struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	CompanyID  uuid.UUID
	Filename   string
	RowCount   int
	ImportedBy uuid.UUID
	CreatedAt  time.Time
}

// ImportResult summarizes a completed import for the caller.
type ImportResult struct {
	Record  ImportRecord
	Created int // work units created
}
