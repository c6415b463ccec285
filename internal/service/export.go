// Package service contains the business logic layer.
//
// This file implements the DUERP export service. Requests are recorded as
// pending export rows and handed to the background worker; the annual quota
// counts requests, not completions.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
	"github.com/jbaudry/previsk/internal/storage"
	"github.com/jbaudry/previsk/internal/worker"
)

// DefaultExportListLimit caps the export history listing.
const DefaultExportListLimit = 50

// =============================================================================
// Interface Definition
// =============================================================================

// ExportService manages DUERP export requests and their artifacts.
type ExportService interface {
	// Create records an export request and enqueues the generation job.
	Create(ctx context.Context, actor *domain.User, params domain.CreateExportParams) (*domain.Export, error)

	Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Export, error)
	List(ctx context.Context, actor *domain.User) ([]*domain.Export, error)

	// DownloadURL returns a short-lived URL for a completed export's file.
	DownloadURL(ctx context.Context, actor *domain.User, id uuid.UUID) (string, error)
}

// =============================================================================
// Implementation
// =============================================================================

type exportService struct {
	queries *repository.Queries
	quota   QuotaService
	files   storage.Storage
	catalog *domain.Catalog
	logger  *slog.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(queries *repository.Queries, quota QuotaService, files storage.Storage, catalog *domain.Catalog, logger *slog.Logger) ExportService {
	return &exportService{
		queries: queries,
		quota:   quota,
		files:   files,
		catalog: catalog,
		logger:  logger,
	}
}

// Create records an export request and enqueues the generation job. PDF is
// available on every plan; CSV needs the export_formats feature.
func (s *exportService) Create(ctx context.Context, actor *domain.User, params domain.CreateExportParams) (*domain.Export, error) {
	const op = "export.create"

	switch params.Format {
	case domain.ExportPDF, domain.ExportCSV:
	default:
		return nil, domain.Invalid(op, "unknown export format")
	}

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceExports, domain.ActionCreate, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot request exports")
	}

	if _, err := s.queries.GetCompanyByID(ctx, params.CompanyID, actor.TenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "company", params.CompanyID.String())
		}
		return nil, domain.Internal(err, op, "failed to check company")
	}

	tenant, err := s.queries.GetTenantByID(ctx, actor.TenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load tenant")
	}
	plan := domain.Plan(tenant.Plan)

	if params.Format != domain.ExportPDF && !s.catalog.HasFeatureAccess(plan, domain.FeatureExportFormats) {
		required := s.catalog.RequiredPlan(domain.FeatureExportFormats)
		return nil, domain.PaymentRequired(op, string(params.Format)+" export requires the "+s.catalog.DisplayName(required)+" plan or above")
	}

	if err := s.quota.CheckQuota(ctx, actor.TenantID, plan, domain.FeatureExportsPerYear); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateExport(ctx, repository.CreateExportParams{
		TenantID:    actor.TenantID,
		CompanyID:   params.CompanyID,
		Format:      string(params.Format),
		RequestedBy: actor.ID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create export")
	}

	_, err = worker.EnqueueGenerateExport(ctx, s.queries, worker.GenerateExportPayload{
		ExportID:  row.ID,
		TenantID:  actor.TenantID,
		CompanyID: params.CompanyID,
		UserID:    actor.ID,
		Format:    string(params.Format),
	})
	if err != nil {
		// The row stays pending; a failed enqueue is surfaced so the client
		// does not wait on a job that will never run.
		if markErr := s.queries.MarkExportFailed(ctx, row.ID, "failed to enqueue generation job"); markErr != nil {
			s.logger.Error("failed to mark export failed", "export_id", row.ID, "error", markErr)
		}
		return nil, domain.Internal(err, op, "failed to enqueue export job")
	}

	s.logger.Info("export requested", "tenant_id", actor.TenantID, "export_id", row.ID, "format", row.Format)
	return mapExport(row), nil
}

// Get retrieves an export record.
func (s *exportService) Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Export, error) {
	const op = "export.get"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceExports, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view exports")
	}

	row, err := s.queries.GetExportByID(ctx, id, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "export", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get export")
	}
	return mapExport(row), nil
}

// List returns the tenant's export history, newest first.
func (s *exportService) List(ctx context.Context, actor *domain.User) ([]*domain.Export, error) {
	const op = "export.list"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceExports, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view exports")
	}

	rows, err := s.queries.ListExportsByTenant(ctx, actor.TenantID, DefaultExportListLimit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list exports")
	}

	exports := make([]*domain.Export, len(rows))
	for i, row := range rows {
		exports[i] = mapExport(row)
	}
	return exports, nil
}

// DownloadURL returns a short-lived URL for a completed export's file.
func (s *exportService) DownloadURL(ctx context.Context, actor *domain.User, id uuid.UUID) (string, error) {
	const op = "export.download_url"

	export, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if export.Status != domain.ExportCompleted || export.StorageKey == "" {
		return "", domain.Conflict(op, "export is not ready for download")
	}

	url, err := s.files.URL(ctx, export.StorageKey, storage.DefaultURLExpiry)
	if err != nil {
		return "", domain.Internal(err, op, "failed to sign download URL")
	}
	return url, nil
}

// =============================================================================
// Mapping helpers
// =============================================================================

func mapExport(row repository.Export) *domain.Export {
	return &domain.Export{
		ID:          row.ID,
		TenantID:    row.TenantID,
		CompanyID:   row.CompanyID,
		Format:      domain.ExportFormat(row.Format),
		Status:      domain.ExportStatus(row.Status),
		StorageKey:  domain.NullStringValue(row.StorageKey),
		ErrorDetail: domain.NullStringValue(row.ErrorMessage),
		RequestedBy: row.RequestedBy,
		CreatedAt:   row.CreatedAt,
		CompletedAt: domain.NullTimeValue(row.CompletedAt),
	}
}
