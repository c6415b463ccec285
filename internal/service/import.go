// This file implements work-unit imports from CSV files. Each processed file
// is recorded as an import event and counts against the monthly import quota;
// the import feature itself is plan-gated.
package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
)

const (
	// MaxImportRows caps a single CSV import.
	MaxImportRows = 500

	// DefaultImportListLimit caps the import history listing.
	DefaultImportListLimit = 50
)

// =============================================================================
// Interface Definition
// =============================================================================

// ImportService ingests work units from uploaded CSV files.
type ImportService interface {
	// ImportWorkUnits parses a CSV file (columns: name, description,
	// headcount) and creates a work unit per row under the given site.
	ImportWorkUnits(ctx context.Context, actor *domain.User, siteID uuid.UUID, filename string, data io.Reader) (*domain.ImportResult, error)

	// ListImports returns the tenant's import history, newest first.
	ListImports(ctx context.Context, actor *domain.User) ([]*domain.ImportRecord, error)
}

// =============================================================================
// Implementation
// =============================================================================

type importService struct {
	queries *repository.Queries
	quota   QuotaService
	catalog *domain.Catalog
	logger  *slog.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(queries *repository.Queries, quota QuotaService, catalog *domain.Catalog, logger *slog.Logger) ImportService {
	return &importService{
		queries: queries,
		quota:   quota,
		catalog: catalog,
		logger:  logger,
	}
}

// ImportWorkUnits parses the CSV and creates one work unit per row. The whole
// file is validated before any row is written.
func (s *importService) ImportWorkUnits(ctx context.Context, actor *domain.User, siteID uuid.UUID, filename string, data io.Reader) (*domain.ImportResult, error) {
	const op = "import.work_units"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionCreate, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot import work units")
	}

	site, err := s.queries.GetSiteByID(ctx, siteID, actor.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "site", siteID.String())
		}
		return nil, domain.Internal(err, op, "failed to check site")
	}

	tenant, err := s.queries.GetTenantByID(ctx, actor.TenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load tenant")
	}
	plan := domain.Plan(tenant.Plan)

	if !s.catalog.HasFeatureAccess(plan, domain.FeatureImport) {
		required := s.catalog.RequiredPlan(domain.FeatureImport)
		return nil, domain.PaymentRequired(op, "Imports require the "+s.catalog.DisplayName(required)+" plan or above")
	}

	if err := s.quota.CheckQuota(ctx, actor.TenantID, plan, domain.FeatureImportsPerMonth); err != nil {
		return nil, err
	}

	rows, err := parseWorkUnitRows(data)
	if err != nil {
		return nil, err
	}

	// The batch must fit under the work-unit ceiling before anything is
	// written.
	if limit := s.catalog.Limit(plan, domain.FeatureWorkUnits); limit != domain.Unlimited {
		used, err := s.quota.FeatureUsage(ctx, actor.TenantID, domain.FeatureWorkUnits)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to count work units")
		}
		if used+int64(len(rows)) > limit {
			return nil, domain.QuotaExceeded(op, domain.FeatureWorkUnits, used, limit)
		}
	}

	created := 0
	for _, row := range rows {
		_, err := s.queries.CreateWorkUnit(ctx, repository.CreateWorkUnitParams{
			TenantID:    actor.TenantID,
			SiteID:      site.ID,
			Name:        row.name,
			Description: domain.ToNullString(row.description),
			SearchText:  foldSearchText(row.name, row.description),
			Headcount:   int32(row.headcount),
		})
		if err != nil {
			return nil, domain.Internal(err, op, "failed to create work unit from row")
		}
		created++
	}

	record, err := s.queries.CreateImportRecord(ctx, repository.CreateImportRecordParams{
		TenantID:   actor.TenantID,
		CompanyID:  site.CompanyID,
		Filename:   filename,
		RowCount:   int32(created),
		ImportedBy: actor.ID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to record import")
	}

	s.logger.Info("work units imported",
		"tenant_id", actor.TenantID, "site_id", site.ID, "rows", created, "filename", filename)

	return &domain.ImportResult{
		Record:  mapImportRecord(record),
		Created: created,
	}, nil
}

// ListImports returns the tenant's import history, newest first.
func (s *importService) ListImports(ctx context.Context, actor *domain.User) ([]*domain.ImportRecord, error) {
	const op = "import.list"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionView, tenantScope(actor)) {
		return nil, domain.Forbidden(op, "you cannot view imports")
	}

	rows, err := s.queries.ListImportsByTenant(ctx, actor.TenantID, DefaultImportListLimit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list imports")
	}

	records := make([]*domain.ImportRecord, len(rows))
	for i, row := range rows {
		r := mapImportRecord(row)
		records[i] = &r
	}
	return records, nil
}

// =============================================================================
// CSV parsing
// =============================================================================

type workUnitRow struct {
	name        string
	description string
	headcount   int
}

// parseWorkUnitRows reads a CSV of work units. The first record is skipped
// when it looks like a header. Name is required; description and headcount
// are optional.
func parseWorkUnitRows(data io.Reader) ([]workUnitRow, error) {
	const op = "import.parse"

	reader := csv.NewReader(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []workUnitRow
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, domain.Invalid(op, "invalid CSV at line "+strconv.Itoa(line+1))
		}
		line++

		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}

		name := strings.TrimSpace(record[0])
		if name == "" {
			return nil, domain.Invalid(op, "missing work unit name at line "+strconv.Itoa(line))
		}

		row := workUnitRow{name: name}
		if len(record) > 1 {
			row.description = strings.TrimSpace(record[1])
		}
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			headcount, err := strconv.Atoi(strings.TrimSpace(record[2]))
			if err != nil || headcount < 0 {
				return nil, domain.Invalid(op, "invalid headcount at line "+strconv.Itoa(line))
			}
			row.headcount = headcount
		}
		rows = append(rows, row)

		if len(rows) > MaxImportRows {
			return nil, domain.Invalid(op, "import exceeds the "+strconv.Itoa(MaxImportRows)+" row limit")
		}
	}

	if len(rows) == 0 {
		return nil, domain.Invalid(op, "the file contains no work units")
	}
	return rows, nil
}

func mapImportRecord(row repository.ImportRecord) domain.ImportRecord {
	return domain.ImportRecord{
		ID:         row.ID,
		TenantID:   row.TenantID,
		CompanyID:  row.CompanyID,
		Filename:   row.Filename,
		RowCount:   int(row.RowCount),
		ImportedBy: row.ImportedBy,
		CreatedAt:  row.CreatedAt,
	}
}
