// Package jobs contains the background job handlers run by the worker pool.
package jobs

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/email"
	"github.com/jbaudry/previsk/internal/metrics"
	"github.com/jbaudry/previsk/internal/report"
	"github.com/jbaudry/previsk/internal/repository"
	"github.com/jbaudry/previsk/internal/storage"
	"github.com/jbaudry/previsk/internal/worker"
)

// GenerateExportHandler processes jobs that build DUERP export files.
// It assembles the company's risk inventory, renders it in the requested
// format and uploads the result to storage.
type GenerateExportHandler struct {
	queries      *repository.Queries
	storage      storage.Storage
	emailService email.EmailService
	pdfGen       report.Generator
	csvGen       report.Generator
	logger       *slog.Logger
	baseURL      string
}

// NewGenerateExportHandler creates a new handler for export generation jobs.
func NewGenerateExportHandler(
	queries *repository.Queries,
	storage storage.Storage,
	emailService email.EmailService,
	logger *slog.Logger,
	baseURL string,
) *GenerateExportHandler {
	return &GenerateExportHandler{
		queries:      queries,
		storage:      storage,
		emailService: emailService,
		pdfGen:       report.NewPDFGenerator(),
		csvGen:       report.NewCSVGenerator(),
		logger:       logger,
		baseURL:      baseURL,
	}
}

// Type returns the job type identifier.
func (h *GenerateExportHandler) Type() string {
	return worker.JobTypeGenerateExport
}

// Handle executes the export generation job.
func (h *GenerateExportHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.GenerateExportPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	format := domain.ExportFormat(p.Format)
	if !format.IsValid() {
		return worker.NewPermanentError(fmt.Errorf("invalid format: %s (must be 'pdf' or 'csv')", p.Format))
	}

	h.logger.Info("Generating DUERP export",
		"export_id", p.ExportID,
		"company_id", p.CompanyID,
		"format", p.Format,
	)

	export, err := h.queries.GetExportByID(ctx, p.ExportID, p.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("export not found: %s", p.ExportID))
		}
		return fmt.Errorf("fetch export: %w", err)
	}
	if export.Status == string(domain.ExportCompleted) {
		// Duplicate delivery of the job, nothing left to do.
		return nil
	}

	if err := h.queries.MarkExportRunning(ctx, p.ExportID); err != nil {
		return fmt.Errorf("mark export running: %w", err)
	}

	data, err := h.assembleData(ctx, p)
	if err != nil {
		return h.fail(ctx, p.ExportID, "failed to assemble DUERP data", err)
	}

	var gen report.Generator
	if format == domain.ExportPDF {
		gen = h.pdfGen
	} else {
		gen = h.csvGen
	}

	var buf bytes.Buffer
	bytesWritten, err := gen.Generate(ctx, data, &buf)
	if err != nil {
		return h.fail(ctx, p.ExportID, "failed to generate document", err)
	}

	h.logger.Info("DUERP document generated",
		"export_id", p.ExportID,
		"format", format,
		"size_bytes", bytesWritten,
		"risk_count", data.TotalRisks(),
	)

	storageKey := storage.ExportKey(p.TenantID, p.Format)
	err = h.storage.Put(ctx, storageKey, &buf, storage.PutOptions{
		ContentType: format.ContentType(),
		Overwrite:   true,
	})
	if err != nil {
		return h.fail(ctx, p.ExportID, "failed to upload document", err)
	}

	if err := h.queries.MarkExportCompleted(ctx, p.ExportID, storageKey); err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}

	metrics.ExportsGenerated.WithLabelValues(p.Format).Inc()

	// Email notification is best effort - the export itself succeeded.
	h.notifyRequester(ctx, p)

	h.logger.Info("Export generation completed",
		"export_id", p.ExportID,
		"storage_key", storageKey,
		"format", format,
	)

	return nil
}

// fail records the failure on the export row and returns the job error.
// A retried job flips the row back to completed if the retry succeeds.
func (h *GenerateExportHandler) fail(ctx context.Context, exportID uuid.UUID, message string, err error) error {
	if markErr := h.queries.MarkExportFailed(ctx, exportID, message); markErr != nil {
		h.logger.Error("Failed to mark export failed",
			"export_id", exportID,
			"error", markErr,
		)
	}
	return fmt.Errorf("%s: %w", message, err)
}

// assembleData builds the report snapshot: the company's sites, their work
// units, each unit's evaluations and each evaluation's actions.
func (h *GenerateExportHandler) assembleData(ctx context.Context, p worker.GenerateExportPayload) (*report.DUERPData, error) {
	company, err := h.queries.GetCompanyByID(ctx, p.CompanyID, p.TenantID)
	if err != nil {
		return nil, fmt.Errorf("fetch company: %w", err)
	}

	sites, err := h.queries.ListSitesByCompany(ctx, p.TenantID, p.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("fetch sites: %w", err)
	}

	evaluations, err := h.queries.ListEvaluationsByCompany(ctx, p.TenantID, p.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("fetch evaluations: %w", err)
	}
	evalsByUnit := make(map[uuid.UUID][]repository.RiskEvaluation)
	for _, e := range evaluations {
		evalsByUnit[e.WorkUnitID] = append(evalsByUnit[e.WorkUnitID], e)
	}

	actions, err := h.queries.ListActionsByCompany(ctx, p.TenantID, p.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("fetch actions: %w", err)
	}
	actionsByEval := make(map[uuid.UUID][]domain.ActionPlan)
	for _, a := range actions {
		actionsByEval[a.EvaluationID] = append(actionsByEval[a.EvaluationID], reportAction(a))
	}

	participation, err := h.queries.ListParticipationByCompany(ctx, p.TenantID, p.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("fetch participation: %w", err)
	}

	reportSites := make([]report.DUERPSite, 0, len(sites))
	for _, site := range sites {
		units, err := h.queries.ListWorkUnitsBySite(ctx, p.TenantID, site.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch work units for site %s: %w", site.ID, err)
		}

		reportUnits := make([]report.DUERPWorkUnit, 0, len(units))
		for _, unit := range units {
			unitEvals := evalsByUnit[unit.ID]
			risks := make([]report.DUERPRisk, 0, len(unitEvals))
			for _, e := range unitEvals {
				risks = append(risks, report.DUERPRisk{
					Evaluation: reportEvaluation(e),
					Actions:    actionsByEval[e.ID],
				})
			}
			reportUnits = append(reportUnits, report.DUERPWorkUnit{
				Name:        unit.Name,
				Description: domain.NullStringValue(unit.Description),
				Headcount:   int(unit.Headcount),
				Risks:       risks,
			})
		}

		reportSites = append(reportSites, report.DUERPSite{
			Name:      site.Name,
			Address:   domain.NullStringValue(site.Address),
			City:      domain.NullStringValue(site.City),
			PostCode:  domain.NullStringValue(site.PostCode),
			WorkUnits: reportUnits,
		})
	}

	generatedBy := ""
	if user, err := h.queries.GetUserByID(ctx, p.UserID); err == nil {
		generatedBy = domain.NullStringValue(user.Name)
		if generatedBy == "" {
			generatedBy = user.Email
		}
	} else {
		h.logger.Warn("Failed to fetch requesting user",
			"user_id", p.UserID,
			"error", err,
		)
	}

	entries := make([]domain.ParticipationEntry, 0, len(participation))
	for _, entry := range participation {
		entries = append(entries, domain.ParticipationEntry{
			ID:          entry.ID,
			TenantID:    entry.TenantID,
			CompanyID:   entry.CompanyID,
			Kind:        domain.ParticipationKind(entry.Kind),
			Description: entry.Description,
			OccurredOn:  entry.OccurredOn,
			RecordedBy:  entry.RecordedBy,
			CreatedAt:   entry.CreatedAt,
		})
	}

	return &report.DUERPData{
		CompanyName:   company.Name,
		Siret:         domain.NullStringValue(company.Siret),
		NafCode:       domain.NullStringValue(company.NafCode),
		Headcount:     int(company.Headcount),
		GeneratedAt:   time.Now(),
		GeneratedBy:   generatedBy,
		Sites:         reportSites,
		Participation: entries,
	}, nil
}

// notifyRequester emails the requesting user a link to the export listing.
func (h *GenerateExportHandler) notifyRequester(ctx context.Context, p worker.GenerateExportPayload) {
	if h.emailService == nil {
		return
	}

	user, err := h.queries.GetUserByID(ctx, p.UserID)
	if err != nil {
		h.logger.Warn("Failed to fetch user for export notification",
			"user_id", p.UserID,
			"error", err,
		)
		return
	}

	name := domain.NullStringValue(user.Name)
	downloadURL := fmt.Sprintf("%s/exports/%s", h.baseURL, p.ExportID)
	if err := h.emailService.SendExportReadyEmail(ctx, user.Email, name, downloadURL); err != nil {
		h.logger.Error("Failed to send export ready email",
			"user_id", p.UserID,
			"export_id", p.ExportID,
			"error", err,
		)
		return
	}
	h.logger.Info("Export ready email sent",
		"user_id", p.UserID,
		"export_id", p.ExportID,
	)
}

// =============================================================================
// Row conversion
// =============================================================================

func reportEvaluation(row repository.RiskEvaluation) domain.RiskEvaluation {
	return domain.RiskEvaluation{
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

func reportAction(row repository.ActionPlan) domain.ActionPlan {
	return domain.ActionPlan{
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
