// Package service contains the business logic layer.
//
// This file implements the quota monitor: a periodic sweep over every tenant
// that classifies feature usage against plan limits and notifies tenant
// administrators by email when a threshold is crossed.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/email"
	"github.com/jbaudry/previsk/internal/metrics"
	"github.com/jbaudry/previsk/internal/repository"
)

// DefaultAlertDedupWindow is how long a sent alert suppresses an identical
// one for the same tenant, feature and severity band.
const DefaultAlertDedupWindow = 24 * time.Hour

// =============================================================================
// Interface Definition
// =============================================================================

// MonitorService runs the quota sweep. It is invoked by an external scheduler
// (cron calling the quotacheck binary) rather than an in-process timer.
type MonitorService interface {
	// RunQuotaCheck sweeps every tenant once. Per-tenant and per-feature
	// failures are logged and counted but do not stop the sweep; the returned
	// error is non-nil only when the sweep itself cannot proceed.
	RunQuotaCheck(ctx context.Context) (MonitorReport, error)
}

// MonitorReport summarizes one sweep for logging and the quotacheck exit path.
type MonitorReport struct {
	TenantsChecked int
	AlertsSent     int
	AlertsSkipped  int // suppressed by the dedup window
	Errors         int
}

// MonitorStore is the slice of the repository the monitor needs.
// *repository.Queries satisfies it.
type MonitorStore interface {
	ListTenants(ctx context.Context) ([]repository.Tenant, error)
	ListAdminUsersByTenant(ctx context.Context, tenantID uuid.UUID) ([]repository.User, error)
	HasRecentEmail(ctx context.Context, arg repository.HasRecentEmailParams) (bool, error)
	InsertEmailLog(ctx context.Context, arg repository.InsertEmailLogParams) (repository.EmailLog, error)
}

// UsageReader reports current usage for a metered feature. QuotaService
// satisfies it.
type UsageReader interface {
	FeatureUsage(ctx context.Context, tenantID uuid.UUID, feature domain.FeatureKey) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type monitorService struct {
	store       MonitorStore
	usage       UsageReader
	emails      email.EmailService
	catalog     *domain.Catalog
	dedupWindow time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewMonitorService creates a MonitorService. A non-positive dedupWindow
// falls back to DefaultAlertDedupWindow.
func NewMonitorService(
	store MonitorStore,
	usage UsageReader,
	emails email.EmailService,
	catalog *domain.Catalog,
	dedupWindow time.Duration,
	logger *slog.Logger,
) MonitorService {
	if dedupWindow <= 0 {
		dedupWindow = DefaultAlertDedupWindow
	}
	return &monitorService{
		store:       store,
		usage:       usage,
		emails:      emails,
		catalog:     catalog,
		dedupWindow: dedupWindow,
		now:         time.Now,
		logger:      logger,
	}
}

// RunQuotaCheck sweeps every tenant once.
func (s *monitorService) RunQuotaCheck(ctx context.Context) (MonitorReport, error) {
	const op = "monitor.run_quota_check"

	var report MonitorReport

	tenants, err := s.store.ListTenants(ctx)
	if err != nil {
		return report, domain.Internal(err, op, "failed to list tenants")
	}

	for _, tenant := range tenants {
		report.TenantsChecked++
		s.checkTenant(ctx, tenant, &report)
	}

	s.logger.Info("quota sweep finished",
		"tenants", report.TenantsChecked,
		"alerts_sent", report.AlertsSent,
		"alerts_skipped", report.AlertsSkipped,
		"errors", report.Errors,
	)

	return report, nil
}

// checkTenant classifies every metered feature of one tenant and sends the
// alerts that are due. Errors are logged and counted, never propagated, so a
// broken tenant does not starve the rest of the sweep.
func (s *monitorService) checkTenant(ctx context.Context, tenant repository.Tenant, report *MonitorReport) {
	plan := domain.Plan(tenant.Plan)
	logger := s.logger.With("tenant_id", tenant.ID, "plan", tenant.Plan)

	for _, mf := range domain.MeteredFeatures() {
		limit := s.catalog.Limit(plan, mf.Key)
		if limit == domain.Unlimited {
			continue
		}

		current, err := s.usage.FeatureUsage(ctx, tenant.ID, mf.Key)
		if err != nil {
			logger.Error("failed to read feature usage", "feature", mf.Key, "error", err)
			report.Errors++
			continue
		}

		status := domain.NewQuotaStatus(mf.Key, limit, current)
		if !status.NeedsAlert() {
			continue
		}

		if err := s.sendAlert(ctx, tenant, plan, status, report, logger); err != nil {
			logger.Error("failed to send quota alert", "feature", mf.Key, "error", err)
			report.Errors++
		}
	}
}

// sendAlert delivers one alert to every administrator of the tenant, unless
// an identical alert went out inside the dedup window.
func (s *monitorService) sendAlert(
	ctx context.Context,
	tenant repository.Tenant,
	plan domain.Plan,
	status domain.QuotaStatus,
	report *MonitorReport,
	logger *slog.Logger,
) error {
	template := status.AlertTemplate()
	feature := sql.NullString{String: string(status.Feature), Valid: true}

	recent, err := s.store.HasRecentEmail(ctx, repository.HasRecentEmailParams{
		TenantID:   tenant.ID,
		TemplateID: string(template),
		Feature:    feature,
		Since:      s.now().Add(-s.dedupWindow),
	})
	if err != nil {
		return err
	}
	if recent {
		report.AlertsSkipped++
		return nil
	}

	admins, err := s.store.ListAdminUsersByTenant(ctx, tenant.ID)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		logger.Warn("no administrators to notify", "feature", status.Feature)
		return nil
	}

	upgrade := ""
	if next, ok := domain.UpgradePlan(plan); ok {
		upgrade = s.catalog.DisplayName(next)
	}

	alert := email.QuotaAlert{
		Template:     template,
		FeatureLabel: status.Feature.Label(),
		PlanName:     s.catalog.DisplayName(plan),
		Limit:        status.Limit,
		Current:      status.Current,
		Percentage:   status.Percentage,
		UpgradePlan:  upgrade,
	}

	sent := 0
	for _, admin := range admins {
		name := admin.Email
		if admin.Name.Valid && admin.Name.String != "" {
			name = admin.Name.String
		}
		if err := s.emails.SendQuotaAlertEmail(ctx, admin.Email, name, alert); err != nil {
			logger.Error("failed to email administrator", "recipient", admin.Email, "error", err)
			report.Errors++
			continue
		}
		sent++

		if _, err := s.store.InsertEmailLog(ctx, repository.InsertEmailLogParams{
			TenantID:   tenant.ID,
			Recipient:  admin.Email,
			TemplateID: string(template),
			Feature:    feature,
		}); err != nil {
			logger.Error("failed to record email log", "recipient", admin.Email, "error", err)
			report.Errors++
		}
	}

	if sent > 0 {
		report.AlertsSent++
		metrics.QuotaAlertsSent.WithLabelValues(string(template)).Inc()
		logger.Info("quota alert sent",
			"feature", status.Feature,
			"template", template,
			"recipients", sent,
			"percentage", status.Percentage,
		)
	}
	return nil
}
