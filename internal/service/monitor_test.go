package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/email"
	"github.com/jbaudry/previsk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeMonitorStore struct {
	tenants []repository.Tenant
	admins  map[uuid.UUID][]repository.User
	recent  map[string]bool
	logs    []repository.InsertEmailLogParams
}

func dedupKey(tenantID uuid.UUID, templateID, feature string) string {
	return fmt.Sprintf("%s|%s|%s", tenantID, templateID, feature)
}

func (f *fakeMonitorStore) ListTenants(ctx context.Context) ([]repository.Tenant, error) {
	return f.tenants, nil
}

func (f *fakeMonitorStore) ListAdminUsersByTenant(ctx context.Context, tenantID uuid.UUID) ([]repository.User, error) {
	return f.admins[tenantID], nil
}

func (f *fakeMonitorStore) HasRecentEmail(ctx context.Context, arg repository.HasRecentEmailParams) (bool, error) {
	return f.recent[dedupKey(arg.TenantID, arg.TemplateID, arg.Feature.String)], nil
}

func (f *fakeMonitorStore) InsertEmailLog(ctx context.Context, arg repository.InsertEmailLogParams) (repository.EmailLog, error) {
	f.logs = append(f.logs, arg)
	return repository.EmailLog{}, nil
}

type fakeUsage struct {
	counts map[string]int64
	errs   map[string]error
	reads  []domain.FeatureKey
}

func usageKey(tenantID uuid.UUID, feature domain.FeatureKey) string {
	return fmt.Sprintf("%s|%s", tenantID, feature)
}

func (f *fakeUsage) FeatureUsage(ctx context.Context, tenantID uuid.UUID, feature domain.FeatureKey) (int64, error) {
	f.reads = append(f.reads, feature)
	if err := f.errs[usageKey(tenantID, feature)]; err != nil {
		return 0, err
	}
	return f.counts[usageKey(tenantID, feature)], nil
}

type sentAlert struct {
	to    string
	alert email.QuotaAlert
}

type fakeEmailer struct {
	sent []sentAlert
	err  error
}

func (f *fakeEmailer) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	return nil
}

func (f *fakeEmailer) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	return nil
}

func (f *fakeEmailer) SendQuotaAlertEmail(ctx context.Context, to, name string, alert email.QuotaAlert) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentAlert{to: to, alert: alert})
	return nil
}

func (f *fakeEmailer) SendExportReadyEmail(ctx context.Context, to, name, downloadURL string) error {
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func newTestMonitor(store *fakeMonitorStore, usage *fakeUsage, emailer *fakeEmailer) MonitorService {
	return NewMonitorService(store, usage, emailer, domain.DefaultCatalog(), 24*time.Hour, slog.Default())
}

func adminUser(tenantID uuid.UUID, addr string) repository.User {
	return repository.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    addr,
		Roles:    []string{"admin"},
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestRunQuotaCheckSendsCriticalAlert(t *testing.T) {
	tenantID := uuid.New()
	store := &fakeMonitorStore{
		tenants: []repository.Tenant{{ID: tenantID, Plan: "business"}},
		admins:  map[uuid.UUID][]repository.User{tenantID: {adminUser(tenantID, "admin@acme.fr")}},
		recent:  map[string]bool{},
	}
	// Business allows 100 AI risk suggestions per month; 95 is in the
	// critical band.
	usage := &fakeUsage{counts: map[string]int64{
		usageKey(tenantID, domain.FeatureAIRisksPerMonth): 95,
	}}
	emailer := &fakeEmailer{}

	report, err := newTestMonitor(store, usage, emailer).RunQuotaCheck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.TenantsChecked)
	assert.Equal(t, 1, report.AlertsSent)
	assert.Equal(t, 0, report.Errors)

	require.Len(t, emailer.sent, 1)
	got := emailer.sent[0]
	assert.Equal(t, "admin@acme.fr", got.to)
	assert.Equal(t, domain.TemplateQuotaCritical, got.alert.Template)
	assert.Equal(t, int64(95), got.alert.Current)
	assert.Equal(t, int64(100), got.alert.Limit)
	assert.Equal(t, "Premium", got.alert.UpgradePlan)

	require.Len(t, store.logs, 1)
	assert.Equal(t, string(domain.TemplateQuotaCritical), store.logs[0].TemplateID)
	assert.Equal(t, string(domain.FeatureAIRisksPerMonth), store.logs[0].Feature.String)
}

func TestRunQuotaCheckDeduplicatesAlerts(t *testing.T) {
	tenantID := uuid.New()
	store := &fakeMonitorStore{
		tenants: []repository.Tenant{{ID: tenantID, Plan: "business"}},
		admins:  map[uuid.UUID][]repository.User{tenantID: {adminUser(tenantID, "admin@acme.fr")}},
		recent: map[string]bool{
			dedupKey(tenantID, string(domain.TemplateQuotaCritical), string(domain.FeatureAIRisksPerMonth)): true,
		},
	}
	usage := &fakeUsage{counts: map[string]int64{
		usageKey(tenantID, domain.FeatureAIRisksPerMonth): 95,
	}}
	emailer := &fakeEmailer{}

	report, err := newTestMonitor(store, usage, emailer).RunQuotaCheck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.AlertsSent)
	assert.Equal(t, 1, report.AlertsSkipped)
	assert.Empty(t, emailer.sent)
	assert.Empty(t, store.logs)
}

func TestRunQuotaCheckEscalationUsesSeparateTemplates(t *testing.T) {
	// A warning sent yesterday must not suppress today's critical alert:
	// dedup is keyed by template, and each band has its own.
	tenantID := uuid.New()
	store := &fakeMonitorStore{
		tenants: []repository.Tenant{{ID: tenantID, Plan: "business"}},
		admins:  map[uuid.UUID][]repository.User{tenantID: {adminUser(tenantID, "admin@acme.fr")}},
		recent: map[string]bool{
			dedupKey(tenantID, string(domain.TemplateQuotaWarning), string(domain.FeatureAIRisksPerMonth)): true,
		},
	}
	usage := &fakeUsage{counts: map[string]int64{
		usageKey(tenantID, domain.FeatureAIRisksPerMonth): 95,
	}}
	emailer := &fakeEmailer{}

	report, err := newTestMonitor(store, usage, emailer).RunQuotaCheck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.AlertsSent)
	require.Len(t, emailer.sent, 1)
	assert.Equal(t, domain.TemplateQuotaCritical, emailer.sent[0].alert.Template)
}

func TestRunQuotaCheckSkipsUnlimitedFeatures(t *testing.T) {
	tenantID := uuid.New()
	store := &fakeMonitorStore{
		tenants: []repository.Tenant{{ID: tenantID, Plan: "entreprise"}},
		admins:  map[uuid.UUID][]repository.User{tenantID: {adminUser(tenantID, "admin@acme.fr")}},
		recent:  map[string]bool{},
	}
	usage := &fakeUsage{counts: map[string]int64{}}
	emailer := &fakeEmailer{}

	report, err := newTestMonitor(store, usage, emailer).RunQuotaCheck(context.Background())
	require.NoError(t, err)

	// Every entreprise limit is unlimited, so no usage is ever read.
	assert.Empty(t, usage.reads)
	assert.Equal(t, 0, report.AlertsSent)
	assert.Empty(t, emailer.sent)
}

func TestRunQuotaCheckNoAlertAtExactLimit(t *testing.T) {
	tenantID := uuid.New()
	store := &fakeMonitorStore{
		tenants: []repository.Tenant{{ID: tenantID, Plan: "business"}},
		admins:  map[uuid.UUID][]repository.User{tenantID: {adminUser(tenantID, "admin@acme.fr")}},
		recent:  map[string]bool{},
	}
	usage := &fakeUsage{counts: map[string]int64{
		usageKey(tenantID, domain.FeatureAIRisksPerMonth): 100,
	}}
	emailer := &fakeEmailer{}

	report, err := newTestMonitor(store, usage, emailer).RunQuotaCheck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.AlertsSent)
	assert.Empty(t, emailer.sent)
}

func TestRunQuotaCheckContinuesAfterUsageError(t *testing.T) {
	tenantID := uuid.New()
	store := &fakeMonitorStore{
		tenants: []repository.Tenant{{ID: tenantID, Plan: "business"}},
		admins:  map[uuid.UUID][]repository.User{tenantID: {adminUser(tenantID, "admin@acme.fr")}},
		recent:  map[string]bool{},
	}
	usage := &fakeUsage{
		counts: map[string]int64{
			usageKey(tenantID, domain.FeatureAIRisksPerMonth): 95,
		},
		errs: map[string]error{
			usageKey(tenantID, domain.FeatureCompanies): fmt.Errorf("connection reset"),
		},
	}
	emailer := &fakeEmailer{}

	report, err := newTestMonitor(store, usage, emailer).RunQuotaCheck(context.Background())
	require.NoError(t, err)

	// The broken counter is logged and counted; the rest of the sweep runs.
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.AlertsSent)
	require.Len(t, emailer.sent, 1)
	assert.Equal(t, domain.TemplateQuotaCritical, emailer.sent[0].alert.Template)
}
