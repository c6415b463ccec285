package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQuotaStatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		limit    int64
		current  int64
		pct      float64
		warning  bool
		critical bool
		exceeded bool
	}{
		{name: "well under limit", limit: 100, current: 50, pct: 50},
		{name: "just under warning", limit: 100, current: 79, pct: 79},
		{name: "exactly 80 percent is warning", limit: 100, current: 80, pct: 80, warning: true},
		{name: "89 percent still warning", limit: 100, current: 89, pct: 89, warning: true},
		{name: "exactly 90 percent is critical", limit: 100, current: 90, pct: 90, critical: true},
		{name: "99 percent still critical", limit: 100, current: 99, pct: 99, critical: true},
		{name: "exactly at limit is no flag", limit: 100, current: 100, pct: 100},
		{name: "over limit is exceeded", limit: 100, current: 101, pct: 101, exceeded: true},
		{name: "far over limit", limit: 10, current: 25, pct: 250, exceeded: true},
		{name: "small limit boundary", limit: 5, current: 4, pct: 80, warning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewQuotaStatus(FeatureRisksPerMonth, tt.limit, tt.current)
			assert.InDelta(t, tt.pct, got.Percentage, 0.001)
			assert.Equal(t, tt.warning, got.Warning, "warning")
			assert.Equal(t, tt.critical, got.Critical, "critical")
			assert.Equal(t, tt.exceeded, got.Exceeded, "exceeded")
		})
	}
}

func TestNewQuotaStatusBusinessAIScenario(t *testing.T) {
	// Business plan grants 100 AI risk suggestions per month; 95 used is
	// critical but not yet exceeded.
	catalog := DefaultCatalog()
	limit := catalog.Limit(PlanBusiness, FeatureAIRisksPerMonth)
	assert.Equal(t, int64(100), limit)

	got := NewQuotaStatus(FeatureAIRisksPerMonth, limit, 95)
	assert.InDelta(t, 95.0, got.Percentage, 0.001)
	assert.True(t, got.Critical)
	assert.False(t, got.Warning)
	assert.False(t, got.Exceeded)
	assert.Equal(t, TemplateQuotaCritical, got.AlertTemplate())
}

func TestNewQuotaStatusAbsentFeature(t *testing.T) {
	// Limit 0 means the feature is absent from the plan: any usage is a
	// breach, no usage is silent.
	clean := NewQuotaStatus(FeatureImportsPerMonth, 0, 0)
	assert.False(t, clean.NeedsAlert())

	breached := NewQuotaStatus(FeatureImportsPerMonth, 0, 1)
	assert.True(t, breached.Exceeded)
}

func TestQuotaStatusAlertTemplate(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		want    EmailTemplate
	}{
		{name: "normal has no template", current: 10, want: ""},
		{name: "warning band", current: 85, want: TemplateQuotaWarning},
		{name: "critical band", current: 95, want: TemplateQuotaCritical},
		{name: "exceeded band", current: 120, want: TemplateQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewQuotaStatus(FeatureRisksPerMonth, 100, tt.current)
			assert.Equal(t, tt.want, got.AlertTemplate())
			assert.Equal(t, tt.want != "", got.NeedsAlert())
		})
	}
}
