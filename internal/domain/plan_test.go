package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradePlan(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		want Plan
		ok   bool
	}{
		{name: "free upgrades to starter", plan: PlanFree, want: PlanStarter, ok: true},
		{name: "starter upgrades to business", plan: PlanStarter, want: PlanBusiness, ok: true},
		{name: "business upgrades to premium", plan: PlanBusiness, want: PlanPremium, ok: true},
		{name: "premium upgrades to entreprise", plan: PlanPremium, want: PlanEntreprise, ok: true},
		{name: "entreprise is terminal", plan: PlanEntreprise, ok: false},
		{name: "unknown plan has no upgrade", plan: Plan("gold"), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := UpgradePlan(tt.plan)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCatalogMonotonicUpgradePath(t *testing.T) {
	catalog := DefaultCatalog()

	for _, feature := range MeteredFeatures() {
		plan := PlanFree
		for {
			next, ok := UpgradePlan(plan)
			if !ok {
				break
			}
			lower := catalog.Limit(plan, feature.Key)
			higher := catalog.Limit(next, feature.Key)

			// Unlimited on the higher plan always satisfies the invariant.
			if higher != Unlimited && lower != Unlimited {
				assert.GreaterOrEqual(t, higher, lower,
					"plan %s must not lower %s below %s", next, feature.Key, plan)
			}
			if lower == Unlimited {
				assert.Equal(t, Unlimited, higher,
					"plan %s must not take away unlimited %s", next, feature.Key)
			}
			plan = next
		}
	}
}

func TestCatalogActionToRiskRatio(t *testing.T) {
	catalog := DefaultCatalog()

	// Every non-entreprise plan keeps roughly five action plans per risk.
	for _, plan := range []Plan{PlanFree, PlanStarter, PlanBusiness, PlanPremium} {
		risks := catalog.Limit(plan, FeatureRisksPerMonth)
		actions := catalog.Limit(plan, FeatureActionPlansPerMonth)
		require.Greater(t, risks, int64(0), "plan %s", plan)

		ratio := float64(actions) / float64(risks)
		assert.InDelta(t, 5.0, ratio, 1.0, "plan %s action/risk ratio", plan)
	}
}

func TestCatalogHasMethodAccess(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		plan   Plan
		method EvaluationMethod
		want   bool
	}{
		{PlanFree, MethodSimple, true},
		{PlanFree, MethodINRS, false},
		{PlanStarter, MethodINRS, true},
		{PlanStarter, MethodKinney, false},
		{PlanBusiness, MethodKinney, true},
		{PlanBusiness, MethodAMDEC, false},
		{PlanPremium, MethodAMDEC, true},
		{PlanEntreprise, MethodAMDEC, true},
		{Plan("unknown"), MethodINRS, false}, // unknown plan falls back to free
	}

	for _, tt := range tests {
		t.Run(string(tt.plan)+"/"+string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.HasMethodAccess(tt.plan, tt.method))
		})
	}
}

func TestCatalogHasFeatureAccess(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name string
		plan Plan
		key  FeatureKey
		want bool
	}{
		{name: "boolean flag passes through", plan: PlanBusiness, key: FeatureReformulation, want: true},
		{name: "boolean flag absent on free", plan: PlanFree, key: FeatureReformulation, want: false},
		{name: "numeric ceiling greater than zero", plan: PlanStarter, key: FeatureAIRisksPerMonth, want: true},
		{name: "numeric ceiling of zero is absent", plan: PlanFree, key: FeatureAIRisksPerMonth, want: false},
		{name: "unlimited is always granted", plan: PlanEntreprise, key: FeatureAIRisksPerMonth, want: true},
		{name: "extraction tier none is absent", plan: PlanStarter, key: FeatureExtraction, want: false},
		{name: "extraction tier basic is granted", plan: PlanBusiness, key: FeatureExtraction, want: true},
		{name: "support none is absent", plan: PlanFree, key: FeatureSupport, want: false},
		{name: "support email is granted", plan: PlanStarter, key: FeatureSupport, want: true},
		{name: "unknown key is denied", plan: PlanEntreprise, key: FeatureKey("telepathy"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.HasFeatureAccess(tt.plan, tt.key))
		})
	}
}

func TestCatalogRequiredPlan(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		key  FeatureKey
		want Plan
	}{
		{FeatureRisksPerMonth, PlanFree},
		{FeatureAIRisksPerMonth, PlanStarter},
		{FeatureExportFormats, PlanStarter},
		{FeatureReformulation, PlanBusiness},
		{FeatureImport, PlanBusiness},
		{FeatureAPIAccess, PlanPremium},
		{FeatureMultiTenant, PlanEntreprise},
		{FeatureKey("unknown"), PlanFree}, // unknown keys default to the cheapest plan
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.RequiredPlan(tt.key))
		})
	}
}

func TestCatalogRequiredPlanAgreesWithGrants(t *testing.T) {
	catalog := DefaultCatalog()

	// The derived lookup must agree with the catalog itself: the required
	// plan grants the feature, its predecessor does not.
	keys := []FeatureKey{
		FeatureReformulation, FeatureExportFormats, FeatureAPIAccess,
		FeatureMultiTenant, FeatureImport, FeatureAIRisksPerMonth,
	}
	for _, key := range keys {
		required := catalog.RequiredPlan(key)
		assert.True(t, catalog.HasFeatureAccess(required, key), "%s on %s", key, required)

		if rank := required.Rank(); rank > 0 {
			below := PlanOrder()[rank-1]
			assert.False(t, catalog.HasFeatureAccess(below, key),
				"%s should not be granted below %s", key, required)
		}
	}
}

func TestCatalogIsRoleAvailableInPlan(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		plan Plan
		role Role
		want bool
	}{
		{PlanFree, RoleAdmin, true},
		{PlanFree, RoleQSE, false},
		{PlanStarter, RoleQSE, true},
		{PlanStarter, RoleSiteManager, false},
		{PlanBusiness, RoleSiteManager, true},
		{PlanBusiness, RoleRepresentative, true},
		{PlanBusiness, RoleObserver, false},
		{PlanPremium, RoleObserver, true},
		{PlanPremium, RoleAuditor, false},
		{PlanEntreprise, RoleAuditor, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.plan)+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.IsRoleAvailableInPlan(tt.plan, tt.role))
		})
	}
}

func TestCatalogUnknownPlanFallsBackToFree(t *testing.T) {
	catalog := DefaultCatalog()

	assert.Equal(t, catalog.Features(PlanFree), catalog.Features(Plan("legacy")))
	assert.Equal(t, int64(10), catalog.Limit(Plan("legacy"), FeatureRisksPerMonth))
}
