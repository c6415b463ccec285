// Package domain contains core business types and interfaces.
//
// This file defines the plan catalog: the single source of truth mapping a
// subscription plan to its quotas, feature flags, prices and display metadata.
package domain

import "slices"

// Plan identifies a subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanBusiness   Plan = "business"
	PlanPremium    Plan = "premium"
	PlanEntreprise Plan = "entreprise"
)

// planOrder is the fixed upgrade path, cheapest first.
var planOrder = []Plan{PlanFree, PlanStarter, PlanBusiness, PlanPremium, PlanEntreprise}

// PlanOrder returns the plans in upgrade order, cheapest first.
func PlanOrder() []Plan {
	return slices.Clone(planOrder)
}

// Rank returns the position of the plan in the upgrade order, or -1 for an
// unknown plan.
func (p Plan) Rank() int {
	return slices.Index(planOrder, p)
}

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	return p.Rank() >= 0
}

// UpgradePlan returns the next plan in the upgrade order. The second return
// value is false for the terminal plan (entreprise) and for unknown plans.
func UpgradePlan(p Plan) (Plan, bool) {
	i := p.Rank()
	if i < 0 || i == len(planOrder)-1 {
		return "", false
	}
	return planOrder[i+1], true
}

// Unlimited is the sentinel for a quota without a ceiling. It is deliberately
// distinct from zero, which means the feature is absent from the plan.
const Unlimited int64 = -1

// SupportLevel enumerates the support tiers included with a plan.
type SupportLevel string

const (
	SupportNone      SupportLevel = "none"
	SupportEmail     SupportLevel = "email"
	SupportPriority  SupportLevel = "priority"
	SupportDedicated SupportLevel = "dedicated"
)

// ExtractionTier enumerates the document-import extraction capabilities.
type ExtractionTier string

const (
	ExtractionNone     ExtractionTier = "none"
	ExtractionBasic    ExtractionTier = "basic"
	ExtractionAdvanced ExtractionTier = "advanced"
	ExtractionFull     ExtractionTier = "full"
)

// EvaluationMethod identifies a risk evaluation methodology.
type EvaluationMethod string

const (
	MethodSimple EvaluationMethod = "simple" // gravité × fréquence matrix
	MethodINRS   EvaluationMethod = "inrs"   // INRS ED 840 grid
	MethodKinney EvaluationMethod = "kinney" // Fine & Kinney scoring
	MethodAMDEC  EvaluationMethod = "amdec"  // failure mode analysis
)

// FeatureKey identifies a plan feature, metered or boolean.
type FeatureKey string

const (
	FeatureCompanies            FeatureKey = "companies"
	FeatureSites                FeatureKey = "sites"
	FeatureWorkUnits            FeatureKey = "work_units"
	FeatureUsers                FeatureKey = "users"
	FeatureRisksPerMonth        FeatureKey = "risks_per_month"
	FeatureActionPlansPerMonth  FeatureKey = "action_plans_per_month"
	FeatureObservationsPerMonth FeatureKey = "observations_per_month"
	FeatureImportsPerMonth      FeatureKey = "imports_per_month"
	FeatureAIRisksPerMonth      FeatureKey = "ai_risks_per_month"
	FeatureAIActionsPerMonth    FeatureKey = "ai_actions_per_month"
	FeatureExportsPerYear       FeatureKey = "exports_per_year"

	FeatureReformulation FeatureKey = "reformulation"
	FeatureExportFormats FeatureKey = "export_formats"
	FeatureAPIAccess     FeatureKey = "api_access"
	FeatureMultiTenant   FeatureKey = "multi_tenant"
	FeatureImport        FeatureKey = "import"
	FeatureSupport       FeatureKey = "support"
	FeatureExtraction    FeatureKey = "extraction"
)

// QuotaPeriod is the billing window a metered feature is counted over.
type QuotaPeriod string

const (
	PeriodMonth QuotaPeriod = "month"
	PeriodYear  QuotaPeriod = "year"
)

// MeteredFeature describes a metered feature and its counting window.
// Absolute features (companies, sites, ...) count live rows rather than a
// period; they use PeriodMonth with a counter that ignores the window.
type MeteredFeature struct {
	Key    FeatureKey
	Period QuotaPeriod
}

// meteredFeatures lists every feature the quota monitor watches, in the order
// statuses are reported.
var meteredFeatures = []MeteredFeature{
	{FeatureCompanies, PeriodMonth},
	{FeatureSites, PeriodMonth},
	{FeatureWorkUnits, PeriodMonth},
	{FeatureUsers, PeriodMonth},
	{FeatureRisksPerMonth, PeriodMonth},
	{FeatureActionPlansPerMonth, PeriodMonth},
	{FeatureObservationsPerMonth, PeriodMonth},
	{FeatureImportsPerMonth, PeriodMonth},
	{FeatureAIRisksPerMonth, PeriodMonth},
	{FeatureAIActionsPerMonth, PeriodMonth},
	{FeatureExportsPerYear, PeriodYear},
}

// MeteredFeatures returns the metered features in reporting order.
func MeteredFeatures() []MeteredFeature {
	return slices.Clone(meteredFeatures)
}

// featureLabels carries the human-readable (French) names used in alert emails
// and the usage dashboard.
var featureLabels = map[FeatureKey]string{
	FeatureCompanies:            "Entreprises",
	FeatureSites:                "Sites",
	FeatureWorkUnits:            "Unités de travail",
	FeatureUsers:                "Utilisateurs",
	FeatureRisksPerMonth:        "Évaluations de risques / mois",
	FeatureActionPlansPerMonth:  "Actions de prévention / mois",
	FeatureObservationsPerMonth: "Observations terrain / mois",
	FeatureImportsPerMonth:      "Imports de documents / mois",
	FeatureAIRisksPerMonth:      "Suggestions IA de risques / mois",
	FeatureAIActionsPerMonth:    "Suggestions IA d'actions / mois",
	FeatureExportsPerYear:       "Exports DUERP / an",
}

// Label returns the display name for a feature key, falling back to the raw key.
func (k FeatureKey) Label() string {
	if label, ok := featureLabels[k]; ok {
		return label
	}
	return string(k)
}

// PlanFeatures is the value object describing everything a plan grants.
type PlanFeatures struct {
	// Metered ceilings. Unlimited (-1) means no ceiling, 0 means absent.
	MaxCompanies            int64
	MaxSites                int64
	MaxWorkUnits            int64
	MaxUsers                int64
	MaxRisksPerMonth        int64
	MaxActionPlansPerMonth  int64
	MaxObservationsPerMonth int64
	MaxImportsPerMonth      int64
	MaxAIRisksPerMonth      int64
	MaxAIActionsPerMonth    int64
	MaxExportsPerYear       int64

	// Feature flags.
	Reformulation bool // AI reformulation of risk descriptions
	ExportFormats bool // DOCX/XLSX export in addition to PDF
	APIAccess     bool
	MultiTenant   bool
	Import        bool

	Support    SupportLevel
	Extraction ExtractionTier

	// Methods lists the evaluation methodologies the plan may use.
	Methods []EvaluationMethod

	// Roles lists the collaboration roles the plan may assign.
	Roles []Role
}

// Limit returns the numeric ceiling for a metered feature key.
// Unknown keys return 0 (feature absent), keeping lookups fail-closed.
func (f PlanFeatures) Limit(key FeatureKey) int64 {
	switch key {
	case FeatureCompanies:
		return f.MaxCompanies
	case FeatureSites:
		return f.MaxSites
	case FeatureWorkUnits:
		return f.MaxWorkUnits
	case FeatureUsers:
		return f.MaxUsers
	case FeatureRisksPerMonth:
		return f.MaxRisksPerMonth
	case FeatureActionPlansPerMonth:
		return f.MaxActionPlansPerMonth
	case FeatureObservationsPerMonth:
		return f.MaxObservationsPerMonth
	case FeatureImportsPerMonth:
		return f.MaxImportsPerMonth
	case FeatureAIRisksPerMonth:
		return f.MaxAIRisksPerMonth
	case FeatureAIActionsPerMonth:
		return f.MaxAIActionsPerMonth
	case FeatureExportsPerYear:
		return f.MaxExportsPerYear
	default:
		return 0
	}
}

// granted reports whether the feature key is truthy for this plan: booleans
// pass through, numeric ceilings must be non-zero (Unlimited counts as
// granted), the support level and extraction tier are granted unless "none".
func (f PlanFeatures) granted(key FeatureKey) bool {
	switch key {
	case FeatureReformulation:
		return f.Reformulation
	case FeatureExportFormats:
		return f.ExportFormats
	case FeatureAPIAccess:
		return f.APIAccess
	case FeatureMultiTenant:
		return f.MultiTenant
	case FeatureImport:
		return f.Import
	case FeatureSupport:
		return f.Support != SupportNone
	case FeatureExtraction:
		return f.Extraction != ExtractionNone
	default:
		limit := f.Limit(key)
		return limit == Unlimited || limit > 0
	}
}

// PlanPrice holds the advertised prices for a plan, in euros excl. VAT.
type PlanPrice struct {
	Monthly     float64 // price per month, monthly billing
	Annual      float64 // price per month, annual billing
	AnnualTotal float64 // total per year, annual billing
}

// Catalog is the immutable plan catalog. It is constructed once at startup
// (DefaultCatalog) and passed by reference to the services that consult it.
type Catalog struct {
	features map[Plan]PlanFeatures
	prices   map[Plan]PlanPrice
	names    map[Plan]string
}

// DefaultCatalog builds the production plan catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		features: map[Plan]PlanFeatures{
			PlanFree: {
				MaxCompanies:            1,
				MaxSites:                1,
				MaxWorkUnits:            5,
				MaxUsers:                2,
				MaxRisksPerMonth:        10,
				MaxActionPlansPerMonth:  50,
				MaxObservationsPerMonth: 20,
				MaxExportsPerYear:       1,
				Support:                 SupportNone,
				Extraction:              ExtractionNone,
				Methods:                 []EvaluationMethod{MethodSimple},
				Roles:                   []Role{RoleAdmin},
			},
			PlanStarter: {
				MaxCompanies:            1,
				MaxSites:                3,
				MaxWorkUnits:            20,
				MaxUsers:                5,
				MaxRisksPerMonth:        50,
				MaxActionPlansPerMonth:  250,
				MaxObservationsPerMonth: 100,
				MaxImportsPerMonth:      0,
				MaxAIRisksPerMonth:      20,
				MaxAIActionsPerMonth:    20,
				MaxExportsPerYear:       4,
				ExportFormats:           true,
				Support:                 SupportEmail,
				Extraction:              ExtractionNone,
				Methods:                 []EvaluationMethod{MethodSimple, MethodINRS},
				Roles:                   []Role{RoleAdmin, RoleQSE},
			},
			PlanBusiness: {
				MaxCompanies:            3,
				MaxSites:                10,
				MaxWorkUnits:            100,
				MaxUsers:                15,
				MaxRisksPerMonth:        200,
				MaxActionPlansPerMonth:  1000,
				MaxObservationsPerMonth: 500,
				MaxImportsPerMonth:      20,
				MaxAIRisksPerMonth:      100,
				MaxAIActionsPerMonth:    100,
				MaxExportsPerYear:       12,
				Reformulation:           true,
				ExportFormats:           true,
				Import:                  true,
				Support:                 SupportEmail,
				Extraction:              ExtractionBasic,
				Methods:                 []EvaluationMethod{MethodSimple, MethodINRS, MethodKinney},
				Roles:                   []Role{RoleAdmin, RoleQSE, RoleSiteManager, RoleRepresentative},
			},
			PlanPremium: {
				MaxCompanies:            10,
				MaxSites:                50,
				MaxWorkUnits:            500,
				MaxUsers:                50,
				MaxRisksPerMonth:        1000,
				MaxActionPlansPerMonth:  5000,
				MaxObservationsPerMonth: 2000,
				MaxImportsPerMonth:      100,
				MaxAIRisksPerMonth:      500,
				MaxAIActionsPerMonth:    500,
				MaxExportsPerYear:       52,
				Reformulation:           true,
				ExportFormats:           true,
				APIAccess:               true,
				Import:                  true,
				Support:                 SupportPriority,
				Extraction:              ExtractionAdvanced,
				Methods:                 []EvaluationMethod{MethodSimple, MethodINRS, MethodKinney, MethodAMDEC},
				Roles:                   []Role{RoleAdmin, RoleQSE, RoleSiteManager, RoleRepresentative, RoleObserver},
			},
			PlanEntreprise: {
				MaxCompanies:            Unlimited,
				MaxSites:                Unlimited,
				MaxWorkUnits:            Unlimited,
				MaxUsers:                Unlimited,
				MaxRisksPerMonth:        Unlimited,
				MaxActionPlansPerMonth:  Unlimited,
				MaxObservationsPerMonth: Unlimited,
				MaxImportsPerMonth:      Unlimited,
				MaxAIRisksPerMonth:      Unlimited,
				MaxAIActionsPerMonth:    Unlimited,
				MaxExportsPerYear:       Unlimited,
				Reformulation:           true,
				ExportFormats:           true,
				APIAccess:               true,
				MultiTenant:             true,
				Import:                  true,
				Support:                 SupportDedicated,
				Extraction:              ExtractionFull,
				Methods:                 []EvaluationMethod{MethodSimple, MethodINRS, MethodKinney, MethodAMDEC},
				Roles:                   []Role{RoleAdmin, RoleQSE, RoleSiteManager, RoleRepresentative, RoleObserver, RoleAuditor},
			},
		},
		prices: map[Plan]PlanPrice{
			PlanFree:       {},
			PlanStarter:    {Monthly: 29, Annual: 24, AnnualTotal: 288},
			PlanBusiness:   {Monthly: 79, Annual: 65, AnnualTotal: 780},
			PlanPremium:    {Monthly: 149, Annual: 124, AnnualTotal: 1488},
			PlanEntreprise: {Monthly: 299, Annual: 249, AnnualTotal: 2988},
		},
		names: map[Plan]string{
			PlanFree:       "Découverte",
			PlanStarter:    "Starter",
			PlanBusiness:   "Business",
			PlanPremium:    "Premium",
			PlanEntreprise: "Entreprise",
		},
	}
}

// Features returns the feature set for a plan. Unknown plans resolve to the
// free plan, the most restrictive default.
func (c *Catalog) Features(p Plan) PlanFeatures {
	if f, ok := c.features[p]; ok {
		return f
	}
	return c.features[PlanFree]
}

// Price returns the price record for a plan (zero value for unknown plans).
func (c *Catalog) Price(p Plan) PlanPrice {
	return c.prices[p]
}

// DisplayName returns the marketing name of a plan.
func (c *Catalog) DisplayName(p Plan) string {
	if name, ok := c.names[p]; ok {
		return name
	}
	return string(p)
}

// HasMethodAccess reports whether the plan may use the evaluation method.
func (c *Catalog) HasMethodAccess(p Plan, m EvaluationMethod) bool {
	return slices.Contains(c.Features(p).Methods, m)
}

// HasFeatureAccess reports whether the feature key is granted on the plan.
func (c *Catalog) HasFeatureAccess(p Plan, key FeatureKey) bool {
	return c.Features(p).granted(key)
}

// Limit returns the numeric ceiling of a metered feature for the plan.
func (c *Catalog) Limit(p Plan, key FeatureKey) int64 {
	return c.Features(p).Limit(key)
}

// RequiredPlan returns the cheapest plan that grants the feature, derived by
// scanning the catalog in upgrade order. A feature no plan grants, or an
// unknown key, resolves to the free plan.
func (c *Catalog) RequiredPlan(key FeatureKey) Plan {
	for _, p := range planOrder {
		if c.Features(p).granted(key) {
			return p
		}
	}
	return PlanFree
}

// RequiredPlanForMethod returns the cheapest plan that grants the evaluation
// method, scanning in upgrade order.
func (c *Catalog) RequiredPlanForMethod(m EvaluationMethod) Plan {
	for _, p := range planOrder {
		if c.HasMethodAccess(p, m) {
			return p
		}
	}
	return PlanFree
}

// IsRoleAvailableInPlan reports whether the plan may assign the role.
// The owner is not a matrix role and is always available.
func (c *Catalog) IsRoleAvailableInPlan(p Plan, r Role) bool {
	return slices.Contains(c.Features(p).Roles, r)
}
