// This file implements the plan usage endpoint:
//
//	GET /api/usage
//
// It reports the tenant's plan and the quota status of every metered
// feature, the same classification the nightly quota sweep uses.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/jbaudry/previsk/internal/auth"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
	"github.com/jbaudry/previsk/internal/service"
)

// UsageHandler handles the quota usage endpoint.
type UsageHandler struct {
	queries *repository.Queries
	quota   service.QuotaService
	catalog *domain.Catalog
	logger  *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(queries *repository.Queries, quota service.QuotaService, catalog *domain.Catalog, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		queries: queries,
		quota:   quota,
		catalog: catalog,
		logger:  logger,
	}
}

type quotaStatusResponse struct {
	Feature    domain.FeatureKey `json:"feature"`
	Limit      int64             `json:"limit"`
	Current    int64             `json:"current"`
	Percentage float64           `json:"percentage"`
	Warning    bool              `json:"warning"`
	Critical   bool              `json:"critical"`
	Exceeded   bool              `json:"exceeded"`
}

type usageResponse struct {
	Plan        domain.Plan           `json:"plan"`
	PlanName    string                `json:"plan_name"`
	UpgradePlan domain.Plan           `json:"upgrade_plan,omitempty"`
	Quotas      []quotaStatusResponse `json:"quotas"`
}

// Get returns the tenant's plan and per-feature quota statuses.
func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	tenant, err := h.queries.GetTenantByID(r.Context(), actor.TenantID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.usage", "Failed to load tenant"))
		return
	}

	plan := domain.Plan(tenant.Plan)
	statuses, err := h.quota.GetUsage(r.Context(), actor.TenantID, plan)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp := usageResponse{
		Plan:     plan,
		PlanName: h.catalog.DisplayName(plan),
	}
	if next, ok := domain.UpgradePlan(plan); ok {
		resp.UpgradePlan = next
	}

	resp.Quotas = make([]quotaStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		resp.Quotas = append(resp.Quotas, quotaStatusResponse{
			Feature:    s.Feature,
			Limit:      s.Limit,
			Current:    s.Current,
			Percentage: s.Percentage,
			Warning:    s.Warning,
			Critical:   s.Critical,
			Exceeded:   s.Exceeded,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}
