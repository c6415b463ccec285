// Package service contains the business logic layer.
//
// This file implements the quota service for measuring feature usage
// and enforcing the limits of the tenant's subscription plan.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/metrics"
	"github.com/jbaudry/previsk/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService defines operations for measuring and enforcing plan quotas.
type QuotaService interface {
	// GetUsage returns the quota status of every metered feature for a tenant.
	// Features the plan does not grant are reported with a zero limit.
	GetUsage(ctx context.Context, tenantID uuid.UUID, plan domain.Plan) ([]domain.QuotaStatus, error)

	// CheckQuota checks whether the tenant can consume one more unit of the
	// given feature. Returns nil if allowed, or a QuotaExceeded error if the
	// plan limit is reached or the feature is absent from the plan.
	CheckQuota(ctx context.Context, tenantID uuid.UUID, plan domain.Plan, feature domain.FeatureKey) error

	// FeatureUsage returns the current usage count for a single metered
	// feature within its current period.
	FeatureUsage(ctx context.Context, tenantID uuid.UUID, feature domain.FeatureKey) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	queries *repository.Queries
	catalog *domain.Catalog
	logger  *slog.Logger
}

// NewQuotaService creates a new QuotaService backed by the given plan catalog.
func NewQuotaService(queries *repository.Queries, catalog *domain.Catalog, logger *slog.Logger) QuotaService {
	return &quotaService{
		queries: queries,
		catalog: catalog,
		logger:  logger,
	}
}

// GetUsage returns the quota status of every metered feature for a tenant.
func (s *quotaService) GetUsage(ctx context.Context, tenantID uuid.UUID, plan domain.Plan) ([]domain.QuotaStatus, error) {
	const op = "quota.get_usage"

	var statuses []domain.QuotaStatus
	for _, mf := range domain.MeteredFeatures() {
		limit := s.catalog.Limit(plan, mf.Key)
		current, err := s.FeatureUsage(ctx, tenantID, mf.Key)
		if err != nil {
			return nil, domain.Internal(err, op, fmt.Sprintf("failed to count usage for %s", mf.Key))
		}
		statuses = append(statuses, domain.NewQuotaStatus(mf.Key, limit, current))
	}
	return statuses, nil
}

// CheckQuota checks whether the tenant can consume one more unit of a feature.
func (s *quotaService) CheckQuota(ctx context.Context, tenantID uuid.UUID, plan domain.Plan, feature domain.FeatureKey) error {
	const op = "quota.check"

	limit := s.catalog.Limit(plan, feature)

	// Unlimited plans always pass.
	if limit == domain.Unlimited {
		return nil
	}

	// A zero limit means the plan does not include the feature at all.
	if limit <= 0 {
		metrics.QuotaDenialsTotal.WithLabelValues(string(feature)).Inc()
		return domain.QuotaExceeded(op, feature, 0, 0)
	}

	count, err := s.FeatureUsage(ctx, tenantID, feature)
	if err != nil {
		return domain.Internal(err, op, fmt.Sprintf("failed to count usage for %s", feature))
	}

	if count >= limit {
		s.logger.Info("Quota exceeded",
			"tenant_id", tenantID,
			"plan", plan,
			"feature", feature,
			"used", count,
			"limit", limit,
		)
		metrics.QuotaDenialsTotal.WithLabelValues(string(feature)).Inc()
		return domain.QuotaExceeded(op, feature, count, limit)
	}

	return nil
}

// FeatureUsage returns the current usage count for a metered feature.
// Structural features count live rows; periodic features count rows created
// in the current calendar month, or calendar year for annual features.
func (s *quotaService) FeatureUsage(ctx context.Context, tenantID uuid.UUID, feature domain.FeatureKey) (int64, error) {
	now := time.Now().UTC()
	monthStart, monthEnd := monthBoundaries(now)
	yearStart, yearEnd := yearBoundaries(now)

	switch feature {
	case domain.FeatureCompanies:
		return s.queries.CountCompaniesByTenant(ctx, tenantID)
	case domain.FeatureSites:
		return s.queries.CountSitesByTenant(ctx, tenantID)
	case domain.FeatureWorkUnits:
		return s.queries.CountWorkUnitsByTenant(ctx, tenantID)
	case domain.FeatureUsers:
		return s.queries.CountUsersByTenant(ctx, tenantID)
	case domain.FeatureRisksPerMonth:
		return s.queries.CountEvaluationsInPeriod(ctx, tenantID, monthStart, monthEnd)
	case domain.FeatureActionPlansPerMonth:
		return s.queries.CountActionsInPeriod(ctx, tenantID, monthStart, monthEnd)
	case domain.FeatureObservationsPerMonth:
		return s.queries.CountObservationsInPeriod(ctx, tenantID, monthStart, monthEnd)
	case domain.FeatureImportsPerMonth:
		return s.queries.CountImportsInPeriod(ctx, tenantID, monthStart, monthEnd)
	case domain.FeatureAIRisksPerMonth:
		return s.queries.CountSuggestionsInPeriod(ctx, tenantID, string(domain.SuggestionRisks), monthStart, monthEnd)
	case domain.FeatureAIActionsPerMonth:
		return s.queries.CountSuggestionsInPeriod(ctx, tenantID, string(domain.SuggestionActions), monthStart, monthEnd)
	case domain.FeatureExportsPerYear:
		return s.queries.CountExportsInPeriod(ctx, tenantID, yearStart, yearEnd)
	default:
		return 0, fmt.Errorf("feature %s is not metered", feature)
	}
}

// monthBoundaries returns the start and end of the calendar month containing t.
func monthBoundaries(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// yearBoundaries returns the start and end of the calendar year containing t.
func yearBoundaries(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(1, 0, 0)
	return start, end
}
