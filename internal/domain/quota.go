// Package domain contains core business types and interfaces.
//
// This file defines quota status classification for the plan monitoring
// sweep and for request-time quota gates.
package domain

// Alert thresholds, in percent of the plan limit.
const (
	QuotaWarningThreshold  = 80.0
	QuotaCriticalThreshold = 90.0
)

// QuotaStatus is the ephemeral, per-tenant-per-feature usage record computed
// on each monitoring pass. It is never persisted; only the alert emails it
// triggers leave a trace (in the email log, for deduplication).
type QuotaStatus struct {
	Feature    FeatureKey
	Limit      int64
	Current    int64
	Percentage float64
	Warning    bool // 80% <= usage < 90%
	Critical   bool // 90% <= usage < 100%
	Exceeded   bool // current strictly above the limit
}

// NewQuotaStatus classifies current usage against a finite limit.
//
// Exactly 100% is neither warning nor critical nor exceeded: the ceiling is
// reached but not breached. Exceeded requires current > limit. Callers must
// not pass the Unlimited sentinel; unlimited features are skipped upstream.
func NewQuotaStatus(feature FeatureKey, limit, current int64) QuotaStatus {
	status := QuotaStatus{
		Feature: feature,
		Limit:   limit,
		Current: current,
	}
	if limit <= 0 {
		// Absent feature (limit 0): any usage at all is a breach.
		status.Exceeded = current > 0
		if status.Exceeded {
			status.Percentage = 100
		}
		return status
	}

	pct := float64(current) / float64(limit) * 100
	status.Percentage = pct
	status.Warning = pct >= QuotaWarningThreshold && pct < QuotaCriticalThreshold
	status.Critical = pct >= QuotaCriticalThreshold && pct < 100
	status.Exceeded = current > limit
	return status
}

// NeedsAlert reports whether the status is outside the normal band.
func (s QuotaStatus) NeedsAlert() bool {
	return s.Warning || s.Critical || s.Exceeded
}

// AlertTemplate returns the email template identifier for the status, or ""
// when no alert is due. Each band has its own template so the alert
// deduplication window applies per band.
func (s QuotaStatus) AlertTemplate() EmailTemplate {
	switch {
	case s.Exceeded:
		return TemplateQuotaExceeded
	case s.Critical:
		return TemplateQuotaCritical
	case s.Warning:
		return TemplateQuotaWarning
	default:
		return ""
	}
}

// EmailTemplate identifies a transactional email template in the email log.
type EmailTemplate string

// Email template identifiers used by the quota monitor and the email log.
const (
	TemplateQuotaWarning  EmailTemplate = "quota-warning"
	TemplateQuotaCritical EmailTemplate = "quota-critical"
	TemplateQuotaExceeded EmailTemplate = "quota-exceeded"
)
