// Package domain contains core business types and interfaces.
//
// This file defines the Tenant aggregate. The subscription plan is an
// attribute of the tenant itself, not of any user profile: every quota and
// feature decision resolves the plan from here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolated customer organization.
type Tenant struct {
	ID                 uuid.UUID
	Name               string
	Siren              string // 9-digit French company registration number, optional
	Plan               Plan
	StripeCustomerID   string
	SubscriptionID     string
	SubscriptionStatus SubscriptionStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SubscriptionStatus represents the possible states of a tenant subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
)

// HasActiveSubscription reports whether the tenant is paying or trialing.
// Free-plan tenants are always considered active.
func (t *Tenant) HasActiveSubscription() bool {
	if t.Plan == PlanFree {
		return true
	}
	return t.SubscriptionStatus == SubscriptionStatusActive ||
		t.SubscriptionStatus == SubscriptionStatusTrialing
}

// CreateTenantParams contains the validated parameters for tenant creation.
type CreateTenantParams struct {
	Name  string
	Siren string
}
