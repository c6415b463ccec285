// This file implements the billing endpoints backed by Stripe. All routes
// are admin-only:
//
//	POST /api/billing/checkout     -> Checkout
//	POST /api/billing/portal      -> Portal
//	POST /api/billing/cancel      -> Cancel
//	POST /api/billing/reactivate  -> Reactivate
package handler

import (
	"log/slog"
	"net/http"

	"github.com/jbaudry/previsk/internal/auth"
	"github.com/jbaudry/previsk/internal/billing"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
)

// BillingHandler handles subscription management.
type BillingHandler struct {
	billing billing.Service
	queries *repository.Queries
	logger  *slog.Logger
	baseURL string
}

// NewBillingHandler creates a new BillingHandler. billingService may be nil
// when Stripe is not configured; every endpoint then answers 503.
func NewBillingHandler(billingService billing.Service, queries *repository.Queries, logger *slog.Logger, baseURL string) *BillingHandler {
	return &BillingHandler{
		billing: billingService,
		queries: queries,
		logger:  logger,
		baseURL: baseURL,
	}
}

func (h *BillingHandler) notConfigured(w http.ResponseWriter, r *http.Request) bool {
	if h.billing != nil {
		return false
	}
	ErrorResponse(w, r, h.logger,
		domain.Errorf(domain.EUNAVAILABLE, "handler.billing", "Billing is not configured"))
	return true
}

// Checkout starts a Stripe Checkout session to subscribe the tenant to a
// paid plan. A Stripe customer is created on first use.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}

	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		Plan   string `json:"plan"`
		Annual bool   `json:"annual"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	plan := domain.Plan(req.Plan)
	priceID := h.billing.PriceIDForPlan(plan, req.Annual)
	if priceID == "" {
		ErrorResponse(w, r, h.logger,
			domain.Invalid("handler.billing_checkout", "Unknown plan or billing interval"))
		return
	}

	tenant, err := h.queries.GetTenantByID(r.Context(), actor.TenantID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.billing_checkout", "Failed to load tenant"))
		return
	}

	customerID := tenant.StripeCustomerID.String
	if customerID == "" {
		customerID, err = h.billing.CreateCustomer(actor.Email, tenant.Name)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.billing_checkout", "Failed to create billing customer"))
			return
		}
		// Persist the customer before redirecting so the webhook can
		// find the tenant even if checkout is abandoned and retried.
		err = h.queries.UpdateTenantSubscription(r.Context(), repository.UpdateTenantSubscriptionParams{
			ID:                 tenant.ID,
			Plan:               tenant.Plan,
			StripeCustomerID:   domain.ToNullString(customerID),
			SubscriptionID:     tenant.SubscriptionID,
			SubscriptionStatus: tenant.SubscriptionStatus,
		})
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.billing_checkout", "Failed to save billing customer"))
			return
		}
	}

	successURL := h.baseURL + "/billing/success"
	cancelURL := h.baseURL + "/billing/cancel"
	checkoutURL, err := h.billing.CreateCheckoutSession(customerID, priceID, successURL, cancelURL)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.billing_checkout", "Failed to create checkout session"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": checkoutURL})
}

// Portal opens a Stripe Customer Portal session for invoice and payment
// method management.
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}

	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	tenant, err := h.queries.GetTenantByID(r.Context(), actor.TenantID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.billing_portal", "Failed to load tenant"))
		return
	}

	if tenant.StripeCustomerID.String == "" {
		ErrorResponse(w, r, h.logger,
			domain.Errorf(domain.EPAYMENT, "handler.billing_portal", "No billing account yet; subscribe first"))
		return
	}

	portalURL, err := h.billing.CreatePortalSession(tenant.StripeCustomerID.String, h.baseURL+"/settings/billing")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.billing_portal", "Failed to create portal session"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": portalURL})
}

// Cancel flags the subscription to end at the period close. The plan stays
// active until then; the deletion webhook drops the tenant to free.
func (h *BillingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}

	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	tenant, err := h.queries.GetTenantByID(r.Context(), actor.TenantID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.billing_cancel", "Failed to load tenant"))
		return
	}

	if tenant.SubscriptionID.String == "" {
		ErrorResponse(w, r, h.logger,
			domain.Conflict("handler.billing_cancel", "No active subscription to cancel"))
		return
	}

	if err := h.billing.CancelSubscription(tenant.SubscriptionID.String); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.billing_cancel", "Failed to cancel subscription"))
		return
	}

	h.logger.Info("subscription cancellation scheduled", "tenant_id", tenant.ID)
	respondJSON(w, http.StatusNoContent, nil)
}

// Reactivate removes a pending cancellation before the period closes.
func (h *BillingHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}

	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	tenant, err := h.queries.GetTenantByID(r.Context(), actor.TenantID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.billing_reactivate", "Failed to load tenant"))
		return
	}

	if tenant.SubscriptionID.String == "" {
		ErrorResponse(w, r, h.logger,
			domain.Conflict("handler.billing_reactivate", "No subscription to reactivate"))
		return
	}

	if err := h.billing.ReactivateSubscription(tenant.SubscriptionID.String); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.billing_reactivate", "Failed to reactivate subscription"))
		return
	}

	h.logger.Info("subscription reactivated", "tenant_id", tenant.ID)
	respondJSON(w, http.StatusNoContent, nil)
}
