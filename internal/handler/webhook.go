// This file implements the Stripe webhook handler.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it
// directly. Authentication is via the Stripe webhook signature.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/jbaudry/previsk/internal/billing"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
	"github.com/stripe/stripe-go/v79"
)

// maxWebhookBody bounds how much of the request body is read. Stripe events
// are far smaller than this.
const maxWebhookBody = 64 * 1024

// WebhookHandler consumes Stripe events and keeps each tenant's plan and
// subscription status in sync with what Stripe believes.
type WebhookHandler struct {
	billing billing.Service
	queries *repository.Queries
	logger  *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, queries *repository.Queries, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing: billingService,
		queries: queries,
		logger:  logger,
	}
}

// HandleStripeWebhook verifies the event signature and dispatches by type.
// It always answers 200 for verified events; failures are logged and Stripe
// retries on its own schedule.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := h.billing.VerifyWebhookSignature(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(event)
	case "customer.subscription.created":
		h.processSubscriptionEvent(event, "created")
	case "customer.subscription.updated":
		h.processSubscriptionEvent(event, "updated")
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(event)
	case "invoice.payment_succeeded":
		h.handlePaymentSucceeded(event)
	case "invoice.payment_failed":
		h.handlePaymentFailed(event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// tenantForCustomer resolves the tenant behind a Stripe customer ID. A miss
// is logged but not fatal; the subscription events self-heal on retry.
func (h *WebhookHandler) tenantForCustomer(customerID, during string) (repository.Tenant, bool) {
	tenant, err := h.queries.GetTenantByStripeCustomerID(webhookCtx(), customerID)
	if err != nil {
		h.logger.Warn("tenant not found for stripe customer", "customer_id", customerID, "during", during)
		return repository.Tenant{}, false
	}
	return tenant, true
}

// setSubscription writes the tenant's plan, subscription ID and status.
func (h *WebhookHandler) setSubscription(tenant repository.Tenant, plan domain.Plan, subscriptionID string, status domain.SubscriptionStatus) bool {
	err := h.queries.UpdateTenantSubscription(webhookCtx(), repository.UpdateTenantSubscriptionParams{
		ID:                 tenant.ID,
		Plan:               string(plan),
		StripeCustomerID:   tenant.StripeCustomerID,
		SubscriptionID:     domain.ToNullString(subscriptionID),
		SubscriptionStatus: string(status),
	})
	if err != nil {
		h.logger.Error("failed to update tenant subscription",
			"error", err, "tenant_id", tenant.ID, "status", status)
		return false
	}
	return true
}

func (h *WebhookHandler) handleCheckoutCompleted(event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("failed to parse checkout session", "error", err)
		return
	}
	if session.Customer == nil || session.Subscription == nil {
		h.logger.Warn("checkout session missing customer or subscription", "session_id", session.ID)
		return
	}

	// The subscription event that follows carries the price and therefore
	// the plan; here we only record the subscription ID early.
	tenant, ok := h.tenantForCustomer(session.Customer.ID, "checkout.session.completed")
	if !ok {
		return
	}
	h.setSubscription(tenant, domain.Plan(tenant.Plan), session.Subscription.ID, domain.SubscriptionStatusActive)
}

func (h *WebhookHandler) processSubscriptionEvent(event stripe.Event, action string) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription event", "error", err, "action", action)
		return
	}
	if sub.Customer == nil {
		h.logger.Warn("subscription event missing customer", "subscription_id", sub.ID, "action", action)
		return
	}

	tenant, ok := h.tenantForCustomer(sub.Customer.ID, "customer.subscription."+action)
	if !ok {
		return
	}

	// The subscribed price decides the plan.
	plan := domain.Plan(tenant.Plan)
	if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		plan = h.billing.PlanForPriceID(sub.Items.Data[0].Price.ID)
	}

	status := domain.SubscriptionStatus(sub.Status)
	if h.setSubscription(tenant, plan, sub.ID, status) {
		h.logger.Info("subscription event processed",
			"tenant_id", tenant.ID, "action", action, "status", status, "plan", plan)
	}
}

func (h *WebhookHandler) handleSubscriptionDeleted(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		return
	}
	if sub.Customer == nil {
		h.logger.Warn("subscription deleted event missing customer", "subscription_id", sub.ID)
		return
	}

	tenant, ok := h.tenantForCustomer(sub.Customer.ID, "customer.subscription.deleted")
	if !ok {
		return
	}

	// Subscription gone: back to the free plan.
	if h.setSubscription(tenant, domain.PlanFree, "", domain.SubscriptionStatusCanceled) {
		h.logger.Info("subscription deleted, tenant downgraded to free",
			"tenant_id", tenant.ID, "subscription_id", sub.ID)
	}
}

func (h *WebhookHandler) handlePaymentSucceeded(event stripe.Event) {
	invoice, ok := h.parseInvoice(event)
	if !ok {
		return
	}

	tenant, ok := h.tenantForCustomer(invoice.Customer.ID, "invoice.payment_succeeded")
	if !ok {
		return
	}

	// Recovery from past_due.
	if tenant.SubscriptionStatus != string(domain.SubscriptionStatusActive) {
		h.setSubscription(tenant, domain.Plan(tenant.Plan), tenant.SubscriptionID.String, domain.SubscriptionStatusActive)
	}
}

func (h *WebhookHandler) handlePaymentFailed(event stripe.Event) {
	invoice, ok := h.parseInvoice(event)
	if !ok {
		return
	}

	tenant, ok := h.tenantForCustomer(invoice.Customer.ID, "invoice.payment_failed")
	if !ok {
		return
	}

	if h.setSubscription(tenant, domain.Plan(tenant.Plan), tenant.SubscriptionID.String, domain.SubscriptionStatusPastDue) {
		h.logger.Warn("payment failed", "tenant_id", tenant.ID, "customer_id", invoice.Customer.ID)
	}
}

func (h *WebhookHandler) parseInvoice(event stripe.Event) (stripe.Invoice, bool) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice event", "error", err, "type", event.Type)
		return stripe.Invoice{}, false
	}
	if invoice.Customer == nil {
		return stripe.Invoice{}, false
	}
	return invoice, true
}

// webhookCtx returns a background context for webhook processing.
// Webhooks are async events and don't ride on a user session.
func webhookCtx() context.Context {
	return context.Background()
}
