// Package billing provides Stripe billing integration for subscription management.
package billing

import (
	"fmt"

	"github.com/jbaudry/previsk/internal/domain"
	"github.com/stripe/stripe-go/v79"
	billingportalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Service defines the interface for billing operations.
type Service interface {
	// CreateCustomer creates a new Stripe customer for the given email.
	CreateCustomer(email, name string) (string, error)

	// CreateCheckoutSession creates a Stripe Checkout session for subscribing.
	// Returns the checkout URL to redirect the user to.
	CreateCheckoutSession(customerID, priceID, successURL, cancelURL string) (string, error)

	// CreatePortalSession creates a Stripe Customer Portal session.
	// Returns the portal URL to redirect the user to.
	CreatePortalSession(customerID, returnURL string) (string, error)

	// GetSubscription retrieves a Stripe subscription by ID.
	GetSubscription(subscriptionID string) (*stripe.Subscription, error)

	// CancelSubscription sets a subscription to cancel at period end.
	CancelSubscription(subscriptionID string) error

	// ReactivateSubscription removes the cancel_at_period_end flag.
	ReactivateSubscription(subscriptionID string) error

	// VerifyWebhookSignature verifies the Stripe webhook signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)

	// PlanForPriceID returns the subscription plan for a given Stripe price ID.
	// Returns an empty plan if the price ID is not recognized.
	PlanForPriceID(priceID string) domain.Plan

	// PriceIDForPlan returns the Stripe price ID for a plan and billing cycle.
	PriceIDForPlan(plan domain.Plan, annual bool) string
}

// PriceConfig holds the Stripe price IDs for each paid plan, in monthly and
// annual billing variants. The free plan has no price ID.
type PriceConfig struct {
	StarterMonthlyPriceID    string
	StarterYearlyPriceID     string
	BusinessMonthlyPriceID   string
	BusinessYearlyPriceID    string
	PremiumMonthlyPriceID    string
	PremiumYearlyPriceID     string
	EntrepriseMonthlyPriceID string
	EntrepriseYearlyPriceID  string
}

// stripeService is the concrete implementation of Service.
type stripeService struct {
	webhookSecret string
	prices        PriceConfig
	priceToPlan   map[string]domain.Plan
}

// NewStripeService creates a new Stripe billing service.
//
// The secretKey is used to authenticate Stripe API calls.
// The webhookSecret is used to verify incoming webhook signatures.
// The prices configure which Stripe price IDs map to which plans.
func NewStripeService(secretKey, webhookSecret string, prices PriceConfig) Service {
	stripe.Key = secretKey

	priceToPlan := make(map[string]domain.Plan)
	add := func(priceID string, plan domain.Plan) {
		if priceID != "" {
			priceToPlan[priceID] = plan
		}
	}
	add(prices.StarterMonthlyPriceID, domain.PlanStarter)
	add(prices.StarterYearlyPriceID, domain.PlanStarter)
	add(prices.BusinessMonthlyPriceID, domain.PlanBusiness)
	add(prices.BusinessYearlyPriceID, domain.PlanBusiness)
	add(prices.PremiumMonthlyPriceID, domain.PlanPremium)
	add(prices.PremiumYearlyPriceID, domain.PlanPremium)
	add(prices.EntrepriseMonthlyPriceID, domain.PlanEntreprise)
	add(prices.EntrepriseYearlyPriceID, domain.PlanEntreprise)

	return &stripeService{
		webhookSecret: webhookSecret,
		prices:        prices,
		priceToPlan:   priceToPlan,
	}
}

func (s *stripeService) CreateCustomer(email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

func (s *stripeService) CreateCheckoutSession(customerID, priceID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) CreatePortalSession(customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	sess, err := billingportalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create portal session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	sub, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe get subscription: %w", err)
	}
	return sub, nil
}

// Cancellation is always at period end; the tenant keeps what they paid for
// and the webhook downgrade fires when the period lapses.
func (s *stripeService) CancelSubscription(subscriptionID string) error {
	return s.setCancelAtPeriodEnd(subscriptionID, true, "cancel")
}

func (s *stripeService) ReactivateSubscription(subscriptionID string) error {
	return s.setCancelAtPeriodEnd(subscriptionID, false, "reactivate")
}

func (s *stripeService) setCancelAtPeriodEnd(subscriptionID string, cancel bool, action string) error {
	_, err := subscription.Update(subscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	})
	if err != nil {
		return fmt.Errorf("stripe %s subscription: %w", action, err)
	}
	return nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

func (s *stripeService) PlanForPriceID(priceID string) domain.Plan {
	return s.priceToPlan[priceID]
}

func (s *stripeService) PriceIDForPlan(plan domain.Plan, annual bool) string {
	var monthly, yearly string
	switch plan {
	case domain.PlanStarter:
		monthly, yearly = s.prices.StarterMonthlyPriceID, s.prices.StarterYearlyPriceID
	case domain.PlanBusiness:
		monthly, yearly = s.prices.BusinessMonthlyPriceID, s.prices.BusinessYearlyPriceID
	case domain.PlanPremium:
		monthly, yearly = s.prices.PremiumMonthlyPriceID, s.prices.PremiumYearlyPriceID
	case domain.PlanEntreprise:
		monthly, yearly = s.prices.EntrepriseMonthlyPriceID, s.prices.EntrepriseYearlyPriceID
	default:
		return "" // the free plan has no price
	}
	if annual {
		return yearly
	}
	return monthly
}
